package elevator

import (
	"math"
	"time"
)

// TransitDuration is the travel time between two floors, never shorter than
// MinTransit.
// 층간 이동 시간은 최소 이동 시간보다 짧아지지 않습니다.
func TransitDuration(from, to int, t Timing) time.Duration {
	d := time.Duration(absInt(to-from)) * t.PerFloor
	return max(t.MinTransit, d)
}

// EstimateTimeToServe predicts how long car needs to reach target, given the
// stops already in its queue.
// 대기열의 모든 정차(이동 + 문 열림)를 순서대로 시뮬레이션한 뒤 목표 층까지의 이동 시간을 더합니다.
//
// The final leg carries no door cost: that stop has not been served yet.
func EstimateTimeToServe(car *Car, target int, t Timing) time.Duration {
	var est time.Duration
	if car.DoorsOpen {
		est += t.DoorOpen
	}

	current := car.Position
	for _, dest := range car.Queue {
		est += time.Duration(absInt(dest-current))*t.PerFloor + t.DoorOpen
		current = dest
	}
	est += time.Duration(absInt(target-current)) * t.PerFloor
	return est
}

// SelectCar picks the car with the strictly smallest estimate. Ties go to the
// first car in slice order, which is the lowest id.
// 예상 시간이 같으면 ID가 가장 낮은 카가 선택됩니다.
// Greedy and single-shot: an assigned stop is never moved to another car.
func SelectCar(cars []*Car, floor int, t Timing) *Car {
	var (
		best     *Car
		bestTime time.Duration = math.MaxInt64
	)
	for _, c := range cars {
		if est := EstimateTimeToServe(c, floor, t); est < bestTime {
			best = c
			bestTime = est
		}
	}
	return best
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
