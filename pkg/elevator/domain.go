package elevator

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// --- Domain Entities & Value Objects ---

// Direction is the direction requested by a hall call.
// Direction은 층 호출 버튼의 방향을 나타냅니다.
type Direction string

const (
	DirUp   Direction = "up"
	DirDown Direction = "down"
)

// ParseDirection accepts "up"/"down" in any case.
// ParseDirection은 대소문자 구분 없이 방향 문자열을 해석합니다.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirUp:
		return DirUp, nil
	case DirDown:
		return DirDown, nil
	}
	return "", fmt.Errorf("%w: unknown direction %q", ErrInvalidCall, s)
}

// MotionState is the state of a car's state machine.
// MotionState는 엘리베이터 카의 상태 머신 상태입니다.
type MotionState string

const (
	StateIdle      MotionState = "idle"
	StateMoving    MotionState = "moving"
	StateDoorsOpen MotionState = "doors"
)

// CallKey identifies a hall call button.
// CallKey는 "층:방향" 형식으로 표시되는 층 호출 버튼입니다.
type CallKey struct {
	Floor int       `json:"floor"`
	Dir   Direction `json:"dir"`
}

func (k CallKey) String() string {
	return fmt.Sprintf("%d:%s", k.Floor, k.Dir)
}

// Timing holds the durations that drive transit and dwell.
// Timing은 이동과 문 열림 대기 시간을 정의합니다.
type Timing struct {
	PerFloor     time.Duration // 한 층 이동 시간
	DoorOpen     time.Duration // 도착 후 문 열림 유지 시간
	MinTransit   time.Duration // 최소 이동 시간
	ArrivalSlack time.Duration // 애니메이션 완료를 위한 도착 여유 시간
}

// Palette is the display colour assigned to cars in id order.
// Palette는 카 ID 순서대로 배정되는 표시 색상입니다.
var Palette = []string{"sky", "rose", "emerald"}

// Car is the unit of simulated state: one elevator car.
// No mutex, No channel, No timer. The Simulation owns every Car.
// Car는 순수 상태만 가지며, 모든 변경은 Simulation이 수행합니다.
type Car struct {
	ID              int           `json:"id"`
	Position        int           `json:"position"`
	Queue           []int         `json:"queue"`
	State           MotionState   `json:"state"`
	DoorsOpen       bool          `json:"doorsOpen"`
	TransitDuration time.Duration `json:"transitDuration"`
	Color           string        `json:"color"`
}

// NewCar creates an idle car with closed doors at floor.
// NewCar는 문이 닫힌 대기 상태의 카를 생성합니다.
func NewCar(id, floor int) *Car {
	return &Car{
		ID:       id,
		Position: floor,
		Queue:    []int{},
		State:    StateIdle,
		Color:    Palette[id%len(Palette)],
	}
}

// HasQueued reports whether floor is already waiting in the queue.
// HasQueued는 해당 층이 이미 대기열에 있는지 확인합니다.
func (c *Car) HasQueued(floor int) bool {
	return slices.Contains(c.Queue, floor)
}

// Enqueue appends floor unless it is already queued or is the car's position.
// The queue is an insertion-ordered set, never a multiset.
// Enqueue는 중복되거나 현재 층인 경우 무시합니다.
func (c *Car) Enqueue(floor int) bool {
	if c.Position == floor || c.HasQueued(floor) {
		return false
	}
	c.Queue = append(c.Queue, floor)
	return true
}

// CanDepart reports whether the car is settled with closed doors and has
// somewhere to go.
// 문이 닫힌 대기 상태이고 대기열이 비어 있지 않을 때만 출발합니다.
func (c *Car) CanDepart() bool {
	return c.State == StateIdle && !c.DoorsOpen && len(c.Queue) > 0
}

// Depart starts the transit to the front of the queue.
// The position snaps to the destination immediately; duration only tells the
// renderer how long the animation takes.
// 위치는 출발 시점에 목적지로 즉시 갱신됩니다.
func (c *Car) Depart(t Timing) (next int, duration time.Duration) {
	next = c.Queue[0]
	duration = TransitDuration(c.Position, next, t)
	c.State = StateMoving
	c.TransitDuration = duration
	c.Position = next
	return next, duration
}

// Arrive pops the reached floor and opens the doors.
// Arrive는 도착한 층을 대기열에서 제거하고 문을 엽니다.
func (c *Car) Arrive() int {
	floor := c.Queue[0]
	c.Queue = c.Queue[1:]
	c.State = StateDoorsOpen
	c.DoorsOpen = true
	c.TransitDuration = 0
	return floor
}

// OpenInPlace opens the doors at the current floor without a transit.
func (c *Car) OpenInPlace() {
	c.State = StateDoorsOpen
	c.DoorsOpen = true
	c.TransitDuration = 0
}

// CloseDoors settles the car back to idle.
// CloseDoors는 문을 닫고 대기 상태로 돌아갑니다.
func (c *Car) CloseDoors() {
	c.DoorsOpen = false
	c.State = StateIdle
}

// Valid checks the car's structural invariants.
// Valid는 문 상태와 대기열의 불변 조건을 검사합니다.
func (c *Car) Valid() error {
	if c.DoorsOpen != (c.State == StateDoorsOpen) {
		return fmt.Errorf("car %d: doorsOpen=%t in state %s", c.ID, c.DoorsOpen, c.State)
	}
	seen := make(map[int]bool, len(c.Queue))
	for _, f := range c.Queue {
		if seen[f] {
			return fmt.Errorf("car %d: duplicate floor %d in queue", c.ID, f)
		}
		// a moving car already sits on its destination, which stays queued until arrival
		if f == c.Position && !(c.State == StateMoving && f == c.Queue[0]) {
			return fmt.Errorf("car %d: current floor %d in queue", c.ID, f)
		}
		seen[f] = true
	}
	return nil
}

