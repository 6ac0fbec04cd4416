package elevator

import (
	"fmt"
	"maps"
)

// CallRegistry tracks which hall call buttons are lit.
// CallRegistry는 각 층의 호출 버튼(상/하) 활성 상태를 관리합니다.
// Not safe for concurrent use; the Simulation serializes access.
type CallRegistry struct {
	floors int
	calls  map[CallKey]bool
}

// NewCallRegistry creates a registry for floors 1..floors with every call off.
// There is no up button on the top floor and no down button on the bottom floor.
// 최상층에는 상행 버튼이, 최하층에는 하행 버튼이 없습니다.
func NewCallRegistry(floors int) *CallRegistry {
	r := &CallRegistry{
		floors: floors,
		calls:  make(map[CallKey]bool, 2*floors),
	}
	for f := 1; f <= floors; f++ {
		if f < floors {
			r.calls[CallKey{Floor: f, Dir: DirUp}] = false
		}
		if f > 1 {
			r.calls[CallKey{Floor: f, Dir: DirDown}] = false
		}
	}
	return r
}

// Validate checks that (floor, dir) names an existing call button.
// Validate는 존재하지 않는 층이나 버튼에 대해 에러를 반환합니다.
func (r *CallRegistry) Validate(floor int, dir Direction) error {
	if floor < 1 || floor > r.floors {
		return fmt.Errorf("%w: %w: floor %d not in [1, %d]", ErrInvalidCall, ErrOutOfRange, floor, r.floors)
	}
	if _, ok := r.calls[CallKey{Floor: floor, Dir: dir}]; !ok {
		return fmt.Errorf("%w: no %q button on floor %d", ErrInvalidCall, dir, floor)
	}
	return nil
}

// Place lights the call button. Placing an already active call is a no-op.
// Place는 호출 버튼을 점등합니다.
func (r *CallRegistry) Place(floor int, dir Direction) error {
	if err := r.Validate(floor, dir); err != nil {
		return err
	}
	r.calls[CallKey{Floor: floor, Dir: dir}] = true
	return nil
}

// Clear turns off both directions at floor and returns the keys that were lit.
// 도착한 층의 상/하 호출을 모두 소등합니다.
func (r *CallRegistry) Clear(floor int) []CallKey {
	var cleared []CallKey
	for _, dir := range []Direction{DirUp, DirDown} {
		key := CallKey{Floor: floor, Dir: dir}
		if active, ok := r.calls[key]; ok {
			if active {
				cleared = append(cleared, key)
			}
			r.calls[key] = false
		}
	}
	return cleared
}

// IsActive reports whether the call is lit.
func (r *CallRegistry) IsActive(key CallKey) bool {
	return r.calls[key]
}

// Active returns a copy of the full mapping.
// Active는 전체 호출 상태의 복사본을 반환합니다.
func (r *CallRegistry) Active() map[CallKey]bool {
	return maps.Clone(r.calls)
}

