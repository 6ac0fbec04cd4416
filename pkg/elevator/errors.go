package elevator

import "errors"

// Caller-input errors. They are detected at the call boundary and never
// leave the simulation partially mutated.
// 모든 에러는 호출 경계에서 동기적으로 감지되며 상태를 변경하지 않습니다.
var (
	ErrInvalidCall   = errors.New("invalid call")
	ErrOutOfRange    = errors.New("floor out of range")
	ErrUnknownCar    = errors.New("unknown car")
	ErrInvalidConfig = errors.New("invalid config")
	ErrClosed        = errors.New("simulation closed")
)
