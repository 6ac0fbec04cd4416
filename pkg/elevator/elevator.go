// Package elevator implements a discrete-event simulation of an elevator fleet.
// 이 패키지는 여러 대의 엘리베이터 카와 층 호출을 시뮬레이션합니다.
// 새 호출은 예상 대기 시간이 가장 짧은 카에 배정되며, 각 카는 타이머로 구동되는 상태 머신을 따릅니다.
package elevator

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go-elevator-fleet/pkg/clock"

	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"
)

// EventType represents the category of a simulation event.
// EventType는 시뮬레이션 이벤트의 카테고리를 나타냅니다.
type EventType string

const (
	EventCallPlaced  EventType = "CallPlaced"
	EventCallCleared EventType = "CallCleared"
	EventDeparted    EventType = "Departed"
	EventArrived     EventType = "Arrived"
	EventDoorsClosed EventType = "DoorsClosed"
	EventReset       EventType = "Reset"
)

// Event carries the state change information.
// Event는 시스템 내에서 발생한 상태 변화 정보를 담고 있습니다.
type Event struct {
	Type      EventType
	CarID     int // -1 when no car is involved
	Floor     int
	Payload   interface{}
	Timestamp time.Time
}

// DepartedPayload carries detail for departure events.
type DepartedPayload struct {
	From     int
	To       int
	Duration time.Duration
}

// ArrivedPayload carries detail for arrival events.
// ArrivedPayload는 도착 이벤트의 세부 정보를 담고 있습니다.
type ArrivedPayload struct {
	Floor   int
	InPlace bool // answered without a transit
	Cleared []CallKey
}

// Config holds the parameters applied at (re)initialization.
// Config는 시뮬레이션 초기화 시점에만 적용됩니다.
type Config struct {
	Floors       int           // 층 수 (1..Floors)
	Cars         int           // 엘리베이터 카 수
	PerFloor     time.Duration // 한 층 이동 시간
	DoorOpen     time.Duration // 도착 후 문 열림 유지 시간
	MinTransit   time.Duration // 최소 이동 시간
	ArrivalSlack time.Duration // 도착 타이머 여유 시간 (0이면 기본값)

	// AnswerInPlace opens the doors of a stationary car for a hall call at its
	// own floor. Off by default: such a call is not queued and stays lit until
	// a car arrives at the floor.
	// AnswerInPlace가 꺼져 있으면 현재 층의 호출은 배정되지 않고 점등 상태로 남습니다.
	AnswerInPlace bool
}

// DefaultArrivalSlack lets the renderer finish the transit animation before
// the doors open.
const DefaultArrivalSlack = 60 * time.Millisecond

// DefaultConfig returns a 10-floor, 3-car building.
func DefaultConfig() Config {
	return Config{
		Floors:       10,
		Cars:         3,
		PerFloor:     900 * time.Millisecond,
		DoorOpen:     2 * time.Second,
		MinTransit:   250 * time.Millisecond,
		ArrivalSlack: DefaultArrivalSlack,
	}
}

// Validate fails fast on a configuration the simulation cannot run.
func (c Config) Validate() error {
	if c.Floors < 2 {
		return fmt.Errorf("%w: floors must be >= 2, got %d", ErrInvalidConfig, c.Floors)
	}
	if c.Cars < 1 {
		return fmt.Errorf("%w: cars must be >= 1, got %d", ErrInvalidConfig, c.Cars)
	}
	if c.PerFloor <= 0 || c.DoorOpen <= 0 || c.MinTransit <= 0 {
		return fmt.Errorf("%w: durations must be positive (perFloor=%s doorOpen=%s minTransit=%s)",
			ErrInvalidConfig, c.PerFloor, c.DoorOpen, c.MinTransit)
	}
	if c.ArrivalSlack < 0 {
		return fmt.Errorf("%w: arrival slack must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Timing extracts the durations used by the dispatcher and the cars.
func (c Config) Timing() Timing {
	return Timing{
		PerFloor:     c.PerFloor,
		DoorOpen:     c.DoorOpen,
		MinTransit:   c.MinTransit,
		ArrivalSlack: c.ArrivalSlack,
	}
}

// Snapshot is a read-only copy of the settled simulation state.
// Snapshot은 렌더링 틱마다 호출되는 읽기 전용 상태 복사본입니다.
type Snapshot struct {
	RunID       string
	Time        time.Time
	Floors      int
	Cars        []Car
	ActiveCalls map[CallKey]bool
}

// Car returns the car with the given id.
func (s Snapshot) Car(id int) (Car, bool) {
	for _, c := range s.Cars {
		if c.ID == id {
			return c, true
		}
	}
	return Car{}, false
}

// LitCalls returns the active calls ordered by floor.
func (s Snapshot) LitCalls() []CallKey {
	var keys []CallKey
	for k, v := range s.ActiveCalls {
		if v {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b CallKey) int {
		if a.Floor != b.Floor {
			return a.Floor - b.Floor
		}
		if a.Dir == b.Dir {
			return 0
		}
		if a.Dir == DirUp {
			return -1
		}
		return 1
	})
	return keys
}

// carTimer is the live cancellation token of a car's pending transition.
type carTimer struct {
	timer clock.Timer
	seq   uint64
}

// Option customizes a Simulation.
type Option func(*Simulation)

// WithClock replaces the real-time clock, e.g. with a clock.Manual.
func WithClock(c clock.Clock) Option {
	return func(s *Simulation) { s.clock = c }
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.baseLogger = l }
}

// WithEventBuffer sets the capacity of the event channel.
func WithEventBuffer(n int) Option {
	return func(s *Simulation) { s.eventBuffer = n }
}

// Simulation owns the cars and the call registry.
// 모든 상태 변경은 Mutex로 보호되며, 변경 사항은 Event 채널로 전파됩니다.
//
// Every public method and every timer callback runs under mu, so callbacks
// from different cars interleave but never overlap.
type Simulation struct {
	mu     sync.Mutex
	cfg    Config
	timing Timing
	clock  clock.Clock

	// --- State (가변 상태) ---
	runID  string
	epoch  uint64 // bumped on every (re)initialization and on Close
	cars   []*Car
	timers []carTimer
	calls  *CallRegistry
	closed bool

	// --- Observability ---
	baseLogger        *slog.Logger
	logger            *slog.Logger
	eventBuffer       int
	eventCh           chan Event // 외부 통신용 이벤트 채널
	droppedEventCount uint64     // 버퍼 오버플로우로 버려진 이벤트 수
}

// New validates cfg and creates a simulation with every car idle at floor 1.
// 잘못된 설정이 감지되면 즉시 에러를 반환합니다 (Fail Fast).
func New(cfg Config, opts ...Option) (*Simulation, error) {
	if cfg.ArrivalSlack == 0 {
		cfg.ArrivalSlack = DefaultArrivalSlack
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		clock:       clock.Real(),
		baseLogger:  slog.Default(),
		eventBuffer: 1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.eventCh = make(chan Event, s.eventBuffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked(cfg)
	return s, nil
}

// initLocked cancels outstanding timers and rebuilds the fleet.
func (s *Simulation) initLocked(cfg Config) {
	s.cancelTimersLocked()
	s.epoch++

	s.cfg = cfg
	s.timing = cfg.Timing()
	s.runID = uuid.NewString()
	s.logger = s.baseLogger.With("run", s.runID)

	s.cars = make([]*Car, cfg.Cars)
	for i := range s.cars {
		s.cars[i] = NewCar(i, 1)
	}
	s.timers = make([]carTimer, cfg.Cars)
	s.calls = NewCallRegistry(cfg.Floors)

	s.logger.Info("Simulation initialized",
		"floors", cfg.Floors,
		"cars", cfg.Cars,
		"per_floor", cfg.PerFloor,
		"door_open", cfg.DoorOpen,
	)
}

func (s *Simulation) cancelTimersLocked() {
	for i := range s.timers {
		if s.timers[i].timer != nil {
			s.timers[i].timer.Stop()
			s.timers[i].timer = nil
		}
	}
}

// Configure re-initializes the simulation with cfg.
// Configure는 설정을 적용하고 모든 타이머를 취소한 뒤 초기 상태로 되돌립니다.
func (s *Simulation) Configure(cfg Config) error {
	if cfg.ArrivalSlack == 0 {
		cfg.ArrivalSlack = DefaultArrivalSlack
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.initLocked(cfg)
	s.publishEvent(EventReset, -1, 0, cfg)
	return nil
}

// Reset returns to the initial state with the current configuration.
// Reset은 현재 설정으로 시뮬레이션을 초기 상태로 되돌립니다.
func (s *Simulation) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.logger.Info("Resetting simulation state")
	s.initLocked(s.cfg)
	s.publishEvent(EventReset, -1, 0, s.cfg)
	return nil
}

// Close cancels every outstanding timer and closes the event channel.
// Close is idempotent.
func (s *Simulation) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancelTimersLocked()
	s.epoch++
	s.closed = true
	close(s.eventCh)
	s.logger.Info("Simulation closed")
}

// Config returns the active configuration.
func (s *Simulation) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// RunID identifies the current run; it changes on every Configure and Reset.
func (s *Simulation) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Events returns the read-only channel for state change notifications.
// The channel is closed by Close.
// Events는 상태 변경 알림을 위한 읽기 전용 채널을 반환합니다.
func (s *Simulation) Events() <-chan Event {
	return s.eventCh
}

// DroppedEventCount returns diagnostic metric for channel health.
// DroppedEventCount는 버퍼 오버플로우로 버려진 이벤트 수를 안전하게 반환합니다.
func (s *Simulation) DroppedEventCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.droppedEventCount
}

// publishEvent sends an event to the channel without blocking logic.
// 채널이 가득 차면 이벤트를 버리고 메트릭을 증가시킵니다 (System Stability).
func (s *Simulation) publishEvent(eventType EventType, carID, floor int, payload interface{}) {
	if s.closed {
		return
	}
	event := Event{
		Type:      eventType,
		CarID:     carID,
		Floor:     floor,
		Payload:   payload,
		Timestamp: s.clock.Now(),
	}

	select {
	case s.eventCh <- event:
	default:
		s.droppedEventCount++
		// Log rarely to avoid disk I/O flooding
		if s.droppedEventCount%100 == 1 {
			s.logger.Error("Event Channel Saturated", "dropped", s.droppedEventCount, "type", eventType)
		}
	}
}

// Snapshot returns a deep copy of the cars and the call registry.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		RunID:       s.runID,
		Time:        s.clock.Now(),
		Floors:      s.cfg.Floors,
		Cars:        s.copyCarsLocked(),
		ActiveCalls: s.calls.Active(),
	}
}

func (s *Simulation) copyCarsLocked() []Car {
	var copied []*Car
	if err := deepcopy.Copy(&copied, &s.cars); err != nil {
		s.logger.Error("Failed to copy car state", "error", err)
		return nil
	}
	cars := make([]Car, len(copied))
	for i, c := range copied {
		cars[i] = *c
	}
	return cars
}

// PlaceExternalCall lights the hall call (floor, dir) and assigns it to the
// car with the smallest estimated time to serve.
// Placing a call that is already lit changes nothing.
// 층 호출을 등록하고 예상 도착 시간이 가장 짧은 카에 배정합니다.
func (s *Simulation) PlaceExternalCall(floor int, dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	key := CallKey{Floor: floor, Dir: dir}
	if err := s.calls.Validate(floor, dir); err != nil {
		s.logger.Warn("PlaceExternalCall rejected", "floor", floor, "dir", dir, "error", err)
		return err
	}
	if s.calls.IsActive(key) {
		s.logger.Debug("Call already active", "call", key)
		return nil
	}
	_ = s.calls.Place(floor, dir)
	s.publishEvent(EventCallPlaced, -1, floor, key)

	car := SelectCar(s.cars, floor, s.timing)
	s.logger.Info("Hall call assigned", "call", key, "car", car.ID,
		"estimate", EstimateTimeToServe(car, floor, s.timing))

	if car.Position == floor && car.State != StateMoving {
		if s.cfg.AnswerInPlace {
			s.answerInPlace(car)
			return nil
		}
		s.logger.Debug("Chosen car already at floor, call left lit", "call", key, "car", car.ID)
		return nil
	}
	if !car.Enqueue(floor) {
		s.logger.Debug("Floor already queued", "car", car.ID, "floor", floor)
		return nil
	}
	s.step(car)
	return nil
}

// RequestFromInside queues floor on the car's own panel, bypassing dispatch.
// Requesting the car's current floor or an already queued floor is a no-op.
func (s *Simulation) RequestFromInside(carID, floor int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if floor < 1 || floor > s.cfg.Floors {
		s.logger.Warn("RequestFromInside rejected: floor out of range",
			"car", carID, "floor", floor, "max", s.cfg.Floors)
		return fmt.Errorf("%w: floor %d not in [1, %d]", ErrOutOfRange, floor, s.cfg.Floors)
	}
	if carID < 0 || carID >= len(s.cars) {
		s.logger.Warn("RequestFromInside rejected: unknown car", "car", carID)
		return fmt.Errorf("%w: %d", ErrUnknownCar, carID)
	}

	car := s.cars[carID]
	if !car.Enqueue(floor) {
		s.logger.Debug("Car call ignored (current or queued floor)", "car", carID, "floor", floor)
		return nil
	}
	s.logger.Info("Car call registered", "car", carID, "floor", floor)
	s.step(car)
	return nil
}

// step starts a transit when the car is settled with a non-empty queue.
// It is re-run whenever the car's queue grows or its doors close.
func (s *Simulation) step(car *Car) {
	if !car.CanDepart() {
		return
	}
	from := car.Position
	next, duration := car.Depart(s.timing)

	s.logger.Info("🚅 Departing", "car", car.ID, "from", from, "to", next, "duration", duration)
	s.publishEvent(EventDeparted, car.ID, next, DepartedPayload{From: from, To: next, Duration: duration})

	s.schedule(car, duration+s.timing.ArrivalSlack, s.arrive)
}

// arrive pops the reached floor, opens the doors and clears the floor's calls.
func (s *Simulation) arrive(car *Car) {
	floor := car.Arrive()
	cleared := s.calls.Clear(floor)

	s.logger.Info("Arrived at floor", "car", car.ID, "floor", floor, "cleared", len(cleared))
	s.publishEvent(EventArrived, car.ID, floor, ArrivedPayload{Floor: floor, Cleared: cleared})
	for _, key := range cleared {
		s.publishEvent(EventCallCleared, car.ID, floor, key)
	}

	s.schedule(car, s.timing.DoorOpen, s.closeDoors)
}

// answerInPlace serves a hall call at the floor where a stationary car stands.
func (s *Simulation) answerInPlace(car *Car) {
	floor := car.Position
	cleared := s.calls.Clear(floor)
	s.logger.Info("Call answered in place", "car", car.ID, "floor", floor, "state", car.State)
	for _, key := range cleared {
		s.publishEvent(EventCallCleared, car.ID, floor, key)
	}

	if car.State == StateDoorsOpen {
		return
	}
	car.OpenInPlace()
	s.publishEvent(EventArrived, car.ID, floor, ArrivedPayload{Floor: floor, InPlace: true, Cleared: cleared})
	s.schedule(car, s.timing.DoorOpen, s.closeDoors)
}

// closeDoors settles the car and immediately re-evaluates its queue.
func (s *Simulation) closeDoors(car *Car) {
	car.CloseDoors()
	s.logger.Debug("Doors closed", "car", car.ID, "floor", car.Position, "queued", len(car.Queue))
	s.publishEvent(EventDoorsClosed, car.ID, car.Position, nil)

	if len(car.Queue) == 0 {
		s.logger.Debug("💤 Idle State (No calls)", "car", car.ID, "floor", car.Position)
		return
	}
	s.step(car)
}

// schedule replaces the car's pending timer with fn after d.
// A callback from an earlier run or an earlier schedule is dropped on arrival.
func (s *Simulation) schedule(car *Car, d time.Duration, fn func(*Car)) {
	ct := &s.timers[car.ID]
	if ct.timer != nil {
		ct.timer.Stop()
	}
	ct.seq++
	seq, epoch := ct.seq, s.epoch

	ct.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.epoch != epoch || s.timers[car.ID].seq != seq {
			return
		}
		s.timers[car.ID].timer = nil
		fn(car)
	})
}
