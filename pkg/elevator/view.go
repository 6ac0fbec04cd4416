package elevator

import (
	"encoding/json"
	"time"
)

// CarView is the renderer-facing form of a Car; durations are in seconds.
type CarView struct {
	ID             int         `json:"id"`
	Position       int         `json:"position"`
	Queue          []int       `json:"queue"`
	State          MotionState `json:"state"`
	DoorsOpen      bool        `json:"doorsOpen"`
	TransitSeconds float64     `json:"animDuration"`
	Color          string      `json:"color"`
}

// SnapshotView is the JSON form of a Snapshot. Call keys are rendered as
// "floor:dir".
type SnapshotView struct {
	RunID       string          `json:"runId"`
	Time        time.Time       `json:"time"`
	Floors      int             `json:"floors"`
	Cars        []CarView       `json:"cars"`
	ActiveCalls map[string]bool `json:"activeCalls"`
}

// View converts the snapshot for rendering.
func (s Snapshot) View() SnapshotView {
	v := SnapshotView{
		RunID:       s.RunID,
		Time:        s.Time,
		Floors:      s.Floors,
		Cars:        make([]CarView, len(s.Cars)),
		ActiveCalls: make(map[string]bool, len(s.ActiveCalls)),
	}
	for i, c := range s.Cars {
		queue := c.Queue
		if queue == nil {
			queue = []int{}
		}
		v.Cars[i] = CarView{
			ID:             c.ID,
			Position:       c.Position,
			Queue:          queue,
			State:          c.State,
			DoorsOpen:      c.DoorsOpen,
			TransitSeconds: c.TransitDuration.Seconds(),
			Color:          c.Color,
		}
	}
	for k, active := range s.ActiveCalls {
		v.ActiveCalls[k.String()] = active
	}
	return v
}

// MarshalJSON encodes the snapshot through its View.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.View())
}
