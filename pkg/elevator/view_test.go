package elevator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_MarshalJSON(t *testing.T) {
	sim, _ := newTestSimulation(t, DefaultConfig())
	require.NoError(t, sim.PlaceExternalCall(4, DirDown))

	data, err := json.Marshal(sim.Snapshot())
	require.NoError(t, err)

	var view SnapshotView
	require.NoError(t, json.Unmarshal(data, &view))
	assert.True(t, view.ActiveCalls["4:down"])
	assert.False(t, view.ActiveCalls["4:up"])
	require.Len(t, view.Cars, 3)
	assert.Equal(t, StateMoving, view.Cars[0].State)
	assert.InDelta(t, 2.7, view.Cars[0].TransitSeconds, 1e-9)
	assert.Equal(t, "sky", view.Cars[0].Color)
	assert.Equal(t, []int{}, view.Cars[1].Queue)
}

func TestSnapshot_ViewNilQueue(t *testing.T) {
	snap := Snapshot{Cars: []Car{{ID: 0, Position: 2, State: StateIdle, TransitDuration: time.Second}}}
	v := snap.View()
	assert.NotNil(t, v.Cars[0].Queue)
	assert.Equal(t, 1.0, v.Cars[0].TransitSeconds)
}
