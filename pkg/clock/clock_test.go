package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_AdvanceFiresInDeadlineOrder(t *testing.T) {
	m := NewManual(epoch)
	var fired []string

	m.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	m.AfterFunc(1*time.Second, func() { fired = append(fired, "a") })
	m.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })

	m.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, epoch.Add(2*time.Second), m.Now())
	assert.Equal(t, 1, m.Pending())

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_SameDeadlineKeepsScheduleOrder(t *testing.T) {
	m := NewManual(epoch)
	var fired []int
	for i := 0; i < 5; i++ {
		i := i
		m.AfterFunc(time.Second, func() { fired = append(fired, i) })
	}
	m.Advance(time.Second)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, fired)
}

func TestManual_ChainedCallbacksInsideWindow(t *testing.T) {
	m := NewManual(epoch)
	var at []time.Duration

	m.AfterFunc(time.Second, func() {
		at = append(at, m.Now().Sub(epoch))
		m.AfterFunc(time.Second, func() {
			at = append(at, m.Now().Sub(epoch))
		})
	})

	m.Advance(5 * time.Second)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, at)
	assert.Equal(t, epoch.Add(5*time.Second), m.Now())
}

func TestManual_Stop(t *testing.T) {
	m := NewManual(epoch)
	called := false
	timer := m.AfterFunc(time.Second, func() { called = true })

	require.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop must report false")

	m.Advance(2 * time.Second)
	assert.False(t, called)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_StopAfterFire(t *testing.T) {
	m := NewManual(epoch)
	timer := m.AfterFunc(time.Millisecond, func() {})
	m.Advance(time.Millisecond)
	assert.False(t, timer.Stop())
}

func TestManual_NextDeadline(t *testing.T) {
	m := NewManual(epoch)
	_, ok := m.NextDeadline()
	assert.False(t, ok)

	m.AfterFunc(4*time.Second, func() {})
	m.AfterFunc(time.Second, func() {})
	next, ok := m.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(time.Second), next)
}

func TestReal_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real().AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
