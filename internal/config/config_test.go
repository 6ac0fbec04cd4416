package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-elevator-fleet/pkg/elevator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesElevatorDefaults(t *testing.T) {
	assert.Equal(t, elevator.DefaultConfig(), Default().Simulation.Elevator())
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10, cfg.Simulation.Floors)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "elevator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
simulation:
  floors: 20
  cars: 4
  speedPerFloorSeconds: 0.5
  doorOpenSeconds: 3
  minTransitSeconds: 0.2
log:
  level: debug
`), 0o644))

	t.Setenv("ELEVATOR_CARS", "6")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("ELEVATOR_ANSWER_IN_PLACE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 20, cfg.Simulation.Floors)
	assert.Equal(t, 6, cfg.Simulation.Cars)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	ec := cfg.Simulation.Elevator()
	assert.Equal(t, 500*time.Millisecond, ec.PerFloor)
	assert.Equal(t, 3*time.Second, ec.DoorOpen)
	assert.Equal(t, 200*time.Millisecond, ec.MinTransit)
	// file did not set it, so the default survives the decode
	assert.Equal(t, 60*time.Millisecond, ec.ArrivalSlack)
	assert.True(t, ec.AnswerInPlace)
	assert.False(t, Default().Simulation.Elevator().AnswerInPlace)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ELEVATOR_FLOORS=12\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ELEVATOR_FLOORS") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Simulation.Floors)
}

func TestLoad_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)

	t.Setenv("ELEVATOR_FLOORS", "ten")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv("ELEVATOR_FLOORS", "1")
	_, err = Load("")
	assert.ErrorIs(t, err, elevator.ErrInvalidConfig)

	t.Setenv("ELEVATOR_FLOORS", "")
	t.Setenv("ELEVATOR_ANSWER_IN_PLACE", "maybe")
	_, err = Load("")
	assert.ErrorContains(t, err, "ELEVATOR_ANSWER_IN_PLACE")
}

func TestSeconds_Rounds(t *testing.T) {
	assert.Equal(t, 900*time.Millisecond, Seconds(0.9))
	assert.Equal(t, 3600*time.Millisecond, Seconds(3.6))
	assert.Equal(t, time.Duration(0), Seconds(0))
}

func TestLogConfig_Logger(t *testing.T) {
	l := LogConfig{Level: "warn", Format: "json"}.Logger()
	require.NotNil(t, l)
	assert.False(t, l.Enabled(t.Context(), slog.LevelDebug))
	assert.True(t, l.Enabled(t.Context(), slog.LevelError))
}
