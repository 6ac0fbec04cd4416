// Package config loads the settings shared by the binaries.
// Sources are applied in order: defaults, YAML file, .env file, environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"go-elevator-fleet/pkg/elevator"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SimulationConfig is the wire/file form of elevator.Config, in seconds.
type SimulationConfig struct {
	Floors               int     `yaml:"floors" json:"floors"`
	Cars                 int     `yaml:"cars" json:"cars"`
	SpeedPerFloorSeconds float64 `yaml:"speedPerFloorSeconds" json:"speedPerFloorSeconds"`
	DoorOpenSeconds      float64 `yaml:"doorOpenSeconds" json:"doorOpenSeconds"`
	MinTransitSeconds    float64 `yaml:"minTransitSeconds" json:"minTransitSeconds"`
	ArrivalSlackSeconds  float64 `yaml:"arrivalSlackSeconds,omitempty" json:"arrivalSlackSeconds,omitempty"`
	AnswerInPlace        bool    `yaml:"answerInPlace,omitempty" json:"answerInPlace,omitempty"`
}

// Elevator converts seconds to durations.
func (c SimulationConfig) Elevator() elevator.Config {
	return elevator.Config{
		Floors:        c.Floors,
		Cars:          c.Cars,
		PerFloor:      Seconds(c.SpeedPerFloorSeconds),
		DoorOpen:      Seconds(c.DoorOpenSeconds),
		MinTransit:    Seconds(c.MinTransitSeconds),
		ArrivalSlack:  Seconds(c.ArrivalSlackSeconds),
		AnswerInPlace: c.AnswerInPlace,
	}
}

// Seconds converts fractional seconds to a Duration, rounded to the nanosecond.
// 초 단위 실수를 반올림하여 Duration으로 변환합니다.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// AppConfig is everything a binary needs to start.
type AppConfig struct {
	Port       string           `yaml:"port"`
	Simulation SimulationConfig `yaml:"simulation"`
	Log        LogConfig        `yaml:"log"`
}

// Default mirrors elevator.DefaultConfig.
func Default() *AppConfig {
	return &AppConfig{
		Port: "8080",
		Simulation: SimulationConfig{
			Floors:               10,
			Cars:                 3,
			SpeedPerFloorSeconds: 0.9,
			DoorOpenSeconds:      2.0,
			MinTransitSeconds:    0.25,
			ArrivalSlackSeconds:  0.06,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Simulation.Elevator().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config %s: %w", path, err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("decoding config %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Port = port
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		c.Log.Level = lvl
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}

	if v := os.Getenv("ELEVATOR_ANSWER_IN_PLACE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ELEVATOR_ANSWER_IN_PLACE: %w", err)
		}
		c.Simulation.AnswerInPlace = b
	}

	ints := map[string]*int{
		"ELEVATOR_FLOORS": &c.Simulation.Floors,
		"ELEVATOR_CARS":   &c.Simulation.Cars,
	}
	for name, dst := range ints {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}

	floats := map[string]*float64{
		"ELEVATOR_SPEED_PER_FLOOR": &c.Simulation.SpeedPerFloorSeconds,
		"ELEVATOR_DOOR_OPEN":       &c.Simulation.DoorOpenSeconds,
		"ELEVATOR_MIN_TRANSIT":     &c.Simulation.MinTransitSeconds,
	}
	for name, dst := range floats {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = f
	}
	return nil
}

// Logger builds the process logger from the log settings.
func (c LogConfig) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
