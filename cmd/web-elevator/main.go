package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"flag"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go-elevator-fleet/internal/config"
	"go-elevator-fleet/pkg/elevator"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Message types
// 메시지 타입 정의
type ClientMessage struct {
	Action string                   `json:"action"`
	Config *config.SimulationConfig `json:"config,omitempty"`
	Floor  int                      `json:"floor,omitempty"`
	Dir    string                   `json:"dir,omitempty"`
	Car    int                      `json:"car,omitempty"`
}

type ServerMessage struct {
	Type      string                 `json:"type"` // state, event, error
	SessionID string                 `json:"sessionId,omitempty"`
	EventType string                 `json:"eventType,omitempty"`
	Car       *int                   `json:"car,omitempty"`
	Floor     int                    `json:"floor,omitempty"`
	Payload   interface{}            `json:"payload,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
	State     *elevator.SnapshotView `json:"state,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorKind string                 `json:"errorKind,omitempty"`
}

// ElevatorSession manages a WebSocket connection with a simulation instance
// ElevatorSession은 시뮬레이션 인스턴스와의 WebSocket 연결을 관리합니다.
type ElevatorSession struct {
	id       string
	conn     *websocket.Conn
	defaults config.SimulationConfig
	logger   *slog.Logger

	mu      sync.Mutex // guards sim
	sim     *elevator.Simulation
	writeMu sync.Mutex // one writer at a time on conn
	done    chan struct{}
}

func NewElevatorSession(conn *websocket.Conn, defaults config.SimulationConfig, logger *slog.Logger) *ElevatorSession {
	id := uuid.NewString()
	return &ElevatorSession{
		id:       id,
		conn:     conn,
		defaults: defaults,
		logger:   logger.With("session", id),
		done:     make(chan struct{}),
	}
}

func (s *ElevatorSession) HandleMessages() {
	s.logger.Info("Session started", "remote_addr", s.conn.RemoteAddr())
	defer func() {
		close(s.done)
		s.mu.Lock()
		if s.sim != nil {
			s.sim.Close()
			s.sim = nil
		}
		s.mu.Unlock()
		_ = s.conn.Close()
		s.logger.Info("Session ended", "remote_addr", s.conn.RemoteAddr())
	}()

	s.mu.Lock()
	s.startSimulation(s.defaults)
	s.mu.Unlock()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error("WebSocket read error", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.logger.Warn("Failed to parse message", "error", err)
			continue
		}

		s.handleAction(msg)
	}
}

func (s *ElevatorSession) handleAction(msg ClientMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("Action received", "action", msg.Action, "payload", msg)

	switch msg.Action {
	case "init":
		if msg.Config == nil {
			s.logger.Warn("No config provided for init")
			return
		}
		if s.sim == nil {
			s.startSimulation(*msg.Config)
			return
		}
		if err := s.sim.Configure(msg.Config.Elevator()); err != nil {
			s.sendError(err)
		}
		s.sendState(s.sim)
	case "call":
		if s.sim != nil {
			dir, err := elevator.ParseDirection(msg.Dir)
			if err == nil {
				err = s.sim.PlaceExternalCall(msg.Floor, dir)
			}
			if err != nil {
				s.sendError(err)
			}
			s.sendState(s.sim)
		}
	case "inside":
		if s.sim != nil {
			if err := s.sim.RequestFromInside(msg.Car, msg.Floor); err != nil {
				s.sendError(err)
			}
			s.sendState(s.sim)
		}
	case "reset":
		if s.sim != nil {
			if err := s.sim.Reset(); err != nil {
				s.sendError(err)
			}
			s.sendState(s.sim)
		}
	case "stop":
		if s.sim != nil {
			s.sim.Close()
			s.sim = nil
		}
	case "getState":
		if s.sim != nil {
			s.sendState(s.sim)
		}
	default:
		s.logger.Warn("Unknown action", "action", msg.Action)
	}
}

// startSimulation creates the session's simulation; s.mu must be held.
func (s *ElevatorSession) startSimulation(cfg config.SimulationConfig) {
	sim, err := elevator.New(cfg.Elevator(), elevator.WithLogger(s.logger))
	if err != nil {
		s.logger.Error("Failed to initialize simulation", "error", err)
		s.sendError(err)
		return
	}
	s.sim = sim

	// Subscribe to events
	// 이벤트 구독
	go s.eventListener(sim)

	s.logger.Info("Simulation initialized", "floors", cfg.Floors, "cars", cfg.Cars)

	// Send initial state
	s.sendState(sim)
}

func (s *ElevatorSession) eventListener(sim *elevator.Simulation) {
	eventCh := sim.Events()
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			s.sendEvent(event)
			s.sendState(sim)
		}
	}
}

func (s *ElevatorSession) sendState(sim *elevator.Simulation) {
	view := sim.Snapshot().View()
	s.writeJSON(ServerMessage{
		Type:      "state",
		SessionID: s.id,
		State:     &view,
	})
}

func (s *ElevatorSession) sendEvent(event elevator.Event) {
	msg := ServerMessage{
		Type:      "event",
		EventType: string(event.Type),
		Floor:     event.Floor,
		Payload:   event.Payload,
		Timestamp: event.Timestamp.Format("15:04:05.000"),
	}
	if event.CarID >= 0 {
		car := event.CarID
		msg.Car = &car
	}
	s.writeJSON(msg)
}

func (s *ElevatorSession) sendError(err error) {
	s.writeJSON(ServerMessage{
		Type:      "error",
		Error:     err.Error(),
		ErrorKind: errorKind(err),
	})
}

// errorKind maps simulation errors to the names used by the UI.
func errorKind(err error) string {
	switch {
	case errors.Is(err, elevator.ErrInvalidCall):
		return "invalidCall"
	case errors.Is(err, elevator.ErrOutOfRange):
		return "outOfRange"
	case errors.Is(err, elevator.ErrUnknownCar):
		return "unknownCar"
	case errors.Is(err, elevator.ErrInvalidConfig):
		return "invalidConfig"
	case errors.Is(err, elevator.ErrClosed):
		return "closed"
	}
	return "internal"
}

func (s *ElevatorSession) writeJSON(msg ServerMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Error("Failed to write JSON message", "error", err)
	}
}

type server struct {
	cfg    *config.AppConfig
	logger *slog.Logger
}

func (srv *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	session := NewElevatorSession(conn, srv.cfg.Simulation, srv.logger)
	session.HandleMessages()
}

func (srv *server) routes() (http.Handler, error) {
	// Serve static files from embedded filesystem
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", srv.handleWebSocket)
	return mux, nil
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger := cfg.Log.Logger()
	slog.SetDefault(logger)

	srv := &server{cfg: cfg, logger: logger}
	handler, err := srv.routes()
	if err != nil {
		log.Fatal(err)
	}

	addr := ":" + cfg.Port
	httpServer := &http.Server{Addr: addr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}()

	logger.Info("Starting elevator web server", "addr", addr)
	logger.Info("Open http://localhost:" + cfg.Port + " in your browser")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
