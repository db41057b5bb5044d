// Package web provides the real-time status dashboard for the wearable.
package web

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/behavior"
	"github.com/cavg-team/go-wearable/pkg/delivery"
	"github.com/cavg-team/go-wearable/pkg/display"
	"github.com/cavg-team/go-wearable/pkg/hub"
)

// StatusReport is the full device status the dashboard polls.
type StatusReport struct {
	SensorID string                `json:"sensor_id"`
	Location string                `json:"location"`
	System   behavior.SystemStatus `json:"system"`
	Delivery delivery.Stats        `json:"delivery"`
	// SensorReadErrors counts failed hardware reads since startup.
	SensorReadErrors uint64 `json:"sensor_read_errors"`
	Clients          int    `json:"dashboard_clients"`
}

// EventEntry is one row in the dashboard's recent-event feed.
type EventEntry struct {
	Time     string         `json:"time"`
	Behavior string         `json:"behavior"`
	Metadata map[string]any `json:"metadata"`
}

// Server is the dashboard server. Status and recalibration are pulled
// through callbacks so the server holds no detector references itself.
type Server struct {
	app  *fiber.App
	port string

	statusFn      func() StatusReport
	onRecalibrate func(ctx context.Context, reason string) error

	// Recent events, newest last (last 200 entries)
	events   []EventEntry
	eventsMu sync.RWMutex

	statusHub  *hub.Hub
	eventHub   *hub.Hub
	displayHub *hub.Hub
}

// NewServer creates the dashboard server. statusFn must not be nil;
// onRecalibrate may be nil, in which case the endpoint reports 503.
func NewServer(port string, statusFn func() StatusReport, onRecalibrate func(ctx context.Context, reason string) error) *Server {
	s := &Server{
		port:          port,
		statusFn:      statusFn,
		onRecalibrate: onRecalibrate,
		events:        make([]EventEntry, 0, 200),
		statusHub:     hub.New("status"),
		eventHub:      hub.New("events"),
		displayHub:    hub.New("display"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Wearable Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static files
	app.Static("/", "./web")

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/events", s.handleGetEvents)
	api.Post("/recalibrate", s.handleRecalibrate)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/display", websocket.New(s.handleDisplayWS))

	s.app = app
	return s
}

// Start starts the web server. Blocks until shutdown.
func (s *Server) Start() error {
	log.Info("dashboard listening", "port", s.port)

	go s.statusHub.Run()
	go s.eventHub.Run()
	go s.displayHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("dashboard server error", "err", err)
		}
	}()
}

// BroadcastSnapshot pushes a detector state snapshot to every connected
// status client.
func (s *Server) BroadcastSnapshot(snap behavior.StateSnapshot) {
	s.statusHub.BroadcastJSON(snap)
}

// BroadcastFrame pushes a rendered LED frame to every display client as
// packed RGB bytes.
func (s *Server) BroadcastFrame(f display.Frame) {
	s.displayHub.BroadcastBinary(f.Bytes())
}

// RecordEvent appends an event to the feed and broadcasts it live.
func (s *Server) RecordEvent(ev behavior.Event) {
	entry := EventEntry{
		Time:     ev.Timestamp.Format("15:04:05"),
		Behavior: ev.Behavior,
		Metadata: ev.Metadata,
	}

	s.eventsMu.Lock()
	s.events = append(s.events, entry)
	if len(s.events) > 200 {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	s.eventHub.BroadcastJSON(entry)
}

// ClientCount returns the number of connected status clients.
func (s *Server) ClientCount() int {
	return s.statusHub.ClientCount()
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}
