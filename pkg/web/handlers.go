package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/cavg-team/go-wearable/pkg/hub"
)

// handleStatus returns the full device status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	report := s.statusFn()
	report.Clients = s.statusHub.ClientCount()
	return c.JSON(report)
}

// handleGetEvents returns the recent event feed, newest last
func (s *Server) handleGetEvents(c *fiber.Ctx) error {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return c.JSON(s.events)
}

// RecalibrateRequest is the request body for manual recalibration
type RecalibrateRequest struct {
	Reason string `json:"reason"`
}

// handleRecalibrate re-runs the stationary calibration on demand
func (s *Server) handleRecalibrate(c *fiber.Ctx) error {
	if s.onRecalibrate == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "recalibration not configured",
		})
	}

	var req RecalibrateRequest
	if err := c.BodyParser(&req); err != nil {
		req.Reason = ""
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.onRecalibrate(ctx, req.Reason); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"recalibrated": true,
		"reason":       req.Reason,
	})
}

// handleStatusWS streams state snapshots to the dashboard
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	client.Run()
}

// handleEventsWS streams the live event feed. Recent history is sent
// first so a fresh dashboard is not empty.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	s.eventsMu.RLock()
	for _, entry := range s.events {
		c.WriteJSON(entry)
	}
	s.eventsMu.RUnlock()

	client := hub.NewClient(s.eventHub, c)
	client.Run()
}

// handleDisplayWS streams rendered LED frames as packed RGB bytes
func (s *Server) handleDisplayWS(c *websocket.Conn) {
	client := hub.NewClient(s.displayHub, c)
	client.Run()
}
