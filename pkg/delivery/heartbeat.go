package delivery

import (
	"encoding/json"
	"time"

	"github.com/cavg-team/go-wearable/internal/httpc"
	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/protocol"
)

// heartbeatLoop posts a liveness report on a fixed timer, independent of
// the websocket link so the server can tell "device down" apart from
// "event link down".
func (c *Client) heartbeatLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	// First beat immediately so the server sees the device at startup.
	c.sendHeartbeat()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sendHeartbeat()
		}
	}
}

func (c *Client) sendHeartbeat() {
	status := "online"
	if !c.connected.Load() {
		status = "degraded"
	}

	hb := protocol.HeartbeatData{
		SensorID:      c.cfg.SensorID,
		Location:      c.cfg.Location,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Status:        status,
		UptimeSeconds: time.Since(c.startedAt).Seconds(),
	}

	body, err := json.Marshal(hb)
	if err != nil {
		log.Error("heartbeat marshal failed", "err", err)
		return
	}

	resp, err := httpc.Post(c.cfg.HeartbeatURL, "application/json", body)
	if err != nil {
		log.Warn("heartbeat failed", "err", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Warn("heartbeat rejected", "status", resp.StatusCode)
	}
}
