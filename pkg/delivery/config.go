package delivery

import (
	"fmt"
	"time"
)

// Defaults for the delivery client.
const (
	DefaultReconnectInterval = 5 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultOfflinePath       = "offline_queue.jsonl"
)

// Config holds delivery client settings.
type Config struct {
	// ServerURL is the websocket endpoint events are delivered to.
	ServerURL string
	// HeartbeatURL is the HTTP endpoint for liveness reports. Empty
	// disables heartbeats.
	HeartbeatURL string
	// SensorID identifies this device in events and heartbeats.
	SensorID string
	// Location is an optional free-form placement tag for heartbeats.
	Location string
	// OfflinePath is the JSONL file undelivered events persist to.
	OfflinePath string

	ReconnectInterval time.Duration
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	HandshakeTimeout  time.Duration
}

// DefaultConfig returns a config with production timings. ServerURL and
// SensorID must still be set.
func DefaultConfig() Config {
	return Config{
		OfflinePath:       DefaultOfflinePath,
		ReconnectInterval: DefaultReconnectInterval,
		HeartbeatInterval: DefaultHeartbeatInterval,
		WriteTimeout:      DefaultWriteTimeout,
		HandshakeTimeout:  DefaultHandshakeTimeout,
	}
}

// Validate checks required fields and timings.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("delivery: server URL is required")
	}
	if c.SensorID == "" {
		return fmt.Errorf("delivery: sensor ID is required")
	}
	if c.OfflinePath == "" {
		return fmt.Errorf("delivery: offline path is required")
	}
	if c.ReconnectInterval <= 0 {
		return fmt.Errorf("delivery: reconnect interval must be positive")
	}
	if c.HeartbeatURL != "" && c.HeartbeatInterval <= 0 {
		return fmt.Errorf("delivery: heartbeat interval must be positive")
	}
	return nil
}

// WithServer sets the websocket endpoint.
func (c Config) WithServer(url string) Config {
	c.ServerURL = url
	return c
}

// WithSensorID sets the device identity.
func (c Config) WithSensorID(id string) Config {
	c.SensorID = id
	return c
}

// WithOfflinePath sets the offline queue location.
func (c Config) WithOfflinePath(path string) Config {
	c.OfflinePath = path
	return c
}
