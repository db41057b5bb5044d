package wearable

import (
	"errors"
	"os"

	"github.com/cavg-team/go-wearable/internal/config"
)

// Config is the top-level application configuration.
type Config struct {
	SensorID string
	Location string

	// Event delivery
	ServerURL    string
	HeartbeatURL string
	OfflinePath  string

	// Dashboard
	DashboardPort string

	// Mock replaces hardware sources with synthetic ones. Useful on dev
	// machines without the sensor hat.
	Mock bool

	// SnapshotRate is how often (Hz) state snapshots and LED frames are
	// pushed to the dashboard and display.
	SnapshotRate int

	Debug bool
}

// DefaultConfig returns the standard application configuration.
func DefaultConfig() Config {
	return Config{
		SensorID:      config.DefaultDeviceID,
		ServerURL:     config.DefaultServerURL,
		HeartbeatURL:  config.DefaultHeartbeatURL,
		OfflinePath:   "data/offline_queue.jsonl",
		DashboardPort: "8088",
		SnapshotRate:  4,
	}
}

// LoadEnvConfig applies environment variable overrides.
func (c *Config) LoadEnvConfig() {
	c.SensorID = firstNonEmpty(os.Getenv("DEVICE_ID"), c.SensorID)
	c.ServerURL = firstNonEmpty(os.Getenv("SERVER_URL"), c.ServerURL)
	c.HeartbeatURL = firstNonEmpty(os.Getenv("HEARTBEAT_URL"), c.HeartbeatURL)
	c.Location = firstNonEmpty(os.Getenv("LOCATION"), c.Location)
	c.OfflinePath = firstNonEmpty(os.Getenv("OFFLINE_QUEUE_PATH"), c.OfflinePath)
	c.DashboardPort = firstNonEmpty(os.Getenv("DASHBOARD_PORT"), c.DashboardPort)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SensorID == "" {
		return errors.New("sensor id is required")
	}
	if c.ServerURL == "" {
		return errors.New("server url is required")
	}
	if c.SnapshotRate <= 0 {
		return errors.New("snapshot rate must be positive")
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
