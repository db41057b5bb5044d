// Package config provides configuration helpers for go-wearable commands.
package config

import (
	"os"
)

// Default device configuration.
const (
	DefaultDeviceID    = "wearable_001"
	DefaultServerURL   = "ws://localhost:8001/vp/sensor-events"
	DefaultHeartbeatURL = "http://localhost:8000/api/heartbeat"
)

// DeviceID returns the device identifier from the DEVICE_ID env var.
// Falls back to the default if not set.
func DeviceID() string {
	if id := os.Getenv("DEVICE_ID"); id != "" {
		return id
	}
	return DefaultDeviceID
}

// ServerURL returns the event stream URL from the SERVER_URL env var.
// Falls back to the provided default if not set.
func ServerURL(defaultURL string) string {
	if url := os.Getenv("SERVER_URL"); url != "" {
		return url
	}
	if defaultURL != "" {
		return defaultURL
	}
	return DefaultServerURL
}

// HeartbeatURL returns the heartbeat endpoint from the HEARTBEAT_URL env var.
func HeartbeatURL() string {
	if url := os.Getenv("HEARTBEAT_URL"); url != "" {
		return url
	}
	return DefaultHeartbeatURL
}

// Location returns the deployment location label from the LOCATION env var.
func Location() string {
	if loc := os.Getenv("LOCATION"); loc != "" {
		return loc
	}
	return "unspecified"
}
