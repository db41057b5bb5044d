// Package protocol defines the WebSocket message types for device-server
// communication. This package is shared with the virtual-production event
// consumer.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cavg-team/go-wearable/pkg/behavior"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Device → Server messages
	TypeEvent     MessageType = "sensor_event" // Behavior event
	TypeHeartbeat MessageType = "heartbeat"    // Liveness report

	// Server → Device messages
	TypeAck         MessageType = "ack"         // Event acknowledgement
	TypeRecalibrate MessageType = "recalibrate" // Trigger recalibration

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Device → Server Message Types
// =============================================================================

// EventData is a behavior event on the wire. Timestamp is ISO-8601 UTC.
type EventData struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	SensorID  string         `json:"sensor_id"`
	Behavior  string         `json:"behavior"`
	Metadata  map[string]any `json:"metadata"`
}

// NewEventData converts a canonical behavior event to its wire form.
func NewEventData(ev behavior.Event) EventData {
	return EventData{
		ID:        ev.ID,
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339Nano),
		SensorID:  ev.SensorID,
		Behavior:  ev.Behavior,
		Metadata:  ev.Metadata,
	}
}

// HeartbeatData is the periodic liveness report.
type HeartbeatData struct {
	SensorID      string  `json:"sensor_id"`
	Location      string  `json:"location,omitempty"`
	Timestamp     string  `json:"timestamp"`
	Status        string  `json:"status"` // "online" or "degraded"
	UptimeSeconds float64 `json:"uptime"`
}

// =============================================================================
// Server → Device Message Types
// =============================================================================

// AckData acknowledges a delivered event by ID.
type AckData struct {
	EventID string `json:"event_id"`
	OK      bool   `json:"ok"`
	Reason  string `json:"reason,omitempty"`
}

// RecalibrateCommand requests a stationary-frame recalibration.
type RecalibrateCommand struct {
	Reason string `json:"reason,omitempty"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
