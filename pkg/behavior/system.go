package behavior

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/calibration"
	"github.com/cavg-team/go-wearable/pkg/sensor"
)

// Event is the canonical behavior event produced by the orchestrator.
// Events are immutable once created; the ID makes delivery retries safe
// to deduplicate downstream.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	SensorID  string         `json:"sensor_id"`
	Behavior  string         `json:"behavior"`
	Metadata  map[string]any `json:"metadata"`
}

// Publisher receives events drained from the queue. Implementations own
// their delivery guarantees; Publish must not block indefinitely.
type Publisher interface {
	Publish(Event)
}

// SystemConfig configures the orchestrator.
type SystemConfig struct {
	SensorID  string
	QueueSize int

	Movement   MovementConfig
	Fall       FallConfig
	Turn       TurnConfig
	Shout      ShoutConfig
	Brightness BrightnessConfig
	Compass    CompassConfig
}

// DefaultSystemConfig returns the full default detector configuration.
func DefaultSystemConfig(sensorID string) SystemConfig {
	return SystemConfig{
		SensorID:   sensorID,
		QueueSize:  256,
		Movement:   DefaultMovementConfig(),
		Fall:       DefaultFallConfig(),
		Turn:       DefaultTurnConfig(),
		Shout:      DefaultShoutConfig(),
		Brightness: DefaultBrightnessConfig(),
		Compass:    DefaultCompassConfig(),
	}
}

// Validate checks every detector config.
func (c SystemConfig) Validate() error {
	for _, v := range []interface{ Validate() error }{
		c.Movement, c.Fall, c.Turn, c.Shout, c.Brightness, c.Compass,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Stats are the orchestrator's cumulative counters.
type Stats struct {
	EventsDetected  uint64 `json:"events_detected"`
	EventsPublished uint64 `json:"events_published"`
	EventsDropped   uint64 `json:"events_dropped"`
}

// StateSnapshot is the detector state bundle the display and dashboard
// render from.
type StateSnapshot struct {
	Movement      MovementState
	Fall          FallState
	Turning       bool
	TurnDirection string // "left" or "right" while a turn is in progress
	Shouting      bool
	Brightness    BrightnessState
	Heading       float64
}

// SystemStatus aggregates everything a status endpoint reports.
type SystemStatus struct {
	Running       bool             `json:"running"`
	UptimeSeconds float64          `json:"uptime_seconds"`
	Stats         Stats            `json:"statistics"`
	QueueLength   int              `json:"event_queue_size"`
	Calibrated    bool             `json:"calibrated"`
	Degraded      bool             `json:"calibration_degraded"`
	Movement      MovementStatus   `json:"movement"`
	Fall          FallStatus       `json:"fall"`
	Turn          TurnStatus       `json:"turn"`
	Shout         ShoutStatus      `json:"shout"`
	Brightness    BrightnessStatus `json:"brightness"`
	Compass       CompassStatus    `json:"compass"`
}

// System wires the detectors to a bounded event queue and drains it to a
// publisher. One consumer goroutine preserves event order end to end.
type System struct {
	cfg SystemConfig
	cal *calibration.Calibrator

	movement   *MovementDetector
	fall       *FallDetector
	turn       *TurnDetector
	shout      *ShoutDetector
	brightness *BrightnessDetector
	compass    *CompassDetector

	queue     chan Event
	publisher Publisher

	detected  atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64

	startedAt time.Time
	running   atomic.Bool

	recalMu sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSystem builds the orchestrator and its detectors. publisher may be
// nil, in which case drained events are only counted.
func NewSystem(cache *sensor.Cache, cal *calibration.Calibrator, cfg SystemConfig, publisher Publisher) *System {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	s := &System{
		cfg:       cfg,
		cal:       cal,
		queue:     make(chan Event, cfg.QueueSize),
		publisher: publisher,
		stop:      make(chan struct{}),
	}

	s.movement = NewMovementDetector(cache, cal, cfg.Movement, s.onMovement)
	s.fall = NewFallDetector(cache, cal, cfg.Fall, s.onFall)
	s.turn = NewTurnDetector(cache, cal, cfg.Turn, s.onTurn)
	s.shout = NewShoutDetector(cache, cfg.Shout, s.onShout)
	s.brightness = NewBrightnessDetector(cache, cfg.Brightness, s.onBrightness, nil)
	s.compass = NewCompassDetector(cache, cfg.Compass, nil)
	return s
}

// Start launches all detectors and the queue consumer.
func (s *System) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.startedAt = time.Now()

	s.movement.Start()
	s.fall.Start()
	s.turn.Start()
	s.shout.Start()
	s.brightness.Start()
	s.compass.Start()

	s.wg.Add(1)
	go s.consume()

	log.Info("behavior system started", "sensor_id", s.cfg.SensorID)
}

// Stop terminates the detectors and the consumer. Queued events that were
// not drained yet are abandoned.
func (s *System) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.movement.Stop()
	s.fall.Stop()
	s.turn.Stop()
	s.shout.Stop()
	s.brightness.Stop()
	s.compass.Stop()

	close(s.stop)
	s.wg.Wait()
	log.Info("behavior system stopped")
}

func (s *System) consume() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case ev := <-s.queue:
			if s.publisher != nil {
				s.publisher.Publish(ev)
			}
			s.published.Add(1)
			log.Debug("event processed", "behavior", ev.Behavior, "id", ev.ID)
		}
	}
}

// newEvent stamps a canonical event.
func (s *System) newEvent(behavior string, metadata map[string]any) Event {
	s.detected.Add(1)
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		SensorID:  s.cfg.SensorID,
		Behavior:  behavior,
		Metadata:  metadata,
	}
}

// enqueue pushes without blocking a detector loop. A full queue drops the
// newest event and counts it.
func (s *System) enqueue(ev Event) {
	select {
	case s.queue <- ev:
	default:
		s.dropped.Add(1)
		log.Warn("event queue full, dropping event", "behavior", ev.Behavior)
	}
}

func (s *System) onMovement(c MovementChange) {
	s.enqueue(s.newEvent(c.To.String(), map[string]any{
		"previous_state": c.From.String(),
		"activity_level": c.ActivityLevel,
		"step_count":     c.StepCount,
	}))
}

func (s *System) onFall(e FallEvent) {
	s.enqueue(s.newEvent("fall", map[string]any{
		"max_acceleration":   e.MaxAcceleration,
		"orientation_change": e.OrientationChange,
		"severity":           e.Severity,
	}))
}

func (s *System) onTurn(e TurnEvent) {
	s.enqueue(s.newEvent("turn", map[string]any{
		"rotation_degrees": e.Rotation,
		"duration_seconds": e.Duration.Seconds(),
		"direction":        e.Direction,
	}))
}

func (s *System) onShout(e ShoutEvent) {
	intensity := "moderate"
	if e.VolumeDB > 80 {
		intensity = "loud"
	}
	s.enqueue(s.newEvent("shout", map[string]any{
		"volume_db":        e.VolumeDB,
		"duration_seconds": e.Duration.Seconds(),
		"intensity":        intensity,
	}))
}

func (s *System) onBrightness(c BrightnessChange) {
	// Returning to normal light is not an event, only leaving it.
	if c.To == BrightnessNormal {
		return
	}
	s.enqueue(s.newEvent(c.To.String(), map[string]any{
		"previous_state":   c.From.String(),
		"brightness_level": c.Level,
	}))
}

// Recalibrate re-samples the stationary frame and clears the transient
// accumulators of the gravity- and heading-dependent detectors. Queued
// events are untouched.
func (s *System) Recalibrate(ctx context.Context) error {
	s.recalMu.Lock()
	defer s.recalMu.Unlock()

	log.Info("recalibrating all detectors")
	if _, err := s.cal.Calibrate(ctx); err != nil {
		return err
	}
	s.movement.Recalibrate()
	s.turn.Reset()
	s.compass.Recalibrate()
	log.Info("recalibration complete")
	return nil
}

// Snapshot returns the current detector states for rendering.
func (s *System) Snapshot() StateSnapshot {
	turn := s.turn.Status()
	snap := StateSnapshot{
		Movement:   s.movement.State(),
		Fall:       s.fall.State(),
		Turning:    turn.Turning,
		Shouting:   s.shout.Shouting(),
		Brightness: s.brightness.State(),
		Heading:    s.compass.Heading(),
	}
	if turn.Turning {
		snap.TurnDirection = "right"
		if turn.RotationProgress < 0 {
			snap.TurnDirection = "left"
		}
	}
	return snap
}

// Stats returns the cumulative event counters.
func (s *System) Stats() Stats {
	return Stats{
		EventsDetected:  s.detected.Load(),
		EventsPublished: s.published.Load(),
		EventsDropped:   s.dropped.Load(),
	}
}

// Status aggregates detector snapshots and counters.
func (s *System) Status() SystemStatus {
	frame, calibrated := s.cal.Frame()
	st := SystemStatus{
		Running:     s.running.Load(),
		Stats:       s.Stats(),
		QueueLength: len(s.queue),
		Calibrated:  calibrated,
		Degraded:    calibrated && frame.Degraded,
		Movement:    s.movement.Status(),
		Fall:        s.fall.Status(),
		Turn:        s.turn.Status(),
		Shout:       s.shout.Status(),
		Brightness:  s.brightness.Status(),
		Compass:     s.compass.Status(),
	}
	if !s.startedAt.IsZero() {
		st.UptimeSeconds = time.Since(s.startedAt).Seconds()
	}
	return st
}
