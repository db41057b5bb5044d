package behavior

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cavg-team/go-wearable/pkg/calibration"
	"github.com/cavg-team/go-wearable/pkg/sensor"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *capturePublisher) Publish(ev Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *capturePublisher) snapshot() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func newTestSystem(t *testing.T, pub Publisher) *System {
	t.Helper()
	cache := sensor.NewCache()
	cache.SetAccel(sensor.Vec3{Z: 1}, time.Now())
	cal := calibration.New(cache, calibration.Config{Samples: 1, SampleInterval: time.Millisecond})
	if _, err := cal.Calibrate(context.Background()); err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	return NewSystem(cache, cal, DefaultSystemConfig("wearable_test"), pub)
}

func TestSystemForwardsEventsInOrder(t *testing.T) {
	pub := &capturePublisher{}
	s := newTestSystem(t, pub)
	s.Start()
	defer s.Stop()

	now := time.Now()
	s.onFall(FallEvent{MaxAcceleration: 2.6, OrientationChange: 50, Severity: "moderate", At: now})
	s.onTurn(TurnEvent{Rotation: -170, Duration: time.Second, Direction: "left", At: now})
	s.onShout(ShoutEvent{VolumeDB: 85, Duration: 600 * time.Millisecond, At: now})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(pub.snapshot()) < 3 {
		time.Sleep(5 * time.Millisecond)
	}

	got := pub.snapshot()
	if len(got) != 3 {
		t.Fatalf("expected 3 published events, got %d", len(got))
	}
	wantBehaviors := []string{"fall", "turn", "shout"}
	for i, ev := range got {
		if ev.Behavior != wantBehaviors[i] {
			t.Errorf("event %d behavior = %q, want %q", i, ev.Behavior, wantBehaviors[i])
		}
		if ev.ID == "" {
			t.Errorf("event %d missing id", i)
		}
		if ev.SensorID != "wearable_test" {
			t.Errorf("event %d sensor_id = %q", i, ev.SensorID)
		}
	}

	stats := s.Stats()
	if stats.EventsDetected != 3 || stats.EventsPublished != 3 {
		t.Errorf("stats = %+v, want 3 detected and 3 published", stats)
	}
}

func TestSystemEventMetadata(t *testing.T) {
	pub := &capturePublisher{}
	s := newTestSystem(t, pub)

	s.onTurn(TurnEvent{Rotation: -170, Duration: 1200 * time.Millisecond, Direction: "left"})

	ev := <-s.queue
	if ev.Behavior != "turn" {
		t.Fatalf("behavior = %q, want turn", ev.Behavior)
	}
	if ev.Metadata["direction"] != "left" {
		t.Errorf("direction = %v, want left", ev.Metadata["direction"])
	}
	if ev.Metadata["rotation_degrees"] != -170.0 {
		t.Errorf("rotation = %v, want -170", ev.Metadata["rotation_degrees"])
	}
	if ev.Metadata["duration_seconds"] != 1.2 {
		t.Errorf("duration = %v, want 1.2", ev.Metadata["duration_seconds"])
	}
}

func TestSystemBrightnessNormalNotAnEvent(t *testing.T) {
	s := newTestSystem(t, nil)

	s.onBrightness(BrightnessChange{From: BrightnessDark, To: BrightnessNormal, Level: 120})
	if len(s.queue) != 0 {
		t.Fatal("return to normal light must not enqueue an event")
	}

	s.onBrightness(BrightnessChange{From: BrightnessNormal, To: BrightnessDark, Level: 20})
	if len(s.queue) != 1 {
		t.Fatal("transition to dark must enqueue an event")
	}
	ev := <-s.queue
	if ev.Behavior != "dark" {
		t.Errorf("behavior = %q, want dark", ev.Behavior)
	}
}

func TestSystemFullQueueDropsAndCounts(t *testing.T) {
	cache := sensor.NewCache()
	cal := calibration.New(cache, calibration.Config{Samples: 1, SampleInterval: time.Millisecond})
	cfg := DefaultSystemConfig("wearable_test")
	cfg.QueueSize = 2
	s := NewSystem(cache, cal, cfg, nil)

	// Consumer not started: the queue fills at capacity 2.
	for i := 0; i < 5; i++ {
		s.onShout(ShoutEvent{VolumeDB: 85})
	}

	if got := s.Stats().EventsDropped; got != 3 {
		t.Errorf("dropped = %d, want 3", got)
	}
	if got := s.Stats().EventsDetected; got != 5 {
		t.Errorf("detected = %d, want 5", got)
	}
}

func TestSystemRecalibrateKeepsGravityUnit(t *testing.T) {
	cache := sensor.NewCache()
	cache.SetAccel(sensor.Vec3{X: 0.3, Z: 0.95}, time.Now())
	cal := calibration.New(cache, calibration.Config{Samples: 2, SampleInterval: time.Millisecond})
	s := NewSystem(cache, cal, DefaultSystemConfig("wearable_test"), nil)

	for i := 0; i < 3; i++ {
		cache.SetAccel(sensor.Vec3{X: 0.3, Z: 0.95}, time.Now())
		if err := s.Recalibrate(context.Background()); err != nil {
			t.Fatalf("Recalibrate: %v", err)
		}
		frame, ok := cal.Frame()
		if !ok {
			t.Fatal("expected calibration frame")
		}
		if n := frame.Gravity.Norm(); n < 0.999 || n > 1.001 {
			t.Fatalf("gravity magnitude = %v after recalibration %d, want 1", n, i+1)
		}
	}
}

func TestSystemStatusAggregates(t *testing.T) {
	s := newTestSystem(t, nil)
	s.Start()
	defer s.Stop()

	st := s.Status()
	if !st.Running {
		t.Error("status should report running")
	}
	if !st.Calibrated {
		t.Error("status should report calibrated")
	}
	if st.Movement.State != "stop" {
		t.Errorf("movement state = %q, want stop", st.Movement.State)
	}
	if st.Fall.State != "normal" {
		t.Errorf("fall state = %q, want normal", st.Fall.State)
	}

	snap := s.Snapshot()
	if snap.Movement != MovementStop || snap.Fall != FallNormal {
		t.Errorf("snapshot = %+v, want resting states", snap)
	}
}

func TestSystemConfigValidate(t *testing.T) {
	cfg := DefaultSystemConfig("x")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg.Turn.StopRate = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected turn config error to surface")
	}
}
