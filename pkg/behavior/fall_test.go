package behavior

import (
	"testing"
	"time"

	"github.com/cavg-team/go-wearable/pkg/sensor"
)

func TestFallFreeFallThenImpact(t *testing.T) {
	cal := calibratedWith(t, sensor.Vec3{Z: 1}, sensor.Orientation{})
	var events []FallEvent
	d := NewFallDetector(sensor.NewCache(), cal, DefaultFallConfig(), func(e FallEvent) {
		events = append(events, e)
	})

	now := time.Now()
	upright := sensor.Orientation{}

	// Free fall for 200ms, then a hard impact.
	for i := 0; i < 2; i++ {
		now = now.Add(100 * time.Millisecond)
		if e, fire := d.observe(sensor.Vec3{Z: 0.1}, sensor.Vec3{}, upright, true, now); fire {
			events = append(events, e)
		}
	}
	now = now.Add(100 * time.Millisecond)
	if e, fire := d.observe(sensor.Vec3{Z: 2.8}, sensor.Vec3{}, upright, true, now); fire {
		events = append(events, e)
	}

	if len(events) != 1 {
		t.Fatalf("expected exactly one fall event, got %d", len(events))
	}
	if events[0].MaxAcceleration < 2.8 {
		t.Errorf("max acceleration = %v, want >= 2.8", events[0].MaxAcceleration)
	}
	if events[0].Severity != "moderate" {
		t.Errorf("severity = %q, want moderate", events[0].Severity)
	}
	if d.State() != FallFallen {
		t.Errorf("state = %v, want fallen", d.State())
	}
}

func TestFallDuplicateSuppressedInsideCooldown(t *testing.T) {
	cal := calibratedWith(t, sensor.Vec3{Z: 1}, sensor.Orientation{})
	count := 0
	d := NewFallDetector(sensor.NewCache(), cal, DefaultFallConfig(), func(FallEvent) { count++ })

	now := time.Now()
	upright := sensor.Orientation{}
	fall := func() {
		for i := 0; i < 2; i++ {
			now = now.Add(100 * time.Millisecond)
			if _, fire := d.observe(sensor.Vec3{Z: 0.1}, sensor.Vec3{}, upright, true, now); fire {
				count++
			}
		}
		now = now.Add(100 * time.Millisecond)
		if _, fire := d.observe(sensor.Vec3{Z: 2.5}, sensor.Vec3{}, upright, true, now); fire {
			count++
		}
	}

	fall()
	// Second fall signature 600ms later, inside the 2s window. The state
	// machine times out back to normal after 3s, so force the second
	// pattern before that.
	fall()

	if count != 1 {
		t.Fatalf("expected one event within the 2s window, got %d", count)
	}
}

func TestFallImpactWithoutFreeFallIgnored(t *testing.T) {
	cal := calibratedWith(t, sensor.Vec3{Z: 1}, sensor.Orientation{})
	count := 0
	d := NewFallDetector(sensor.NewCache(), cal, DefaultFallConfig(), func(FallEvent) { count++ })

	now := time.Now()
	// Hard impacts with no preceding free fall (jumping, bumping).
	for i := 0; i < 5; i++ {
		now = now.Add(100 * time.Millisecond)
		if _, fire := d.observe(sensor.Vec3{Z: 2.5}, sensor.Vec3{}, sensor.Orientation{}, true, now); fire {
			count++
		}
	}
	if count != 0 {
		t.Fatalf("expected no fall events without free fall, got %d", count)
	}
}

func TestFallOrientationPath(t *testing.T) {
	cal := calibratedWith(t, sensor.Vec3{Z: 1}, sensor.Orientation{})
	var events []FallEvent
	d := NewFallDetector(sensor.NewCache(), cal, DefaultFallConfig(), func(e FallEvent) {
		events = append(events, e)
	})

	now := time.Now()
	// Elevated acceleration first to arm the confirmatory check, then a
	// large tip-over without a clean free-fall signature.
	now = now.Add(100 * time.Millisecond)
	d.observe(sensor.Vec3{Z: 2.2}, sensor.Vec3{}, sensor.Orientation{}, true, now)
	now = now.Add(100 * time.Millisecond)
	tipped := sensor.Orientation{Pitch: 80, Roll: 10}
	if e, fire := d.observe(sensor.Vec3{Z: 1}, sensor.Vec3{}, tipped, true, now); fire {
		events = append(events, e)
	}

	if len(events) != 1 {
		t.Fatalf("expected one fall event via orientation path, got %d", len(events))
	}
	if events[0].OrientationChange <= 45 {
		t.Errorf("orientation change = %v, want > 45", events[0].OrientationChange)
	}
}

func TestFallRecoverySequence(t *testing.T) {
	cfg := DefaultFallConfig()
	cfg.RecoveryTimeout = time.Hour // keep the timeout out of this test
	cal := calibratedWith(t, sensor.Vec3{Z: 1}, sensor.Orientation{})
	d := NewFallDetector(sensor.NewCache(), cal, cfg, nil)

	now := time.Now()
	tipped := sensor.Orientation{Pitch: 60}

	// Fall.
	now = now.Add(100 * time.Millisecond)
	d.observe(sensor.Vec3{Z: 0.1}, sensor.Vec3{}, tipped, true, now)
	now = now.Add(100 * time.Millisecond)
	d.observe(sensor.Vec3{Z: 2.5}, sensor.Vec3{}, tipped, true, now)
	if d.State() != FallFallen {
		t.Fatalf("state = %v, want fallen", d.State())
	}

	// Vigorous rotation while still tipped: recovering.
	for i := 0; i < 5; i++ {
		now = now.Add(100 * time.Millisecond)
		d.observe(sensor.Vec3{Z: 1}, sensor.Vec3{X: 15, Y: 10}, tipped, true, now)
	}
	if d.State() != FallRecovering {
		t.Fatalf("state = %v, want recovering", d.State())
	}

	// Back upright: normal.
	now = now.Add(100 * time.Millisecond)
	d.observe(sensor.Vec3{Z: 1}, sensor.Vec3{}, sensor.Orientation{Pitch: 5}, true, now)
	if d.State() != FallNormal {
		t.Fatalf("state = %v, want normal", d.State())
	}
}

func TestFallRecoveryTimeout(t *testing.T) {
	cal := calibratedWith(t, sensor.Vec3{Z: 1}, sensor.Orientation{})
	d := NewFallDetector(sensor.NewCache(), cal, DefaultFallConfig(), nil)

	now := time.Now()
	tipped := sensor.Orientation{Pitch: 60}
	now = now.Add(100 * time.Millisecond)
	d.observe(sensor.Vec3{Z: 0.1}, sensor.Vec3{}, tipped, true, now)
	now = now.Add(100 * time.Millisecond)
	d.observe(sensor.Vec3{Z: 2.5}, sensor.Vec3{}, tipped, true, now)
	if d.State() != FallFallen {
		t.Fatalf("state = %v, want fallen", d.State())
	}

	// Still tipped, no recovery movement, past the 3s timeout.
	now = now.Add(4 * time.Second)
	d.observe(sensor.Vec3{Z: 1}, sensor.Vec3{}, tipped, true, now)
	if d.State() != FallNormal {
		t.Fatalf("state = %v, want normal after timeout", d.State())
	}
}
