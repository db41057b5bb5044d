package behavior

import (
	"testing"
	"time"

	"github.com/cavg-team/go-wearable/pkg/sensor"
)

func TestBrightnessBandTransitions(t *testing.T) {
	var changes []BrightnessChange
	d := NewBrightnessDetector(sensor.NewCache(), DefaultBrightnessConfig(), func(c BrightnessChange) {
		changes = append(changes, c)
	}, nil)

	now := time.Now().Add(3 * time.Second) // past the initial dwell
	feed := func(level float64, n int) {
		for i := 0; i < n; i++ {
			now = now.Add(500 * time.Millisecond)
			c, hasChange, _, _ := d.observe(level, now)
			if hasChange {
				changes = append(changes, c)
			}
		}
	}

	feed(20, 6) // well under the dark threshold
	if d.State() != BrightnessDark {
		t.Fatalf("state = %v, want dark", d.State())
	}
	feed(230, 10) // smoothed level must climb past bright
	if d.State() != BrightnessBright {
		t.Fatalf("state = %v, want bright", d.State())
	}

	if len(changes) < 2 {
		t.Fatalf("expected at least 2 transitions, got %d", len(changes))
	}
	if changes[0].To != BrightnessDark {
		t.Errorf("first transition to %v, want dark", changes[0].To)
	}
}

func TestBrightnessDwellLimitsFlapping(t *testing.T) {
	count := 0
	d := NewBrightnessDetector(sensor.NewCache(), DefaultBrightnessConfig(), func(BrightnessChange) {
		count++
	}, nil)

	// Oscillate hard between dark and bright every sample for 10s at
	// 2 Hz. The 2s dwell allows at most one transition per 2s.
	now := time.Now().Add(3 * time.Second)
	for i := 0; i < 20; i++ {
		now = now.Add(500 * time.Millisecond)
		level := 10.0
		if i%2 == 1 {
			level = 240
		}
		if _, hasChange, _, _ := d.observe(level, now); hasChange {
			count++
		}
	}

	if count > 5 {
		t.Fatalf("got %d transitions in 10s, dwell should cap at 5", count)
	}
}

func TestBrightnessRapidChangeCallback(t *testing.T) {
	var deltas []BrightnessDelta
	d := NewBrightnessDetector(sensor.NewCache(), DefaultBrightnessConfig(), nil, func(dl BrightnessDelta) {
		deltas = append(deltas, dl)
	})

	now := time.Now()
	d.observe(100, now)
	now = now.Add(500 * time.Millisecond)
	// A light switches on: +80 in one sample.
	_, _, dl, hasDelta := d.observe(180, now)
	if !hasDelta {
		t.Fatal("expected a rapid-change delta")
	}
	if dl.Change != 80 {
		t.Errorf("change = %v, want 80", dl.Change)
	}
	deltas = append(deltas, dl)

	// Another jump inside the 5s change cooldown is suppressed.
	now = now.Add(500 * time.Millisecond)
	if _, _, _, hasDelta := d.observe(100, now); hasDelta {
		t.Error("expected delta suppressed inside cooldown")
	}
}

func TestBrightnessSmoothingRejectsSpikes(t *testing.T) {
	count := 0
	d := NewBrightnessDetector(sensor.NewCache(), DefaultBrightnessConfig(), func(BrightnessChange) {
		count++
	}, nil)

	now := time.Now().Add(3 * time.Second)
	// Steady normal light with a single dark camera glitch.
	levels := []float64{120, 120, 120, 5, 120, 120, 120, 120}
	for _, l := range levels {
		now = now.Add(500 * time.Millisecond)
		if _, hasChange, _, _ := d.observe(l, now); hasChange {
			count++
		}
	}

	if count != 0 {
		t.Fatalf("expected smoothing to absorb a one-sample glitch, got %d transitions", count)
	}
}
