package behavior

import (
	"math"
	"testing"
	"time"

	"github.com/cavg-team/go-wearable/pkg/sensor"
)

func TestCircularMeanWrapsSeam(t *testing.T) {
	tests := []struct {
		name     string
		headings []float64
		want     float64
	}{
		{"around north", []float64{10, 350, 5}, 1.67},
		{"plain average", []float64{80, 90, 100}, 90},
		{"south", []float64{170, 190}, 180},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := circularMean(tt.headings)
			diff := angularDiff(got, tt.want)
			if diff > 1 {
				t.Errorf("circularMean(%v) = %v, want ~%v", tt.headings, got, tt.want)
			}
		})
	}
}

func TestCompassSmoothedHeadingNearSeam(t *testing.T) {
	d := NewCompassDetector(sensor.NewCache(), DefaultCompassConfig(), nil)

	now := time.Now()
	for _, h := range []float64{10, 350, 5} {
		now = now.Add(100 * time.Millisecond)
		d.observe(h, now)
	}

	got := d.Heading()
	// The mean of headings straddling north must land near 0/360, not
	// near the arithmetic mean of ~122.
	if !(got < 15 || got > 345) {
		t.Fatalf("smoothed heading = %v, want near 0/360", got)
	}
}

func TestCompassSignificantChange(t *testing.T) {
	var updates []HeadingUpdate
	d := NewCompassDetector(sensor.NewCache(), DefaultCompassConfig(), func(u HeadingUpdate) {
		updates = append(updates, u)
	})

	now := time.Now()
	for i := 0; i < 5; i++ {
		now = now.Add(100 * time.Millisecond)
		if u, fire := d.observe(90, now); fire {
			updates = append(updates, u)
		}
	}

	if len(updates) != 5 {
		t.Fatalf("expected continuous updates every sample, got %d", len(updates))
	}
	if !updates[0].Significant {
		t.Error("first settled heading 90 should be a significant change from 0")
	}
	for _, u := range updates[1:] {
		if u.Significant && angularDiff(u.Heading, updates[0].Heading) < DefaultCompassConfig().ChangeThreshold {
			t.Errorf("unexpected significant flag at heading %v", u.Heading)
		}
	}
}

func TestCompassRecalibrateClearsWindow(t *testing.T) {
	d := NewCompassDetector(sensor.NewCache(), DefaultCompassConfig(), nil)

	now := time.Now()
	for i := 0; i < 5; i++ {
		now = now.Add(100 * time.Millisecond)
		d.observe(270, now)
	}
	if math.Abs(d.Heading()-270) > 1 {
		t.Fatalf("heading = %v, want 270", d.Heading())
	}

	d.Recalibrate()
	now = now.Add(100 * time.Millisecond)
	d.observe(90, now)
	if math.Abs(d.Heading()-90) > 1 {
		t.Fatalf("heading after recalibrate = %v, want 90 with no blend-in", d.Heading())
	}
}
