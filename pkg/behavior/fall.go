package behavior

import (
	"math"
	"sync"
	"time"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/calibration"
	"github.com/cavg-team/go-wearable/pkg/sensor"
)

// FallDetector confirms falls from two signatures: free fall followed
// closely by impact, or a large orientation departure from the calibrated
// reference backed by elevated acceleration. After confirmation it walks
// a fallen/recovering state machine back to normal.
type FallDetector struct {
	cfg   FallConfig
	cache *sensor.Cache
	cal   *calibration.Calibrator
	sink  FallSink

	mu                sync.Mutex
	state             FallState
	freeFallAt        time.Time
	fallDetectedAt    time.Time
	lastTrigger       time.Time
	maxAcceleration   float64
	orientationChange float64
	gyroNorms         *window

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// FallStatus is a point-in-time snapshot for status reporting.
type FallStatus struct {
	State             string  `json:"state"`
	IsFallen          bool    `json:"is_fallen"`
	MaxAcceleration   float64 `json:"max_acceleration"`
	OrientationChange float64 `json:"orientation_change"`
	TimeSinceFall     float64 `json:"time_since_fall_seconds,omitempty"`
}

// NewFallDetector creates a fall detector reading from cache. sink
// receives confirmed falls and may be nil.
func NewFallDetector(cache *sensor.Cache, cal *calibration.Calibrator, cfg FallConfig, sink FallSink) *FallDetector {
	return &FallDetector{
		cfg:       cfg,
		cache:     cache,
		cal:       cal,
		sink:      sink,
		gyroNorms: newWindow(5),
		stop:      make(chan struct{}),
	}
}

// Start launches the detection loop.
func (d *FallDetector) Start() {
	if d.started {
		return
	}
	d.started = true
	d.wg.Add(1)
	go runLoop(d.cfg.SampleRate, d.stop, &d.wg, d.tick)
	log.Info("fall detector started",
		"impact_g", d.cfg.AccelerationThreshold, "angle_deg", d.cfg.AngleThreshold)
}

// Stop terminates the detection loop.
func (d *FallDetector) Stop() {
	close(d.stop)
	d.wg.Wait()
}

func (d *FallDetector) tick(now time.Time) {
	accel, ok := d.cache.Accel()
	if !ok {
		return
	}
	var gyro sensor.Vec3
	if r, ok := d.cache.Gyro(); ok {
		gyro = r.Value
	}
	var orient sensor.Orientation
	haveOrient := false
	if r, ok := d.cache.Orientation(); ok {
		orient, haveOrient = r.Value, true
	}

	if ev, fire := d.observe(accel.Value, gyro, orient, haveOrient, now); fire {
		d.sink(ev)
	}
}

// observe consumes one sample set and advances the state machine.
func (d *FallDetector) observe(accel, gyro sensor.Vec3, orient sensor.Orientation, haveOrient bool, now time.Time) (FallEvent, bool) {
	frame, haveFrame := d.cal.Frame()
	if !haveFrame {
		return FallEvent{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	magnitude := accel.Norm()
	d.gyroNorms.push(gyro.Norm())
	if haveOrient {
		d.orientationChange = orientationDelta(orient, frame.ReferenceOrientation)
	}

	confirmed := false

	// Free-fall window: low magnitude opens it, impact inside closes it
	// as a fall. An expired window is replaced, not extended.
	if d.state == FallNormal && magnitude < d.cfg.FreeFallThreshold {
		if d.freeFallAt.IsZero() || now.Sub(d.freeFallAt) > d.cfg.ImpactWindow {
			d.freeFallAt = now
		}
	}
	if magnitude > d.cfg.AccelerationThreshold {
		d.maxAcceleration = math.Max(d.maxAcceleration, magnitude)
		if d.state == FallNormal && !d.freeFallAt.IsZero() && now.Sub(d.freeFallAt) < d.cfg.ImpactWindow {
			confirmed = true
		}
	}

	// Orientation path: a large departure with confirmatory acceleration.
	if d.state == FallNormal && haveOrient &&
		d.orientationChange > d.cfg.AngleThreshold && d.maxAcceleration > 1.5 {
		confirmed = true
	}

	var ev FallEvent
	fire := false
	if confirmed && now.Sub(d.lastTrigger) >= d.cfg.Cooldown {
		d.state = FallFallen
		d.fallDetectedAt = now
		d.lastTrigger = now

		severity := "moderate"
		if d.maxAcceleration > 3.0 {
			severity = "high"
		}
		log.Warn("fall detected",
			"max_acceleration_g", d.maxAcceleration,
			"orientation_change_deg", d.orientationChange,
			"severity", severity)
		if d.sink != nil {
			ev = FallEvent{
				MaxAcceleration:   d.maxAcceleration,
				OrientationChange: d.orientationChange,
				Severity:          severity,
				At:                now,
			}
			fire = true
		}
	}

	d.advanceRecovery(now)
	return ev, fire
}

// advanceRecovery walks fallen -> recovering -> normal. Caller holds d.mu.
func (d *FallDetector) advanceRecovery(now time.Time) {
	switch d.state {
	case FallFallen:
		// Summed rotation over the trailing window means the wearer is
		// moving, presumably getting up.
		total := 0.0
		for _, v := range d.gyroNorms.vals {
			total += v
		}
		if d.gyroNorms.full() && total > 50 {
			d.state = FallRecovering
			log.Info("fall recovery movement detected")
		}
	case FallRecovering:
		if d.orientationChange < 30 {
			d.resetLocked()
			log.Info("fall recovery complete")
		}
	}

	// Hard timeout so a missed recovery cannot wedge the state machine.
	if !d.fallDetectedAt.IsZero() && now.Sub(d.fallDetectedAt) > d.cfg.RecoveryTimeout {
		if d.state != FallNormal {
			d.resetLocked()
			log.Info("fall state reset after timeout")
		}
	}
}

func (d *FallDetector) resetLocked() {
	d.state = FallNormal
	d.freeFallAt = time.Time{}
	d.fallDetectedAt = time.Time{}
	d.maxAcceleration = 0
}

// orientationDelta is the combined pitch/roll departure from the
// reference, with each axis wrapped to [0, 180].
func orientationDelta(cur, ref sensor.Orientation) float64 {
	pitch := math.Abs(cur.Pitch - ref.Pitch)
	roll := math.Abs(cur.Roll - ref.Roll)
	pitch = math.Min(pitch, 360-pitch)
	roll = math.Min(roll, 360-roll)
	return math.Sqrt(pitch*pitch + roll*roll)
}

// State returns the current fall state.
func (d *FallDetector) State() FallState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Status returns a snapshot for status reporting.
func (d *FallDetector) Status() FallStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := FallStatus{
		State:             d.state.String(),
		IsFallen:          d.state == FallFallen,
		MaxAcceleration:   d.maxAcceleration,
		OrientationChange: d.orientationChange,
	}
	if !d.fallDetectedAt.IsZero() {
		s.TimeSinceFall = time.Since(d.fallDetectedAt).Seconds()
	}
	return s
}

// Reset clears the state machine back to normal.
func (d *FallDetector) Reset() {
	d.mu.Lock()
	d.resetLocked()
	d.orientationChange = 0
	d.gyroNorms.reset()
	d.mu.Unlock()
}
