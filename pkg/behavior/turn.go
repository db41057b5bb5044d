package behavior

import (
	"math"
	"sync"
	"time"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/calibration"
	"github.com/cavg-team/go-wearable/pkg/sensor"
)

// TurnDetector recognizes turn-arounds by integrating the rotation rate
// about the calibrated gravity axis. Projecting the gyro vector onto
// gravity yields the yaw rate regardless of how the device is mounted.
type TurnDetector struct {
	cfg   TurnConfig
	cache *sensor.Cache
	cal   *calibration.Calibrator
	sink  TurnSink

	mu           sync.Mutex
	turning      bool
	startAt      time.Time
	lastSampleAt time.Time
	rotation     float64 // integrated, signed degrees
	lastTrigger  time.Time
	lastRate     float64

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// TurnStatus is a point-in-time snapshot for status reporting.
type TurnStatus struct {
	Turning          bool    `json:"turning"`
	RotationProgress float64 `json:"rotation_progress"`
	CurrentRate      float64 `json:"current_rate"`
}

// NewTurnDetector creates a turn detector reading from cache. sink
// receives completed turns and may be nil.
func NewTurnDetector(cache *sensor.Cache, cal *calibration.Calibrator, cfg TurnConfig, sink TurnSink) *TurnDetector {
	return &TurnDetector{
		cfg:   cfg,
		cache: cache,
		cal:   cal,
		sink:  sink,
		stop:  make(chan struct{}),
	}
}

// Start launches the detection loop.
func (d *TurnDetector) Start() {
	if d.started {
		return
	}
	d.started = true
	d.wg.Add(1)
	go runLoop(d.cfg.SampleRate, d.stop, &d.wg, d.tick)
	log.Info("turn detector started", "threshold_deg", d.cfg.RotationThreshold)
}

// Stop terminates the detection loop.
func (d *TurnDetector) Stop() {
	close(d.stop)
	d.wg.Wait()
}

func (d *TurnDetector) tick(now time.Time) {
	gyro, ok := d.cache.Gyro()
	if !ok {
		return
	}
	if ev, fire := d.observe(gyro.Value, now); fire {
		d.sink(ev)
	}
}

// observe consumes one gyroscope sample, integrating rotation over the
// actual elapsed interval rather than the nominal sample period.
func (d *TurnDetector) observe(gyro sensor.Vec3, now time.Time) (TurnEvent, bool) {
	gravity := sensor.Vec3{Z: 1}
	if frame, ok := d.cal.Frame(); ok {
		gravity = frame.Gravity
	}
	rate := gyro.Dot(gravity)
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return TurnEvent{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastRate = rate

	if !d.turning {
		if math.Abs(rate) <= d.cfg.StartRate {
			return TurnEvent{}, false
		}
		if now.Sub(d.lastTrigger) < d.cfg.Cooldown {
			return TurnEvent{}, false
		}
		d.turning = true
		d.startAt = now
		d.lastSampleAt = now
		d.rotation = 0
		log.Debug("turn started", "rate", rate)
		return TurnEvent{}, false
	}

	dt := now.Sub(d.lastSampleAt).Seconds()
	if dt <= 0 {
		dt = 1.0 / float64(d.cfg.SampleRate)
	}
	d.lastSampleAt = now
	d.rotation += rate * dt

	if now.Sub(d.startAt) > d.cfg.RotationTime {
		log.Debug("turn timed out", "rotation", d.rotation)
		d.resetLocked()
		return TurnEvent{}, false
	}

	if math.Abs(d.rotation) >= d.cfg.RotationThreshold {
		duration := now.Sub(d.startAt)
		rotation := d.rotation
		direction := "right"
		if rotation < 0 {
			direction = "left"
		}
		d.lastTrigger = now
		d.resetLocked()

		log.Info("turn detected",
			"rotation_deg", rotation, "direction", direction, "duration", duration)
		if d.sink == nil {
			return TurnEvent{}, false
		}
		return TurnEvent{
			Rotation:  rotation,
			Duration:  duration,
			Direction: direction,
			At:        now,
		}, true
	}

	// Rotation petered out short of a turn-around.
	if math.Abs(rate) < d.cfg.StopRate && math.Abs(d.rotation) < d.cfg.AbortAngle {
		log.Debug("turn stopped early", "rotation", d.rotation)
		d.resetLocked()
	}
	return TurnEvent{}, false
}

func (d *TurnDetector) resetLocked() {
	d.turning = false
	d.startAt = time.Time{}
	d.lastSampleAt = time.Time{}
	d.rotation = 0
}

// Turning reports whether a turn is in progress.
func (d *TurnDetector) Turning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.turning
}

// Status returns a snapshot for status reporting.
func (d *TurnDetector) Status() TurnStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := TurnStatus{Turning: d.turning, CurrentRate: d.lastRate}
	if d.turning {
		s.RotationProgress = d.rotation
	}
	return s
}

// Reset abandons any turn in progress and clears the cooldown.
func (d *TurnDetector) Reset() {
	d.mu.Lock()
	d.resetLocked()
	d.lastTrigger = time.Time{}
	d.mu.Unlock()
}
