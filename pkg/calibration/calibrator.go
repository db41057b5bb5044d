// Package calibration captures the device's resting frame: the gravity
// direction, reference orientation, and reference heading measured while
// the wearer stands still. Detectors that need orientation independence
// work relative to this frame instead of assuming the device sits flat.
package calibration

import (
	"context"
	"sync"
	"time"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/sensor"
)

// Defaults for the stationary sampling pass.
const (
	DefaultSamples        = 30
	DefaultSampleInterval = 50 * time.Millisecond
)

// Config controls how the stationary frame is sampled.
type Config struct {
	// Samples is how many accelerometer readings to average.
	Samples int
	// SampleInterval is the pause between samples.
	SampleInterval time.Duration
}

// DefaultConfig returns the standard calibration parameters.
func DefaultConfig() Config {
	return Config{Samples: DefaultSamples, SampleInterval: DefaultSampleInterval}
}

// Frame is one complete calibration result. It is immutable once
// published; recalibration swaps in a whole new frame.
type Frame struct {
	// Gravity is the unit vector pointing along measured gravity in the
	// device's body frame.
	Gravity sensor.Vec3
	// GravityRaw is the averaged accelerometer vector before
	// normalization, in g. Its magnitude should sit near 1.0 when the
	// device was truly stationary.
	GravityRaw sensor.Vec3
	// ReferenceOrientation is the fused attitude at calibration time.
	ReferenceOrientation sensor.Orientation
	// ReferenceHeading is the compass heading at calibration time.
	ReferenceHeading float64
	// Degraded is set when sampling failed and the frame fell back to
	// the Z-up default. Detectors still run, just orientation-dependent.
	Degraded bool
	// CalibratedAt is when the frame was captured.
	CalibratedAt time.Time
}

// Calibrator samples the sensor cache to build calibration frames.
// Frame reads are cheap snapshots; Calibrate blocks for roughly
// Samples * SampleInterval and then swaps the new frame in atomically.
type Calibrator struct {
	cache *sensor.Cache
	cfg   Config

	frame atomicFrame
}

// atomicFrame publishes whole frames under a mutex so readers always see
// a complete snapshot.
type atomicFrame struct {
	mu  sync.RWMutex
	f   Frame
	set bool
}

func (a *atomicFrame) store(f Frame) {
	a.mu.Lock()
	a.f = f
	a.set = true
	a.mu.Unlock()
}

func (a *atomicFrame) load() (Frame, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.f, a.set
}

// New creates a calibrator reading from cache.
func New(cache *sensor.Cache, cfg Config) *Calibrator {
	if cfg.Samples <= 0 {
		cfg.Samples = DefaultSamples
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultSampleInterval
	}
	return &Calibrator{cache: cache, cfg: cfg}
}

// Frame returns the current calibration frame. ok is false until the
// first Calibrate completes.
func (c *Calibrator) Frame() (Frame, bool) {
	return c.frame.load()
}

// Calibrate samples the accelerometer while the device is assumed
// stationary and publishes a new frame. It is safe to call repeatedly;
// each call replaces the previous frame wholesale, so detectors never
// see a half-updated one. The wearer should hold still for the duration.
func (c *Calibrator) Calibrate(ctx context.Context) (Frame, error) {
	log.Info("calibrating stationary frame", "samples", c.cfg.Samples)

	var sum sensor.Vec3
	collected := 0
	for i := 0; i < c.cfg.Samples; i++ {
		if r, ok := c.cache.Accel(); ok {
			sum = sum.Add(r.Value)
			collected++
		}
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-time.After(c.cfg.SampleInterval):
		}
	}

	f := Frame{CalibratedAt: time.Now()}
	if collected > 0 {
		f.GravityRaw = sum.Scale(1 / float64(collected))
		if unit, ok := f.GravityRaw.Normalize(); ok {
			f.Gravity = unit
		} else {
			f.Gravity = sensor.Vec3{Z: 1}
			f.Degraded = true
			log.Warn("gravity magnitude near zero, using Z-up default")
		}
	} else {
		f.GravityRaw = sensor.Vec3{Z: 1}
		f.Gravity = sensor.Vec3{Z: 1}
		f.Degraded = true
		log.Warn("no accelerometer data during calibration, using Z-up default")
	}

	if r, ok := c.cache.Orientation(); ok {
		f.ReferenceOrientation = r.Value
	}
	if r, ok := c.cache.Compass(); ok {
		f.ReferenceHeading = r.Value
	}

	c.frame.store(f)
	log.Info("calibration complete",
		"gravity_x", f.Gravity.X, "gravity_y", f.Gravity.Y, "gravity_z", f.Gravity.Z,
		"heading", f.ReferenceHeading, "degraded", f.Degraded)
	return f, nil
}
