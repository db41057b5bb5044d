package behavior

import (
	"sync"
	"time"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/calibration"
	"github.com/cavg-team/go-wearable/pkg/sensor"
)

// MovementDetector classifies gait from gravity-removed acceleration
// magnitude over a trailing window, with a peak-count check to tell a
// step cadence from unstructured jostling.
type MovementDetector struct {
	cfg   MovementConfig
	cache *sensor.Cache
	cal   *calibration.Calibrator
	sink  MovementSink

	mu             sync.Mutex
	magnitudes     *window
	state          MovementState
	previous       MovementState
	stateChangedAt time.Time
	lastTrigger    time.Time

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// MovementStatus is a point-in-time snapshot for status reporting.
type MovementStatus struct {
	State         string  `json:"state"`
	Previous      string  `json:"previous"`
	ActivityLevel float64 `json:"activity_level"`
	StepCount     int     `json:"step_count"`
	StateDuration float64 `json:"state_duration_seconds"`
}

// NewMovementDetector creates a gait classifier reading from cache. sink
// receives state transitions and may be nil.
func NewMovementDetector(cache *sensor.Cache, cal *calibration.Calibrator, cfg MovementConfig, sink MovementSink) *MovementDetector {
	return &MovementDetector{
		cfg:            cfg,
		cache:          cache,
		cal:            cal,
		sink:           sink,
		magnitudes:     newWindow(cfg.SampleWindow),
		stateChangedAt: time.Now(),
		stop:           make(chan struct{}),
	}
}

// Start launches the detection loop.
func (d *MovementDetector) Start() {
	if d.started {
		return
	}
	d.started = true
	d.wg.Add(1)
	go runLoop(d.cfg.SampleRate, d.stop, &d.wg, d.tick)
	log.Info("movement detector started", "rate_hz", d.cfg.SampleRate)
}

// Stop terminates the detection loop.
func (d *MovementDetector) Stop() {
	close(d.stop)
	d.wg.Wait()
}

func (d *MovementDetector) tick(now time.Time) {
	r, ok := d.cache.Accel()
	if !ok {
		return
	}
	if change, fire := d.observe(r.Value, now); fire {
		d.sink(change)
	}
}

// observe consumes one accelerometer sample. It returns a state change
// to report, decoupled from the lock so sinks may call back in.
func (d *MovementDetector) observe(accel sensor.Vec3, now time.Time) (MovementChange, bool) {
	gravity := sensor.Vec3{Z: 1}
	if frame, ok := d.cal.Frame(); ok {
		gravity = frame.GravityRaw
	}
	magnitude := accel.Sub(gravity).Norm()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.magnitudes.push(magnitude)

	next := d.classify()
	if next == d.state {
		return MovementChange{}, false
	}
	// Changes inside the cooldown are ignored, not queued.
	if now.Sub(d.lastTrigger) < d.cfg.Cooldown {
		return MovementChange{}, false
	}

	d.previous = d.state
	d.state = next
	d.stateChangedAt = now
	d.lastTrigger = now

	log.Info("movement state changed", "from", d.previous.String(), "to", next.String())
	if d.sink == nil {
		return MovementChange{}, false
	}
	return MovementChange{
		From:          d.previous,
		To:            next,
		ActivityLevel: d.magnitudes.mean(),
		StepCount:     d.stepCount(),
		At:            now,
	}, true
}

// classify bands the windowed magnitude, with gait-pattern checks at the
// band edges. Holds the current state until the window fills.
func (d *MovementDetector) classify() MovementState {
	if !d.magnitudes.full() {
		return d.state
	}
	avg := d.magnitudes.mean()

	switch {
	case avg < d.cfg.ThresholdStatic:
		return MovementStop
	case avg < d.cfg.ThresholdWalking:
		if d.hasWalkingPattern() {
			return MovementWalk
		}
		return MovementStop
	case avg < d.cfg.ThresholdRunning:
		return MovementWalk
	default:
		if d.hasRunningPattern() {
			return MovementRun
		}
		return MovementWalk
	}
}

// hasWalkingPattern looks for the 1-3 Hz step cadence as peaks above the
// static floor. A peak is strictly greater than both neighbors.
func (d *MovementDetector) hasWalkingPattern() bool {
	if !d.magnitudes.full() {
		return false
	}
	peaks := 0
	vals := d.magnitudes.vals
	for i := 1; i < len(vals)-1; i++ {
		if vals[i] > vals[i-1] && vals[i] > vals[i+1] && vals[i] > d.cfg.ThresholdStatic {
			peaks++
		}
	}
	return peaks >= 1 && peaks <= 4
}

// hasRunningPattern requires more frequent peaks with at least two above
// the walking threshold.
func (d *MovementDetector) hasRunningPattern() bool {
	if !d.magnitudes.full() {
		return false
	}
	peaks, highPeaks := 0, 0
	vals := d.magnitudes.vals
	for i := 1; i < len(vals)-1; i++ {
		if vals[i] > vals[i-1] && vals[i] > vals[i+1] {
			peaks++
			if vals[i] > d.cfg.ThresholdWalking {
				highPeaks++
			}
		}
	}
	return peaks >= 3 && highPeaks >= 2
}

// stepCount estimates steps in the current window. Caller holds d.mu.
func (d *MovementDetector) stepCount() int {
	vals := d.magnitudes.vals
	if len(vals) < 3 {
		return 0
	}
	steps := 0
	for i := 1; i < len(vals)-1; i++ {
		if vals[i] > vals[i-1] && vals[i] > vals[i+1] && vals[i] > d.cfg.ThresholdStatic*2 {
			steps++
		}
	}
	return steps
}

// State returns the current gait state.
func (d *MovementDetector) State() MovementState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Status returns a snapshot for status reporting.
func (d *MovementDetector) Status() MovementStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return MovementStatus{
		State:         d.state.String(),
		Previous:      d.previous.String(),
		ActivityLevel: d.magnitudes.mean(),
		StepCount:     d.stepCount(),
		StateDuration: time.Since(d.stateChangedAt).Seconds(),
	}
}

// Recalibrate clears the magnitude window so post-calibration samples do
// not mix with readings taken against the old gravity vector.
func (d *MovementDetector) Recalibrate() {
	d.mu.Lock()
	d.magnitudes.reset()
	d.mu.Unlock()
}
