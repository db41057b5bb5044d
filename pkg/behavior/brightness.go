package behavior

import (
	"math"
	"sync"
	"time"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/sensor"
)

// BrightnessDetector bands smoothed ambient light into dark/normal/bright
// with a minimum dwell between transitions, and separately reports rapid
// level changes (a light switching on, a curtain opening).
type BrightnessDetector struct {
	cfg   BrightnessConfig
	cache *sensor.Cache
	sink  BrightnessSink
	delta DeltaSink

	mu             sync.Mutex
	levels         *window
	state          BrightnessState
	previous       BrightnessState
	stateChangedAt time.Time
	lastLevel      float64
	haveLast       bool
	lastDeltaAt    time.Time
	minLevel       float64
	maxLevel       float64

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// BrightnessStatus is a point-in-time snapshot for status reporting.
type BrightnessStatus struct {
	State    string  `json:"state"`
	Previous string  `json:"previous"`
	Level    float64 `json:"level"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// NewBrightnessDetector creates a light classifier reading from cache.
// sink receives band transitions, delta rapid changes; either may be nil.
func NewBrightnessDetector(cache *sensor.Cache, cfg BrightnessConfig, sink BrightnessSink, delta DeltaSink) *BrightnessDetector {
	return &BrightnessDetector{
		cfg:            cfg,
		cache:          cache,
		sink:           sink,
		delta:          delta,
		levels:         newWindow(cfg.SampleWindow),
		stateChangedAt: time.Now(),
		minLevel:       255,
		stop:           make(chan struct{}),
	}
}

// Start launches the detection loop.
func (d *BrightnessDetector) Start() {
	if d.started {
		return
	}
	d.started = true
	d.wg.Add(1)
	go runLoop(d.cfg.SampleRate, d.stop, &d.wg, d.tick)
	log.Info("brightness detector started",
		"dark", d.cfg.DarkThreshold, "bright", d.cfg.BrightThreshold)
}

// Stop terminates the detection loop.
func (d *BrightnessDetector) Stop() {
	close(d.stop)
	d.wg.Wait()
}

func (d *BrightnessDetector) tick(now time.Time) {
	r, ok := d.cache.Brightness()
	if !ok {
		return
	}
	change, hasChange, delta, hasDelta := d.observe(r.Value, now)
	if hasDelta {
		d.delta(delta)
	}
	if hasChange {
		d.sink(change)
	}
}

// observe consumes one brightness level.
func (d *BrightnessDetector) observe(level float64, now time.Time) (BrightnessChange, bool, BrightnessDelta, bool) {
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return BrightnessChange{}, false, BrightnessDelta{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var outDelta BrightnessDelta
	hasDelta := false
	if d.haveLast {
		diff := level - d.lastLevel
		if math.Abs(diff) >= d.cfg.ChangeRate && now.Sub(d.lastDeltaAt) >= d.cfg.ChangeCooldown {
			d.lastDeltaAt = now
			log.Info("brightness change detected", "level", level, "change", diff)
			if d.delta != nil {
				outDelta = BrightnessDelta{Level: level, Change: diff, At: now}
				hasDelta = true
			}
		}
	}
	d.lastLevel = level
	d.haveLast = true

	d.levels.push(level)
	d.minLevel = math.Min(d.minLevel, level)
	d.maxLevel = math.Max(d.maxLevel, level)

	smoothed := d.levels.mean()
	next := d.band(smoothed)
	if next == d.state {
		return BrightnessChange{}, false, outDelta, hasDelta
	}
	if now.Sub(d.stateChangedAt) < d.cfg.MinDwell {
		return BrightnessChange{}, false, outDelta, hasDelta
	}

	d.previous = d.state
	d.state = next
	d.stateChangedAt = now
	log.Info("brightness state changed", "from", d.previous.String(), "to", next.String())

	if d.sink == nil {
		return BrightnessChange{}, false, outDelta, hasDelta
	}
	return BrightnessChange{
		From:  d.previous,
		To:    next,
		Level: smoothed,
		At:    now,
	}, true, outDelta, hasDelta
}

func (d *BrightnessDetector) band(level float64) BrightnessState {
	switch {
	case level < d.cfg.DarkThreshold:
		return BrightnessDark
	case level > d.cfg.BrightThreshold:
		return BrightnessBright
	default:
		return BrightnessNormal
	}
}

// State returns the current light band.
func (d *BrightnessDetector) State() BrightnessState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Status returns a snapshot for status reporting.
func (d *BrightnessDetector) Status() BrightnessStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return BrightnessStatus{
		State:    d.state.String(),
		Previous: d.previous.String(),
		Level:    d.levels.mean(),
		Min:      d.minLevel,
		Max:      d.maxLevel,
	}
}

// Reset clears the band state and observed range.
func (d *BrightnessDetector) Reset() {
	d.mu.Lock()
	d.state = BrightnessNormal
	d.previous = BrightnessNormal
	d.levels.reset()
	d.minLevel = 255
	d.maxLevel = 0
	d.haveLast = false
	d.mu.Unlock()
}
