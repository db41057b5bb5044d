package behavior

import (
	"math"
	"sync"
	"time"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/sensor"
)

// CompassDetector publishes a continuously smoothed compass heading.
// Smoothing uses a circular mean over the trailing window so headings
// straddling the 0/360 seam average correctly.
type CompassDetector struct {
	cfg   CompassConfig
	cache *sensor.Cache
	sink  HeadingSink

	mu           sync.Mutex
	headings     []float64
	current      float64
	lastReported float64

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// CompassStatus is a point-in-time snapshot for status reporting.
type CompassStatus struct {
	Heading float64 `json:"heading"`
}

// NewCompassDetector creates a heading smoother reading from cache. sink
// receives every smoothed update and may be nil.
func NewCompassDetector(cache *sensor.Cache, cfg CompassConfig, sink HeadingSink) *CompassDetector {
	return &CompassDetector{
		cfg:   cfg,
		cache: cache,
		sink:  sink,
		stop:  make(chan struct{}),
	}
}

// Start launches the detection loop.
func (d *CompassDetector) Start() {
	if d.started {
		return
	}
	d.started = true
	d.wg.Add(1)
	go runLoop(d.cfg.SampleRate, d.stop, &d.wg, d.tick)
	log.Info("compass detector started", "rate_hz", d.cfg.SampleRate)
}

// Stop terminates the detection loop.
func (d *CompassDetector) Stop() {
	close(d.stop)
	d.wg.Wait()
}

func (d *CompassDetector) tick(now time.Time) {
	r, ok := d.cache.Compass()
	if !ok {
		return
	}
	if update, fire := d.observe(r.Value, now); fire {
		d.sink(update)
	}
}

// observe consumes one raw heading.
func (d *CompassDetector) observe(heading float64, now time.Time) (HeadingUpdate, bool) {
	if math.IsNaN(heading) || math.IsInf(heading, 0) {
		return HeadingUpdate{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.headings = append(d.headings, heading)
	if len(d.headings) > d.cfg.SampleWindow {
		d.headings = d.headings[1:]
	}
	d.current = circularMean(d.headings)

	significant := false
	if diff := angularDiff(d.current, d.lastReported); diff >= d.cfg.ChangeThreshold {
		d.lastReported = d.current
		significant = true
		log.Debug("significant heading change", "heading", d.current, "change", diff)
	}

	if d.sink == nil {
		return HeadingUpdate{}, false
	}
	return HeadingUpdate{Heading: d.current, Significant: significant, At: now}, true
}

// circularMean averages headings as unit vectors, wrapping correctly at
// the 0/360 seam, and returns degrees in [0, 360).
func circularMean(headings []float64) float64 {
	if len(headings) == 0 {
		return 0
	}
	var x, y float64
	for _, h := range headings {
		rad := h * math.Pi / 180
		x += math.Cos(rad)
		y += math.Sin(rad)
	}
	deg := math.Atan2(y, x) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// angularDiff is the shortest angular distance between two headings.
func angularDiff(a, b float64) float64 {
	diff := math.Abs(a - b)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// Heading returns the current smoothed heading.
func (d *CompassDetector) Heading() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Status returns a snapshot for status reporting.
func (d *CompassDetector) Status() CompassStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return CompassStatus{Heading: d.current}
}

// Recalibrate clears the smoothing window so stale headings do not blend
// into post-calibration readings.
func (d *CompassDetector) Recalibrate() {
	d.mu.Lock()
	d.headings = d.headings[:0]
	d.mu.Unlock()
}
