package behavior

import (
	"math"
	"math/cmplx"
	"sync"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cavg-team/go-wearable/internal/log"
	"github.com/cavg-team/go-wearable/pkg/sensor"
)

// ShoutDetector recognizes sustained shouting: volume over the threshold
// with a meaningful share of spectral energy in the human voice band,
// held for at least the minimum duration. The band check keeps slammed
// doors and dropped props from registering as shouts.
type ShoutDetector struct {
	cfg   ShoutConfig
	cache *sensor.Cache
	sink  ShoutSink

	mu         sync.Mutex
	shouting   bool
	shoutStart time.Time
	lastShout  time.Time
	shoutCount int
	maxVolume  float64
	lastVolume float64

	fftN sync.Map // chunk length -> *fourier.FFT, audio chunk sizes rarely vary

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// ShoutStatus is a point-in-time snapshot for status reporting.
type ShoutStatus struct {
	Shouting      bool    `json:"shouting"`
	ShoutCount    int     `json:"shout_count"`
	CurrentVolume float64 `json:"current_volume"`
	MaxVolume     float64 `json:"max_volume"`
}

// NewShoutDetector creates a shout detector reading from cache. sink
// receives confirmed shouts and may be nil.
func NewShoutDetector(cache *sensor.Cache, cfg ShoutConfig, sink ShoutSink) *ShoutDetector {
	return &ShoutDetector{
		cfg:   cfg,
		cache: cache,
		sink:  sink,
		stop:  make(chan struct{}),
	}
}

// Start launches the detection loop.
func (d *ShoutDetector) Start() {
	if d.started {
		return
	}
	d.started = true
	d.wg.Add(1)
	go runLoop(d.cfg.SampleRate, d.stop, &d.wg, d.tick)
	log.Info("shout detector started", "threshold_db", d.cfg.VolumeThreshold)
}

// Stop terminates the detection loop.
func (d *ShoutDetector) Stop() {
	close(d.stop)
	d.wg.Wait()
}

func (d *ShoutDetector) tick(now time.Time) {
	r, ok := d.cache.Audio()
	if !ok {
		return
	}
	if ev, fire := d.observe(r.Value, now); fire {
		d.sink(ev)
	}
}

// observe consumes one audio chunk.
func (d *ShoutDetector) observe(chunk sensor.AudioChunk, now time.Time) (ShoutEvent, bool) {
	volume := chunk.VolumeDB
	if math.IsNaN(volume) || math.IsInf(volume, 0) {
		return ShoutEvent{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastVolume = volume

	if volume < d.cfg.VolumeThreshold {
		if d.shouting {
			log.Debug("shout ended", "duration", now.Sub(d.shoutStart))
		}
		d.shouting = false
		return ShoutEvent{}, false
	}

	if !d.voiceBand(chunk) {
		return ShoutEvent{}, false
	}

	if !d.shouting {
		d.shouting = true
		d.shoutStart = now
		log.Debug("shout started", "volume_db", volume)
		return ShoutEvent{}, false
	}

	duration := now.Sub(d.shoutStart)
	if duration < d.cfg.MinDuration {
		return ShoutEvent{}, false
	}
	if now.Sub(d.lastShout) < d.cfg.Cooldown {
		// Re-arm so a continuous yell does not fire on every tick.
		d.shoutStart = now
		return ShoutEvent{}, false
	}

	d.lastShout = now
	d.shoutStart = now
	d.shoutCount++
	if volume > d.maxVolume {
		d.maxVolume = volume
	}

	log.Info("shout detected", "volume_db", volume, "duration", duration, "count", d.shoutCount)
	if d.sink == nil {
		return ShoutEvent{}, false
	}
	return ShoutEvent{VolumeDB: volume, Duration: duration, At: now}, true
}

// voiceBand reports whether the chunk's spectral energy in the configured
// voice band exceeds the configured share of total energy. Caller holds
// d.mu; the FFT plan is cached per chunk length.
func (d *ShoutDetector) voiceBand(chunk sensor.AudioChunk) bool {
	n := len(chunk.Samples)
	if n < 2 || chunk.SampleRate <= 0 {
		return false
	}

	var fft *fourier.FFT
	if v, ok := d.fftN.Load(n); ok {
		fft = v.(*fourier.FFT)
	} else {
		fft = fourier.NewFFT(n)
		d.fftN.Store(n, fft)
	}

	coeffs := fft.Coefficients(nil, chunk.Samples)

	var voiceSum, totalSum float64
	voiceCount, totalCount := 0, 0
	for i, c := range coeffs {
		mag := cmplx.Abs(c)
		totalSum += mag
		totalCount++

		hz := fft.Freq(i) * float64(chunk.SampleRate)
		if hz >= d.cfg.MinFrequency && hz <= d.cfg.MaxFrequency {
			voiceSum += mag
			voiceCount++
		}
	}
	if voiceCount == 0 || totalCount == 0 {
		return false
	}

	voiceEnergy := voiceSum / float64(voiceCount)
	totalEnergy := totalSum / float64(totalCount)
	return voiceEnergy > totalEnergy*d.cfg.VoiceRatio
}

// Shouting reports whether a shout is in progress.
func (d *ShoutDetector) Shouting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shouting
}

// Status returns a snapshot for status reporting.
func (d *ShoutDetector) Status() ShoutStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ShoutStatus{
		Shouting:      d.shouting,
		ShoutCount:    d.shoutCount,
		CurrentVolume: d.lastVolume,
		MaxVolume:     d.maxVolume,
	}
}

// ResetCount clears the shout counter.
func (d *ShoutDetector) ResetCount() {
	d.mu.Lock()
	d.shoutCount = 0
	d.maxVolume = 0
	d.mu.Unlock()
}
