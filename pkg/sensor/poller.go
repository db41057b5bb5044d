package sensor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cavg-team/go-wearable/internal/log"
)

// Default poll rates. The IMU runs fast enough to catch quick rotations;
// the camera and microphone channels change far slower and polling them
// at IMU rate only burns bus bandwidth.
const (
	DefaultIMURate        = 30 // Hz
	DefaultCameraRate     = 2  // Hz
	DefaultMicrophoneRate = 10 // Hz
)

// PollerConfig holds poll rates in Hz for each bus.
type PollerConfig struct {
	IMURate        int
	CameraRate     int
	MicrophoneRate int
}

// DefaultPollerConfig returns the standard poll rates.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		IMURate:        DefaultIMURate,
		CameraRate:     DefaultCameraRate,
		MicrophoneRate: DefaultMicrophoneRate,
	}
}

// Poller owns the sensor-reading goroutines, one per bus. It is the only
// component that touches hardware; everything downstream reads the Cache.
// Sources may be nil, in which case that bus is simply not polled.
type Poller struct {
	cache *Cache
	cfg   PollerConfig

	imu    IMUSource
	camera CameraSource
	mic    MicrophoneSource

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool

	readErrors atomic.Uint64
}

// NewPoller creates a poller writing into cache.
func NewPoller(cache *Cache, cfg PollerConfig, imu IMUSource, camera CameraSource, mic MicrophoneSource) *Poller {
	if cfg.IMURate <= 0 {
		cfg.IMURate = DefaultIMURate
	}
	if cfg.CameraRate <= 0 {
		cfg.CameraRate = DefaultCameraRate
	}
	if cfg.MicrophoneRate <= 0 {
		cfg.MicrophoneRate = DefaultMicrophoneRate
	}
	return &Poller{
		cache:  cache,
		cfg:    cfg,
		imu:    imu,
		camera: camera,
		mic:    mic,
		stop:   make(chan struct{}),
	}
}

// Start launches the polling goroutines. Safe to call once.
func (p *Poller) Start() {
	if p.started {
		return
	}
	p.started = true

	if p.imu != nil {
		p.wg.Add(1)
		go p.runLoop("imu", p.cfg.IMURate, p.pollIMU)
	}
	if p.camera != nil {
		p.wg.Add(1)
		go p.runLoop("camera", p.cfg.CameraRate, p.pollCamera)
	}
	if p.mic != nil {
		p.wg.Add(1)
		go p.runLoop("microphone", p.cfg.MicrophoneRate, p.pollMicrophone)
	}

	log.Info("sensor poller started",
		"imu_hz", p.cfg.IMURate, "camera_hz", p.cfg.CameraRate, "mic_hz", p.cfg.MicrophoneRate)
}

// Stop signals all polling goroutines and waits for them with a bounded
// timeout, so a wedged hardware call cannot hang shutdown.
func (p *Poller) Stop(timeout time.Duration) {
	close(p.stop)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn("sensor poller stop timed out", "timeout", timeout)
	}
}

// ReadErrors returns the cumulative count of failed hardware reads.
func (p *Poller) ReadErrors() uint64 {
	return p.readErrors.Load()
}

// runLoop polls fn at the target rate, measuring actual elapsed time each
// iteration and sleeping only the remainder. Falling behind is logged as
// a back-pressure signal rather than silently drifting.
func (p *Poller) runLoop(name string, rateHz int, fn func(now time.Time)) {
	defer p.wg.Done()

	interval := time.Second / time.Duration(rateHz)
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		start := time.Now()
		fn(start)
		elapsed := time.Since(start)

		if elapsed < interval {
			select {
			case <-p.stop:
				return
			case <-time.After(interval - elapsed):
			}
		} else if elapsed > 2*interval {
			log.Warn("sensor poll falling behind",
				"bus", name, "elapsed", elapsed, "interval", interval)
		}
	}
}

// pollIMU reads every IMU channel once. A failed read leaves the cached
// value stale for that channel; downstream readers see it age out.
func (p *Poller) pollIMU(now time.Time) {
	if v, err := p.imu.ReadAccelerometer(); err == nil && v.IsValid() {
		p.cache.SetAccel(v, now)
	} else if err != nil {
		p.noteReadError("accelerometer", err)
	}
	if v, err := p.imu.ReadGyroscope(); err == nil && v.IsValid() {
		p.cache.SetGyro(v, now)
	} else if err != nil {
		p.noteReadError("gyroscope", err)
	}
	if o, err := p.imu.ReadOrientation(); err == nil && o.IsValid() {
		p.cache.SetOrientation(o, now)
	} else if err != nil {
		p.noteReadError("orientation", err)
	}
	if v, err := p.imu.ReadMagnetometer(); err == nil && v.IsValid() {
		p.cache.SetMagnetometer(v, now)
	} else if err != nil {
		p.noteReadError("magnetometer", err)
	}
	if h, err := p.imu.ReadCompass(); err == nil {
		p.cache.SetCompass(h, now)
	} else {
		p.noteReadError("compass", err)
	}
}

func (p *Poller) pollCamera(now time.Time) {
	if b, err := p.camera.ReadBrightness(); err == nil {
		p.cache.SetBrightness(b, now)
	} else {
		p.noteReadError("camera", err)
	}
}

func (p *Poller) pollMicrophone(now time.Time) {
	if a, err := p.mic.ReadAudioChunk(); err == nil {
		p.cache.SetAudio(a, now)
	} else {
		p.noteReadError("microphone", err)
	}
}

func (p *Poller) noteReadError(channel string, err error) {
	n := p.readErrors.Add(1)
	// Log sparsely; a dead sensor would otherwise flood at poll rate.
	if n%300 == 1 {
		log.Warn("sensor read failed", "channel", channel, "err", err, "total", n)
	}
}
