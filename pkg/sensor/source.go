package sensor

import "errors"

// ErrUnavailable is returned by a source when the underlying hardware has
// no reading this tick (not warmed up, transient bus error, unplugged).
// The poller treats it as "no update" and leaves the cached value alone.
var ErrUnavailable = errors.New("sensor: reading unavailable")

// IMUSource reads the inertial measurement unit. Implementations must be
// non-blocking or bounded-latency; the poller calls them at a fixed rate
// from a single goroutine.
type IMUSource interface {
	ReadAccelerometer() (Vec3, error)
	ReadGyroscope() (Vec3, error)
	ReadOrientation() (Orientation, error)
	ReadMagnetometer() (Vec3, error)
	ReadCompass() (float64, error)
}

// CameraSource reads ambient brightness from the camera pipeline.
type CameraSource interface {
	ReadBrightness() (float64, error)
}

// MicrophoneSource reads the most recent captured audio chunk with its
// volume level.
type MicrophoneSource interface {
	ReadAudioChunk() (AudioChunk, error)
}
