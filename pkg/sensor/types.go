// Package sensor provides the shared sensor data model, the read-mostly
// sample cache, and the fixed-rate pollers that feed it. All behavior
// detectors read from the cache; none of them touch hardware directly,
// which keeps the shared I2C bus to a single reader.
package sensor

import (
	"math"
	"time"
)

// Vec3 is a three-axis sensor reading. Units depend on the channel:
// g for the accelerometer, deg/s for the gyroscope, microtesla for the
// magnetometer.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns the component-wise sum of v and other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns the component-wise difference of v and other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and other.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Norm returns the Euclidean magnitude of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns v scaled to unit length. Returns (v, false) when the
// magnitude is zero or not finite, so callers can fall back to a default
// axis instead of propagating NaN.
func (v Vec3) Normalize() (Vec3, bool) {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return v, false
	}
	return v.Scale(1 / n), true
}

// IsValid reports whether all components are finite. Sensor glitches can
// surface as NaN; every detector guards with this before classifying.
func (v Vec3) IsValid() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// Orientation holds fused attitude angles in degrees.
type Orientation struct {
	Pitch float64
	Roll  float64
	Yaw   float64
}

// IsValid reports whether all angles are finite.
func (o Orientation) IsValid() bool {
	return !math.IsNaN(o.Pitch) && !math.IsInf(o.Pitch, 0) &&
		!math.IsNaN(o.Roll) && !math.IsInf(o.Roll, 0) &&
		!math.IsNaN(o.Yaw) && !math.IsInf(o.Yaw, 0)
}

// AudioChunk is one block of captured audio together with its volume.
// Samples are normalized to [-1, 1]; VolumeDB is the RMS level shifted
// into a 0..100 display range by the capture layer.
type AudioChunk struct {
	Samples    []float64
	SampleRate int
	VolumeDB   float64
}

// Reading pairs a cached value with the time it was captured.
type Reading[T any] struct {
	Value      T
	CapturedAt time.Time
}

// Age returns how long ago the reading was captured.
func (r Reading[T]) Age() time.Duration {
	return time.Since(r.CapturedAt)
}
