package sensor

import (
	"sync"
	"time"
)

// DefaultStaleAfter is how old a cached reading may be before readers
// treat the channel as unknown rather than risk classifying on stale data.
const DefaultStaleAfter = 1 * time.Second

// cell is a single-channel slot: last-write-wins for the writer, snapshot
// reads for consumers. Writers never block on readers beyond the brief
// critical section of the swap.
type cell[T any] struct {
	mu  sync.RWMutex
	val T
	at  time.Time
	set bool
}

func (c *cell[T]) store(v T, at time.Time) {
	c.mu.Lock()
	c.val = v
	c.at = at
	c.set = true
	c.mu.Unlock()
}

func (c *cell[T]) load(staleAfter time.Time) (Reading[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set || c.at.Before(staleAfter) {
		return Reading[T]{Value: c.val, CapturedAt: c.at}, false
	}
	return Reading[T]{Value: c.val, CapturedAt: c.at}, true
}

// Cache holds the most recent reading per sensor channel. A single poller
// per bus writes it; every detector reads from it. Reads return ok=false
// before the first update and once a reading ages past StaleAfter.
type Cache struct {
	// StaleAfter bounds how old a reading may be and still count as
	// known. Zero means DefaultStaleAfter.
	StaleAfter time.Duration

	accel       cell[Vec3]
	gyro        cell[Vec3]
	orientation cell[Orientation]
	magnet      cell[Vec3]
	compass     cell[float64]
	brightness  cell[float64]
	audio       cell[AudioChunk]
}

// NewCache creates a cache with the default staleness bound.
func NewCache() *Cache {
	return &Cache{StaleAfter: DefaultStaleAfter}
}

func (c *Cache) cutoff() time.Time {
	bound := c.StaleAfter
	if bound <= 0 {
		bound = DefaultStaleAfter
	}
	return time.Now().Add(-bound)
}

// SetAccel stores an accelerometer reading (g).
func (c *Cache) SetAccel(v Vec3, at time.Time) { c.accel.store(v, at) }

// SetGyro stores a gyroscope reading (deg/s).
func (c *Cache) SetGyro(v Vec3, at time.Time) { c.gyro.store(v, at) }

// SetOrientation stores a fused orientation reading (deg).
func (c *Cache) SetOrientation(o Orientation, at time.Time) { c.orientation.store(o, at) }

// SetMagnetometer stores a magnetometer reading.
func (c *Cache) SetMagnetometer(v Vec3, at time.Time) { c.magnet.store(v, at) }

// SetCompass stores a compass heading in degrees [0, 360).
func (c *Cache) SetCompass(h float64, at time.Time) { c.compass.store(h, at) }

// SetBrightness stores a camera brightness level [0, 255].
func (c *Cache) SetBrightness(b float64, at time.Time) { c.brightness.store(b, at) }

// SetAudio stores the latest audio chunk.
func (c *Cache) SetAudio(a AudioChunk, at time.Time) { c.audio.store(a, at) }

// Accel returns the latest accelerometer reading.
func (c *Cache) Accel() (Reading[Vec3], bool) { return c.accel.load(c.cutoff()) }

// Gyro returns the latest gyroscope reading.
func (c *Cache) Gyro() (Reading[Vec3], bool) { return c.gyro.load(c.cutoff()) }

// Orientation returns the latest fused orientation.
func (c *Cache) Orientation() (Reading[Orientation], bool) { return c.orientation.load(c.cutoff()) }

// Magnetometer returns the latest magnetometer reading.
func (c *Cache) Magnetometer() (Reading[Vec3], bool) { return c.magnet.load(c.cutoff()) }

// Compass returns the latest compass heading.
func (c *Cache) Compass() (Reading[float64], bool) { return c.compass.load(c.cutoff()) }

// Brightness returns the latest brightness level.
func (c *Cache) Brightness() (Reading[float64], bool) {
	// The camera samples far slower than the IMU, so give it a looser
	// staleness bound (4x) before declaring the channel unknown.
	bound := c.StaleAfter
	if bound <= 0 {
		bound = DefaultStaleAfter
	}
	return c.brightness.load(time.Now().Add(-4 * bound))
}

// Audio returns the latest audio chunk.
func (c *Cache) Audio() (Reading[AudioChunk], bool) { return c.audio.load(c.cutoff()) }
