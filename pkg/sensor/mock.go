package sensor

import (
	"math"
	"sync"
)

// MockIMU is a scripted IMU source for tests and the simulator. Values are
// set directly; reads return the current values until changed.
type MockIMU struct {
	mu          sync.Mutex
	accel       Vec3
	gyro        Vec3
	orientation Orientation
	magnet      Vec3
	compass     float64
	err         error
}

// NewMockIMU returns a mock IMU at rest: 1g straight down the Z axis,
// zero rotation, heading north.
func NewMockIMU() *MockIMU {
	return &MockIMU{accel: Vec3{Z: 1.0}}
}

// SetAccel sets the accelerometer reading (g).
func (m *MockIMU) SetAccel(v Vec3) {
	m.mu.Lock()
	m.accel = v
	m.mu.Unlock()
}

// SetGyro sets the gyroscope reading (deg/s).
func (m *MockIMU) SetGyro(v Vec3) {
	m.mu.Lock()
	m.gyro = v
	m.mu.Unlock()
}

// SetOrientation sets the fused orientation (deg).
func (m *MockIMU) SetOrientation(o Orientation) {
	m.mu.Lock()
	m.orientation = o
	m.mu.Unlock()
}

// SetMagnetometer sets the magnetometer reading.
func (m *MockIMU) SetMagnetometer(v Vec3) {
	m.mu.Lock()
	m.magnet = v
	m.mu.Unlock()
}

// SetCompass sets the compass heading in degrees.
func (m *MockIMU) SetCompass(h float64) {
	m.mu.Lock()
	m.compass = h
	m.mu.Unlock()
}

// SetError makes every read fail with err until cleared with nil.
func (m *MockIMU) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockIMU) ReadAccelerometer() (Vec3, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accel, m.err
}

func (m *MockIMU) ReadGyroscope() (Vec3, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gyro, m.err
}

func (m *MockIMU) ReadOrientation() (Orientation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orientation, m.err
}

func (m *MockIMU) ReadMagnetometer() (Vec3, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.magnet, m.err
}

func (m *MockIMU) ReadCompass() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.compass, m.err
}

// MockCamera is a scripted brightness source.
type MockCamera struct {
	mu         sync.Mutex
	brightness float64
	err        error
}

// NewMockCamera returns a mock camera at a mid-range brightness.
func NewMockCamera() *MockCamera {
	return &MockCamera{brightness: 128}
}

// SetBrightness sets the brightness level [0, 255].
func (m *MockCamera) SetBrightness(b float64) {
	m.mu.Lock()
	m.brightness = b
	m.mu.Unlock()
}

// SetError makes reads fail with err until cleared with nil.
func (m *MockCamera) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockCamera) ReadBrightness() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.brightness, m.err
}

// MockMicrophone is a scripted audio source. It can play silence or a
// sine tone at a given frequency and volume, generating a fresh chunk
// per read so FFT-based consumers see realistic sample data.
type MockMicrophone struct {
	mu         sync.Mutex
	sampleRate int
	chunkLen   int
	frequency  float64
	amplitude  float64
	volumeDB   float64
	phase      float64
	err        error
}

// NewMockMicrophone returns a silent microphone at 44.1kHz with 50ms chunks.
func NewMockMicrophone() *MockMicrophone {
	return &MockMicrophone{sampleRate: 44100, chunkLen: 2205}
}

// SetTone makes subsequent chunks carry a sine wave at the given frequency
// and amplitude, reported at the given volume level.
func (m *MockMicrophone) SetTone(frequency, amplitude, volumeDB float64) {
	m.mu.Lock()
	m.frequency = frequency
	m.amplitude = amplitude
	m.volumeDB = volumeDB
	m.mu.Unlock()
}

// SetSilence makes subsequent chunks silent at the given volume level.
func (m *MockMicrophone) SetSilence(volumeDB float64) {
	m.mu.Lock()
	m.frequency = 0
	m.amplitude = 0
	m.volumeDB = volumeDB
	m.mu.Unlock()
}

// SetError makes reads fail with err until cleared with nil.
func (m *MockMicrophone) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockMicrophone) ReadAudioChunk() (AudioChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return AudioChunk{}, m.err
	}

	samples := make([]float64, m.chunkLen)
	if m.frequency > 0 {
		step := 2 * math.Pi * m.frequency / float64(m.sampleRate)
		for i := range samples {
			samples[i] = m.amplitude * math.Sin(m.phase)
			m.phase += step
		}
		m.phase = math.Mod(m.phase, 2*math.Pi)
	}
	return AudioChunk{Samples: samples, SampleRate: m.sampleRate, VolumeDB: m.volumeDB}, nil
}
