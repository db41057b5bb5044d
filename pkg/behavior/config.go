package behavior

import (
	"fmt"
	"time"
)

// MovementConfig tunes the gait classifier.
type MovementConfig struct {
	SampleRate       int     // Hz
	SampleWindow     int     // trailing magnitude samples
	ThresholdStatic  float64 // g, below this the wearer is still
	ThresholdWalking float64 // g
	ThresholdRunning float64 // g
	Cooldown         time.Duration
}

// DefaultMovementConfig returns the tuned production thresholds.
func DefaultMovementConfig() MovementConfig {
	return MovementConfig{
		SampleRate:       30,
		SampleWindow:     10,
		ThresholdStatic:  0.1,
		ThresholdWalking: 0.5,
		ThresholdRunning: 1.5,
		Cooldown:         2 * time.Second,
	}
}

// Validate checks threshold ordering and rates.
func (c MovementConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("movement: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.SampleWindow < 3 {
		return fmt.Errorf("movement: sample window must be >= 3, got %d", c.SampleWindow)
	}
	if !(c.ThresholdStatic < c.ThresholdWalking && c.ThresholdWalking < c.ThresholdRunning) {
		return fmt.Errorf("movement: thresholds must be ordered static < walking < running")
	}
	return nil
}

// FallConfig tunes fall confirmation and recovery.
type FallConfig struct {
	SampleRate            int           // Hz
	AccelerationThreshold float64       // g, impact
	FreeFallThreshold     float64       // g, below this is free fall
	AngleThreshold        float64       // deg from reference orientation
	ImpactWindow          time.Duration // free fall must be followed by impact within this
	RecoveryTimeout       time.Duration // force reset to normal
	Cooldown              time.Duration // duplicate suppression
}

// DefaultFallConfig returns the tuned production thresholds.
func DefaultFallConfig() FallConfig {
	return FallConfig{
		SampleRate:            10,
		AccelerationThreshold: 2.0,
		FreeFallThreshold:     0.5,
		AngleThreshold:        45,
		ImpactWindow:          500 * time.Millisecond,
		RecoveryTimeout:       3 * time.Second,
		Cooldown:              2 * time.Second,
	}
}

// Validate checks the fall thresholds.
func (c FallConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("fall: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.FreeFallThreshold >= c.AccelerationThreshold {
		return fmt.Errorf("fall: free-fall threshold must be below impact threshold")
	}
	if c.AngleThreshold <= 0 || c.AngleThreshold >= 180 {
		return fmt.Errorf("fall: angle threshold must be in (0, 180), got %v", c.AngleThreshold)
	}
	return nil
}

// TurnConfig tunes turn-around detection.
type TurnConfig struct {
	SampleRate        int           // Hz
	RotationThreshold float64       // deg to confirm a turn
	StartRate         float64       // deg/s to begin tracking
	StopRate          float64       // deg/s below which rotation has stopped
	AbortAngle        float64       // deg, stop below this angle abandons the turn
	RotationTime      time.Duration // max duration of a turn
	Cooldown          time.Duration
}

// DefaultTurnConfig returns the tuned production thresholds.
func DefaultTurnConfig() TurnConfig {
	return TurnConfig{
		SampleRate:        60,
		RotationThreshold: 160,
		StartRate:         30,
		StopRate:          10,
		AbortAngle:        90,
		RotationTime:      2 * time.Second,
		Cooldown:          3 * time.Second,
	}
}

// Validate checks the turn thresholds.
func (c TurnConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("turn: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.StopRate >= c.StartRate {
		return fmt.Errorf("turn: stop rate must be below start rate")
	}
	if c.AbortAngle >= c.RotationThreshold {
		return fmt.Errorf("turn: abort angle must be below rotation threshold")
	}
	return nil
}

// ShoutConfig tunes shout detection.
type ShoutConfig struct {
	SampleRate      int     // Hz, audio chunk poll rate
	VolumeThreshold float64 // dB
	MinFrequency    float64 // Hz, voice band lower bound
	MaxFrequency    float64 // Hz, voice band upper bound
	VoiceRatio      float64 // voice-band share of spectral energy
	MinDuration     time.Duration
	Cooldown        time.Duration
}

// DefaultShoutConfig returns the tuned production thresholds.
func DefaultShoutConfig() ShoutConfig {
	return ShoutConfig{
		SampleRate:      10,
		VolumeThreshold: 70,
		MinFrequency:    200,
		MaxFrequency:    2000,
		VoiceRatio:      0.3,
		MinDuration:     500 * time.Millisecond,
		Cooldown:        2 * time.Second,
	}
}

// Validate checks the shout thresholds.
func (c ShoutConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("shout: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.MinFrequency >= c.MaxFrequency {
		return fmt.Errorf("shout: frequency band inverted (%v >= %v)", c.MinFrequency, c.MaxFrequency)
	}
	if c.VoiceRatio <= 0 || c.VoiceRatio >= 1 {
		return fmt.Errorf("shout: voice ratio must be in (0, 1), got %v", c.VoiceRatio)
	}
	return nil
}

// BrightnessConfig tunes the ambient light classifier.
type BrightnessConfig struct {
	SampleRate      int     // Hz
	DarkThreshold   float64 // below this is dark
	BrightThreshold float64 // above this is bright
	ChangeRate      float64 // instantaneous delta that fires a change
	SampleWindow    int     // smoothing window
	MinDwell        time.Duration
	ChangeCooldown  time.Duration
}

// DefaultBrightnessConfig returns the tuned production thresholds.
func DefaultBrightnessConfig() BrightnessConfig {
	return BrightnessConfig{
		SampleRate:      2,
		DarkThreshold:   50,
		BrightThreshold: 200,
		ChangeRate:      30,
		SampleWindow:    5,
		MinDwell:        2 * time.Second,
		ChangeCooldown:  5 * time.Second,
	}
}

// Validate checks the brightness thresholds.
func (c BrightnessConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("brightness: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.DarkThreshold >= c.BrightThreshold {
		return fmt.Errorf("brightness: dark threshold must be below bright threshold")
	}
	if c.SampleWindow < 1 {
		return fmt.Errorf("brightness: sample window must be >= 1, got %d", c.SampleWindow)
	}
	return nil
}

// CompassConfig tunes heading smoothing.
type CompassConfig struct {
	SampleRate      int     // Hz
	SampleWindow    int     // circular-mean smoothing window
	ChangeThreshold float64 // deg, significant heading change
}

// DefaultCompassConfig returns the tuned production values.
func DefaultCompassConfig() CompassConfig {
	return CompassConfig{
		SampleRate:      10,
		SampleWindow:    5,
		ChangeThreshold: 15,
	}
}

// Validate checks the compass parameters.
func (c CompassConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("compass: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.SampleWindow < 1 {
		return fmt.Errorf("compass: sample window must be >= 1, got %d", c.SampleWindow)
	}
	if c.ChangeThreshold <= 0 || c.ChangeThreshold > 180 {
		return fmt.Errorf("compass: change threshold must be in (0, 180], got %v", c.ChangeThreshold)
	}
	return nil
}
