// Package behavior classifies cached sensor samples into discrete wearer
// behaviors: gait (stop/walk/run), falls, turn-arounds, shouts, ambient
// brightness bands and compass heading. Each detector runs its own
// fixed-rate loop against the sensor cache and reports changes through a
// typed sink; the System orchestrator converts those into canonical
// events and feeds the delivery pipeline.
package behavior

import (
	"sync"
	"time"
)

// MovementState is the wearer's gait classification.
type MovementState int

const (
	MovementStop MovementState = iota
	MovementWalk
	MovementRun
)

func (s MovementState) String() string {
	switch s {
	case MovementWalk:
		return "walk"
	case MovementRun:
		return "run"
	default:
		return "stop"
	}
}

// FallState tracks the fall state machine.
type FallState int

const (
	FallNormal FallState = iota
	FallFalling
	FallFallen
	FallRecovering
)

func (s FallState) String() string {
	switch s {
	case FallFalling:
		return "falling"
	case FallFallen:
		return "fallen"
	case FallRecovering:
		return "recovering"
	default:
		return "normal"
	}
}

// BrightnessState is the ambient light band.
type BrightnessState int

const (
	BrightnessNormal BrightnessState = iota
	BrightnessDark
	BrightnessBright
)

func (s BrightnessState) String() string {
	switch s {
	case BrightnessDark:
		return "dark"
	case BrightnessBright:
		return "bright"
	default:
		return "normal"
	}
}

// MovementChange reports a gait transition.
type MovementChange struct {
	From          MovementState
	To            MovementState
	ActivityLevel float64
	StepCount     int
	At            time.Time
}

// FallEvent reports a confirmed fall.
type FallEvent struct {
	MaxAcceleration   float64 // g
	OrientationChange float64 // deg from reference
	Severity          string  // "moderate" or "high"
	At                time.Time
}

// TurnEvent reports a completed turn-around.
type TurnEvent struct {
	Rotation  float64 // deg, signed; negative is left
	Duration  time.Duration
	Direction string // "left" or "right"
	At        time.Time
}

// ShoutEvent reports a sustained shout.
type ShoutEvent struct {
	VolumeDB float64
	Duration time.Duration
	At       time.Time
}

// BrightnessChange reports a light-band transition.
type BrightnessChange struct {
	From  BrightnessState
	To    BrightnessState
	Level float64
	At    time.Time
}

// BrightnessDelta reports a rapid change in light level inside a band.
type BrightnessDelta struct {
	Level  float64
	Change float64
	At     time.Time
}

// HeadingUpdate reports the smoothed compass heading. Significant is set
// when the heading moved past the change threshold since last reported.
type HeadingUpdate struct {
	Heading     float64
	Significant bool
	At          time.Time
}

// Typed sinks, one per detector. Nil sinks are allowed and skipped.
type (
	MovementSink   func(MovementChange)
	FallSink       func(FallEvent)
	TurnSink       func(TurnEvent)
	ShoutSink      func(ShoutEvent)
	BrightnessSink func(BrightnessChange)
	DeltaSink      func(BrightnessDelta)
	HeadingSink    func(HeadingUpdate)
)

// runLoop drives step at the target rate until stop closes, sleeping only
// the remainder of each interval so the rate holds under load.
func runLoop(rateHz int, stop <-chan struct{}, wg *sync.WaitGroup, step func(now time.Time)) {
	defer wg.Done()

	interval := time.Second / time.Duration(rateHz)
	for {
		select {
		case <-stop:
			return
		default:
		}

		start := time.Now()
		step(start)
		elapsed := time.Since(start)

		if elapsed < interval {
			select {
			case <-stop:
				return
			case <-time.After(interval - elapsed):
			}
		}
	}
}

// window is a fixed-size trailing sample buffer.
type window struct {
	vals []float64
	max  int
}

func newWindow(size int) *window {
	return &window{max: size}
}

func (w *window) push(v float64) {
	w.vals = append(w.vals, v)
	if len(w.vals) > w.max {
		w.vals = w.vals[1:]
	}
}

func (w *window) full() bool { return len(w.vals) >= w.max }
func (w *window) len() int   { return len(w.vals) }

func (w *window) mean() float64 {
	if len(w.vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range w.vals {
		sum += v
	}
	return sum / float64(len(w.vals))
}

func (w *window) reset() { w.vals = w.vals[:0] }
