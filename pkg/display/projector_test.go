package display

import (
	"testing"

	"github.com/cavg-team/go-wearable/pkg/behavior"
)

func countColor(f Frame, c RGB) int {
	n := 0
	for _, px := range f {
		if px == c {
			n++
		}
	}
	return n
}

func TestRenderMovementColors(t *testing.T) {
	tests := []struct {
		name  string
		state behavior.MovementState
		color RGB
	}{
		{"stop is green", behavior.MovementStop, colorStop},
		{"walk is yellow", behavior.MovementWalk, colorWalk},
		{"run is orange", behavior.MovementRun, colorRun},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Dark keeps the brightness bars out of the movement palette.
			f := Render(behavior.StateSnapshot{Movement: tt.state, Brightness: behavior.BrightnessDark})
			if countColor(f, tt.color) == 0 {
				t.Errorf("no %v pixels in movement region", tt.color)
			}
			// The region is confined to rows 1-3, cols 1-3.
			for row := 0; row < 8; row++ {
				for col := 0; col < 8; col++ {
					if f.At(row, col) == tt.color && (row < 1 || row > 3 || col < 1 || col > 3) {
						t.Errorf("movement color leaked to (%d,%d)", row, col)
					}
				}
			}
		})
	}
}

func TestRenderFallRegion(t *testing.T) {
	calm := Render(behavior.StateSnapshot{Fall: behavior.FallNormal})
	if got := countColor(calm, colorFall); got != 0 {
		t.Errorf("no-fall frame has %d red pixels", got)
	}

	fallen := Render(behavior.StateSnapshot{Fall: behavior.FallFallen})
	if got := countColor(fallen, colorFall); got != 6 {
		t.Errorf("fallen frame has %d red pixels, want full 2x3 region", got)
	}

	recovering := Render(behavior.StateSnapshot{Fall: behavior.FallRecovering})
	if countColor(recovering, colorFall) == 0 {
		t.Error("recovering state should still show the fall alert")
	}
}

func TestRenderTurnArrows(t *testing.T) {
	left := Render(behavior.StateSnapshot{Turning: true, TurnDirection: "left"})
	if countColor(left, colorTurnLeft) == 0 {
		t.Error("left turn shows no arrow")
	}
	right := Render(behavior.StateSnapshot{Turning: true, TurnDirection: "right"})
	if countColor(right, colorTurnRight) == 0 {
		t.Error("right turn shows no arrow")
	}
	idle := Render(behavior.StateSnapshot{})
	if countColor(idle, colorTurnLeft) != 0 || countColor(idle, colorTurnRight) != 0 {
		t.Error("idle frame shows a turn arrow")
	}
}

func TestRenderShout(t *testing.T) {
	quiet := Render(behavior.StateSnapshot{})
	if countColor(quiet, colorShout) != 0 {
		t.Error("quiet frame has shout pixels")
	}
	loud := Render(behavior.StateSnapshot{Shouting: true})
	if countColor(loud, colorShout) == 0 {
		t.Error("shouting frame has no magenta pixels")
	}
}

func TestRenderBrightnessBars(t *testing.T) {
	tests := []struct {
		name  string
		state behavior.BrightnessState
		bars  int
	}{
		{"dark one bar", behavior.BrightnessDark, 1},
		{"normal two bars", behavior.BrightnessNormal, 2},
		{"bright three bars", behavior.BrightnessBright, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Render(behavior.StateSnapshot{Brightness: tt.state})
			lit := 0
			for _, col := range []int{4, 5, 6} {
				if f.At(5, col) != (RGB{}) {
					lit++
				}
			}
			if lit != tt.bars {
				t.Errorf("%d bars lit, want %d", lit, tt.bars)
			}
		})
	}
}

func TestRenderCompassNeedle(t *testing.T) {
	f := Render(behavior.StateSnapshot{Heading: 0})
	found := 0
	for _, idx := range ledEdge {
		if f[idx] == colorCompass {
			found++
		}
	}
	if found != 1 {
		t.Fatalf("%d compass pixels on the edge, want exactly 1", found)
	}

	// Different headings land on different edge pixels.
	a := Render(behavior.StateSnapshot{Heading: 45})
	b := Render(behavior.StateSnapshot{Heading: 225})
	var pa, pb int = -1, -1
	for _, idx := range ledEdge {
		if a[idx] == colorCompass {
			pa = idx
		}
		if b[idx] == colorCompass {
			pb = idx
		}
	}
	if pa == pb {
		t.Errorf("headings 45 and 225 map to the same edge pixel %d", pa)
	}
}

func TestEdgeRingCoversBorderOnly(t *testing.T) {
	if len(ledEdge) != 28 {
		t.Fatalf("edge ring has %d pixels, want 28", len(ledEdge))
	}
	seen := make(map[int]bool)
	for _, idx := range ledEdge {
		if seen[idx] {
			t.Errorf("edge pixel %d listed twice", idx)
		}
		seen[idx] = true
		row, col := idx/8, idx%8
		if row != 0 && row != 7 && col != 0 && col != 7 {
			t.Errorf("pixel (%d,%d) is not on the border", row, col)
		}
	}
}
