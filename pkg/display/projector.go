// Package display projects detector states onto the fixed 8x8 LED
// layout. Render is a pure mapping; pushing the resulting frame to real
// hardware is the caller's concern.
package display

import (
	"github.com/cavg-team/go-wearable/pkg/behavior"
)

// RGB is one LED pixel.
type RGB struct {
	R, G, B uint8
}

// Frame is the 8x8 pixel buffer in row-major order.
type Frame [64]RGB

// At returns the pixel at row, col.
func (f *Frame) At(row, col int) RGB {
	return f[row*8+col]
}

func (f *Frame) set(row, col int, c RGB) {
	f[row*8+col] = c
}

// Bytes flattens the frame to 192 bytes of packed RGB, row-major.
func (f Frame) Bytes() []byte {
	out := make([]byte, 0, len(f)*3)
	for _, px := range f {
		out = append(out, px.R, px.G, px.B)
	}
	return out
}

// Fixed palette, matching the dashboard legend.
var (
	colorStop      = RGB{0, 255, 0}
	colorWalk      = RGB{255, 255, 0}
	colorRun       = RGB{255, 100, 0}
	colorFall      = RGB{255, 0, 0}
	colorNoFall    = RGB{0, 50, 0}
	colorTurnLeft  = RGB{255, 100, 0}
	colorTurnRight = RGB{0, 255, 255}
	colorNoTurn    = RGB{0, 0, 50}
	colorShout     = RGB{255, 0, 255}
	colorNoShout   = RGB{30, 0, 30}
	colorBarLow    = RGB{0, 0, 255}
	colorBarMed    = RGB{0, 255, 0}
	colorBarHigh   = RGB{255, 255, 0}
	colorCompass   = RGB{0, 0, 255}
)

// 3x3 icons for the four content regions.
var (
	iconStop = [3][3]bool{
		{true, true, true},
		{true, true, true},
		{true, true, true},
	}
	iconWalk = [3][3]bool{
		{false, true, false},
		{true, true, true},
		{true, false, true},
	}
	iconRun = [3][3]bool{
		{false, false, true},
		{true, true, true},
		{true, false, false},
	}
	iconFall = [2][3]bool{
		{true, true, true},
		{true, true, true},
	}
	iconNoFall = [2][3]bool{
		{false, true, false},
		{false, true, false},
	}
	iconShout = [3][3]bool{
		{true, false, true},
		{false, true, false},
		{true, false, true},
	}
	iconNoShout = [3][3]bool{
		{false, false, false},
		{false, true, false},
		{false, false, false},
	}
	arrowLeft  = [3]bool{false, true, true}
	arrowRight = [3]bool{true, true, false}
	noArrow    = [3]bool{false, true, false}
)

// ledEdge lists the 28 border pixels clockwise from the top-left corner,
// used as the compass ring.
var ledEdge = buildEdge()

func buildEdge() []int {
	var edge []int
	for col := 0; col < 8; col++ {
		edge = append(edge, col)
	}
	for row := 1; row < 8; row++ {
		edge = append(edge, row*8+7)
	}
	for col := 6; col >= 0; col-- {
		edge = append(edge, 7*8+col)
	}
	for row := 6; row >= 1; row-- {
		edge = append(edge, row*8)
	}
	return edge
}

// Render maps a detector snapshot to the LED frame. Layout: movement in
// the top-left 3x3, fall plus the turn arrow top-right, shout bottom-left,
// brightness bars bottom-right, compass needle on the border ring.
func Render(snap behavior.StateSnapshot) Frame {
	var f Frame
	drawMovement(&f, snap.Movement)
	drawFallTurn(&f, snap)
	drawShout(&f, snap.Shouting)
	drawBrightness(&f, snap.Brightness)
	drawCompass(&f, snap.Heading)
	return f
}

func drawMovement(f *Frame, state behavior.MovementState) {
	icon, color := iconStop, colorStop
	switch state {
	case behavior.MovementWalk:
		icon, color = iconWalk, colorWalk
	case behavior.MovementRun:
		icon, color = iconRun, colorRun
	}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			if icon[row][col] {
				f.set(row+1, col+1, color)
			}
		}
	}
}

func drawFallTurn(f *Frame, snap behavior.StateSnapshot) {
	fallen := snap.Fall == behavior.FallFallen || snap.Fall == behavior.FallRecovering
	icon, color := iconNoFall, colorNoFall
	if fallen {
		icon, color = iconFall, colorFall
	}
	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			if icon[row][col] {
				f.set(row+1, col+4, color)
			}
		}
	}

	arrow, color := noArrow, colorNoTurn
	if snap.Turning {
		switch snap.TurnDirection {
		case "left":
			arrow, color = arrowLeft, colorTurnLeft
		case "right":
			arrow, color = arrowRight, colorTurnRight
		}
	}
	for col := 0; col < 3; col++ {
		if arrow[col] {
			f.set(3, col+4, color)
		}
	}
}

func drawShout(f *Frame, shouting bool) {
	icon, color := iconNoShout, colorNoShout
	if shouting {
		icon, color = iconShout, colorShout
	}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			if icon[row][col] {
				f.set(row+4, col+1, color)
			}
		}
	}
}

func drawBrightness(f *Frame, state behavior.BrightnessState) {
	bars := []RGB{colorBarLow, {}, {}}
	switch state {
	case behavior.BrightnessNormal:
		bars = []RGB{colorBarLow, colorBarMed, {}}
	case behavior.BrightnessBright:
		bars = []RGB{colorBarLow, colorBarMed, colorBarHigh}
	}
	for i, c := range bars {
		if c == (RGB{}) {
			continue
		}
		for row := 4; row < 7; row++ {
			f.set(row, i+4, c)
		}
	}
}

// drawCompass lights one border pixel as a needle. The heading is
// inverted so the needle points toward north as the wearer rotates.
func drawCompass(f *Frame, heading float64) {
	for heading < 0 {
		heading += 360
	}
	inverted := 360 - heading
	idx := int(inverted/360*float64(len(ledEdge))) % len(ledEdge)
	f[ledEdge[idx]] = colorCompass
}
