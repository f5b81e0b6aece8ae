// Package trace implements ports.Backing by recording draw calls.
// Two renders produce equal traces exactly when they issued the same calls.
package trace

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/wealthwise/voiceviz/internal/ports"
)

// Op names a recorded call.
type Op string

// Recorded operations.
const (
	OpClear          Op = "clear"
	OpResetTransform Op = "reset_transform"
	OpScale          Op = "scale"
	OpFillRect       Op = "fill_rect"
	OpFillCircle     Op = "fill_circle"
	OpStrokeCircle   Op = "stroke_circle"
	OpStrokeArc      Op = "stroke_arc"
	OpStrokePath     Op = "stroke_path"
	OpFillPath       Op = "fill_path"
)

// Call is one recorded draw call. Alpha is the global alpha in effect.
type Call struct {
	Op    Op
	Args  []float64
	Color color.NRGBA
	Alpha float64
}

// String formats the call for failure messages.
func (c Call) String() string {
	return fmt.Sprintf("%s%v %v a=%.3f", c.Op, c.Args, c.Color, c.Alpha)
}

// Canvas records every call made on it.
type Canvas struct {
	width, height int
	sx, sy        float64
	alpha         float64
	calls         []Call
}

// New creates a recording canvas with the given backing size.
func New(width, height int) *Canvas {
	c := &Canvas{}
	c.SetBackingSize(width, height)
	return c
}

// Calls returns the recorded calls.
func (c *Canvas) Calls() []Call { return c.calls }

// Reset drops the recorded calls but keeps size, transform and alpha.
func (c *Canvas) Reset() { c.calls = c.calls[:0] }

// Count returns how many calls of op were recorded.
func (c *Canvas) Count(op Op) int {
	n := 0
	for _, call := range c.calls {
		if call.Op == op {
			n++
		}
	}
	return n
}

// Alphas returns the distinct global alphas used by draw calls, in first-use order.
func (c *Canvas) Alphas() []float64 {
	var out []float64
	seen := map[float64]bool{}
	for _, call := range c.calls {
		if !call.drawing() || seen[call.Alpha] {
			continue
		}
		seen[call.Alpha] = true
		out = append(out, call.Alpha)
	}
	return out
}

// String renders the trace one call per line.
func (c *Canvas) String() string {
	var b strings.Builder
	for _, call := range c.calls {
		b.WriteString(call.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (c Call) drawing() bool {
	switch c.Op {
	case OpClear, OpResetTransform, OpScale:
		return false
	default:
		return true
	}
}

// SetBackingSize implements ports.Backing.
func (c *Canvas) SetBackingSize(width, height int) {
	c.width, c.height = max(0, width), max(0, height)
	c.sx, c.sy = 1, 1
	c.alpha = 1
}

// BackingSize implements ports.Backing.
func (c *Canvas) BackingSize() (int, int) { return c.width, c.height }

// Image returns an empty image of the backing size.
func (c *Canvas) Image() image.Image {
	return image.NewRGBA(image.Rect(0, 0, c.width, c.height))
}

// Size implements ports.Canvas.
func (c *Canvas) Size() (float64, float64) {
	return float64(c.width) / c.sx, float64(c.height) / c.sy
}

// Clear implements ports.Canvas.
func (c *Canvas) Clear() { c.record(OpClear, color.NRGBA{}) }

// SetGlobalAlpha implements ports.Canvas.
func (c *Canvas) SetGlobalAlpha(alpha float64) {
	c.alpha = min(1, max(0, alpha))
}

// GlobalAlpha implements ports.Canvas.
func (c *Canvas) GlobalAlpha() float64 { return c.alpha }

// ResetTransform implements ports.Canvas.
func (c *Canvas) ResetTransform() {
	c.sx, c.sy = 1, 1
	c.record(OpResetTransform, color.NRGBA{})
}

// Scale implements ports.Canvas.
func (c *Canvas) Scale(sx, sy float64) {
	c.sx *= sx
	c.sy *= sy
	c.record(OpScale, color.NRGBA{}, sx, sy)
}

// FillRect implements ports.Canvas.
func (c *Canvas) FillRect(x, y, w, h float64, col color.NRGBA) {
	c.record(OpFillRect, col, x, y, w, h)
}

// FillCircle implements ports.Canvas.
func (c *Canvas) FillCircle(cx, cy, r float64, col color.NRGBA) {
	c.record(OpFillCircle, col, cx, cy, r)
}

// StrokeCircle implements ports.Canvas.
func (c *Canvas) StrokeCircle(cx, cy, r, width float64, col color.NRGBA) {
	c.record(OpStrokeCircle, col, cx, cy, r, width)
}

// StrokeArc implements ports.Canvas.
func (c *Canvas) StrokeArc(cx, cy, r, start, end, width float64, col color.NRGBA) {
	c.record(OpStrokeArc, col, cx, cy, r, start, end, width)
}

// StrokePath implements ports.Canvas. Args are width followed by x,y pairs.
func (c *Canvas) StrokePath(points []ports.Point, width float64, col color.NRGBA) {
	c.record(OpStrokePath, col, flatten(width, points)...)
}

// FillPath implements ports.Canvas. Args are x,y pairs.
func (c *Canvas) FillPath(points []ports.Point, col color.NRGBA) {
	c.record(OpFillPath, col, flatten(0, points)[1:]...)
}

func (c *Canvas) record(op Op, col color.NRGBA, args ...float64) {
	c.calls = append(c.calls, Call{Op: op, Args: args, Color: col, Alpha: c.alpha})
}

func flatten(first float64, points []ports.Point) []float64 {
	out := make([]float64, 0, 1+2*len(points))
	out = append(out, first)
	for _, p := range points {
		out = append(out, p.X, p.Y)
	}
	return out
}

var _ ports.Backing = (*Canvas)(nil)
