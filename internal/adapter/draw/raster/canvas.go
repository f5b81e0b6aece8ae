// Package raster implements ports.Backing on an in-memory RGBA image.
// Paths are scan-converted with golang.org/x/image/vector and composited with draw.Over.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/wealthwise/voiceviz/internal/ports"
)

// Canvas is a software 2D context.
//
// Thread-safety: not safe for concurrent use; the surface serializes access.
type Canvas struct {
	img   *image.RGBA
	rast  *vector.Rasterizer
	src   image.Uniform
	sx    float64
	sy    float64
	alpha float64
}

// New creates a canvas with a width x height backing store.
func New(width, height int) *Canvas {
	c := &Canvas{}
	c.SetBackingSize(width, height)
	return c
}

// SetBackingSize reallocates the backing store and resets the transform and alpha.
func (c *Canvas) SetBackingSize(width, height int) {
	width, height = max(0, width), max(0, height)
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
	if c.rast == nil {
		c.rast = vector.NewRasterizer(width, height)
	} else {
		c.rast.Reset(width, height)
	}
	c.sx, c.sy = 1, 1
	c.alpha = 1
}

// BackingSize returns the backing store size in pixels.
func (c *Canvas) BackingSize() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Image returns the backing store. The caller must not retain it across draws.
func (c *Canvas) Image() image.Image { return c.img }

// Size returns the size in layout units.
func (c *Canvas) Size() (float64, float64) {
	w, h := c.BackingSize()
	return float64(w) / c.sx, float64(h) / c.sy
}

// Clear resets every pixel to transparent.
func (c *Canvas) Clear() {
	clear(c.img.Pix)
}

// SetGlobalAlpha clamps alpha to [0,1].
func (c *Canvas) SetGlobalAlpha(alpha float64) {
	c.alpha = clamp01(alpha)
}

// GlobalAlpha returns the current opacity multiplier.
func (c *Canvas) GlobalAlpha() float64 { return c.alpha }

// ResetTransform restores the identity transform.
func (c *Canvas) ResetTransform() { c.sx, c.sy = 1, 1 }

// Scale multiplies the current transform.
func (c *Canvas) Scale(sx, sy float64) {
	c.sx *= sx
	c.sy *= sy
}

// FillRect fills an axis-aligned rectangle.
func (c *Canvas) FillRect(x, y, w, h float64, col color.NRGBA) {
	c.FillPath([]ports.Point{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}, col)
}

// FillCircle fills a disc.
func (c *Canvas) FillCircle(cx, cy, r float64, col color.NRGBA) {
	if r <= 0 || c.offscreen(cx, cy, r) || !c.begin() {
		return
	}
	c.circle(cx, cy, r, false)
	c.paint(col)
}

// StrokeCircle strokes a ring of the given width centered on radius r.
func (c *Canvas) StrokeCircle(cx, cy, r, width float64, col color.NRGBA) {
	if r <= 0 || width <= 0 || c.offscreen(cx, cy, r+width) || !c.begin() {
		return
	}
	c.circle(cx, cy, r+width/2, false)
	if inner := r - width/2; inner > 0 {
		c.circle(cx, cy, inner, true)
	}
	c.paint(col)
}

// StrokeArc strokes an arc from start to end radians.
func (c *Canvas) StrokeArc(cx, cy, r, start, end, width float64, col color.NRGBA) {
	if r <= 0 || width <= 0 || end == start {
		return
	}
	steps := max(2, int(math.Abs(end-start)*r*math.Max(c.sx, c.sy)/4))
	steps = min(steps, 128)
	pts := make([]ports.Point, steps+1)
	for i := range pts {
		a := start + (end-start)*float64(i)/float64(steps)
		pts[i] = ports.Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	c.StrokePath(pts, width, col)
}

// StrokePath strokes a polyline with butt caps. Each segment becomes a quad
// with the same winding, so overlapping joints do not cancel.
func (c *Canvas) StrokePath(points []ports.Point, width float64, col color.NRGBA) {
	if len(points) < 2 || width <= 0 || !c.begin() {
		return
	}
	half := width / 2

	drawn := false
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		dx, dy := b.X-a.X, b.Y-a.Y
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		nx, ny := -dy/length*half, dx/length*half

		c.moveTo(a.X+nx, a.Y+ny)
		c.lineTo(b.X+nx, b.Y+ny)
		c.lineTo(b.X-nx, b.Y-ny)
		c.lineTo(a.X-nx, a.Y-ny)
		c.rast.ClosePath()
		drawn = true
	}
	if drawn {
		c.paint(col)
	}
}

// FillPath fills a closed polygon.
func (c *Canvas) FillPath(points []ports.Point, col color.NRGBA) {
	if len(points) < 3 || !c.begin() {
		return
	}
	c.moveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		c.lineTo(p.X, p.Y)
	}
	c.rast.ClosePath()
	c.paint(col)
}

// begin resets the rasterizer. It reports false when there is nothing to draw on.
func (c *Canvas) begin() bool {
	b := c.img.Bounds()
	if b.Empty() {
		return false
	}
	c.rast.Reset(b.Dx(), b.Dy())
	return true
}

// offscreen reports whether the box around (cx, cy) with radius r misses the backing store.
func (c *Canvas) offscreen(cx, cy, r float64) bool {
	w, h := c.Size()
	return cx+r < 0 || cy+r < 0 || cx-r > w || cy-r > h
}

// circle adds a closed polygon approximating a circle. Reversed circles cut holes.
func (c *Canvas) circle(cx, cy, r float64, reverse bool) {
	segments := min(96, max(16, int(r*math.Max(c.sx, c.sy)/2)))
	for i := 0; i <= segments; i++ {
		k := i
		if reverse {
			k = segments - i
		}
		a := 2 * math.Pi * float64(k) / float64(segments)
		x, y := cx+r*math.Cos(a), cy+r*math.Sin(a)
		if i == 0 {
			c.moveTo(x, y)
		} else {
			c.lineTo(x, y)
		}
	}
	c.rast.ClosePath()
}

func (c *Canvas) moveTo(x, y float64) {
	c.rast.MoveTo(float32(x*c.sx), float32(y*c.sy))
}

func (c *Canvas) lineTo(x, y float64) {
	c.rast.LineTo(float32(x*c.sx), float32(y*c.sy))
}

// paint composites the accumulated path with col at the global alpha.
func (c *Canvas) paint(col color.NRGBA) {
	a := float64(col.A) * c.alpha
	if a <= 0 {
		return
	}
	col.A = uint8(math.Round(a))
	c.src.C = col
	c.rast.DrawOp = draw.Over
	c.rast.Draw(c.img, c.img.Bounds(), &c.src, image.Point{})
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

var _ ports.Backing = (*Canvas)(nil)
