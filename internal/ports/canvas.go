package ports

import (
	"image"
	"image/color"
)

// Point is a position in canvas coordinates.
type Point struct {
	X, Y float64
}

// Canvas is the 2D drawing context renderers draw on.
// It mirrors the subset of an HTML canvas context the renderers need.
//
// Coordinates are in layout units; the current transform maps them to backing pixels.
// Every fill and stroke is composited with its color alpha multiplied by GlobalAlpha.
//
// Thread-safety: a Canvas is owned by one controller and is not safe for concurrent use.
type Canvas interface {
	// Size returns the drawable size in layout units (backing size divided by the scale).
	Size() (width, height float64)

	// Clear resets every backing pixel to transparent.
	Clear()

	// SetGlobalAlpha sets the opacity multiplier in [0,1] for subsequent draws.
	SetGlobalAlpha(alpha float64)

	// GlobalAlpha returns the current opacity multiplier.
	GlobalAlpha() float64

	// ResetTransform restores the identity transform.
	ResetTransform()

	// Scale multiplies the current transform by a scale.
	Scale(sx, sy float64)

	FillRect(x, y, w, h float64, c color.NRGBA)
	FillCircle(cx, cy, r float64, c color.NRGBA)
	StrokeCircle(cx, cy, r, width float64, c color.NRGBA)

	// StrokeArc strokes the arc between two angles in radians, clockwise from +X.
	StrokeArc(cx, cy, r, start, end, width float64, c color.NRGBA)

	// StrokePath strokes an open polyline.
	StrokePath(points []Point, width float64, c color.NRGBA)

	// FillPath fills a closed polygon.
	FillPath(points []Point, c color.NRGBA)
}

// Backing is a Canvas whose backing store can be resized and read back.
type Backing interface {
	Canvas

	// SetBackingSize reallocates the backing store. Contents are discarded and
	// the transform is reset, as with an HTML canvas width/height assignment.
	SetBackingSize(width, height int)

	// BackingSize returns the backing store size in device pixels.
	BackingSize() (width, height int)

	// Image returns the backing store contents.
	Image() image.Image
}
