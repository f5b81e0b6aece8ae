// Package widgets provides custom Fyne widgets for the VoiceViz host window.
package widgets

import (
	"errors"
	"image"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
	"github.com/wealthwise/voiceviz/internal/surface"
)

// minVisualizerSize keeps the raster visible in tight layouts.
var minVisualizerSize = fyne.NewSize(160, 80)

// Visualizer is a widget that displays a drawing surface.
//
// It is the bridge between the Fyne layout and the frame loop: layout sizes
// and the canvas scale drive surface.Resize, and every successful Draw
// schedules a raster refresh on the UI thread.
//
// Visualizer satisfies the controller's Surface interface, so the controller
// draws through it instead of through the bare surface.
type Visualizer struct {
	widget.BaseWidget

	logger  *slog.Logger
	surface *surface.Surface
	raster  *canvas.Raster
}

// NewVisualizer creates a visualizer over s.
func NewVisualizer(s *surface.Surface, logger *slog.Logger) *Visualizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	v := &Visualizer{
		logger:  logger,
		surface: s,
	}

	v.raster = canvas.NewRaster(v.draw)
	v.raster.ScaleMode = canvas.ImageScaleSmooth
	v.ExtendBaseWidget(v)

	return v
}

// CreateRenderer implements fyne.Widget.
func (v *Visualizer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.raster)
}

// MinSize returns the minimum size of the visualizer.
func (v *Visualizer) MinSize() fyne.Size {
	return minVisualizerSize
}

// Resize sizes the widget and the surface backing it.
func (v *Visualizer) Resize(size fyne.Size) {
	v.BaseWidget.Resize(size)

	v.surface.SetPixelRatio(v.pixelRatio())
	if _, err := v.surface.Resize(float64(size.Width), float64(size.Height)); err != nil && !errors.Is(err, domain.ErrSurfaceEmpty) {
		v.logger.Warn("failed to resize surface", slog.Any("error", err))
	}
}

// pixelRatio returns the scale of the canvas the widget is on, or 1 before it is shown.
func (v *Visualizer) pixelRatio() float64 {
	app := fyne.CurrentApp()
	if app == nil {
		return 1
	}
	c := app.Driver().CanvasForObject(v)
	if c == nil {
		return 1
	}
	return float64(c.Scale())
}

// draw is the raster generator function.
func (v *Visualizer) draw(w, h int) image.Image {
	if img := v.surface.Snapshot(); img != nil {
		return img
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// Ready reports whether the surface has a drawable area.
func (v *Visualizer) Ready() bool {
	return v.surface.Ready()
}

// QualityHint returns the quality settings of the surface.
func (v *Visualizer) QualityHint() domain.QualitySettings {
	return v.surface.QualityHint()
}

// Draw draws a frame on the surface and schedules a repaint.
func (v *Visualizer) Draw(fn func(ports.Canvas) error) error {
	err := v.surface.Draw(fn)
	if errors.Is(err, domain.ErrSurfaceEmpty) {
		return err
	}
	fyne.Do(v.raster.Refresh)
	return err
}
