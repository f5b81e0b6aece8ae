package render

import (
	"github.com/wealthwise/voiceviz/internal/domain"
	"github.com/wealthwise/voiceviz/internal/ports"
)

// Layer is one state drawn during a frame, with its blend opacity.
type Layer struct {
	State domain.VisualState
	Alpha float64
}

// Layers returns the states to draw for opts, current first.
//
// While a transition runs the current state gets 1-ease(p) and the target
// ease(p); layers with no opacity are dropped, so p=0 draws exactly the current
// state and p=1 exactly the target.
func Layers(opts Options) []Layer {
	if opts.Progress >= 1 || opts.Current == opts.Target {
		return []Layer{{State: opts.Target, Alpha: 1}}
	}

	e := EaseInOutCubic(opts.Progress)
	layers := make([]Layer, 0, 2)
	if a := 1 - e; a > 0 {
		layers = append(layers, Layer{State: opts.Current, Alpha: a})
	}
	if e > 0 {
		layers = append(layers, Layer{State: opts.Target, Alpha: e})
	}
	return layers
}

// Blend calls draw once per layer with the canvas global alpha set to the layer
// opacity. The previous global alpha is restored afterwards.
func Blend(c ports.Canvas, opts Options, draw func(Layer) error) error {
	base := c.GlobalAlpha()
	defer c.SetGlobalAlpha(base)

	for _, layer := range Layers(opts) {
		c.SetGlobalAlpha(base * layer.Alpha)
		if err := draw(layer); err != nil {
			return err
		}
	}
	return nil
}
