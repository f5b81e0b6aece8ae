package domain

import (
	"fmt"
	"strings"
)

// Style selects which renderer draws the visualization.
type Style int

// Available styles.
const (
	StyleWaveform Style = iota
	StyleCircular
	StyleParticle
	StyleBars

	styleCount
)

// DefaultStyle is used when a requested style is unknown and strict mode is off.
const DefaultStyle = StyleWaveform

// Styles lists every style in declaration order.
var Styles = []Style{StyleWaveform, StyleCircular, StyleParticle, StyleBars}

// StyleCount is the number of known styles.
const StyleCount = int(styleCount)

var styleNames = [...]string{
	StyleWaveform: "waveform",
	StyleCircular: "circular",
	StyleParticle: "particle",
	StyleBars:     "bars",
}

var styleLabels = [...]string{
	StyleWaveform: "Waveform",
	StyleCircular: "Circular",
	StyleParticle: "Particles",
	StyleBars:     "Spectrum Bars",
}

// String returns the configuration key of the style.
func (s Style) String() string {
	if !s.Valid() {
		return fmt.Sprintf("style(%d)", int(s))
	}
	return styleNames[s]
}

// Label returns a human readable name for menus.
func (s Style) Label() string {
	if !s.Valid() {
		return s.String()
	}
	return styleLabels[s]
}

// Valid reports whether s is a known style.
func (s Style) Valid() bool {
	return s >= StyleWaveform && s < styleCount
}

// ParseStyle converts a configuration key to a Style.
// Unknown keys return ErrUnsupportedStyle.
func ParseStyle(name string) (Style, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, s := range Styles {
		if styleNames[s] == key {
			return s, nil
		}
	}
	return DefaultStyle, fmt.Errorf("%w: %q", ErrUnsupportedStyle, name)
}

// ParseStyleLabel converts a menu label back to a Style.
func ParseStyleLabel(label string) (Style, error) {
	for _, s := range Styles {
		if styleLabels[s] == label {
			return s, nil
		}
	}
	return ParseStyle(label)
}
