package trace

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wealthwise/voiceviz/internal/ports"
)

func TestCanvas_RecordsCallsWithAlpha(t *testing.T) {
	c := New(100, 50)
	col := color.NRGBA{R: 1, G: 2, B: 3, A: 4}

	c.Clear()
	c.SetGlobalAlpha(0.25)
	c.FillRect(1, 2, 3, 4, col)
	c.SetGlobalAlpha(1)
	c.StrokePath([]ports.Point{{X: 0, Y: 1}, {X: 2, Y: 3}}, 1.5, col)
	c.FillPath([]ports.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}, col)

	calls := c.Calls()
	assert.Len(t, calls, 4)
	assert.Equal(t, OpClear, calls[0].Op)
	assert.Equal(t, Call{Op: OpFillRect, Args: []float64{1, 2, 3, 4}, Color: col, Alpha: 0.25}, calls[1])
	assert.Equal(t, []float64{1.5, 0, 1, 2, 3}, calls[2].Args)
	assert.Equal(t, []float64{0, 0, 1, 0, 1, 1}, calls[3].Args)

	assert.Equal(t, []float64{0.25, 1}, c.Alphas())
	assert.Equal(t, 1, c.Count(OpFillRect))
	assert.Contains(t, c.String(), "fill_rect[1 2 3 4]")

	c.Reset()
	assert.Empty(t, c.Calls())
}

func TestCanvas_TransformAffectsSize(t *testing.T) {
	c := New(300, 200)
	c.Scale(2, 2)
	w, h := c.Size()
	assert.Equal(t, 150.0, w)
	assert.Equal(t, 100.0, h)

	c.ResetTransform()
	w, _ = c.Size()
	assert.Equal(t, 300.0, w)
	assert.Equal(t, 2, c.Count(OpScale)+c.Count(OpResetTransform))
}
