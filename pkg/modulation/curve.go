package modulation

import (
	"math"

	"github.com/james-see/multienv/pkg/editor"
	"github.com/james-see/multienv/pkg/envelope"
)

// CurveLength is the time axis of a transfer curve in milliseconds
const CurveLength = 10000.0

// Curve shapes an input in [0, 1] through an envelope drawn over a fixed
// time axis. The input selects the point on the axis to read.
type Curve struct {
	def   *envelope.Definition
	rt    *envelope.Runtime
	input float64

	Output Range
}

// NewCurve creates a linear 0 to 1 curve
func NewCurve() *Curve {
	def := envelope.NewDefinition([]envelope.Stage{
		{Target: 0, Duration: 0.01},
		{Target: 1, Duration: CurveLength - 0.02},
	}, envelope.NoSustain)
	rt := envelope.NewRuntime(def)
	rt.Start(0, 1)
	rt.Stop(CurveLength)
	return &Curve{def: def, rt: rt, Output: Unit}
}

// Definition returns the curve an editor should attach to
func (c *Curve) Definition() *envelope.Definition {
	return c.def
}

// EditorConfig returns editor settings for a curve of the given size. The
// view is pinned to the whole curve.
func (c *Curve) EditorConfig(width, height float64) editor.Config {
	return editor.Config{
		Width:       width,
		Height:      height,
		ViewLength:  CurveLength,
		FixedLength: true,
	}
}

// SetInput sets the position read from the curve, clamped to [0, 1]
func (c *Curve) SetInput(x float64) {
	if math.IsNaN(x) {
		x = 0
	}
	c.input = math.Max(0, math.Min(1, x))
}

// Input returns the current input
func (c *Curve) Input() float64 {
	return c.input
}

// Value returns the curve level at the current input, remapped by Output.
// The offset is ignored; a curve has no notion of time.
func (c *Curve) Value(float64) float64 {
	v := math.Max(0, math.Min(1, c.rt.Value(c.input*CurveLength)))
	if math.IsNaN(v) {
		v = 0
	}
	return c.Output.Lerp(v)
}
