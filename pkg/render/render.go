// Package render plays an envelope offline and writes the result as a
// control signal (WAV) or as MIDI controller automation
package render

import (
	"math"

	"github.com/james-see/multienv/pkg/envelope"
)

// Gate describes one offline note. All times are in milliseconds.
type Gate struct {
	// Hold is when the note is released, measured from the trigger
	Hold float64
	// Length is the rendered duration. Zero renders until the tail ends.
	Length float64
	// Step is the sampling interval. Zero means one millisecond.
	Step float64
	// Amplitude scales the envelope. Zero means full scale.
	Amplitude float64
}

// DefaultGate holds for half a second and renders the complete tail
var DefaultGate = Gate{Hold: 500, Step: 1}

// MaxSamples bounds the output of Sample
const MaxSamples = 10_000_000

// StepForRate returns the sampling interval for a sample rate in Hz
func StepForRate(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 1
	}
	return 1000 / float64(sampleRate)
}

// Duration returns the time Sample covers for def
func (g Gate) Duration(def *envelope.Definition) float64 {
	if g.Length > 0 {
		return g.Length
	}
	s := def.Snapshot()
	tail := 0.0
	from := 0
	if s.HasSustain() {
		from = s.SustainStage + 1
	}
	for _, st := range s.Stages[from:] {
		tail += st.Duration * s.TimeScale
	}
	end := math.Max(g.Hold, 0) + tail
	if !s.HasSustain() {
		end = tail
	}
	if math.IsInf(end, 0) || math.IsNaN(end) {
		return 0
	}
	return end
}

// Interval returns the sampling interval, one millisecond unless Step is
// positive
func (g Gate) Interval() float64 {
	if !(g.Step > 0) {
		return 1
	}
	return g.Step
}

// Samples returns how many values Sample produces for def, at most
// MaxSamples
func (g Gate) Samples(def *envelope.Definition) int {
	f := math.Ceil(g.Duration(def)/g.Interval()) + 1
	if math.IsNaN(f) || f > MaxSamples {
		return MaxSamples
	}
	return int(f)
}

// Sample evaluates def from trigger to the end of the gate. The result
// holds one value per step.
func Sample(def *envelope.Definition, g Gate) []float64 {
	step := g.Interval()
	amp := g.Amplitude
	if amp == 0 {
		amp = 1
	}
	n := g.Samples(def)

	rt := envelope.NewRuntime(nil)
	rt.StartFrom(0, amp, def)
	rt.Stop(math.Max(g.Hold, 0))

	values := make([]float64, n)
	for i := range values {
		values[i] = rt.Value(float64(i) * step)
	}
	return values
}
