package modulation

import (
	"math"

	"github.com/james-see/multienv/pkg/envelope"
)

var (
	_ Envelope = (*EnvelopeModulator)(nil)
	_ Source   = (*Curve)(nil)
)

// EnvelopeModulator drives a control from an envelope triggered by notes
// or pulses. Its methods must be called from the goroutine that owns the
// voice; the definition may be edited elsewhere.
type EnvelopeModulator struct {
	def   *envelope.Definition
	rt    *envelope.Runtime
	clock Clock

	// Output is the low/high remap applied to the envelope level
	Output Range
	// Target is the range of the modulated control. Results are clamped to it.
	Target Range
	// UseVelocity scales the envelope by note velocity
	UseVelocity bool

	held map[int]struct{}
}

// NewEnvelopeModulator creates a modulator with a default 10/100/0.5/100 ADSR
func NewEnvelopeModulator(clock Clock) *EnvelopeModulator {
	def := envelope.NewADSR(10, 100, 0.5, 100)
	return &EnvelopeModulator{
		def:    def,
		rt:     envelope.NewRuntime(def),
		clock:  clock,
		Output: Unit,
		Target: Unit,
		held:   make(map[int]struct{}),
	}
}

// Definition returns the envelope an editor should attach to
func (m *EnvelopeModulator) Definition() *envelope.Definition {
	return m.def
}

// Runtime returns the live voice, for drawing a playhead
func (m *EnvelopeModulator) Runtime() *envelope.Runtime {
	return m.rt
}

// SetDefinition swaps the envelope. The voice follows the new definition.
func (m *EnvelopeModulator) SetDefinition(def *envelope.Definition) {
	m.def = def
	m.rt.Bind(def)
}

// Value returns the remapped envelope level offset milliseconds from now
func (m *EnvelopeModulator) Value(offset float64) float64 {
	var now float64
	if m.clock != nil {
		now = m.clock.Now()
	}
	v := m.Output.Lerp(m.rt.Value(now + offset))
	if math.IsNaN(v) {
		return m.Target.Clamp(0)
	}
	return m.Target.Clamp(v)
}

// Start triggers the envelope
func (m *EnvelopeModulator) Start(time, amplitudeScale float64) {
	m.rt.Start(time, amplitudeScale)
}

// StartFrom triggers the envelope on a copy of src taken now
func (m *EnvelopeModulator) StartFrom(time float64, src *envelope.Definition) {
	m.rt.StartFrom(time, 1, src)
}

// Stop releases the envelope
func (m *EnvelopeModulator) Stop(time float64) {
	m.rt.Stop(time)
}

// PlayNote tracks held notes. A note on retriggers the envelope and the
// last note off releases it.
func (m *EnvelopeModulator) PlayNote(time float64, pitch, velocity int) {
	if velocity > 0 {
		m.held[pitch] = struct{}{}
	} else {
		delete(m.held, pitch)
	}

	if len(m.held) == 0 {
		m.rt.Stop(time)
	} else if velocity > 0 {
		m.rt.Start(time, m.amplitude(float64(velocity)))
	}
}

// OnPulse retriggers the envelope
func (m *EnvelopeModulator) OnPulse(time, velocity float64) {
	m.rt.Start(time, m.amplitude(velocity))
}

// HeldNotes returns the number of notes currently down
func (m *EnvelopeModulator) HeldNotes() int {
	return len(m.held)
}

func (m *EnvelopeModulator) amplitude(velocity float64) float64 {
	if m.UseVelocity {
		return velocity / 127
	}
	return 1
}
