package render

import (
	"io"
	"math"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// MIDIOptions configures controller automation output
type MIDIOptions struct {
	Channel         uint8
	Controller      uint8
	Tempo           float64
	TicksPerQuarter uint16
	// Step is the time between values in milliseconds
	Step float64
}

// DefaultMIDIOptions writes CC 1 on channel 1 at 120 BPM
var DefaultMIDIOptions = MIDIOptions{
	Channel:         0,
	Controller:      1,
	Tempo:           120,
	TicksPerQuarter: 480,
	Step:            1,
}

func (o MIDIOptions) withDefaults() MIDIOptions {
	if o.Tempo <= 0 {
		o.Tempo = DefaultMIDIOptions.Tempo
	}
	if o.TicksPerQuarter == 0 {
		o.TicksPerQuarter = DefaultMIDIOptions.TicksPerQuarter
	}
	if o.Step <= 0 {
		o.Step = DefaultMIDIOptions.Step
	}
	o.Channel &= 0x0F
	o.Controller &= 0x7F
	return o
}

// ControllerValue maps a level in [0, 1] to a 7-bit controller value
func ControllerValue(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 127))
}

// WriteMIDI writes values as a single track of control change events.
// Only changes are written, so a flat sustain costs nothing.
func WriteMIDI(w io.Writer, values []float64, opts MIDIOptions) error {
	opts = opts.withDefaults()

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(opts.TicksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaTempo(opts.Tempo))

	// ticks per millisecond at the configured tempo
	ticksPerMs := float64(opts.TicksPerQuarter) * opts.Tempo / 60000
	var lastTick uint32
	last := -1
	for i, v := range values {
		cc := int(ControllerValue(v))
		if cc == last {
			continue
		}
		tick := uint32(math.Round(float64(i) * opts.Step * ticksPerMs))
		track.Add(tick-lastTick, midi.ControlChange(opts.Channel, opts.Controller, uint8(cc)))
		lastTick = tick
		last = cc
	}

	end := uint32(math.Round(float64(len(values)) * opts.Step * ticksPerMs))
	if end < lastTick {
		end = lastTick
	}
	track.Close(end - lastTick)

	if err := s.Add(track); err != nil {
		return errors.Wrap(err, "failed to add track")
	}
	if _, err := s.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write MIDI")
	}
	return nil
}
