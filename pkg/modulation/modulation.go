// Package modulation exposes envelopes to consumers as plain control
// signals. Consumers see a Source and never touch stages or the editor.
package modulation

import (
	"math"
	"sync/atomic"
)

// Source yields a control value offset milliseconds from now
type Source interface {
	Value(offset float64) float64
}

// Envelope is a Source that can be triggered and released
type Envelope interface {
	Source
	Start(time, amplitudeScale float64)
	Stop(time float64)
}

// Clock reports the current time in milliseconds
type Clock interface {
	Now() float64
}

// ClockFunc adapts a function to Clock
type ClockFunc func() float64

// Now calls f
func (f ClockFunc) Now() float64 { return f() }

// SampleClock counts rendered frames. The audio goroutine advances it and
// any other goroutine may read it.
type SampleClock struct {
	frames     atomic.Int64
	sampleRate float64
}

// NewSampleClock creates a clock for the given sample rate in Hz
func NewSampleClock(sampleRate float64) *SampleClock {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &SampleClock{sampleRate: sampleRate}
}

// Advance moves the clock forward by n frames
func (c *SampleClock) Advance(n int) {
	c.frames.Add(int64(n))
}

// Frames returns the number of frames rendered so far
func (c *SampleClock) Frames() int64 {
	return c.frames.Load()
}

// Now returns the elapsed time in milliseconds
func (c *SampleClock) Now() float64 {
	return float64(c.frames.Load()) * 1000 / c.sampleRate
}

// SamplesToMs converts a frame count to milliseconds
func (c *SampleClock) SamplesToMs(n int) float64 {
	return float64(n) * 1000 / c.sampleRate
}

// Range maps the unit interval onto [Min, Max]
type Range struct {
	Min float64
	Max float64
}

// Unit is the identity range
var Unit = Range{Min: 0, Max: 1}

// Lerp maps v from [0, 1] into the range without clamping
func (r Range) Lerp(v float64) float64 {
	return r.Min + (r.Max-r.Min)*v
}

// Clamp limits v to the range. Inverted ranges are handled.
func (r Range) Clamp(v float64) float64 {
	lo, hi := r.Min, r.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Max(lo, math.Min(hi, v))
}
