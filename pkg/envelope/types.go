// Package envelope provides the multi-stage envelope model and its evaluator
package envelope

import "math"

const (
	// NoSustain marks a definition without a sustain stage
	NoSustain = -1
	// Indefinite marks a sustain hold without a time limit
	Indefinite = -1.0
	// MinDuration is the shortest stage duration in milliseconds
	MinDuration = 0.001
	// IdleLevel is returned whenever there is nothing meaningful to evaluate
	IdleLevel = 0.0
	// DefaultStageDuration is used for stages created without an explicit duration
	DefaultStageDuration = 100.0
)

// Stage is one segment of an envelope
type Stage struct {
	Target   float64 // level reached at the end of the stage
	Duration float64 // length in milliseconds
}

// Snapshot is an immutable copy of a definition's contents
type Snapshot struct {
	Stages       []Stage
	SustainStage int
	MaxSustain   float64
	TimeScale    float64
}

// HasSustain reports whether the snapshot holds at a sustain stage
func (s Snapshot) HasSustain() bool {
	return s.SustainStage != NoSustain
}

// IsStandardADSR reports whether the stages follow the attack, decay,
// sustain, release layout
func (s Snapshot) IsStandardADSR() bool {
	return len(s.Stages) == 4 && s.SustainStage == 2
}

// Clone returns a deep copy
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Stages = append([]Stage(nil), s.Stages...)
	return c
}

// normalized returns a copy that satisfies every definition invariant
func (s Snapshot) normalized() Snapshot {
	n := s.Clone()
	for i := range n.Stages {
		n.Stages[i].Duration = clampDuration(n.Stages[i].Duration)
	}
	if !validSustain(n.SustainStage, len(n.Stages)) {
		n.SustainStage = NoSustain
	}
	if n.MaxSustain < 0 || math.IsNaN(n.MaxSustain) {
		n.MaxSustain = Indefinite
	}
	if n.TimeScale <= 0 || math.IsNaN(n.TimeScale) || math.IsInf(n.TimeScale, 0) {
		n.TimeScale = 1
	}
	return n
}

// sustainEnd returns the time at which the sustain stage completes
func (s Snapshot) sustainEnd() float64 {
	var t float64
	for i := 0; i <= s.SustainStage && i < len(s.Stages); i++ {
		t += s.Stages[i].Duration * s.TimeScale
	}
	return t
}

// A sustain stage must sit strictly between the first and the last stage.
func validSustain(index, numStages int) bool {
	return index > 0 && index < numStages-1
}

func clampDuration(d float64) float64 {
	if math.IsNaN(d) || d < MinDuration {
		return MinDuration
	}
	return d
}
