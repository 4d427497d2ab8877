package envelope

import "math"

// Runtime is a time-stamped instance of an envelope. It either follows a
// shared Definition (live edits become audible immediately) or evaluates a
// pinned snapshot taken by StartFrom, Clone or Set.
//
// A Runtime has a single owner. Value never mutates it, so the owner can
// query it from the audio path while another goroutine edits the bound
// definition.
type Runtime struct {
	def *Definition

	pinned   Snapshot
	isPinned bool

	startTime float64
	stopTime  float64
	started   bool
	stopped   bool
	amplitude float64
}

// NewRuntime creates a runtime bound to def
func NewRuntime(def *Definition) *Runtime {
	return &Runtime{def: def, amplitude: 1}
}

// Bind follows def from now on, dropping any pinned snapshot
func (r *Runtime) Bind(def *Definition) {
	r.def = def
	r.isPinned = false
	r.pinned = Snapshot{}
}

// Definition returns the bound definition
func (r *Runtime) Definition() *Definition {
	return r.def
}

// Start triggers the envelope at time with the given amplitude scale.
// Playback always begins at IdleLevel, so retriggering a voice that is
// still sounding jumps back to the idle level.
func (r *Runtime) Start(time, amplitudeScale float64) {
	r.startTime = time
	r.amplitude = amplitudeScale
	r.started = true
	r.stopped = false
	r.stopTime = 0
}

// StartFrom triggers the envelope like Start, but evaluates a copy of src
// taken now. Later edits to src do not reach this voice.
func (r *Runtime) StartFrom(time, amplitudeScale float64, src *Definition) {
	r.pin(src.Snapshot())
	r.Start(time, amplitudeScale)
}

// Stop releases the envelope. Times before the trigger are ignored.
func (r *Runtime) Stop(time float64) {
	if !r.started || time < r.startTime {
		return
	}
	r.stopTime = time
	r.stopped = true
}

// Clear forgets the trigger and release
func (r *Runtime) Clear() {
	r.started = false
	r.stopped = false
	r.startTime = 0
	r.stopTime = 0
}

// StartTime returns the trigger time and whether the runtime was started
func (r *Runtime) StartTime() (float64, bool) {
	return r.startTime, r.started
}

// StopTime returns the release time and whether a release was recorded
func (r *Runtime) StopTime() (float64, bool) {
	return r.stopTime, r.stopped
}

// Clone returns an independent runtime evaluating a snapshot of r's stages
func (r *Runtime) Clone() *Runtime {
	c := &Runtime{}
	c.Set(r)
	return c
}

// Set turns r into a copy of other. The stage buffer of r is reused, which
// keeps per-frame preview copies cheap.
func (r *Runtime) Set(other *Runtime) {
	r.def = other.def
	r.pin(other.snapshot())
	r.startTime = other.startTime
	r.stopTime = other.stopTime
	r.started = other.started
	r.stopped = other.stopped
	r.amplitude = other.amplitude
}

func (r *Runtime) pin(s Snapshot) {
	stages := append(r.pinned.Stages[:0], s.Stages...)
	r.pinned = s
	r.pinned.Stages = stages
	r.isPinned = true
}

// Snapshot returns a copy of the stages the runtime currently evaluates
func (r *Runtime) Snapshot() Snapshot {
	if r.isPinned {
		return r.pinned.Clone()
	}
	return r.snapshot()
}

func (r *Runtime) snapshot() Snapshot {
	if r.isPinned {
		return r.pinned
	}
	if r.def == nil {
		return Snapshot{SustainStage: NoSustain, MaxSustain: Indefinite, TimeScale: 1}
	}
	return r.def.Snapshot()
}

// Value returns the envelope level at time t
func (r *Runtime) Value(t float64) float64 {
	if !r.started {
		return IdleLevel
	}
	v := r.amplitude * r.evaluate(r.snapshot(), t)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return IdleLevel
	}
	return v
}

// Held reports whether the envelope sits on its sustain plateau at time t
func (r *Runtime) Held(t float64) bool {
	s := r.snapshot()
	if !r.started || !s.HasSustain() || len(s.Stages) == 0 {
		return false
	}
	elapsed := math.Max(t-r.startTime, 0)
	if elapsed < s.sustainEnd() {
		return false
	}
	releaseAt, released := r.releaseAt(s)
	return !released || elapsed < releaseAt
}

// Done reports whether every stage has completed at time t. A held
// envelope is never done.
func (r *Runtime) Done(t float64) bool {
	if !r.started {
		return true
	}
	s := r.snapshot()
	if len(s.Stages) == 0 {
		return true
	}
	elapsed := math.Max(t-r.startTime, 0)
	if !s.HasSustain() {
		return elapsed >= totalDuration(s.Stages, s.TimeScale)
	}
	releaseAt, released := r.releaseAt(s)
	if !released {
		return false
	}
	return elapsed >= releaseAt+totalDuration(s.Stages[s.SustainStage+1:], s.TimeScale)
}

func (r *Runtime) evaluate(s Snapshot, t float64) float64 {
	if len(s.Stages) == 0 {
		return IdleLevel
	}
	elapsed := math.Max(t-r.startTime, 0)
	if !s.HasSustain() {
		return walk(s.Stages, s.TimeScale, IdleLevel, elapsed)
	}
	held := s.Stages[:s.SustainStage+1]
	releaseAt, released := r.releaseAt(s)
	if !released || elapsed < releaseAt {
		return walk(held, s.TimeScale, IdleLevel, elapsed)
	}
	from := walk(held, s.TimeScale, IdleLevel, releaseAt)
	return walk(s.Stages[s.SustainStage+1:], s.TimeScale, from, elapsed-releaseAt)
}

// releaseAt returns the release time relative to the trigger. The sustain
// ends at the recorded stop or when the max sustain runs out.
func (r *Runtime) releaseAt(s Snapshot) (float64, bool) {
	at, ok := 0.0, false
	if r.stopped {
		at, ok = r.stopTime-r.startTime, true
	}
	if s.MaxSustain != Indefinite {
		limit := s.sustainEnd() + s.MaxSustain
		if !ok || limit < at {
			at, ok = limit, true
		}
	}
	return at, ok
}

// walk interpolates linearly through stages starting at level. Each stage
// starts where the previous one ended, so the result is continuous in t.
func walk(stages []Stage, scale, level, t float64) float64 {
	for _, st := range stages {
		d := st.Duration * scale
		if t < d {
			return level + (st.Target-level)*(t/d)
		}
		t -= d
		level = st.Target
	}
	return level
}

func totalDuration(stages []Stage, scale float64) float64 {
	var total float64
	for _, st := range stages {
		total += st.Duration * scale
	}
	return total
}
