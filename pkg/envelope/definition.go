package envelope

import (
	"math"
	"sync"
	"sync/atomic"
)

// Definition stores an ordered list of stages plus the envelope-level
// settings. Readers load an immutable snapshot without locking, so the
// audio path never blocks on an editor. Writers are serialized and publish
// a fresh snapshot after every change.
type Definition struct {
	mu    sync.Mutex
	state atomic.Pointer[Snapshot]
}

// NewDefinition creates a definition from stages and a sustain index
func NewDefinition(stages []Stage, sustainStage int) *Definition {
	d := &Definition{}
	d.store(Snapshot{
		Stages:       stages,
		SustainStage: sustainStage,
		MaxSustain:   Indefinite,
		TimeScale:    1,
	})
	return d
}

// NewADSR creates a standard four stage envelope
func NewADSR(attack, decay, sustain, release float64) *Definition {
	return NewDefinition([]Stage{
		{Target: 1, Duration: attack},
		{Target: sustain, Duration: decay},
		{Target: sustain, Duration: MinDuration},
		{Target: 0, Duration: release},
	}, 2)
}

// NewAR creates a two stage attack/release envelope without sustain
func NewAR(attack, release float64) *Definition {
	return NewDefinition([]Stage{
		{Target: 1, Duration: attack},
		{Target: 0, Duration: release},
	}, NoSustain)
}

// FromSnapshot creates a definition holding a copy of s
func FromSnapshot(s Snapshot) *Definition {
	d := &Definition{}
	d.store(s)
	return d
}

// Snapshot returns the current contents. The returned value must be
// treated as read-only; use Clone before modifying it.
func (d *Definition) Snapshot() Snapshot {
	if s := d.state.Load(); s != nil {
		return *s
	}
	return Snapshot{SustainStage: NoSustain, MaxSustain: Indefinite, TimeScale: 1}
}

// Replace swaps in new contents after validating them
func (d *Definition) Replace(s Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.store(s)
}

// store must be called with mu held (or before the definition is shared)
func (d *Definition) store(s Snapshot) {
	n := s.normalized()
	d.state.Store(&n)
}

// Edit applies f to a private copy of the contents and publishes the result
// as one change. The result is validated like every other mutation.
func (d *Definition) Edit(f func(s *Snapshot)) {
	d.update(f)
}

func (d *Definition) update(f func(s *Snapshot)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.Snapshot().Clone()
	f(&s)
	d.store(s)
}

// NumStages returns the number of stages
func (d *Definition) NumStages() int {
	return len(d.Snapshot().Stages)
}

// Stage returns the stage at index i
func (d *Definition) Stage(i int) (Stage, bool) {
	s := d.Snapshot()
	if i < 0 || i >= len(s.Stages) {
		return Stage{}, false
	}
	return s.Stages[i], true
}

// SustainStage returns the sustain index or NoSustain
func (d *Definition) SustainStage() int {
	return d.Snapshot().SustainStage
}

// HasSustain reports whether a sustain stage is set
func (d *Definition) HasSustain() bool {
	return d.Snapshot().HasSustain()
}

// MaxSustain returns the sustain cap in milliseconds or Indefinite
func (d *Definition) MaxSustain() float64 {
	return d.Snapshot().MaxSustain
}

// TimeScale returns the duration multiplier
func (d *Definition) TimeScale() float64 {
	return d.Snapshot().TimeScale
}

// IsStandardADSR reports whether the definition uses the four stage layout
func (d *Definition) IsStandardADSR() bool {
	return d.Snapshot().IsStandardADSR()
}

// AddStage appends a stage
func (d *Definition) AddStage(st Stage) {
	d.update(func(s *Snapshot) {
		s.Stages = append(s.Stages, st)
	})
}

// InsertStage inserts a stage before index i. Indices past the end append.
// A sustain stage at or after i moves along with its stage.
func (d *Definition) InsertStage(i int, st Stage) {
	d.update(func(s *Snapshot) {
		if i < 0 {
			i = 0
		}
		if i >= len(s.Stages) {
			s.Stages = append(s.Stages, st)
			return
		}
		s.Stages = append(s.Stages[:i], append([]Stage{st}, s.Stages[i:]...)...)
		if s.SustainStage != NoSustain && s.SustainStage >= i {
			s.SustainStage++
		}
	})
}

// RemoveStage deletes the stage at index i. Removing the sustain stage
// clears sustain; removing an earlier stage shifts the index down.
func (d *Definition) RemoveStage(i int) {
	d.update(func(s *Snapshot) {
		if i < 0 || i >= len(s.Stages) {
			return
		}
		s.Stages = append(s.Stages[:i], s.Stages[i+1:]...)
		switch {
		case s.SustainStage == i:
			s.SustainStage = NoSustain
		case s.SustainStage > i:
			s.SustainStage--
		}
	})
}

// SetStageCount grows or shrinks the stage list to n stages. New stages
// continue from the last target.
func (d *Definition) SetStageCount(n int) {
	if n < 0 {
		n = 0
	}
	d.update(func(s *Snapshot) {
		if n <= len(s.Stages) {
			s.Stages = s.Stages[:n]
			return
		}
		last := Stage{Target: IdleLevel, Duration: DefaultStageDuration}
		if len(s.Stages) > 0 {
			last.Target = s.Stages[len(s.Stages)-1].Target
		}
		for len(s.Stages) < n {
			s.Stages = append(s.Stages, last)
		}
	})
}

// SetStage overwrites the stage at index i
func (d *Definition) SetStage(i int, st Stage) {
	d.update(func(s *Snapshot) {
		if i >= 0 && i < len(s.Stages) {
			s.Stages[i] = st
		}
	})
}

// SetStageTarget changes the target level of stage i
func (d *Definition) SetStageTarget(i int, target float64) {
	d.update(func(s *Snapshot) {
		if i >= 0 && i < len(s.Stages) {
			s.Stages[i].Target = target
		}
	})
}

// SetStageDuration changes the duration of stage i
func (d *Definition) SetStageDuration(i int, duration float64) {
	d.update(func(s *Snapshot) {
		if i >= 0 && i < len(s.Stages) {
			s.Stages[i].Duration = duration
		}
	})
}

// SetSustainStage sets the sustain index. Invalid indices clear sustain.
func (d *Definition) SetSustainStage(i int) {
	d.update(func(s *Snapshot) {
		s.SustainStage = i
	})
}

// SetMaxSustain caps the sustain hold. Negative values mean Indefinite.
func (d *Definition) SetMaxSustain(ms float64) {
	d.update(func(s *Snapshot) {
		if ms < 0 || math.IsNaN(ms) {
			ms = Indefinite
		}
		s.MaxSustain = ms
	})
}

// SetTimeScale sets the multiplier applied to every stage duration
func (d *Definition) SetTimeScale(scale float64) {
	d.update(func(s *Snapshot) {
		s.TimeScale = scale
	})
}
