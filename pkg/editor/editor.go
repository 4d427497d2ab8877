// Package editor maps pointer gestures onto envelope edits.
//
// An Editor owns only transient interaction state (hover mode, drag anchor,
// visible time window). Every edit is committed straight to the attached
// envelope.Definition, so a host reads results from the definition and
// needs no callback.
package editor

import (
	"math"
	"math/rand"

	"github.com/james-see/multienv/pkg/envelope"
)

// AdjustMode is the parameter a drag would change
type AdjustMode int

const (
	AdjustNone AdjustMode = iota
	AdjustAttack
	AdjustDecaySustain
	AdjustRelease
	AdjustDetailEditor
	AdjustViewLength
	AdjustAttackAR
	AdjustReleaseAR
	AdjustSlider
)

func (m AdjustMode) String() string {
	switch m {
	case AdjustAttack:
		return "attack"
	case AdjustDecaySustain:
		return "decay/sustain"
	case AdjustRelease:
		return "release"
	case AdjustDetailEditor:
		return "detail editor"
	case AdjustViewLength:
		return "view length"
	case AdjustAttackAR:
		return "attack (AR)"
	case AdjustReleaseAR:
		return "release (AR)"
	case AdjustSlider:
		return "slider"
	default:
		return "none"
	}
}

// DisplayMode selects between the curve and the A/D/S/R slider rows
type DisplayMode int

const (
	DisplayEnvelope DisplayMode = iota
	DisplaySliders
)

func (m DisplayMode) String() string {
	if m == DisplaySliders {
		return "sliders"
	}
	return "envelope"
}

// Toggle returns the other display mode
func (m DisplayMode) Toggle() DisplayMode {
	if m == DisplaySliders {
		return DisplayEnvelope
	}
	return DisplaySliders
}

// Modifiers are the keyboard modifiers held during a pointer event
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
)

// Action tells the host what a click did
type Action int

const (
	ActionNone Action = iota
	ActionDrag
	ActionSpawnDetail
	ActionRandomized
)

// Geometry and drag constants
const (
	BandWidth     = 20.0
	CornerSize    = 10.0
	MinViewLength = 10.0
	MaxViewLength = 10000.0
	// DefaultViewLength is the visible time window in milliseconds
	DefaultViewLength = 1000.0

	minDragDuration  = 1.0
	viewDragScale    = 500.0
	attackDragScale  = 0.1
	heldPreviewShare = 0.2
)

// Config holds the per-instance editor settings
type Config struct {
	Width       float64
	Height      float64
	ViewLength  float64
	DisplayMode DisplayMode
	// FixedLength disables zooming the time window
	FixedLength bool
	Seed        int64
}

// Editor converts pointer motion into envelope edits
type Editor struct {
	cfg Config
	def *envelope.Definition
	rng *rand.Rand

	mode       AdjustMode
	slider     int
	dragging   bool
	anchorX    float64
	anchorY    float64
	anchor     envelope.Snapshot
	anchorView float64
	viewLength float64

	preview *envelope.Runtime
}

// New creates an editor with cfg. Zero sizes fall back to 1 and a zero
// view length to DefaultViewLength.
func New(cfg Config) *Editor {
	if cfg.Width <= 0 {
		cfg.Width = 1
	}
	if cfg.Height <= 0 {
		cfg.Height = 1
	}
	if cfg.ViewLength <= 0 {
		cfg.ViewLength = DefaultViewLength
	}
	return &Editor{
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		viewLength: clamp(cfg.ViewLength, MinViewLength, MaxViewLength),
		preview:    envelope.NewRuntime(nil),
	}
}

// AttachEnvelope points the editor at def and cancels any drag in progress
func (e *Editor) AttachEnvelope(def *envelope.Definition) {
	e.def = def
	e.dragging = false
	e.mode = AdjustNone
}

// Envelope returns the attached definition
func (e *Editor) Envelope() *envelope.Definition {
	return e.def
}

// Config returns the current settings
func (e *Editor) Config() Config {
	return e.cfg
}

// Resize changes the control size
func (e *Editor) Resize(width, height float64) {
	if width > 0 {
		e.cfg.Width = width
	}
	if height > 0 {
		e.cfg.Height = height
	}
}

// SetDisplayMode switches between the curve and the slider rows
func (e *Editor) SetDisplayMode(m DisplayMode) {
	e.cfg.DisplayMode = m
	e.dragging = false
	e.mode = AdjustNone
}

// DisplayMode returns the active display mode
func (e *Editor) DisplayMode() DisplayMode {
	return e.cfg.DisplayMode
}

// Mode returns the current adjust mode
func (e *Editor) Mode() AdjustMode {
	return e.mode
}

// Slider returns the hovered or dragged slider row (0=A, 1=D, 2=S, 3=R)
func (e *Editor) Slider() int {
	return e.slider
}

// Dragging reports whether a drag gesture is in progress
func (e *Editor) Dragging() bool {
	return e.dragging
}

// ViewLength returns the visible time window in milliseconds
func (e *Editor) ViewLength() float64 {
	return e.viewLength
}

// SetViewLength changes the visible time window, clamped to its range
func (e *Editor) SetViewLength(ms float64) {
	if math.IsNaN(ms) {
		return
	}
	e.viewLength = clamp(ms, MinViewLength, MaxViewLength)
}

// OnMouseMoved updates the hover mode, or applies the active drag.
// Coordinates are relative to the top-left corner of the control.
func (e *Editor) OnMouseMoved(x, y float64, mods Modifiers) {
	if !e.dragging {
		e.mode = e.hitTest(x, y, mods)
		return
	}
	if e.def == nil {
		return
	}
	if e.mode == AdjustSlider {
		e.applySlider(x)
		return
	}

	d := (x - e.anchorX) / e.cfg.Width
	if d > 0 {
		d *= d
	}
	view := e.viewLength
	a := e.anchor
	if len(a.Stages) < stagesTouched(e.mode) {
		return
	}

	switch e.mode {
	case AdjustViewLength:
		e.viewLength = clamp(e.anchorView+d*viewDragScale, MinViewLength, MaxViewLength)
	case AdjustAttack, AdjustAttackAR:
		e.def.SetStageDuration(0, clamp(a.Stages[0].Duration+d*view*attackDragScale, minDragDuration, view))
	case AdjustDecaySustain:
		decay := clamp(a.Stages[1].Duration+d*view, minDragDuration, view)
		sustain := clamp(a.Stages[1].Target+(e.anchorY-y)/e.cfg.Height, 0, 1)
		e.def.Edit(func(s *envelope.Snapshot) {
			if len(s.Stages) < 3 {
				return
			}
			s.Stages[1].Duration = decay
			s.Stages[1].Target = sustain
			s.Stages[2].Target = sustain
		})
	case AdjustRelease:
		e.def.SetStageDuration(3, clamp(a.Stages[3].Duration+d*view, minDragDuration, view))
	case AdjustReleaseAR:
		e.def.SetStageDuration(1, clamp(a.Stages[1].Duration+d*view, minDragDuration, view))
	}
}

// stagesTouched returns how many stages a drag in mode needs
func stagesTouched(mode AdjustMode) int {
	switch mode {
	case AdjustAttack, AdjustAttackAR:
		return 1
	case AdjustReleaseAR:
		return 2
	case AdjustDecaySustain:
		return 3
	case AdjustRelease:
		return 4
	}
	return 0
}

func (e *Editor) hitTest(x, y float64, mods Modifiers) AdjustMode {
	w, h := e.cfg.Width, e.cfg.Height
	if x < 0 || y < 0 || x > w || y > h {
		return AdjustNone
	}
	if mods&ModShift != 0 {
		if e.cfg.FixedLength {
			return AdjustNone
		}
		return AdjustViewLength
	}
	if e.def == nil {
		return AdjustNone
	}
	if e.cfg.DisplayMode == DisplaySliders {
		e.slider = int(y / (h / 4))
		if e.slider > 3 {
			e.slider = 3
		}
		if e.SliderRows()[e.slider] {
			return AdjustSlider
		}
		return AdjustNone
	}
	if x >= w-CornerSize && y <= CornerSize {
		return AdjustDetailEditor
	}
	s := e.def.Snapshot()
	if len(s.Stages) == 2 {
		if x < w/2 {
			return AdjustAttackAR
		}
		return AdjustReleaseAR
	}
	if !s.IsStandardADSR() {
		return AdjustNone
	}
	switch {
	case x < BandWidth:
		return AdjustAttack
	case x > w-BandWidth:
		return AdjustRelease
	default:
		return AdjustDecaySustain
	}
}

// OnClicked starts a gesture. A right click randomizes the envelope.
func (e *Editor) OnClicked(x, y float64, right bool) Action {
	if e.def == nil {
		return ActionNone
	}
	if e.cfg.DisplayMode == DisplaySliders {
		if right || e.mode != AdjustSlider {
			return ActionNone
		}
		e.dragging = true
		e.applySlider(x)
		return ActionDrag
	}
	if right {
		envelope.Randomize(e.def, e.rng)
		return ActionRandomized
	}

	switch e.mode {
	case AdjustNone:
		return ActionNone
	case AdjustDetailEditor:
		return ActionSpawnDetail
	}
	s := e.def.Snapshot()
	if !s.IsStandardADSR() && len(s.Stages) != 2 && e.mode != AdjustViewLength {
		return ActionNone
	}
	e.dragging = true
	e.anchorX, e.anchorY = x, y
	e.anchor = s
	e.anchorView = e.viewLength
	return ActionDrag
}

// MouseReleased ends the current drag
func (e *Editor) MouseReleased() {
	e.dragging = false
}

// SliderRows reports which of the A, D, S and R rows are shown. A standard
// ADSR shows all four, a three stage envelope without sustain hides S and
// a two stage envelope shows only A and D.
func (e *Editor) SliderRows() [4]bool {
	if e.def == nil {
		return [4]bool{}
	}
	return sliderRows(e.def.Snapshot())
}

func sliderRows(s envelope.Snapshot) [4]bool {
	switch {
	case s.IsStandardADSR():
		return [4]bool{true, true, true, true}
	case len(s.Stages) == 3 && !s.HasSustain():
		return [4]bool{true, true, false, true}
	case len(s.Stages) == 2 && !s.HasSustain():
		return [4]bool{true, true, false, false}
	}
	return [4]bool{}
}

// applySlider sets the dragged slider from the pointer position. Time
// sliders use a squared response over the visible window.
func (e *Editor) applySlider(x float64) {
	p := clamp(x/e.cfg.Width, 0, 1)
	ms := p * p * e.viewLength
	switch e.slider {
	case 0:
		e.def.SetStageDuration(0, ms)
	case 1:
		e.def.SetStageDuration(1, ms)
	case 2:
		e.def.Edit(func(s *envelope.Snapshot) {
			if len(s.Stages) == 4 {
				s.Stages[1].Target = p
				s.Stages[2].Target = p
			}
		})
	case 3:
		e.def.Edit(func(s *envelope.Snapshot) {
			if n := len(s.Stages); n >= 3 {
				s.Stages[n-1].Duration = ms
			}
		})
	}
}

// SliderValues returns the A, D, S and R values shown by the slider rows.
// Hidden rows read zero.
func (e *Editor) SliderValues() [4]float64 {
	var v [4]float64
	if e.def == nil {
		return v
	}
	s := e.def.Snapshot()
	rows := sliderRows(s)
	if rows[0] {
		v[0], v[1] = s.Stages[0].Duration, s.Stages[1].Duration
	}
	if rows[2] {
		v[2] = s.Stages[1].Target
	}
	if rows[3] {
		v[3] = s.Stages[len(s.Stages)-1].Duration
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
