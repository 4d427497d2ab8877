package editor

import "github.com/james-see/multienv/pkg/envelope"

// Preview is a sampled curve of the attached envelope across the view
type Preview struct {
	Values []float64
	// Release is the time the preview voice is released at. It equals the
	// view length when the curve plays out without a held sustain.
	Release    float64
	ViewLength float64
}

// Time returns the time in milliseconds of sample i
func (p Preview) Time(i int) float64 {
	if len(p.Values) == 0 {
		return 0
	}
	return float64(i) / float64(len(p.Values)) * p.ViewLength
}

// Preview evaluates the attached envelope at points evenly spaced samples.
// The evaluation runs on a private runtime pinned to a copy of the
// definition, so it never touches a voice that is playing.
func (e *Editor) Preview(points int) Preview {
	p := Preview{ViewLength: e.viewLength, Release: e.viewLength}
	if points <= 0 || e.def == nil {
		return p
	}

	e.preview.Clear()
	e.preview.StartFrom(0, 1, e.def)
	s := e.preview.Snapshot()
	if s.MaxSustain == envelope.Indefinite && s.HasSustain() {
		p.Release = releaseMarker(s, e.viewLength)
		e.preview.Stop(p.Release)
	}

	p.Values = make([]float64, points)
	for i := range p.Values {
		p.Values[i] = e.preview.Value(p.Time(i))
	}
	return p
}

// releaseMarker places the release of a held preview a fifth of the view
// after the sustain stage has been reached
func releaseMarker(s envelope.Snapshot, view float64) float64 {
	t := view * heldPreviewShare
	for i := 0; i <= s.SustainStage && i < len(s.Stages); i++ {
		t += s.Stages[i].Duration
	}
	return t
}

// Playhead returns where the live voice sits on the preview time axis at
// now. The second result is false when the cursor falls outside the view.
func (e *Editor) Playhead(live *envelope.Runtime, now float64) (float64, bool) {
	if live == nil || e.def == nil {
		return 0, false
	}
	start, started := live.StartTime()
	if !started {
		return 0, false
	}
	s := e.def.Snapshot()
	release := e.viewLength
	if s.MaxSustain == envelope.Indefinite && s.HasSustain() {
		release = releaseMarker(s, e.viewLength)
	}

	var t float64
	if stop, stopped := live.StopTime(); stopped && stop > start {
		t = release + (now - stop)
	} else {
		t = clamp(now-start, 0, release*s.TimeScale) / s.TimeScale
	}
	return t, t > 0 && t < e.viewLength
}
