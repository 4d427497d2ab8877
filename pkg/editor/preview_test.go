package editor

import (
	"testing"

	"github.com/james-see/multienv/pkg/envelope"
)

func TestPreviewHeldEnvelope(t *testing.T) {
	def := envelope.NewADSR(10, 100, 0.5, 200)
	e := newEditor(def)

	p := e.Preview(1000)
	if len(p.Values) != 1000 {
		t.Fatalf("len(Values) = %d, want 1000", len(p.Values))
	}
	// a fifth of the view past the end of the sustain stage
	wantRelease := 200 + 10 + 100 + envelope.MinDuration
	if !almostEqual(p.Release, wantRelease) {
		t.Errorf("Release = %v, want %v", p.Release, wantRelease)
	}

	tests := []struct {
		index int
		want  float64
	}{
		{0, 0},
		{10, 1},
		{300, 0.5},
		{600, 0},
	}
	for _, tt := range tests {
		if got := p.Values[tt.index]; !almostEqual(got, tt.want) {
			t.Errorf("Values[%d] = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestPreviewCappedSustainIsNotReleased(t *testing.T) {
	def := envelope.NewADSR(10, 100, 0.5, 200)
	def.SetMaxSustain(100)
	p := newEditor(def).Preview(10)
	if p.Release != p.ViewLength {
		t.Errorf("Release = %v, want the view length %v", p.Release, p.ViewLength)
	}
}

func TestPreviewDoesNotTouchLiveVoice(t *testing.T) {
	def := envelope.NewADSR(10, 100, 0.5, 200)
	live := envelope.NewRuntime(def)
	live.Start(50, 1)

	e := newEditor(def)
	e.Preview(100)

	if start, _ := live.StartTime(); start != 50 {
		t.Errorf("live start = %v, want 50", start)
	}
	if _, stopped := live.StopTime(); stopped {
		t.Error("preview released the live voice")
	}
}

func TestPlayhead(t *testing.T) {
	def := envelope.NewADSR(10, 100, 0.5, 200)
	e := newEditor(def)
	live := envelope.NewRuntime(def)

	if _, ok := e.Playhead(live, 100); ok {
		t.Error("an untriggered voice has no playhead")
	}

	live.Start(100, 1)
	if got, ok := e.Playhead(live, 150); !ok || !almostEqual(got, 50) {
		t.Errorf("Playhead(150) = %v, %v, want 50, true", got, ok)
	}
	// a held voice parks at the release marker
	if got, _ := e.Playhead(live, 5000); !almostEqual(got, 310.001) {
		t.Errorf("Playhead(5000) = %v, want 310.001", got)
	}

	live.Stop(400)
	if got, ok := e.Playhead(live, 420); !ok || !almostEqual(got, 330.001) {
		t.Errorf("Playhead(420) = %v, %v, want 330.001, true", got, ok)
	}
	if _, ok := e.Playhead(live, 5000); ok {
		t.Error("playhead past the view should be hidden")
	}
}
