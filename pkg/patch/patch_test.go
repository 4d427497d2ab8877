package patch

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/james-see/multienv/pkg/envelope"
)

func sample() *envelope.Definition {
	def := envelope.NewDefinition([]envelope.Stage{
		{Target: 1, Duration: 12.5},
		{Target: 0.4, Duration: 80},
		{Target: 0.4, Duration: math.Inf(1)},
		{Target: 0, Duration: 150},
	}, 2)
	def.SetMaxSustain(2000)
	def.SetTimeScale(1.5)
	return def
}

func equalSnapshots(t *testing.T, got, want envelope.Snapshot) {
	t.Helper()
	if len(got.Stages) != len(want.Stages) {
		t.Fatalf("stage count = %d, want %d", len(got.Stages), len(want.Stages))
	}
	for i := range want.Stages {
		if got.Stages[i] != want.Stages[i] {
			t.Errorf("stage %d = %+v, want %+v", i, got.Stages[i], want.Stages[i])
		}
	}
	if got.SustainStage != want.SustainStage {
		t.Errorf("SustainStage = %d, want %d", got.SustainStage, want.SustainStage)
	}
	if got.MaxSustain != want.MaxSustain {
		t.Errorf("MaxSustain = %v, want %v", got.MaxSustain, want.MaxSustain)
	}
	if got.TimeScale != want.TimeScale {
		t.Errorf("TimeScale = %v, want %v", got.TimeScale, want.TimeScale)
	}
}

func TestRoundTrip(t *testing.T) {
	defs := map[string]*envelope.Definition{
		"held adsr":  sample(),
		"ar":         envelope.NewAR(5, 300),
		"no stages":  envelope.NewDefinition(nil, envelope.NoSustain),
		"indefinite": envelope.NewADSR(1, 2, 0.3, 4),
	}
	for _, f := range SupportedFormats() {
		for name, def := range defs {
			t.Run(string(f)+"/"+name, func(t *testing.T) {
				data, err := Encode(f, def)
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}
				got, err := Decode(f, data)
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				equalSnapshots(t, got.Snapshot(), def.Snapshot())
			})
		}
	}
}

func TestRevisionGating(t *testing.T) {
	data, err := encodeRevision(sample().Snapshot(), Revision+1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(FormatBinary, data); !errors.Is(err, ErrUnsupportedRevision) {
		t.Errorf("Decode() error = %v, want ErrUnsupportedRevision", err)
	}

	doc := []byte(`{"revision": 99, "stages": []}`)
	if _, err := Decode(FormatJSON, doc); !errors.Is(err, ErrUnsupportedRevision) {
		t.Errorf("Decode(json) error = %v, want ErrUnsupportedRevision", err)
	}
}

func TestOlderRevisionsLoadDefaults(t *testing.T) {
	src := sample().Snapshot()
	tests := []struct {
		rev            int32
		wantMaxSustain float64
		wantTimeScale  float64
	}{
		{0, envelope.Indefinite, 1},
		{1, 2000, 1},
		{2, 2000, 1.5},
	}
	for _, tt := range tests {
		data, err := encodeRevision(src, tt.rev)
		if err != nil {
			t.Fatal(err)
		}
		s, err := Binary{}.Decode(data)
		if err != nil {
			t.Fatalf("revision %d: Decode() error = %v", tt.rev, err)
		}
		if s.MaxSustain != tt.wantMaxSustain {
			t.Errorf("revision %d: MaxSustain = %v, want %v", tt.rev, s.MaxSustain, tt.wantMaxSustain)
		}
		if s.TimeScale != tt.wantTimeScale {
			t.Errorf("revision %d: TimeScale = %v, want %v", tt.rev, s.TimeScale, tt.wantTimeScale)
		}
		if s.SustainStage != 2 || len(s.Stages) != 4 {
			t.Errorf("revision %d: stages %d sustain %d", tt.rev, len(s.Stages), s.SustainStage)
		}
	}
}

func TestMalformedBinary(t *testing.T) {
	good, err := Binary{}.Encode(sample().Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("NOPE"), good[4:]...)},
		{"truncated", good[:len(good)-3]},
		{"huge count", []byte{'M', 'E', 'N', 'V', 2, 0, 0, 0, 0xff, 0xff, 0xff, 0x7f}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (Binary{}).Decode(tt.data); err == nil {
				t.Error("Decode() should fail")
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected Format
	}{
		{"pad.menv", FormatBinary},
		{"PAD.MENV", FormatBinary},
		{"pad.json", FormatJSON},
		{"pad.yaml", FormatYAML},
		{"pad.yml", FormatYAML},
		{"pad.txt", FormatUnknown},
		{"pad", FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := DetectFormat(tt.filename); got != tt.expected {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.filename, got, tt.expected)
			}
		})
	}
}

func TestDetectFormatFromContent(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Format
	}{
		{"binary", []byte("MENV\x02\x00\x00\x00"), FormatBinary},
		{"json", []byte("  {\"stages\": []}"), FormatJSON},
		{"yaml", []byte("revision: 2\nstages: []\n"), FormatYAML},
		{"short", []byte("ME"), FormatUnknown},
		{"other", []byte("hello world"), FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormatFromContent(tt.data); got != tt.expected {
				t.Errorf("DetectFormatFromContent() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSaveLoadConvert(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pad.menv")
	if err := Save(src, sample()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out := filepath.Join(dir, "pad.yaml")
	if err := ConvertFile(src, out); err != nil {
		t.Fatalf("ConvertFile() error = %v", err)
	}
	def, err := Load(out)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	equalSnapshots(t, def.Snapshot(), sample().Snapshot())

	// unknown extensions fall back to sniffing the content
	odd := filepath.Join(dir, "pad.bin")
	data, _ := os.ReadFile(src)
	if err := os.WriteFile(odd, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(odd); err != nil {
		t.Errorf("Load(%s) error = %v", odd, err)
	}

	if err := Save(filepath.Join(dir, "pad.txt"), sample()); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Save(.txt) error = %v, want ErrUnknownFormat", err)
	}
	if err := ConvertFile(src, filepath.Join(dir, "out.wav")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ConvertFile(.wav) error = %v, want ErrUnknownFormat", err)
	}
}

func TestLoadValidates(t *testing.T) {
	doc := []byte(`{"revision": 2, "stages": [{"target": 1, "duration": 0}, {"target": 0, "duration": 5}], "sustain": 7}`)
	def, err := Decode(FormatJSON, doc)
	if err != nil {
		t.Fatal(err)
	}
	if def.HasSustain() {
		t.Error("an out of range sustain index should be cleared")
	}
	if st, _ := def.Stage(0); st.Duration != envelope.MinDuration {
		t.Errorf("duration = %v, want %v", st.Duration, envelope.MinDuration)
	}
}
