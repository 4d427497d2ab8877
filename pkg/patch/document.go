package patch

import (
	"math"

	json "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"

	"github.com/james-see/multienv/pkg/envelope"
)

// Document is the text form of an envelope shared by the JSON and YAML
// codecs and the HTTP API
type Document struct {
	Revision int             `json:"revision" yaml:"revision"`
	Stages   []DocumentStage `json:"stages" yaml:"stages"`
	// Sustain is the sustain stage index. Absent means no sustain.
	Sustain *int `json:"sustain,omitempty" yaml:"sustain,omitempty"`
	// MaxSustain caps the sustain hold in milliseconds. Absent means
	// the hold lasts until release.
	MaxSustain *float64 `json:"maxSustain,omitempty" yaml:"maxSustain,omitempty"`
	TimeScale  float64  `json:"timeScale,omitempty" yaml:"timeScale,omitempty"`
}

// DocumentStage is one stage of a Document. Hold marks a stage of
// unbounded duration.
type DocumentStage struct {
	Target   float64 `json:"target" yaml:"target"`
	Duration float64 `json:"duration" yaml:"duration"`
	Hold     bool    `json:"hold,omitempty" yaml:"hold,omitempty"`
}

// NewDocument converts a snapshot
func NewDocument(s envelope.Snapshot) Document {
	doc := Document{
		Revision:  Revision,
		Stages:    make([]DocumentStage, len(s.Stages)),
		TimeScale: s.TimeScale,
	}
	for i, st := range s.Stages {
		if math.IsInf(st.Duration, 1) {
			doc.Stages[i] = DocumentStage{Target: st.Target, Hold: true}
			continue
		}
		doc.Stages[i] = DocumentStage{Target: st.Target, Duration: st.Duration}
	}
	if s.HasSustain() {
		sustain := s.SustainStage
		doc.Sustain = &sustain
	}
	if s.MaxSustain != envelope.Indefinite {
		limit := s.MaxSustain
		doc.MaxSustain = &limit
	}
	return doc
}

// Snapshot validates the revision and converts the document back
func (d Document) Snapshot() (envelope.Snapshot, error) {
	s := envelope.Snapshot{
		SustainStage: envelope.NoSustain,
		MaxSustain:   envelope.Indefinite,
		TimeScale:    1,
	}
	if d.Revision > Revision {
		return s, errors.Wrapf(ErrUnsupportedRevision, "revision %d, newest known is %d", d.Revision, Revision)
	}
	if len(d.Stages) > MaxStages {
		return s, errors.Errorf("too many stages: %d", len(d.Stages))
	}
	s.Stages = make([]envelope.Stage, len(d.Stages))
	for i, st := range d.Stages {
		s.Stages[i] = envelope.Stage{Target: st.Target, Duration: st.Duration}
		if st.Hold {
			s.Stages[i].Duration = math.Inf(1)
		}
	}
	if d.Sustain != nil {
		s.SustainStage = *d.Sustain
	}
	if d.MaxSustain != nil {
		s.MaxSustain = *d.MaxSustain
	}
	if d.TimeScale > 0 {
		s.TimeScale = d.TimeScale
	}
	return s, nil
}

// JSON reads and writes Document as indented JSON
type JSON struct{}

func (JSON) Format() Format    { return FormatJSON }
func (JSON) Extension() string { return ".json" }

func (JSON) Encode(s envelope.Snapshot) ([]byte, error) {
	return json.MarshalIndent(NewDocument(s), "", "  ")
}

func (JSON) Decode(data []byte) (envelope.Snapshot, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return envelope.Snapshot{}, errors.Wrap(err, "parse json")
	}
	return doc.Snapshot()
}

// YAML reads and writes Document as YAML
type YAML struct{}

func (YAML) Format() Format    { return FormatYAML }
func (YAML) Extension() string { return ".yaml" }

func (YAML) Encode(s envelope.Snapshot) ([]byte, error) {
	return yaml.Marshal(NewDocument(s))
}

func (YAML) Decode(data []byte) (envelope.Snapshot, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return envelope.Snapshot{}, errors.Wrap(err, "parse yaml")
	}
	return doc.Snapshot()
}
