package patch

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/james-see/multienv/pkg/envelope"
)

var magic = [4]byte{'M', 'E', 'N', 'V'}

// Binary is the native little-endian record:
//
//	magic "MENV"
//	int32   revision
//	int32   stage count
//	float64 target, float64 duration   (per stage)
//	int32   sustain stage (-1 none)
//	float64 max sustain (-1 indefinite)  revision >= 1
//	float64 time scale                   revision >= 2
type Binary struct{}

func (Binary) Format() Format    { return FormatBinary }
func (Binary) Extension() string { return ".menv" }

// Encode writes s at the current revision
func (Binary) Encode(s envelope.Snapshot) ([]byte, error) {
	return encodeRevision(s, Revision)
}

func encodeRevision(s envelope.Snapshot, rev int32) ([]byte, error) {
	var buf bytes.Buffer
	w := &recordWriter{w: &buf}

	w.put(magic)
	w.put(rev)
	w.put(int32(len(s.Stages)))
	for _, st := range s.Stages {
		w.put(st.Target)
		w.put(st.Duration)
	}
	w.put(int32(s.SustainStage))
	if rev >= 1 {
		w.put(s.MaxSustain)
	}
	if rev >= 2 {
		w.put(s.TimeScale)
	}
	if w.err != nil {
		return nil, errors.Wrap(w.err, "write record")
	}
	return buf.Bytes(), nil
}

// Decode reads any revision up to Revision. Fields missing from older
// revisions take their defaults.
func (Binary) Decode(data []byte) (envelope.Snapshot, error) {
	s := envelope.Snapshot{
		SustainStage: envelope.NoSustain,
		MaxSustain:   envelope.Indefinite,
		TimeScale:    1,
	}
	r := &recordReader{r: bytes.NewReader(data)}

	var m [4]byte
	r.get(&m)
	if r.err == nil && m != magic {
		return s, errors.Errorf("invalid magic %q", m[:])
	}

	var rev, count int32
	r.get(&rev)
	if r.err == nil && rev > Revision {
		return s, errors.Wrapf(ErrUnsupportedRevision, "revision %d, newest known is %d", rev, Revision)
	}
	if r.err == nil && rev < 0 {
		return s, errors.Errorf("invalid revision %d", rev)
	}
	r.get(&count)
	if r.err == nil && (count < 0 || count > MaxStages) {
		return s, errors.Errorf("invalid stage count %d", count)
	}

	if r.err == nil {
		s.Stages = make([]envelope.Stage, count)
	}
	for i := range s.Stages {
		r.get(&s.Stages[i].Target)
		r.get(&s.Stages[i].Duration)
	}
	var sustain int32
	r.get(&sustain)
	s.SustainStage = int(sustain)
	if rev >= 1 {
		r.get(&s.MaxSustain)
	}
	if rev >= 2 {
		r.get(&s.TimeScale)
	}

	if r.err != nil {
		return s, errors.Wrap(r.err, "truncated record")
	}
	return s, nil
}

// recordWriter and recordReader keep the first error so field lists read
// top to bottom
type recordWriter struct {
	w   io.Writer
	err error
}

func (w *recordWriter) put(v any) {
	if w.err == nil {
		w.err = binary.Write(w.w, binary.LittleEndian, v)
	}
}

type recordReader struct {
	r   io.Reader
	err error
}

func (r *recordReader) get(v any) {
	if r.err == nil {
		r.err = binary.Read(r.r, binary.LittleEndian, v)
	}
}
