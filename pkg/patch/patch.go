// Package patch stores envelope definitions on disk.
//
// The native format is a small versioned binary record. JSON and YAML
// documents carry the same fields for hand editing and for the HTTP API.
package patch

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/james-see/multienv/pkg/envelope"
)

// Format names a file format
type Format string

const (
	FormatBinary  Format = "menv"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatUnknown Format = "unknown"
)

// Revision is the newest record layout this package reads and writes.
// Revision 1 added the max sustain, revision 2 the time scale.
const Revision = 2

// MaxStages bounds the stage count accepted from a file
const MaxStages = 4096

var (
	// ErrUnsupportedRevision is returned for records newer than Revision
	ErrUnsupportedRevision = errors.New("unsupported revision")
	// ErrUnknownFormat is returned when no codec matches a file
	ErrUnknownFormat = errors.New("unknown format")
)

// Codec converts between a format's bytes and an envelope snapshot
type Codec interface {
	Format() Format
	Extension() string
	Decode(data []byte) (envelope.Snapshot, error)
	Encode(s envelope.Snapshot) ([]byte, error)
}

var codecs = map[Format]Codec{
	FormatBinary: Binary{},
	FormatJSON:   JSON{},
	FormatYAML:   YAML{},
}

// CodecFor returns the codec for f
func CodecFor(f Format) (Codec, error) {
	c, ok := codecs[f]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", f)
	}
	return c, nil
}

// SupportedFormats lists every format in a stable order
func SupportedFormats() []Format {
	return []Format{FormatBinary, FormatJSON, FormatYAML}
}

// DetectFormat detects the format of a file from its extension
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".menv":
		return FormatBinary
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent sniffs the format from the first bytes
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}
	if bytes.HasPrefix(data, magic[:]) {
		return FormatBinary
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	if bytes.Contains(data, []byte("stages:")) {
		return FormatYAML
	}
	return FormatUnknown
}

// Decode reads data in format f, sniffing the content when f is unknown
func Decode(f Format, data []byte) (*envelope.Definition, error) {
	if f == FormatUnknown || f == "" {
		f = DetectFormatFromContent(data)
	}
	c, err := CodecFor(f)
	if err != nil {
		return nil, err
	}
	s, err := c.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", f)
	}
	return envelope.FromSnapshot(s), nil
}

// Encode writes def in format f
func Encode(f Format, def *envelope.Definition) ([]byte, error) {
	c, err := CodecFor(f)
	if err != nil {
		return nil, err
	}
	data, err := c.Encode(def.Snapshot())
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", f)
	}
	return data, nil
}
