package patch

import (
	"os"

	"github.com/pkg/errors"

	"github.com/james-see/multienv/pkg/envelope"
)

// Load reads an envelope file. The format comes from the extension, or
// from the content when the extension is not recognized.
func Load(path string) (*envelope.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read envelope file")
	}
	def, err := Decode(DetectFormat(path), data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return def, nil
}

// Save writes def in the format named by the extension of path
func Save(path string, def *envelope.Definition) error {
	f := DetectFormat(path)
	if f == FormatUnknown {
		return errors.Wrapf(ErrUnknownFormat, "cannot determine format of %s", path)
	}
	data, err := Encode(f, def)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write envelope file")
	}
	return nil
}

// ConvertFile converts an envelope file from one format to another
func ConvertFile(inputPath, outputPath string) error {
	if DetectFormat(outputPath) == FormatUnknown {
		return errors.Wrap(ErrUnknownFormat, "cannot determine output format from filename")
	}
	def, err := Load(inputPath)
	if err != nil {
		return err
	}
	return Save(outputPath, def)
}
