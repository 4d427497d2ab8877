package render

import (
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

const bitDepth = 16

// WriteWAV writes values as a 16-bit mono WAV. Values are clamped to
// [-1, 1].
func WriteWAV(w io.WriteSeeker, values []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return errors.Errorf("invalid sample rate %d", sampleRate)
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(values)),
		SourceBitDepth: bitDepth,
	}
	for i, v := range values {
		buf.Data[i] = int(math.Round(math.Max(-1, math.Min(1, v)) * 32767))
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, "failed to write samples")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "failed to finish wav")
	}
	return nil
}
