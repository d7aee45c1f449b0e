package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ErrNotWAV is returned when a file is not a decodable PCM WAV.
var ErrNotWAV = errors.New("not a PCM WAV file")

// Clip is decoded audio held in memory as interleaved samples in [-1, 1].
type Clip struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Frames returns the number of sample frames in the clip.
func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// LoadWAV decodes a PCM WAV file into a Clip.
func LoadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	depth := int(d.BitDepth)
	if depth < 8 || depth > 32 {
		return nil, fmt.Errorf("%s: unsupported bit depth %d", path, depth)
	}
	scale := float32(int64(1) << (depth - 1))
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		s := float32(v)
		if depth == 8 {
			// 8-bit WAV is unsigned.
			s -= 128
		}
		out[i] = s / scale
	}
	return &Clip{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		Samples:    out,
	}, nil
}
