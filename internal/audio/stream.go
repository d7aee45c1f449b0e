package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// SampleSource fills dst with interleaved stereo float32 samples.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can report the end of its material.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// ClipSource plays a Clip as stereo, optionally looping, and hands every
// rendered buffer to a tap before it reaches the device.
type ClipSource struct {
	clip *Clip
	pos  int // frame index
	loop bool
	done bool
	tap  func([]float32)
}

// NewClipSource returns a source over clip. tap may be nil.
func NewClipSource(clip *Clip, loop bool, tap func([]float32)) *ClipSource {
	return &ClipSource{clip: clip, loop: loop, tap: tap}
}

func (s *ClipSource) Process(dst []float32) {
	frames := s.clip.Frames()
	ch := s.clip.Channels
	for i := 0; i+1 < len(dst); i += 2 {
		if s.done || frames == 0 {
			dst[i], dst[i+1] = 0, 0
			continue
		}
		base := s.pos * ch
		l := s.clip.Samples[base]
		r := l
		if ch > 1 {
			r = s.clip.Samples[base+1]
		}
		dst[i], dst[i+1] = l, r
		s.pos++
		if s.pos >= frames {
			s.pos = 0
			s.done = !s.loop
		}
	}
	if s.tap != nil {
		s.tap(dst)
	}
}

func (s *ClipSource) Finished() bool { return s.done }

// StreamReader adapts a SampleSource to the little-endian float32 byte stream
// expected by ebiten's audio player.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, v := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	n := frames * 8
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *StreamReader) Close() error { return nil }

// Output plays a SampleSource on the shared ebiten audio context.
type Output struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	contextOnce       sync.Once
	audioContext      *ebitaudio.Context
	contextSampleRate int
)

// sharedContext returns the process-wide audio context. ebiten allows only
// one, so every Output must agree on the sample rate.
func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		contextSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if contextSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz (requested %d Hz)", contextSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewOutput(sampleRate int, source SampleSource) (*Output, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Output{player: pl, reader: reader}, nil
}

func (o *Output) Play()           { o.player.Play() }
func (o *Output) IsPlaying() bool { return o.player.IsPlaying() }

func (o *Output) Close() error {
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		return err
	}
	return o.reader.Close()
}
