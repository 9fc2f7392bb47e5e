package audio

import (
	"context"
	"time"

	"github.com/kbukum/speakerembed/tempfile"
)

// TargetSampleRate is the rate every clip is converted to before inference.
const TargetSampleRate = 16000

// NormalizedAudio describes the canonical WAV written for one request:
// mono, 16-bit PCM at the target rate.
type NormalizedAudio struct {
	Path       string
	SampleRate int
	Channels   int
	NumSamples int
}

// Duration returns the clip length.
func (n *NormalizedAudio) Duration() time.Duration {
	if n.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n.NumSamples) / float64(n.SampleRate) * float64(time.Second))
}

// Normalizer converts an uploaded file of any supported format into the
// canonical WAV. The output file is created in scope, so it is removed with
// the rest of the request's files.
type Normalizer interface {
	Normalize(ctx context.Context, scope *tempfile.Scope, src string) (*NormalizedAudio, error)
	// Name identifies the backend in logs and the startup summary.
	Name() string
}

// Clip is decoded PCM as interleaved float32 samples in [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames.
func (c *Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Mono returns the clip averaged down to one channel.
func (c *Clip) Mono() []float32 {
	if c.Channels <= 1 {
		return c.Samples
	}
	frames := c.Frames()
	out := make([]float32, frames)
	inv := 1 / float32(c.Channels)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * c.Channels
		for ch := 0; ch < c.Channels; ch++ {
			sum += c.Samples[base+ch]
		}
		out[i] = sum * inv
	}
	return out
}
