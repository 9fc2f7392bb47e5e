// Package native normalizes audio with pure Go decoders and resampling, so
// the service runs without ffmpeg for WAV, MP3, FLAC and Ogg Vorbis input.
package native

import (
	"context"
	"fmt"

	"github.com/kbukum/speakerembed/audio"
	"github.com/kbukum/speakerembed/logger"
	"github.com/kbukum/speakerembed/tempfile"
)

func init() {
	audio.RegisterBackend(audio.BackendNative, func(cfg audio.Config, log *logger.Logger) (audio.Normalizer, error) {
		return New(cfg, log), nil
	})
}

// Normalizer decodes, downmixes and resamples in process.
type Normalizer struct {
	targetRate int
	log        *logger.Logger
}

var _ audio.Normalizer = (*Normalizer)(nil)

// New creates a native Normalizer.
func New(cfg audio.Config, log *logger.Logger) *Normalizer {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Normalizer{targetRate: cfg.TargetSampleRate, log: log.WithComponent("audio.native")}
}

// Name returns the backend name.
func (n *Normalizer) Name() string { return audio.BackendNative }

// Normalize decodes src and writes the canonical WAV into scope.
func (n *Normalizer) Normalize(ctx context.Context, scope *tempfile.Scope, src string) (*audio.NormalizedAudio, error) {
	clip, err := decodeFile(src)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mono := clip.Mono()
	samples, err := resample(mono, clip.SampleRate, n.targetRate)
	if err != nil {
		return nil, err
	}

	out, err := scope.Create(".wav")
	if err != nil {
		return nil, err
	}
	defer out.Close()
	if err := audio.WriteWAV(out, samples, n.targetRate); err != nil {
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close output: %w", err)
	}

	n.log.WithContext(ctx).Debug("Audio normalized", logger.Fields(
		logger.FieldSampleRate, clip.SampleRate,
		"channels", clip.Channels,
		"output_samples", len(samples),
	))

	return &audio.NormalizedAudio{
		Path:       out.Name(),
		SampleRate: n.targetRate,
		Channels:   1,
		NumSamples: len(samples),
	}, nil
}
