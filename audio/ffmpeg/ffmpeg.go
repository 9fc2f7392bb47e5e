// Package ffmpeg normalizes audio by running the ffmpeg binary, which
// decodes every container ffmpeg supports (including m4a).
package ffmpeg

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kbukum/speakerembed/audio"
	"github.com/kbukum/speakerembed/logger"
	"github.com/kbukum/speakerembed/process"
	"github.com/kbukum/speakerembed/tempfile"
)

const defaultBinary = "ffmpeg"

func init() {
	audio.RegisterBackend(audio.BackendFFmpeg, func(cfg audio.Config, log *logger.Logger) (audio.Normalizer, error) {
		return New(cfg, log)
	})
}

// Normalizer converts with ffmpeg and reads the result back for its length.
type Normalizer struct {
	binary     string
	targetRate int
	log        *logger.Logger
}

var _ audio.Normalizer = (*Normalizer)(nil)

// New resolves the ffmpeg binary. It returns audio.ErrBackendUnavailable
// when the binary cannot be found.
func New(cfg audio.Config, log *logger.Logger) (*Normalizer, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	binary := cfg.FFmpegPath
	if binary == "" {
		binary = defaultBinary
	}
	path, err := process.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrBackendUnavailable, err)
	}
	return &Normalizer{
		binary:     path,
		targetRate: cfg.TargetSampleRate,
		log:        log.WithComponent("audio.ffmpeg"),
	}, nil
}

// Name returns the backend name.
func (n *Normalizer) Name() string { return audio.BackendFFmpeg }

// Binary returns the resolved ffmpeg path.
func (n *Normalizer) Binary() string { return n.binary }

// Normalize converts src into a mono 16-bit WAV at the target rate. The
// context kills ffmpeg if the request goes away.
func (n *Normalizer) Normalize(ctx context.Context, scope *tempfile.Scope, src string) (*audio.NormalizedAudio, error) {
	out, err := scope.Path(".wav")
	if err != nil {
		return nil, err
	}

	res, err := process.Run(ctx, process.Command{
		Binary: n.binary,
		Args:   args(src, out, n.targetRate),
	})
	if err != nil {
		return nil, err
	}

	clip, err := audio.ReadWAV(out)
	if err != nil {
		return nil, fmt.Errorf("read converted audio: %w", err)
	}
	if clip.Channels != 1 || clip.SampleRate != n.targetRate {
		return nil, fmt.Errorf("ffmpeg produced %d ch at %d Hz", clip.Channels, clip.SampleRate)
	}
	if len(clip.Samples) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no audio samples")
	}

	n.log.WithContext(ctx).Debug("Audio normalized",
		logger.DurationFields("ffmpeg", res.Duration),
		logger.Fields("output_samples", len(clip.Samples)),
	)

	return &audio.NormalizedAudio{
		Path:       out,
		SampleRate: clip.SampleRate,
		Channels:   1,
		NumSamples: len(clip.Samples),
	}, nil
}

// args builds the conversion command line. The input format is probed from
// content by ffmpeg; -f wav pins the output container since the output name
// is generated.
func args(src, dst string, rate int) []string {
	return []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-y",
		"-i", src,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		dst,
	}
}
