package audio

import "github.com/kbukum/speakerembed/validation"

// Backend names.
const (
	BackendAuto   = "auto"
	BackendFFmpeg = "ffmpeg"
	BackendNative = "native"
)

// Config selects and configures the normalization backend.
type Config struct {
	// Backend is auto, ffmpeg or native. Auto uses ffmpeg when the binary is
	// found and falls back to the pure Go decoders.
	Backend string `yaml:"backend" mapstructure:"backend" validate:"oneof=auto ffmpeg native"`
	// FFmpegPath overrides the ffmpeg binary lookup.
	FFmpegPath string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	// TargetSampleRate is the output rate; the model expects 16000.
	TargetSampleRate int `yaml:"target_sample_rate" mapstructure:"target_sample_rate" validate:"gt=0"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendAuto
	}
	if c.TargetSampleRate == 0 {
		c.TargetSampleRate = TargetSampleRate
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.New().
		OneOf("audio.backend", c.Backend, []string{BackendAuto, BackendFFmpeg, BackendNative}).
		Min("audio.target_sample_rate", c.TargetSampleRate, 1).
		Validate()
}
