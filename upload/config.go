package upload

import (
	"fmt"

	"github.com/kbukum/speakerembed/util"
	"github.com/kbukum/speakerembed/validation"
)

// DefaultMaxBytes is the upload limit when max_file_size is unset.
const DefaultMaxBytes = 10 * 1024 * 1024

// Config controls upload acceptance.
type Config struct {
	// Field is the multipart form field carrying the file.
	Field string `yaml:"field" mapstructure:"field"`
	// MaxFileSize is a size string such as "10MB".
	MaxFileSize string `yaml:"max_file_size" mapstructure:"max_file_size"`
	// AllowedExtensions is advertised by /info. Content decides the format,
	// so the list is not enforced.
	AllowedExtensions []string `yaml:"allowed_extensions" mapstructure:"allowed_extensions"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Field == "" {
		c.Field = "audio"
	}
	if c.MaxFileSize == "" {
		c.MaxFileSize = "10MB"
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = []string{"wav", "mp3", "flac", "ogg", "m4a"}
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.New().
		Required("upload.field", c.Field).
		Custom(c.MaxBytes() > 0, "upload.max_file_size", fmt.Sprintf("must be a positive size (got: %q)", c.MaxFileSize)).
		Validate()
}

// MaxBytes returns the parsed upload limit.
func (c *Config) MaxBytes() int64 {
	return util.ParseSize(c.MaxFileSize, DefaultMaxBytes)
}
