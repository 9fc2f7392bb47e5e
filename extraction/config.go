package extraction

import (
	"time"

	"github.com/kbukum/speakerembed/validation"
)

// Config bounds concurrent extractions.
type Config struct {
	// MaxConcurrent caps in-flight extractions; 0 leaves them unbounded.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// MaxWait is how long a request waits for a slot before a 503.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.MaxConcurrent > 0 && c.MaxWait == 0 {
		c.MaxWait = 5 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.New().
		Min("extraction.max_concurrent", c.MaxConcurrent, 0).
		Custom(c.MaxWait >= 0, "extraction.max_wait", "must not be negative").
		Validate()
}
