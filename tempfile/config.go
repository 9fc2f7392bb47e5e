package tempfile

import (
	"os"
	"path/filepath"
	"time"

	"github.com/kbukum/speakerembed/validation"
)

// DefaultSweepOlderThan is the age past which leftovers are removed at startup.
const DefaultSweepOlderThan = time.Hour

// Config holds temp file configuration.
type Config struct {
	// Dir is the directory holding per-request files. It is owned by the
	// service: the startup sweep removes stale files from it.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// SweepOlderThan is the minimum age of files removed by the startup sweep.
	SweepOlderThan time.Duration `yaml:"sweep_older_than" mapstructure:"sweep_older_than"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = filepath.Join(os.TempDir(), "embedding-service")
	}
	if c.SweepOlderThan == 0 {
		c.SweepOlderThan = DefaultSweepOlderThan
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.New().
		Required("tempfile.dir", c.Dir).
		Custom(c.SweepOlderThan >= 0, "tempfile.sweep_older_than", "must not be negative").
		Validate()
}
