package main

import (
	"fmt"

	"github.com/kbukum/speakerembed/audio"
	"github.com/kbukum/speakerembed/config"
	"github.com/kbukum/speakerembed/extraction"
	"github.com/kbukum/speakerembed/observability"
	"github.com/kbukum/speakerembed/server"
	"github.com/kbukum/speakerembed/speaker"
	"github.com/kbukum/speakerembed/tempfile"
	"github.com/kbukum/speakerembed/upload"
	"github.com/kbukum/speakerembed/version"
)

const serviceName = "embedding-service"

// AppConfig is the full service configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Model         speaker.Config       `yaml:"model" mapstructure:"model"`
	Audio         audio.Config         `yaml:"audio" mapstructure:"audio"`
	Upload        upload.Config        `yaml:"upload" mapstructure:"upload"`
	TempFile      tempfile.Config      `yaml:"tempfile" mapstructure:"tempfile"`
	Extraction    extraction.Config    `yaml:"extraction" mapstructure:"extraction"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.GetShortVersion()
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Model.ApplyDefaults()
	c.Audio.ApplyDefaults()
	c.Upload.ApplyDefaults()
	c.TempFile.ApplyDefaults()
	c.Extraction.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"service", c.ServiceConfig.Validate},
		{"server", c.Server.Validate},
		{"model", c.Model.Validate},
		{"audio", c.Audio.Validate},
		{"upload", c.Upload.Validate},
		{"tempfile", c.TempFile.Validate},
		{"extraction", c.Extraction.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}

// loadConfig reads config.yml, .env and the environment. PORT and DEBUG
// are honoured without the EMBEDDING_ prefix.
func loadConfig() (*AppConfig, error) {
	opts := []config.LoaderOption{
		config.WithEnvPrefix("EMBEDDING"),
		config.WithEnvAlias("PORT", "server.port"),
		config.WithEnvAlias("DEBUG", "debug"),
	}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}

	var cfg AppConfig
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
