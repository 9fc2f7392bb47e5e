package main

import (
	"context"
	"fmt"

	"github.com/kbukum/speakerembed/audio"
	"github.com/kbukum/speakerembed/bootstrap"
	"github.com/kbukum/speakerembed/extraction"
	"github.com/kbukum/speakerembed/logger"
	"github.com/kbukum/speakerembed/observability"
	"github.com/kbukum/speakerembed/speaker"
	"github.com/kbukum/speakerembed/tempfile"

	// Backends register themselves.
	_ "github.com/kbukum/speakerembed/audio/ffmpeg"
	_ "github.com/kbukum/speakerembed/audio/native"
	_ "github.com/kbukum/speakerembed/speaker/onnx"
	_ "github.com/kbukum/speakerembed/speaker/remote"
)

// service holds the collaborators shared by serve and extract.
type service struct {
	app        *bootstrap.App[*AppConfig]
	models     *speaker.Manager
	temp       *tempfile.Manager
	normalizer audio.Normalizer
	pipeline   *extraction.Pipeline
	metrics    *observability.Metrics
}

// newService builds the app and registers components in start order:
// telemetry, temp files, then the model, so the model is loaded before
// anything that serves requests.
func newService(cfg *AppConfig, opts ...bootstrap.Option) (*service, error) {
	cfg.ApplyDefaults()
	opts = append([]bootstrap.Option{bootstrap.WithGracefulTimeout(cfg.Server.ShutdownTimeout)}, opts...)
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	log := app.Logger

	obs := observability.NewComponent(cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
	metrics := observability.NewGlobalMetrics()
	if err := app.RegisterComponent(obs); err != nil {
		return nil, err
	}

	temp, err := tempfile.NewManager(cfg.TempFile, log)
	if err != nil {
		return nil, fmt.Errorf("temp files: %w", err)
	}
	if err := app.RegisterComponent(tempfile.NewComponent(temp, cfg.TempFile, log)); err != nil {
		return nil, err
	}

	normalizer, err := audio.New(cfg.Audio, log)
	if err != nil {
		return nil, fmt.Errorf("audio backend: %w", err)
	}

	models := speaker.NewManager(cfg.Model, log, speaker.WithMetrics(metrics))
	if err := app.RegisterComponent(models); err != nil {
		return nil, err
	}

	pipeline := extraction.New(models, cfg.Extraction,
		extraction.WithMetrics(metrics),
		extraction.WithLogger(log),
		extraction.WithDimension(cfg.Model.Dimension),
		extraction.WithLabels(cfg.Name, cfg.Model.Backend),
	)

	app.OnReady(func(context.Context) error {
		logModelStatus(log, models)
		return nil
	})

	log.Info("Service wired", map[string]interface{}{
		"audio_backend":  normalizer.Name(),
		"model_backend":  cfg.Model.Backend,
		"max_concurrent": pipeline.MaxConcurrent(),
	})

	return &service{
		app:        app,
		models:     models,
		temp:       temp,
		normalizer: normalizer,
		pipeline:   pipeline,
		metrics:    metrics,
	}, nil
}

// logModelStatus reports the outcome of the startup load. A failed load
// leaves the service up and unhealthy, so it is a warning, not an error.
func logModelStatus(log *logger.Logger, models *speaker.Manager) {
	if models.IsReady() {
		log.Info("Model ready", logger.Fields(
			"model", models.Config().Name,
			logger.FieldBackend, models.Config().Backend,
			logger.FieldDevice, models.Device(),
		))
		return
	}
	fields := logger.Fields(logger.FieldBackend, models.Config().Backend)
	if err := models.LoadError(); err != nil {
		fields[logger.FieldError] = err.Error()
	}
	log.Warn("Model not loaded, extraction requests will be refused", fields)
}
