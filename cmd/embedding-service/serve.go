package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerembed/api"
	"github.com/kbukum/speakerembed/bootstrap"
	"github.com/kbukum/speakerembed/logger"
	"github.com/kbukum/speakerembed/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the model and serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func runServe(ctx context.Context, cfg *AppConfig, opts ...bootstrap.Option) error {
	svc, err := newService(cfg, opts...)
	if err != nil {
		return err
	}
	srv := newHTTPServer(svc)
	if err := svc.app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}
	svc.app.OnStop(func(context.Context) error {
		if n := svc.pipeline.InFlight(); n > 0 {
			svc.app.Logger.Info("Draining in-flight extractions", logger.Fields("in_flight", n))
		}
		return nil
	})
	return svc.app.Run(ctx)
}

// newHTTPServer mounts the API and the probe endpoints.
func newHTTPServer(svc *service) *server.Server {
	cfg := svc.app.Cfg
	srv := server.New(cfg.Server, svc.app.Logger)

	handler := api.NewHandler(api.Deps{
		Models:     svc.models,
		TempFiles:  svc.temp,
		Normalizer: svc.normalizer,
		Extractor:  svc.pipeline,
		Upload:     cfg.Upload,
		Model:      cfg.Model,
		Version:    cfg.Version,
		Metrics:    svc.metrics,
		Logger:     svc.app.Logger,
	})
	handler.Register(srv.GinEngine())
	srv.RegisterDefaultEndpoints(cfg.Name, svc.app.Components.HealthAll)
	srv.TrackRoutes(svc.app.Summary)
	return srv
}
