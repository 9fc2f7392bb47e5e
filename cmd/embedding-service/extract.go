package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerembed/api"
	"github.com/kbukum/speakerembed/bootstrap"
	"github.com/kbukum/speakerembed/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract the embedding of one audio file and print it as JSON",
	Long: `Run the extraction pipeline once on a local file, the same way the
HTTP endpoint does, and print the response body to stdout. Logs go to
stderr. Useful as a model smoke test.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Logging.Output = "stderr"
		return runExtract(cmd.Context(), cfg, args[0], cmd.OutOrStdout(), bootstrap.WithSummaryOutput(io.Discard))
	},
}

func runExtract(ctx context.Context, cfg *AppConfig, path string, out io.Writer, opts ...bootstrap.Option) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	svc, err := newService(cfg, opts...)
	if err != nil {
		return err
	}

	return svc.app.RunTask(ctx, func(ctx context.Context) error {
		if !svc.models.IsReady() {
			return fmt.Errorf("model not loaded: %w", svc.models.LoadError())
		}

		release, err := svc.pipeline.Admit(ctx)
		if err != nil {
			return err
		}
		defer release()

		scope := svc.temp.NewScope()
		defer func() {
			if err := scope.Release(); err != nil {
				svc.app.Logger.Warn("Temp cleanup incomplete", logger.ErrorFields("release", err))
			}
		}()

		na, err := svc.normalizer.Normalize(ctx, scope, path)
		if err != nil {
			return fmt.Errorf("normalize: %w", err)
		}
		emb, err := svc.pipeline.Extract(ctx, na)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(api.ExtractResponse{
			Success:              true,
			Embedding:            emb.Values,
			Dimension:            len(emb.Values),
			SampleRate:           emb.SampleRate,
			AudioDurationSeconds: emb.DurationSeconds,
		})
	})
}
