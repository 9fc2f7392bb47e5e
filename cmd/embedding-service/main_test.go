package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/speakerembed/api"
	"github.com/kbukum/speakerembed/audio"
	"github.com/kbukum/speakerembed/bootstrap"
	"github.com/kbukum/speakerembed/logger"
	"github.com/kbukum/speakerembed/speaker"
)

func TestAppConfigDefaults(t *testing.T) {
	var cfg AppConfig
	cfg.ApplyDefaults()

	if cfg.Name != serviceName {
		t.Errorf("Name = %q, want %q", cfg.Name, serviceName)
	}
	if cfg.Server.Port != 5001 {
		t.Errorf("Server.Port = %d, want 5001", cfg.Server.Port)
	}
	if cfg.Model.Backend != speaker.BackendONNX || cfg.Model.Dimension != speaker.EmbeddingDimension {
		t.Errorf("Model = %+v", cfg.Model)
	}
	if cfg.Audio.TargetSampleRate != audio.TargetSampleRate {
		t.Errorf("Audio.TargetSampleRate = %d", cfg.Audio.TargetSampleRate)
	}
	if cfg.Upload.Field != "audio" || cfg.Upload.MaxFileSize != "10MB" {
		t.Errorf("Upload = %+v", cfg.Upload)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestAppConfigValidateNamesSection(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{"model backend", func(c *AppConfig) { c.Model.Backend = "torch" }, "model:"},
		{"audio backend", func(c *AppConfig) { c.Audio.Backend = "sox" }, "audio:"},
		{"extraction", func(c *AppConfig) { c.Extraction.MaxConcurrent = -1 }, "extraction:"},
		{"upload size", func(c *AppConfig) { c.Upload.MaxFileSize = "0MB" }, "upload:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg AppConfig
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.HasPrefix(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want prefix %q", err, tt.want)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatal(err)
	}
	var info map[string]any
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("version output is not JSON: %v\n%s", err, out.String())
	}
	if _, ok := info["version"]; !ok {
		t.Errorf("missing version field: %v", info)
	}
}

// sidecar answers the remote backend's health and embed calls.
func sidecar(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "device": "cpu"})
	})
	mux.HandleFunc("/embed", func(w http.ResponseWriter, r *http.Request) {
		emb := make([]float32, speaker.EmbeddingDimension)
		for i := range emb {
			emb[i] = 0.01
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"shape": []int64{1, 1, int64(len(emb))}, "embedding": emb})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, sidecarURL string) *AppConfig {
	t.Helper()
	var cfg AppConfig
	cfg.Model.Backend = speaker.BackendRemote
	cfg.Model.Device = speaker.DeviceCPU
	cfg.Model.Remote.BaseURL = sidecarURL
	cfg.Audio.Backend = audio.BackendNative
	cfg.TempFile.Dir = t.TempDir()
	cfg.ApplyDefaults()
	return &cfg
}

func writeTone(t *testing.T, rate int, seconds float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	samples := make([]float32, int(float64(rate)*seconds))
	for i := range samples {
		samples[i] = float32(i%40) / 80
	}
	if err := audio.WriteWAV(f, samples, rate); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietOpts() []bootstrap.Option {
	return []bootstrap.Option{bootstrap.WithLogger(logger.NewNop()), bootstrap.WithSummaryOutput(&bytes.Buffer{})}
}

func TestRunExtractPrintsEmbedding(t *testing.T) {
	cfg := testConfig(t, sidecar(t).URL)
	path := writeTone(t, 8000, 2)

	var out bytes.Buffer
	if err := runExtract(context.Background(), cfg, path, &out, quietOpts()...); err != nil {
		t.Fatalf("runExtract: %v", err)
	}

	var resp api.ExtractResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("output is not an ExtractResponse: %v", err)
	}
	if !resp.Success || resp.Dimension != speaker.EmbeddingDimension || len(resp.Embedding) != resp.Dimension {
		t.Errorf("unexpected response: success=%v dimension=%d len=%d", resp.Success, resp.Dimension, len(resp.Embedding))
	}
	if resp.SampleRate != audio.TargetSampleRate {
		t.Errorf("SampleRate = %d, want %d", resp.SampleRate, audio.TargetSampleRate)
	}
	if resp.AudioDurationSeconds < 1.95 || resp.AudioDurationSeconds > 2.05 {
		t.Errorf("AudioDurationSeconds = %v, want ~2.0", resp.AudioDurationSeconds)
	}

	entries, _ := os.ReadDir(cfg.TempFile.Dir)
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %d", len(entries))
	}
}

func TestRunExtractModelUnavailable(t *testing.T) {
	srv := sidecar(t)
	url := srv.URL
	srv.Close()

	cfg := testConfig(t, url)
	err := runExtract(context.Background(), cfg, writeTone(t, 16000, 1), &bytes.Buffer{}, quietOpts()...)
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("runExtract() = %v, want model not loaded", err)
	}
}

func TestRunExtractReportsModelStatusWhenReady(t *testing.T) {
	tests := []struct {
		name  string
		up    bool
		want  string
		level string
	}{
		{"loaded", true, "Model ready", `"level":"info"`},
		{"unavailable", false, "Model not loaded, extraction requests will be refused", `"level":"warn"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := sidecar(t)
			if !tt.up {
				srv.Close()
			}
			var logs bytes.Buffer
			log := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, serviceName, &logs)
			opts := []bootstrap.Option{bootstrap.WithLogger(log), bootstrap.WithSummaryOutput(&bytes.Buffer{})}

			_ = runExtract(context.Background(), testConfig(t, srv.URL), writeTone(t, 16000, 1), &bytes.Buffer{}, opts...)

			var line string
			for _, l := range strings.Split(logs.String(), "\n") {
				if strings.Contains(l, tt.want) {
					line = l
				}
			}
			if line == "" {
				t.Fatalf("no %q log line in:\n%s", tt.want, logs.String())
			}
			if !strings.Contains(line, tt.level) {
				t.Errorf("log line %s, want %s", line, tt.level)
			}
		})
	}
}

func TestRunExtractMissingFile(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	err := runExtract(context.Background(), cfg, filepath.Join(t.TempDir(), "nope.wav"), &bytes.Buffer{}, quietOpts()...)
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestHTTPServerRoutes(t *testing.T) {
	cfg := testConfig(t, sidecar(t).URL)
	svc, err := newService(cfg, quietOpts()...)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.models.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv := newHTTPServer(svc)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/health = %d: %s", rec.Code, rec.Body.String())
	}

	var tracked []string
	for _, r := range svc.app.Summary.Routes() {
		tracked = append(tracked, r.Method+" "+r.Path)
	}
	joined := strings.Join(tracked, ",")
	for _, want := range []string{"GET /health", "GET /info", "POST /api/extract-embedding"} {
		if !strings.Contains(joined, want) {
			t.Errorf("route %q not tracked: %v", want, tracked)
		}
	}
}
