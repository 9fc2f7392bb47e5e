// Package remote delegates inference to an HTTP sidecar that hosts the
// speaker model, for deployments where the accelerator lives elsewhere.
//
// Protocol:
//
//	GET  /health -> {"status": "ok", "device": "cuda"}
//	POST /embed  {"sample_rate": 16000, "samples": [...]}
//	          -> {"shape": [1, 1, 192], "embedding": [...]}
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kbukum/speakerembed/logger"
	"github.com/kbukum/speakerembed/resilience"
	"github.com/kbukum/speakerembed/speaker"
)

func init() {
	speaker.RegisterBackend(speaker.BackendRemote, func(ctx context.Context, cfg speaker.Config, log *logger.Logger) (speaker.Model, error) {
		return New(ctx, cfg, log)
	})
}

// Model is a client for the inference sidecar.
type Model struct {
	baseURL string
	client  *http.Client
	breaker *resilience.CircuitBreaker
	device  string
	log     *logger.Logger
}

var _ speaker.Model = (*Model)(nil)

// StatusError is a non-200 reply from the sidecar.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sidecar returned status %d: %s", e.StatusCode, e.Body)
}

// New creates the client and checks the sidecar is up. The device
// reported by the sidecar becomes the model device.
func New(ctx context.Context, cfg speaker.Config, log *logger.Logger) (*Model, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("speaker.remote")

	m := &Model{
		baseURL: strings.TrimRight(cfg.Remote.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Remote.Timeout},
		log:     log,
	}
	bc := resilience.DefaultCircuitBreakerConfig("speaker-remote")
	bc.MaxFailures = cfg.Remote.MaxFailures
	bc.Timeout = cfg.Remote.ResetTimeout
	bc.IsFailure = isSidecarFailure
	bc.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("Circuit state changed", logger.Fields("breaker", name, "from", from.String(), "to", to.String()))
	}
	m.breaker = resilience.NewCircuitBreaker(bc)

	device, err := m.health(ctx)
	if err != nil {
		return nil, fmt.Errorf("sidecar %s unavailable: %w", m.baseURL, err)
	}
	if cfg.Device != speaker.DeviceAuto && device != cfg.Device {
		return nil, fmt.Errorf("sidecar runs on %s, %s requested", device, cfg.Device)
	}
	m.device = device
	return m, nil
}

type healthResponse struct {
	Status string `json:"status"`
	Device string `json:"device"`
}

func (m *Model) health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/health", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", readStatusError(resp)
	}

	var h healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return "", fmt.Errorf("decode health: %w", err)
	}
	if h.Device == "" {
		h.Device = speaker.DeviceCPU
	}
	return h.Device, nil
}

type embedRequest struct {
	SampleRate int       `json:"sample_rate"`
	Samples    []float32 `json:"samples"`
}

type embedResponse struct {
	Shape     []int64   `json:"shape"`
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Device returns the device the sidecar reported at load.
func (m *Model) Device() string { return m.device }

// Embed posts the samples to the sidecar through the circuit breaker.
func (m *Model) Embed(ctx context.Context, samples []float32, sampleRate int) (speaker.Tensor, error) {
	body, err := json.Marshal(embedRequest{SampleRate: sampleRate, Samples: samples})
	if err != nil {
		return speaker.Tensor{}, fmt.Errorf("encode request: %w", err)
	}

	var out embedResponse
	err = m.breaker.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/embed", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if id := logger.RequestIDFromContext(ctx); id != "" {
			req.Header.Set("X-Request-Id", id)
		}

		resp, err := m.client.Do(req)
		if err != nil {
			return fmt.Errorf("embed request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return readStatusError(resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if out.Error != "" {
			return fmt.Errorf("sidecar error: %s", out.Error)
		}
		return nil
	})
	if err != nil {
		m.log.WithContext(ctx).Warn("Sidecar embed failed", logger.Fields(
			"error", err.Error(),
			"consecutive_failures", m.breaker.Failures(),
			"circuit", m.breaker.State().String(),
		))
		return speaker.Tensor{}, err
	}
	return speaker.Tensor{Shape: out.Shape, Data: out.Embedding}, nil
}

// Close releases idle connections.
func (m *Model) Close() error {
	m.client.CloseIdleConnections()
	return nil
}

func readStatusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// isSidecarFailure counts transport errors and 5xx replies against the
// circuit; a 4xx means the request was bad, not the sidecar.
func isSidecarFailure(err error) bool {
	var se *StatusError
	if stderrors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return true
}
