package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerembed/component"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, path string, h gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := gin.New()
	r.GET(path, h)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return rr, body
}

func TestReadinessReady(t *testing.T) {
	checker := func(ctx context.Context) []component.Health {
		return []component.Health{{Name: "speaker-model", Status: component.StatusHealthy}}
	}
	rr, body := serve(t, "/readyz", Readiness("embedding-service", checker))
	if rr.Code != http.StatusOK || body["status"] != "ready" {
		t.Errorf("got %d %v", rr.Code, body)
	}
}

func TestReadinessNotReady(t *testing.T) {
	checker := func(ctx context.Context) []component.Health {
		return []component.Health{
			{Name: "speaker-model", Status: component.StatusUnhealthy, Message: "model not loaded"},
			{Name: "http-server", Status: component.StatusHealthy},
		}
	}
	rr, body := serve(t, "/readyz", Readiness("embedding-service", checker))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if body["status"] != "not_ready" {
		t.Errorf("unexpected status %v", body["status"])
	}
	if comps, _ := body["components"].([]any); len(comps) != 1 {
		t.Errorf("expected only the failing component, got %v", body["components"])
	}
}

func TestReadinessNilChecker(t *testing.T) {
	rr, _ := serve(t, "/readyz", Readiness("embedding-service", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestLiveness(t *testing.T) {
	rr, body := serve(t, "/livez", Liveness("embedding-service"))
	if rr.Code != http.StatusOK || body["status"] != "alive" {
		t.Errorf("got %d %v", rr.Code, body)
	}
}

func TestVersion(t *testing.T) {
	_, body := serve(t, "/version", Version())
	if body["version"] == "" || body["version"] == nil {
		t.Errorf("expected version, got %v", body)
	}
}

func TestMetrics(t *testing.T) {
	_, body := serve(t, "/metrics", Metrics())
	if _, ok := body["goroutines"]; !ok {
		t.Errorf("expected goroutines, got %v", body)
	}
}
