package speaker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kbukum/speakerembed/component"
	"github.com/kbukum/speakerembed/logger"
)

type fakeModel struct {
	device string
	closed atomic.Bool
}

func (f *fakeModel) Embed(_ context.Context, samples []float32, _ int) (Tensor, error) {
	return Tensor{Shape: []int64{1, 1, EmbeddingDimension}, Data: make([]float32, EmbeddingDimension)}, nil
}
func (f *fakeModel) Device() string { return f.device }
func (f *fakeModel) Close() error {
	f.closed.Store(true)
	return nil
}

func countingFactory(model Model, err error, calls *atomic.Int32) Factory {
	return func(ctx context.Context, cfg Config, log *logger.Logger) (Model, error) {
		calls.Add(1)
		if err != nil {
			return nil, err
		}
		return model, nil
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Name != "ECAPA-TDNN" || cfg.Source != "speechbrain/spkrec-ecapa-voxceleb" {
		t.Errorf("unexpected model identity: %s %s", cfg.Name, cfg.Source)
	}
	if cfg.Dimension != 192 || cfg.Backend != BackendONNX || cfg.Device != DeviceAuto {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.Device = "tpu"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid device to fail validation")
	}
}

func TestResolveDevice(t *testing.T) {
	tests := []struct {
		device string
		want   string
	}{
		{DeviceAuto, DeviceCPU},
		{DeviceCPU, DeviceCPU},
		{DeviceCUDA, DeviceCUDA},
	}
	for _, tt := range tests {
		cfg := Config{Device: tt.device}
		if got := cfg.ResolveDevice(); got != tt.want {
			t.Errorf("ResolveDevice(%s) = %s, want %s", tt.device, got, tt.want)
		}
	}
}

func TestManagerLoadSuccess(t *testing.T) {
	var calls atomic.Int32
	model := &fakeModel{device: DeviceCUDA}
	mgr := NewManager(Config{}, logger.NewNop(), WithFactory(countingFactory(model, nil, &calls)))

	if mgr.IsReady() {
		t.Fatal("manager should start unready")
	}
	if _, ok := mgr.Model(); ok {
		t.Fatal("Model should report false before load")
	}

	if err := mgr.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !mgr.IsReady() {
		t.Error("manager should be ready")
	}
	if mgr.Device() != DeviceCUDA {
		t.Errorf("device = %s, want cuda", mgr.Device())
	}
	got, ok := mgr.Model()
	if !ok || got != model {
		t.Error("Model should return the loaded model")
	}
	if h := mgr.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("health = %s, want healthy", h.Status)
	}
}

func TestManagerLoadFailureIsTerminal(t *testing.T) {
	var calls atomic.Int32
	loadErr := errors.New("model file not found")
	mgr := NewManager(Config{}, logger.NewNop(), WithFactory(countingFactory(nil, loadErr, &calls)))

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start must not fail on load error: %v", err)
	}
	if mgr.IsReady() {
		t.Error("manager should stay unready")
	}
	if !errors.Is(mgr.LoadError(), loadErr) {
		t.Errorf("LoadError = %v", mgr.LoadError())
	}
	if err := mgr.Load(context.Background()); !errors.Is(err, loadErr) {
		t.Errorf("second Load should return the first outcome, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("factory called %d times, want 1", calls.Load())
	}

	h := mgr.Health(context.Background())
	if h.Status != component.StatusUnhealthy || !strings.Contains(h.Message, "not found") {
		t.Errorf("health = %+v", h)
	}
	if mgr.Device() != DeviceCPU {
		t.Errorf("device = %s, want configured cpu", mgr.Device())
	}
}

func TestManagerConcurrentLoadRunsOnce(t *testing.T) {
	var calls atomic.Int32
	mgr := NewManager(Config{}, nil, WithFactory(countingFactory(&fakeModel{device: DeviceCPU}, nil, &calls)))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.Load(context.Background())
			_ = mgr.IsReady()
		}()
	}
	wg.Wait()
	if calls.Load() != 1 {
		t.Errorf("factory called %d times, want 1", calls.Load())
	}
}

func TestManagerStopClosesModel(t *testing.T) {
	var calls atomic.Int32
	model := &fakeModel{device: DeviceCPU}
	mgr := NewManager(Config{}, nil, WithFactory(countingFactory(model, nil, &calls)))
	_ = mgr.Start(context.Background())

	if err := mgr.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !model.closed.Load() {
		t.Error("model should be closed")
	}
	if mgr.IsReady() {
		t.Error("manager should be unready after Stop")
	}
	if err := mgr.Stop(context.Background()); err != nil {
		t.Errorf("second Stop should be a no-op: %v", err)
	}
}

func TestNewModelUnknownBackend(t *testing.T) {
	_, err := NewModel(context.Background(), Config{Backend: "torch"}, nil)
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestRegisterBackend(t *testing.T) {
	RegisterBackend("fake", func(ctx context.Context, cfg Config, log *logger.Logger) (Model, error) {
		return &fakeModel{device: DeviceCPU}, nil
	})
	m, err := NewModel(context.Background(), Config{Backend: "fake"}, nil)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	if m.Device() != DeviceCPU {
		t.Errorf("device = %s", m.Device())
	}
}

func TestTensorElements(t *testing.T) {
	tensor := Tensor{Shape: []int64{1, 1, 192}, Data: make([]float32, 192)}
	if tensor.Elements() != 192 {
		t.Errorf("Elements = %d", tensor.Elements())
	}
	if (Tensor{Data: make([]float32, 3)}).Elements() != 3 {
		t.Error("shapeless tensor should count its data")
	}
}

func TestDescribe(t *testing.T) {
	mgr := NewManager(Config{Backend: BackendRemote}, nil)
	d := mgr.Describe()
	if !strings.Contains(d.Details, "backend=remote") || !strings.Contains(d.Details, "ECAPA-TDNN") {
		t.Errorf("details = %q", d.Details)
	}
}
