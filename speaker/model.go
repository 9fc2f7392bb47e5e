package speaker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/speakerembed/logger"
)

// Model computes raw speaker embeddings. Implementations must allow
// concurrent Embed calls.
type Model interface {
	// Embed runs inference over mono samples in [-1, 1].
	Embed(ctx context.Context, samples []float32, sampleRate int) (Tensor, error)
	// Device reports where inference runs, "cuda" or "cpu".
	Device() string
	// Close releases the model.
	Close() error
}

// Tensor is a model output before any reshaping.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Elements returns the element count implied by Shape.
func (t Tensor) Elements() int64 {
	if len(t.Shape) == 0 {
		return int64(len(t.Data))
	}
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// ErrUnknownBackend is returned by NewModel for an unregistered backend.
var ErrUnknownBackend = errors.New("speaker: unknown backend")

// Factory builds a Model. Loading the weights happens here, so a returned
// Model is ready for inference.
type Factory func(ctx context.Context, cfg Config, log *logger.Logger) (Model, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// RegisterBackend makes a model backend available by name. Backends
// register from init, so binaries import them for side effects.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends returns the registered backend names.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewModel builds and loads the configured backend.
func NewModel(ctx context.Context, cfg Config, log *logger.Logger) (Model, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownBackend, cfg.Backend, Backends())
	}
	if log == nil {
		log = logger.NewNop()
	}
	return f(ctx, cfg, log)
}
