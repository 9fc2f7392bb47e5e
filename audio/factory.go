package audio

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/speakerembed/logger"
)

// ErrBackendUnavailable is returned by a factory whose runtime dependency
// (such as the ffmpeg binary) is missing. Auto selection skips it.
var ErrBackendUnavailable = errors.New("audio: backend unavailable")

// Factory creates a Normalizer from config.
type Factory func(cfg Config, log *logger.Logger) (Normalizer, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// RegisterBackend makes a backend available by name. Backends register
// themselves from init, so binaries import them for side effects.
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

// New builds the configured Normalizer.
func New(cfg Config, log *logger.Logger) (Normalizer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	if cfg.Backend != BackendAuto {
		return build(cfg.Backend, cfg, log)
	}

	n, err := build(BackendFFmpeg, cfg, log)
	if err == nil {
		return n, nil
	}
	log.Info("ffmpeg unavailable, using native decoders", logger.Fields("reason", err.Error()))
	return build(BackendNative, cfg, log)
}

func build(name string, cfg Config, log *logger.Logger) (Normalizer, error) {
	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s not registered", ErrBackendUnavailable, name)
	}
	return f(cfg, log)
}
