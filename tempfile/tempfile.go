package tempfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/speakerembed/logger"
)

// ErrReleased is returned by Create on a scope that was already released.
var ErrReleased = errors.New("tempfile: scope released")

// Manager owns the temp directory and hands out per-request scopes.
type Manager struct {
	dir string
	log *logger.Logger
}

// NewManager creates the temp directory if needed.
func NewManager(cfg Config, log *logger.Logger) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	abs, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("tempfile: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("tempfile: create dir: %w", err)
	}
	return &Manager{dir: abs, log: log.WithComponent("tempfile")}, nil
}

// Dir returns the absolute temp directory.
func (m *Manager) Dir() string { return m.dir }

// NewScope starts a scope. Callers defer Release right after acquiring it.
func (m *Manager) NewScope() *Scope {
	return &Scope{mgr: m}
}

// Sweep removes files this manager created, last modified more than
// olderThan ago, and returns how many were removed. Files whose name does
// not start with a UUID belong to someone else and are left alone.
func (m *Manager) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, fmt.Errorf("tempfile: read dir: %w", err)
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() || !owned(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		m.log.Info("Removed stale temp files", logger.Fields("count", removed, "dir", m.dir))
	}
	return removed, errors.Join(errs...)
}

// uuidLen is the length of a canonical UUID string.
const uuidLen = 36

// owned reports whether name has the <uuid><suffix> form used by Create.
func owned(name string) bool {
	if len(name) < uuidLen {
		return false
	}
	_, err := uuid.Parse(name[:uuidLen])
	return err == nil
}

// Scope tracks the files created for one request.
type Scope struct {
	mgr *Manager

	mu       sync.Mutex
	paths    []string
	released bool
}

// Create creates a new empty file named <uuid><suffix> and returns it open
// for writing. The file is removed by Release.
func (s *Scope) Create(suffix string) (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, ErrReleased
	}
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	path := filepath.Join(s.mgr.dir, uuid.New().String()+filepath.Base(suffix))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("tempfile: create: %w", err)
	}
	s.paths = append(s.paths, path)
	return f, nil
}

// Path creates a new empty file like Create, closes it and returns its path.
// Used when another program writes the file.
func (s *Scope) Path(suffix string) (string, error) {
	f, err := s.Create(suffix)
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("tempfile: close: %w", err)
	}
	return f.Name(), nil
}

// Files returns the paths created in this scope.
func (s *Scope) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Release removes every file created in the scope. It is idempotent; a
// missing file is not an error.
func (s *Scope) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true

	var errs []error
	for _, p := range s.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	s.paths = nil
	if err := errors.Join(errs...); err != nil {
		s.mgr.log.Warn("Temp file cleanup failed", logger.ErrorFields("release", err))
		return err
	}
	return nil
}
