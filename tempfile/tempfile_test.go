package tempfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{Dir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	return len(entries)
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if !strings.HasSuffix(cfg.Dir, "embedding-service") {
		t.Errorf("unexpected default dir %s", cfg.Dir)
	}
	if cfg.SweepOlderThan != time.Hour {
		t.Errorf("expected 1h sweep age, got %v", cfg.SweepOlderThan)
	}
	err := (&Config{Dir: "x", SweepOlderThan: -1}).Validate()
	if err == nil || !strings.Contains(err.Error(), "tempfile.sweep_older_than") {
		t.Errorf("expected error naming the sweep age, got %v", err)
	}
}

func TestNewManagerCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "tmp")
	m, err := NewManager(Config{Dir: dir}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if info, err := os.Stat(m.Dir()); err != nil || !info.IsDir() {
		t.Fatalf("expected dir to exist: %v", err)
	}
}

func TestScopeCreateAndRelease(t *testing.T) {
	m := newTestManager(t)
	scope := m.NewScope()

	f, err := scope.Create(".upload")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, _ = f.WriteString("RIFF")
	f.Close()

	out, err := scope.Path("wav")
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if !strings.HasSuffix(out, ".wav") {
		t.Errorf("expected .wav suffix, got %s", out)
	}
	name := strings.TrimSuffix(filepath.Base(out), ".wav")
	if _, err := uuid.Parse(name); err != nil {
		t.Errorf("expected uuid file name, got %s", name)
	}
	if len(scope.Files()) != 2 || countFiles(t, m.Dir()) != 2 {
		t.Fatalf("expected 2 files, got %v", scope.Files())
	}

	if err := scope.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if n := countFiles(t, m.Dir()); n != 0 {
		t.Errorf("expected no files after release, found %d", n)
	}
	if err := scope.Release(); err != nil {
		t.Errorf("second Release should be a no-op: %v", err)
	}
	if _, err := scope.Create(".wav"); err != ErrReleased {
		t.Errorf("expected ErrReleased, got %v", err)
	}
}

func TestReleaseToleratesMissingFile(t *testing.T) {
	m := newTestManager(t)
	scope := m.NewScope()
	p, _ := scope.Path(".wav")
	_ = os.Remove(p)
	if err := scope.Release(); err != nil {
		t.Errorf("missing file should not fail release: %v", err)
	}
}

func TestSuffixCannotEscapeDir(t *testing.T) {
	m := newTestManager(t)
	scope := m.NewScope()
	defer scope.Release()

	p, err := scope.Path("../../etc/passwd")
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if filepath.Dir(p) != m.Dir() {
		t.Errorf("file escaped temp dir: %s", p)
	}
}

func TestConcurrentScopesAreIndependent(t *testing.T) {
	m := newTestManager(t)
	var wg sync.WaitGroup
	names := make(chan string, 64)

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scope := m.NewScope()
			defer scope.Release()
			a, _ := scope.Path(".upload")
			b, _ := scope.Path(".wav")
			names <- a
			names <- b
		}()
	}
	wg.Wait()
	close(names)

	seen := map[string]bool{}
	for n := range names {
		if seen[n] {
			t.Fatalf("duplicate temp file name %s", n)
		}
		seen[n] = true
	}
	if n := countFiles(t, m.Dir()); n != 0 {
		t.Errorf("expected no leftovers, found %d", n)
	}
}

func TestSweep(t *testing.T) {
	m := newTestManager(t)
	stale := filepath.Join(m.Dir(), uuid.NewString()+".wav")
	fresh := filepath.Join(m.Dir(), uuid.NewString()+".wav")
	for _, p := range []string{stale, fresh} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(m.Dir(), "subdir"), 0o750); err != nil {
		t.Fatal(err)
	}

	removed, err := m.Sweep(time.Hour)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh file should survive the sweep")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file should be removed")
	}
}

func TestSweepKeepsForeignFiles(t *testing.T) {
	m := newTestManager(t)
	old := time.Now().Add(-2 * time.Hour)
	names := []string{
		"someone-elses-report.pdf",
		"short.wav",
		"not-a-uuid-but-thirty-six-characters.wav",
		uuid.NewString() + ".upload",
	}
	for _, n := range names {
		p := filepath.Join(m.Dir(), n)
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := m.Sweep(time.Hour)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected only the owned file removed, got %d", removed)
	}
	for _, n := range names[:3] {
		if _, err := os.Stat(filepath.Join(m.Dir(), n)); err != nil {
			t.Errorf("%s should survive the sweep: %v", n, err)
		}
	}
}

func TestOwned(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{uuid.NewString() + ".wav", true},
		{uuid.NewString(), true},
		{"someone-elses-report.pdf", false},
		{"", false},
		{"zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz.wav", false},
	}
	for _, tt := range tests {
		if got := owned(tt.name); got != tt.want {
			t.Errorf("owned(%q) = %t, want %t", tt.name, got, tt.want)
		}
	}
}

func TestComponent(t *testing.T) {
	m := newTestManager(t)
	stale := filepath.Join(m.Dir(), uuid.NewString()+".upload")
	_ = os.WriteFile(stale, []byte("x"), 0o600)
	old := time.Now().Add(-3 * time.Hour)
	_ = os.Chtimes(stale, old, old)

	c := NewComponent(m, Config{}, nil)
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("startup should sweep stale files")
	}
	if h := c.Health(ctx); h.Status != "healthy" {
		t.Errorf("expected healthy, got %s (%s)", h.Status, h.Message)
	}
	if err := os.RemoveAll(m.Dir()); err != nil {
		t.Fatal(err)
	}
	if h := c.Health(ctx); h.Status != "unhealthy" {
		t.Errorf("expected unhealthy with dir removed, got %s", h.Status)
	}
}
