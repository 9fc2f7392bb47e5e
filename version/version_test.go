package version

import (
	"strings"
	"testing"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBuildTime := Version, GitCommit, BuildTime
	return func() {
		Version = origVersion
		GitCommit = origCommit
		BuildTime = origBuildTime
	}
}

func TestGetVersionInfoDefaults(t *testing.T) {
	defer saveAndRestore()()

	info := GetVersionInfo()
	if info.Version != "1.0.0" {
		t.Errorf("expected default version '1.0.0', got %q", info.Version)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should come from build info")
	}
}

func TestGetVersionInfoLdflags(t *testing.T) {
	defer saveAndRestore()()
	Version = "2.1.0"
	GitCommit = "abc1234def5678"
	BuildTime = "2026-01-15T10:30:00Z"

	info := GetVersionInfo()
	if info.Version != "2.1.0" {
		t.Errorf("expected version '2.1.0', got %q", info.Version)
	}
	if info.GitCommit != "abc1234" {
		t.Errorf("expected commit truncated to 7 chars, got %q", info.GitCommit)
	}
	if info.BuildTime != "2026-01-15T10:30:00Z" {
		t.Errorf("unexpected build time %q", info.BuildTime)
	}
}

func TestGetShortVersion(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.2.3"
	GitCommit = "abc1234"

	got := GetShortVersion()
	if !strings.HasPrefix(got, "1.2.3-abc1234") {
		t.Errorf("unexpected short version %q", got)
	}
}
