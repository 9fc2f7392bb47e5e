package process

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const (
	stderrTailLines    = 3
	defaultGracePeriod = 5 * time.Second
	defaultMaxOutput   = 1 << 20
)

// Command describes one tool invocation.
type Command struct {
	// Binary is an executable name (looked up on PATH) or path.
	Binary string
	Args   []string
	// Env is appended to the parent environment.
	Env []string
	// GracePeriod is the wait between SIGTERM and SIGKILL once the context
	// is done. Zero means 5s.
	GracePeriod time.Duration
	// MaxOutput caps the bytes kept from each of stdout and stderr. Stdout
	// keeps the head, stderr keeps the tail. Zero means 1 MiB.
	MaxOutput int
}

// Run executes cmd and waits for it. When ctx is done the process group
// gets SIGTERM, then SIGKILL after the grace period.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}
	grace := cmd.GracePeriod
	if grace == 0 {
		grace = defaultGracePeriod
	}
	limit := cmd.MaxOutput
	if limit <= 0 {
		limit = defaultMaxOutput
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // arguments are built by the caller
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	stdout := &headBuffer{limit: limit}
	stderr := &tailBuffer{limit: limit}
	c.Stdout = stdout
	c.Stderr = stderr

	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = grace

	start := time.Now()
	err := c.Run()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return result, fmt.Errorf("process: %s killed by context: %w", cmd.Binary, ctx.Err())
	}
	if tail := result.StderrTail(stderrTailLines); tail != "" {
		return result, fmt.Errorf("process: %s exit code %d: %s: %w", cmd.Binary, result.ExitCode, tail, err)
	}
	return result, fmt.Errorf("process: %s exit code %d: %w", cmd.Binary, result.ExitCode, err)
}

// LookPath resolves binary on PATH, or checks that an explicit path is executable.
func LookPath(binary string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("process: %s not found: %w", binary, err)
	}
	return path, nil
}

// headBuffer keeps the first limit bytes and discards the rest.
type headBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *headBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *headBuffer) Bytes() []byte { return b.buf.Bytes() }

// tailBuffer keeps the last limit bytes.
type tailBuffer struct {
	data  []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	if over := len(b.data) - b.limit; over > 0 {
		b.data = append(b.data[:0], b.data[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) Bytes() []byte { return b.data }
