package native

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/kbukum/speakerembed/audio"
	"github.com/kbukum/speakerembed/tempfile"
)

func newScope(t *testing.T) (*tempfile.Manager, *tempfile.Scope) {
	t.Helper()
	m, err := tempfile.NewManager(tempfile.Config{Dir: t.TempDir()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	scope := m.NewScope()
	t.Cleanup(func() { _ = scope.Release() })
	return m, scope
}

func sine(n, rate int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func writeMonoWAV(t *testing.T, dir string, samples []float32, rate int) string {
	t.Helper()
	p := filepath.Join(dir, "input.upload")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := audio.WriteWAV(f, samples, rate); err != nil {
		t.Fatal(err)
	}
	return p
}

func writeStereoWAV(t *testing.T, dir string, frames, rate int) string {
	t.Helper()
	p := filepath.Join(dir, "stereo.upload")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, rate, 16, 2, 1)
	data := make([]int, frames*2)
	for i := 0; i < frames; i++ {
		data[2*i] = 16000
		data[2*i+1] = -16000
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNormalizeResamples8kTo16k(t *testing.T) {
	m, scope := newScope(t)
	src := writeMonoWAV(t, t.TempDir(), sine(16000, 8000, 440), 8000)

	na, err := New(audio.Config{}, nil).Normalize(context.Background(), scope, src)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if na.SampleRate != 16000 || na.Channels != 1 {
		t.Errorf("unexpected format %+v", na)
	}
	if na.NumSamples != 32000 {
		t.Errorf("expected 32000 samples, got %d", na.NumSamples)
	}
	if d := na.Duration().Seconds(); math.Abs(d-2.0) > 0.01 {
		t.Errorf("expected ~2.0s, got %v", d)
	}
	if filepath.Dir(na.Path) != m.Dir() {
		t.Errorf("output should live in the scope dir, got %s", na.Path)
	}

	clip, err := audio.ReadWAV(na.Path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if clip.SampleRate != 16000 || clip.Channels != 1 || len(clip.Samples) != 32000 {
		t.Errorf("canonical file mismatch: rate=%d ch=%d n=%d", clip.SampleRate, clip.Channels, len(clip.Samples))
	}
}

func TestNormalizeDownmixesStereo(t *testing.T) {
	_, scope := newScope(t)
	src := writeStereoWAV(t, t.TempDir(), 1600, 16000)

	na, err := New(audio.Config{}, nil).Normalize(context.Background(), scope, src)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if na.NumSamples != 1600 {
		t.Errorf("expected 1600 samples, got %d", na.NumSamples)
	}
	clip, _ := audio.ReadWAV(na.Path)
	for i, s := range clip.Samples {
		if math.Abs(float64(s)) > 1e-3 {
			t.Fatalf("opposite channels should cancel, sample %d = %v", i, s)
		}
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, scope := newScope(t)
	p := filepath.Join(t.TempDir(), "fake.wav")
	_ = os.WriteFile(p, []byte("this is not audio at all"), 0o600)

	_, err := New(audio.Config{}, nil).Normalize(context.Background(), scope, p)
	if !errors.Is(err, errUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
	if len(scope.Files()) != 0 {
		t.Error("no output should be created for undecodable input")
	}
}

func TestNormalizeRejectsTruncatedWAV(t *testing.T) {
	_, scope := newScope(t)
	p := filepath.Join(t.TempDir(), "broken.wav")
	_ = os.WriteFile(p, []byte("RIFF\x24\x00\x00\x00WAVEjunk"), 0o600)

	if _, err := New(audio.Config{}, nil).Normalize(context.Background(), scope, p); err == nil {
		t.Fatal("expected decode error for truncated WAV")
	}
}

func TestNormalizeM4ANeedsFFmpeg(t *testing.T) {
	_, scope := newScope(t)
	p := filepath.Join(t.TempDir(), "clip.m4a")
	_ = os.WriteFile(p, []byte("\x00\x00\x00\x20ftypM4A \x00\x00\x00\x00"), 0o600)

	_, err := New(audio.Config{}, nil).Normalize(context.Background(), scope, p)
	if err == nil || !strings.Contains(err.Error(), "ffmpeg") {
		t.Fatalf("expected m4a error pointing at ffmpeg, got %v", err)
	}
}

func TestResampleLength(t *testing.T) {
	tests := []struct {
		n, in, out, want int
	}{
		{44100, 44100, 16000, 16000},
		{48000, 48000, 16000, 16000},
		{22050, 22050, 16000, 16000},
		{100, 16000, 16000, 100},
		{0, 8000, 16000, 0},
	}
	for _, tc := range tests {
		got, err := resample(sine(tc.n, tc.in, 300), tc.in, tc.out)
		if err != nil {
			t.Fatalf("resample %d→%d failed: %v", tc.in, tc.out, err)
		}
		if len(got) != tc.want {
			t.Errorf("resample %d samples %d→%d: got %d, want %d", tc.n, tc.in, tc.out, len(got), tc.want)
		}
	}
}

func TestRegisteredAsNative(t *testing.T) {
	n, err := audio.New(audio.Config{Backend: audio.BackendNative}, nil)
	if err != nil {
		t.Fatalf("audio.New failed: %v", err)
	}
	if n.Name() != audio.BackendNative {
		t.Errorf("expected native backend, got %s", n.Name())
	}
}
