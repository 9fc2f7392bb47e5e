// Package onnx runs an exported ECAPA-TDNN embedding graph in process
// with ONNX Runtime. The graph takes log-mel filterbank features, which
// this package computes from the canonical 16 kHz samples.
package onnx

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/kbukum/speakerembed/audio"
	"github.com/kbukum/speakerembed/logger"
	"github.com/kbukum/speakerembed/speaker"
)

func init() {
	speaker.RegisterBackend(speaker.BackendONNX, func(ctx context.Context, cfg speaker.Config, log *logger.Logger) (speaker.Model, error) {
		return New(ctx, cfg, log)
	})
}

// envMu guards the process-wide ONNX Runtime environment.
var envMu sync.Mutex

// Model is a loaded ONNX Runtime session.
type Model struct {
	session   *ort.DynamicAdvancedSession
	device    string
	fbank     fbankConfig
	lengths   bool
	ownsEnv   bool
	closeOnce sync.Once
	log       *logger.Logger
}

var _ speaker.Model = (*Model)(nil)

// New initializes ONNX Runtime, fetches the model file if needed and
// creates the session on the configured device.
func New(ctx context.Context, cfg speaker.Config, log *logger.Logger) (*Model, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("speaker.onnx")

	modelPath := filepath.Join(cfg.CacheDir, cfg.ONNX.ModelFile)
	if err := ensureModel(ctx, http.DefaultClient, modelPath, cfg.ONNX.ModelURL); err != nil {
		return nil, err
	}

	ownsEnv, err := initEnvironment(cfg.ONNX.LibraryPath)
	if err != nil {
		return nil, err
	}

	inputs := []string{cfg.ONNX.InputName}
	if cfg.ONNX.LengthsInput != "" {
		inputs = append(inputs, cfg.ONNX.LengthsInput)
	}
	outputs := []string{cfg.ONNX.OutputName}

	session, device, err := newSession(cfg, modelPath, inputs, outputs, log)
	if err != nil {
		if ownsEnv {
			_ = destroyEnvironment()
		}
		return nil, err
	}

	return &Model{
		session: session,
		device:  device,
		fbank:   defaultFbank(audio.TargetSampleRate, cfg.ONNX.NumMelBins),
		lengths: cfg.ONNX.LengthsInput != "",
		ownsEnv: ownsEnv,
		log:     log,
	}, nil
}

func initEnvironment(libraryPath string) (bool, error) {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return false, nil
	}
	if libraryPath == "" {
		libraryPath = os.Getenv("ONNX_PATH")
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return false, fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return true, nil
}

func destroyEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()
	return ort.DestroyEnvironment()
}

// newSession creates the session on cuda when requested or, for auto,
// when the CUDA provider can be attached; auto falls back to cpu.
func newSession(cfg speaker.Config, path string, inputs, outputs []string, log *logger.Logger) (*ort.DynamicAdvancedSession, string, error) {
	if cfg.Device != speaker.DeviceCPU {
		session, err := createSession(cfg, path, inputs, outputs, true)
		if err == nil {
			return session, speaker.DeviceCUDA, nil
		}
		if cfg.Device == speaker.DeviceCUDA {
			return nil, "", fmt.Errorf("create cuda session: %w", err)
		}
		log.Info("CUDA unavailable, using cpu", logger.Fields("reason", err.Error()))
	}

	session, err := createSession(cfg, path, inputs, outputs, false)
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	return session, speaker.DeviceCPU, nil
}

func createSession(cfg speaker.Config, path string, inputs, outputs []string, cuda bool) (*ort.DynamicAdvancedSession, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	defer opts.Destroy()

	if cfg.ONNX.IntraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.ONNX.IntraOpThreads); err != nil {
			return nil, err
		}
	}
	if cuda {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, err
		}
		defer cudaOpts.Destroy()
		if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			return nil, err
		}
	}
	return ort.NewDynamicAdvancedSession(path, inputs, outputs, opts)
}

// Device returns the execution device.
func (m *Model) Device() string { return m.device }

// Embed computes filterbank features and runs the session. Run is safe to
// call from several goroutines on one session.
func (m *Model) Embed(ctx context.Context, samples []float32, sampleRate int) (speaker.Tensor, error) {
	if sampleRate != m.fbank.sampleRate {
		return speaker.Tensor{}, fmt.Errorf("sample rate %d, model expects %d", sampleRate, m.fbank.sampleRate)
	}
	if len(samples) == 0 {
		return speaker.Tensor{}, fmt.Errorf("empty audio")
	}
	if err := ctx.Err(); err != nil {
		return speaker.Tensor{}, err
	}

	feats, frames := fbank(samples, m.fbank)
	input, err := ort.NewTensor(ort.NewShape(1, int64(frames), int64(m.fbank.numMels)), feats)
	if err != nil {
		return speaker.Tensor{}, fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	inputs := []ort.Value{input}
	if m.lengths {
		lens, err := ort.NewTensor(ort.NewShape(1), []float32{1})
		if err != nil {
			return speaker.Tensor{}, fmt.Errorf("create lengths tensor: %w", err)
		}
		defer lens.Destroy()
		inputs = append(inputs, lens)
	}

	outputs := []ort.Value{nil}
	if err := m.session.Run(inputs, outputs); err != nil {
		return speaker.Tensor{}, fmt.Errorf("run session: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return speaker.Tensor{}, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	return speaker.Tensor{
		Shape: append([]int64(nil), out.GetShape()...),
		Data:  append([]float32(nil), out.GetData()...),
	}, nil
}

// Close destroys the session and, if this model created it, the runtime
// environment.
func (m *Model) Close() error {
	var err error
	m.closeOnce.Do(func() {
		err = m.session.Destroy()
		if m.ownsEnv {
			if envErr := destroyEnvironment(); err == nil {
				err = envErr
			}
		}
		m.log.Debug("Session closed")
	})
	return err
}
