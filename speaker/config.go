package speaker

import (
	"fmt"
	"time"

	"github.com/kbukum/speakerembed/validation"
)

// Backend names.
const (
	BackendONNX   = "onnx"
	BackendRemote = "remote"
)

// Device names.
const (
	DeviceAuto = "auto"
	DeviceCUDA = "cuda"
	DeviceCPU  = "cpu"
)

// EmbeddingDimension is the length of an ECAPA-TDNN speaker embedding.
const EmbeddingDimension = 192

// Config describes the speaker model and how to load it.
type Config struct {
	// Name is the model family reported by /health and /info.
	Name string `yaml:"name" mapstructure:"name"`
	// Source identifies the pretrained weights.
	Source string `yaml:"source" mapstructure:"source"`
	// Backend is onnx (in process) or remote (HTTP inference sidecar).
	Backend string `yaml:"backend" mapstructure:"backend" validate:"oneof=onnx remote"`
	// Device is auto, cuda or cpu. Auto picks cuda when the backend has it.
	Device string `yaml:"device" mapstructure:"device" validate:"oneof=auto cuda cpu"`
	// CacheDir holds the downloaded model files.
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
	// Dimension is the expected embedding length.
	Dimension int `yaml:"dimension" mapstructure:"dimension" validate:"gt=0"`

	ONNX   ONNXConfig   `yaml:"onnx" mapstructure:"onnx"`
	Remote RemoteConfig `yaml:"remote" mapstructure:"remote"`
}

// ONNXConfig configures the in-process ONNX Runtime backend.
type ONNXConfig struct {
	// LibraryPath points at libonnxruntime. Empty uses ONNX_PATH or the
	// loader's default search path.
	LibraryPath string `yaml:"library_path" mapstructure:"library_path"`
	// ModelFile is the exported embedding model, relative to CacheDir.
	ModelFile string `yaml:"model_file" mapstructure:"model_file"`
	// ModelURL is fetched into CacheDir when ModelFile is missing.
	ModelURL string `yaml:"model_url" mapstructure:"model_url"`
	// InputName and OutputName are the graph's feature input and embedding output.
	InputName  string `yaml:"input_name" mapstructure:"input_name"`
	OutputName string `yaml:"output_name" mapstructure:"output_name"`
	// LengthsInput names the optional relative-length input; empty omits it.
	LengthsInput string `yaml:"lengths_input" mapstructure:"lengths_input"`
	// NumMelBins is the filterbank size the model was trained on.
	NumMelBins int `yaml:"num_mel_bins" mapstructure:"num_mel_bins" validate:"gte=0"`
	// IntraOpThreads caps ONNX Runtime's intra-op pool; 0 keeps its default.
	IntraOpThreads int `yaml:"intra_op_threads" mapstructure:"intra_op_threads" validate:"gte=0"`
}

// RemoteConfig configures the HTTP inference sidecar backend.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxFailures consecutive failures open the circuit for ResetTimeout.
	MaxFailures  int           `yaml:"max_failures" mapstructure:"max_failures" validate:"gte=0"`
	ResetTimeout time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "ECAPA-TDNN"
	}
	if c.Source == "" {
		c.Source = "speechbrain/spkrec-ecapa-voxceleb"
	}
	if c.Backend == "" {
		c.Backend = BackendONNX
	}
	if c.Device == "" {
		c.Device = DeviceAuto
	}
	if c.CacheDir == "" {
		c.CacheDir = "pretrained_models/spkrec-ecapa-voxceleb"
	}
	if c.Dimension == 0 {
		c.Dimension = EmbeddingDimension
	}

	if c.ONNX.ModelFile == "" {
		c.ONNX.ModelFile = "embedding_model.onnx"
	}
	if c.ONNX.InputName == "" {
		c.ONNX.InputName = "feats"
	}
	if c.ONNX.OutputName == "" {
		c.ONNX.OutputName = "embs"
	}
	if c.ONNX.NumMelBins == 0 {
		c.ONNX.NumMelBins = 80
	}

	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = "http://localhost:8390"
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = 60 * time.Second
	}
	if c.Remote.MaxFailures == 0 {
		c.Remote.MaxFailures = 5
	}
	if c.Remote.ResetTimeout == 0 {
		c.Remote.ResetTimeout = 30 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	return nil
}

// ResolveDevice returns the device a load will target before any backend
// has probed the hardware. Auto reports cpu until a backend says otherwise.
func (c *Config) ResolveDevice() string {
	if c.Device == DeviceCUDA {
		return DeviceCUDA
	}
	return DeviceCPU
}
