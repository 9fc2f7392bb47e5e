package api

// Display names reported by /info.
const (
	ServiceDisplayName = "Voice Embedding Extraction Service"
	ModelDisplayName   = "SpeechBrain ECAPA-TDNN"
)

// HealthResponse is the /health body when the model is loaded.
type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Device string `json:"device"`
}

// UnhealthyResponse is the /health body when the model is not loaded.
type UnhealthyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// InfoResponse describes the service.
type InfoResponse struct {
	Service            string   `json:"service"`
	Model              string   `json:"model"`
	ModelSource        string   `json:"model_source"`
	EmbeddingDimension int      `json:"embedding_dimension"`
	SupportedFormats   []string `json:"supported_formats"`
	MaxFileSizeMB      float64  `json:"max_file_size_mb"`
	Device             string   `json:"device"`
	Version            string   `json:"version"`
}

// ExtractResponse is the successful extraction body.
type ExtractResponse struct {
	Success              bool      `json:"success"`
	Embedding            []float32 `json:"embedding"`
	Dimension            int       `json:"dimension"`
	SampleRate           int       `json:"sample_rate"`
	AudioDurationSeconds float64   `json:"audio_duration_seconds"`
}
