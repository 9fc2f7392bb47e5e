// Package extraction turns a normalized clip into a verified speaker
// embedding: reload the canonical WAV, run the model, reshape its output
// and check the vector before it leaves the service.
package extraction

import (
	"context"
	stderrors "errors"
	"math"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/speakerembed/audio"
	"github.com/kbukum/speakerembed/errors"
	"github.com/kbukum/speakerembed/logger"
	"github.com/kbukum/speakerembed/observability"
	"github.com/kbukum/speakerembed/resilience"
	"github.com/kbukum/speakerembed/speaker"
)

const operationName = "extract_embedding"

// Status values recorded on spans and metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusBusy    = "busy"
)

// Embedding is the result of one extraction.
type Embedding struct {
	Values          []float32
	SampleRate      int
	DurationSeconds float64
}

// ModelSource hands out the loaded model. *speaker.Manager implements it.
type ModelSource interface {
	Model() (speaker.Model, bool)
}

// Pipeline runs extractions against a shared model.
type Pipeline struct {
	models   ModelSource
	dim      int
	backend  string
	service  string
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	log      *logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records extraction metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithDimension overrides the expected embedding length.
func WithDimension(dim int) Option {
	return func(p *Pipeline) { p.dim = dim }
}

// WithLabels sets the service and backend names attached to spans and metrics.
func WithLabels(service, backend string) Option {
	return func(p *Pipeline) {
		p.service = service
		p.backend = backend
	}
}

// New creates a Pipeline.
func New(models ModelSource, cfg Config, opts ...Option) *Pipeline {
	cfg.ApplyDefaults()
	p := &Pipeline{
		models:  models,
		dim:     speaker.EmbeddingDimension,
		service: "embedding-service",
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithComponent("extraction")
	p.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "extraction",
		MaxConcurrent: cfg.MaxConcurrent,
		MaxWait:       cfg.MaxWait,
		OnReject: func(name string, err error) {
			p.log.Warn("Extraction rejected", logger.Fields("bulkhead", name, "reason", err.Error()))
		},
	})
	return p
}

// MaxConcurrent returns the extraction limit, 0 when unbounded.
func (p *Pipeline) MaxConcurrent() int {
	return p.bulkhead.MaxConcurrent()
}

// InFlight returns the number of admitted requests still holding a slot.
func (p *Pipeline) InFlight() int {
	return p.bulkhead.InUse()
}

// Admit takes an extraction slot. The slot covers normalization as well
// as inference, so callers take it before decoding and hold it until the
// embedding is returned. A full pipeline yields SERVICE_UNAVAILABLE.
func (p *Pipeline) Admit(ctx context.Context) (release func(), err error) {
	release, err = p.bulkhead.Acquire(ctx)
	if err != nil {
		p.metrics.RecordError(ctx, string(errors.ErrCodeServiceUnavailable), "admission")
		if resilience.IsRejection(err) {
			return nil, errors.ServiceUnavailable("")
		}
		return nil, toAppError(err)
	}
	return release, nil
}

// Extract computes the embedding for a normalized clip. Callers hold a
// slot from Admit. Every returned error is an *errors.AppError.
func (p *Pipeline) Extract(ctx context.Context, na *audio.NormalizedAudio) (*Embedding, error) {
	op := observability.NewOperation(p.service, operationName, logger.RequestIDFromContext(ctx), p.backend, p.metrics)
	ctx, span := op.Start(ctx, observability.SpanExtract)

	emb, err := p.extract(ctx, na)
	if err != nil {
		appErr := toAppError(err)
		p.metrics.RecordError(ctx, string(appErr.Code), "extract")
		op.End(ctx, span, StatusError, appErr)
		return nil, appErr
	}

	span.SetAttributes(
		attribute.Int(observability.AttrEmbeddingDim, len(emb.Values)),
		attribute.Float64(observability.AttrAudioDuration, emb.DurationSeconds),
	)
	p.metrics.RecordAudioDuration(ctx, emb.DurationSeconds)
	op.End(ctx, span, StatusSuccess, nil)
	return emb, nil
}

func (p *Pipeline) extract(ctx context.Context, na *audio.NormalizedAudio) (*Embedding, error) {
	model, ok := p.models.Model()
	if !ok {
		return nil, errors.ModelNotLoaded()
	}

	clip, err := audio.ReadWAV(na.Path)
	if err != nil {
		return nil, errors.Processing(err)
	}
	samples := clip.Mono()
	if len(samples) == 0 || clip.SampleRate <= 0 {
		return nil, errors.Processing(stderrors.New("no samples decoded"))
	}
	observability.SetSpanAttribute(ctx, observability.AttrSampleRate, clip.SampleRate)
	observability.SetSpanAttribute(ctx, observability.AttrNumSamples, len(samples))

	tensor, err := p.infer(ctx, model, samples, clip.SampleRate)
	if err != nil {
		return nil, err
	}

	values, err := flatten(tensor)
	if err != nil {
		return nil, errors.Processing(err)
	}
	if len(values) != p.dim {
		return nil, errors.Processingf("Embedding dimension mismatch: expected %d, got %d (shape %v)",
			p.dim, len(values), Squeeze(tensor.Shape)).
			WithDetail("expected", p.dim).
			WithDetail("got", len(values))
	}
	for _, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, errors.Processingf("Model produced non-finite embedding values")
		}
	}

	p.log.WithContext(ctx).Debug("Embedding extracted", logger.Fields(
		logger.FieldSampleRate, clip.SampleRate,
		"samples", len(samples),
		"device", model.Device(),
	))

	return &Embedding{
		Values:          values,
		SampleRate:      clip.SampleRate,
		DurationSeconds: float64(len(samples)) / float64(clip.SampleRate),
	}, nil
}

func (p *Pipeline) infer(ctx context.Context, model speaker.Model, samples []float32, rate int) (speaker.Tensor, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanInference)
	defer span.End()
	span.SetAttributes(attribute.String(observability.AttrDevice, model.Device()))

	t, err := model.Embed(ctx, samples, rate)
	if err != nil {
		span.RecordError(err)
		return speaker.Tensor{}, err
	}
	return t, nil
}

// toAppError maps pipeline failures onto the service error taxonomy.
func toAppError(err error) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	switch {
	case stderrors.Is(err, resilience.ErrCircuitOpen):
		return errors.ServiceUnavailable("Model backend unavailable, try again later").WithCause(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout(operationName).WithCause(err)
	default:
		return errors.Processing(err)
	}
}
