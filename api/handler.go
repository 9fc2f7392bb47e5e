// Package api serves the embedding endpoints: /health, /info and
// POST /api/extract-embedding.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/speakerembed/audio"
	"github.com/kbukum/speakerembed/errors"
	"github.com/kbukum/speakerembed/extraction"
	"github.com/kbukum/speakerembed/logger"
	"github.com/kbukum/speakerembed/observability"
	"github.com/kbukum/speakerembed/server"
	"github.com/kbukum/speakerembed/speaker"
	"github.com/kbukum/speakerembed/tempfile"
	"github.com/kbukum/speakerembed/upload"
	"github.com/kbukum/speakerembed/util"
)

// ModelStatus reports model readiness. *speaker.Manager implements it.
type ModelStatus interface {
	IsReady() bool
	Device() string
}

// Extractor computes embeddings. *extraction.Pipeline implements it.
// Admit bounds concurrent requests; its slot is held across normalization
// and extraction.
type Extractor interface {
	Admit(ctx context.Context) (release func(), err error)
	Extract(ctx context.Context, na *audio.NormalizedAudio) (*extraction.Embedding, error)
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Models     ModelStatus
	TempFiles  *tempfile.Manager
	Normalizer audio.Normalizer
	Extractor  Extractor
	Upload     upload.Config
	Model      speaker.Config
	Version    string
	Metrics    *observability.Metrics
	Logger     *logger.Logger
}

// Handler holds the endpoint state. It is built once at startup and
// shared by all requests.
type Handler struct {
	models     ModelStatus
	temp       *tempfile.Manager
	normalizer audio.Normalizer
	extractor  Extractor
	upload     upload.Config
	maxBytes   int64
	model      speaker.Config
	version    string
	metrics    *observability.Metrics
	log        *logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(d Deps) *Handler {
	d.Upload.ApplyDefaults()
	d.Model.ApplyDefaults()
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	return &Handler{
		models:     d.Models,
		temp:       d.TempFiles,
		normalizer: d.Normalizer,
		extractor:  d.Extractor,
		upload:     d.Upload,
		maxBytes:   d.Upload.MaxBytes(),
		model:      d.Model,
		version:    d.Version,
		metrics:    d.Metrics,
		log:        d.Logger.WithComponent("api"),
	}
}

// Register mounts the routes.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/info", h.Info)
	r.POST("/api/extract-embedding", h.Extract)
}

// Health reports whether the model is loaded.
func (h *Handler) Health(c *gin.Context) {
	if !h.models.IsReady() {
		server.RespondJSON(c, http.StatusServiceUnavailable, UnhealthyResponse{Status: "unhealthy", Message: "Model not loaded"})
		return
	}
	server.RespondJSON(c, http.StatusOK, HealthResponse{Status: "healthy", Model: h.model.Name, Device: h.models.Device()})
}

// Info describes the service and its limits.
func (h *Handler) Info(c *gin.Context) {
	server.RespondJSON(c, http.StatusOK, InfoResponse{
		Service:            ServiceDisplayName,
		Model:              ModelDisplayName,
		ModelSource:        h.model.Source,
		EmbeddingDimension: h.model.Dimension,
		SupportedFormats:   h.upload.AllowedExtensions,
		MaxFileSizeMB:      util.BytesToMB(h.maxBytes),
		Device:             h.models.Device(),
		Version:            h.version,
	})
}

// Extract validates the upload, normalizes it and returns its embedding.
// Temp files of the request are removed on every path.
func (h *Handler) Extract(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.log.WithContext(ctx)
	st := newTracker(log)

	if !h.models.IsReady() {
		h.fail(c, st, errors.ModelNotLoaded(), "readiness")
		return
	}

	up, err := upload.FromMultipart(c.Request, h.upload.Field, h.maxBytes)
	if err != nil {
		h.fail(c, st, err, "upload")
		return
	}
	st.to(stageValidated, logger.FieldFilename, up.Filename, logger.FieldSize, up.Size)

	release, err := h.extractor.Admit(ctx)
	if err != nil {
		h.fail(c, st, err, "admission")
		return
	}
	defer release()

	scope := h.temp.NewScope()
	defer func() {
		if err := scope.Release(); err != nil {
			log.Warn("Temp cleanup incomplete", logger.ErrorFields("release", err))
		}
	}()

	src, err := h.store(scope, up)
	if err != nil {
		h.fail(c, st, errors.Internal(err), "store")
		return
	}

	na, err := h.normalize(ctx, scope, src)
	if err != nil {
		h.fail(c, st, err, "normalize")
		return
	}
	st.to(stageNormalized, logger.FieldSampleRate, na.SampleRate, "num_samples", na.NumSamples)

	emb, err := h.extractor.Extract(ctx, na)
	if err != nil {
		h.fail(c, st, err, "extract")
		return
	}
	st.to(stageExtracted, "duration_s", emb.DurationSeconds)

	server.RespondJSON(c, http.StatusOK, ExtractResponse{
		Success:              true,
		Embedding:            emb.Values,
		Dimension:            len(emb.Values),
		SampleRate:           emb.SampleRate,
		AudioDurationSeconds: emb.DurationSeconds,
	})
	st.to(stageResponded)
}

// store writes the upload into the scope, keeping its extension for
// readability of leftovers; the format is still sniffed from content.
func (h *Handler) store(scope *tempfile.Scope, up *upload.Request) (string, error) {
	ext := up.Ext()
	if ext == "" {
		ext = ".upload"
	}
	f, err := scope.Create(ext)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(up.Data); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	return f.Name(), nil
}

func (h *Handler) normalize(ctx context.Context, scope *tempfile.Scope, src string) (*audio.NormalizedAudio, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanNormalize)
	defer span.End()
	span.SetAttributes(attribute.String("audio.backend", h.normalizer.Name()))

	na, err := h.normalizer.Normalize(ctx, scope, src)
	if err != nil {
		span.RecordError(err)
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, errors.Processing(err)
	}
	return na, nil
}

// fail converts err once into the JSON error body. Server faults are
// logged with their cause, which never reaches the client.
func (h *Handler) fail(c *gin.Context, st *tracker, err error, step string) {
	appErr := errors.From(err)
	st.to(stageFailed, "step", step, "code", string(appErr.Code))

	fields := logger.Fields("step", step, "code", string(appErr.Code), "status", appErr.HTTPStatus)
	log := h.log.WithContext(c.Request.Context())
	if appErr.Cause != nil {
		log = log.WithError(appErr.Cause)
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError && !unavailable(appErr) {
		log.Error(appErr.Message, fields)
	} else {
		log.Warn(appErr.Message, fields)
	}

	// Extraction and admission failures are counted by the pipeline.
	if step != "extract" && step != "admission" {
		h.metrics.RecordError(c.Request.Context(), string(appErr.Code), step)
	}
	server.RespondWithError(c, appErr)
}

// unavailable reports an expected outage rather than a server fault.
func unavailable(err error) bool {
	return errors.HasCode(err, errors.ErrCodeModelNotLoaded) || errors.HasCode(err, errors.ErrCodeServiceUnavailable)
}
