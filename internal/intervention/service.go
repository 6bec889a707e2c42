package intervention

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tiktoken-go/tokenizer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quillfire/impetus/internal/domain"
	"github.com/quillfire/impetus/internal/storage"
)

// ActionRecorder is the audit collaborator: the slice of the task store
// the service needs to persist intervention actions.
type ActionRecorder interface {
	RecordAction(ctx context.Context, action *storage.InterventionAction) error
}

// Service produces finalized intervention responses. It never retries a
// failed provider call; retry is the caller's concern.
type Service struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics
	now     func() time.Time

	codecOnce sync.Once
	codec     tokenizer.Codec
}

// NewService wires the service's observability collaborators. A nil
// logger falls back to slog.Default; a nil metrics set counts nothing.
func NewService(logger *slog.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(false)
	}
	return &Service{
		logger:  logger,
		tracer:  otel.Tracer("impetus/intervention"),
		metrics: metrics,
		now:     time.Now,
	}
}

// Generate invokes the provider and finalizes its response. The provider
// must already be resolved; a nil provider is a configuration failure.
// The llm_call event fires exactly once per attempt, success or failure,
// before any error propagates.
func (s *Service) Generate(ctx context.Context, provider domain.Provider, req domain.InterventionRequest) (*domain.InterventionResponse, error) {
	if provider == nil {
		return nil, domain.ErrNotConfigured("")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "llm.generate_intervention", trace.WithAttributes(
		attribute.String("llm.provider", provider.Name()),
		attribute.String("llm.model", provider.Model()),
		attribute.String("intervention.mode", string(req.Mode)),
	))
	defer span.End()

	start := s.now()
	raw, err := provider.Generate(ctx, domain.GenerateParams{
		Context:       req.Context,
		Mode:          req.Mode,
		DocVersion:    req.ClientMeta.DocVersion,
		SelectionFrom: req.ClientMeta.SelectionFrom,
		SelectionTo:   req.ClientMeta.SelectionTo,
	})
	duration := s.now().Sub(start)

	s.emitCallEvent(ctx, provider, req, duration, err)
	span.SetAttributes(attribute.Int64("llm.duration_ms", duration.Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")

	return finalize(raw, req, s.now()), nil
}

// GenerateAndRecord is Generate plus audit persistence: after
// finalization the response is recorded against taskID. Persistence
// failures propagate; the caller owns commit/rollback.
func (s *Service) GenerateAndRecord(ctx context.Context, provider domain.Provider, req domain.InterventionRequest, recorder ActionRecorder, taskID string) (*domain.InterventionResponse, error) {
	resp, err := s.Generate(ctx, provider, req)
	if err != nil {
		return nil, err
	}
	if recorder == nil || taskID == "" {
		return resp, nil
	}

	action := &storage.InterventionAction{
		TaskID:   taskID,
		ActionID: resp.ActionID,
		Action:   resp.Action,
		Source:   resp.Source,
		Content:  resp.Content,
		LockID:   resp.LockID,
		Anchor:   resp.Anchor,
		Context:  req.Context,
		IssuedAt: resp.IssuedAt,
	}
	if err := recorder.RecordAction(ctx, action); err != nil {
		return nil, err
	}
	return resp, nil
}

// emitCallEvent writes the structured llm_call record and bumps the
// counters. This is the only observability hook for provider calls.
func (s *Service) emitCallEvent(ctx context.Context, provider domain.Provider, req domain.InterventionRequest, duration time.Duration, callErr error) {
	attrs := []any{
		slog.String("event", "llm_call"),
		slog.String("provider", provider.Name()),
		slog.String("model", provider.Model()),
		slog.String("mode", string(req.Mode)),
		slog.Int64("duration_ms", duration.Milliseconds()),
		slog.Bool("success", callErr == nil),
		slog.Int("context_tokens_est", s.estimateTokens(req.Context)),
	}

	outcome := "success"
	if callErr != nil {
		outcome = string(domain.ErrorCodeAPIError)
		var perr *domain.ProviderError
		if errors.As(callErr, &perr) {
			outcome = string(perr.Code)
		}
		attrs = append(attrs, slog.String("error_code", outcome))
		s.logger.WarnContext(ctx, "llm_call", attrs...)
	} else {
		s.logger.InfoContext(ctx, "llm_call", attrs...)
	}
	s.metrics.Observe(provider.Name(), string(req.Mode), outcome)
}

// estimateTokens approximates prompt size with the cl100k_base encoding.
// The estimate is telemetry only; failures degrade to zero.
func (s *Service) estimateTokens(text string) int {
	s.codecOnce.Do(func() {
		codec, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return
		}
		s.codec = codec
	})
	if s.codec == nil {
		return 0
	}
	ids, _, err := s.codec.Encode(text)
	if err != nil {
		return 0
	}
	return len(ids)
}
