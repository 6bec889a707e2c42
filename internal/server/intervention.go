package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quillfire/impetus/internal/cache"
	"github.com/quillfire/impetus/internal/domain"
	"github.com/quillfire/impetus/internal/intervention"
	"github.com/quillfire/impetus/internal/llm"
	"github.com/quillfire/impetus/internal/storage"
)

// ContractVersion is the API contract the intervention endpoint speaks.
const ContractVersion = "1.0.1"

// Request headers for the intervention endpoint.
const (
	HeaderIdempotencyKey  = "Idempotency-Key"
	HeaderContractVersion = "X-Contract-Version"
	HeaderLLMProvider     = "X-LLM-Provider"
	HeaderLLMModel        = "X-LLM-Model"
	HeaderLLMAPIKey       = "X-LLM-Api-Key"
	HeaderTaskID          = "X-Task-ID"
)

const codeValidationError = "validation_error"

// InterventionHandler serves POST /api/v1/impetus/generate-intervention.
type InterventionHandler struct {
	logger   *slog.Logger
	registry *llm.Registry
	cache    *cache.Cache
	service  *intervention.Service
	store    storage.TaskStore
}

// NewInterventionHandler wires the handler's collaborators. store may be
// nil when audit persistence is disabled.
func NewInterventionHandler(logger *slog.Logger, registry *llm.Registry, idem *cache.Cache, service *intervention.Service, store storage.TaskStore) *InterventionHandler {
	return &InterventionHandler{
		logger:   logger,
		registry: registry,
		cache:    idem,
		service:  service,
		store:    store,
	}
}

// Register mounts the intervention route.
func (h *InterventionHandler) Register(r chi.Router) {
	r.Post("/api/v1/impetus/generate-intervention", h.generate)
}

func (h *InterventionHandler) generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	idempotencyKey := r.Header.Get(HeaderIdempotencyKey)
	if idempotencyKey == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidationError, "Idempotency-Key header is required", "")
		return
	}

	// A cached replay is authoritative for its key: it skips contract and
	// body validation entirely.
	if cached, ok := h.cache.Get(idempotencyKey); ok {
		AddLogField(ctx, "idempotent_replay", "true")
		writeJSON(w, http.StatusOK, cached)
		return
	}

	if version := r.Header.Get(HeaderContractVersion); version != ContractVersion {
		writeError(w, http.StatusUnprocessableEntity, codeValidationError,
			"Unsupported contract version: "+version+". Expected: "+ContractVersion, "")
		return
	}

	var req domain.InterventionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeValidationError, "invalid request body: "+err.Error(), "")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, codeValidationError, err.Error(), "")
		return
	}

	override := llm.Override{
		Provider: r.Header.Get(HeaderLLMProvider),
		Model:    r.Header.Get(HeaderLLMModel),
		APIKey:   r.Header.Get(HeaderLLMAPIKey),
	}
	if !override.Empty() {
		AddLogField(ctx, "llm_override", "true")
	}

	provider, err := h.registry.Resolve(ctx, override, false)
	if err != nil {
		h.writeProviderError(w, r, err)
		return
	}
	AddLogField(ctx, "llm_provider", provider.Name())

	taskID := r.Header.Get(HeaderTaskID)
	var resp *domain.InterventionResponse
	if taskID != "" && h.store != nil {
		resp, err = h.service.GenerateAndRecord(ctx, provider, req, h.store, taskID)
	} else {
		resp, err = h.service.Generate(ctx, provider, req)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			AddError(ctx, err)
			writeError(w, http.StatusNotFound, "task_not_found", "unknown task: "+taskID, "")
			return
		}
		h.writeProviderError(w, r, err)
		return
	}

	// Only successful generations populate the cache.
	h.cache.Set(idempotencyKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

// writeProviderError maps the canonical taxonomy onto HTTP statuses;
// anything outside it is a 502.
func (h *InterventionHandler) writeProviderError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		AddLogField(r.Context(), "error_code", string(perr.Code))
		writeError(w, perr.HTTPStatusCode(), string(perr.Code), perr.Message, perr.Provider)
		return
	}
	writeError(w, http.StatusBadGateway, string(domain.ErrorCodeAPIError), err.Error(), "")
}
