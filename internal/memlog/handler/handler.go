package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	agentmodels "agentmemory/internal/agent/models"
	"agentmemory/internal/memlog/models"
	"agentmemory/internal/platform/middleware"
	"agentmemory/internal/transport/http/shared"
	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
	"agentmemory/pkg/requestcontext"
)

// Service defines the interface for decision log operations.
type Service interface {
	LogDecision(ctx context.Context, agentID, input, logic string) (*models.MemoryLog, error)
	AttestOutcome(ctx context.Context, logAddr domain.Address, outcome string, success bool, scoreDelta int64) (*models.Attestation, *agentmodels.Agent, error)
	GetLog(ctx context.Context, logAddr domain.Address) (*models.MemoryLog, *models.Attestation, error)
}

// Handler handles decision log and attestation endpoints.
type Handler struct {
	logger       *slog.Logger
	memlog       Service
	jwtValidator middleware.CallerValidator
}

func New(memlog Service, logger *slog.Logger, jwtValidator middleware.CallerValidator) *Handler {
	return &Handler{logger: logger, memlog: memlog, jwtValidator: jwtValidator}
}

// Register registers the decision log routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCaller(h.jwtValidator, h.logger))
		r.Post("/agents/{agentID}/decisions", h.handleLogDecision)
		r.Post("/decisions/{address}/attestations", h.handleAttestOutcome)
	})
	r.Get("/decisions/{address}", h.handleGetLog)
}

type logDecisionRequest struct {
	Input string `json:"input"`
	Logic string `json:"logic"`
}

type attestRequest struct {
	Outcome    string `json:"outcome"`
	Success    bool   `json:"success"`
	ScoreDelta int64  `json:"score_delta"`
}

type attestResponse struct {
	Attestation *models.Attestation `json:"attestation"`
	Reputation  uint64              `json:"reputation"`
}

type logResponse struct {
	Log         *models.MemoryLog   `json:"log"`
	Attestation *models.Attestation `json:"attestation,omitempty"`
}

func (h *Handler) handleLogDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req logDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	log, err := h.memlog.LogDecision(ctx, chi.URLParam(r, "agentID"), req.Input, req.Logic)
	if err != nil {
		h.logger.WarnContext(ctx, "log decision failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, log)
}

func (h *Handler) handleAttestOutcome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logAddr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req attestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	att, agent, err := h.memlog.AttestOutcome(ctx, logAddr, req.Outcome, req.Success, req.ScoreDelta)
	if err != nil {
		h.logger.WarnContext(ctx, "attest outcome failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, attestResponse{
		Attestation: att,
		Reputation:  agent.Reputation,
	})
}

func (h *Handler) handleGetLog(w http.ResponseWriter, r *http.Request) {
	logAddr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	log, att, err := h.memlog.GetLog(r.Context(), logAddr)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, logResponse{Log: log, Attestation: att})
}
