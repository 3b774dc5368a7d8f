package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agentmemory/internal/agent/models"
	"agentmemory/internal/platform/middleware"
	"agentmemory/internal/transport/http/shared"
	dErrors "agentmemory/pkg/domain-errors"
	"agentmemory/pkg/requestcontext"
)

// Service defines the interface for agent registry operations.
type Service interface {
	Register(ctx context.Context, agentID string) (*models.Agent, error)
	Get(ctx context.Context, agentID string) (*models.Agent, error)
}

// Handler handles agent registry endpoints.
type Handler struct {
	logger       *slog.Logger
	agents       Service
	jwtValidator middleware.CallerValidator
}

func New(agents Service, logger *slog.Logger, jwtValidator middleware.CallerValidator) *Handler {
	return &Handler{logger: logger, agents: agents, jwtValidator: jwtValidator}
}

// Register registers the agent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCaller(h.jwtValidator, h.logger))
		r.Post("/agents", h.handleRegister)
	})
	r.Get("/agents/{agentID}", h.handleGet)
}

type registerRequest struct {
	AgentID string `json:"agent_id"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	agent, err := h.agents.Register(ctx, req.AgentID)
	if err != nil {
		h.logger.WarnContext(ctx, "agent registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, agent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	agent, err := h.agents.Get(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, agent)
}
