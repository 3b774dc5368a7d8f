package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agentmemory/internal/marketplace/models"
	"agentmemory/internal/platform/middleware"
	"agentmemory/internal/transport/http/shared"
	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
	"agentmemory/pkg/requestcontext"
)

// Service defines the interface for marketplace operations.
type Service interface {
	InitializePlatform(ctx context.Context, treasury domain.Address, platformFeeBps, referralFeeBps uint16) (*models.PlatformConfig, error)
	GetPlatform(ctx context.Context) (*models.PlatformConfig, error)
	RegisterModule(ctx context.Context, moduleID string, price uint64, royaltyBps uint16, contentRef string) (*models.Module, error)
	GetModule(ctx context.Context, moduleID string) (*models.Module, error)
	UpdatePricing(ctx context.Context, moduleID string, newPrice uint64, newRoyaltyBps uint16) (*models.Module, error)
	Deactivate(ctx context.Context, moduleID string) (*models.Module, error)
	Purchase(ctx context.Context, agentID, moduleID string, referrer *domain.Address) (*models.Purchase, *models.Split, error)
	GetPurchase(ctx context.Context, agentID, moduleID string) (*models.Purchase, error)
}

// Handler handles platform, module, and purchase endpoints.
type Handler struct {
	logger       *slog.Logger
	marketplace  Service
	jwtValidator middleware.CallerValidator
}

func New(marketplace Service, logger *slog.Logger, jwtValidator middleware.CallerValidator) *Handler {
	return &Handler{logger: logger, marketplace: marketplace, jwtValidator: jwtValidator}
}

// Register registers the marketplace routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCaller(h.jwtValidator, h.logger))
		r.Post("/platform", h.handleInitializePlatform)
		r.Post("/modules", h.handleRegisterModule)
		r.Put("/modules/{moduleID}/pricing", h.handleUpdatePricing)
		r.Post("/modules/{moduleID}/deactivate", h.handleDeactivate)
		r.Post("/modules/{moduleID}/purchases", h.handlePurchase)
	})
	r.Get("/platform", h.handleGetPlatform)
	r.Get("/modules/{moduleID}", h.handleGetModule)
	r.Get("/modules/{moduleID}/purchases/{agentID}", h.handleGetPurchase)
}

type initializePlatformRequest struct {
	Treasury       string `json:"treasury"`
	PlatformFeeBps uint16 `json:"platform_fee_bps"`
	ReferralFeeBps uint16 `json:"referral_fee_bps"`
}

type registerModuleRequest struct {
	ModuleID   string `json:"module_id"`
	Price      uint64 `json:"price"`
	RoyaltyBps uint16 `json:"royalty_bps"`
	ContentRef string `json:"content_ref"`
}

type updatePricingRequest struct {
	Price      uint64 `json:"price"`
	RoyaltyBps uint16 `json:"royalty_bps"`
}

type purchaseRequest struct {
	AgentID  string `json:"agent_id"`
	Referrer string `json:"referrer,omitempty"`
}

type purchaseResponse struct {
	Purchase      *models.Purchase `json:"purchase"`
	PlatformFee   uint64           `json:"platform_fee"`
	CreatorAmount uint64           `json:"creator_amount"`
	ReferralFee   uint64           `json:"referral_fee"`
}

func (h *Handler) handleInitializePlatform(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req initializePlatformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	treasury, err := domain.ParseAddress(req.Treasury)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	cfg, err := h.marketplace.InitializePlatform(ctx, treasury, req.PlatformFeeBps, req.ReferralFeeBps)
	if err != nil {
		h.logger.WarnContext(ctx, "platform initialization failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, cfg)
}

func (h *Handler) handleGetPlatform(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.marketplace.GetPlatform(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) handleRegisterModule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerModuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	module, err := h.marketplace.RegisterModule(ctx, req.ModuleID, req.Price, req.RoyaltyBps, req.ContentRef)
	if err != nil {
		h.logger.WarnContext(ctx, "module registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, module)
}

func (h *Handler) handleGetModule(w http.ResponseWriter, r *http.Request) {
	module, err := h.marketplace.GetModule(r.Context(), chi.URLParam(r, "moduleID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, module)
}

func (h *Handler) handleUpdatePricing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updatePricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	module, err := h.marketplace.UpdatePricing(ctx, chi.URLParam(r, "moduleID"), req.Price, req.RoyaltyBps)
	if err != nil {
		h.logger.WarnContext(ctx, "pricing update failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, module)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	module, err := h.marketplace.Deactivate(ctx, chi.URLParam(r, "moduleID"))
	if err != nil {
		h.logger.WarnContext(ctx, "module deactivation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, module)
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	var referrer *domain.Address
	if req.Referrer != "" {
		addr, err := domain.ParseAddress(req.Referrer)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		referrer = &addr
	}

	purchase, split, err := h.marketplace.Purchase(ctx, req.AgentID, chi.URLParam(r, "moduleID"), referrer)
	if err != nil {
		h.logger.WarnContext(ctx, "purchase failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, purchaseResponse{
		Purchase:      purchase,
		PlatformFee:   split.PlatformFee,
		CreatorAmount: split.CreatorAmount,
		ReferralFee:   split.ReferralFee,
	})
}

func (h *Handler) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	purchase, err := h.marketplace.GetPurchase(r.Context(), chi.URLParam(r, "agentID"), chi.URLParam(r, "moduleID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, purchase)
}
