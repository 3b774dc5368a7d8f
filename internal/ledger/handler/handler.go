package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agentmemory/internal/ledger"
	"agentmemory/internal/platform/middleware"
	"agentmemory/internal/transport/http/shared"
	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
	"agentmemory/pkg/requestcontext"
)

// Handler exposes ledger balances and, when enabled, a development faucet.
type Handler struct {
	logger       *slog.Logger
	ledger       ledger.Ledger
	jwtValidator middleware.CallerValidator
	faucet       bool
}

func New(l ledger.Ledger, logger *slog.Logger, jwtValidator middleware.CallerValidator, faucet bool) *Handler {
	return &Handler{logger: logger, ledger: l, jwtValidator: jwtValidator, faucet: faucet}
}

// Register registers the ledger routes with the chi router. The mint route
// is mounted only when the faucet is enabled; production deployments leave
// funding to the host platform.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ledger/{address}", h.handleBalance)
	if h.faucet {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCaller(h.jwtValidator, h.logger))
			r.Post("/ledger/{address}/mint", h.handleMint)
		})
	}
}

type mintRequest struct {
	Amount uint64 `json:"amount"`
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	balance, err := h.ledger.Balance(r.Context(), addr)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, balanceResponse{Address: addr.String(), Balance: balance})
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Amount == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "amount must be positive"))
		return
	}

	if err := h.ledger.Mint(ctx, addr, req.Amount); err != nil {
		h.logger.WarnContext(ctx, "mint failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint"))
		return
	}

	balance, err := h.ledger.Balance(ctx, addr)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, balanceResponse{Address: addr.String(), Balance: balance})
}
