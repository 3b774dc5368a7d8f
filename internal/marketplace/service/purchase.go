package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agentmemory/internal/events"
	"agentmemory/internal/identity"
	"agentmemory/internal/ledger"
	"agentmemory/internal/marketplace/models"
	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
	"agentmemory/pkg/platform/sentinel"
	"agentmemory/pkg/requestcontext"
)

// Purchase buys a module for the caller's agent and distributes the price
// three ways in a single atomic batch. The referrer cut applies only when a
// referrer address is supplied.
//
// Ordering: the purchase receipt is created first, reserving the
// (agent, module) key so a concurrent duplicate collides before any value
// moves. If the transfers then fail, the receipt is deleted as the
// compensating rollback and counters stay untouched.
func (s *Service) Purchase(ctx context.Context, agentID, moduleID string, referrer *domain.Address) (*models.Purchase, *models.Split, error) {
	ctx, span := s.tracer.Start(ctx, "marketplace.Purchase")
	defer span.End()
	start := time.Now()

	caller := requestcontext.Caller(ctx)
	if !identity.Verify(caller) {
		return nil, nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if referrer != nil && referrer.IsZero() {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "referrer address cannot be zero")
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeConflict, "platform not initialized")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load platform config")
	}

	module, err := s.modules.FindByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "module not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load module")
	}
	if err := module.CanPurchase(); err != nil {
		return nil, nil, err
	}

	agent, err := s.agents.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}
	if agent.Authority != caller {
		return nil, nil, dErrors.New(dErrors.CodeForbidden, "caller is not the agent authority")
	}

	split, err := models.ComputeSplit(module.Price, cfg.PlatformFeeBps, cfg.ReferralFeeBps, referrer != nil)
	if err != nil {
		return nil, nil, err
	}

	now := requestcontext.Now(ctx)
	purchase := &models.Purchase{
		Address:     models.DerivePurchaseAddress(agent.Address, module.Address),
		Agent:       agent.Address,
		Module:      module.Address,
		PricePaid:   module.Price,
		PurchasedAt: now,
	}

	// Reserve the uniqueness key before moving value.
	if err := s.purchases.Create(ctx, purchase); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, nil, dErrors.New(dErrors.CodeConflict, "module already purchased by this agent")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create purchase record")
	}

	movements := []ledger.Movement{
		{From: caller, To: cfg.Treasury, Amount: split.PlatformFee},
		{From: caller, To: module.Creator, Amount: split.CreatorAmount},
	}
	if referrer != nil {
		movements = append(movements, ledger.Movement{From: caller, To: *referrer, Amount: split.ReferralFee})
	}

	if err := s.ledger.Apply(ctx, movements); err != nil {
		s.rollbackReceipt(ctx, purchase.Address)
		if errors.Is(err, sentinel.ErrInsufficientFunds) {
			return nil, nil, dErrors.New(dErrors.CodeConflict, "insufficient funds for purchase")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply transfers")
	}

	if _, err := s.modules.Execute(ctx, module.Address,
		func(*models.Module) error { return nil },
		func(m *models.Module) { m.ApplySale(module.Price, now) },
	); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update module counters")
	}

	s.emit(ctx, events.Event{
		Action:        events.ActionModulePurchased,
		Actor:         caller.String(),
		Agent:         agent.Address.String(),
		Module:        module.Address.String(),
		PricePaid:     events.U64(module.Price),
		PlatformFee:   events.U64(split.PlatformFee),
		CreatorAmount: events.U64(split.CreatorAmount),
		ReferralFee:   events.U64(split.ReferralFee),
	})
	if s.metrics != nil {
		s.metrics.ObservePurchase(start, module.Price)
	}
	return purchase, &split, nil
}

// GetPurchase returns the proof-of-ownership record for an agent and module.
func (s *Service) GetPurchase(ctx context.Context, agentID, moduleID string) (*models.Purchase, error) {
	agent, err := s.agents.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}
	purchase, err := s.purchases.Find(ctx, agent.Address, models.DeriveModuleAddress(moduleID))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "purchase not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load purchase")
	}
	return purchase, nil
}

func (s *Service) rollbackReceipt(ctx context.Context, addr domain.Address) {
	if err := s.purchases.Delete(ctx, addr); err != nil {
		slog.ErrorContext(ctx, "failed to roll back purchase receipt",
			"purchase", addr.String(), "error", err)
	}
}
