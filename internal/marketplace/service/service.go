package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	agentmodels "agentmemory/internal/agent/models"
	"agentmemory/internal/events"
	"agentmemory/internal/identity"
	"agentmemory/internal/ledger"
	marketmetrics "agentmemory/internal/marketplace/metrics"
	"agentmemory/internal/marketplace/models"
	"agentmemory/internal/marketplace/store"
	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
	"agentmemory/pkg/platform/sentinel"
	"agentmemory/pkg/requestcontext"
)

// AgentDirectory is the slice of the agent registry the marketplace needs:
// resolving the purchasing agent.
type AgentDirectory interface {
	FindByID(ctx context.Context, agentID string) (*agentmodels.Agent, error)
}

// Service orchestrates the marketplace: platform config, module lifecycle,
// and the purchase engine.
type Service struct {
	config    store.ConfigStore
	modules   store.ModuleStore
	purchases store.PurchaseStore
	agents    AgentDirectory
	ledger    ledger.Ledger
	publisher events.Publisher
	metrics   *marketmetrics.Metrics
	tracer    trace.Tracer
}

func New(
	config store.ConfigStore,
	modules store.ModuleStore,
	purchases store.PurchaseStore,
	agents AgentDirectory,
	l ledger.Ledger,
	publisher events.Publisher,
	metrics *marketmetrics.Metrics,
) *Service {
	return &Service{
		config:    config,
		modules:   modules,
		purchases: purchases,
		agents:    agents,
		ledger:    l,
		publisher: publisher,
		metrics:   metrics,
		tracer:    otel.Tracer("agentmemory/marketplace"),
	}
}

// InitializePlatform creates the fee config singleton. A second call
// collides with the occupied key and is rejected.
func (s *Service) InitializePlatform(ctx context.Context, treasury domain.Address, platformFeeBps, referralFeeBps uint16) (*models.PlatformConfig, error) {
	caller := requestcontext.Caller(ctx)
	if !identity.Verify(caller) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	cfg, err := models.NewPlatformConfig(caller, treasury, platformFeeBps, referralFeeBps, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.config.Create(ctx, cfg); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "platform already initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize platform")
	}

	s.emit(ctx, events.Event{
		Action: events.ActionPlatformInit,
		Actor:  caller.String(),
	})
	return cfg, nil
}

// GetPlatform returns the fee config singleton.
func (s *Service) GetPlatform(ctx context.Context) (*models.PlatformConfig, error) {
	cfg, err := s.config.Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "platform not initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load platform config")
	}
	return cfg, nil
}

// RegisterModule publishes a module owned by the caller.
func (s *Service) RegisterModule(ctx context.Context, moduleID string, price uint64, royaltyBps uint16, contentRef string) (*models.Module, error) {
	caller := requestcontext.Caller(ctx)
	if !identity.Verify(caller) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	module, err := models.NewModule(moduleID, caller, price, royaltyBps, contentRef, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.modules.Create(ctx, module); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "module already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register module")
	}

	s.emit(ctx, events.Event{
		Action:    events.ActionModuleRegistered,
		Actor:     caller.String(),
		Module:    module.Address.String(),
		PricePaid: events.U64(price),
	})
	if s.metrics != nil {
		s.metrics.IncrementModulesRegistered()
	}
	return module, nil
}

// GetModule returns a published module.
func (s *Service) GetModule(ctx context.Context, moduleID string) (*models.Module, error) {
	if moduleID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "module id is required")
	}
	module, err := s.modules.FindByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "module not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load module")
	}
	return module, nil
}

// UpdatePricing adjusts price and royalty intent. Creator-only; historical
// sales and revenue counters are never touched.
func (s *Service) UpdatePricing(ctx context.Context, moduleID string, newPrice uint64, newRoyaltyBps uint16) (*models.Module, error) {
	caller := requestcontext.Caller(ctx)
	if !identity.Verify(caller) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if err := models.ValidatePricing(newPrice, newRoyaltyBps); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	module, err := s.modules.Execute(ctx, models.DeriveModuleAddress(moduleID),
		func(m *models.Module) error { return m.RequireCreator(caller) },
		func(m *models.Module) { m.ApplyPricing(newPrice, newRoyaltyBps, now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "module not found")
		}
		return nil, err
	}

	s.emit(ctx, events.Event{
		Action:    events.ActionModuleRepriced,
		Actor:     caller.String(),
		Module:    module.Address.String(),
		PricePaid: events.U64(newPrice),
	})
	return module, nil
}

// Deactivate removes a module from sale permanently. Creator-only and
// irreversible: there is no reactivation path.
func (s *Service) Deactivate(ctx context.Context, moduleID string) (*models.Module, error) {
	caller := requestcontext.Caller(ctx)
	if !identity.Verify(caller) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	now := requestcontext.Now(ctx)
	module, err := s.modules.Execute(ctx, models.DeriveModuleAddress(moduleID),
		func(m *models.Module) error {
			if err := m.RequireCreator(caller); err != nil {
				return err
			}
			return m.CanDeactivate()
		},
		func(m *models.Module) { m.ApplyDeactivation(now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "module not found")
		}
		return nil, err
	}

	s.emit(ctx, events.Event{
		Action: events.ActionModuleDeactivated,
		Actor:  caller.String(),
		Module: module.Address.String(),
	})
	return module, nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.publisher != nil {
		_ = s.publisher.Emit(ctx, event)
	}
}
