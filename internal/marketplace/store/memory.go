// Package store holds the marketplace records: the platform config
// singleton, published modules, and purchase receipts. All creates are
// create-if-absent against derived keys.
package store

import (
	"context"
	"fmt"
	"sync"

	"agentmemory/internal/marketplace/models"
	"agentmemory/pkg/domain"
	"agentmemory/pkg/platform/sentinel"
)

// ConfigStore persists the platform config singleton.
type ConfigStore interface {
	Create(ctx context.Context, cfg *models.PlatformConfig) error
	Get(ctx context.Context) (*models.PlatformConfig, error)
}

// ModuleStore persists published modules.
type ModuleStore interface {
	Create(ctx context.Context, module *models.Module) error
	FindByID(ctx context.Context, moduleID string) (*models.Module, error)
	// Execute atomically validates and mutates one record under the store
	// lock, returning the updated copy.
	Execute(ctx context.Context, addr domain.Address, validate func(*models.Module) error, mutate func(*models.Module)) (*models.Module, error)
}

// PurchaseStore persists purchase receipts keyed by (agent, module).
type PurchaseStore interface {
	Create(ctx context.Context, purchase *models.Purchase) error
	Delete(ctx context.Context, addr domain.Address) error
	Find(ctx context.Context, agent, module domain.Address) (*models.Purchase, error)
	ListByAgent(ctx context.Context, agent domain.Address) ([]*models.Purchase, error)
}

// InMemoryConfig holds the singleton platform config.
type InMemoryConfig struct {
	mu  sync.RWMutex
	cfg *models.PlatformConfig
}

func NewInMemoryConfig() *InMemoryConfig {
	return &InMemoryConfig{}
}

func (s *InMemoryConfig) Create(_ context.Context, cfg *models.PlatformConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg != nil {
		return fmt.Errorf("platform config: %w", sentinel.ErrAlreadyUsed)
	}
	cp := *cfg
	s.cfg = &cp
	return nil
}

func (s *InMemoryConfig) Get(_ context.Context) (*models.PlatformConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.cfg
	return &cp, nil
}

// InMemoryModules keeps modules in a mutex-guarded map.
type InMemoryModules struct {
	mu      sync.RWMutex
	modules map[domain.Address]*models.Module
}

func NewInMemoryModules() *InMemoryModules {
	return &InMemoryModules{modules: make(map[domain.Address]*models.Module)}
}

func (s *InMemoryModules) Create(_ context.Context, module *models.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[module.Address]; ok {
		return fmt.Errorf("module %s: %w", module.ModuleID, sentinel.ErrAlreadyUsed)
	}
	cp := *module
	s.modules[module.Address] = &cp
	return nil
}

func (s *InMemoryModules) FindByID(_ context.Context, moduleID string) (*models.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	module, ok := s.modules[models.DeriveModuleAddress(moduleID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *module
	return &cp, nil
}

func (s *InMemoryModules) Execute(_ context.Context, addr domain.Address, validate func(*models.Module) error, mutate func(*models.Module)) (*models.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	module, ok := s.modules[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(module); err != nil {
		return nil, err
	}
	mutate(module)
	cp := *module
	return &cp, nil
}

// InMemoryPurchases keeps purchase receipts in a mutex-guarded map.
// Delete exists solely as the compensating rollback for a purchase whose
// transfers failed after the receipt reserved the key.
type InMemoryPurchases struct {
	mu        sync.RWMutex
	purchases map[domain.Address]*models.Purchase
}

func NewInMemoryPurchases() *InMemoryPurchases {
	return &InMemoryPurchases{purchases: make(map[domain.Address]*models.Purchase)}
}

func (s *InMemoryPurchases) Create(_ context.Context, purchase *models.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.purchases[purchase.Address]; ok {
		return fmt.Errorf("purchase %s: %w", purchase.Address, sentinel.ErrAlreadyUsed)
	}
	cp := *purchase
	s.purchases[purchase.Address] = &cp
	return nil
}

func (s *InMemoryPurchases) Delete(_ context.Context, addr domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.purchases[addr]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.purchases, addr)
	return nil
}

func (s *InMemoryPurchases) Find(_ context.Context, agent, module domain.Address) (*models.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	purchase, ok := s.purchases[models.DerivePurchaseAddress(agent, module)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *purchase
	return &cp, nil
}

func (s *InMemoryPurchases) ListByAgent(_ context.Context, agent domain.Address) ([]*models.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Purchase
	for _, p := range s.purchases {
		if p.Agent == agent {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}
