// Package store holds the agent registry records keyed by derived address.
// Create is create-if-absent: a replayed registration collides with the
// occupied key and fails, it is never silently deduplicated.
package store

import (
	"context"
	"fmt"
	"sync"

	"agentmemory/internal/agent/models"
	"agentmemory/pkg/domain"
	"agentmemory/pkg/platform/sentinel"
)

// AgentStore is interface-driven to keep services testable and to allow an
// external persistence engine without rewiring business code.
type AgentStore interface {
	Create(ctx context.Context, agent *models.Agent) error
	FindByAddress(ctx context.Context, addr domain.Address) (*models.Agent, error)
	FindByID(ctx context.Context, agentID string) (*models.Agent, error)
	// Execute atomically validates and mutates one record under the store
	// lock, returning the updated copy.
	Execute(ctx context.Context, addr domain.Address, validate func(*models.Agent) error, mutate func(*models.Agent)) (*models.Agent, error)
}

// InMemory keeps agents in a mutex-guarded map. Records are copied on the
// way in and out so callers never alias store state.
type InMemory struct {
	mu     sync.RWMutex
	agents map[domain.Address]*models.Agent
}

func NewInMemory() *InMemory {
	return &InMemory{agents: make(map[domain.Address]*models.Agent)}
}

func (s *InMemory) Create(_ context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agent.Address]; ok {
		return fmt.Errorf("agent %s: %w", agent.AgentID, sentinel.ErrAlreadyUsed)
	}
	cp := *agent
	s.agents[agent.Address] = &cp
	return nil
}

func (s *InMemory) FindByAddress(_ context.Context, addr domain.Address) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *agent
	return &cp, nil
}

func (s *InMemory) FindByID(ctx context.Context, agentID string) (*models.Agent, error) {
	return s.FindByAddress(ctx, models.DeriveAgentAddress(agentID))
}

func (s *InMemory) Execute(_ context.Context, addr domain.Address, validate func(*models.Agent) error, mutate func(*models.Agent)) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(agent); err != nil {
		return nil, err
	}
	mutate(agent)
	cp := *agent
	return &cp, nil
}
