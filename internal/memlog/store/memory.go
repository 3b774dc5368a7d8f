// Package store holds decision logs and attestations. Both are append-only:
// attestation of a log is the only mutation that ever happens, and it
// happens at most once.
package store

import (
	"context"
	"fmt"
	"sync"

	"agentmemory/internal/memlog/models"
	"agentmemory/pkg/domain"
	"agentmemory/pkg/platform/sentinel"
)

// LogStore persists decision records.
type LogStore interface {
	Create(ctx context.Context, log *models.MemoryLog) error
	FindByAddress(ctx context.Context, addr domain.Address) (*models.MemoryLog, error)
	ListByAgent(ctx context.Context, agent domain.Address) ([]*models.MemoryLog, error)
	// Execute atomically validates and mutates one record under the store
	// lock, returning the updated copy.
	Execute(ctx context.Context, addr domain.Address, validate func(*models.MemoryLog) error, mutate func(*models.MemoryLog)) (*models.MemoryLog, error)
}

// AttestationStore persists attestation records.
type AttestationStore interface {
	Create(ctx context.Context, att *models.Attestation) error
	FindByLog(ctx context.Context, log domain.Address) (*models.Attestation, error)
}

// InMemoryLogs keeps decision records in a mutex-guarded map.
type InMemoryLogs struct {
	mu   sync.RWMutex
	logs map[domain.Address]*models.MemoryLog
}

func NewInMemoryLogs() *InMemoryLogs {
	return &InMemoryLogs{logs: make(map[domain.Address]*models.MemoryLog)}
}

func (s *InMemoryLogs) Create(_ context.Context, log *models.MemoryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[log.Address]; ok {
		return fmt.Errorf("memory log %s: %w", log.Address, sentinel.ErrAlreadyUsed)
	}
	cp := *log
	s.logs[log.Address] = &cp
	return nil
}

func (s *InMemoryLogs) FindByAddress(_ context.Context, addr domain.Address) (*models.MemoryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.logs[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *log
	return &cp, nil
}

func (s *InMemoryLogs) ListByAgent(_ context.Context, agent domain.Address) ([]*models.MemoryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.MemoryLog
	for _, log := range s.logs {
		if log.Agent == agent {
			cp := *log
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryLogs) Execute(_ context.Context, addr domain.Address, validate func(*models.MemoryLog) error, mutate func(*models.MemoryLog)) (*models.MemoryLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(log); err != nil {
		return nil, err
	}
	mutate(log)
	cp := *log
	return &cp, nil
}

// InMemoryAttestations keeps attestation records in a mutex-guarded map
// keyed by their derived address, so a second attestation for the same log
// collides.
type InMemoryAttestations struct {
	mu           sync.RWMutex
	attestations map[domain.Address]*models.Attestation
}

func NewInMemoryAttestations() *InMemoryAttestations {
	return &InMemoryAttestations{attestations: make(map[domain.Address]*models.Attestation)}
}

func (s *InMemoryAttestations) Create(_ context.Context, att *models.Attestation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attestations[att.Address]; ok {
		return fmt.Errorf("attestation for %s: %w", att.MemoryLog, sentinel.ErrAlreadyUsed)
	}
	cp := *att
	s.attestations[att.Address] = &cp
	return nil
}

func (s *InMemoryAttestations) FindByLog(_ context.Context, log domain.Address) (*models.Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	att, ok := s.attestations[models.DeriveAttestationAddress(log)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *att
	return &cp, nil
}
