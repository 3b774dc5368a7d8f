package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"

	"agentmemory/pkg/domain"
	"agentmemory/pkg/platform/sentinel"
)

// InMemory keeps balances in a mutex-guarded map. It favors clarity over
// performance; the single lock provides the single-writer isolation the
// execution model requires.
type InMemory struct {
	mu       sync.RWMutex
	balances map[domain.Address]uint64
}

func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[domain.Address]uint64)}
}

func (l *InMemory) Balance(_ context.Context, addr domain.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr], nil
}

func (l *InMemory) Mint(_ context.Context, addr domain.Address, amount uint64) error {
	if addr.IsZero() {
		return fmt.Errorf("mint to zero address: %w", sentinel.ErrInvalidState)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[addr] > math.MaxUint64-amount {
		return fmt.Errorf("mint overflows account %s: %w", addr, sentinel.ErrInvalidState)
	}
	l.balances[addr] += amount
	return nil
}

// Apply validates the whole batch against a staged view before touching
// committed state. A zero-amount movement is a no-op but still requires a
// valid destination, matching the transfer primitive's contract.
func (l *InMemory) Apply(_ context.Context, movements []Movement) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	staged := make(map[domain.Address]uint64, len(movements)*2)
	balance := func(addr domain.Address) uint64 {
		if v, ok := staged[addr]; ok {
			return v
		}
		return l.balances[addr]
	}

	for _, m := range movements {
		if m.From.IsZero() || m.To.IsZero() {
			return fmt.Errorf("transfer with zero address: %w", sentinel.ErrInvalidState)
		}
		from := balance(m.From)
		if from < m.Amount {
			return fmt.Errorf("account %s holds %d, needs %d: %w",
				m.From, from, m.Amount, sentinel.ErrInsufficientFunds)
		}
		// Debit before reading the destination so self-transfers net to zero.
		staged[m.From] = from - m.Amount
		to := balance(m.To)
		if to > math.MaxUint64-m.Amount {
			return fmt.Errorf("transfer overflows account %s: %w", m.To, sentinel.ErrInvalidState)
		}
		staged[m.To] = to + m.Amount
	}

	for addr, v := range staged {
		l.balances[addr] = v
	}
	return nil
}
