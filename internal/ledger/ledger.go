// Package ledger is the native value-transfer collaborator. The purchase
// engine stages a batch of movements and applies them through a single
// all-or-nothing primitive; partial application is impossible.
package ledger

import (
	"context"

	"agentmemory/pkg/domain"
)

// Movement is one staged value transfer.
type Movement struct {
	From   domain.Address
	To     domain.Address
	Amount uint64
}

// Ledger is interface-driven so the in-memory implementation can be swapped
// for the host platform's native primitive without rewiring business code.
type Ledger interface {
	// Balance returns the current balance for an account. Accounts that
	// have never received value report zero.
	Balance(ctx context.Context, addr domain.Address) (uint64, error)
	// Mint credits an account out of thin air. Ops/test surface only.
	Mint(ctx context.Context, addr domain.Address, amount uint64) error
	// Apply executes all movements atomically: every movement is validated
	// against the state produced by the previous ones, and either all
	// commit or none do.
	Apply(ctx context.Context, movements []Movement) error
}
