package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the ledger return
// these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist at the derived address
// - ErrAlreadyUsed: the derived address is already occupied (replayed create)
// - ErrInvalidState: record in wrong state for the requested transition
// - ErrInsufficientFunds: ledger account cannot cover a staged transfer
// - ErrUnavailable: collaborator temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyUsed       = errors.New("already used")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnavailable       = errors.New("unavailable")
)
