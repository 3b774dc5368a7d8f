package models

import (
	"math"
	"time"

	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
)

// MaxAgentIDLen bounds agent identifiers.
const MaxAgentIDLen = 64

// Agent is the per-identity registry record.
//
// Invariants:
//   - AgentID is non-empty, at most 64 characters, immutable after creation
//   - Reputation is always >= 0 (unsigned by construction; the clamp below
//     governs how signed deltas land)
//   - TotalLogs and TotalAttestations only ever increase
type Agent struct {
	Address           domain.Address `json:"address"`
	AgentID           string         `json:"agent_id"`
	Authority         domain.Address `json:"authority"`
	Reputation        uint64         `json:"reputation"`
	TotalLogs         uint64         `json:"total_logs"`
	TotalAttestations uint64         `json:"total_attestations"`
	CreatedAt         time.Time      `json:"created_at"`
}

// NewAgent validates the identifier and builds a fresh record with all
// counters at zero.
func NewAgent(agentID string, authority domain.Address, now time.Time) (*Agent, error) {
	if agentID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "agent id is required")
	}
	if len(agentID) > MaxAgentIDLen {
		return nil, dErrors.New(dErrors.CodeValidation, "agent id must be 64 characters or less")
	}
	return &Agent{
		Address:   DeriveAgentAddress(agentID),
		AgentID:   agentID,
		Authority: authority,
		CreatedAt: now,
	}, nil
}

// DeriveAgentAddress computes the deterministic record key for an agent id.
func DeriveAgentAddress(agentID string) domain.Address {
	return domain.DeriveAddress(domain.LabelAgent, []byte(agentID))
}

// CanApplyDelta checks the signed reputation adjustment for overflow before
// any state is touched. Overflow is a fatal arithmetic failure, never a
// silent wrap.
func (a *Agent) CanApplyDelta(delta int64) error {
	if delta > 0 && a.Reputation > math.MaxUint64-uint64(delta) {
		return dErrors.New(dErrors.CodeArithmetic, "reputation calculation overflow")
	}
	return nil
}

// ApplyDelta adjusts reputation by delta, clamping the result of this single
// step to zero. The clamp is per-step, not cumulative: history that would
// have gone negative is forgotten, so a later positive delta starts from
// zero. Call CanApplyDelta first.
func (a *Agent) ApplyDelta(delta int64) {
	if delta >= 0 {
		a.Reputation += uint64(delta)
		return
	}
	loss := uint64(-(delta + 1)) + 1 // avoids overflow at math.MinInt64
	if loss >= a.Reputation {
		a.Reputation = 0
		return
	}
	a.Reputation -= loss
}
