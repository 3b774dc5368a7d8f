// Package events carries the structured notifications emitted on every
// successful state transition, for external indexing. No event is emitted
// on failure. Sinks are pluggable: in-memory recorder for tests, redis
// pub/sub, kafka, or a postgres outbox.
package events

import "time"

// Actions, one per emitting operation.
const (
	ActionAgentRegistered   = "agent.registered"
	ActionDecisionLogged    = "decision.logged"
	ActionOutcomeAttested   = "outcome.attested"
	ActionPlatformInit      = "platform.initialized"
	ActionModuleRegistered  = "module.registered"
	ActionModuleRepriced    = "module.repriced"
	ActionModuleDeactivated = "module.deactivated"
	ActionModulePurchased   = "module.purchased"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. Addresses and hashes
// travel as 0x-hex strings; amount fields are set only on purchase events.
type Event struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`

	Actor      string `json:"actor,omitempty"`
	Agent      string `json:"agent,omitempty"`
	MemoryLog  string `json:"memory_log,omitempty"`
	Module     string `json:"module,omitempty"`
	MerkleRoot string `json:"merkle_root,omitempty"`

	Success       *bool   `json:"success,omitempty"`
	NewReputation *uint64 `json:"new_reputation,omitempty"`

	PricePaid     *uint64 `json:"price_paid,omitempty"`
	PlatformFee   *uint64 `json:"platform_fee,omitempty"`
	CreatorAmount *uint64 `json:"creator_amount,omitempty"`
	ReferralFee   *uint64 `json:"referral_fee,omitempty"`
}

// U64 is a pointer helper for the optional amount fields.
func U64(v uint64) *uint64 { return &v }

// Bool is a pointer helper for the optional success flag.
func Bool(v bool) *bool { return &v }
