package models

import (
	"time"

	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
)

// MaxPayloadLen bounds the input, logic, and outcome payloads. Only their
// digests reach the permanent record; raw payloads are retained off-system
// and verified against the stored hashes.
const MaxPayloadLen = 256

// MemoryLog is one decision record in an agent's audit trail.
//
// State machine: Logged -> Attested (terminal). IsAttested starts false and
// transitions to true exactly once; every other field is immutable.
type MemoryLog struct {
	Address    domain.Address `json:"address"`
	Agent      domain.Address `json:"agent"`
	InputHash  domain.Hash    `json:"input_hash"`
	LogicHash  domain.Hash    `json:"logic_hash"`
	MerkleRoot domain.Hash    `json:"merkle_root"`
	Timestamp  time.Time      `json:"timestamp"`
	IsAttested bool           `json:"is_attested"`
}

// Attestation finalizes a MemoryLog with its observed outcome.
type Attestation struct {
	Address     domain.Address `json:"address"`
	MemoryLog   domain.Address `json:"memory_log"`
	OutcomeHash domain.Hash    `json:"outcome_hash"`
	Success     bool           `json:"success"`
	ScoreDelta  int64          `json:"score_delta"`
	Timestamp   time.Time      `json:"timestamp"`
}

// NewMemoryLog validates payload bounds, computes the three-hash commitment
// (input digest, logic digest, and their binding root), and derives the
// record address from the owning agent plus creation time.
func NewMemoryLog(agent domain.Address, input, logic string, now time.Time) (*MemoryLog, error) {
	if len(input) > MaxPayloadLen {
		return nil, dErrors.New(dErrors.CodeValidation, "input data must be 256 characters or less")
	}
	if len(logic) > MaxPayloadLen {
		return nil, dErrors.New(dErrors.CodeValidation, "logic data must be 256 characters or less")
	}

	inputHash := domain.Keccak([]byte(input))
	logicHash := domain.Keccak([]byte(logic))

	return &MemoryLog{
		Address:    DeriveLogAddress(agent, now),
		Agent:      agent,
		InputHash:  inputHash,
		LogicHash:  logicHash,
		MerkleRoot: domain.KeccakPair(inputHash, logicHash),
		Timestamp:  now,
	}, nil
}

// NewAttestation validates the outcome payload and binds it to a log.
func NewAttestation(log domain.Address, outcome string, success bool, scoreDelta int64, now time.Time) (*Attestation, error) {
	if len(outcome) > MaxPayloadLen {
		return nil, dErrors.New(dErrors.CodeValidation, "outcome data must be 256 characters or less")
	}
	return &Attestation{
		Address:     DeriveAttestationAddress(log),
		MemoryLog:   log,
		OutcomeHash: domain.Keccak([]byte(outcome)),
		Success:     success,
		ScoreDelta:  scoreDelta,
		Timestamp:   now,
	}, nil
}

// DeriveLogAddress keys a log by owning agent and creation time.
func DeriveLogAddress(agent domain.Address, t time.Time) domain.Address {
	return domain.DeriveAddress(domain.LabelMemory, agent.Bytes(), domain.TimeComponent(t))
}

// DeriveAttestationAddress keys an attestation by its log, making a second
// attestation for the same log a key collision.
func DeriveAttestationAddress(log domain.Address) domain.Address {
	return domain.DeriveAddress(domain.LabelAttest, log.Bytes())
}

// CanAttest checks the one-shot transition.
func (l *MemoryLog) CanAttest() error {
	if l.IsAttested {
		return dErrors.New(dErrors.CodeConflict, "memory log already attested")
	}
	return nil
}

// ApplyAttested marks the terminal state. Call CanAttest first.
func (l *MemoryLog) ApplyAttested() {
	l.IsAttested = true
}
