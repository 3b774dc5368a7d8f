package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	agentmodels "agentmemory/internal/agent/models"
	"agentmemory/internal/events"
	"agentmemory/internal/identity"
	memlogmetrics "agentmemory/internal/memlog/metrics"
	"agentmemory/internal/memlog/models"
	"agentmemory/internal/memlog/store"
	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
	"agentmemory/pkg/platform/sentinel"
	"agentmemory/pkg/requestcontext"
)

// AgentDirectory is the slice of the agent registry this module needs:
// resolving an agent and applying the attestation's counter/reputation
// mutation under the registry's lock.
type AgentDirectory interface {
	FindByID(ctx context.Context, agentID string) (*agentmodels.Agent, error)
	FindByAddress(ctx context.Context, addr domain.Address) (*agentmodels.Agent, error)
	Execute(ctx context.Context, addr domain.Address, validate func(*agentmodels.Agent) error, mutate func(*agentmodels.Agent)) (*agentmodels.Agent, error)
}

// Service drives the Logged -> Attested state machine and the reputation
// accounting that hangs off it.
type Service struct {
	logs         store.LogStore
	attestations store.AttestationStore
	agents       AgentDirectory
	publisher    events.Publisher
	metrics      *memlogmetrics.Metrics
	tracer       trace.Tracer
}

func New(logs store.LogStore, attestations store.AttestationStore, agents AgentDirectory, publisher events.Publisher, metrics *memlogmetrics.Metrics) *Service {
	return &Service{
		logs:         logs,
		attestations: attestations,
		agents:       agents,
		publisher:    publisher,
		metrics:      metrics,
		tracer:       otel.Tracer("agentmemory/memlog"),
	}
}

// LogDecision appends a decision record for the agent. Only the agent's
// registered authority may log on its behalf. The record stores digests,
// never payloads.
func (s *Service) LogDecision(ctx context.Context, agentID, input, logic string) (*models.MemoryLog, error) {
	ctx, span := s.tracer.Start(ctx, "memlog.LogDecision")
	defer span.End()

	caller := requestcontext.Caller(ctx)
	if !identity.Verify(caller) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	agent, err := s.agents.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}
	if agent.Authority != caller {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller is not the agent authority")
	}

	log, err := models.NewMemoryLog(agent.Address, input, logic, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.logs.Create(ctx, log); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Same agent, same second: the derived key is already occupied.
			return nil, dErrors.New(dErrors.CodeConflict, "decision log already exists for this timestamp")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create decision log")
	}

	if _, err := s.agents.Execute(ctx, agent.Address,
		func(*agentmodels.Agent) error { return nil },
		func(a *agentmodels.Agent) { a.TotalLogs++ },
	); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update agent counters")
	}

	s.emit(ctx, events.Event{
		Action:     events.ActionDecisionLogged,
		Actor:      caller.String(),
		Agent:      agent.Address.String(),
		MemoryLog:  log.Address.String(),
		MerkleRoot: log.MerkleRoot.String(),
		Timestamp:  log.Timestamp,
	})
	if s.metrics != nil {
		s.metrics.IncrementDecisionsLogged()
	}
	return log, nil
}

// AttestOutcome finalizes a decision log exactly once and applies the
// signed reputation delta with a per-step clamp to zero.
//
// Ordering: the delta is validated against current reputation before the
// one-shot gate flips, so an arithmetic failure aborts with nothing
// committed; the gate itself (Execute on the log) is the atomic point that
// makes a second attestation a state conflict.
func (s *Service) AttestOutcome(ctx context.Context, logAddr domain.Address, outcome string, success bool, scoreDelta int64) (*models.Attestation, *agentmodels.Agent, error) {
	ctx, span := s.tracer.Start(ctx, "memlog.AttestOutcome")
	defer span.End()
	start := time.Now()

	caller := requestcontext.Caller(ctx)
	if !identity.Verify(caller) {
		return nil, nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	log, err := s.logs.FindByAddress(ctx, logAddr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "memory log not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load memory log")
	}
	if err := log.CanAttest(); err != nil {
		return nil, nil, err
	}

	att, err := models.NewAttestation(logAddr, outcome, success, scoreDelta, requestcontext.Now(ctx))
	if err != nil {
		return nil, nil, err
	}

	agent, err := s.agents.FindByAddress(ctx, log.Agent)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "memory log references unknown agent")
	}
	if err := agent.CanApplyDelta(scoreDelta); err != nil {
		return nil, nil, err
	}

	// One-shot gate: validate-then-mutate under the log store's lock.
	if _, err := s.logs.Execute(ctx, logAddr,
		func(l *models.MemoryLog) error { return l.CanAttest() },
		func(l *models.MemoryLog) { l.ApplyAttested() },
	); err != nil {
		return nil, nil, err
	}

	if err := s.attestations.Create(ctx, att); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, nil, dErrors.New(dErrors.CodeConflict, "memory log already attested")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create attestation")
	}

	updated, err := s.agents.Execute(ctx, log.Agent,
		func(a *agentmodels.Agent) error { return a.CanApplyDelta(scoreDelta) },
		func(a *agentmodels.Agent) {
			a.ApplyDelta(scoreDelta)
			a.TotalAttestations++
		},
	)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply reputation")
	}

	s.emit(ctx, events.Event{
		Action:        events.ActionOutcomeAttested,
		Actor:         caller.String(),
		Agent:         log.Agent.String(),
		MemoryLog:     logAddr.String(),
		Success:       events.Bool(success),
		NewReputation: events.U64(updated.Reputation),
	})
	if s.metrics != nil {
		s.metrics.IncrementOutcomesAttested()
		s.metrics.ObserveAttest(start)
	}
	return att, updated, nil
}

// GetLog returns a decision record and, when present, its attestation.
func (s *Service) GetLog(ctx context.Context, logAddr domain.Address) (*models.MemoryLog, *models.Attestation, error) {
	log, err := s.logs.FindByAddress(ctx, logAddr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "memory log not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load memory log")
	}
	att, err := s.attestations.FindByLog(ctx, logAddr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return log, nil, nil
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attestation")
	}
	return log, att, nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.publisher != nil {
		_ = s.publisher.Emit(ctx, event)
	}
}
