package service

import (
	"context"
	"errors"

	agentmetrics "agentmemory/internal/agent/metrics"
	"agentmemory/internal/agent/models"
	"agentmemory/internal/agent/store"
	"agentmemory/internal/events"
	"agentmemory/internal/identity"
	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
	"agentmemory/pkg/platform/sentinel"
	"agentmemory/pkg/requestcontext"
)

// Service orchestrates the agent registry. Registration is the only write;
// reputation changes arrive exclusively through the attestation flow.
type Service struct {
	agents    store.AgentStore
	publisher events.Publisher
	metrics   *agentmetrics.Metrics
}

func New(agents store.AgentStore, publisher events.Publisher, metrics *agentmetrics.Metrics) *Service {
	return &Service{agents: agents, publisher: publisher, metrics: metrics}
}

// Register creates the registry record for agentID, owned by the caller.
// Replaying the same identifier collides with the occupied derived key and
// is rejected as a conflict.
func (s *Service) Register(ctx context.Context, agentID string) (*models.Agent, error) {
	caller := requestcontext.Caller(ctx)
	if !identity.Verify(caller) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	agent, err := models.NewAgent(agentID, caller, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.agents.Create(ctx, agent); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "agent already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register agent")
	}

	s.emit(ctx, events.Event{
		Action: events.ActionAgentRegistered,
		Actor:  caller.String(),
		Agent:  agent.Address.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementAgentsRegistered()
	}
	return agent, nil
}

// Get returns the registry record for agentID.
func (s *Service) Get(ctx context.Context, agentID string) (*models.Agent, error) {
	if agentID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "agent id is required")
	}
	agent, err := s.agents.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}
	return agent, nil
}

// GetByAddress returns the registry record at a derived address.
func (s *Service) GetByAddress(ctx context.Context, addr domain.Address) (*models.Agent, error) {
	agent, err := s.agents.FindByAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}
	return agent, nil
}

// emit delivers the success notification. Event sinks never veto a
// committed state transition.
func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.publisher != nil {
		_ = s.publisher.Emit(ctx, event)
	}
}
