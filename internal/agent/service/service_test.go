package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/internal/agent/store"
	"agentmemory/internal/events"
	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
	"agentmemory/pkg/requestcontext"
)

func callerCtx(seed string) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), domain.DeriveAddress("wallet", []byte(seed)))
	return requestcontext.WithTime(ctx, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func newTestService() (*Service, *events.InMemoryStore) {
	recorder := events.NewInMemoryStore()
	return New(store.NewInMemory(), events.NewStorePublisher(recorder), nil), recorder
}

func TestRegister(t *testing.T) {
	svc, recorder := newTestService()

	agent, err := svc.Register(callerCtx("alice"), "trader-1")
	require.NoError(t, err)
	assert.Equal(t, "trader-1", agent.AgentID)
	assert.Equal(t, domain.DeriveAddress("wallet", []byte("alice")), agent.Authority)
	assert.Zero(t, agent.Reputation)

	all := recorder.All()
	require.Len(t, all, 1)
	assert.Equal(t, events.ActionAgentRegistered, all[0].Action)
	assert.Equal(t, agent.Address.String(), all[0].Agent)
}

func TestRegisterDuplicateConflicts(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(callerCtx("alice"), "trader-1")
	require.NoError(t, err)

	// Same identifier from any caller collides with the occupied key.
	_, err = svc.Register(callerCtx("bob"), "trader-1")
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestRegisterRequiresCaller(t *testing.T) {
	svc, recorder := newTestService()

	_, err := svc.Register(context.Background(), "trader-1")
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	assert.Empty(t, recorder.All())
}

func TestGet(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.Register(callerCtx("alice"), "trader-1")
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), "trader-1")
	require.NoError(t, err)
	assert.Equal(t, created.Address, got.Address)

	_, err = svc.Get(context.Background(), "missing")
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))

	_, err = svc.Get(context.Background(), "")
	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
}
