package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentmemory/pkg/requestcontext"
)

func TestStorePublisherStamps(t *testing.T) {
	recorder := NewInMemoryStore()
	pub := NewStorePublisher(recorder)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)
	ctx = requestcontext.WithRequestID(ctx, "req-1")

	require.NoError(t, pub.Emit(ctx, Event{Action: ActionAgentRegistered, Agent: "0xabc"}))

	all := recorder.All()
	require.Len(t, all, 1)
	assert.NotEmpty(t, all[0].ID)
	assert.Equal(t, at, all[0].Timestamp)
	assert.Equal(t, "req-1", all[0].RequestID)
}

func TestChannelPublisherDropsWhenFull(t *testing.T) {
	pub := NewChannelPublisher(1)

	require.NoError(t, pub.Emit(context.Background(), Event{Action: "first"}))
	// Second emit finds the inbox full and drops rather than blocking.
	require.NoError(t, pub.Emit(context.Background(), Event{Action: "second"}))

	event := <-pub.Inbox()
	assert.Equal(t, "first", event.Action)
	select {
	case <-pub.Inbox():
		t.Fatal("expected the overflow event to be dropped")
	default:
	}
}

func TestMultiFansOut(t *testing.T) {
	a := NewInMemoryStore()
	b := NewInMemoryStore()
	multi := NewMulti(NewStorePublisher(a), NewStorePublisher(b))

	require.NoError(t, multi.Emit(context.Background(), Event{Action: ActionModulePurchased}))

	require.Len(t, a.All(), 1)
	require.Len(t, b.All(), 1)
	// Both sinks saw the same stamped identity.
	assert.Equal(t, a.All()[0].ID, b.All()[0].ID)
}

func TestWorkerDrainsOnClose(t *testing.T) {
	recorder := NewInMemoryStore()
	pub := NewChannelPublisher(16)
	worker := NewWorker(recorder, pub.Inbox())

	for i := 0; i < 5; i++ {
		require.NoError(t, pub.Emit(context.Background(), Event{Action: ActionDecisionLogged}))
	}
	pub.Close()

	require.NoError(t, worker.Run(context.Background()))
	assert.Len(t, recorder.All(), 5)
}

func TestListByAgentFilters(t *testing.T) {
	recorder := NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, recorder.Append(ctx, Event{Action: "a", Agent: "0x01"}))
	require.NoError(t, recorder.Append(ctx, Event{Action: "b", Agent: "0x02"}))
	require.NoError(t, recorder.Append(ctx, Event{Action: "c", Agent: "0x01"}))

	got, err := recorder.ListByAgent(ctx, "0x01")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Action)
	assert.Equal(t, "c", got[1].Action)
}
