package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"agentmemory/pkg/requestcontext"
)

// Publisher accepts events for delivery to one or more sinks.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store persists events. The worker drains into one of these.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAgent(ctx context.Context, agent string) ([]Event, error)
}

// stamp fills the bookkeeping fields every sink relies on.
func stamp(ctx context.Context, event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	return event
}

// StorePublisher writes events straight to a store. Used in tests and as
// the default sink when no broker is configured.
type StorePublisher struct {
	store Store
}

func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	return p.store.Append(ctx, stamp(ctx, event))
}

// ChannelPublisher hands events to a buffered inbox consumed by a Worker,
// keeping emission off the request path. A full inbox drops the event
// rather than blocking a committed state transition.
type ChannelPublisher struct {
	inbox chan Event
	once  sync.Once
}

func NewChannelPublisher(buffer int) *ChannelPublisher {
	return &ChannelPublisher{inbox: make(chan Event, buffer)}
}

func (p *ChannelPublisher) Emit(ctx context.Context, event Event) error {
	select {
	case p.inbox <- stamp(ctx, event):
	default:
	}
	return nil
}

// Inbox exposes the receive side for the worker.
func (p *ChannelPublisher) Inbox() <-chan Event {
	return p.inbox
}

// Close stops accepting events; the worker drains what remains.
func (p *ChannelPublisher) Close() {
	p.once.Do(func() { close(p.inbox) })
}

// Multi fans one event out to several publishers. Sink failures are
// independent: the first error is returned after all sinks were attempted.
type Multi struct {
	sinks []Publisher
}

func NewMulti(sinks ...Publisher) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Emit(ctx context.Context, event Event) error {
	event = stamp(ctx, event)
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Worker consumes events from an inbox and persists them. It keeps
// background processing testable without wiring broker implementations.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			// Persist with a detached deadline so shutdown drains cleanly.
			appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			err := w.store.Append(appendCtx, event)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
