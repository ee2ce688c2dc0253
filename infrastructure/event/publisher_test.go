package event_test

import (
	"context"
	"errors"
	"testing"

	domainevent "github.com/felixgeelhaar/goap/domain/event"
	infraevent "github.com/felixgeelhaar/goap/infrastructure/event"
	"github.com/felixgeelhaar/goap/infrastructure/storage/memory"
)

// failingStore fails every append.
type failingStore struct {
	*memory.EventStore
	err error
}

func (s *failingStore) Append(context.Context, ...domainevent.Event) error {
	return s.err
}

func newEvent(t *testing.T, processID string, typ domainevent.Type) domainevent.Event {
	t.Helper()

	e, err := domainevent.New(processID, typ, map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()

	t.Run("appends immediately without buffering", func(t *testing.T) {
		t.Parallel()

		store := memory.NewEventStore()
		pub := infraevent.NewPublisher(store)

		if err := pub.Publish(context.Background(), newEvent(t, "proc-1", domainevent.TypeProcessStarted)); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if store.Len() != 1 {
			t.Errorf("store.Len() = %d, want 1", store.Len())
		}
	})

	t.Run("buffers until full", func(t *testing.T) {
		t.Parallel()

		store := memory.NewEventStore()
		pub := infraevent.NewPublisher(store, infraevent.WithBufferSize(3))
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			if err := pub.Publish(ctx, newEvent(t, "proc-1", domainevent.TypeActionStarted)); err != nil {
				t.Fatalf("Publish() error = %v", err)
			}
		}
		if store.Len() != 0 {
			t.Errorf("store.Len() = %d, want 0", store.Len())
		}
		if pub.Buffered() != 2 {
			t.Errorf("Buffered() = %d, want 2", pub.Buffered())
		}

		if err := pub.Publish(ctx, newEvent(t, "proc-1", domainevent.TypeActionFinished)); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if store.Len() != 3 {
			t.Errorf("store.Len() = %d, want 3", store.Len())
		}
		if pub.Buffered() != 0 {
			t.Errorf("Buffered() = %d, want 0", pub.Buffered())
		}
	})

	t.Run("empty publish is a no-op", func(t *testing.T) {
		t.Parallel()

		pub := infraevent.NewPublisher(&failingStore{err: errors.New("boom")})
		if err := pub.Publish(context.Background()); err != nil {
			t.Errorf("Publish() error = %v, want nil", err)
		}
	})

	t.Run("store error keeps the buffer", func(t *testing.T) {
		t.Parallel()

		storeErr := errors.New("boom")
		pub := infraevent.NewPublisher(&failingStore{err: storeErr}, infraevent.WithBufferSize(1))

		err := pub.Publish(context.Background(), newEvent(t, "proc-1", domainevent.TypeActionStarted))
		if !errors.Is(err, storeErr) {
			t.Errorf("Publish() error = %v, want %v", err, storeErr)
		}
		if pub.Buffered() != 1 {
			t.Errorf("Buffered() = %d, want 1", pub.Buffered())
		}
	})
}

func TestPublisher_Handle(t *testing.T) {
	t.Parallel()

	t.Run("terminated process flushes the buffer", func(t *testing.T) {
		t.Parallel()

		store := memory.NewEventStore()
		pub := infraevent.NewPublisher(store, infraevent.WithBufferSize(100))
		ctx := context.Background()

		pub.Handle(ctx, newEvent(t, "proc-1", domainevent.TypeProcessStarted))
		pub.Handle(ctx, newEvent(t, "proc-1", domainevent.TypePlanComputed))
		if store.Len() != 0 {
			t.Fatalf("store.Len() = %d, want 0", store.Len())
		}

		pub.Handle(ctx, newEvent(t, "proc-1", domainevent.TypeProcessTerminated))

		events, err := store.LoadEvents(ctx, "proc-1")
		if err != nil {
			t.Fatalf("LoadEvents() error = %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("len(LoadEvents()) = %d, want 3", len(events))
		}
		if events[2].Type != domainevent.TypeProcessTerminated {
			t.Errorf("last event = %v, want %v", events[2].Type, domainevent.TypeProcessTerminated)
		}
	})

	t.Run("store failure does not panic", func(t *testing.T) {
		t.Parallel()

		pub := infraevent.NewPublisher(&failingStore{err: errors.New("boom")})
		pub.Handle(context.Background(), newEvent(t, "proc-1", domainevent.TypeProcessStarted))
	})
}

func TestPublisher_Close(t *testing.T) {
	t.Parallel()

	store := memory.NewEventStore()
	pub := infraevent.NewPublisher(store, infraevent.WithBufferSize(10))
	ctx := context.Background()

	if err := pub.Publish(ctx, newEvent(t, "proc-1", domainevent.TypeProcessStarted)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("store.Len() = %d, want 1", store.Len())
	}

	err := pub.Publish(ctx, newEvent(t, "proc-1", domainevent.TypeActionStarted))
	if !errors.Is(err, domainevent.ErrPublisherClosed) {
		t.Errorf("Publish() after Close error = %v, want %v", err, domainevent.ErrPublisherClosed)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
