// Package storetest provides conformance tests shared by every process and
// event store backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/event"
	"github.com/felixgeelhaar/goap/domain/history"
	"github.com/felixgeelhaar/goap/domain/policy"
	"github.com/felixgeelhaar/goap/domain/process"
)

// NewProcess returns a terminated process with history and bindings, so
// round trips exercise every persisted field.
func NewProcess(id, goal string, created time.Time, status process.Status) *process.Process {
	p := process.New(id, goal, policy.DefaultBudget())
	p.CreatedAt = created.UTC()
	p.Status = status
	p.StartTime = p.CreatedAt
	p.History = history.History{{
		Action:    "build",
		Timestamp: p.CreatedAt.Add(time.Second),
		Cost:      0.5,
		Tokens:    10,
		Progress:  true,
	}}
	p.Bindings = []blackboard.Entry{{Seq: 1, Name: "artifact", Type: "string", Value: "app.tar", Source: "build"}}
	if status.IsTerminal() {
		p.EndTime = p.CreatedAt.Add(2 * time.Second)
		p.Termination = &process.Termination{
			Status:     status,
			Reason:     "test",
			LastAction: "build",
			PlanLength: 1,
			At:         p.EndTime,
		}
	}
	return p
}

// ProcessStore runs the process.Store conformance suite against stores
// produced by newStore. Each subtest gets a fresh store.
func ProcessStore(t *testing.T, newStore func(t *testing.T) process.Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("save and get", func(t *testing.T) {
		s := newStore(t)
		p := NewProcess("proc-1", "shipped", base, process.StatusCompleted)
		if err := s.Save(ctx, p); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := s.Get(ctx, "proc-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Goal != "shipped" || got.Status != process.StatusCompleted {
			t.Errorf("Get() = %s/%s, want shipped/COMPLETED", got.Goal, got.Status)
		}
		if got.History.Len() != 1 || got.History.TotalCost() != 0.5 {
			t.Errorf("History = %+v", got.History)
		}
		if got.Termination == nil || got.Termination.LastAction != "build" {
			t.Errorf("Termination = %+v", got.Termination)
		}
		if len(got.Bindings) != 1 || got.Bindings[0].Name != "artifact" {
			t.Errorf("Bindings = %+v", got.Bindings)
		}
		if !got.CreatedAt.Equal(base) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
		}
	})

	t.Run("errors", func(t *testing.T) {
		s := newStore(t)
		p := NewProcess("proc-1", "g", base, process.StatusRunning)
		if err := s.Save(ctx, p); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		tests := []struct {
			name    string
			op      func() error
			wantErr error
		}{
			{"save duplicate", func() error { return s.Save(ctx, p) }, process.ErrProcessExists},
			{"save empty id", func() error { return s.Save(ctx, &process.Process{}) }, process.ErrInvalidProcessID},
			{"get missing", func() error { _, err := s.Get(ctx, "missing"); return err }, process.ErrProcessNotFound},
			{"get empty id", func() error { _, err := s.Get(ctx, ""); return err }, process.ErrInvalidProcessID},
			{"update missing", func() error {
				return s.Update(ctx, NewProcess("missing", "g", base, process.StatusRunning))
			}, process.ErrProcessNotFound},
			{"delete missing", func() error { return s.Delete(ctx, "missing") }, process.ErrProcessNotFound},
		}
		for _, tt := range tests {
			if err := tt.op(); !errors.Is(err, tt.wantErr) {
				t.Errorf("%s: error = %v, want %v", tt.name, err, tt.wantErr)
			}
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		s := newStore(t)
		p := NewProcess("proc-1", "g", base, process.StatusRunning)
		if err := s.Save(ctx, p); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		done := NewProcess("proc-1", "g", base, process.StatusStuck)
		if err := s.Update(ctx, done); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got, err := s.Get(ctx, "proc-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Status != process.StatusStuck {
			t.Errorf("Status = %s, want STUCK", got.Status)
		}

		if err := s.Delete(ctx, "proc-1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Get(ctx, "proc-1"); !errors.Is(err, process.ErrProcessNotFound) {
			t.Errorf("Get() after Delete error = %v, want ErrProcessNotFound", err)
		}
	})

	t.Run("list and count", func(t *testing.T) {
		s := newStore(t)
		seed := []*process.Process{
			NewProcess("p-a", "shipped", base, process.StatusCompleted),
			NewProcess("p-b", "shipped", base.Add(time.Minute), process.StatusFailed),
			NewProcess("p-c", "built", base.Add(2*time.Minute), process.StatusCompleted),
			NewProcess("p-d", "shipped", base.Add(3*time.Minute), process.StatusStuck),
		}
		for _, p := range seed {
			if err := s.Save(ctx, p); err != nil {
				t.Fatalf("Save(%s) error = %v", p.ID, err)
			}
		}

		tests := []struct {
			name   string
			filter process.ListFilter
			want   []string
		}{
			{"all", process.ListFilter{}, []string{"p-a", "p-b", "p-c", "p-d"}},
			{"descending", process.ListFilter{Descending: true}, []string{"p-d", "p-c", "p-b", "p-a"}},
			{"status", process.ListFilter{Status: []process.Status{process.StatusCompleted}}, []string{"p-a", "p-c"}},
			{"goal", process.ListFilter{Goal: "shipped"}, []string{"p-a", "p-b", "p-d"}},
			{"window", process.ListFilter{FromTime: base.Add(time.Minute), ToTime: base.Add(3 * time.Minute)}, []string{"p-b", "p-c"}},
			{"page", process.ListFilter{Offset: 1, Limit: 2}, []string{"p-b", "p-c"}},
		}
		for _, tt := range tests {
			got, err := s.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("%s: List() error = %v", tt.name, err)
			}
			if ids := idsOf(got); !equal(ids, tt.want) {
				t.Errorf("%s: List() = %v, want %v", tt.name, ids, tt.want)
			}
		}

		n, err := s.Count(ctx, process.ListFilter{Goal: "shipped", Limit: 1})
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 3 {
			t.Errorf("Count() = %d, want 3", n)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := s.Save(cctx, NewProcess("p", "g", base, process.StatusRunning)); err == nil {
			t.Error("Save() with cancelled context should fail")
		}
	})
}

// EventStore runs the event.Store conformance suite.
func EventStore(t *testing.T, newStore func(t *testing.T) event.Store) {
	t.Helper()
	ctx := context.Background()

	mk := func(processID string, typ event.Type) event.Event {
		e, err := event.New(processID, typ, event.ActionStartedPayload{Action: "build"})
		if err != nil {
			t.Fatal(err)
		}
		return e
	}

	t.Run("append assigns sequences", func(t *testing.T) {
		s := newStore(t)
		if err := s.Append(ctx, mk("p1", event.TypeProcessStarted), mk("p2", event.TypeProcessStarted)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := s.Append(ctx, mk("p1", event.TypeActionStarted), mk("p1", event.TypeActionFinished)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		got, err := s.LoadEvents(ctx, "p1")
		if err != nil {
			t.Fatalf("LoadEvents() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("LoadEvents() = %d events, want 3", len(got))
		}
		for i, e := range got {
			if e.Sequence != uint64(i+1) {
				t.Errorf("event %d sequence = %d, want %d", i, e.Sequence, i+1)
			}
			if e.ID == "" {
				t.Errorf("event %d has no ID", i)
			}
		}
		if got[2].Type != event.TypeActionFinished {
			t.Errorf("last type = %s, want action.finished", got[2].Type)
		}

		var payload event.ActionStartedPayload
		if err := got[1].Decode(&payload); err != nil || payload.Action != "build" {
			t.Errorf("Decode() = %+v, %v", payload, err)
		}

		from, err := s.LoadEventsFrom(ctx, "p1", 2)
		if err != nil {
			t.Fatalf("LoadEventsFrom() error = %v", err)
		}
		if len(from) != 2 || from[0].Sequence != 2 {
			t.Errorf("LoadEventsFrom(2) = %d events", len(from))
		}

		none, err := s.LoadEvents(ctx, "unknown")
		if err != nil || len(none) != 0 {
			t.Errorf("LoadEvents(unknown) = %v, %v", none, err)
		}
	})

	t.Run("rejects invalid events", func(t *testing.T) {
		s := newStore(t)
		err := s.Append(ctx, mk("p1", event.TypeProcessStarted), event.Event{Type: event.TypePlanComputed})
		if !errors.Is(err, event.ErrInvalidEvent) {
			t.Errorf("Append() error = %v, want ErrInvalidEvent", err)
		}
		got, _ := s.LoadEvents(ctx, "p1")
		if len(got) != 0 {
			t.Errorf("LoadEvents() = %d events, want none after rejected batch", len(got))
		}
	})

	t.Run("subscribe", func(t *testing.T) {
		s := newStore(t)
		sctx, cancel := context.WithCancel(ctx)
		ch, err := s.Subscribe(sctx, "p1")
		if err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
		if err := s.Append(ctx, mk("p1", event.TypeProcessStarted)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		select {
		case e := <-ch:
			if e.Type != event.TypeProcessStarted || e.Sequence != 1 {
				t.Errorf("received %+v", e)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no event received")
		}

		cancel()
		select {
		case _, ok := <-ch:
			if ok {
				t.Error("expected channel to close after cancel")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("channel not closed after cancel")
		}
	})
}

func idsOf(ps []*process.Process) []string {
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
