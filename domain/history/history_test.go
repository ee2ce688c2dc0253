package history

import (
	"testing"
	"time"
)

func TestHistory_Aggregates(t *testing.T) {
	t.Parallel()

	now := time.Now()
	h := History{
		{Action: "search", Timestamp: now, Cost: 0.5, Tokens: 100, Progress: true},
		{Action: "write", Timestamp: now, Cost: 1.0, Tokens: 250, Progress: true},
		{Action: "write", Timestamp: now, Cost: 1.0, Progress: false},
		{Action: "write", Timestamp: now, Cost: 1.0, Progress: false},
	}

	if h.Len() != 4 {
		t.Errorf("Len() = %d, want 4", h.Len())
	}
	if h.TotalCost() != 3.5 {
		t.Errorf("TotalCost() = %v, want 3.5", h.TotalCost())
	}
	if h.TotalTokens() != 350 {
		t.Errorf("TotalTokens() = %d, want 350", h.TotalTokens())
	}
	if h.NoProgressStreak() != 2 {
		t.Errorf("NoProgressStreak() = %d, want 2", h.NoProgressStreak())
	}
	if h.Count("write") != 3 || !h.Ran("search") || h.Ran("publish") {
		t.Errorf("Count/Ran mismatch: %v", h.Names())
	}
	last, ok := h.Last()
	if !ok || last.Action != "write" {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestHistory_Empty(t *testing.T) {
	t.Parallel()

	var h History
	if _, ok := h.Last(); ok {
		t.Error("Last() on empty history should report false")
	}
	if h.NoProgressStreak() != 0 || h.TotalCost() != 0 {
		t.Error("empty history aggregates should be zero")
	}
	if h.Clone() != nil {
		t.Error("Clone() of nil history should be nil")
	}
}

func TestHistory_Clone(t *testing.T) {
	t.Parallel()

	h := History{{Action: "a", Bindings: []string{"x"}}}
	c := h.Clone()
	c[0].Bindings[0] = "y"
	c[0].Action = "b"
	if h[0].Bindings[0] != "x" || h[0].Action != "a" {
		t.Errorf("Clone() shares state with original: %+v", h[0])
	}
}
