package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/goap/domain/action"
	"github.com/felixgeelhaar/goap/domain/blackboard"
	"github.com/felixgeelhaar/goap/domain/condition"
)

func tracing(name string, trail *[]string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, ec *ExecutionContext) (action.Result, error) {
			*trail = append(*trail, name+":before")
			res, err := next(ctx, ec)
			*trail = append(*trail, name+":after")
			return res, err
		}
	}
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var trail []string
	final := func(context.Context, *ExecutionContext) (action.Result, error) {
		trail = append(trail, "handler")
		return action.Result{}, nil
	}

	h := Chain(tracing("a", &trail), nil, tracing("b", &trail))(final)
	if _, err := h(context.Background(), &ExecutionContext{}); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	want := []string{"a:before", "b:before", "handler", "b:after", "a:after"}
	if len(trail) != len(want) {
		t.Fatalf("trail = %v, want %v", trail, want)
	}
	for i := range want {
		if trail[i] != want[i] {
			t.Errorf("trail[%d] = %s, want %s", i, trail[i], want[i])
		}
	}
}

func TestPerform(t *testing.T) {
	t.Parallel()

	act := action.NewBuilder("echo").Produces("echoed", condition.True).
		WithPerformer(func(_ context.Context, bb *blackboard.Blackboard) (action.Result, error) {
			v, _ := bb.Lookup("in")
			return action.Result{Bindings: blackboard.Bindings{blackboard.Bind("out", v)}, Tokens: 7}, nil
		}).MustBuild()

	bb := blackboard.NewWith(blackboard.Bindings{blackboard.Bind("in", "x")})
	res, err := Noop()(Perform)(context.Background(), &ExecutionContext{Action: act, Blackboard: bb})
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if res.Tokens != 7 || len(res.Bindings) != 1 || res.Bindings[0].Value != "x" {
		t.Errorf("Perform() = %+v", res)
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	var trail []string
	r := NewRegistry().Use(tracing("first", &trail))
	clone := r.Clone().Use(tracing("second", &trail))

	if r.Len() != 1 || clone.Len() != 2 {
		t.Errorf("Len() = %d/%d, want 1/2", r.Len(), clone.Len())
	}

	boom := errors.New("boom")
	h := clone.Handler(func(context.Context, *ExecutionContext) (action.Result, error) {
		return action.Result{}, boom
	})
	if _, err := h(context.Background(), &ExecutionContext{}); !errors.Is(err, boom) {
		t.Errorf("handler error = %v, want boom", err)
	}
	if len(trail) != 4 {
		t.Errorf("trail = %v", trail)
	}

	empty := NewRegistry()
	called := false
	_, _ = empty.Handler(func(context.Context, *ExecutionContext) (action.Result, error) {
		called = true
		return action.Result{}, nil
	})(context.Background(), &ExecutionContext{})
	if !called {
		t.Error("empty registry must call final handler")
	}
}
