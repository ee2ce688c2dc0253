package config

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/goap/domain/condition"
)

func TestConditionValue_YAML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  condition.Determination
	}{
		{"x: true", condition.True},
		{"x: false", condition.False},
		{"x: \"true\"", condition.True},
		{"x: unknown", condition.Unknown},
		{"x: no", condition.False},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			var m map[string]ConditionValue
			if err := yaml.Unmarshal([]byte(tt.input), &m); err != nil {
				t.Fatalf("yaml.Unmarshal() error = %v", err)
			}
			if got := m["x"].Determination(); got != tt.want {
				t.Errorf("Determination() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConditionValue_JSON(t *testing.T) {
	t.Parallel()

	var m map[string]ConditionValue
	if err := json.Unmarshal([]byte(`{"a":true,"b":"false","c":"unknown"}`), &m); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	got := Conditions(m)
	if got["a"] != condition.True || got["b"] != condition.False || got["c"] != condition.Unknown {
		t.Errorf("Conditions() = %v", got)
	}

	out, err := json.Marshal(map[string]ConditionValue{"a": ConditionValue(condition.True)})
	if err != nil || string(out) != `{"a":true}` {
		t.Errorf("json.Marshal() = %s, %v", out, err)
	}

	if err := json.Unmarshal([]byte(`{"a":3}`), &m); !errors.Is(err, condition.ErrInvalidDetermination) {
		t.Errorf("json.Unmarshal(number) error = %v, want ErrInvalidDetermination", err)
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	var cfg struct {
		D Duration `json:"d" yaml:"d"`
	}
	if err := yaml.Unmarshal([]byte("d: 1500ms"), &cfg); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if cfg.D.Duration() != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", cfg.D.Duration())
	}
	if err := json.Unmarshal([]byte(`{"d":"2s"}`), &cfg); err != nil || cfg.D.Duration() != 2*time.Second {
		t.Errorf("json.Unmarshal() = %v, %v", cfg.D.Duration(), err)
	}
	out, _ := json.Marshal(cfg)
	if string(out) != `{"d":"2s"}` {
		t.Errorf("json.Marshal() = %s", out)
	}
}

func TestDocument_YAML(t *testing.T) {
	t.Parallel()

	doc := `
name: deploy
version: "1"
process:
  goal: shipped
  planner: astar
  show_planning: true
budget:
  actions: 3
domain:
  bindings:
    region: eu
  actions:
    - name: build
      effects: {built: true}
      cost: 0.5
      bindings: {artifact: app.tar}
    - name: ship
      pre: {built: true}
      effects: {shipped: true}
      timeout: 2s
  goals:
    - name: shipped
      pre: {shipped: true}
      value: 10
`
	var cfg Config
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if cfg.Budget.Actions == nil || *cfg.Budget.Actions != 3 || cfg.Budget.Cost != nil {
		t.Errorf("Budget = %+v, want only actions set", cfg.Budget)
	}
	if len(cfg.Domain.Actions) != 2 || cfg.Domain.Actions[1].Timeout.Duration() != 2*time.Second {
		t.Errorf("Actions = %+v", cfg.Domain.Actions)
	}
	if cfg.Domain.Actions[1].Preconditions["built"].Determination() != condition.True {
		t.Error("ship precondition built should be TRUE")
	}
	if errs := NewValidator().Validate(&cfg); errs.HasErrors() {
		t.Errorf("Validate() = %v", errs)
	}
}
