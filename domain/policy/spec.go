package policy

import (
	"fmt"
	"time"
)

// Spec describes a policy by name, as read from configuration.
type Spec struct {
	Name     string        `json:"name" yaml:"name"`
	Limit    float64       `json:"limit,omitempty" yaml:"limit,omitempty"`
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// FromSpec resolves a named policy.
func FromSpec(s Spec) (Policy, error) {
	switch s.Name {
	case NameMaxCost:
		return MaxCost(s.Limit), nil
	case NameMaxActions:
		return MaxActions(int(s.Limit)), nil
	case NameMaxTokens:
		return MaxTokens(int(s.Limit)), nil
	case NameNoProgress:
		return NoProgress(int(s.Limit)), nil
	case NameMaxDuration:
		return MaxDuration(s.Duration), nil
	case NameNever:
		return Never(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, s.Name)
	}
}
