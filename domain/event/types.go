package event

import "time"

// Type classifies events.
type Type string

// Observation event types.
const (
	TypeProcessStarted    Type = "process.started"
	TypePlanComputed      Type = "plan.computed"
	TypeActionStarted     Type = "action.started"
	TypeActionFinished    Type = "action.finished"
	TypeProcessTerminated Type = "process.terminated"
)

// Types returns every observation event type in emission order.
func Types() []Type {
	return []Type{
		TypeProcessStarted,
		TypePlanComputed,
		TypeActionStarted,
		TypeActionFinished,
		TypeProcessTerminated,
	}
}

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// ProcessStartedPayload is the payload of process.started.
type ProcessStartedPayload struct {
	Goal     string   `json:"goal"`
	Actions  []string `json:"actions"`
	Budget   Budget   `json:"budget"`
	Bindings []string `json:"bindings,omitempty"`
}

// Budget mirrors the budget ceilings in event payloads.
type Budget struct {
	Cost    float64 `json:"cost"`
	Actions int     `json:"actions"`
	Tokens  int     `json:"tokens"`
}

// PlanComputedPayload is the payload of plan.computed.
type PlanComputedPayload struct {
	Step       int               `json:"step"`
	Found      bool              `json:"found"`
	Actions    []string          `json:"actions,omitempty"`
	Cost       float64           `json:"cost"`
	WorldState map[string]string `json:"world_state"`
	Duration   time.Duration     `json:"duration"`
}

// ActionStartedPayload is the payload of action.started.
type ActionStartedPayload struct {
	Step   int     `json:"step"`
	Action string  `json:"action"`
	Cost   float64 `json:"cost"`
}

// ActionFinishedPayload is the payload of action.finished.
type ActionFinishedPayload struct {
	Step     int           `json:"step"`
	Action   string        `json:"action"`
	Duration time.Duration `json:"duration"`
	Bindings []string      `json:"bindings,omitempty"`
	Tokens   int           `json:"tokens,omitempty"`
	Progress bool          `json:"progress"`
	Error    string        `json:"error,omitempty"`
}

// ProcessTerminatedPayload is the payload of process.terminated.
type ProcessTerminatedPayload struct {
	Status     string        `json:"status"`
	Reason     string        `json:"reason"`
	Policy     string        `json:"policy,omitempty"`
	Dimension  string        `json:"dimension,omitempty"`
	LastAction string        `json:"last_action,omitempty"`
	PlanLength int           `json:"plan_length"`
	Actions    int           `json:"actions"`
	Cost       float64       `json:"cost"`
	Tokens     int           `json:"tokens"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}
