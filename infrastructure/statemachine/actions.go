package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/goap/domain/process"
)

// FinishPayload carries the termination details with a terminal event.
type FinishPayload struct {
	Termination process.Termination
}

// startProcess moves the aggregate to RUNNING.
// In statekit, actions receive a pointer to the context, so *Context arrives as **Context.
func startProcess(ctx **Context, _ statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Process == nil {
		return
	}
	c := *ctx
	c.err = c.Process.Start()
}

// finishProcess records the termination on the aggregate.
func finishProcess(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Process == nil {
		return
	}
	c := *ctx

	payload, ok := event.Payload.(FinishPayload)
	if !ok {
		payload = FinishPayload{Termination: process.Termination{Status: StatusFor(event.Type), PlanLength: -1}}
	}
	if payload.Termination.Status == "" {
		payload.Termination.Status = StatusFor(event.Type)
	}
	if err := c.Process.Finish(payload.Termination); err != nil {
		c.err = fmt.Errorf("finish %s: %w", c.Process.ID, err)
	}
}
