package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/goap/domain/process"
)

// guardRunning allows terminal events only while the aggregate is running.
// Guards receive the context by value; since ours is *Context, it arrives as *Context.
func guardRunning(ctx *Context, _ statekit.Event) bool {
	return ctx != nil && ctx.Process != nil && ctx.Process.Status == process.StatusRunning
}

// guardMatchesStatus rejects payloads whose status disagrees with the event.
func guardMatchesStatus(_ *Context, event statekit.Event) bool {
	payload, ok := event.Payload.(FinishPayload)
	if !ok || payload.Termination.Status == "" {
		return true
	}
	return payload.Termination.Status == StatusFor(event.Type)
}
