// Package statemachine provides the statekit integration for the process lifecycle.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/goap/domain/process"
)

// Context carries the process aggregate through the state machine.
type Context struct {
	Process *process.Process

	// err holds the last error raised by a machine action. statekit actions
	// cannot return errors, so the interpreter reads it after each Send.
	err error
}

// NewContext creates a new machine context.
func NewContext(p *process.Process) *Context {
	return &Context{Process: p}
}

// Event types.
const (
	EventStart     statekit.EventType = "START"
	EventComplete  statekit.EventType = "COMPLETE"
	EventStick     statekit.EventType = "STICK"
	EventFail      statekit.EventType = "FAIL"
	EventTerminate statekit.EventType = "TERMINATE"
)

const (
	stateCreated         statekit.StateID = statekit.StateID(process.StatusCreated)
	stateRunning         statekit.StateID = statekit.StateID(process.StatusRunning)
	stateCompleted       statekit.StateID = statekit.StateID(process.StatusCompleted)
	stateStuck           statekit.StateID = statekit.StateID(process.StatusStuck)
	stateFailed          statekit.StateID = statekit.StateID(process.StatusFailed)
	stateTerminatedEarly statekit.StateID = statekit.StateID(process.StatusTerminatedEarly)
)

// NewProcessMachine creates the process lifecycle statechart.
func NewProcessMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("process").
		WithInitial(stateCreated).
		WithContext(&Context{}).
		WithAction("start", startProcess).
		WithAction("finish", finishProcess).
		WithGuard("isRunning", guardRunning).
		WithGuard("matchesStatus", guardMatchesStatus).
		State(stateCreated).
			On(EventStart).Target(stateRunning).Do("start").
			Done().
		State(stateRunning).
			On(EventComplete).Target(stateCompleted).Guard("isRunning").Guard("matchesStatus").Do("finish").
			On(EventStick).Target(stateStuck).Guard("isRunning").Guard("matchesStatus").Do("finish").
			On(EventFail).Target(stateFailed).Guard("isRunning").Guard("matchesStatus").Do("finish").
			On(EventTerminate).Target(stateTerminatedEarly).Guard("isRunning").Guard("matchesStatus").Do("finish").
			Done().
		State(stateCompleted).
			Final().
			Done().
		State(stateStuck).
			Final().
			Done().
		State(stateFailed).
			Final().
			Done().
		State(stateTerminatedEarly).
			Final().
			Done().
		Build()
}

// EventFor returns the event that moves a running process to status.
func EventFor(status process.Status) statekit.EventType {
	switch status {
	case process.StatusRunning:
		return EventStart
	case process.StatusCompleted:
		return EventComplete
	case process.StatusStuck:
		return EventStick
	case process.StatusFailed:
		return EventFail
	case process.StatusTerminatedEarly:
		return EventTerminate
	default:
		return statekit.EventType(status)
	}
}

// StatusFor returns the terminal status an event leads to.
func StatusFor(eventType statekit.EventType) process.Status {
	switch eventType {
	case EventStart:
		return process.StatusRunning
	case EventComplete:
		return process.StatusCompleted
	case EventStick:
		return process.StatusStuck
	case EventFail:
		return process.StatusFailed
	case EventTerminate:
		return process.StatusTerminatedEarly
	default:
		return process.Status(eventType)
	}
}
