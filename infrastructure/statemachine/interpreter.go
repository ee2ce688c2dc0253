package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/goap/domain/process"
)

// Interpreter wraps the statekit interpreter with process-specific functionality.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates a new interpreter for the process state machine.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// New builds the process machine and an interpreter bound to p.
func New(p *process.Process) (*Interpreter, error) {
	machine, err := NewProcessMachine()
	if err != nil {
		return nil, fmt.Errorf("build process machine: %w", err)
	}
	return NewInterpreter(machine, NewContext(p)), nil
}

// Start enters the initial state and moves the process to RUNNING.
func (i *Interpreter) Start() error {
	i.interp.Start()
	return i.send(statekit.Event{Type: EventStart}, process.StatusRunning)
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current status according to the machine.
func (i *Interpreter) State() process.Status {
	return process.Status(i.interp.State().Value)
}

// Finish moves the running process to the terminal status in t.
func (i *Interpreter) Finish(t process.Termination) error {
	if !t.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is not terminal", process.ErrInvalidTransition, t.Status)
	}
	return i.send(statekit.Event{Type: EventFor(t.Status), Payload: FinishPayload{Termination: t}}, t.Status)
}

func (i *Interpreter) send(event statekit.Event, want process.Status) error {
	from := i.State()
	i.ctx.err = nil
	i.interp.Send(event)
	if err := i.ctx.err; err != nil {
		return err
	}
	if got := i.State(); got != want {
		return fmt.Errorf("%w: %s -> %s", process.ErrInvalidTransition, from, want)
	}
	return nil
}

// IsTerminal returns true if the interpreter is in a final state.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Matches checks if the current state matches the given status.
func (i *Interpreter) Matches(status process.Status) bool {
	return i.interp.Matches(statekit.StateID(status))
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}
