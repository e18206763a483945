package renderer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/pkg/errors"

	"dynamik/graphics"
)

// State of an enqueued command.
type State int32

const (
	StatePending State = iota
	StateExecuting
	StateSuccess
	StateFailed
	// StateInvalid marks a command dropped because the renderer terminated
	// before reaching it.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateExecuting:
		return "Executing"
	case StateSuccess:
		return "Success"
	case StateFailed:
		return "Failed"
	case StateInvalid:
		return "Invalid"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Ticket tracks one command from enqueue to completion.
type Ticket struct {
	instruction Instruction
	state       atomic.Int32
	err         error
	done        chan struct{}
}

func newTicket(i Instruction) *Ticket {
	return &Ticket{instruction: i, done: make(chan struct{})}
}

func (t *Ticket) Instruction() Instruction { return t.instruction }
func (t *Ticket) State() State             { return State(t.state.Load()) }

// Done is closed once the command succeeded, failed or was dropped.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Wait blocks until the command completes or ctx is done. It returns the
// command's error, or ErrQueueClosed for a dropped command.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Ticket) begin() { t.state.Store(int32(StateExecuting)) }

func (t *Ticket) finish(err error) {
	t.err = err
	if err != nil {
		t.state.Store(int32(StateFailed))
	} else {
		t.state.Store(int32(StateSuccess))
	}
	close(t.done)
}

func (t *Ticket) invalidate() {
	t.err = errors.Wrapf(graphics.ErrQueueClosed, "%s dropped", t.instruction)
	t.state.Store(int32(StateInvalid))
	close(t.done)
}
