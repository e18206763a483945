package renderer

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"dynamik/graphics"
)

// MaxCommandsInFlight is the default capacity of a command queue.
const MaxCommandsInFlight = 10

type entry struct {
	cmd    Command
	ticket *Ticket
}

// CommandQueue is a bounded FIFO of renderer commands. Producers block while
// it is full; the renderer pops without blocking.
type CommandQueue struct {
	entries chan entry
	closed  chan struct{}
	once    sync.Once
	// senders holds a read lock while pushing so Close can wait for pushes
	// in progress before draining.
	senders sync.RWMutex
}

func NewCommandQueue(capacity int) *CommandQueue {
	if capacity <= 0 {
		capacity = MaxCommandsInFlight
	}
	return &CommandQueue{
		entries: make(chan entry, capacity),
		closed:  make(chan struct{}),
	}
}

// Push enqueues cmd, blocking while the queue is at capacity. It fails with
// ErrQueueClosed once the queue is closed and with ctx's error when ctx ends
// first.
func (q *CommandQueue) Push(ctx context.Context, cmd Command) (*Ticket, error) {
	q.senders.RLock()
	defer q.senders.RUnlock()
	select {
	case <-q.closed:
		return nil, errors.Wrap(graphics.ErrQueueClosed, cmd.Instruction().String())
	default:
	}

	e := entry{cmd: cmd, ticket: newTicket(cmd.Instruction())}
	select {
	case q.entries <- e:
		return e.ticket, nil
	case <-q.closed:
		return nil, errors.Wrap(graphics.ErrQueueClosed, cmd.Instruction().String())
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryPop removes the oldest command, if any.
func (q *CommandQueue) TryPop() (Command, *Ticket, bool) {
	select {
	case e := <-q.entries:
		return e.cmd, e.ticket, true
	default:
		return nil, nil, false
	}
}

func (q *CommandQueue) Len() int { return len(q.entries) }
func (q *CommandQueue) Cap() int { return cap(q.entries) }

// Close rejects further pushes, releases blocked producers and invalidates
// every command still queued. It returns the number of dropped commands.
func (q *CommandQueue) Close() int {
	q.once.Do(func() { close(q.closed) })
	q.senders.Lock()
	defer q.senders.Unlock()
	dropped := 0
	for {
		_, t, ok := q.TryPop()
		if !ok {
			return dropped
		}
		t.invalidate()
		dropped++
	}
}
