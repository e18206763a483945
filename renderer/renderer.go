// Package renderer runs the render loop on a dedicated OS thread and feeds it
// typed commands through a bounded queue.
package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/loov/hrtime"
	"github.com/pkg/errors"

	"dynamik/graphics"
)

// Backend owns every GPU object. All methods are called from the renderer
// goroutine only.
type Backend interface {
	// Initialize runs when the renderer starts and again after a Reset.
	Initialize() error
	// Execute runs one system command.
	Execute(cmd Command) error
	// Present draws one frame. It is called once per loop iteration whether
	// or not a command was processed.
	Present() error
	Terminate() error
}

// RunState is the renderer's state machine.
type RunState int32

const (
	RunStateUninitialized RunState = iota
	RunStateRunning
	RunStateResetting
	RunStateTerminated
)

func (s RunState) String() string {
	switch s {
	case RunStateUninitialized:
		return "Uninitialized"
	case RunStateRunning:
		return "Running"
	case RunStateResetting:
		return "Resetting"
	case RunStateTerminated:
		return "Terminated"
	}
	return fmt.Sprintf("RunState(%d)", int32(s))
}

type Options struct {
	// QueueCapacity defaults to MaxCommandsInFlight.
	QueueCapacity int
	// FrameRate caps loop iterations per second. Zero runs unpaced.
	FrameRate int
}

// Renderer consumes commands on its own goroutine, locked to one OS thread
// for the lifetime of the backend.
type Renderer struct {
	backend  Backend
	queue    *CommandQueue
	interval time.Duration

	state     atomic.Int32
	frames    atomic.Uint64
	frameTime atomic.Int64
	started   atomic.Bool
	done      chan struct{}
	err       error
}

func New(backend Backend, opts Options) *Renderer {
	r := &Renderer{
		backend: backend,
		queue:   NewCommandQueue(opts.QueueCapacity),
		done:    make(chan struct{}),
	}
	if opts.FrameRate > 0 {
		r.interval = time.Second / time.Duration(opts.FrameRate)
	}
	return r
}

// Start launches the renderer goroutine. Calling it twice is a no-op.
func (r *Renderer) Start() {
	if !r.started.CompareAndSwap(false, true) {
		graphics.Logger().Warn("renderer already started")
		return
	}
	go r.run()
}

// Submit enqueues cmd, blocking while the queue is full.
func (r *Renderer) Submit(ctx context.Context, cmd Command) (*Ticket, error) {
	return r.queue.Push(ctx, cmd)
}

// Do submits cmd and waits for it to complete.
func (r *Renderer) Do(ctx context.Context, cmd Command) error {
	t, err := r.Submit(ctx, cmd)
	if err != nil {
		return err
	}
	return t.Wait(ctx)
}

// Stop enqueues Terminate and waits for the renderer goroutine to exit.
func (r *Renderer) Stop(ctx context.Context) error {
	if _, err := r.Submit(ctx, Terminate{}); err != nil && !errors.Is(err, graphics.ErrQueueClosed) {
		return err
	}
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the renderer goroutine has exited.
func (r *Renderer) Done() <-chan struct{} { return r.done }

// Err is the error the renderer exited with. Valid after Done is closed.
func (r *Renderer) Err() error { return r.err }

func (r *Renderer) State() RunState          { return RunState(r.state.Load()) }
func (r *Renderer) Queue() *CommandQueue     { return r.queue }
func (r *Renderer) Frames() uint64           { return r.frames.Load() }
func (r *Renderer) FrameTime() time.Duration { return time.Duration(r.frameTime.Load()) }

func (r *Renderer) setState(s RunState) {
	old := RunState(r.state.Swap(int32(s)))
	if old != s {
		graphics.Logger().Info("renderer state", slog.String("from", old.String()), slog.String("to", s.String()))
	}
}

func (r *Renderer) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.done)

	log := graphics.Logger()
	if err := r.backend.Initialize(); err != nil {
		log.Error("renderer initialization failed", slog.Any("err", err))
		r.shutdown(errors.Wrap(err, "initialize renderer"))
		return
	}
	r.setState(RunStateRunning)

	for {
		start := hrtime.Now()
		if cmd, ticket, ok := r.queue.TryPop(); ok {
			if !r.dispatch(cmd, ticket) {
				return
			}
		}
		if err := r.backend.Present(); err != nil {
			log.Error("present failed", slog.Any("err", err))
		}
		r.frames.Add(1)
		r.pace(start)
	}
}

// dispatch executes one command and reports whether the loop continues.
func (r *Renderer) dispatch(cmd Command, ticket *Ticket) bool {
	log := graphics.Logger()
	ticket.begin()
	switch cmd.Instruction().Category() {
	case CategorySync:
		ticket.finish(nil)
	case CategoryReset:
		r.setState(RunStateResetting)
		if err := r.backend.Terminate(); err != nil {
			log.Warn("backend teardown before reset failed", slog.Any("err", err))
		}
		if err := r.backend.Initialize(); err != nil {
			err = errors.Wrap(err, "reinitialize renderer")
			log.Error("renderer reset failed", slog.Any("err", err))
			ticket.finish(err)
			r.shutdown(err)
			return false
		}
		r.setState(RunStateRunning)
		ticket.finish(nil)
	case CategoryTerminate:
		err := r.backend.Terminate()
		if err != nil {
			log.Error("backend teardown failed", slog.Any("err", err))
		}
		r.shutdown(err)
		ticket.finish(err)
		return false
	default:
		err := r.backend.Execute(cmd)
		if err != nil {
			log.Error("renderer command failed",
				slog.String("instruction", cmd.Instruction().String()),
				slog.Any("err", err))
		}
		ticket.finish(err)
	}
	return true
}

// shutdown records err as the exit error, marks the renderer terminated and
// invalidates the commands left in the queue.
func (r *Renderer) shutdown(err error) {
	r.err = err
	r.setState(RunStateTerminated)
	if n := r.queue.Close(); n > 0 {
		graphics.Logger().Warn("dropped queued renderer commands", slog.Int("count", n))
	}
}

func (r *Renderer) pace(start time.Duration) {
	elapsed := hrtime.Since(start)
	if r.interval > 0 && elapsed < r.interval {
		time.Sleep(r.interval - elapsed)
	}
	r.frameTime.Store(int64(hrtime.Since(start)))
}
