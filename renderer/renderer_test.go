package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dynamik/graphics"
	"dynamik/graphics/graphicstest"
)

type fakeBackend struct {
	mu         sync.Mutex
	events     []string
	initErrs   []error
	executeErr error
	presentErr error
}

func (b *fakeBackend) log(e string) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

func (b *fakeBackend) Initialize() error {
	b.log("initialize")
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.initErrs) == 0 {
		return nil
	}
	err := b.initErrs[0]
	b.initErrs = b.initErrs[1:]
	return err
}

func (b *fakeBackend) Execute(cmd Command) error {
	b.log(cmd.Instruction().String())
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.executeErr
}

func (b *fakeBackend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	// consecutive presents collapse into one event
	if n := len(b.events); n == 0 || b.events[n-1] != "present" {
		b.events = append(b.events, "present")
	}
	return b.presentErr
}

func (b *fakeBackend) Terminate() error {
	b.log("terminate")
	return nil
}

func (b *fakeBackend) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

func start(t *testing.T, b Backend) *Renderer {
	t.Helper()
	r := New(b, Options{FrameRate: 1000})
	r.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r.Stop(ctx)
	})
	return r
}

func do(t *testing.T, r *Renderer, cmd Command) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Do(ctx, cmd)
}

func TestCommandsAreFollowedByPresent(t *testing.T) {
	b := &fakeBackend{}
	r := New(b, Options{})
	ctx := context.Background()
	var tickets []*Ticket
	for _, cmd := range []Command{SetSamples{Samples: 4}, Sync{}, InitializeCamera{}, ResizeFrameBuffer{Width: 1, Height: 1}} {
		ticket, err := r.Submit(ctx, cmd)
		require.NoError(t, err)
		tickets = append(tickets, ticket)
	}
	r.Start()
	for _, ticket := range tickets {
		require.NoError(t, ticket.Wait(ctx))
		assert.Equal(t, StateSuccess, ticket.State())
	}
	require.NoError(t, r.Stop(ctx))

	assert.Equal(t, []string{
		"initialize",
		"SetSamples", "present",
		"InitializeCamera", "present",
		"ResizeFrameBuffer", "present",
		"terminate",
	}, b.Events())
	assert.Equal(t, RunStateTerminated, r.State())
	assert.GreaterOrEqual(t, r.Frames(), uint64(4))
}

func TestPresentRunsWithoutCommands(t *testing.T) {
	r := start(t, &fakeBackend{})
	require.Eventually(t, func() bool { return r.Frames() >= 3 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, RunStateRunning, r.State())
	assert.Positive(t, r.FrameTime())
}

func TestFailedCommandKeepsRunning(t *testing.T) {
	b := &fakeBackend{executeErr: errors.New("no device")}
	logs := graphicstest.CaptureLogs(t)
	r := start(t, b)

	err := do(t, r, SubmitEntity{})
	assert.EqualError(t, err, "no device")
	assert.Equal(t, 1, logs.Count(slog.LevelError))
	assert.Equal(t, RunStateRunning, r.State())
	assert.NoError(t, do(t, r, Sync{}))
}

func TestPresentErrorsAreLogged(t *testing.T) {
	b := &fakeBackend{presentErr: errors.New("device lost")}
	logs := graphicstest.CaptureLogs(t)
	r := start(t, b)

	require.Eventually(t, func() bool { return r.Frames() >= 2 }, 5*time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, logs.Count(slog.LevelError), 2)
	assert.Equal(t, RunStateRunning, r.State())
}

func TestResetReinitializes(t *testing.T) {
	b := &fakeBackend{}
	r := start(t, b)

	require.NoError(t, do(t, r, Reset{}))
	assert.Equal(t, RunStateRunning, r.State())
	assert.Equal(t, []string{"initialize", "terminate", "initialize"}, withoutPresents(b.Events()))
}

func TestFailedResetTerminates(t *testing.T) {
	b := &fakeBackend{initErrs: []error{nil, errors.New("device lost")}}
	r := New(b, Options{})
	ctx := context.Background()
	reset, err := r.Submit(ctx, Reset{})
	require.NoError(t, err)
	after, err := r.Submit(ctx, Sync{})
	require.NoError(t, err)
	r.Start()

	<-r.Done()
	assert.Error(t, reset.Wait(ctx))
	assert.Equal(t, StateFailed, reset.State())
	assert.Equal(t, StateInvalid, after.State())
	assert.Equal(t, RunStateTerminated, r.State())
	assert.Error(t, r.Err())
}

func TestTerminateInvalidatesQueuedCommands(t *testing.T) {
	b := &fakeBackend{}
	r := New(b, Options{})
	ctx := context.Background()
	term, err := r.Submit(ctx, RawInstruction{Raw: InstructionTerminate})
	require.NoError(t, err)
	var dropped []*Ticket
	for i := 0; i < 3; i++ {
		ticket, err := r.Submit(ctx, SetSamples{Samples: 2})
		require.NoError(t, err)
		dropped = append(dropped, ticket)
	}
	r.Start()

	require.NoError(t, term.Wait(ctx))
	<-r.Done()
	for _, ticket := range dropped {
		assert.Equal(t, StateInvalid, ticket.State())
		assert.True(t, errors.Is(ticket.Wait(ctx), graphics.ErrQueueClosed))
	}
	assert.Equal(t, []string{"initialize", "terminate"}, b.Events())

	_, err = r.Submit(ctx, Sync{})
	assert.True(t, errors.Is(err, graphics.ErrQueueClosed))
	assert.NoError(t, r.Stop(ctx))
}

func TestInitializeFailure(t *testing.T) {
	b := &fakeBackend{initErrs: []error{errors.New("no vulkan")}}
	r := New(b, Options{})
	queued, err := r.Submit(context.Background(), Sync{})
	require.NoError(t, err)
	r.Start()
	r.Start()

	<-r.Done()
	assert.EqualError(t, r.Err(), "initialize renderer: no vulkan")
	assert.Equal(t, StateInvalid, queued.State())
	assert.Equal(t, RunStateTerminated, r.State())
	assert.Zero(t, r.Frames())
}

func TestConcurrentProducers(t *testing.T) {
	b := &fakeBackend{}
	r := New(b, Options{QueueCapacity: 2})
	r.Start()
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				assert.NoError(t, r.Do(ctx, SetSamples{Samples: uint32(p*10 + i)}))
			}
		}(p)
	}
	wg.Wait()
	require.NoError(t, r.Stop(ctx))

	n := 0
	for _, e := range b.Events() {
		if e == "SetSamples" {
			n++
		}
	}
	assert.Equal(t, 20, n)
}

func withoutPresents(events []string) []string {
	var out []string
	for _, e := range events {
		if e != "present" {
			out = append(out, e)
		}
	}
	return out
}

func TestRunStateString(t *testing.T) {
	for s, want := range map[RunState]string{
		RunStateUninitialized: "Uninitialized",
		RunStateResetting:     "Resetting",
		RunState(9):           "RunState(9)",
	} {
		assert.Equal(t, want, s.String(), fmt.Sprint(int32(s)))
	}
}
