package renderer

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dynamik/graphics"
)

func TestQueueBlocksAtCapacity(t *testing.T) {
	q := NewCommandQueue(0)
	require.Equal(t, MaxCommandsInFlight, q.Cap())
	ctx := context.Background()
	for i := 0; i < q.Cap(); i++ {
		_, err := q.Push(ctx, SetSamples{Samples: uint32(i)})
		require.NoError(t, err)
	}
	require.Equal(t, q.Cap(), q.Len())

	pushed := make(chan error, 1)
	go func() {
		_, err := q.Push(ctx, Sync{})
		pushed <- err
	}()
	select {
	case <-pushed:
		t.Fatal("push into a full queue returned")
	case <-time.After(50 * time.Millisecond):
	}

	cmd, ticket, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, SetSamples{Samples: 0}, cmd)
	assert.Equal(t, StatePending, ticket.State())

	select {
	case err := <-pushed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("push did not resume after pop")
	}
	assert.Equal(t, q.Cap(), q.Len())
}

func TestQueueIsFIFO(t *testing.T) {
	q := NewCommandQueue(3)
	ctx := context.Background()
	for i := uint32(1); i <= 3; i++ {
		_, err := q.Push(ctx, SetSamples{Samples: i})
		require.NoError(t, err)
	}
	for i := uint32(1); i <= 3; i++ {
		cmd, _, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, SetSamples{Samples: i}, cmd)
	}
	_, _, ok := q.TryPop()
	assert.False(t, ok)
}

func TestQueuePushHonorsContext(t *testing.T) {
	q := NewCommandQueue(1)
	_, err := q.Push(context.Background(), Sync{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = q.Push(ctx, Sync{})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, q.Len())
}

func TestQueueCloseInvalidatesAndReleases(t *testing.T) {
	q := NewCommandQueue(1)
	ctx := context.Background()
	queued, err := q.Push(ctx, Sync{})
	require.NoError(t, err)

	blocked := make(chan error, 1)
	go func() {
		_, err := q.Push(ctx, Reset{})
		blocked <- err
	}()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, q.Close())
	assert.Equal(t, StateInvalid, queued.State())
	assert.True(t, errors.Is(queued.Wait(ctx), graphics.ErrQueueClosed))

	select {
	case err := <-blocked:
		assert.True(t, errors.Is(err, graphics.ErrQueueClosed))
	case <-time.After(time.Second):
		t.Fatal("blocked producer not released by Close")
	}

	_, err = q.Push(ctx, Sync{})
	assert.True(t, errors.Is(err, graphics.ErrQueueClosed))
	assert.Zero(t, q.Close())
}

func TestTicketStates(t *testing.T) {
	ok := newTicket(InstructionSync)
	ok.begin()
	assert.Equal(t, StateExecuting, ok.State())
	ok.finish(nil)
	assert.Equal(t, StateSuccess, ok.State())
	assert.NoError(t, ok.Wait(context.Background()))

	failed := newTicket(InstructionSubmitEntity)
	failed.finish(errors.New("upload failed"))
	assert.Equal(t, StateFailed, failed.State())
	assert.EqualError(t, failed.Wait(context.Background()), "upload failed")

	pending := newTicket(InstructionSync)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pending.Wait(ctx), context.Canceled)
	assert.Equal(t, "Pending", pending.State().String())
}

func TestInstructionCategories(t *testing.T) {
	assert.Equal(t, CategorySync, Sync{}.Instruction().Category())
	assert.Equal(t, CategoryReset, Reset{}.Instruction().Category())
	assert.Equal(t, CategoryTerminate, Terminate{}.Instruction().Category())
	assert.Equal(t, CategorySystem, SubmitLevel{}.Instruction().Category())
	assert.Equal(t, CategoryTerminate, RawInstruction{Raw: InstructionTerminate}.Instruction().Category())
	assert.Equal(t, "ReloadShader", InstructionReloadShader.String())
	assert.Equal(t, "Instruction(99)", Instruction(99).String())
}
