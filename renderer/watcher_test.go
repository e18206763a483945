package renderer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dynamik/graphics"
)

func TestReloadCommand(t *testing.T) {
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"write", fsnotify.Event{Name: "shaders/a.spv", Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: "shaders/a.SPV", Op: fsnotify.Create}, true},
		{"chmod", fsnotify.Event{Name: "shaders/a.spv", Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: "shaders/a.spv", Op: fsnotify.Remove}, false},
		{"source", fsnotify.Event{Name: "shaders/a.vert", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := reloadCommand(tt.ev)
			assert.Equal(t, tt.want, ok)
			if ok {
				assert.Equal(t, filepath.Clean(tt.ev.Name), cmd.Path)
			}
		})
	}
}

type submitFunc func(ctx context.Context, cmd Command) (*Ticket, error)

func (f submitFunc) Submit(ctx context.Context, cmd Command) (*Ticket, error) { return f(ctx, cmd) }

func TestShaderWatcherSubmitsReloads(t *testing.T) {
	dir := t.TempDir()
	got := make(chan Command, 16)
	w, err := NewShaderWatcher(dir, submitFunc(func(_ context.Context, cmd Command) (*Ticket, error) {
		got <- cmd
		return newTicket(cmd.Instruction()), nil
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	path := filepath.Join(dir, "mesh.frag.spv")
	require.NoError(t, os.WriteFile(path, []byte{3, 2, 35, 7}, 0o644))

	select {
	case cmd := <-got:
		assert.Equal(t, ReloadShader{Path: path}, cmd)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload submitted")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestShaderWatcherStopsWhenQueueCloses(t *testing.T) {
	dir := t.TempDir()
	w, err := NewShaderWatcher(dir, submitFunc(func(context.Context, Command) (*Ticket, error) {
		return nil, errors.Wrap(graphics.ErrQueueClosed, "ReloadShader")
	}))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.spv"), []byte{0, 0, 0, 0}, 0o644))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher kept running after the queue closed")
	}
}

func TestShaderWatcherMissingDirectory(t *testing.T) {
	_, err := NewShaderWatcher(filepath.Join(t.TempDir(), "missing"), submitFunc(nil))
	assert.Error(t, err)
}
