package renderer

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"dynamik/graphics"
)

// ShaderExtension is the suffix of files the watcher reacts to.
const ShaderExtension = ".spv"

// Submitter accepts renderer commands. *Renderer implements it.
type Submitter interface {
	Submit(ctx context.Context, cmd Command) (*Ticket, error)
}

// ShaderWatcher turns changes to compiled shaders in a directory into
// ReloadShader commands.
type ShaderWatcher struct {
	dir     string
	watcher *fsnotify.Watcher
	sink    Submitter
}

func NewShaderWatcher(dir string, sink Submitter) (*ShaderWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "shader watcher")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "watch %s", dir)
	}
	graphics.Logger().Info("watching shaders", slog.String("dir", dir))
	return &ShaderWatcher{dir: dir, watcher: w, sink: sink}, nil
}

// Run forwards reload commands until ctx is done or the renderer stops
// accepting commands. The watcher is closed on return.
func (w *ShaderWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	log := graphics.Logger()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			cmd, ok := reloadCommand(ev)
			if !ok {
				continue
			}
			log.Debug("shader changed", slog.String("path", cmd.Path), slog.String("op", ev.Op.String()))
			if _, err := w.sink.Submit(ctx, cmd); err != nil {
				if errors.Is(err, graphics.ErrQueueClosed) || ctx.Err() != nil {
					return nil
				}
				return err
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("shader watcher error", slog.Any("err", err))
		}
	}
}

// reloadCommand maps a write or create of a shader file to a reload.
func reloadCommand(ev fsnotify.Event) (ReloadShader, bool) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return ReloadShader{}, false
	}
	if !strings.EqualFold(filepath.Ext(ev.Name), ShaderExtension) {
		return ReloadShader{}, false
	}
	return ReloadShader{Path: filepath.Clean(ev.Name)}, true
}
