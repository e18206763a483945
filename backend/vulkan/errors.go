package vulkan

import (
	"log/slog"

	"github.com/pkg/errors"

	"dynamik/graphics"
)

var (
	// ErrSwapchainOutOfDate is returned by acquire and present when the
	// render target has to be resized before the next frame.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")

	ErrNoSuitableDevice = errors.New("no suitable physical device")
	ErrNoMemoryType     = errors.New("no suitable memory type")
	ErrDestroyed        = errors.New("object already destroyed")
)

type lifecycle int

const (
	lifecycleCreated lifecycle = iota
	lifecycleInitialized
	lifecycleTerminated
)

// beginInitialize reports whether Initialize should proceed. A second
// Initialize warns and is ignored.
func (s lifecycle) beginInitialize(what string) (bool, error) {
	switch s {
	case lifecycleInitialized:
		graphics.Logger().Warn(what+" already initialized", slog.String("object", what))
		return false, nil
	case lifecycleTerminated:
		graphics.Logger().Warn("initialize on terminated "+what, slog.String("object", what))
		return false, errors.Wrap(graphics.ErrTerminated, what)
	}
	return true, nil
}

func (s lifecycle) beginTerminate(what string) error {
	switch s {
	case lifecycleCreated:
		graphics.Logger().Warn("terminate on uninitialized "+what, slog.String("object", what))
		return errors.Wrap(graphics.ErrNotInitialized, what)
	case lifecycleTerminated:
		graphics.Logger().Warn(what+" terminated twice", slog.String("object", what))
		return errors.Wrap(graphics.ErrTerminated, what)
	}
	return nil
}

func (s lifecycle) usable(what string) error {
	switch s {
	case lifecycleCreated:
		return errors.Wrap(graphics.ErrNotInitialized, what)
	case lifecycleTerminated:
		graphics.Logger().Warn("use of terminated "+what, slog.String("object", what))
		return errors.Wrap(graphics.ErrTerminated, what)
	}
	return nil
}

// nativeError wraps a failed native call and logs it.
func nativeError(call string, err error) error {
	graphics.Logger().Error("native call failed", slog.String("call", call), slog.Any("err", err))
	return errors.Wrap(err, call)
}
