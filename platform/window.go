// Package platform provides the SDL window the demo renders into.
package platform

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"

	vk "github.com/goki/vulkan"

	"dynamik/backend/vulkan"
	"dynamik/graphics"
)

// Window is an SDL window with a Vulkan surface. SDL calls other than
// CreateSurface and FramebufferSize must come from the main thread.
type Window struct {
	win *sdl.Window
}

var _ vulkan.Window = (*Window)(nil)

func NewWindow(title string, width, height int32) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, errors.Wrap(err, "initialize SDL")
	}
	win, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		width, height,
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE|sdl.WINDOW_VULKAN)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create SDL window")
	}
	graphics.Logger().Info("created window",
		slog.String("title", title),
		slog.Int("width", int(width)),
		slog.Int("height", int(height)),
		slog.String("sdl", SDLVersion()))
	return &Window{win: win}, nil
}

func SDLVersion() string {
	var v sdl.Version
	sdl.GetVersion(&v)
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ProcAddr is the loader entry point SDL resolved for the window.
func (w *Window) ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

// InstanceExtensions lists the instance extensions surface creation needs.
func (w *Window) InstanceExtensions() []string {
	return w.win.VulkanGetInstanceExtensions()
}

func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := w.win.VulkanCreateSurface(instance)
	if err != nil {
		return nil, errors.Wrap(err, "SDL_Vulkan_CreateSurface")
	}
	return vk.SurfaceFromPointer(uintptr(ptr)), nil
}

func (w *Window) FramebufferSize() (uint32, uint32) {
	width, height := w.win.VulkanGetDrawableSize()
	return uint32(width), uint32(height)
}

func (w *Window) Destroy() {
	if err := w.win.Destroy(); err != nil {
		graphics.Logger().Warn("failed to destroy window", slog.Any("err", err))
	}
	sdl.Quit()
}

type EventKind int

const (
	EventQuit EventKind = iota
	EventResized
	EventMinimized
	EventRestored
	EventKey
)

// Event is the subset of SDL events the demo reacts to.
type Event struct {
	Kind          EventKind
	Width, Height uint32
	Key           sdl.Keycode
}

// Poll drains pending SDL events.
func (w *Window) Poll() []Event {
	var out []Event
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		if e, ok := translate(ev); ok {
			out = append(out, e)
		}
	}
	return out
}

// Wait blocks until the next SDL event.
func (w *Window) Wait() {
	sdl.WaitEvent()
}

func translate(ev sdl.Event) (Event, bool) {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		return Event{Kind: EventQuit}, true
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_SIZE_CHANGED:
			return Event{Kind: EventResized, Width: uint32(e.Data1), Height: uint32(e.Data2)}, true
		case sdl.WINDOWEVENT_MINIMIZED:
			return Event{Kind: EventMinimized}, true
		case sdl.WINDOWEVENT_RESTORED:
			return Event{Kind: EventRestored}, true
		}
	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYUP {
			return Event{Kind: EventKey, Key: e.Keysym.Sym}, true
		}
	}
	return Event{}, false
}
