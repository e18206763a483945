package vulkan

import (
	"log/slog"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"

	"dynamik/graphics"
)

const engineName = "Dynamik"

// ValidationLayers is the default layer list enabled with validation.
var ValidationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// Window provides the surface a Display presents to.
type Window interface {
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	// FramebufferSize is the drawable size in pixels.
	FramebufferSize() (width, height uint32)
}

type InstanceConfig struct {
	ApplicationName string
	// Extensions are the instance extensions the window system needs.
	Extensions []string
	Validation bool
	// Layers defaults to ValidationLayers when validation is enabled.
	Layers []string
}

// Instance is the root of the ownership tree. It owns every Display created
// from it and destroys them before itself.
type Instance struct {
	driver    Driver
	handle    vk.Instance
	layers    []string
	displays  []*Display
	destroyed bool
}

func NewInstance(driver Driver, cfg InstanceConfig) (*Instance, error) {
	log := graphics.Logger()
	available, err := driver.InstanceExtensions()
	if err != nil {
		return nil, nativeError("vkEnumerateInstanceExtensionProperties", err)
	}
	if miss := missing(cfg.Extensions, available); len(miss) > 0 {
		log.Error("instance extensions not supported", slog.Any("extensions", miss))
		return nil, errors.Wrapf(graphics.ErrUnsupported, "instance extensions %v", miss)
	}

	var layers []string
	if cfg.Validation {
		layers = cfg.Layers
		if len(layers) == 0 {
			layers = ValidationLayers
		}
		supported, err := driver.InstanceLayers()
		if err != nil {
			return nil, nativeError("vkEnumerateInstanceLayerProperties", err)
		}
		if miss := missing(layers, supported); len(miss) > 0 {
			log.Error("validation layers not supported", slog.Any("layers", miss))
			return nil, errors.Wrapf(graphics.ErrUnsupported, "validation layers %v", miss)
		}
	}

	info := &vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   trimNul(cfg.ApplicationName) + "\x00",
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        engineName + "\x00",
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.MakeVersion(1, 3, 0),
		},
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: terminated(cfg.Extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     terminated(layers),
	}
	handle, err := driver.CreateInstance(info)
	if err != nil {
		return nil, nativeError("vkCreateInstance", err)
	}
	log.Info("created instance", slog.Bool("validation", cfg.Validation), slog.Any("extensions", cfg.Extensions))
	return &Instance{driver: driver, handle: handle, layers: layers}, nil
}

func (i *Instance) Handle() vk.Instance { return i.handle }
func (i *Instance) Driver() Driver      { return i.driver }

func (i *Instance) Displays() []*Display {
	return i.displays
}

// CreateDisplay creates a surface for the window.
func (i *Instance) CreateDisplay(w Window) (*Display, error) {
	if i.destroyed {
		return nil, errors.Wrap(ErrDestroyed, "instance")
	}
	surface, err := w.CreateSurface(i.handle)
	if err != nil {
		return nil, nativeError("vkCreateSurfaceKHR", err)
	}
	d := &Display{instance: i, window: w, surface: surface}
	i.displays = append(i.displays, d)
	graphics.Logger().Debug("created display surface")
	return d, nil
}

// Destroy tears down every display, and with it every device, before the
// instance itself.
func (i *Instance) Destroy() error {
	if i.destroyed {
		graphics.Logger().Warn("instance destroyed twice")
		return errors.Wrap(ErrDestroyed, "instance")
	}
	for len(i.displays) > 0 {
		if err := i.displays[len(i.displays)-1].Destroy(); err != nil {
			return err
		}
	}
	i.driver.DestroyInstance(i.handle)
	i.destroyed = true
	graphics.Logger().Info("destroyed instance")
	return nil
}

func (i *Instance) removeDisplay(d *Display) {
	for idx, o := range i.displays {
		if o == d {
			i.displays = append(i.displays[:idx], i.displays[idx+1:]...)
			return
		}
	}
}

// Display binds a window surface to an instance and owns at most one Device.
type Display struct {
	instance  *Instance
	window    Window
	surface   vk.Surface
	device    *Device
	destroyed bool
}

func (d *Display) Instance() *Instance { return d.instance }
func (d *Display) Window() Window      { return d.window }
func (d *Display) Surface() vk.Surface { return d.surface }
func (d *Display) Device() *Device     { return d.device }

// Destroy destroys the display's device first, then the surface.
func (d *Display) Destroy() error {
	if d.destroyed {
		graphics.Logger().Warn("display destroyed twice")
		return errors.Wrap(ErrDestroyed, "display")
	}
	if d.device != nil {
		if err := d.device.Destroy(); err != nil {
			return err
		}
	}
	d.instance.driver.DestroySurface(d.instance.handle, d.surface)
	d.instance.removeDisplay(d)
	d.destroyed = true
	graphics.Logger().Debug("destroyed display surface")
	return nil
}
