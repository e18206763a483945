package vulkan

import (
	"log/slog"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"

	"dynamik/graphics"
)

// DefaultDeviceExtensions are required of every device that presents.
var DefaultDeviceExtensions = []string{"VK_KHR_swapchain"}

type DeviceConfig struct {
	// Extensions defaults to DefaultDeviceExtensions.
	Extensions []string
	// PreferDiscrete picks a discrete GPU when one is suitable.
	PreferDiscrete bool
	// StagingLimit caps the size of one staging upload in bytes. Larger
	// writes are split. Zero means no limit.
	StagingLimit uint64
}

// Device is the logical device of a Display with its graphics and present
// queues and the command pool used for transfers.
type Device struct {
	driver   Driver
	display  *Display
	physical PhysicalDeviceInfo
	queues   QueueFamilyIndices

	handle        vk.Device
	graphicsQueue vk.Queue
	presentQueue  vk.Queue
	commandPool   vk.CommandPool
	stagingLimit  uint64
	destroyed     bool
}

// CreateDevice selects a physical device able to present to the display and
// creates the logical device. A display owns at most one device.
func (d *Display) CreateDevice(cfg DeviceConfig) (*Device, error) {
	log := graphics.Logger()
	if d.destroyed {
		return nil, errors.Wrap(ErrDestroyed, "display")
	}
	if d.device != nil {
		log.Error("display already owns a device")
		return nil, graphics.ErrDeviceExists
	}
	driver := d.instance.driver
	extensions := cfg.Extensions
	if extensions == nil {
		extensions = DefaultDeviceExtensions
	}

	physical, err := selectPhysicalDevice(driver, d.instance.handle, d.surface, extensions, cfg.PreferDiscrete)
	if err != nil {
		log.Error("failed to select physical device", slog.Any("err", err))
		return nil, err
	}
	queues, _ := findQueueFamilies(physical.QueueFamilies)
	log.Info("selected physical device", slog.String("name", physical.Name),
		slog.Uint64("graphics_family", uint64(queues.Graphics)), slog.Uint64("present_family", uint64(queues.Present)))

	features := vk.PhysicalDeviceFeatures{SamplerAnisotropy: physical.Features.SamplerAnisotropy}
	queueInfos := queues.queueCreateInfos()
	layers := d.instance.layers
	info := &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     terminated(layers),
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: terminated(extensions),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
	}
	handle, err := driver.CreateDevice(physical.Handle, info)
	if err != nil {
		return nil, nativeError("vkCreateDevice", err)
	}
	pool, err := driver.CreateCommandPool(handle, queues.Graphics)
	if err != nil {
		driver.DestroyDevice(handle)
		return nil, nativeError("vkCreateCommandPool", err)
	}

	dev := &Device{
		driver:        driver,
		display:       d,
		physical:      physical,
		queues:        queues,
		handle:        handle,
		graphicsQueue: driver.DeviceQueue(handle, queues.Graphics),
		presentQueue:  driver.DeviceQueue(handle, queues.Present),
		commandPool:   pool,
		stagingLimit:  cfg.StagingLimit,
	}
	d.device = dev
	return dev, nil
}

func selectPhysicalDevice(driver Driver, instance vk.Instance, surface vk.Surface, extensions []string, preferDiscrete bool) (PhysicalDeviceInfo, error) {
	log := graphics.Logger()
	devices, err := driver.PhysicalDevices(instance)
	if err != nil {
		return PhysicalDeviceInfo{}, nativeError("vkEnumeratePhysicalDevices", err)
	}
	var suitable []PhysicalDeviceInfo
	for _, pd := range devices {
		info, err := driver.DescribePhysicalDevice(pd, surface)
		if err != nil {
			log.Warn("failed to describe physical device", slog.Any("err", err))
			continue
		}
		if reason := unsuitable(info, extensions); reason != "" {
			log.Debug("skipping physical device", slog.String("name", info.Name), slog.String("reason", reason))
			continue
		}
		suitable = append(suitable, info)
	}
	if len(suitable) == 0 {
		return PhysicalDeviceInfo{}, errors.Wrapf(ErrNoSuitableDevice, "%d candidates", len(devices))
	}
	if preferDiscrete {
		for _, info := range suitable {
			if info.Type == vk.PhysicalDeviceTypeDiscreteGpu {
				return info, nil
			}
		}
	}
	return suitable[0], nil
}

// unsuitable returns why a device cannot be used, or "" when it can.
func unsuitable(info PhysicalDeviceInfo, extensions []string) string {
	if _, err := findQueueFamilies(info.QueueFamilies); err != nil {
		return err.Error()
	}
	if miss := missing(extensions, info.Extensions); len(miss) > 0 {
		return "missing extensions"
	}
	if !info.Swapchain.Adequate() {
		return "inadequate swapchain support"
	}
	return ""
}

func (d *Device) Handle() vk.Device                 { return d.handle }
func (d *Device) Driver() Driver                    { return d.driver }
func (d *Device) Display() *Display                 { return d.display }
func (d *Device) Physical() PhysicalDeviceInfo      { return d.physical }
func (d *Device) QueueFamilies() QueueFamilyIndices { return d.queues }
func (d *Device) GraphicsQueue() vk.Queue           { return d.graphicsQueue }
func (d *Device) PresentQueue() vk.Queue            { return d.presentQueue }
func (d *Device) CommandPool() vk.CommandPool       { return d.commandPool }

// Commands is the context transfers are recorded in.
func (d *Device) Commands() CommandContext {
	return CommandContext{Device: d.handle, Pool: d.commandPool, Queue: d.graphicsQueue}
}

func (d *Device) WaitIdle() error {
	if err := d.driver.DeviceWaitIdle(d.handle); err != nil {
		return nativeError("vkDeviceWaitIdle", err)
	}
	return nil
}

// Destroy waits for the device to idle and destroys it. Resources created
// against the device must be terminated before.
func (d *Device) Destroy() error {
	if d.destroyed {
		graphics.Logger().Warn("device destroyed twice")
		return errors.Wrap(ErrDestroyed, "device")
	}
	if err := d.driver.DeviceWaitIdle(d.handle); err != nil {
		graphics.Logger().Warn("device did not idle before destroy", slog.Any("err", err))
	}
	d.driver.DestroyCommandPool(d.handle, d.commandPool)
	d.driver.DestroyDevice(d.handle)
	d.destroyed = true
	if d.display != nil && d.display.device == d {
		d.display.device = nil
	}
	graphics.Logger().Info("destroyed device")
	return nil
}

// findMemoryType returns the first memory type allowed by filter that has
// all of props.
func (d *Device) findMemoryType(filter uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	mem := d.physical.Memory
	for i := uint32(0); i < mem.MemoryTypeCount; i++ {
		if filter&(1<<i) != 0 && mem.MemoryTypes[i].PropertyFlags&props == props {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrNoMemoryType, "filter %#x, properties %#x", filter, uint32(props))
}

// findSupportedFormat returns the first candidate whose optimal tiling
// features include features.
func (d *Device) findSupportedFormat(candidates []vk.Format, features vk.FormatFeatureFlags) (vk.Format, error) {
	for _, f := range candidates {
		props := d.driver.FormatProperties(d.physical.Handle, f)
		if props.OptimalTilingFeatures&features == features {
			return f, nil
		}
	}
	return vk.FormatUndefined, errors.Wrap(graphics.ErrUnsupported, "no candidate format supported")
}

func (d *Device) depthFormat() (vk.Format, error) {
	return d.findSupportedFormat(
		[]vk.Format{vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint},
		vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit),
	)
}

func hasStencilComponent(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}
