package vulkan

import (
	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

// QueueFamilyIndices are the families the device takes its graphics and
// present queues from. They may be the same family.
type QueueFamilyIndices struct {
	Graphics uint32
	Present  uint32
}

// Shared reports whether graphics and present use one family.
func (q QueueFamilyIndices) Shared() bool {
	return q.Graphics == q.Present
}

// findQueueFamilies picks the first graphics capable family and the first
// family able to present to the surface.
func findQueueFamilies(families []QueueFamily) (QueueFamilyIndices, error) {
	var graphics, present *uint32
	for i, f := range families {
		idx := uint32(i)
		if graphics == nil && vk.QueueFlagBits(f.Flags)&vk.QueueGraphicsBit != 0 {
			graphics = &idx
		}
		if present == nil && f.Present {
			present = &idx
		}
		if graphics != nil && present != nil {
			return QueueFamilyIndices{Graphics: *graphics, Present: *present}, nil
		}
	}
	if graphics == nil {
		return QueueFamilyIndices{}, errors.New("unable to find graphics capable queue family")
	}
	return QueueFamilyIndices{}, errors.New("unable to find present capable queue family for surface")
}

// queueCreateInfos requests one queue from each distinct family.
func (q QueueFamilyIndices) queueCreateInfos() []vk.DeviceQueueCreateInfo {
	families := []uint32{q.Graphics}
	if !q.Shared() {
		families = append(families, q.Present)
	}
	infos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, f := range families {
		infos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: f,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	return infos
}

// sharing returns the swapchain image sharing setup for these families.
func (q QueueFamilyIndices) sharing() (vk.SharingMode, []uint32) {
	if q.Shared() {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, []uint32{q.Graphics, q.Present}
}
