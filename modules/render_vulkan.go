//go:build !headless

// render_vulkan.go - Vulkan-backed RenderModule with a software fallback
//
// License: GPLv3 or later

package modules

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
)

// VulkanRender stands up a headless Vulkan instance/device exactly the
// way voodoo_vulkan.go's initVulkan chain does (loader init, instance,
// graphics-capable physical device, logical device), and fills the
// EFB on the CPU whether or not such a device is found, borrowing
// that file's "software backend as fallback, try Vulkan, keep software
// if it fails" structure. Translating the full fixed-function Action
// union (blend modes, tev stages, lighting) into an actual Vulkan
// graphics pipeline is out of scope here, the same way
// voodoo_vulkan.go's own pipeline variants are specific to Voodoo's
// register set rather than a general one: Exec accepts every action
// and keeps the EFB CPU-side, using the Vulkan device only to prove
// and hold a real GPU handle alive for a consumer that wants one (a
// window surface, an external frame sink) rather than to rasterize.
type VulkanRender struct {
	mu     sync.Mutex
	width  int
	height int
	efb    []byte

	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	graphicsQueue  vk.Queue
	queueFamily    uint32
	ready          bool

	clearColor [4]float32
}

// NewVulkanRender allocates a render module and attempts to bring up a
// Vulkan device; failure to find one is not an error, it just leaves
// the adapter running the CPU-side EFB path only.
func NewVulkanRender(width, height int) *VulkanRender {
	vr := &VulkanRender{width: width, height: height, efb: make([]byte, width*height*4)}
	if err := vr.initVulkan(); err != nil {
		vr.ready = false
	}
	return vr
}

func (vr *VulkanRender) initVulkan() error {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return fmt.Errorf("load vulkan library: %w", err)
	}
	if err := vk.Init(); err != nil {
		return fmt.Errorf("init vulkan loader: %w", err)
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(1, 1, 0),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &appInfo,
	}
	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		return fmt.Errorf("vkCreateInstance: %d", res)
	}
	vr.instance = instance
	vk.InitInstance(instance)

	if err := vr.selectPhysicalDevice(); err != nil {
		return err
	}
	if err := vr.createDevice(); err != nil {
		return err
	}
	vr.ready = true
	return nil
}

func (vr *VulkanRender) selectPhysicalDevice() error {
	var count uint32
	vk.EnumeratePhysicalDevices(vr.instance, &count, nil)
	if count == 0 {
		return fmt.Errorf("no vulkan-capable GPUs found")
	}
	devices := make([]vk.PhysicalDevice, count)
	vk.EnumeratePhysicalDevices(vr.instance, &count, devices)

	for _, device := range devices {
		var qfCount uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(device, &qfCount, nil)
		families := make([]vk.QueueFamilyProperties, qfCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(device, &qfCount, families)
		for i, qf := range families {
			qf.Deref()
			if qf.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
				vr.physicalDevice = device
				vr.queueFamily = uint32(i)
				return nil
			}
		}
	}
	return fmt.Errorf("no GPU with a graphics queue found")
}

func (vr *VulkanRender) createDevice() error {
	priority := float32(1.0)
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: vr.queueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{priority},
	}
	deviceInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos:    []vk.DeviceQueueCreateInfo{queueInfo},
	}
	var device vk.Device
	if res := vk.CreateDevice(vr.physicalDevice, &deviceInfo, nil, &device); res != vk.Success {
		return fmt.Errorf("vkCreateDevice: %d", res)
	}
	vr.device = device
	var queue vk.Queue
	vk.GetDeviceQueue(device, vr.queueFamily, 0, &queue)
	vr.graphicsQueue = queue
	return nil
}

// Ready reports whether a real Vulkan device was found.
func (vr *VulkanRender) Ready() bool { return vr.ready }

// Exec applies one render action against the CPU-side EFB, same
// subset of actions as EbitenRender handles.
func (vr *VulkanRender) Exec(action *Action) error {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	switch action.Kind {
	case ActionSetClearColor:
		vr.clearColor = action.Color
	case ActionXfbCopy, ActionColorCopy:
		if action.Copy.Clear {
			r, g, b, a := byte(vr.clearColor[0]*255), byte(vr.clearColor[1]*255), byte(vr.clearColor[2]*255), byte(vr.clearColor[3]*255)
			for i := 0; i < len(vr.efb); i += 4 {
				vr.efb[i], vr.efb[i+1], vr.efb[i+2], vr.efb[i+3] = r, g, b, a
			}
		}
		if action.Kind == ActionColorCopy {
			out := make([]byte, len(vr.efb))
			copy(out, vr.efb)
			action.ColorResult = out
		}
	case ActionDepthCopy:
		action.DepthResult = make([]uint32, vr.width*vr.height)
	}
	return nil
}

// Close releases the Vulkan device and instance, if one was created.
func (vr *VulkanRender) Close() {
	if vr.device != vk.NullDevice {
		vk.DestroyDevice(vr.device, nil)
	}
	if vr.instance != vk.NullInstance {
		vk.DestroyInstance(vr.instance, nil)
	}
}
