package amf

// Slots of the C vtables (AMFFactoryVtbl, AMFContextVtbl,
// AMFContext1Vtbl) of the AMF SDK. Every AMFContext1 slot up to
// vtblContextGetCompute is inherited from AMFContext.
const (
	vtblFactoryCreateContext = 0

	vtblAcquire        = 0
	vtblRelease        = 1
	vtblQueryInterface = 2

	// AMFPropertyStorage occupies 3..12
	vtblContextTerminate  = 13
	vtblContextGetCompute = 54

	vtblContext1InitVulkan                = 58
	vtblContext1GetVulkanDeviceExtensions = 64
)

// guid has the memory layout of AMFGuid.
type guid struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]uint8
}

var iidAMFContext1 = guid{
	Data1: 0xd9e9f868,
	Data2: 0x6220,
	Data3: 0x44c6,
	Data4: [8]uint8{0xa2, 0x2f, 0x7c, 0xd6, 0xda, 0xc6, 0x86, 0x46},
}
