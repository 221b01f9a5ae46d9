// Package amf is the Go side of the AMF (Advanced Media Framework)
// runtime ABI needed to bring up an encoder context.
//
// On Linux the runtime is called through purego. With the with_amf
// build tag (and cgo) the calls go through the AMF SDK headers instead.
// Other platforms get stubs reporting AMF_NOT_SUPPORTED.
package amf

import (
	"context"
	"unsafe"

	"github.com/xaionaro-go/amfcontext/dynlib"
)

const (
	// LibraryName is the runtime library of the AMD driver stack.
	LibraryName = "libamfrt64.so.1"

	// InitFunctionName is the entry point exported by LibraryName.
	InitFunctionName = "AMFInit"
)

// InitFunc is a callable AMFInit entry point.
type InitFunc func(ctx context.Context, version uint64) (Factory, error)

// InitBinder turns a resolved InitFunctionName symbol into InitFunc.
type InitBinder func(sym dynlib.Symbol) InitFunc

type Factory interface {
	CreateContext(ctx context.Context) (Context, error)
	Pointer() unsafe.Pointer
}

type Context interface {
	// QueryContext1 returns the extended (AMFContext1) view of the context.
	QueryContext1(ctx context.Context) (Context1, error)
	Terminate(ctx context.Context) error
	Release(ctx context.Context)
	Pointer() unsafe.Pointer
}

type Context1 interface {
	// VulkanDeviceExtensions fills names with the Vulkan device extensions
	// required by the runtime and returns how many there are.
	//
	// With nil names it only returns the count.
	VulkanDeviceExtensions(ctx context.Context, names []string) (int, error)
	InitVulkan(ctx context.Context, dev *VulkanDevice) error
	Release(ctx context.Context)
	Pointer() unsafe.Pointer
}

// VulkanDevice is the set of Vulkan handles AMF is bound to.
// The handles are owned by the caller.
type VulkanDevice struct {
	Instance       unsafe.Pointer
	PhysicalDevice unsafe.Pointer
	Device         unsafe.Pointer
}
