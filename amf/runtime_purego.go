//go:build linux && !(cgo && with_amf)

package amf

import (
	"context"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/xaionaro-go/amfcontext/dynlib"
	"github.com/xaionaro-go/amfcontext/logger"
	"github.com/xaionaro-go/xsync"
	"golang.org/x/sys/unix"
)

// vulkanDevice has the memory layout of AMFVulkanDevice.
type vulkanDevice struct {
	CBSizeof       uintptr
	PNext          uintptr
	Instance       uintptr
	PhysicalDevice uintptr
	Device         uintptr
}

// vtableEntry returns the function in slot idx of the vtable of
// the AMF object obj.
func vtableEntry(obj uintptr, idx int) uintptr {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Add(unsafe.Pointer(vtbl), uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

func callResult(fn uintptr, args ...uintptr) Result {
	r1, _, _ := purego.SyscallN(fn, args...)
	// AMF_RESULT is a 32-bit enum, the upper half of the register is garbage
	return Result(int32(r1))
}

func BindInitFunc(sym dynlib.Symbol) InitFunc {
	return func(ctx context.Context, version uint64) (_ret Factory, _err error) {
		logger.Debugf(ctx, "%s(%#x)", InitFunctionName, version)
		defer func() { logger.Debugf(ctx, "/%s(%#x): %v", InitFunctionName, version, _err) }()
		if sym == 0 {
			return nil, ResultInvalidPointer.Err(InitFunctionName)
		}
		var f uintptr
		r := callResult(sym, uintptr(version), uintptr(unsafe.Pointer(&f)))
		if err := r.Err(InitFunctionName); err != nil {
			return nil, err
		}
		if f == 0 {
			return nil, ResultInvalidPointer.Err(InitFunctionName)
		}
		return &factory{p: f}, nil
	}
}

type factory struct {
	p uintptr
}

var _ Factory = (*factory)(nil)

func (f *factory) Pointer() unsafe.Pointer {
	return unsafe.Pointer(f.p)
}

func (f *factory) CreateContext(ctx context.Context) (_ret Context, _err error) {
	logger.Debugf(ctx, "CreateContext")
	defer func() { logger.Debugf(ctx, "/CreateContext: %v", _err) }()
	const op = "AMFFactory::CreateContext"
	var c uintptr
	r := callResult(vtableEntry(f.p, vtblFactoryCreateContext), f.p, uintptr(unsafe.Pointer(&c)))
	if err := r.Err(op); err != nil {
		return nil, err
	}
	if c == 0 {
		return nil, ResultInvalidPointer.Err(op)
	}
	return &amfContext{p: c}, nil
}

type amfContext struct {
	p uintptr
}

var _ Context = (*amfContext)(nil)

func (c *amfContext) Pointer() unsafe.Pointer {
	return unsafe.Pointer(c.p)
}

func (c *amfContext) QueryContext1(ctx context.Context) (_ret Context1, _err error) {
	logger.Debugf(ctx, "QueryContext1")
	defer func() { logger.Debugf(ctx, "/QueryContext1: %v", _err) }()
	const op = "AMFContext::QueryInterface(AMFContext1)"
	iid := iidAMFContext1
	var c1 uintptr
	r := callResult(
		vtableEntry(c.p, vtblQueryInterface),
		c.p, uintptr(unsafe.Pointer(&iid)), uintptr(unsafe.Pointer(&c1)),
	)
	if err := r.Err(op); err != nil {
		return nil, err
	}
	if c1 == 0 {
		return nil, ResultNoInterface.Err(op)
	}
	return &amfContext1{p: c1}, nil
}

func (c *amfContext) Terminate(ctx context.Context) error {
	logger.Debugf(ctx, "Terminate")
	return callResult(vtableEntry(c.p, vtblContextTerminate), c.p).Err("AMFContext::Terminate")
}

func (c *amfContext) Release(ctx context.Context) {
	refs, _, _ := purego.SyscallN(vtableEntry(c.p, vtblRelease), c.p)
	logger.Debugf(ctx, "AMFContext::Release: %d references left", int64(refs))
}

type amfContext1 struct {
	locker  xsync.Mutex
	p       uintptr
	devices []*vulkanDevice
}

var _ Context1 = (*amfContext1)(nil)

func (c *amfContext1) Pointer() unsafe.Pointer {
	return unsafe.Pointer(c.p)
}

func (c *amfContext1) VulkanDeviceExtensions(
	ctx context.Context,
	names []string,
) (_ret int, _err error) {
	logger.Tracef(ctx, "VulkanDeviceExtensions(ctx, [%d])", len(names))
	defer func() { logger.Tracef(ctx, "/VulkanDeviceExtensions(ctx, [%d]): %d %v", len(names), _ret, _err) }()
	const op = "AMFContext1::GetVulkanDeviceExtensions"
	fn := vtableEntry(c.p, vtblContext1GetVulkanDeviceExtensions)
	count := uintptr(len(names))
	if len(names) == 0 {
		if err := callResult(fn, c.p, uintptr(unsafe.Pointer(&count)), 0).Err(op); err != nil {
			return 0, err
		}
		return int(count), nil
	}

	cNames := make([]uintptr, len(names))
	r := callResult(fn, c.p, uintptr(unsafe.Pointer(&count)), uintptr(unsafe.Pointer(&cNames[0])))
	if err := r.Err(op); err != nil {
		return 0, err
	}
	copyCStrings(names, cNames[:min(int(count), len(cNames))])
	return int(count), nil
}

// copyCStrings copies NUL-terminated strings owned by the runtime.
func copyCStrings(dst []string, src []uintptr) {
	for i, p := range src {
		if i >= len(dst) {
			return
		}
		if p == 0 {
			dst[i] = ""
			continue
		}
		dst[i] = unix.BytePtrToString((*byte)(unsafe.Pointer(p)))
	}
}

func (c *amfContext1) InitVulkan(
	ctx context.Context,
	dev *VulkanDevice,
) (_err error) {
	logger.Debugf(ctx, "InitVulkan(ctx, %#+v)", dev)
	defer func() { logger.Debugf(ctx, "/InitVulkan(ctx, %#+v): %v", dev, _err) }()
	const op = "AMFContext1::InitVulkan"
	if dev == nil {
		return ResultInvalidArg.Err(op)
	}
	return xsync.DoR1(ctx, &c.locker, func() error {
		d := &vulkanDevice{
			CBSizeof:       unsafe.Sizeof(vulkanDevice{}),
			Instance:       uintptr(dev.Instance),
			PhysicalDevice: uintptr(dev.PhysicalDevice),
			Device:         uintptr(dev.Device),
		}
		// the runtime may keep referring to the struct until the context is terminated
		c.devices = append(c.devices, d)
		return callResult(
			vtableEntry(c.p, vtblContext1InitVulkan),
			c.p, uintptr(unsafe.Pointer(d)),
		).Err(op)
	})
}

func (c *amfContext1) Release(ctx context.Context) {
	c.locker.Do(ctx, func() {
		refs, _, _ := purego.SyscallN(vtableEntry(c.p, vtblRelease), c.p)
		logger.Debugf(ctx, "AMFContext1::Release: %d references left", int64(refs))
		c.devices = nil
	})
}
