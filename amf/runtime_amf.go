//go:build linux && cgo && with_amf

package amf

/*
#include <stddef.h>
#include <stdlib.h>
#include <string.h>
#include <AMF/core/Factory.h>
#include <AMF/core/Context.h>
#include <AMF/core/VulkanAMF.h>

static amf_uint64 amfcontext_full_version(void) {
	return AMF_FULL_VERSION;
}

static AMF_RESULT amfcontext_init(void *fn, amf_uint64 version, AMFFactory **factory) {
	return ((AMFInit_Fn)fn)(version, factory);
}

static AMF_RESULT amfcontext_factory_create_context(AMFFactory *f, AMFContext **c) {
	return f->pVtbl->CreateContext(f, c);
}

static AMF_RESULT amfcontext_context_query_context1(AMFContext *c, AMFContext1 **c1) {
	AMFGuid iid = IID_AMFContext1();
	return c->pVtbl->QueryInterface(c, &iid, (void **)c1);
}

static AMF_RESULT amfcontext_context_terminate(AMFContext *c) {
	return c->pVtbl->Terminate(c);
}

static amf_long amfcontext_context_release(AMFContext *c) {
	return c->pVtbl->Release(c);
}

static amf_long amfcontext_context1_release(AMFContext1 *c) {
	return c->pVtbl->Release(c);
}

static AMF_RESULT amfcontext_context1_vulkan_device_extensions(AMFContext1 *c, amf_size *count, const char **names) {
	return c->pVtbl->GetVulkanDeviceExtensions(c, count, names);
}

static AMF_RESULT amfcontext_context1_init_vulkan(AMFContext1 *c, AMFVulkanDevice *dev) {
	return c->pVtbl->InitVulkan(c, dev);
}

#define AMFCONTEXT_SLOT(vtbl, field) ((size_t)(offsetof(vtbl, field) / sizeof(void *)))

static size_t amfcontext_slot_factory_create_context(void) { return AMFCONTEXT_SLOT(AMFFactoryVtbl, CreateContext); }
static size_t amfcontext_slot_release(void) { return AMFCONTEXT_SLOT(AMFContextVtbl, Release); }
static size_t amfcontext_slot_query_interface(void) { return AMFCONTEXT_SLOT(AMFContextVtbl, QueryInterface); }
static size_t amfcontext_slot_context_terminate(void) { return AMFCONTEXT_SLOT(AMFContextVtbl, Terminate); }
static size_t amfcontext_slot_context_get_compute(void) { return AMFCONTEXT_SLOT(AMFContextVtbl, GetCompute); }
static size_t amfcontext_slot_context1_release(void) { return AMFCONTEXT_SLOT(AMFContext1Vtbl, Release); }
static size_t amfcontext_slot_context1_init_vulkan(void) { return AMFCONTEXT_SLOT(AMFContext1Vtbl, InitVulkan); }
static size_t amfcontext_slot_context1_get_vulkan_device_extensions(void) { return AMFCONTEXT_SLOT(AMFContext1Vtbl, GetVulkanDeviceExtensions); }
static size_t amfcontext_sizeof_guid(void) { return sizeof(AMFGuid); }

static void amfcontext_iid_context1(void *out) {
	AMFGuid iid = IID_AMFContext1();
	memcpy(out, &iid, sizeof(iid));
}

static AMFVulkanDevice *amfcontext_vulkan_device_new(void *instance, void *physicalDevice, void *device) {
	AMFVulkanDevice *d = calloc(1, sizeof(AMFVulkanDevice));
	if (d == NULL) {
		return NULL;
	}
	d->cbSizeof = sizeof(AMFVulkanDevice);
	d->hInstance = (VkInstance)instance;
	d->hPhysicalDevice = (VkPhysicalDevice)physicalDevice;
	d->hDevice = (VkDevice)device;
	return d;
}
*/
import "C"

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/xaionaro-go/amfcontext/dynlib"
	"github.com/xaionaro-go/amfcontext/logger"
	"github.com/xaionaro-go/xsync"
)

// FullVersion is the AMF_FULL_VERSION of the SDK headers.
var FullVersion = uint64(C.amfcontext_full_version())

// headerLayout is the vtable layout as the SDK headers define it.
type headerLayout struct {
	FactoryCreateContext              int
	Release                           int
	QueryInterface                    int
	ContextTerminate                  int
	ContextGetCompute                 int
	Context1Release                   int
	Context1InitVulkan                int
	Context1GetVulkanDeviceExtensions int
	GUIDSize                          int
	IIDAMFContext1                    guid
}

func headersLayout() headerLayout {
	l := headerLayout{
		FactoryCreateContext:              int(C.amfcontext_slot_factory_create_context()),
		Release:                           int(C.amfcontext_slot_release()),
		QueryInterface:                    int(C.amfcontext_slot_query_interface()),
		ContextTerminate:                  int(C.amfcontext_slot_context_terminate()),
		ContextGetCompute:                 int(C.amfcontext_slot_context_get_compute()),
		Context1Release:                   int(C.amfcontext_slot_context1_release()),
		Context1InitVulkan:                int(C.amfcontext_slot_context1_init_vulkan()),
		Context1GetVulkanDeviceExtensions: int(C.amfcontext_slot_context1_get_vulkan_device_extensions()),
		GUIDSize:                          int(C.amfcontext_sizeof_guid()),
	}
	C.amfcontext_iid_context1(unsafe.Pointer(&l.IIDAMFContext1))
	return l
}

func BindInitFunc(sym dynlib.Symbol) InitFunc {
	return func(ctx context.Context, version uint64) (_ret Factory, _err error) {
		logger.Debugf(ctx, "%s(%#x)", InitFunctionName, version)
		defer func() { logger.Debugf(ctx, "/%s(%#x): %v", InitFunctionName, version, _err) }()
		if sym == 0 {
			return nil, ResultInvalidPointer.Err(InitFunctionName)
		}
		var f *C.AMFFactory
		r := Result(C.amfcontext_init(unsafe.Pointer(sym), C.amf_uint64(version), &f))
		if err := r.Err(InitFunctionName); err != nil {
			return nil, err
		}
		if f == nil {
			return nil, ResultInvalidPointer.Err(InitFunctionName)
		}
		return &factory{p: f}, nil
	}
}

type factory struct {
	p *C.AMFFactory
}

var _ Factory = (*factory)(nil)

func (f *factory) Pointer() unsafe.Pointer {
	return unsafe.Pointer(f.p)
}

func (f *factory) CreateContext(ctx context.Context) (_ret Context, _err error) {
	logger.Debugf(ctx, "CreateContext")
	defer func() { logger.Debugf(ctx, "/CreateContext: %v", _err) }()
	var c *C.AMFContext
	r := Result(C.amfcontext_factory_create_context(f.p, &c))
	if err := r.Err("AMFFactory::CreateContext"); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ResultInvalidPointer.Err("AMFFactory::CreateContext")
	}
	return &amfContext{p: c}, nil
}

type amfContext struct {
	p *C.AMFContext
}

var _ Context = (*amfContext)(nil)

func (c *amfContext) Pointer() unsafe.Pointer {
	return unsafe.Pointer(c.p)
}

func (c *amfContext) QueryContext1(ctx context.Context) (_ret Context1, _err error) {
	logger.Debugf(ctx, "QueryContext1")
	defer func() { logger.Debugf(ctx, "/QueryContext1: %v", _err) }()
	var c1 *C.AMFContext1
	r := Result(C.amfcontext_context_query_context1(c.p, &c1))
	if err := r.Err("AMFContext::QueryInterface(AMFContext1)"); err != nil {
		return nil, err
	}
	if c1 == nil {
		return nil, ResultNoInterface.Err("AMFContext::QueryInterface(AMFContext1)")
	}
	return &amfContext1{p: c1}, nil
}

func (c *amfContext) Terminate(ctx context.Context) error {
	logger.Debugf(ctx, "Terminate")
	return Result(C.amfcontext_context_terminate(c.p)).Err("AMFContext::Terminate")
}

func (c *amfContext) Release(ctx context.Context) {
	refs := C.amfcontext_context_release(c.p)
	logger.Debugf(ctx, "AMFContext::Release: %d references left", int64(refs))
}

type amfContext1 struct {
	locker  xsync.Mutex
	p       *C.AMFContext1
	devices []*C.AMFVulkanDevice
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
	count := C.amf_size(len(names))
	if len(names) == 0 {
		r := Result(C.amfcontext_context1_vulkan_device_extensions(c.p, &count, nil))
		if err := r.Err(op); err != nil {
			return 0, err
		}
		return int(count), nil
	}

	cNames := make([]*C.char, len(names))
	r := Result(C.amfcontext_context1_vulkan_device_extensions(c.p, &count, &cNames[0]))
	if err := r.Err(op); err != nil {
		return 0, err
	}
	n := min(int(count), len(names))
	for i := 0; i < n; i++ {
		// the strings are owned by the runtime
		names[i] = C.GoString(cNames[i])
	}
	return int(count), nil
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
		cDev := C.amfcontext_vulkan_device_new(dev.Instance, dev.PhysicalDevice, dev.Device)
		if cDev == nil {
			return fmt.Errorf("unable to allocate AMFVulkanDevice: %w", ResultOutOfMemory.Err(op))
		}
		// the runtime may keep referring to the struct until the context is terminated
		c.devices = append(c.devices, cDev)
		return Result(C.amfcontext_context1_init_vulkan(c.p, cDev)).Err(op)
	})
}

func (c *amfContext1) Release(ctx context.Context) {
	c.locker.Do(ctx, func() {
		refs := C.amfcontext_context1_release(c.p)
		logger.Debugf(ctx, "AMFContext1::Release: %d references left", int64(refs))
		for _, dev := range c.devices {
			C.free(unsafe.Pointer(dev))
		}
		c.devices = nil
	})
}
