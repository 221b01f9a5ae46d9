package amfcontext

import (
	"context"
	"sync"
	"unsafe"

	"github.com/xaionaro-go/amfcontext/amf"
	"github.com/xaionaro-go/amfcontext/dynlib"
	"github.com/xaionaro-go/amfcontext/envscope"
)

var fakeInitSymbol byte

type fakeLoader struct {
	libraries map[string]*fakeLibrary
}

func (l *fakeLoader) Open(ctx context.Context, name string) (dynlib.Library, error) {
	lib, ok := l.libraries[name]
	if !ok {
		return nil, dynlib.ErrOpen{Name: name, Reason: "cannot open shared object file: No such file or directory"}
	}
	return lib, nil
}

type fakeLibrary struct {
	name    string
	symbols map[string]dynlib.Symbol
	closed  bool
}

func (l *fakeLibrary) Name() string { return l.name }

func (l *fakeLibrary) Lookup(ctx context.Context, symbol string) (dynlib.Symbol, error) {
	sym, ok := l.symbols[symbol]
	if !ok {
		return 0, dynlib.ErrLookup{Library: l.name, Symbol: symbol, Reason: "undefined symbol"}
	}
	return sym, nil
}

func (l *fakeLibrary) Close(ctx context.Context) error {
	l.closed = true
	return nil
}

type fakeRuntime struct {
	library     *fakeLibrary
	initErr     error
	initVersion uint64
	initSymbol  dynlib.Symbol
	factory     *fakeFactory
}

func newFakeRuntime() *fakeRuntime {
	context1 := &fakeContext1{}
	return &fakeRuntime{
		library: &fakeLibrary{
			name: amf.LibraryName,
			symbols: map[string]dynlib.Symbol{
				amf.InitFunctionName: uintptr(unsafe.Pointer(&fakeInitSymbol)),
			},
		},
		factory: &fakeFactory{
			context: &fakeContext{context1: context1},
		},
	}
}

func (rt *fakeRuntime) options(env envscope.Environ, extra ...Option) []Option {
	opts := []Option{
		OptionLoader{Loader: &fakeLoader{libraries: map[string]*fakeLibrary{rt.library.name: rt.library}}},
		OptionInitBinder{InitBinder: rt.bind},
		OptionEnviron{Environ: env},
	}
	return append(opts, extra...)
}

func (rt *fakeRuntime) bind(sym dynlib.Symbol) amf.InitFunc {
	rt.initSymbol = sym
	return func(ctx context.Context, version uint64) (amf.Factory, error) {
		rt.initVersion = version
		if rt.initErr != nil {
			return nil, rt.initErr
		}
		return rt.factory, nil
	}
}

type fakeFactory struct {
	createErr error
	context   *fakeContext
}

func (f *fakeFactory) CreateContext(ctx context.Context) (amf.Context, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.context, nil
}

func (f *fakeFactory) Pointer() unsafe.Pointer { return unsafe.Pointer(f) }

type fakeContext struct {
	context1   *fakeContext1
	terminated bool
	released   bool
}

func (c *fakeContext) QueryContext1(ctx context.Context) (amf.Context1, error) {
	if c.context1 == nil {
		return nil, amf.ResultNoInterface.Err("AMFContext::QueryInterface(AMFContext1)")
	}
	return c.context1, nil
}

func (c *fakeContext) Terminate(ctx context.Context) error {
	c.terminated = true
	return nil
}

func (c *fakeContext) Release(ctx context.Context) { c.released = true }

func (c *fakeContext) Pointer() unsafe.Pointer { return unsafe.Pointer(c) }

type fakeContext1 struct {
	locker sync.Mutex

	extensions    []string
	extensionsErr error
	bufferLens    []int

	initVulkanErr error
	devices       []*amf.VulkanDevice

	// observeEnv is called during InitVulkan
	observeEnv func()

	released bool
}

func (c *fakeContext1) VulkanDeviceExtensions(ctx context.Context, names []string) (int, error) {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.bufferLens = append(c.bufferLens, len(names))
	if c.extensionsErr != nil {
		return 0, c.extensionsErr
	}
	copy(names, c.extensions)
	return len(c.extensions), nil
}

func (c *fakeContext1) InitVulkan(ctx context.Context, dev *amf.VulkanDevice) error {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.devices = append(c.devices, dev)
	if c.observeEnv != nil {
		c.observeEnv()
	}
	return c.initVulkanErr
}

func (c *fakeContext1) Release(ctx context.Context) { c.released = true }

func (c *fakeContext1) Pointer() unsafe.Pointer { return unsafe.Pointer(c) }
