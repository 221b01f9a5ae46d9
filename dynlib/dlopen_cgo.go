//go:build unix && cgo

package dynlib

// #cgo linux LDFLAGS: -ldl
// #include <dlfcn.h>
// #include <stdlib.h>
import "C"

import (
	"context"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/xaionaro-go/amfcontext/logger"
	"github.com/xaionaro-go/xsync"
)

type dlLoader struct{}

var _ Loader = dlLoader{}

func (dlLoader) Open(
	ctx context.Context,
	name string,
) (_ret Library, _err error) {
	logger.Debugf(ctx, "Open(ctx, '%s')", name)
	defer func() { logger.Debugf(ctx, "/Open(ctx, '%s'): %v", name, _err) }()

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	// dlerror() state is per OS thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	h := C.dlopen(cName, C.RTLD_LAZY)
	if h == nil {
		return nil, ErrOpen{Name: name, Reason: lastDLError()}
	}
	return &dlLibrary{name: name, handle: h}, nil
}

type dlLibrary struct {
	locker xsync.Mutex
	name   string
	handle unsafe.Pointer
}

var _ Library = (*dlLibrary)(nil)

func (l *dlLibrary) Name() string {
	return l.name
}

func (l *dlLibrary) Lookup(
	ctx context.Context,
	symbol string,
) (Symbol, error) {
	return xsync.DoA2R2(ctx, &l.locker, l.lookupLocked, ctx, symbol)
}

func (l *dlLibrary) lookupLocked(
	ctx context.Context,
	symbol string,
) (_ret Symbol, _err error) {
	logger.Tracef(ctx, "lookupLocked(ctx, '%s')", symbol)
	defer func() { logger.Tracef(ctx, "/lookupLocked(ctx, '%s'): %#x %v", symbol, _ret, _err) }()
	if l.handle == nil {
		return 0, ErrClosed{Library: l.name}
	}

	cSymbol := C.CString(symbol)
	defer C.free(unsafe.Pointer(cSymbol))

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	C.dlerror()
	sym := C.dlsym(l.handle, cSymbol)
	if sym == nil {
		return 0, ErrLookup{Library: l.name, Symbol: symbol, Reason: lastDLError()}
	}
	return Symbol(uintptr(sym)), nil
}

func (l *dlLibrary) Close(ctx context.Context) error {
	return xsync.DoA1R1(ctx, &l.locker, l.closeLocked, ctx)
}

func (l *dlLibrary) closeLocked(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "closeLocked: '%s'", l.name)
	defer func() { logger.Debugf(ctx, "/closeLocked: '%s': %v", l.name, _err) }()
	if l.handle == nil {
		return nil
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	h := l.handle
	l.handle = nil
	if C.dlclose(h) != 0 {
		return fmt.Errorf("unable to close library '%s': %s", l.name, lastDLError())
	}
	return nil
}

func lastDLError() string {
	msg := C.dlerror()
	if msg == nil {
		return "unknown error"
	}
	return C.GoString(msg)
}
