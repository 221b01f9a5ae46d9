//go:build (linux || darwin) && !cgo

package dynlib

import (
	"context"
	"fmt"

	"github.com/ebitengine/purego"
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

	h, err := purego.Dlopen(name, purego.RTLD_LAZY)
	if err != nil {
		return nil, ErrOpen{Name: name, Reason: err.Error()}
	}
	if h == 0 {
		return nil, ErrOpen{Name: name, Reason: "dlopen returned a nil handle"}
	}
	return &dlLibrary{name: name, handle: h}, nil
}

type dlLibrary struct {
	locker xsync.Mutex
	name   string
	handle uintptr
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
	if l.handle == 0 {
		return 0, ErrClosed{Library: l.name}
	}
	sym, err := purego.Dlsym(l.handle, symbol)
	if err != nil {
		return 0, ErrLookup{Library: l.name, Symbol: symbol, Reason: err.Error()}
	}
	if sym == 0 {
		return 0, ErrLookup{Library: l.name, Symbol: symbol, Reason: "resolved to a nil address"}
	}
	return sym, nil
}

func (l *dlLibrary) Close(ctx context.Context) error {
	return xsync.DoA1R1(ctx, &l.locker, l.closeLocked, ctx)
}

func (l *dlLibrary) closeLocked(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "closeLocked: '%s'", l.name)
	defer func() { logger.Debugf(ctx, "/closeLocked: '%s': %v", l.name, _err) }()
	if l.handle == 0 {
		return nil
	}
	h := l.handle
	l.handle = 0
	if err := purego.Dlclose(h); err != nil {
		return fmt.Errorf("unable to close library '%s': %w", l.name, err)
	}
	return nil
}
