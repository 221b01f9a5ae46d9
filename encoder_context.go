// Package amfcontext brings up the AMF hardware-encoding runtime and
// binds it to a Vulkan device, so that an encoding pipeline can use it.
package amfcontext

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaionaro-go/amfcontext/amf"
	"github.com/xaionaro-go/amfcontext/dynlib"
	"github.com/xaionaro-go/amfcontext/envscope"
	"github.com/xaionaro-go/amfcontext/logger"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// EncoderContext is a loaded AMF runtime with a created context.
//
// IsValid is the only authoritative readiness check: the factory and
// the context may exist even if the instance is not valid.
type EncoderContext struct {
	Config Config

	locker      xsync.Mutex
	isValid     atomic.Bool
	isClosed    bool
	initErr     error
	environ     envscope.Environ
	library     dynlib.Library
	factory     amf.Factory
	context     amf.Context
	context1    amf.Context1
	driverScope *envscope.Scope
}

// New loads the runtime and creates a context, see Get for
// the process-wide instance.
//
// It never fails: if anything goes wrong the returned instance is
// just not valid, and Err tells why.
func New(
	ctx context.Context,
	cfg Config,
	opts ...Option,
) *EncoderContext {
	e := &EncoderContext{
		Config:  cfg,
		environ: Options(opts).environ(),
	}
	logger.Tracef(ctx, "config: %s", cfg)
	err := e.init(ctx, opts)
	e.initErr = err
	if err != nil {
		logger.Warnf(ctx, "AMF is not available: %v", err)
		return e
	}
	e.isValid.Store(true)
	logger.Infof(ctx, "AMF is initialized, Vulkan driver file: '%s' (set in %v)", e.driverScope.Value(), e.driverScope.Keys())
	return e
}

func (e *EncoderContext) init(
	ctx context.Context,
	opts Options,
) (_err error) {
	logger.Debugf(ctx, "init")
	defer func() { logger.Debugf(ctx, "/init: %v", _err) }()
	cfg := e.Config

	lib, err := opts.loader().Open(ctx, cfg.LibraryName)
	if err != nil {
		return ErrLoadLibrary{Name: cfg.LibraryName, Err: err}
	}
	// the library is never unloaded: the handles below point into it
	e.library = lib

	sym, err := lib.Lookup(ctx, cfg.InitFunctionName)
	if err == nil && sym == 0 {
		err = fmt.Errorf("resolved to a nil address")
	}
	if err != nil {
		return ErrResolveSymbol{Library: lib.Name(), Symbol: cfg.InitFunctionName, Err: err}
	}

	factory, err := opts.initBinder()(sym)(ctx, cfg.Version)
	if err == nil && factory == nil {
		err = amf.ResultInvalidPointer.Err(cfg.InitFunctionName)
	}
	if err != nil {
		return ErrInit{Version: cfg.Version, Err: err}
	}
	e.factory = factory

	amfCtx, err := factory.CreateContext(ctx)
	if err == nil && amfCtx == nil {
		err = amf.ResultInvalidPointer.Err("AMFFactory::CreateContext")
	}
	if err != nil {
		return ErrCreateContext{Err: err}
	}
	e.context = amfCtx

	context1, err := amfCtx.QueryContext1(ctx)
	switch {
	case err != nil:
		logger.Warnf(ctx, "the runtime does not provide AMFContext1, Vulkan interop is disabled: %v", err)
	case context1 == nil:
		logger.Warnf(ctx, "the runtime returned a nil AMFContext1, Vulkan interop is disabled")
	default:
		e.context1 = context1
	}

	icdPath, ok := e.environ.LookupEnv(cfg.ICDEnvVar)
	if !ok || icdPath == "" {
		return ErrDriverFile{EnvVar: cfg.ICDEnvVar, Err: ErrEnvVarNotSet{EnvVar: cfg.ICDEnvVar}}
	}
	if err := opts.fileChecker()(icdPath); err != nil {
		return ErrDriverFile{EnvVar: cfg.ICDEnvVar, Path: icdPath, Err: err}
	}

	scope, err := envscope.Open(ctx, e.environ, icdPath, cfg.DriverEnvVars...)
	if err != nil {
		return ErrDriverSelection{Err: err}
	}
	e.driverScope = scope
	return nil
}

func (e *EncoderContext) IsValid() bool {
	return e.isValid.Load()
}

// Err returns the reason why the instance is not valid.
func (e *EncoderContext) Err() error {
	return xsync.DoR1(xsync.WithNoLogging(context.TODO(), true), &e.locker, func() error {
		if e.isClosed {
			return ErrClosed{}
		}
		return e.initErr
	})
}

func (e *EncoderContext) Factory() amf.Factory {
	return xsync.DoR1(xsync.WithNoLogging(context.TODO(), true), &e.locker, func() amf.Factory {
		return e.factory
	})
}

func (e *EncoderContext) Context() amf.Context {
	return xsync.DoR1(xsync.WithNoLogging(context.TODO(), true), &e.locker, func() amf.Context {
		return e.context
	})
}

// ExtendedContext returns the AMFContext1 view of Context, if the runtime
// provides one. It shares the lifetime of Context.
func (e *EncoderContext) ExtendedContext() amf.Context1 {
	return xsync.DoR1(xsync.WithNoLogging(context.TODO(), true), &e.locker, func() amf.Context1 {
		return e.context1
	})
}

// DriverFile returns the Vulkan driver file the driver-discovery
// variables currently point to, or "" if they are not overridden.
func (e *EncoderContext) DriverFile(ctx context.Context) string {
	return xsync.DoR1(ctx, &e.locker, func() string {
		if e.driverScope == nil || e.driverScope.IsClosed(ctx) {
			return ""
		}
		return e.driverScope.Value()
	})
}

// RequiredDeviceExtensions returns the Vulkan device extensions which
// have to be enabled on the device passed to Initialize.
//
// It returns an empty slice if Vulkan interop is not available.
func (e *EncoderContext) RequiredDeviceExtensions(ctx context.Context) []string {
	return xsync.DoA1R1(ctx, &e.locker, e.requiredDeviceExtensionsLocked, ctx)
}

func (e *EncoderContext) requiredDeviceExtensionsLocked(ctx context.Context) (_ret []string) {
	logger.Debugf(ctx, "requiredDeviceExtensionsLocked")
	defer func() { logger.Debugf(ctx, "/requiredDeviceExtensionsLocked: %v", _ret) }()
	if e.context1 == nil {
		return []string{}
	}

	// the count is only known after the first call
	count, err := e.context1.VulkanDeviceExtensions(ctx, nil)
	if err != nil {
		logger.Errorf(ctx, "unable to get the amount of required Vulkan device extensions: %v", err)
		return []string{}
	}
	if count <= 0 {
		return []string{}
	}

	names := make([]string, count)
	filled, err := e.context1.VulkanDeviceExtensions(ctx, names)
	if err != nil {
		logger.Errorf(ctx, "unable to get the required Vulkan device extensions: %v", err)
		return []string{}
	}
	if filled < count {
		names = names[:filled]
	}
	return names
}

// Initialize binds the AMF context to a Vulkan device owned by the caller.
//
// Right after the bind attempt, successful or not, the driver-discovery
// variables are restored to what they were before New. Initialize
// therefore needs exclusive access to the process environment.
func (e *EncoderContext) Initialize(
	ctx context.Context,
	dev *amf.VulkanDevice,
) error {
	return xsync.DoA2R1(ctx, &e.locker, e.initializeLocked, ctx, dev)
}

func (e *EncoderContext) initializeLocked(
	ctx context.Context,
	dev *amf.VulkanDevice,
) (_err error) {
	logger.Debugf(ctx, "initializeLocked(ctx, %#+v)", dev)
	defer func() { logger.Debugf(ctx, "/initializeLocked(ctx, %#+v): %v", dev, _err) }()
	if e.isClosed {
		return ErrClosed{}
	}

	var bindErr error
	bind := func() {
		if e.context1 == nil {
			bindErr = ErrBind{Reason: BindReasonNoExtendedCapability}
			return
		}
		if err := e.context1.InitVulkan(ctx, dev); err != nil {
			bindErr = ErrBind{Reason: BindReasonBindFailed, Err: err}
		}
	}

	if e.driverScope == nil {
		bind()
		return bindErr
	}
	scopeErr := e.driverScope.CloseAfter(ctx, bind)
	if scopeErr == nil {
		return bindErr
	}
	scopeErr = ErrDriverSelection{Err: scopeErr}
	if bindErr == nil {
		return scopeErr
	}
	logger.Errorf(ctx, "%v", scopeErr)
	return bindErr
}

// Close restores the driver-discovery variables (if not restored yet)
// and terminates the context. The runtime library stays loaded.
//
// The instance returned by Get is never closed by this package.
func (e *EncoderContext) Close(ctx context.Context) error {
	return xsync.DoA1R1(ctx, &e.locker, e.closeLocked, ctx)
}

func (e *EncoderContext) closeLocked(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "closeLocked")
	defer func() { logger.Debugf(ctx, "/closeLocked: %v", _err) }()
	if e.isClosed {
		return nil
	}
	e.isClosed = true
	e.isValid.Store(false)

	var errs []error
	if e.driverScope != nil {
		if err := e.driverScope.Close(ctx); err != nil {
			errs = append(errs, ErrDriverSelection{Err: err})
		}
	}
	if e.context1 != nil {
		e.context1.Release(ctx)
		e.context1 = nil
	}
	if e.context != nil {
		if err := e.context.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to terminate the AMF context: %w", err))
		}
		e.context.Release(ctx)
		e.context = nil
	}
	e.factory = nil
	return errors.Join(errs...)
}
