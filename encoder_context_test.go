package amfcontext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/amfcontext/amf"
	"github.com/xaionaro-go/amfcontext/envscope"
)

func writeICDFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amd_icd64.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"file_format_version":"1.0.0"}`), 0o644))
	return path
}

func requireUnset(t *testing.T, env envscope.Environ, keys ...string) {
	t.Helper()
	for _, key := range keys {
		v, ok := env.LookupEnv(key)
		require.False(t, ok, "%s is expected to be unset, but it is '%s'", key, v)
	}
}

func requireEnv(t *testing.T, env envscope.Environ, value string, keys ...string) {
	t.Helper()
	for _, key := range keys {
		v, ok := env.LookupEnv(key)
		require.True(t, ok, "%s is expected to be set", key)
		require.Equal(t, value, v, key)
	}
}

var driverEnvVars = []string{EnvVarVulkanDriverFiles, EnvVarVulkanICDFilenames}

func newValid(t *testing.T, rt *fakeRuntime) (*EncoderContext, *envscope.Map, string) {
	t.Helper()
	icd := writeICDFile(t)
	env := envscope.NewMap(map[string]string{EnvVarICD: icd})
	e := New(context.Background(), DefaultConfig(), rt.options(env)...)
	require.True(t, e.IsValid(), "%v", e.Err())
	return e, env, icd
}

func TestRuntimeNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	env := envscope.NewMap(nil)
	e := New(ctx, DefaultConfig(),
		OptionLoader{Loader: &fakeLoader{}},
		OptionEnviron{Environ: env},
	)
	require.False(t, e.IsValid())
	require.Nil(t, e.Factory())
	require.Nil(t, e.Context())
	require.Nil(t, e.ExtendedContext())
	require.Equal(t, []string{}, e.RequiredDeviceExtensions(ctx))

	var errLoad ErrLoadLibrary
	require.ErrorAs(t, e.Err(), &errLoad)
	require.Equal(t, amf.LibraryName, errLoad.Name)
	requireUnset(t, env, driverEnvVars...)
}

func TestRuntimeNotFoundWithSystemLoader(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.LibraryName = "libamfcontext-missing-runtime.so.1"
	e := New(ctx, cfg, OptionEnviron{Environ: envscope.NewMap(nil)})
	require.False(t, e.IsValid())
	require.Nil(t, e.Factory())
	require.Nil(t, e.Context())
	require.ErrorAs(t, e.Err(), &ErrLoadLibrary{})
}

func TestInitFailures(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name           string
		mutate         func(rt *fakeRuntime)
		wantFactory    bool
		wantContext    bool
		wantErrorCheck func(t *testing.T, err error)
	}{
		{
			name: "missing entry point",
			mutate: func(rt *fakeRuntime) {
				delete(rt.library.symbols, amf.InitFunctionName)
			},
			wantErrorCheck: func(t *testing.T, err error) {
				var e ErrResolveSymbol
				require.ErrorAs(t, err, &e)
				require.Equal(t, amf.InitFunctionName, e.Symbol)
			},
		},
		{
			name: "entry point resolves to nil",
			mutate: func(rt *fakeRuntime) {
				rt.library.symbols[amf.InitFunctionName] = 0
			},
			wantErrorCheck: func(t *testing.T, err error) {
				require.ErrorAs(t, err, &ErrResolveSymbol{})
			},
		},
		{
			name: "init is not OK",
			mutate: func(rt *fakeRuntime) {
				rt.initErr = amf.ResultNotSupported.Err(amf.InitFunctionName)
			},
			wantErrorCheck: func(t *testing.T, err error) {
				require.ErrorAs(t, err, &ErrInit{})
				var r amf.ErrResult
				require.ErrorAs(t, err, &r)
				require.Equal(t, amf.ResultNotSupported, r.Result)
			},
		},
		{
			name: "context creation is not OK",
			mutate: func(rt *fakeRuntime) {
				rt.factory.createErr = amf.ResultNoDevice.Err("AMFFactory::CreateContext")
			},
			wantFactory: true,
			wantErrorCheck: func(t *testing.T, err error) {
				require.ErrorAs(t, err, &ErrCreateContext{})
			},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			rt := newFakeRuntime()
			tc.mutate(rt)
			env := envscope.NewMap(map[string]string{EnvVarICD: writeICDFile(t)})
			e := New(ctx, DefaultConfig(), rt.options(env)...)

			require.False(t, e.IsValid())
			require.Equal(t, tc.wantFactory, e.Factory() != nil)
			require.Equal(t, tc.wantContext, e.Context() != nil)
			tc.wantErrorCheck(t, e.Err())
			requireUnset(t, env, driverEnvVars...)
		})
	}
}

func TestDriverFileEnvVarUnset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	env := envscope.NewMap(nil)
	e := New(ctx, DefaultConfig(), rt.options(env)...)

	require.False(t, e.IsValid())
	require.NotNil(t, e.Factory())
	require.NotNil(t, e.Context())
	require.NotNil(t, e.ExtendedContext())
	require.Empty(t, e.DriverFile(ctx))

	var errDriverFile ErrDriverFile
	require.ErrorAs(t, e.Err(), &errDriverFile)
	require.Equal(t, EnvVarICD, errDriverFile.EnvVar)
	require.ErrorAs(t, e.Err(), &ErrEnvVarNotSet{})
	requireUnset(t, env, driverEnvVars...)
}

func TestDriverFileNonexistent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	missing := filepath.Join(t.TempDir(), "no-such-icd.json")
	env := envscope.NewMap(map[string]string{EnvVarICD: missing})
	e := New(ctx, DefaultConfig(), rt.options(env)...)

	require.False(t, e.IsValid())
	var errDriverFile ErrDriverFile
	require.ErrorAs(t, e.Err(), &errDriverFile)
	require.Equal(t, missing, errDriverFile.Path)
	requireUnset(t, env, driverEnvVars...)
}

func TestDriverFileCheckerIsUsed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	env := envscope.NewMap(map[string]string{EnvVarICD: "/virtual/icd.json"})
	var checked string
	e := New(ctx, DefaultConfig(), rt.options(env, OptionFileChecker{FileChecker: func(path string) error {
		checked = path
		return nil
	}})...)
	require.True(t, e.IsValid(), "%v", e.Err())
	require.Equal(t, "/virtual/icd.json", checked)
}

func TestValid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	e, env, icd := newValid(t, rt)

	require.NoError(t, e.Err())
	require.NotNil(t, e.Factory())
	require.NotNil(t, e.Context())
	require.NotNil(t, e.ExtendedContext())
	require.Equal(t, amf.FullVersion, rt.initVersion)
	require.Equal(t, uintptr(unsafe.Pointer(&fakeInitSymbol)), rt.initSymbol)
	require.False(t, rt.library.closed)
	require.Equal(t, icd, e.DriverFile(ctx))
	requireEnv(t, env, icd, driverEnvVars...)
}

func TestValidWithoutExtendedContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	rt.factory.context.context1 = nil
	e, env, icd := newValid(t, rt)

	require.Nil(t, e.ExtendedContext())
	require.Equal(t, []string{}, e.RequiredDeviceExtensions(ctx))
	requireEnv(t, env, icd, driverEnvVars...)

	err := e.Initialize(ctx, &amf.VulkanDevice{})
	var errBind ErrBind
	require.ErrorAs(t, err, &errBind)
	require.Equal(t, BindReasonNoExtendedCapability, errBind.Reason)
	requireUnset(t, env, driverEnvVars...)
}

func TestInitializeOK(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	e, env, icd := newValid(t, rt)

	context1 := rt.factory.context.context1
	var seenDuringBind string
	context1.observeEnv = func() {
		seenDuringBind, _ = env.LookupEnv(EnvVarVulkanICDFilenames)
	}

	dev := &amf.VulkanDevice{
		Instance:       unsafe.Pointer(&fakeInitSymbol),
		PhysicalDevice: unsafe.Pointer(&fakeInitSymbol),
		Device:         unsafe.Pointer(&fakeInitSymbol),
	}
	require.NoError(t, e.Initialize(ctx, dev))
	require.Equal(t, []*amf.VulkanDevice{dev}, context1.devices)
	require.Equal(t, icd, seenDuringBind)
	requireUnset(t, env, driverEnvVars...)
	require.Empty(t, e.DriverFile(ctx))
	require.True(t, e.IsValid())
}

func TestInitializeBindFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	rt.factory.context.context1.initVulkanErr = amf.ResultNoDevice.Err("AMFContext1::InitVulkan")
	e, env, _ := newValid(t, rt)

	err := e.Initialize(ctx, &amf.VulkanDevice{})
	var errBind ErrBind
	require.ErrorAs(t, err, &errBind)
	require.Equal(t, BindReasonBindFailed, errBind.Reason)
	var r amf.ErrResult
	require.ErrorAs(t, err, &r)
	require.Equal(t, amf.ResultNoDevice, r.Result)
	requireUnset(t, env, driverEnvVars...)
}

func TestInitializePanicRestoresDriverSelection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	rt.factory.context.context1.observeEnv = func() {
		panic("segfault in the driver")
	}
	e, env, icd := newValid(t, rt)
	requireEnv(t, env, icd, driverEnvVars...)

	require.Panics(t, func() {
		_ = e.Initialize(ctx, &amf.VulkanDevice{})
	})
	requireUnset(t, env, driverEnvVars...)
	require.Empty(t, e.DriverFile(ctx))
	require.NoError(t, e.Close(ctx))
}

func TestInitializeRestoresPreviousDriverSelection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	icd := writeICDFile(t)
	env := envscope.NewMap(map[string]string{
		EnvVarICD:                icd,
		EnvVarVulkanICDFilenames: "/usr/share/vulkan/icd.d/radeon_icd.x86_64.json",
	})
	e := New(ctx, DefaultConfig(), rt.options(env)...)
	require.True(t, e.IsValid(), "%v", e.Err())
	requireEnv(t, env, icd, driverEnvVars...)

	require.NoError(t, e.Initialize(ctx, &amf.VulkanDevice{}))
	requireEnv(t, env, "/usr/share/vulkan/icd.d/radeon_icd.x86_64.json", EnvVarVulkanICDFilenames)
	requireUnset(t, env, EnvVarVulkanDriverFiles)

	// the environment is restored only once
	require.NoError(t, env.Setenv(EnvVarVulkanDriverFiles, "/other.json"))
	require.NoError(t, e.Initialize(ctx, &amf.VulkanDevice{}))
	requireEnv(t, env, "/other.json", EnvVarVulkanDriverFiles)
}

func TestInitializeWithoutDriverSelection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	env := envscope.NewMap(nil)
	e := New(ctx, DefaultConfig(), rt.options(env)...)
	require.False(t, e.IsValid())

	require.NoError(t, e.Initialize(ctx, &amf.VulkanDevice{}))
	require.Len(t, rt.factory.context.context1.devices, 1)
	requireUnset(t, env, driverEnvVars...)
}

func TestRequiredDeviceExtensions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	context1 := rt.factory.context.context1
	context1.extensions = []string{"VK_KHR_external_memory_fd", "VK_KHR_external_semaphore_fd"}
	e, _, _ := newValid(t, rt)

	require.Equal(t, context1.extensions, e.RequiredDeviceExtensions(ctx))
	require.Equal(t, []int{0, 2}, context1.bufferLens)
}

func TestRequiredDeviceExtensionsEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	e, _, _ := newValid(t, rt)

	exts := e.RequiredDeviceExtensions(ctx)
	require.NotNil(t, exts)
	require.Empty(t, exts)
	require.Equal(t, []int{0}, rt.factory.context.context1.bufferLens)
}

func TestRequiredDeviceExtensionsQueryFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	rt.factory.context.context1.extensionsErr = errors.New("injected")
	e, _, _ := newValid(t, rt)

	require.Equal(t, []string{}, e.RequiredDeviceExtensions(ctx))
}

func TestClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rt := newFakeRuntime()
	e, env, _ := newValid(t, rt)

	require.NoError(t, e.Close(ctx))
	require.False(t, e.IsValid())
	require.ErrorAs(t, e.Err(), &ErrClosed{})
	require.True(t, rt.factory.context.terminated)
	require.True(t, rt.factory.context.released)
	require.True(t, rt.factory.context.context1.released)
	require.False(t, rt.library.closed)
	require.Nil(t, e.Context())
	requireUnset(t, env, driverEnvVars...)

	require.NoError(t, e.Close(ctx))
	require.ErrorAs(t, e.Initialize(ctx, &amf.VulkanDevice{}), &ErrClosed{})
}

func TestGetReturnsSameInstance(t *testing.T) {
	ctx := context.Background()

	const concurrency = 8
	results := make([]*EncoderContext, concurrency)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Get(ctx)
		}(i)
	}
	wg.Wait()

	first := Get(ctx)
	require.NotNil(t, first)
	for _, r := range results {
		require.Same(t, first, r)
	}
	if !first.IsValid() {
		require.Error(t, first.Err())
	}
}

func TestBindReasonString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "no_extended_capability", BindReasonNoExtendedCapability.String())
	require.Equal(t, "bind_failed", BindReasonBindFailed.String())
	require.Equal(t, "<unexpected_42>", BindReason(42).String())
}
