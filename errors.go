package amfcontext

import (
	"fmt"
)

type ErrLoadLibrary struct {
	Name string
	Err  error
}

func (e ErrLoadLibrary) Error() string {
	return fmt.Sprintf("unable to load the AMF runtime '%s': %v", e.Name, e.Err)
}

func (e ErrLoadLibrary) Unwrap() error {
	return e.Err
}

type ErrResolveSymbol struct {
	Library string
	Symbol  string
	Err     error
}

func (e ErrResolveSymbol) Error() string {
	return fmt.Sprintf("unable to resolve '%s' in '%s': %v", e.Symbol, e.Library, e.Err)
}

func (e ErrResolveSymbol) Unwrap() error {
	return e.Err
}

type ErrInit struct {
	Version uint64
	Err     error
}

func (e ErrInit) Error() string {
	return fmt.Sprintf("unable to initialize the AMF runtime (version %#x): %v", e.Version, e.Err)
}

func (e ErrInit) Unwrap() error {
	return e.Err
}

type ErrCreateContext struct {
	Err error
}

func (e ErrCreateContext) Error() string {
	return fmt.Sprintf("unable to create an AMF context: %v", e.Err)
}

func (e ErrCreateContext) Unwrap() error {
	return e.Err
}

type ErrEnvVarNotSet struct {
	EnvVar string
}

func (e ErrEnvVarNotSet) Error() string {
	return fmt.Sprintf("environment variable '%s' is not set", e.EnvVar)
}

type ErrDriverFile struct {
	EnvVar string
	Path   string
	Err    error
}

func (e ErrDriverFile) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("no Vulkan driver file: %v", e.Err)
	}
	return fmt.Sprintf("Vulkan driver file '%s' (from %s) is not accessible: %v", e.Path, e.EnvVar, e.Err)
}

func (e ErrDriverFile) Unwrap() error {
	return e.Err
}

type ErrDriverSelection struct {
	Err error
}

func (e ErrDriverSelection) Error() string {
	return fmt.Sprintf("unable to configure Vulkan driver selection: %v", e.Err)
}

func (e ErrDriverSelection) Unwrap() error {
	return e.Err
}

type BindReason int

const (
	UndefinedBindReason BindReason = iota
	BindReasonNoExtendedCapability
	BindReasonBindFailed
	EndOfBindReason
)

func (r BindReason) String() string {
	switch r {
	case UndefinedBindReason:
		return "<undefined>"
	case BindReasonNoExtendedCapability:
		return "no_extended_capability"
	case BindReasonBindFailed:
		return "bind_failed"
	default:
		return fmt.Sprintf("<unexpected_%d>", int(r))
	}
}

// ErrBind is returned by Initialize.
type ErrBind struct {
	Reason BindReason
	Err    error
}

func (e ErrBind) Error() string {
	switch e.Reason {
	case BindReasonNoExtendedCapability:
		return "the AMF runtime does not provide AMFContext1, cannot bind to Vulkan"
	default:
		return fmt.Sprintf("unable to bind AMF to the Vulkan device (%s): %v", e.Reason, e.Err)
	}
}

func (e ErrBind) Unwrap() error {
	return e.Err
}

type ErrClosed struct{}

func (ErrClosed) Error() string {
	return "the encoder context is closed"
}
