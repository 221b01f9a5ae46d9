package dynlib

import (
	"fmt"
)

type ErrOpen struct {
	Name   string
	Reason string
}

func (e ErrOpen) Error() string {
	return fmt.Sprintf("unable to open library '%s': %s", e.Name, e.Reason)
}

type ErrLookup struct {
	Library string
	Symbol  string
	Reason  string
}

func (e ErrLookup) Error() string {
	return fmt.Sprintf("unable to resolve symbol '%s' in '%s': %s", e.Symbol, e.Library, e.Reason)
}

type ErrClosed struct {
	Library string
}

func (e ErrClosed) Error() string {
	return fmt.Sprintf("library '%s' is already closed", e.Library)
}

type ErrNotSupported struct{}

func (ErrNotSupported) Error() string {
	return "dynamic loading is not supported in this build (cgo is required)"
}
