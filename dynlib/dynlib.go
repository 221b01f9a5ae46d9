// Package dynlib opens shared libraries at runtime and resolves symbols
// from them.
package dynlib

import (
	"context"
)

// Symbol is the address of a resolved symbol. It is only meaningful
// to code that knows the symbol's C signature.
type Symbol = uintptr

type Loader interface {
	Open(ctx context.Context, name string) (Library, error)
}

type Library interface {
	Name() string
	Lookup(ctx context.Context, symbol string) (Symbol, error)
	Close(ctx context.Context) error
}

// DefaultLoader returns the loader of the host's dynamic linker.
//
// With cgo it is dlopen(3) itself, without cgo on Linux and macOS it is
// purego's implementation. Elsewhere it always fails with ErrNotSupported.
func DefaultLoader() Loader {
	return dlLoader{}
}
