//go:build !linux

package amf

import (
	"context"

	"github.com/xaionaro-go/amfcontext/dynlib"
	"github.com/xaionaro-go/amfcontext/logger"
)

// BindInitFunc returns an entry point which always fails: the AMF
// runtime this package talks to exists only on Linux.
func BindInitFunc(sym dynlib.Symbol) InitFunc {
	return func(ctx context.Context, version uint64) (Factory, error) {
		logger.Warnf(ctx, "%s was resolved at %#x, but AMF is supported only on Linux", InitFunctionName, sym)
		return nil, ResultNotSupported.Err(InitFunctionName)
	}
}
