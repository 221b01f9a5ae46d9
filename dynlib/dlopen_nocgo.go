//go:build !(unix && cgo) && !((linux || darwin) && !cgo)

package dynlib

import (
	"context"

	"github.com/xaionaro-go/amfcontext/logger"
)

type dlLoader struct{}

var _ Loader = dlLoader{}

func (dlLoader) Open(
	ctx context.Context,
	name string,
) (Library, error) {
	logger.Debugf(ctx, "Open(ctx, '%s'): not supported", name)
	return nil, ErrNotSupported{}
}
