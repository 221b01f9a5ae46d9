package amfcontext

import (
	"context"
	"sync"

	"github.com/xaionaro-go/amfcontext/logger"
)

var (
	processInstanceOnce sync.Once
	processInstance     *EncoderContext
)

// Get returns the process-wide EncoderContext, creating it with
// DefaultConfig on the first call. Concurrent first calls are safe:
// all of them get the same fully initialized instance.
func Get(ctx context.Context) *EncoderContext {
	processInstanceOnce.Do(func() {
		logger.Debugf(ctx, "creating the process-wide AMF encoder context")
		processInstance = New(ctx, DefaultConfig())
	})
	return processInstance
}
