package logger

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"
)

func CtxWithLogger(ctx context.Context, l Logger) context.Context {
	return logger.CtxWithLogger(ctx, l)
}
