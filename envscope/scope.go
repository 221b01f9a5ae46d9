// Package envscope temporarily overrides process environment variables
// and puts the previous values back when the scope is closed.
package envscope

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaionaro-go/amfcontext/logger"
	"github.com/xaionaro-go/xsync"
)

// processLocker serializes every scope transition of this package.
var processLocker xsync.Mutex

type previousValue struct {
	Key   string
	Value string
	IsSet bool
}

// Scope is a set of variables overridden to the same value.
type Scope struct {
	locker   xsync.Mutex
	env      Environ
	value    string
	previous []previousValue
	isClosed bool
}

// Open sets every key of env to value, remembering the previous values.
//
// If any key cannot be set, the keys set so far are restored and
// the error is returned.
func Open(
	ctx context.Context,
	env Environ,
	value string,
	keys ...string,
) (_ret *Scope, _err error) {
	logger.Debugf(ctx, "Open(ctx, '%s', %v)", value, keys)
	defer func() { logger.Debugf(ctx, "/Open(ctx, '%s', %v): %v", value, keys, _err) }()
	return xsync.DoR2(ctx, &processLocker, func() (*Scope, error) {
		s := &Scope{
			env:   env,
			value: value,
		}
		for _, key := range keys {
			prev, isSet := env.LookupEnv(key)
			if err := env.Setenv(key, value); err != nil {
				err = fmt.Errorf("unable to set '%s': %w", key, err)
				if rErr := s.restoreLocked(ctx); rErr != nil {
					err = errors.Join(err, rErr)
				}
				return nil, err
			}
			s.previous = append(s.previous, previousValue{
				Key:   key,
				Value: prev,
				IsSet: isSet,
			})
		}
		return s, nil
	})
}

func (s *Scope) Value() string {
	return s.value
}

func (s *Scope) Keys() []string {
	keys := make([]string, 0, len(s.previous))
	for _, prev := range s.previous {
		keys = append(keys, prev.Key)
	}
	return keys
}

func (s *Scope) IsClosed(ctx context.Context) bool {
	return xsync.DoR1(ctx, &s.locker, func() bool {
		return s.isClosed
	})
}

// Close restores the previous values. Only the first call has an effect.
func (s *Scope) Close(ctx context.Context) error {
	return s.CloseAfter(ctx, nil)
}

// CloseAfter calls fn and then restores the previous values, and nothing
// else in this package may touch the environment in between.
//
// If the scope is already closed, fn is still called. If fn panics,
// the values are restored before the panic propagates.
func (s *Scope) CloseAfter(
	ctx context.Context,
	fn func(),
) (_err error) {
	logger.Debugf(ctx, "CloseAfter(ctx, fn)")
	defer func() { logger.Debugf(ctx, "/CloseAfter(ctx, fn): %v", _err) }()
	return xsync.DoR1(ctx, &s.locker, func() error {
		return xsync.DoR1(ctx, &processLocker, func() (_err error) {
			defer func() {
				if s.isClosed {
					return
				}
				s.isClosed = true
				_err = s.restoreLocked(ctx)
			}()
			if fn != nil {
				fn()
			}
			return nil
		})
	})
}

func (s *Scope) restoreLocked(ctx context.Context) error {
	var errs []error
	for i := len(s.previous) - 1; i >= 0; i-- {
		prev := s.previous[i]
		var err error
		if prev.IsSet {
			logger.Tracef(ctx, "restoring '%s' to '%s'", prev.Key, prev.Value)
			err = s.env.Setenv(prev.Key, prev.Value)
		} else {
			logger.Tracef(ctx, "unsetting '%s'", prev.Key)
			err = s.env.Unsetenv(prev.Key)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("unable to restore '%s': %w", prev.Key, err))
		}
	}
	return errors.Join(errs...)
}
