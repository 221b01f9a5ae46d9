package envscope

import (
	"context"
	"os"

	"github.com/xaionaro-go/xsync"
)

// Environ is a set of environment variables.
type Environ interface {
	LookupEnv(key string) (string, bool)
	Setenv(key, value string) error
	Unsetenv(key string) error
}

// OS returns the environment of the current process.
func OS() Environ {
	return osEnviron{}
}

type osEnviron struct{}

func (osEnviron) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }
func (osEnviron) Setenv(key, value string) error      { return os.Setenv(key, value) }
func (osEnviron) Unsetenv(key string) error           { return os.Unsetenv(key) }

// Map is an in-memory Environ, it never touches the process environment.
type Map struct {
	locker xsync.Mutex
	m      map[string]string
}

var _ Environ = (*Map)(nil)

func NewMap(initial map[string]string) *Map {
	m := &Map{m: map[string]string{}}
	for k, v := range initial {
		m.m[k] = v
	}
	return m
}

func (m *Map) LookupEnv(key string) (string, bool) {
	return xsync.DoR2(xsync.WithNoLogging(context.Background(), true), &m.locker, func() (string, bool) {
		v, ok := m.m[key]
		return v, ok
	})
}

func (m *Map) Setenv(key, value string) error {
	m.locker.Do(xsync.WithNoLogging(context.Background(), true), func() {
		m.m[key] = value
	})
	return nil
}

func (m *Map) Unsetenv(key string) error {
	m.locker.Do(xsync.WithNoLogging(context.Background(), true), func() {
		delete(m.m, key)
	})
	return nil
}
