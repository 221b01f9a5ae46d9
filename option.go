package amfcontext

import (
	"github.com/xaionaro-go/amfcontext/amf"
	"github.com/xaionaro-go/amfcontext/dynlib"
	"github.com/xaionaro-go/amfcontext/envscope"
)

type Option interface {
	encoderContextOption()
}

type Options []Option

type OptionCommons struct{}

func (OptionCommons) encoderContextOption() {}

func OptionLatest[T Option](s Options) (ret T, ok bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if v, ok := s[i].(T); ok {
			return v, true
		}
	}
	return
}

type OptionLoader struct {
	OptionCommons
	dynlib.Loader
}

type OptionInitBinder struct {
	OptionCommons
	amf.InitBinder
}

type OptionEnviron struct {
	OptionCommons
	envscope.Environ
}

// FileChecker returns nil if path refers to an accessible file.
type FileChecker func(path string) error

type OptionFileChecker struct {
	OptionCommons
	FileChecker
}

func (s Options) loader() dynlib.Loader {
	if opt, ok := OptionLatest[OptionLoader](s); ok && opt.Loader != nil {
		return opt.Loader
	}
	return dynlib.DefaultLoader()
}

func (s Options) initBinder() amf.InitBinder {
	if opt, ok := OptionLatest[OptionInitBinder](s); ok && opt.InitBinder != nil {
		return opt.InitBinder
	}
	return amf.BindInitFunc
}

func (s Options) environ() envscope.Environ {
	if opt, ok := OptionLatest[OptionEnviron](s); ok && opt.Environ != nil {
		return opt.Environ
	}
	return envscope.OS()
}

func (s Options) fileChecker() FileChecker {
	if opt, ok := OptionLatest[OptionFileChecker](s); ok && opt.FileChecker != nil {
		return opt.FileChecker
	}
	return CheckFileAccessible
}
