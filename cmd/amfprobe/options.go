package main

import (
	"fmt"

	"github.com/xaionaro-go/amfcontext"
	"github.com/xaionaro-go/amfcontext/envscope"
)

type options struct {
	ICDPath     string
	LibraryName string
}

// encoderConfig applies the overrides to env and returns the config of
// the encoder context. isDefault is true if the process-wide instance
// (amfcontext.Get) matches the config.
func (o options) encoderConfig(env envscope.Environ) (_ amfcontext.Config, isDefault bool, _ error) {
	cfg := amfcontext.DefaultConfig()
	if o.ICDPath != "" {
		if err := env.Setenv(cfg.ICDEnvVar, o.ICDPath); err != nil {
			return cfg, false, fmt.Errorf("unable to set '%s': %w", cfg.ICDEnvVar, err)
		}
	}
	if o.LibraryName == "" || o.LibraryName == cfg.LibraryName {
		return cfg, true, nil
	}
	cfg.LibraryName = o.LibraryName
	return cfg, false, nil
}
