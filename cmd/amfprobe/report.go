package main

import (
	"context"

	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/amfcontext"
	"github.com/xaionaro-go/amfcontext/amf"
)

type report struct {
	Valid                    bool     `json:"valid" yaml:"valid"`
	Error                    string   `json:"error,omitempty" yaml:"error,omitempty"`
	Library                  string   `json:"library" yaml:"library"`
	Version                  string   `json:"version" yaml:"version"`
	ExtendedContext          bool     `json:"extended_context" yaml:"extended_context"`
	RequiredDeviceExtensions []string `json:"required_device_extensions" yaml:"required_device_extensions"`
	DriverFile               string   `json:"driver_file,omitempty" yaml:"driver_file,omitempty"`
}

func newReport(
	ctx context.Context,
	e *amfcontext.EncoderContext,
) report {
	r := report{
		Valid:                    e.IsValid(),
		Library:                  e.Config.LibraryName,
		Version:                  amf.ParseFullVersion(e.Config.Version).String(),
		ExtendedContext:          e.ExtendedContext() != nil,
		RequiredDeviceExtensions: e.RequiredDeviceExtensions(ctx),
		DriverFile:               e.DriverFile(ctx),
	}
	if err := e.Err(); err != nil {
		r.Error = err.Error()
	}
	return r
}

func (r report) String() string {
	return spew.Sdump(r)
}
