package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/pkg/runtime"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/goccy/go-yaml"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/amfcontext"
	"github.com/xaionaro-go/amfcontext/envscope"
	"github.com/xaionaro-go/amfcontext/logger"
	"github.com/xaionaro-go/observability"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [options]\n", os.Args[0])
		pflag.PrintDefaults()
	}

	defaultCfg := amfcontext.DefaultConfig()
	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	icdPath := pflag.String("icd", "", "the Vulkan driver (ICD) file to use with AMF; overrides $"+amfcontext.EnvVarICD)
	libraryName := pflag.String("library", defaultCfg.LibraryName, "the AMF runtime library")
	format := pflag.String("format", "json", "output format: json|yaml")
	pflag.Parse()
	if len(pflag.Args()) != 0 {
		pflag.Usage()
		os.Exit(1)
	}

	runtime.DefaultCallerPCFilter = observability.CallerPCFilter(runtime.DefaultCallerPCFilter)
	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.SetDefault(func() logger.Logger {
		return l
	})
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	cfg, isDefault, err := options{
		ICDPath:     *icdPath,
		LibraryName: *libraryName,
	}.encoderConfig(envscope.OS())
	if err != nil {
		l.Fatal(err)
	}

	var encCtx *amfcontext.EncoderContext
	if isDefault {
		encCtx = amfcontext.Get(ctx)
	} else {
		encCtx = amfcontext.New(ctx, cfg)
	}

	r := newReport(ctx, encCtx)
	logger.Debugf(ctx, "report: %s", r)

	var b []byte
	switch *format {
	case "json":
		b, err = json.MarshalIndent(r, "", "  ")
	case "yaml":
		b, err = yaml.Marshal(r)
	default:
		l.Fatalf("unknown format '%s'", *format)
	}
	if err != nil {
		l.Fatal(err)
	}
	fmt.Printf("%s\n", b)
	if !r.Valid {
		belt.Flush(ctx)
		os.Exit(2)
	}
}
