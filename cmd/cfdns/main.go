package main

import (
	"cfdns/cfdns"
	"cfdns/common"
	"cfdns/config"
	"cfdns/ddns"
	"cfdns/log"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.StringP("config", "c", config.DefaultPath, "path to config file")
	debug      = flag.Bool("debug", false, "enable debug output")
	help       = flag.BoolP("help", "h", false, "Print help message")
)

var buildDate string

const requestTimeout = 30 * time.Second

const usage = `Usage: cfdns [global flags] <command> [flags]

Commands:
  config list                    show the stored configuration
  config create [-b] [-y]        select zones and records interactively
  config edit|backup|restore     not implemented yet
  run [flags]                    point tracked records at the current public IP

Global flags:
`

func printUsage(w io.Writer) {
	fmt.Fprint(w, usage)
	fmt.Fprintln(w, flag.CommandLine.FlagUsages())
}

func logConfig() zap.Config {
	if *debug {
		return zap.NewDevelopmentConfig()
	}

	// stdout carries the reports, logs stay on stderr and only show problems
	logOption := zap.NewProductionConfig()
	logOption.Encoding = "console"
	logOption.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logOption.Level.SetLevel(zapcore.WarnLevel)
	logOption.DisableStacktrace = true
	return logOption
}

func getInitLogger() context.Context {
	logger, err := logConfig().Build()
	if err != nil {
		fmt.Printf("Failed creating logger: %v\n", err)
		os.Exit(1)
	}

	return log.WithLogger(context.Background(), logger)
}

// getLogger rebuilds the logger from the log section of the document, when
// there is a readable one.
func getLogger(ctx context.Context, store *config.Store) context.Context {
	conf, err := store.Load(ctx)
	if err != nil || conf.Log == nil {
		return ctx
	}

	logOption := logConfig()

	if conf.Log.Level != nil {
		logOption.Level.SetLevel(*conf.Log.Level)
	}

	if conf.Log.Encoding != nil {
		logOption.Encoding = *conf.Log.Encoding
	}

	if conf.Log.InfoPath != nil {
		logOption.OutputPaths = *conf.Log.InfoPath
	}

	if conf.Log.ErrorPath != nil {
		logOption.ErrorOutputPaths = *conf.Log.ErrorPath
	}

	logger, err := logOption.Build()
	if err != nil {
		log.S(ctx).Errorw("cannot build real logger, keeping default", zap.Error(err))
		return ctx
	}

	return log.WithLogger(context.Background(), logger)
}

func main() {
	flag.CommandLine.SetInterspersed(false)
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()
	if *help {
		printUsage(os.Stdout)
		os.Exit(0)
	}

	ctx := getInitLogger()

	if buildDate != "" {
		log.S(ctx).Debugw("cfdns starting", "variant", "release", "build_date", buildDate)
	} else {
		log.S(ctx).Debugw("cfdns starting", "variant", "debug")
	}

	store := config.NewStore(*configPath)
	ctx = getLogger(ctx, store)
	ctx = context.WithValue(ctx, common.HttpClientKey, &http.Client{Timeout: requestTimeout})

	a := &app{
		store:   store,
		connect: ddns.CloudflareConnector(ddns.CloudflareConfig{}),
		prompt:  cfdns.NewTerminalPrompter(os.Stdin, os.Stdout),
		out:     os.Stdout,
	}
	code := a.dispatch(ctx, flag.Args())

	log.Sync(ctx)
	os.Exit(code)
}
