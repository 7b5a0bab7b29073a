package main

import (
	"cfdns/cfdns"
	"cfdns/config"
	"cfdns/ddns"
	"cfdns/log"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type app struct {
	store   *config.Store
	connect ddns.Connector
	prompt  *cfdns.Prompter
	out     io.Writer
}

func (a *app) dispatch(ctx context.Context, args []string) int {
	if len(args) == 0 {
		printUsage(a.out)
		return exitUsage
	}

	switch args[0] {
	case "config":
		return a.configCommand(ctx, args[1:])
	case "run":
		return a.runCommand(ctx, args[1:])
	default:
		fmt.Fprintf(a.out, "Unknown command %q\n\n", args[0])
		printUsage(a.out)
		return exitUsage
	}
}

// parse handles -h and bad flags for a subcommand. ok is false when the
// command must stop with code.
func (a *app) parse(fs *flag.FlagSet, args []string) (code int, ok bool) {
	fs.SetOutput(a.out)
	err := fs.Parse(args)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return exitOK, false
	case err != nil:
		return exitUsage, false
	}
	return exitOK, true
}

func (a *app) configCommand(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	noBackup := fs.BoolP("no-backup", "b", false, "don't back up the existing config on create")
	yes := fs.BoolP("yes", "y", false, "overwrite an existing config without asking")
	fs.Usage = func() {
		fmt.Fprintln(a.out, "Usage: cfdns config {list|create|edit|backup|restore} [flags]")
		fmt.Fprintln(a.out, fs.FlagUsages())
	}

	if code, ok := a.parse(fs, args); !ok {
		return code
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	ctx = log.SWith(ctx, "command", "config", "action", fs.Arg(0))
	name := filepath.Base(a.store.Path)

	switch fs.Arg(0) {
	case "list":
		conf, err := cfdns.LoadValid(ctx, a.store, a.out)
		if err != nil {
			return exitFailure
		}
		cfdns.Describe(a.out, conf)
		return exitOK

	case "create":
		setup := cfdns.NewSetup(a.store, a.connect, a.prompt, a.out)
		_, err := setup.Run(ctx, cfdns.SetupOptions{NoBackup: *noBackup, AssumeYes: *yes})
		if err != nil {
			if !errors.Is(err, cfdns.ErrAborted) && !errors.Is(err, cfdns.ErrNoZones) {
				fmt.Fprintf(a.out, "Configuration not created: %v\n", err)
			}
			log.S(ctx).Debugw("config create failed", zap.Error(err))
			return exitFailure
		}
		return exitOK

	case "edit":
		fmt.Fprintln(a.out, "This isn't implemented yet! Use 'config create' to make it from scratch")
		return exitOK

	case "backup":
		fmt.Fprintf(a.out, "This isn't implemented yet! Manually copy the '%s' file to back it up\n", name)
		return exitOK

	case "restore":
		fmt.Fprintf(a.out, "This isn't implemented yet! Manually overwrite the '%s' file with a backup to restore it\n", name)
		return exitOK

	default:
		fs.Usage()
		return exitUsage
	}
}

func (a *app) runCommand(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "report what would be updated without changing anything")
	zones := fs.StringArrayP("zone", "z", nil, "only update this zone, may be repeated")
	domains := fs.StringArrayP("domain", "d", nil, "only update this record name, may be repeated")
	setIP := fs.StringP("set-ip", "i", "", "publish this address instead of looking it up")
	updateIP := fs.BoolP("update-ip", "u", false, "look up the public IP even if the cached one is fresh")
	fs.Usage = func() {
		fmt.Fprintln(a.out, "Usage: cfdns run [flags]")
		fmt.Fprintln(a.out, fs.FlagUsages())
	}

	if code, ok := a.parse(fs, args); !ok {
		return code
	}

	if fs.NArg() != 0 {
		fs.Usage()
		return exitUsage
	}

	ctx = log.SWith(ctx, "command", "run")

	opts := cfdns.RunOptions{
		ResolveOptions: cfdns.ResolveOptions{SetIP: *setIP, UpdateIP: *updateIP},
		SyncOptions:    cfdns.SyncOptions{DryRun: *dryRun, Zones: *zones, Domains: *domains},
	}

	summary, err := cfdns.NewRunner(a.store, a.connect, a.out).Run(ctx, opts)
	if err != nil {
		log.S(ctx).Errorw("run failed",
			"updated", summary.Updated,
			"failed", summary.Failed,
			zap.Error(err))
		return exitFailure
	}

	return exitOK
}
