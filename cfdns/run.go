package cfdns

import (
	"cfdns/config"
	"cfdns/ddns"
	"cfdns/log"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

type RunOptions struct {
	ResolveOptions
	SyncOptions
}

// Runner performs one synchronization pass over the stored configuration.
type Runner struct {
	store   *config.Store
	connect ddns.Connector
	out     io.Writer
}

func NewRunner(store *config.Store, connect ddns.Connector, out io.Writer) *Runner {
	return &Runner{store: store, connect: connect, out: out}
}

// LoadValid loads the document behind store and checks it. Absent, malformed
// and invalid documents are reported on out and returned as errors.
func LoadValid(ctx context.Context, store *config.Store, out io.Writer) (*config.Config, error) {
	conf, err := store.Load(ctx)
	switch {
	case errors.Is(err, config.ErrNotExist):
		fmt.Fprintln(out, "No configuration file present")
		return nil, err
	case errors.Is(err, config.ErrMalformed):
		fmt.Fprintln(out, "Configuration file is malformed")
		return nil, err
	case err != nil:
		return nil, err
	}

	if err := config.Check(conf); err != nil {
		var invalid *config.InvalidError
		if errors.As(err, &invalid) {
			fmt.Fprintln(out, "Configuration invalid: ")
			for _, problem := range invalid.Problems {
				fmt.Fprintf(out, "\t%s\n", problem)
			}
		}
		log.S(ctx).Warnw("config invalid", zap.Error(err))
		return nil, err
	}

	return conf, nil
}

// Run resolves the address to publish and pushes it to every record in scope.
// A failed lookup aborts before the provider is contacted. Failed records are
// collected in the returned Summary, whose Err reports them.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	ctx = log.SWith(ctx, "path", r.store.Path)

	conf, err := LoadValid(ctx, r.store, r.out)
	if err != nil {
		return Summary{}, err
	}

	resolver, err := NewIPResolver(ctx, conf.Sources(), r.store)
	if err != nil {
		return Summary{}, err
	}

	resolution, err := resolver.Resolve(ctx, conf, opts.ResolveOptions)
	if err != nil {
		fmt.Fprintf(r.out, "Unable to determine public IP: %v\n", err)
		return Summary{}, err
	}

	switch resolution.Origin {
	case OriginOverride:
		fmt.Fprintf(r.out, "IP manually set to: %s\n", resolution.IP)
	case OriginLookup:
		fmt.Fprintf(r.out, "IP updated to: %s\n", resolution.IP)
	case OriginCache:
		fmt.Fprintf(r.out, "Cached IP of: %s\n", resolution.IP)
	}

	provider, err := r.connect(ctx, conf.API)
	if err != nil {
		return Summary{}, err
	}

	summary := NewSynchronizer(provider, r.out).Sync(ctx, conf, resolution.IP, opts.SyncOptions)
	return summary, summary.Err()
}
