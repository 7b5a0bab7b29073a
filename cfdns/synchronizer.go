package cfdns

import (
	"cfdns/config"
	"cfdns/ddns"
	"cfdns/log"
	"context"
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"
)

type SyncOptions struct {
	DryRun bool
	// Zones limits the run to these zone names when not empty.
	Zones []string
	// Domains limits the run to these record names, in every zone, when not
	// empty.
	Domains []string
}

type Result struct {
	Zone     string
	Record   string
	RecordID string
	DryRun   bool
	Err      error
}

type Summary struct {
	Results []Result
	Updated int
	Skipped int
	Failed  int
}

// Err is non-nil when at least one record failed to update.
func (s Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d records failed to update", s.Failed, len(s.Results))
}

// Synchronizer pushes an address to every tracked record in scope. A failed
// record is reported and the remaining records are still attempted.
type Synchronizer struct {
	provider ddns.Provider
	out      io.Writer
}

func NewSynchronizer(provider ddns.Provider, out io.Writer) *Synchronizer {
	return &Synchronizer{provider: provider, out: out}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func inScope(filter []string, name string) bool {
	return len(filter) == 0 || slices.Contains(filter, name)
}

func (s *Synchronizer) Sync(ctx context.Context, conf *config.Config, ip string, opts SyncOptions) Summary {
	ctx = log.SWith(ctx, log.Stage("update"), log.IP(ip), "dry_run", opts.DryRun)
	elapsed := log.Elapsed("elapsed")

	var summary Summary

	fmt.Fprintln(s.out)
	if opts.DryRun {
		fmt.Fprintln(s.out, "DRY RUN: NO CHANGES MADE")
	}

	for _, zoneName := range sortedKeys(conf.Domains) {
		if !inScope(opts.Zones, zoneName) {
			log.S(ctx).Debugw("zone out of scope", log.Zone(zoneName))
			continue
		}

		zone := conf.Domains[zoneName]
		ctx := log.SWith(ctx, log.Zone(zoneName), "zone_id", zone.ID)

		fmt.Fprintf(s.out, "Updating subdomains on %s\n", zoneName)
		for _, name := range sortedKeys(zone.Names) {
			if !inScope(opts.Domains, name) {
				summary.Skipped++
				continue
			}

			result := Result{Zone: zoneName, Record: name, RecordID: zone.Names[name], DryRun: opts.DryRun}
			if !opts.DryRun {
				result.Err = s.provider.UpdateAddressRecord(ctx, zone.ID, result.RecordID, name, ip)
			}

			if result.Err != nil {
				summary.Failed++
				log.S(ctx).Warnw("record update failed", log.Record(name), zap.Error(result.Err))
				fmt.Fprintf(s.out, "\tFailed to update subdomain: %s (%v)\n", name, result.Err)
			} else {
				summary.Updated++
				log.S(ctx).Infow("record updated", log.Record(name))
				fmt.Fprintf(s.out, "\tUpdated subdomain: %s\n", name)
			}

			summary.Results = append(summary.Results, result)
		}
		fmt.Fprintln(s.out)
	}

	log.S(ctx).Infow("sync finished",
		"updated", summary.Updated,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		elapsed)

	return summary
}
