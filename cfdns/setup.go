package cfdns

import (
	"cfdns/config"
	"cfdns/ddns"
	"cfdns/log"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrAborted is returned when the operator declines to overwrite an
	// existing configuration.
	ErrAborted = errors.New("aborted")
	// ErrNoZones is returned when the credential can see no zone at all.
	ErrNoZones = errors.New("no zones found for this API key")
)

type SetupOptions struct {
	NoBackup  bool
	AssumeYes bool
}

// Setup builds a new configuration document by asking the operator to pick
// zones and A records from what the credential can see.
type Setup struct {
	store   *config.Store
	connect ddns.Connector
	prompt  *Prompter
	out     io.Writer
}

func NewSetup(store *config.Store, connect ddns.Connector, prompt *Prompter, out io.Writer) *Setup {
	return &Setup{store: store, connect: connect, prompt: prompt, out: out}
}

// Run walks through the whole flow and saves the result. Nothing is written
// when it returns ErrAborted or fails before the final save, except the
// backup of the previous document.
func (s *Setup) Run(ctx context.Context, opts SetupOptions) (*config.Config, error) {
	ctx = log.SWith(ctx, log.Stage("setup"), "path", s.store.Path)

	var previous *config.Config
	if s.store.Exists() {
		if !opts.AssumeYes {
			backup := "will"
			if opts.NoBackup {
				backup = "will NOT"
			}

			ok, err := s.prompt.Confirm(fmt.Sprintf(
				"Existing %s file! Do you wish to overwrite it and continue? A backup %s be made. (Y/N) ",
				s.store.Path, backup))
			if err != nil {
				return nil, fmt.Errorf("failed read confirmation: %w", err)
			}
			if !ok {
				log.S(ctx).Infow("overwrite declined")
				return nil, ErrAborted
			}
		}

		if !opts.NoBackup {
			target, err := s.store.Backup(ctx)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(s.out, "Backed up existing configuration file to '%s'\n", target)
		}

		// optional sections survive a re-creation, a broken document is simply replaced
		if conf, err := s.store.Load(ctx); err == nil {
			previous = conf
		} else {
			log.S(ctx).Infow("previous config not reusable", zap.Error(err))
		}
	}

	token, provider, err := s.credential(ctx)
	if err != nil {
		return nil, err
	}

	zones, err := provider.ListZones(ctx)
	if err != nil {
		return nil, err
	}

	if len(zones) == 0 {
		fmt.Fprintln(s.out, "No zones found for this API key")
		return nil, ErrNoZones
	}

	zoneItems := make([]string, len(zones))
	for i, z := range zones {
		zoneItems[i] = fmt.Sprintf("%s (%s)", z.Name, z.ID)
	}

	selected, err := s.prompt.Choose("Zones found:", zoneItems, "Zones? (numbers separated by commas) ")
	if err != nil {
		return nil, fmt.Errorf("failed read zone selection: %w", err)
	}

	conf := &config.Config{API: token, Domains: map[string]config.Zone{}}
	if previous != nil {
		conf.Log = previous.Log
		conf.IPSources = previous.IPSources
	}

	for _, i := range selected {
		zone := zones[i]
		ctx := log.SWith(ctx, log.Zone(zone.Name), "zone_id", zone.ID)

		records, err := provider.ListAddressRecords(ctx, zone.ID)
		if err != nil {
			return nil, err
		}

		recordItems := make([]string, len(records))
		for j, r := range records {
			recordItems[j] = fmt.Sprintf("%s (%s)", r.Name, r.ID)
		}

		picked, err := s.prompt.Choose(
			fmt.Sprintf("A records for %s:", zone.Name), recordItems, "Domains? (numbers separated by commas) ")
		if err != nil {
			return nil, fmt.Errorf("failed read record selection: %w", err)
		}

		// a zone picked twice accumulates the records of both rounds
		entry, ok := conf.Domains[zone.Name]
		if !ok {
			entry = config.Zone{ID: zone.ID, Names: map[string]string{}}
		}
		for _, j := range picked {
			entry.Names[records[j].Name] = records[j].ID
		}
		conf.Domains[zone.Name] = entry

		log.S(ctx).Debugw("zone selected", "records", len(entry.Names))
	}

	if err := s.store.Save(ctx, conf); err != nil {
		return nil, err
	}

	fmt.Fprintf(s.out, "\nConfiguration saved as '%s'\n", s.store.Path)
	log.S(ctx).Infow("config created", "zones", len(conf.Domains))
	return conf, nil
}

// credential asks for an API key until the provider accepts one.
func (s *Setup) credential(ctx context.Context) (string, ddns.Provider, error) {
	for {
		token, err := s.prompt.Secret("API key? ")
		if err != nil {
			return "", nil, fmt.Errorf("failed read API key: %w", err)
		}

		token = strings.TrimSpace(token)
		if token == "" {
			fmt.Fprintln(s.out, "API key cannot be empty")
			continue
		}

		provider, err := s.connect(ctx, token)
		if err != nil {
			return "", nil, err
		}

		valid, status, err := provider.VerifyCredential(ctx)
		switch {
		case err != nil:
			fmt.Fprintf(s.out, "Error contacting Cloudflare: %v\n", err)
		case valid:
			return token, provider, nil
		case status == http.StatusOK:
			fmt.Fprintln(s.out, "Error from Cloudflare. API key is not active")
		default:
			fmt.Fprintf(s.out, "Error from Cloudflare. Status code %d\n", status)
		}
	}
}
