package cfdns

import (
	"cfdns/common"
	"cfdns/config"
	"cfdns/log"
	"cfdns/sources"
	"context"
	"fmt"
	"net/netip"
	"time"

	"go.uber.org/zap"
)

// CacheMaxAge is how long a looked up address is reused before the next run
// asks the IP sources again.
const CacheMaxAge = time.Hour

type Origin int

const (
	OriginOverride Origin = iota
	OriginLookup
	OriginCache
)

func (o Origin) String() string {
	switch o {
	case OriginOverride:
		return "override"
	case OriginLookup:
		return "lookup"
	case OriginCache:
		return "cache"
	default:
		return fmt.Sprintf("unknown<%d>", int(o))
	}
}

type ResolveOptions struct {
	// SetIP is used verbatim when not empty.
	SetIP string
	// UpdateIP forces a lookup even if the cache is fresh.
	UpdateIP bool
}

type Resolution struct {
	IP     string
	Origin Origin
}

// Saver persists the configuration document after the IP cache changed.
type Saver interface {
	Save(ctx context.Context, conf *config.Config) error
}

type sourceChain struct {
	sources []sources.Interface
}

func (r *sourceChain) resolve(ctx context.Context) (ip netip.Addr, err error) {
	sourceType := ""
	for _, source := range r.sources {
		found, lookupErr := source.Lookup(ctx)
		if lookupErr != nil {
			err = lookupErr
			continue
		}

		if !found.Is4() {
			log.S(ctx).Warnw("source returned non IPv4 address", log.IP(found.String()), "source_type", source.Typename())
			err = fmt.Errorf("source %s returned non IPv4 address %s", source.Typename(), found)
			continue
		}

		ip, err = found, nil
		sourceType = source.Typename()
		break
	}

	if !ip.IsValid() {
		log.S(ctx).Errorw("all source failed, unable to get ip", zap.Error(err))
		if err == nil {
			return netip.Addr{}, fmt.Errorf("no IP source configured")
		}
		return netip.Addr{}, fmt.Errorf("all source failed: %w", err)
	}

	log.S(ctx).Infow("resolved ip", log.IP(ip.String()), "source_type", sourceType)
	return ip, nil
}

// IPResolver decides which address a run publishes: an explicit override, a
// cached address younger than CacheMaxAge, or a fresh lookup.
type IPResolver struct {
	chain sourceChain
	saver Saver
	now   func() time.Time
}

func NewIPResolver(ctx context.Context, c []config.IPSource, saver Saver) (*IPResolver, error) {
	r := &IPResolver{saver: saver, now: time.Now}

	for _, s := range c {
		ctx := log.SWith(ctx, log.Stage("init:source"), "type", s.Type, "source", s.Source)
		create, ok := sources.Sources[s.Type]
		if !ok {
			log.S(ctx).Errorw("unknown source type")
			return nil, fmt.Errorf("unknown source type %q", s.Type)
		}

		source, err := create(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("failed creating source: %w", err)
		}

		r.chain.sources = append(r.chain.sources, source)
	}

	return r, nil
}

// Fresh reports whether cache may be reused at now. A cache exactly
// CacheMaxAge old is stale.
func Fresh(cache *config.IPCache, now time.Time) bool {
	if cache == nil || cache.IP == "" {
		return false
	}
	return cache.LastSet.Time().After(now.Add(-CacheMaxAge))
}

// Resolve returns the address to publish. A fresh lookup is written to
// conf.IP and persisted before Resolve returns; lookup failures are returned
// as is, the stale cache is never used instead.
func (r *IPResolver) Resolve(ctx context.Context, conf *config.Config, opts ResolveOptions) (Resolution, error) {
	ctx = log.SWith(ctx, log.Stage("resolve"))

	if opts.SetIP != "" {
		if ip, err := netip.ParseAddr(opts.SetIP); err != nil || !ip.Is4() {
			log.S(ctx).Warnw("override is not an IPv4 address, using it anyway", log.IP(opts.SetIP))
		}
		return Resolution{IP: opts.SetIP, Origin: OriginOverride}, nil
	}

	now := r.now()
	if !opts.UpdateIP && Fresh(conf.IP, now) {
		log.S(ctx).Debugw("using cached ip", log.IP(conf.IP.IP), "last_set", conf.IP.LastSet)
		return Resolution{IP: conf.IP.IP, Origin: OriginCache}, nil
	}

	ip, err := r.chain.resolve(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed resolve ip: %w", err)
	}

	conf.IP = &config.IPCache{IP: ip.String(), LastSet: common.Timestamp(now)}
	if err := r.saver.Save(ctx, conf); err != nil {
		log.S(ctx).Errorw("failed persist ip cache", zap.Error(err))
		return Resolution{}, fmt.Errorf("failed persist ip cache: %w", err)
	}

	return Resolution{IP: ip.String(), Origin: OriginLookup}, nil
}
