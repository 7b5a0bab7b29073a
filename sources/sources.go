package sources

import (
	"cfdns/config"
	"context"
	"net/netip"
)

// Interface looks up the public address of this machine.
type Interface interface {
	Lookup(ctx context.Context) (netip.Addr, error)
	Typename() string
}

var Sources = map[string]func(ctx context.Context, source config.IPSource) (Interface, error){
	"simple":   newSimple,
	"cf_trace": newCloudflareTrace,
}
