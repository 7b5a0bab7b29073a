package sources

import (
	"cfdns/common"
	"cfdns/log"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"reflect"
)

const userAgent = "cfdns"

type transportDialer func(ctx context.Context, network, addr string) (net.Conn, error)

func contextClient(ctx context.Context) *http.Client {
	if ctxClient := ctx.Value(common.HttpClientKey); ctxClient != nil {
		return ctxClient.(*http.Client)
	}
	return http.DefaultClient
}

func wrapClientDialer(ctx context.Context, client *http.Client, wrapperBuilder func(upstream transportDialer) transportDialer) (*http.Client, error) {
	if client == nil {
		client = http.DefaultClient
	}

	transport := http.DefaultTransport.(*http.Transport)
	if client.Transport != nil {
		t, ok := client.Transport.(*http.Transport)
		if !ok {
			log.S(ctx).Errorw("found unknown custom http.Client.Transport",
				"transport_type", reflect.TypeOf(client.Transport).String())
			return nil, fmt.Errorf("unknown custom http.Client.Transport")
		}

		transport = t
	}

	transport = transport.Clone()
	transport.DialContext = wrapperBuilder(transport.DialContext)

	if transport.DialTLSContext != nil {
		transport.DialTLSContext = wrapperBuilder(transport.DialTLSContext)
	}

	clientCopy := *client
	clientCopy.Transport = transport
	return &clientCopy, nil
}

// familyDialer pins outgoing connections to the given address family.
func familyDialer(family *common.Family) func(upstream transportDialer) transportDialer {
	return func(upstream transportDialer) transportDialer {
		return func(ctx context.Context, network, addr string) (net.Conn, error) {
			switch {
			case family == nil:
				// pass
			case *family == common.IPv4:
				network += "4"
			case *family == common.IPv6:
				network += "6"
			}

			return upstream(ctx, network, addr)
		}
	}
}

// checkFamily accepts ip when it belongs to family, or to any family when
// family is nil. IPv4-mapped IPv6 addresses are unmapped first.
func checkFamily(ctx context.Context, ip netip.Addr, family *common.Family) (netip.Addr, error) {
	switch {
	case ip.Zone() != "":
		log.S(ctx).Warnw("found zone in IP", log.IP(ip.String()), "zone", ip.Zone())
		return netip.Addr{}, fmt.Errorf(`unsupported: found zone in IP`)

	case ip.Is4In6():
		ip = ip.Unmap()
	}

	switch {
	case family == nil:
		return ip, nil
	case ip.Is4() && *family == common.IPv4:
		return ip, nil
	case ip.Is6() && *family == common.IPv6:
		return ip, nil
	default:
		log.S(ctx).Warnw("mismatched IP family", log.IP(ip.String()), "family", family.String())
		return netip.Addr{}, fmt.Errorf(`mismatched IP family`)
	}
}
