package sources

import (
	"cfdns/common"
	"cfdns/config"
	"cfdns/log"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxReadCloudflareTrace = 1024
const defaultCloudflareDomain = "www.cloudflare.com"

// cloudflareTrace reads the ip= line of a Cloudflare /cdn-cgi/trace page.
type cloudflareTrace struct {
	config.IPSourceCloudflareTraceConfig `mapstructure:",squash"`

	scheme string
	host   string
}

func (s *cloudflareTrace) Typename() string {
	return "cf_trace"
}

func (s *cloudflareTrace) wrapDialer(upstream transportDialer) transportDialer {
	pinned := familyDialer(s.Type)(upstream)
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if s.ForceAddress != "" {
			_, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			addr = net.JoinHostPort(s.ForceAddress, port)
		}

		return pinned(ctx, network, addr)
	}
}

func (s *cloudflareTrace) Lookup(ctx context.Context) (result netip.Addr, err error) {
	client := contextClient(ctx)
	timeout := time.Duration(s.Timeout)

	ctx = log.SWith(ctx,
		"host", s.host,
		"family", s.Type,
		"force_addr", s.ForceAddress,
		"timeout", timeout)

	defer func() {
		if err == nil {
			log.S(ctx).Debugw("got ip", log.IP(result.String()))
		}
	}()

	if s.Timeout > 0 {
		tCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		ctx = tCtx
	}

	if s.ForceAddress != "" || s.Type != nil {
		log.S(ctx).Debug("patching http.Client")
		client, err = wrapClientDialer(ctx, client, s.wrapDialer)
		if err != nil {
			return netip.Addr{}, err
		}
	}

	url := fmt.Sprintf("%s://%s/cdn-cgi/trace", s.scheme, s.host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.S(ctx).Errorw("new request failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf("new request failed: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		log.S(ctx).Warnw("connection failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf(`connection failed: %w`, err)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.S(ctx).Warnw("close body failed", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.S(ctx).Warnw("unexpected response status", "status", resp.StatusCode)
		return netip.Addr{}, fmt.Errorf("unexpected response status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReadCloudflareTrace))
	if err != nil {
		log.S(ctx).Warnw("receiving response failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf(`failed receiving response: %w`, err)
	}

	ipString := ""
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "ip=") {
			ipString = strings.TrimSpace(strings.TrimPrefix(line, "ip="))
			break
		}
	}

	if ipString == "" {
		log.S(ctx).Warnw("no IP found in response", log.ByteField("body", data))
		return netip.Addr{}, fmt.Errorf("no IP found in response")
	}

	ip, err := netip.ParseAddr(ipString)
	if err != nil {
		log.S(ctx).Errorw("found bad IP", "ip", ipString, zap.Error(err))
		return netip.Addr{}, fmt.Errorf(`found bad IP: %w`, err)
	}

	return checkFamily(ctx, ip, s.Type)
}

// newCloudflareTrace accepts a host name, an IP literal, or a full http(s) base
// URL as source. An IP literal is dialed directly while the request still names
// www.cloudflare.com, unless ip_host is set.
func newCloudflareTrace(ctx context.Context, config config.IPSource) (Interface, error) {
	ctx = log.SWith(ctx, "type", "cf_trace")

	source := config.Source
	if source == "" {
		source = defaultCloudflareDomain
	}

	scheme := "https"
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(source, prefix) {
			scheme = strings.TrimSuffix(prefix, "://")
			source = strings.TrimSuffix(strings.TrimPrefix(source, prefix), "/")
		}
	}

	host, isIP := common.DetectNormalizeAddr(source)
	s := &cloudflareTrace{scheme: scheme, host: host}

	if err := common.WeakDecodeMap(config.Config, s); err != nil {
		log.S(ctx).Errorw("bad config", zap.Error(err), "config", config.Config)
		return nil, fmt.Errorf(`bad config: %w`, err)
	}

	// A records only carry IPv4
	if s.Type == nil {
		family := common.IPv4
		s.Type = &family
	}

	if !s.IPHost && isIP {
		s.ForceAddress = s.host
		s.host = defaultCloudflareDomain
	}

	if strings.Contains(s.host, ":") && !strings.HasPrefix(s.host, "[") {
		if _, isIP := common.DetectNormalizeAddr(s.host); isIP {
			s.host = fmt.Sprintf("[%s]", s.host)
		}
	}

	return s, nil
}
