package sources

import (
	"cfdns/common"
	"cfdns/config"
	"cfdns/log"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"regexp"
	"time"

	"go.uber.org/zap"
)

const maxReadSimple = 4 * 1024

var ipRegex = map[common.Family]*regexp.Regexp{
	common.IPv4: regexp.MustCompile(`(?:[0-9]{1,3}\.){3}[0-9]{1,3}`),
	common.IPv6: regexp.MustCompile(`[0-9A-Fa-f]{0,4}(?::[0-9A-Fa-f]{0,4}){2,7}(?:(?:[0-9]{1,3}\.){3}[0-9]{1,3})?`),
}

// simple queries an IP echo service which answers with the caller's address
// somewhere in a short plain text body, e.g. http://ipecho.net/plain.
type simple struct {
	config.IPSourceSimpleConfig `mapstructure:",squash"`

	url string
}

func (s *simple) Typename() string {
	return "simple"
}

func (s *simple) Lookup(ctx context.Context) (result netip.Addr, err error) {
	timeout := time.Duration(s.Timeout)

	log.S(ctx).Debug("patching http.Client")

	client, err := wrapClientDialer(ctx, contextClient(ctx), familyDialer(&s.Type))
	if err != nil {
		return netip.Addr{}, err
	}

	ctx = log.SWith(ctx, "url", s.url, "family", s.Type, "timeout", timeout)

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

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		log.S(ctx).Errorw("new request failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf("new request failed: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "no-cache")

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

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReadSimple))
	if err != nil {
		log.S(ctx).Warnw("receiving response failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf(`failed receiving response: %w`, err)
	}

	ipData := ipRegex[s.Type].Find(data)
	if ipData == nil {
		log.S(ctx).Warnw("no IP found in response", log.ByteField("body", data))
		return netip.Addr{}, fmt.Errorf("no IP found in response")
	}

	ip, err := netip.ParseAddr(string(ipData))
	if err != nil {
		log.S(ctx).Warnw("found bad IP", "ip", string(ipData), zap.Error(err))
		return netip.Addr{}, fmt.Errorf(`found bad IP: %w`, err)
	}

	return checkFamily(ctx, ip, &s.Type)
}

func newSimple(ctx context.Context, config config.IPSource) (Interface, error) {
	ctx = log.SWith(ctx, "type", "simple")

	if config.Source == "" {
		log.S(ctx).Errorw("bad config: missing source url")
		return nil, fmt.Errorf(`bad config: missing source url`)
	}

	s := &simple{url: config.Source}
	if err := common.WeakDecodeMap(config.Config, s); err != nil {
		log.S(ctx).Errorw("bad config", zap.Error(err), "config", config.Config)
		return nil, fmt.Errorf(`bad config: %w`, err)
	}

	return s, nil
}
