package ddns

import (
	"cfdns/common"
	"cfdns/log"
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	cfapi "github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"
)

const (
	DefaultTTL       = 60
	DefaultUserAgent = "cfdns"
)

type CloudflareConfig struct {
	APIToken string
	// TTL applied to updated records, DefaultTTL when zero.
	TTL int
	// BaseURL overrides the API root, e.g. https://api.cloudflare.com/client/v4.
	BaseURL   string
	UserAgent string
}

type Cloudflare struct {
	api    *cfapi.API
	ttl    int
	status *statusRecorder
}

type logger struct {
	ctx context.Context
}

func (l *logger) Printf(format string, v ...interface{}) {
	log.S(l.ctx).Debugf(format, v...)
}

// statusRecorder remembers the HTTP status of the last response passing
// through it. cloudflare-go only exposes it through typed errors.
type statusRecorder struct {
	next http.RoundTripper
	last atomic.Int32
}

func (s *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	s.last.Store(0)
	resp, err := s.next.RoundTrip(req)
	if resp != nil {
		s.last.Store(int32(resp.StatusCode))
	}
	return resp, err
}

// NewCloudflare builds a session bound to c.APIToken. Every request carries the
// token as a bearer credential and identifies the client by its User-Agent.
func NewCloudflare(ctx context.Context, c CloudflareConfig) (*Cloudflare, error) {
	ctx = log.SWith(ctx, "type", "cloudflare")

	client := http.DefaultClient
	if ctxClient := ctx.Value(common.HttpClientKey); ctxClient != nil {
		client = ctxClient.(*http.Client)
	}

	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	recorder := &statusRecorder{next: transport}
	clientCopy := *client
	clientCopy.Transport = recorder

	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	opts := []cfapi.Option{
		cfapi.HTTPClient(&clientCopy),
		cfapi.UsingLogger(&logger{ctx: ctx}),
		cfapi.UserAgent(ua),
		// failures surface to the caller, nothing is retried
		cfapi.UsingRetryPolicy(0, 0, 0),
	}
	if c.BaseURL != "" {
		opts = append(opts, cfapi.BaseURL(c.BaseURL))
	}

	api, err := cfapi.NewWithAPIToken(c.APIToken, opts...)
	if err != nil {
		log.S(ctx).Errorw("failed create cloudflare API", zap.Error(err))
		return nil, fmt.Errorf("failed create cloudflare API: %w", err)
	}

	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cloudflare{api: api, ttl: ttl, status: recorder}, nil
}

// CloudflareConnector returns a Connector building sessions from base with the
// token replaced.
func CloudflareConnector(base CloudflareConfig) Connector {
	return func(ctx context.Context, token string) (Provider, error) {
		c := base
		c.APIToken = token
		return NewCloudflare(ctx, c)
	}
}

func (d *Cloudflare) VerifyCredential(ctx context.Context) (bool, int, error) {
	ctx = log.SWith(ctx, "action", "verify")

	result, err := d.api.VerifyAPIToken(ctx)
	status := int(d.status.last.Load())
	if err != nil {
		if status != 0 && status != http.StatusOK {
			log.S(ctx).Infow("token rejected", "status", status, zap.Error(err))
			return false, status, nil
		}

		log.S(ctx).Warnw("failed verify token", zap.Error(err))
		return false, 0, fmt.Errorf("failed verify token: %w", err)
	}

	if result.Status != "active" {
		log.S(ctx).Infow("token not active", "status", status, "token_status", result.Status)
		return false, status, nil
	}

	log.S(ctx).Debugw("token verified", "status", status)
	return true, status, nil
}

func (d *Cloudflare) ListZones(ctx context.Context) ([]Zone, error) {
	ctx = log.SWith(ctx, "action", "list_zones")

	cfZones, err := d.api.ListZones(ctx)
	if err != nil {
		log.S(ctx).Errorw("failed list zones", "status", d.status.last.Load(), zap.Error(err))
		return nil, fmt.Errorf("failed list zones: %w", err)
	}

	zones := make([]Zone, 0, len(cfZones))
	for _, z := range cfZones {
		zones = append(zones, Zone{Name: z.Name, ID: z.ID})
	}

	log.S(ctx).Debugw("zones listed", "count", len(zones))
	return zones, nil
}

func (d *Cloudflare) ListAddressRecords(ctx context.Context, zoneID string) ([]Record, error) {
	ctx = log.SWith(ctx, "action", "list_records", "zone_id", zoneID)

	cfRecords, _, err := d.api.ListDNSRecords(ctx, cfapi.ZoneIdentifier(zoneID), cfapi.ListDNSRecordsParams{
		Type: common.IPv4.RecordType(),
	})
	if err != nil {
		log.S(ctx).Errorw("failed list records", "status", d.status.last.Load(), zap.Error(err))
		return nil, fmt.Errorf("failed list records: %w", err)
	}

	records := make([]Record, 0, len(cfRecords))
	for _, r := range cfRecords {
		records = append(records, Record{Name: r.Name, ID: r.ID})
	}

	log.S(ctx).Debugw("records listed", "count", len(records))
	return records, nil
}

func (d *Cloudflare) UpdateAddressRecord(ctx context.Context, zoneID, recordID, name, ip string) error {
	ctx = log.SWith(ctx,
		"action", "update",
		"zone_id", zoneID,
		"record_id", recordID,
		"domain", name,
		log.IP(ip))

	record, err := d.api.UpdateDNSRecord(ctx, cfapi.ZoneIdentifier(zoneID), cfapi.UpdateDNSRecordParams{
		ID:      recordID,
		Type:    common.IPv4.RecordType(),
		Name:    name,
		Content: ip,
		TTL:     d.ttl,
	})
	if err != nil {
		log.S(ctx).Warnw("failed update record", "status", d.status.last.Load(), zap.Error(err))
		return fmt.Errorf("failed update record: %w", err)
	}

	log.S(ctx).Debugw("record updated", "content", record.Content, "ttl", record.TTL)
	return nil
}
