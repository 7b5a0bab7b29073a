package cfdns

import (
	"cfdns/config"
	"cfdns/ddns"
	"context"
	"errors"
	"net/http"
	"net/netip"
	"sync"
)

type update struct {
	zoneID   string
	recordID string
	name     string
	ip       string
}

// fakeProvider stands in for a Cloudflare account. tokens maps every known
// credential to the status a verify call answers with.
type fakeProvider struct {
	mu sync.Mutex

	tokens  map[string]int
	zones   []ddns.Zone
	records map[string][]ddns.Record
	listErr error
	fail    map[string]error

	token     string
	connected []string
	updates   []update
}

func (p *fakeProvider) connect(ctx context.Context, token string) (ddns.Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
	p.connected = append(p.connected, token)
	return p, nil
}

func (p *fakeProvider) VerifyCredential(ctx context.Context) (bool, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	status, ok := p.tokens[p.token]
	if !ok {
		return false, http.StatusUnauthorized, nil
	}
	return status == http.StatusOK, status, nil
}

func (p *fakeProvider) ListZones(ctx context.Context) ([]ddns.Zone, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.zones, nil
}

func (p *fakeProvider) ListAddressRecords(ctx context.Context, zoneID string) ([]ddns.Record, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.records[zoneID], nil
}

func (p *fakeProvider) UpdateAddressRecord(ctx context.Context, zoneID, recordID, name, ip string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[name]; err != nil {
		return err
	}
	p.updates = append(p.updates, update{zoneID: zoneID, recordID: recordID, name: name, ip: ip})
	return nil
}

type fakeSource struct {
	ip    string
	err   error
	calls int
}

func (s *fakeSource) Lookup(ctx context.Context) (netip.Addr, error) {
	s.calls++
	if s.err != nil {
		return netip.Addr{}, s.err
	}
	return netip.MustParseAddr(s.ip), nil
}

func (s *fakeSource) Typename() string {
	return "fake"
}

type fakeSaver struct {
	saved int
	last  *config.Config
	err   error
}

func (s *fakeSaver) Save(ctx context.Context, conf *config.Config) error {
	if s.err != nil {
		return s.err
	}
	s.saved++
	s.last = conf
	return nil
}

var errBoom = errors.New("boom")

func sampleConfig() *config.Config {
	return &config.Config{
		API: "0123456789abcdefghij",
		Domains: map[string]config.Zone{
			"a.com": {ID: "za", Names: map[string]string{
				"x.a.com": "r1",
				"y.a.com": "r2",
			}},
			"b.com": {ID: "zb", Names: map[string]string{
				"x.b.com": "r3",
			}},
		},
	}
}
