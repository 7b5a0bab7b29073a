package cfdns

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func updatedNames(p *fakeProvider) []string {
	var names []string
	for _, u := range p.updates {
		names = append(names, u.name)
	}
	return names
}

func TestSyncScope(t *testing.T) {
	tests := []struct {
		name    string
		opts    SyncOptions
		want    []string
		skipped int
	}{
		{
			name: "everything",
			want: []string{"x.a.com", "y.a.com", "x.b.com"},
		},
		{
			name: "one zone",
			opts: SyncOptions{Zones: []string{"a.com"}},
			want: []string{"x.a.com", "y.a.com"},
		},
		{
			name:    "zone and domain",
			opts:    SyncOptions{Zones: []string{"a.com"}, Domains: []string{"x.a.com"}},
			want:    []string{"x.a.com"},
			skipped: 1,
		},
		{
			name:    "domain only",
			opts:    SyncOptions{Domains: []string{"x.b.com"}},
			want:    []string{"x.b.com"},
			skipped: 2,
		},
		{
			name: "unknown zone",
			opts: SyncOptions{Zones: []string{"c.com"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{}
			var out strings.Builder

			summary := NewSynchronizer(p, &out).Sync(context.Background(), sampleConfig(), "203.0.113.5", tt.opts)
			if got := updatedNames(p); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("updated %v, want %v", got, tt.want)
			}
			if summary.Updated != len(tt.want) || summary.Skipped != tt.skipped || summary.Failed != 0 {
				t.Errorf("unexpected summary %+v", summary)
			}
			if err := summary.Err(); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			for _, u := range p.updates {
				if u.ip != "203.0.113.5" {
					t.Errorf("record %s updated to %s", u.name, u.ip)
				}
			}
		})
	}
}

func TestSyncOutput(t *testing.T) {
	p := &fakeProvider{}
	var out strings.Builder

	NewSynchronizer(p, &out).Sync(context.Background(), sampleConfig(), "203.0.113.5", SyncOptions{})

	want := "\n" +
		"Updating subdomains on a.com\n" +
		"\tUpdated subdomain: x.a.com\n" +
		"\tUpdated subdomain: y.a.com\n" +
		"\n" +
		"Updating subdomains on b.com\n" +
		"\tUpdated subdomain: x.b.com\n" +
		"\n"
	if out.String() != want {
		t.Errorf("got output:\n%q\nwant:\n%q", out.String(), want)
	}

	if p.updates[0] != (update{zoneID: "za", recordID: "r1", name: "x.a.com", ip: "203.0.113.5"}) {
		t.Errorf("unexpected first update %+v", p.updates[0])
	}
}

func TestSyncDryRun(t *testing.T) {
	p := &fakeProvider{}
	var out strings.Builder

	summary := NewSynchronizer(p, &out).Sync(context.Background(), sampleConfig(), "203.0.113.5", SyncOptions{DryRun: true})
	if len(p.updates) != 0 {
		t.Fatalf("dry run contacted the provider: %+v", p.updates)
	}
	if summary.Updated != 3 {
		t.Errorf("expected 3 reported records, got %d", summary.Updated)
	}
	for _, r := range summary.Results {
		if !r.DryRun {
			t.Errorf("result %s not marked as dry run", r.Record)
		}
	}
	if !strings.HasPrefix(out.String(), "\nDRY RUN: NO CHANGES MADE\nUpdating subdomains on a.com\n") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestSyncContinuesAfterFailure(t *testing.T) {
	p := &fakeProvider{fail: map[string]error{"x.a.com": errBoom}}
	var out strings.Builder

	summary := NewSynchronizer(p, &out).Sync(context.Background(), sampleConfig(), "203.0.113.5", SyncOptions{})
	if got, want := updatedNames(p), []string{"y.a.com", "x.b.com"}; !reflect.DeepEqual(got, want) {
		t.Errorf("updated %v, want %v", got, want)
	}
	if summary.Failed != 1 || summary.Updated != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if summary.Err() == nil {
		t.Error("expected summary error")
	}
	if summary.Results[0].Err != errBoom {
		t.Errorf("expected failure recorded on x.a.com, got %+v", summary.Results[0])
	}
	if !strings.Contains(out.String(), "\tFailed to update subdomain: x.a.com (boom)\n") {
		t.Errorf("failure not reported:\n%s", out.String())
	}
}
