package main

import (
	"cfdns/cfdns"
	"cfdns/config"
	"cfdns/ddns"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type recordingProvider struct {
	mu      sync.Mutex
	updates []string
}

func (p *recordingProvider) VerifyCredential(ctx context.Context) (bool, int, error) {
	return true, 200, nil
}

func (p *recordingProvider) ListZones(ctx context.Context) ([]ddns.Zone, error) {
	return nil, nil
}

func (p *recordingProvider) ListAddressRecords(ctx context.Context, zoneID string) ([]ddns.Record, error) {
	return nil, nil
}

func (p *recordingProvider) UpdateAddressRecord(ctx context.Context, zoneID, recordID, name, ip string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if name == "broken.example.com" {
		return errors.New("rejected")
	}
	p.updates = append(p.updates, name+"="+ip)
	return nil
}

func newTestApp(t *testing.T, conf *config.Config, input string) (*app, *strings.Builder, *recordingProvider) {
	t.Helper()

	store := config.NewStore(filepath.Join(t.TempDir(), "domains.json"))
	if conf != nil {
		if err := store.Save(context.Background(), conf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	out := &strings.Builder{}
	provider := &recordingProvider{}
	a := &app{
		store: store,
		connect: func(ctx context.Context, token string) (ddns.Provider, error) {
			return provider, nil
		},
		prompt: cfdns.NewPrompter(strings.NewReader(input), out),
		out:    out,
	}
	return a, out, provider
}

func testConfig() *config.Config {
	return &config.Config{
		API: "token-abcdef123456",
		Domains: map[string]config.Zone{
			"example.com": {ID: "z1", Names: map[string]string{
				"www.example.com":    "r1",
				"broken.example.com": "r2",
			}},
		},
	}
}

func TestDispatchUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no command", nil, exitUsage},
		{"unknown command", []string{"serve"}, exitUsage},
		{"config without action", []string{"config"}, exitUsage},
		{"unknown action", []string{"config", "delete"}, exitUsage},
		{"bad flag", []string{"run", "--nope"}, exitUsage},
		{"extra argument", []string{"run", "now"}, exitUsage},
		{"help", []string{"run", "-h"}, exitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newTestApp(t, nil, "")
			if got := a.dispatch(context.Background(), tt.args); got != tt.want {
				t.Errorf("got exit code %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConfigNotImplemented(t *testing.T) {
	tests := map[string]string{
		"edit":    "This isn't implemented yet! Use 'config create' to make it from scratch\n",
		"backup":  "This isn't implemented yet! Manually copy the 'domains.json' file to back it up\n",
		"restore": "This isn't implemented yet! Manually overwrite the 'domains.json' file with a backup to restore it\n",
	}

	for action, want := range tests {
		t.Run(action, func(t *testing.T) {
			a, out, _ := newTestApp(t, nil, "")
			if code := a.dispatch(context.Background(), []string{"config", action}); code != exitOK {
				t.Errorf("got exit code %d", code)
			}
			if out.String() != want {
				t.Errorf("got %q, want %q", out.String(), want)
			}
		})
	}
}

func TestConfigList(t *testing.T) {
	a, out, _ := newTestApp(t, testConfig(), "")
	if code := a.dispatch(context.Background(), []string{"config", "list"}); code != exitOK {
		t.Fatalf("got exit code %d\n%s", code, out.String())
	}
	if !strings.HasPrefix(out.String(), "API Key present: ...123456\n\nDomain Name: example.com\n") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	a, out, _ = newTestApp(t, nil, "")
	if code := a.dispatch(context.Background(), []string{"config", "list"}); code != exitFailure {
		t.Errorf("got exit code %d without config", code)
	}
	if out.String() != "No configuration file present\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestConfigCreateDeclined(t *testing.T) {
	a, out, _ := newTestApp(t, testConfig(), "no\n")
	if code := a.dispatch(context.Background(), []string{"config", "create", "-b"}); code != exitFailure {
		t.Errorf("got exit code %d", code)
	}
	if !strings.Contains(out.String(), "A backup will NOT be made. (Y/N) ") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunCommand(t *testing.T) {
	a, out, provider := newTestApp(t, testConfig(), "")

	code := a.dispatch(context.Background(), []string{"run", "-i", "192.0.2.1", "-d", "www.example.com"})
	if code != exitOK {
		t.Fatalf("got exit code %d\n%s", code, out.String())
	}
	if len(provider.updates) != 1 || provider.updates[0] != "www.example.com=192.0.2.1" {
		t.Errorf("unexpected updates %v", provider.updates)
	}

	code = a.dispatch(context.Background(), []string{"run", "--set-ip", "192.0.2.1"})
	if code != exitFailure {
		t.Errorf("expected failure exit code with a rejected record, got %d", code)
	}
	if !strings.Contains(out.String(), "\tFailed to update subdomain: broken.example.com") {
		t.Errorf("failure not reported:\n%s", out.String())
	}

	out.Reset()
	code = a.dispatch(context.Background(), []string{"run", "--dry-run", "-i", "192.0.2.1", "-z", "example.com"})
	if code != exitOK {
		t.Errorf("got exit code %d", code)
	}
	if !strings.Contains(out.String(), "DRY RUN: NO CHANGES MADE") {
		t.Errorf("dry run not reported:\n%s", out.String())
	}
}
