package cfdns

import (
	"cfdns/common"
	"cfdns/config"
	"os"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	tests := map[string]string{
		"0123456789abcdefghij": "efghij",
		"abcdef":               "abcdef",
		"abc":                  "abc",
		"":                     "",
	}

	for token, want := range tests {
		if got := Fingerprint(token); got != want {
			t.Errorf("Fingerprint(%q) = %q, want %q", token, got, want)
		}
	}
}

func TestDescribe(t *testing.T) {
	conf := sampleConfig()

	var out strings.Builder
	Describe(&out, conf)

	want := "API Key present: ...efghij\n\n" +
		"Domain Name: a.com\n" +
		"Domain Zone ID: za\n" +
		"\tx.a.com\t(ID: r1)\n" +
		"\ty.a.com\t(ID: r2)\n" +
		"\n" +
		"Domain Name: b.com\n" +
		"Domain Zone ID: zb\n" +
		"\tx.b.com\t(ID: r3)\n" +
		"\n"
	if out.String() != want {
		t.Errorf("got:\n%q\nwant:\n%q", out.String(), want)
	}

	last := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	conf.IP = &config.IPCache{IP: "203.0.113.5", LastSet: common.Timestamp(last)}
	out.Reset()
	Describe(&out, conf)

	if !strings.HasSuffix(out.String(), "Cached IP address: 203.0.113.5\nCache time: 2026-10-16T09:30:00Z\n") {
		t.Errorf("cache not described:\n%s", out.String())
	}
}
