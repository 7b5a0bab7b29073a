package cfdns

import (
	"cfdns/config"
	"fmt"
	"io"
)

const fingerprintLength = 6

// Fingerprint keeps only the tail of a credential for display.
func Fingerprint(token string) string {
	if len(token) <= fingerprintLength {
		return token
	}
	return token[len(token)-fingerprintLength:]
}

// Describe prints a validated document: credential fingerprint, tracked zones
// with their records, and the IP cache when present.
func Describe(out io.Writer, conf *config.Config) {
	fmt.Fprintf(out, "API Key present: ...%s\n\n", Fingerprint(conf.API))

	for _, name := range sortedKeys(conf.Domains) {
		zone := conf.Domains[name]
		fmt.Fprintf(out, "Domain Name: %s\n", name)
		fmt.Fprintf(out, "Domain Zone ID: %s\n", zone.ID)
		for _, record := range sortedKeys(zone.Names) {
			fmt.Fprintf(out, "\t%s\t(ID: %s)\n", record, zone.Names[record])
		}
		fmt.Fprintln(out)
	}

	if conf.IP != nil {
		fmt.Fprintf(out, "Cached IP address: %s\n", conf.IP.IP)
		fmt.Fprintf(out, "Cache time: %s\n", conf.IP.LastSet)
	}
}
