package common

import (
	"errors"
	"fmt"
	"strings"
)

type Family int

const (
	IPv4 Family = iota
	IPv6
)

func (f *Family) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "4", "v4", "ipv4", "a":
		*f = IPv4
	case "6", "v6", "ipv6", "aaaa":
		*f = IPv6
	default:
		return errors.New("invalid IP family")
	}
	return nil
}

func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	default:
		return fmt.Sprintf("unknown<%d>", int(f))
	}
}

// RecordType is the DNS record type carrying addresses of this family.
func (f Family) RecordType() string {
	if f == IPv6 {
		return "AAAA"
	}
	return "A"
}
