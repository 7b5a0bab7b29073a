package ddns

import (
	"context"
)

// Provider is an authenticated DNS provider session. A value is bound to the
// credential it was built with.
type Provider interface {
	// VerifyCredential reports whether the bound credential is usable, together
	// with the HTTP status the provider answered with.
	VerifyCredential(ctx context.Context) (valid bool, status int, err error)
	ListZones(ctx context.Context) ([]Zone, error)
	// ListAddressRecords returns the A records of a zone.
	ListAddressRecords(ctx context.Context, zoneID string) ([]Record, error)
	UpdateAddressRecord(ctx context.Context, zoneID, recordID, name, ip string) error
}

// Connector builds a Provider for a credential.
type Connector func(ctx context.Context, token string) (Provider, error)

type Zone struct {
	Name string
	ID   string
}

type Record struct {
	Name string
	ID   string
}
