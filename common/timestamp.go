package common

import (
	"fmt"
	"time"
)

// legacyLayout is the zone-less ISO-8601 form written by earlier versions of the
// configuration file. It is read in local time.
const legacyLayout = "2006-01-02T15:04:05.999999999"

// Timestamp is a point in time stored as text in the configuration document.
type Timestamp time.Time

func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

func (t Timestamp) String() string {
	return time.Time(t).Format(time.RFC3339)
}

func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(time.Time(t).Format(time.RFC3339Nano)), nil
}

func (t *Timestamp) UnmarshalText(b []byte) error {
	s := string(b)
	if tt, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*t = Timestamp(tt)
		return nil
	}

	tt, err := time.ParseInLocation(legacyLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", s)
	}

	*t = Timestamp(tt)
	return nil
}
