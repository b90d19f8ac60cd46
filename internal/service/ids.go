package service

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// newID returns a ULID string. ULIDs sort by creation time.
func newID() string {
	return ulid.Make().String()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
