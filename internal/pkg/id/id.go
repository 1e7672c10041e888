package id

import (
	"github.com/oklog/ulid/v2"
)

// New returns a ULID string. ULIDs sort by creation time, which keeps user
// IDs ordered; flow nonces only need them to be unique.
func New() string {
	return ulid.Make().String()
}
