package id

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string, lexicographically sortable by creation time.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// OrderRef returns a customer-facing order reference stamped with t.
func OrderRef(t time.Time) string {
	return "ORD-" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
