// Package ids issues the identifiers used for stored records: organizations,
// users, roles, permissions, and patients all key on ULID strings so primary
// keys sort by creation time.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a fresh record identifier. Identifiers issued by one process are
// strictly increasing, so ordering by primary key matches insertion order.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
