// Package identitytime wraps identifier generation and wall-clock access
// behind small interfaces so the rest of galynx never depends on a concrete
// time source or UUID version directly.
package identitytime

import (
	"time"

	"github.com/google/uuid"
)

// Generator mints sortable, monotonic identifiers. The production
// implementation delegates to uuid.NewV7, which already implements the
// 48-bit-millisecond-prefix, monotonic-counter algorithm this package's
// callers rely on; Generator exists so call sites depend on an interface,
// not the uuid package directly.
type Generator interface {
	New() (uuid.UUID, error)
}

// UUIDv7Generator is the production Generator.
type UUIDv7Generator struct{}

// New returns a new UUIDv7 identifier.
func (UUIDv7Generator) New() (uuid.UUID, error) {
	return uuid.NewV7()
}

// Clock provides the current wall-clock time in milliseconds since epoch,
// used for token expiry, audit timestamps, and TTL bookkeeping.
type Clock interface {
	NowMS() uint64
}

// SystemClock is the production Clock.
type SystemClock struct{}

// NowMS returns the current time in milliseconds since epoch.
func (SystemClock) NowMS() uint64 {
	return uint64(time.Now().UnixMilli())
}
