package storage

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Cursor is the decoded form of the literal "<created_at_ms>:<id_decimal>"
// pagination token. Both Store implementations must produce and consume the
// identical string encoding so cursors are portable between backends.
type Cursor struct {
	CreatedAt uint64
	ID        uuid.UUID
}

// String renders the cursor in the canonical wire format.
func (c Cursor) String() string {
	return fmt.Sprintf("%d:%s", c.CreatedAt, uuidToDecimal(c.ID))
}

// MarshalJSON renders the cursor as its canonical string, not its field
// struct, so API responses carry an opaque token clients round-trip as-is.
func (c Cursor) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts the canonical string form.
func (c *Cursor) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCursor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCursor decodes the canonical wire format. A malformed cursor is an
// InvalidInput at the API boundary, not a storage concern, so this returns a
// plain error for the caller to wrap.
func ParseCursor(s string) (Cursor, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Cursor{}, fmt.Errorf("malformed cursor %q", s)
	}
	createdAt, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor timestamp: %w", err)
	}
	id, err := decimalToUUID(parts[1])
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor id: %w", err)
	}
	return Cursor{CreatedAt: createdAt, ID: id}, nil
}

// Before reports whether (createdAt, id) sorts strictly before the cursor
// under the descending (created_at, id) total order spec'd for every
// paginated listing.
func (c Cursor) Before(createdAt uint64, id uuid.UUID) bool {
	if createdAt != c.CreatedAt {
		return createdAt < c.CreatedAt
	}
	a := new(big.Int).SetBytes(id[:])
	b := new(big.Int).SetBytes(c.ID[:])
	return a.Cmp(b) < 0
}

// CompareIDs returns -1, 0, or 1 as a is numerically less than, equal to, or
// greater than b, treating each UUID as a 128-bit unsigned integer.
func CompareIDs(a, b uuid.UUID) int {
	x := new(big.Int).SetBytes(a[:])
	y := new(big.Int).SetBytes(b[:])
	return x.Cmp(y)
}

func uuidToDecimal(id uuid.UUID) string {
	n := new(big.Int).SetBytes(id[:])
	return n.String()
}

func decimalToUUID(s string) (uuid.UUID, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return uuid.UUID{}, fmt.Errorf("invalid decimal id %q", s)
	}
	if n.Sign() < 0 {
		return uuid.UUID{}, fmt.Errorf("invalid decimal id %q", s)
	}
	b := n.Bytes()
	if len(b) > 16 {
		return uuid.UUID{}, fmt.Errorf("cursor id overflows 128 bits")
	}
	var id uuid.UUID
	copy(id[16-len(b):], b)
	return id, nil
}

const defaultLimit = 50
const maxLimit = 100
const minLimit = 1

// ClampLimit clamps a requested page size to [1, 100], defaulting to 50 when
// zero (unspecified) or negative.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit < minLimit {
		return minLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
