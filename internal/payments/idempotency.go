package payments

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeriveIdempotencyKey returns the supplied key verbatim when present.
// Otherwise it derives a deterministic key from the user, the sorted series
// set, and the current minute, so retries of the same purchase within a
// minute collapse onto one order.
func DeriveIdempotencyKey(supplied string, userID uuid.UUID, seriesIDs []uuid.UUID, now time.Time) string {
	if trimmed := strings.TrimSpace(supplied); trimmed != "" {
		return trimmed
	}

	sorted := make([]string, 0, len(seriesIDs))
	for _, id := range seriesIDs {
		sorted = append(sorted, id.String())
	}
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(userID.String()))
	h.Write([]byte(strings.Join(sorted, ",")))
	h.Write([]byte(now.UTC().Truncate(time.Minute).Format(time.RFC3339)))
	return hex.EncodeToString(h.Sum(nil))
}
