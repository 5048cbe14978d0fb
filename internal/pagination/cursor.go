// Package pagination implements the opaque cursor tokens used to
// resume keyset listing scans. A cursor encodes the sort key and the
// id tie-break of the last row seen; listings are always ordered by
// (sort key, id) in one fixed direction, so "the next page" is every
// row strictly after that position. Clients never see the decoded
// form.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/playvault/marketplace-backend/internal/entities"
)

// Cursor is the decoded position of a row in the listing order.
type Cursor struct {
	SortKey    time.Time `json:"k"`
	TieBreakID string    `json:"id"`
}

// Encode serializes the cursor as a base64 JSON token. Encoding is
// deterministic for a given position and always reversible by Decode.
func Encode(sortKey time.Time, tieBreakID string) (string, error) {
	if tieBreakID == "" {
		return "", fmt.Errorf("%w: missing tie-break id", entities.ErrInvalidCursor)
	}

	cursorBytes, err := json.Marshal(Cursor{SortKey: sortKey.UTC(), TieBreakID: tieBreakID})
	if err != nil {
		return "", fmt.Errorf("marshaling cursor: %w", err)
	}

	return base64.URLEncoding.EncodeToString(cursorBytes), nil
}

// Decode parses a token produced by Encode. Any malformed, truncated
// or tampered token fails with entities.ErrInvalidCursor; it never
// silently yields a wrong position.
func Decode(token string) (Cursor, error) {
	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: decode failed: %w", entities.ErrInvalidCursor, err)
	}

	var cur Cursor
	if err := json.Unmarshal(decoded, &cur); err != nil {
		return Cursor{}, fmt.Errorf("%w: unmarshal failed: %w", entities.ErrInvalidCursor, err)
	}

	if cur.TieBreakID == "" {
		return Cursor{}, fmt.Errorf("%w: missing tie-break id", entities.ErrInvalidCursor)
	}
	if cur.SortKey.IsZero() {
		return Cursor{}, fmt.Errorf("%w: missing sort key", entities.ErrInvalidCursor)
	}

	return cur, nil
}
