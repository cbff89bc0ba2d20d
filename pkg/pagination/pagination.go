package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any keyset query can request.
	MaxLimit = 1000
)

// Params holds keyset pagination inputs. Rows are returned in ascending id
// order starting after AfterID.
type Params struct {
	Limit   int
	AfterID int64
}

// Page is one slice of a keyset scan.
type Page[T any] struct {
	Items   []T
	NextID  int64
	HasMore bool
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer returns the normalization result plus one to detect the next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// BuildPage trims the buffered row and computes the next keyset position.
func BuildPage[T any](rows []T, limit int, idOf func(T) int64) Page[T] {
	limit = NormalizeLimit(limit)
	page := Page[T]{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		page.HasMore = true
	}
	if n := len(page.Items); n > 0 {
		page.NextID = idOf(page.Items[n-1])
	}
	return page
}

// EncodeCursor builds an opaque cursor for the id a page ended on.
func EncodeCursor(afterID int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte("id:" + strconv.FormatInt(afterID, 10)))
}

// ParseCursor decodes a cursor produced by EncodeCursor. An empty cursor is 0.
func ParseCursor(value string) (int64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return 0, fmt.Errorf("decode cursor: %w", err)
	}
	raw, ok := strings.CutPrefix(string(decoded), "id:")
	if !ok {
		return 0, fmt.Errorf("invalid cursor format")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid cursor id %q", raw)
	}
	return id, nil
}
