package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cursor encodes a keyset pagination position as "id:unixNano". Ordering is
// (created_at DESC, id DESC), so a page continues where (created_at, id) is
// strictly less than the cursor position.
type Cursor struct {
	ID        int64
	Timestamp time.Time
}

// ParseCursor parses an "id:unixNano" cursor string. An empty string returns
// a zero Cursor and ok=false, meaning start from the top.
func ParseCursor(s string) (Cursor, bool, error) {
	if s == "" {
		return Cursor{}, false, nil
	}
	idStr, tsStr, found := strings.Cut(s, ":")
	if !found {
		return Cursor{}, false, fmt.Errorf("invalid cursor %q", s)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return Cursor{}, false, fmt.Errorf("invalid cursor id %q", idStr)
	}
	nanos, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return Cursor{}, false, fmt.Errorf("invalid cursor timestamp %q", tsStr)
	}
	return Cursor{ID: id, Timestamp: time.Unix(0, nanos)}, true, nil
}

// FormatCursor builds the cursor string for the last item of a page.
func FormatCursor(id int64, ts time.Time) string {
	return strconv.FormatInt(id, 10) + ":" + strconv.FormatInt(ts.UnixNano(), 10)
}
