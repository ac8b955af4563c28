package repository

import (
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 10, 12, 30, 0, 123456789, time.UTC)
	s := FormatCursor(42, ts)

	c, ok, err := ParseCursor(s)
	if err != nil {
		t.Fatalf("ParseCursor(%q) error: %v", s, err)
	}
	if !ok {
		t.Fatalf("ParseCursor(%q) ok = false, want true", s)
	}
	if c.ID != 42 {
		t.Errorf("ID = %d, want 42", c.ID)
	}
	if !c.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", c.Timestamp, ts)
	}
}

func TestParseCursorEmpty(t *testing.T) {
	c, ok, err := ParseCursor("")
	if err != nil {
		t.Fatalf("ParseCursor(\"\") error: %v", err)
	}
	if ok {
		t.Errorf("ok = true, want false for empty cursor")
	}
	if c.ID != 0 {
		t.Errorf("ID = %d, want 0", c.ID)
	}
}

func TestParseCursorInvalid(t *testing.T) {
	for _, s := range []string{"42", "abc:123", "42:xyz", ":"} {
		if _, _, err := ParseCursor(s); err == nil {
			t.Errorf("ParseCursor(%q) expected error, got nil", s)
		}
	}
}
