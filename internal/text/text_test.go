package text

import (
	"reflect"
	"testing"
	"time"
)

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"john samuel", "JS"},
		{"john", "J"},
		{"john samuel brad", "JS"}, // only first two tokens contribute
		{"", ""},
		{"  padded   name ", "PN"},
	}
	for _, tt := range tests {
		if got := Initials(tt.name); got != tt.want {
			t.Errorf("Initials(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		age  time.Duration
		want string
	}{
		{0, "a few seconds ago"},
		{30 * time.Second, "a few seconds ago"},
		{time.Minute, "a minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{time.Hour, "an hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{25 * time.Hour, "Mar 9, 2024"}, // beyond a day: short date
	}
	for _, tt := range tests {
		if got := RelativeTime(now.Add(-tt.age), now); got != tt.want {
			t.Errorf("RelativeTime(now-%v) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

func TestHashtags(t *testing.T) {
	tests := []struct {
		message string
		want    []string
	}{
		{"shipping #golang today", []string{"golang"}},
		{"#Golang and #golang again", []string{"golang"}}, // case-folded dedupe
		{"#a #b #a", []string{"a", "b"}},
		{"no tags here", nil},
		{"not#atag but #real_tag9", []string{"real_tag9"}},
	}
	for _, tt := range tests {
		if got := Hashtags(tt.message); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Hashtags(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestMentions(t *testing.T) {
	tests := []struct {
		message string
		want    []string
	}{
		{"hey @alice look", []string{"alice"}},
		{"@alice @bob @alice", []string{"alice", "bob"}},
		{"hyphenated @mary-jane works", []string{"mary-jane"}},
		{"email bob@example.com is not a mention", nil},
		{"nothing to see", nil},
	}
	for _, tt := range tests {
		if got := Mentions(tt.message); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Mentions(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}
