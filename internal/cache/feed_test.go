package cache

import "testing"

func TestFeedEntryMemberRoundTrip(t *testing.T) {
	tests := []struct {
		entry  FeedEntry
		member string
	}{
		{FeedEntry{PostID: 42}, "42"},
		{FeedEntry{PostID: 42, RepostedBy: 7}, "42:7"},
	}
	for _, tt := range tests {
		if got := tt.entry.Member(); got != tt.member {
			t.Errorf("Member() = %q, want %q", got, tt.member)
		}
		parsed, err := ParseMember(tt.member)
		if err != nil {
			t.Fatalf("ParseMember(%q): %v", tt.member, err)
		}
		if parsed.PostID != tt.entry.PostID || parsed.RepostedBy != tt.entry.RepostedBy {
			t.Errorf("ParseMember(%q) = %+v, want %+v", tt.member, parsed, tt.entry)
		}
	}
}

func TestParseMemberRejectsGarbage(t *testing.T) {
	for _, member := range []string{"", "abc", "12:xy", ":5"} {
		if _, err := ParseMember(member); err == nil {
			t.Errorf("ParseMember(%q) succeeded, want error", member)
		}
	}
}
