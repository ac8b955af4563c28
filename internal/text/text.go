// Package text holds the message-scanning and presentation helpers shared by
// the post pipeline: hashtag/mention extraction at save and render time,
// avatar initials, and relative timestamps.
package text

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	hashtagRe = regexp.MustCompile(`\B#(\w+)`)
	mentionRe = regexp.MustCompile(`\B@(\w+(?:-\w+)*)`)
)

// Hashtags returns the distinct #tags in a message, lowercased, without the
// leading '#', in order of first appearance.
func Hashtags(message string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, m := range hashtagRe.FindAllStringSubmatch(message, -1) {
		tag := strings.ToLower(m[1])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// Mentions returns the distinct @handles in a message without the leading
// '@', in order of first appearance. Handles may contain hyphens (GitHub
// style). Whether a handle resolves to a real user is the caller's problem.
func Mentions(message string) []string {
	var handles []string
	seen := make(map[string]struct{})
	for _, m := range mentionRe.FindAllStringSubmatch(message, -1) {
		handle := m[1]
		if _, ok := seen[handle]; ok {
			continue
		}
		seen[handle] = struct{}{}
		handles = append(handles, handle)
	}
	return handles
}

// Initials builds the one- or two-letter avatar fallback from a display
// name: the first letter of each of the first two space-separated tokens,
// uppercased. "john samuel" -> "JS", "john" -> "J".
func Initials(name string) string {
	var b strings.Builder
	for i, tok := range strings.Fields(name) {
		if i == 2 {
			break
		}
		r := []rune(tok)[0]
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// RelativeTime renders a timestamp the way the feed shows it: coarse
// relative buckets under a day, a short date from 24 hours on.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < 45*time.Second:
		return "a few seconds ago"
	case d < 90*time.Second:
		return "a minute ago"
	case d < 45*time.Minute:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 90*time.Minute:
		return "an hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return t.Format("Jan 2, 2006")
	}
}
