// Package identity matches Huly issues to beads issues without a shared key:
// by an identifier embedded in free text, or by a normalized title.
package identity

import (
	"regexp"
	"strings"

	"github.com/hulysync/beads-bridge/internal/types"
)

// titlePrefixRe matches one recognized bracketed tag at the start of a
// lowercased title, plus trailing whitespace.
var titlePrefixRe = regexp.MustCompile(`^\[(?:p[0-4]|perf(?::[^\]]*)?|tier\s+\d+|action|bug|fixed|epic|wip)\]\s*`)

// hulyIdentifierRe matches "Huly Issue: PROJ-1" and "Synced from Huly: PROJ-1".
var hulyIdentifierRe = regexp.MustCompile(`(?i)(?:huly issue|synced from huly):\s*([a-z0-9-]+)`)

// StripTitlePrefix removes a single recognized tag from the start of s.
// s must already be lowercased and trimmed. The second result reports
// whether anything was removed.
func StripTitlePrefix(s string) (string, bool) {
	loc := titlePrefixRe.FindStringIndex(s)
	if loc == nil {
		return s, false
	}
	return s[loc[1]:], true
}

// NormalizeTitleForComparison lowercases and trims a title and strips any
// stack of leading tags like "[P1]", "[Bug]", "[Perf:db]" or "[Tier 2]".
// The result is only meant for equality checks.
func NormalizeTitleForComparison(title string) string {
	if title == "" {
		return ""
	}

	s := strings.TrimSpace(strings.ToLower(title))
	for {
		next, ok := StripTitlePrefix(s)
		if !ok {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

// FindHulyIdentifier returns the uppercased Huly identifier referenced by
// the issue, or "" if there is none. The description is searched before
// comments; earlier comments win over later ones.
func FindHulyIdentifier(issue types.Issue) string {
	if id := matchIdentifier(issue.Description); id != "" {
		return id
	}
	for _, c := range issue.Comments {
		if id := matchIdentifier(c.Text); id != "" {
			return id
		}
	}
	return ""
}

func matchIdentifier(text string) string {
	if text == "" {
		return ""
	}
	m := hulyIdentifierRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}
