// Package crossref correlates calendar todos with remote items through an
// identifier embedded in the todo's free-text description.
package crossref

import (
	"regexp"
	"strconv"
)

// GitHubPrefix marks GitHub notification ids embedded in descriptions.
const GitHubPrefix = "GitHub Id: "

// Matcher extracts and embeds identifiers of the form PREFIX<digits>.
type Matcher struct {
	prefix  string
	pattern *regexp.Regexp
}

// NewMatcher returns a Matcher for the given namespace prefix.
func NewMatcher(prefix string) Matcher {
	return Matcher{
		prefix:  prefix,
		pattern: regexp.MustCompile(regexp.QuoteMeta(prefix) + `(\d+)`),
	}
}

// Prefix returns the namespace prefix.
func (m Matcher) Prefix() string {
	return m.prefix
}

// Extract returns the first identifier embedded in text.
func (m Matcher) Extract(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}
	match := m.pattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		// Digits overflowing int64 cannot be a notification id.
		return 0, false
	}
	return id, true
}

// Embed returns the canonical fragment for id.
func (m Matcher) Embed(id int64) string {
	return m.prefix + strconv.FormatInt(id, 10)
}
