package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Action is the direction an SMS keyword maps to.
type Action string

const (
	ActionSubscribe   Action = "subscribe"
	ActionUnsubscribe Action = "unsubscribe"
)

// MatchKind tags the outcome of a keyword resolution. No-match is its own
// variant rather than an empty unsubscribe.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchSubscribe
	MatchUnsubscribe
)

// Resolution is the result of resolving free SMS text against the catalog.
type Resolution struct {
	Kind      MatchKind
	Keyword   string
	ServiceID string
	ProductID string
}

type keywordEntry struct {
	keyword   string
	action    Action
	serviceID string
	productID string
	pattern   *regexp.Regexp
}

// newKeywordEntry compiles a word-boundary pattern for one keyword. Regex
// metacharacters in the keyword are escaped and internal whitespace matches
// any run of whitespace.
func newKeywordEntry(keyword string, action Action, serviceID, productID string) (keywordEntry, error) {
	parts := strings.Fields(keyword)
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	pattern, err := regexp.Compile(`(^|\s)` + strings.Join(parts, `\s+`) + `(\s|$)`)
	if err != nil {
		return keywordEntry{}, fmt.Errorf("failed to compile pattern for keyword %q: %w", keyword, err)
	}
	return keywordEntry{
		keyword:   keyword,
		action:    action,
		serviceID: serviceID,
		productID: productID,
		pattern:   pattern,
	}, nil
}

// ResolveKeyword matches free-text SMS against every known keyword, longest
// keyword first; the first hit wins.
func (c *Catalog) ResolveKeyword(text string) Resolution {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	if normalized == "" {
		return Resolution{Kind: MatchNone}
	}

	for _, entry := range c.entries {
		if entry.pattern.MatchString(normalized) {
			kind := MatchSubscribe
			if entry.action == ActionUnsubscribe {
				kind = MatchUnsubscribe
			}
			return Resolution{
				Kind:      kind,
				Keyword:   entry.keyword,
				ServiceID: entry.serviceID,
				ProductID: entry.productID,
			}
		}
	}
	return Resolution{Kind: MatchNone}
}
