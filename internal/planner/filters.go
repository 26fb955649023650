package planner

import "strings"

// The planner keeps a known route or a generated candidate when the
// classifier says it is eco-friendly or when an allow-list overrides it.
// Known routes and generated candidates use different allow-lists and the
// two must stay separate.

var generatorAllowList = map[string]struct{}{
	"Walking": {},
	"Cycling": {},
	"Metro":   {},
	"Train":   {},
	"EV Car":  {},
}

// IsGeneratorAllowListed reports whether a generated candidate's mode is kept
// regardless of the classifier. The match is exact and case-sensitive.
func IsGeneratorAllowListed(mode string) bool {
	_, ok := generatorAllowList[mode]
	return ok
}

var knownRouteEcoTokens = []string{"walking", "cycling", "metro", "train", "ev_car"}

// MatchesKnownRouteEcoModes reports whether a reference route's mode string
// is kept regardless of the classifier. It is a case-insensitive substring
// match, so "EV Car" does not match "ev_car" while "Train+Bus" matches "train".
func MatchesKnownRouteEcoModes(modes string) bool {
	lower := strings.ToLower(modes)
	for _, tok := range knownRouteEcoTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
