package sync

import (
	"strings"
	"time"
)

// Tokenize splits text into a set of lower-cased tokens. Characters
// outside [a-z0-9æøå] and whitespace are stripped before splitting,
// and tokens of length <= 2 runes are discarded. Empty input yields an
// empty set.
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	if text == "" {
		return tokens
	}

	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'æ' || r == 'ø' || r == 'å':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(' ')
		}
	}

	for _, tok := range strings.Fields(b.String()) {
		if len([]rune(tok)) <= 2 {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}

// TokenOverlap returns the Jaccard index of the two token sets:
// |intersection| / |union|, in [0,1]. Returns 0 if either set is empty.
func TokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// WithinTolerance reports whether two instants are at most
// toleranceSeconds apart.
func WithinTolerance(t1, t2 time.Time, toleranceSeconds int) bool {
	diff := t1.Sub(t2)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(toleranceSeconds)*time.Second
}
