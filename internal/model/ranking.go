package model

// ValidateRanking checks that choices is a permutation of the election's
// candidate set: same length, every candidate exactly once, no unknown
// identifiers. It runs before any casting side effect, so a malformed ballot
// leaves the token unconsumed.
func ValidateRanking(candidates, choices []string) error {
	if len(choices) != len(candidates) {
		return ErrMalformedBallot
	}
	valid := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		valid[c] = true
	}
	seen := make(map[string]bool, len(choices))
	for _, c := range choices {
		if !valid[c] || seen[c] {
			return ErrMalformedBallot
		}
		seen[c] = true
	}
	return nil
}
