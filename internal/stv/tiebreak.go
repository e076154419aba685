package stv

// TieBreaker chooses which of several tied lowest-count candidates to
// eliminate. Injecting the policy keeps the engine deterministic: identical
// inputs must always produce identical outcomes.
type TieBreaker interface {
	Pick(tied []string) string
}

// ByCandidateOrder eliminates the tied candidate that appears latest on the
// election's candidate list. Earlier listing means earlier nomination, so
// the newest nominee drops first. This is the default policy.
type ByCandidateOrder struct {
	order map[string]int
}

func NewByCandidateOrder(candidates []string) *ByCandidateOrder {
	order := make(map[string]int, len(candidates))
	for i, c := range candidates {
		order[c] = i
	}
	return &ByCandidateOrder{order: order}
}

func (b *ByCandidateOrder) Pick(tied []string) string {
	loser := tied[0]
	for _, c := range tied[1:] {
		if b.order[c] > b.order[loser] {
			loser = c
		}
	}
	return loser
}
