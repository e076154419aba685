package stv

import (
	"fmt"
	"sort"

	"github.com/tekeve/WITv3.0-sub000/internal/model"
)

// Round records the standings of one counting round. Counts covers every
// candidate, including elected and eliminated ones (at zero), so the round
// log is a complete audit trail.
type Round struct {
	Index      int
	Counts     map[string]float64
	Elected    []string
	Eliminated string
	Surplus    float64
}

// Result is the outcome of a tally run.
type Result struct {
	Winners []string
	Quota   int
	Rounds  []Round
}

// Tally computes a multi-seat STV result using the Droop quota with
// fractional surplus transfer. It is a pure function over its inputs: no
// I/O, no shared state, safe to run on any goroutine.
//
// Each ballot must rank the full candidate set. Ballot weights start at 1.0;
// when a candidate is elected with count C against quota Q, every ballot
// currently counting for that candidate is rescaled by (C-Q)/C, so the
// surplus flows to later preferences in subsequent rounds. Eliminated
// candidates are skipped during first-preference scans, which lets ballots
// fall through naturally without weight changes.
func Tally(candidates []string, ballots [][]string, seats int, tb TieBreaker) (*Result, error) {
	if tb == nil {
		tb = NewByCandidateOrder(candidates)
	}

	quota := len(ballots)/(seats+1) + 1

	weights := make([]float64, len(ballots))
	for i := range weights {
		weights[i] = 1.0
	}

	elected := make(map[string]bool, len(candidates))
	eliminated := make(map[string]bool, len(candidates))

	res := &Result{Quota: quota}
	maxRounds := 2 * len(candidates)

	for round := 1; ; round++ {
		if round > maxRounds {
			return nil, fmt.Errorf("%w: no result after %d rounds", model.ErrTallyComputation, maxRounds)
		}

		// Weighted first-preference count. assigned[i] remembers which
		// candidate ballot i counted for, so surplus transfer below can
		// rescale exactly the ballots that produced the winning count.
		counts := make(map[string]float64, len(candidates))
		for _, c := range candidates {
			counts[c] = 0
		}
		assigned := make([]string, len(ballots))
		for i, ranking := range ballots {
			for _, c := range ranking {
				if elected[c] || eliminated[c] {
					continue
				}
				counts[c] += weights[i]
				assigned[i] = c
				break
			}
		}

		rec := Round{Index: round, Counts: counts}

		// Elect everyone at or above quota, highest count first.
		var reached []string
		for _, c := range candidates {
			if !elected[c] && !eliminated[c] && counts[c] >= float64(quota) {
				reached = append(reached, c)
			}
		}
		sort.SliceStable(reached, func(a, b int) bool {
			return counts[reached[a]] > counts[reached[b]]
		})

		if len(reached) > 0 {
			for _, winner := range reached {
				if len(res.Winners) >= seats {
					break
				}
				elected[winner] = true
				res.Winners = append(res.Winners, winner)
				rec.Elected = append(rec.Elected, winner)

				surplus := counts[winner] - float64(quota)
				rec.Surplus += surplus
				transfer := surplus / counts[winner]
				for i := range ballots {
					if assigned[i] == winner {
						weights[i] *= transfer
					}
				}
			}
			res.Rounds = append(res.Rounds, rec)
			if len(res.Winners) >= seats {
				return res, nil
			}
			// Re-count with the updated weights before considering any
			// elimination.
			continue
		}

		// No one reached quota. If the field is down to the open seats,
		// the remaining candidates win by default.
		var remaining []string
		for _, c := range candidates {
			if !elected[c] && !eliminated[c] {
				remaining = append(remaining, c)
			}
		}
		open := seats - len(res.Winners)
		if len(remaining) <= open {
			sort.SliceStable(remaining, func(a, b int) bool {
				return counts[remaining[a]] > counts[remaining[b]]
			})
			for _, c := range remaining {
				elected[c] = true
				res.Winners = append(res.Winners, c)
				rec.Elected = append(rec.Elected, c)
			}
			res.Rounds = append(res.Rounds, rec)
			return res, nil
		}

		// Eliminate the weakest candidate. Weights are untouched: future
		// scans simply skip the eliminated candidate.
		lowest := counts[remaining[0]]
		for _, c := range remaining[1:] {
			if counts[c] < lowest {
				lowest = counts[c]
			}
		}
		var tied []string
		for _, c := range remaining {
			if counts[c] == lowest {
				tied = append(tied, c)
			}
		}
		loser := tied[0]
		if len(tied) > 1 {
			loser = tb.Pick(tied)
		}
		eliminated[loser] = true
		rec.Eliminated = loser
		res.Rounds = append(res.Rounds, rec)
	}
}
