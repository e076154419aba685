package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tekeve/WITv3.0-sub000/internal/model"
	"github.com/tekeve/WITv3.0-sub000/internal/stv"
)

// BallotsPerPage is the fixed page size for the ballot-listing reports.
const BallotsPerPage = 20

// buildTallyReports turns an engine result into the ordered report sequence
// for one coordinator run: a start report, one report per round, and a
// conclusion naming the winners.
func buildTallyReports(e *model.Election, ballotCount int, res *stv.Result, corrID string) []model.Report {
	reports := []model.Report{{
		CorrelationID: corrID,
		Title:         fmt.Sprintf("Tally started: %s", e.Title),
		Severity:      model.SeverityInfo,
		Body: fmt.Sprintf("%d ballots cast for %d candidates, %d seat(s) to fill. Droop quota: %d.",
			ballotCount, len(e.Candidates), e.Seats, res.Quota),
		Fields: map[string]string{
			"election": e.ID,
			"ballots":  fmt.Sprintf("%d", ballotCount),
			"quota":    fmt.Sprintf("%d", res.Quota),
		},
	}}

	for _, round := range res.Rounds {
		reports = append(reports, buildRoundReport(e, round, corrID))
	}

	reports = append(reports, model.Report{
		CorrelationID: corrID,
		Title:         fmt.Sprintf("Result: %s", e.Title),
		Severity:      model.SeveritySuccess,
		Body:          fmt.Sprintf("Elected: %s.", strings.Join(res.Winners, ", ")),
		Fields: map[string]string{
			"election": e.ID,
			"winners":  strings.Join(res.Winners, ","),
			"rounds":   fmt.Sprintf("%d", len(res.Rounds)),
		},
	})
	return reports
}

func buildRoundReport(e *model.Election, round stv.Round, corrID string) model.Report {
	// Standings sorted by count descending, candidate order as tiebreak, so
	// every candidate appears even at zero.
	standings := make([]string, len(e.Candidates))
	copy(standings, e.Candidates)
	sort.SliceStable(standings, func(a, b int) bool {
		return round.Counts[standings[a]] > round.Counts[standings[b]]
	})

	var b strings.Builder
	for _, c := range standings {
		fmt.Fprintf(&b, "%s: %.2f\n", c, round.Counts[c])
	}
	if len(round.Elected) > 0 {
		fmt.Fprintf(&b, "Elected: %s (surplus %.2f transferred)\n",
			strings.Join(round.Elected, ", "), round.Surplus)
	}
	if round.Eliminated != "" {
		fmt.Fprintf(&b, "Eliminated: %s\n", round.Eliminated)
	}

	severity := model.SeverityInfo
	if len(round.Elected) > 0 {
		severity = model.SeveritySuccess
	}

	return model.Report{
		CorrelationID: corrID,
		Title:         fmt.Sprintf("Round %d", round.Index),
		Severity:      severity,
		Body:          strings.TrimRight(b.String(), "\n"),
		Fields:        map[string]string{"election": e.ID},
	}
}

// buildBallotPages lists every counted ballot in fixed-size pages. The order
// shown is storage order, which carries no voter information.
func buildBallotPages(e *model.Election, ballots [][]string, corrID string) []model.Report {
	var reports []model.Report
	totalPages := (len(ballots) + BallotsPerPage - 1) / BallotsPerPage

	for page := 0; page < totalPages; page++ {
		start := page * BallotsPerPage
		end := start + BallotsPerPage
		if end > len(ballots) {
			end = len(ballots)
		}

		var b strings.Builder
		for i := start; i < end; i++ {
			fmt.Fprintf(&b, "#%d: %s\n", i+1, strings.Join(ballots[i], " > "))
		}

		reports = append(reports, model.Report{
			CorrelationID: corrID,
			Title:         fmt.Sprintf("Ballots (%d/%d)", page+1, totalPages),
			Severity:      model.SeverityInfo,
			Body:          strings.TrimRight(b.String(), "\n"),
			Fields:        map[string]string{"election": e.ID},
		})
	}
	return reports
}

func buildNoBallotsReport(e *model.Election, corrID string) model.Report {
	return model.Report{
		CorrelationID: corrID,
		Title:         fmt.Sprintf("Result: %s", e.Title),
		Severity:      model.SeverityWarning,
		Body:          "No ballots cast. The election closes with no winners.",
		Fields:        map[string]string{"election": e.ID},
	}
}

func buildFailureReport(e *model.Election, err error, corrID string) model.Report {
	return model.Report{
		CorrelationID: corrID,
		Title:         fmt.Sprintf("Tally failed: %s", e.Title),
		Severity:      model.SeverityError,
		Body: fmt.Sprintf("The count did not converge: %v. "+
			"The election has been closed; the candidate and ballot data needs operator review.", err),
		Fields: map[string]string{"election": e.ID},
	}
}
