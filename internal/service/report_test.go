package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/tekeve/WITv3.0-sub000/internal/model"
	"github.com/tekeve/WITv3.0-sub000/internal/stv"
)

func testElection() *model.Election {
	return &model.Election{
		ID:         "council-2026",
		Title:      "Council Election",
		Candidates: []string{"A", "B", "C"},
		Seats:      1,
	}
}

func TestBuildTallyReports_PhaseSequence(t *testing.T) {
	res := &stv.Result{
		Winners: []string{"A"},
		Quota:   3,
		Rounds: []stv.Round{
			{Index: 1, Counts: map[string]float64{"A": 2, "B": 2, "C": 1}, Eliminated: "C"},
			{Index: 2, Counts: map[string]float64{"A": 3, "B": 2, "C": 0}, Elected: []string{"A"}},
		},
	}

	reports := buildTallyReports(testElection(), 5, res, "corr-1")

	if len(reports) != 4 {
		t.Fatalf("reports = %d, want start + 2 rounds + conclusion", len(reports))
	}
	if !strings.HasPrefix(reports[0].Title, "Tally started") || reports[0].Severity != model.SeverityInfo {
		t.Errorf("start report = %q/%s, want info start report", reports[0].Title, reports[0].Severity)
	}
	if !strings.Contains(reports[0].Body, "quota: 3") && !strings.Contains(reports[0].Body, "Droop quota: 3") {
		t.Errorf("start body = %q, want the quota stated", reports[0].Body)
	}
	if reports[1].Title != "Round 1" || reports[1].Severity != model.SeverityInfo {
		t.Errorf("round 1 report = %q/%s", reports[1].Title, reports[1].Severity)
	}
	if !strings.Contains(reports[1].Body, "Eliminated: C") {
		t.Errorf("round 1 body = %q, want elimination line", reports[1].Body)
	}
	if reports[2].Severity != model.SeveritySuccess {
		t.Errorf("round with an election should be tagged success, got %s", reports[2].Severity)
	}
	if !strings.HasPrefix(reports[3].Title, "Result:") || !strings.Contains(reports[3].Body, "A") {
		t.Errorf("conclusion = %q / %q", reports[3].Title, reports[3].Body)
	}

	for _, r := range reports {
		if r.CorrelationID != "corr-1" {
			t.Errorf("report %q correlation = %q, want corr-1", r.Title, r.CorrelationID)
		}
	}
}

func TestBuildRoundReport_StandingsSortedAndComplete(t *testing.T) {
	round := stv.Round{
		Index:  1,
		Counts: map[string]float64{"A": 1, "B": 4, "C": 0},
	}

	report := buildRoundReport(testElection(), round, "corr-1")
	lines := strings.Split(report.Body, "\n")

	if len(lines) != 3 {
		t.Fatalf("standings lines = %d, want every candidate listed", len(lines))
	}
	if !strings.HasPrefix(lines[0], "B:") || !strings.HasPrefix(lines[1], "A:") || !strings.HasPrefix(lines[2], "C:") {
		t.Errorf("standings order = %v, want descending by count", lines)
	}
	if lines[2] != "C: 0.00" {
		t.Errorf("zero-count line = %q, want C: 0.00", lines[2])
	}
}

func TestBuildBallotPages_FixedPageSize(t *testing.T) {
	var ballots [][]string
	for i := 0; i < 45; i++ {
		ballots = append(ballots, []string{"A", "B", "C"})
	}

	pages := buildBallotPages(testElection(), ballots, "corr-1")

	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3 for 45 ballots", len(pages))
	}
	for i, page := range pages {
		want := fmt.Sprintf("Ballots (%d/3)", i+1)
		if page.Title != want {
			t.Errorf("page %d title = %q, want %q", i, page.Title, want)
		}
	}
	if got := strings.Count(pages[0].Body, "\n") + 1; got != BallotsPerPage {
		t.Errorf("page 1 lines = %d, want %d", got, BallotsPerPage)
	}
	if got := strings.Count(pages[2].Body, "\n") + 1; got != 5 {
		t.Errorf("page 3 lines = %d, want 5", got)
	}
	if !strings.HasPrefix(pages[2].Body, "#41:") {
		t.Errorf("page 3 starts with %q, want #41:", strings.SplitN(pages[2].Body, " ", 2)[0])
	}
}

func TestBuildBallotPages_NoBallots(t *testing.T) {
	if pages := buildBallotPages(testElection(), nil, "corr-1"); len(pages) != 0 {
		t.Errorf("pages = %d, want 0 for no ballots", len(pages))
	}
}
