package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tekeve/WITv3.0-sub000/internal/model"
)

type fakeStore struct {
	election    *model.Election
	ballots     [][]string
	snapshotErr error

	deactivated int
	purged      int
}

func (f *fakeStore) Get(_ context.Context, id string) (*model.Election, error) {
	if f.election == nil || f.election.ID != id {
		return nil, nil
	}
	e := *f.election
	return &e, nil
}

func (f *fakeStore) SnapshotBallots(_ context.Context, _ string) ([][]string, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.ballots, nil
}

func (f *fakeStore) Deactivate(_ context.Context, _ string) error {
	f.deactivated++
	if f.election != nil {
		f.election.Active = false
	}
	return nil
}

func (f *fakeStore) PurgeIdentity(_ context.Context, _ string) error {
	f.purged++
	return nil
}

type fakeJobs struct {
	deleted []string
}

func (f *fakeJobs) Delete(_ context.Context, electionID string) error {
	f.deleted = append(f.deleted, electionID)
	return nil
}

type recordingSink struct {
	reports  []model.Report
	failFrom int // fail every post at index >= failFrom; -1 never fails
}

func (s *recordingSink) Post(_ context.Context, r model.Report) error {
	if s.failFrom >= 0 && len(s.reports) >= s.failFrom {
		return errors.New("sink unavailable")
	}
	s.reports = append(s.reports, r)
	return nil
}

type fakeCache struct {
	invalidated []string
}

func (f *fakeCache) InvalidateElection(_ context.Context, electionID string) error {
	f.invalidated = append(f.invalidated, electionID)
	return nil
}

func newTestTally(store *fakeStore, jobs *fakeJobs, sink *recordingSink) *TallyService {
	return NewTallyService(store, jobs, sink, nil, nil, zerolog.Nop(), 0, nil)
}

func activeElection() *model.Election {
	return &model.Election{
		ID:         "council-2026",
		Title:      "Council Election",
		Candidates: []string{"A", "B", "C"},
		Seats:      2,
		Active:     true,
	}
}

func TestRunTally_InactiveElectionIsNoOp(t *testing.T) {
	store := &fakeStore{election: activeElection()}
	store.election.Active = false
	jobs := &fakeJobs{}
	sink := &recordingSink{failFrom: -1}

	svc := newTestTally(store, jobs, sink)
	if err := svc.RunTally(context.Background(), "council-2026"); err != nil {
		t.Fatalf("run tally error: %v", err)
	}

	if len(sink.reports) != 0 {
		t.Errorf("reports emitted = %d, want 0", len(sink.reports))
	}
	if store.deactivated != 0 || store.purged != 0 {
		t.Errorf("writes on inactive election: deactivated=%d purged=%d, want 0/0", store.deactivated, store.purged)
	}
	// Stale trigger registration is still cleared.
	if len(jobs.deleted) != 1 {
		t.Errorf("stale job deletions = %d, want 1", len(jobs.deleted))
	}
}

func TestRunTally_MissingElectionIsNoOp(t *testing.T) {
	store := &fakeStore{}
	jobs := &fakeJobs{}
	sink := &recordingSink{failFrom: -1}

	svc := newTestTally(store, jobs, sink)
	if err := svc.RunTally(context.Background(), "nope"); err != nil {
		t.Fatalf("run tally error: %v", err)
	}
	if len(sink.reports) != 0 || store.deactivated != 0 {
		t.Error("missing election should emit nothing and write nothing")
	}
}

func TestRunTally_SecondInvocationEmitsNothing(t *testing.T) {
	store := &fakeStore{
		election: activeElection(),
		ballots:  [][]string{{"A", "B", "C"}, {"B", "A", "C"}},
	}
	jobs := &fakeJobs{}
	sink := &recordingSink{failFrom: -1}
	svc := newTestTally(store, jobs, sink)

	if err := svc.RunTally(context.Background(), "council-2026"); err != nil {
		t.Fatalf("first run error: %v", err)
	}
	emitted := len(sink.reports)
	if emitted == 0 {
		t.Fatal("first run emitted no reports")
	}

	// The first run deactivated the election, so the second run is a no-op.
	if err := svc.RunTally(context.Background(), "council-2026"); err != nil {
		t.Fatalf("second run error: %v", err)
	}
	if len(sink.reports) != emitted {
		t.Errorf("second run emitted %d extra reports, want 0", len(sink.reports)-emitted)
	}
	if store.deactivated != 1 || store.purged != 1 {
		t.Errorf("second run wrote: deactivated=%d purged=%d, want 1/1", store.deactivated, store.purged)
	}
}

func TestRunTally_ZeroBallots(t *testing.T) {
	store := &fakeStore{election: activeElection()}
	jobs := &fakeJobs{}
	sink := &recordingSink{failFrom: -1}

	svc := newTestTally(store, jobs, sink)
	if err := svc.RunTally(context.Background(), "council-2026"); err != nil {
		t.Fatalf("run tally error: %v", err)
	}

	if len(sink.reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(sink.reports))
	}
	if !strings.Contains(sink.reports[0].Body, "No ballots cast") {
		t.Errorf("report body = %q, want a no-ballots notice", sink.reports[0].Body)
	}
	if store.deactivated != 1 || store.purged != 1 {
		t.Errorf("cleanup: deactivated=%d purged=%d, want 1/1", store.deactivated, store.purged)
	}
	if len(jobs.deleted) != 1 {
		t.Errorf("job deletions = %d, want 1", len(jobs.deleted))
	}
}

func TestRunTally_EmitsPhasesThenBallotPages(t *testing.T) {
	ballots := [][]string{
		{"A", "B", "C"}, {"A", "B", "C"}, {"A", "B", "C"},
		{"B", "A", "C"}, {"B", "A", "C"},
		{"C", "A", "B"},
	}
	store := &fakeStore{election: activeElection(), ballots: ballots}
	jobs := &fakeJobs{}
	sink := &recordingSink{failFrom: -1}

	svc := newTestTally(store, jobs, sink)
	if err := svc.RunTally(context.Background(), "council-2026"); err != nil {
		t.Fatalf("run tally error: %v", err)
	}

	if len(sink.reports) < 4 {
		t.Fatalf("reports = %d, want at least start, rounds, conclusion, ballots", len(sink.reports))
	}
	if !strings.HasPrefix(sink.reports[0].Title, "Tally started") {
		t.Errorf("first report title = %q, want a start report", sink.reports[0].Title)
	}

	last := sink.reports[len(sink.reports)-1]
	if last.Title != "Ballots (1/1)" {
		t.Errorf("last report title = %q, want Ballots (1/1)", last.Title)
	}
	if got := strings.Count(last.Body, "\n") + 1; got != len(ballots) {
		t.Errorf("ballot page lines = %d, want %d", got, len(ballots))
	}

	var conclusion *model.Report
	for i := range sink.reports {
		if strings.HasPrefix(sink.reports[i].Title, "Result:") {
			conclusion = &sink.reports[i]
		}
	}
	if conclusion == nil {
		t.Fatal("no conclusion report emitted")
	}
	if !strings.Contains(conclusion.Fields["winners"], "A") {
		t.Errorf("conclusion winners = %q, want A included", conclusion.Fields["winners"])
	}
}

func TestRunTally_SinkRefRoutesReportsToOwnSink(t *testing.T) {
	election := activeElection()
	election.SinkRef = "https://hooks.example.test/council"
	store := &fakeStore{
		election: election,
		ballots:  [][]string{{"A", "B", "C"}, {"B", "A", "C"}},
	}
	jobs := &fakeJobs{}
	defaultSink := &recordingSink{failFrom: -1}

	overrides := map[string]*recordingSink{}
	sinkFor := func(ref string) ResultSink {
		s := &recordingSink{failFrom: -1}
		overrides[ref] = s
		return s
	}

	svc := NewTallyService(store, jobs, defaultSink, sinkFor, nil, zerolog.Nop(), 0, nil)
	if err := svc.RunTally(context.Background(), "council-2026"); err != nil {
		t.Fatalf("run tally error: %v", err)
	}

	if len(defaultSink.reports) != 0 {
		t.Errorf("default sink got %d reports, want 0", len(defaultSink.reports))
	}
	override := overrides[election.SinkRef]
	if override == nil {
		t.Fatalf("sink factory never called with %q", election.SinkRef)
	}
	if len(override.reports) == 0 {
		t.Error("election's own sink got no reports")
	}
}

func TestRunTally_BlankSinkRefUsesDefaultSink(t *testing.T) {
	store := &fakeStore{
		election: activeElection(),
		ballots:  [][]string{{"A", "B", "C"}},
	}
	jobs := &fakeJobs{}
	defaultSink := &recordingSink{failFrom: -1}
	sinkFor := func(string) ResultSink {
		t.Error("sink factory called for an election without a sink_ref")
		return defaultSink
	}

	svc := NewTallyService(store, jobs, defaultSink, sinkFor, nil, zerolog.Nop(), 0, nil)
	if err := svc.RunTally(context.Background(), "council-2026"); err != nil {
		t.Fatalf("run tally error: %v", err)
	}
	if len(defaultSink.reports) == 0 {
		t.Error("default sink got no reports")
	}
}

func TestRunTally_DeactivationInvalidatesCachedDetails(t *testing.T) {
	store := &fakeStore{
		election: activeElection(),
		ballots:  [][]string{{"A", "B", "C"}},
	}
	jobs := &fakeJobs{}
	sink := &recordingSink{failFrom: -1}
	cache := &fakeCache{}

	svc := NewTallyService(store, jobs, sink, nil, cache, zerolog.Nop(), 0, nil)
	if err := svc.RunTally(context.Background(), "council-2026"); err != nil {
		t.Fatalf("run tally error: %v", err)
	}

	if len(cache.invalidated) != 1 || cache.invalidated[0] != "council-2026" {
		t.Errorf("cache invalidations = %v, want [council-2026]", cache.invalidated)
	}
	if store.deactivated != 1 {
		t.Errorf("deactivated = %d, want 1", store.deactivated)
	}
}

func TestRunTally_SinkFailureStillCleansUp(t *testing.T) {
	store := &fakeStore{
		election: activeElection(),
		ballots:  [][]string{{"A", "B", "C"}},
	}
	jobs := &fakeJobs{}
	sink := &recordingSink{failFrom: 1} // first post delivered, rest dropped

	svc := newTestTally(store, jobs, sink)
	if err := svc.RunTally(context.Background(), "council-2026"); err != nil {
		t.Fatalf("run tally error: %v", err)
	}

	if len(sink.reports) != 1 {
		t.Errorf("reports delivered = %d, want 1 before the sink failed", len(sink.reports))
	}
	if store.deactivated != 1 || store.purged != 1 || len(jobs.deleted) != 1 {
		t.Error("cleanup must run even when report emission fails")
	}
}

func TestRunTally_ComputationFailureStillCleansUp(t *testing.T) {
	store := &fakeStore{
		election: &model.Election{
			ID:     "broken",
			Title:  "Broken Election",
			Seats:  1,
			Active: true,
			// No candidates: the engine cannot converge.
		},
		ballots: [][]string{{"X"}},
	}
	jobs := &fakeJobs{}
	sink := &recordingSink{failFrom: -1}

	svc := newTestTally(store, jobs, sink)
	err := svc.RunTally(context.Background(), "broken")
	if !errors.Is(err, model.ErrTallyComputation) {
		t.Fatalf("error = %v, want ErrTallyComputation", err)
	}

	if len(sink.reports) != 1 || sink.reports[0].Severity != model.SeverityError {
		t.Errorf("reports = %+v, want one error report", sink.reports)
	}
	if store.deactivated != 1 || store.purged != 1 || len(jobs.deleted) != 1 {
		t.Error("cleanup must run even after a computation failure")
	}
}
