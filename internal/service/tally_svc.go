package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tekeve/WITv3.0-sub000/internal/model"
	"github.com/tekeve/WITv3.0-sub000/internal/stv"
)

// TallyStore is the slice of election storage the coordinator needs.
type TallyStore interface {
	Get(ctx context.Context, id string) (*model.Election, error)
	SnapshotBallots(ctx context.Context, electionID string) ([][]string, error)
	Deactivate(ctx context.Context, id string) error
	PurgeIdentity(ctx context.Context, electionID string) error
}

// JobStore removes durable tally jobs once a run has completed.
type JobStore interface {
	Delete(ctx context.Context, electionID string) error
}

// DetailsCache drops cached vote-details when an election closes, so cached
// lookups stop answering for tokens of a deactivated election. May be nil.
type DetailsCache interface {
	InvalidateElection(ctx context.Context, electionID string) error
}

// TallyService orchestrates a tally run: snapshot, engine, reports, and the
// non-negotiable cleanup that closes the election and purges identity data.
type TallyService struct {
	store       TallyStore
	jobs        JobStore
	sink        ResultSink
	sinkFor     SinkFactory
	cache       DetailsCache
	logger      zerolog.Logger
	reportDelay time.Duration
	runsTotal   *prometheus.CounterVec

	// Serializes runs so a manual trigger racing the scheduler cannot
	// produce a duplicate report stream.
	mu sync.Mutex
}

func NewTallyService(store TallyStore, jobs JobStore, sink ResultSink, sinkFor SinkFactory, cache DetailsCache, logger zerolog.Logger, reportDelay time.Duration, runsTotal *prometheus.CounterVec) *TallyService {
	return &TallyService{
		store:       store,
		jobs:        jobs,
		sink:        sink,
		sinkFor:     sinkFor,
		cache:       cache,
		logger:      logger,
		reportDelay: reportDelay,
		runsTotal:   runsTotal,
	}
}

// RunTally computes and reports the result for an election, then closes it
// out. Idempotent: a missing or already-inactive election only clears any
// stale job entry. Once a run starts it is not cancelled partway; whatever
// happens during counting or reporting, the election ends deactivated with
// its identity data purged.
func (s *TallyService) RunTally(ctx context.Context, electionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	election, err := s.store.Get(ctx, electionID)
	if err != nil {
		s.countRun("storage_error")
		return err
	}
	if election == nil || !election.Active {
		if err := s.jobs.Delete(ctx, electionID); err != nil {
			s.logger.Warn().Err(err).Str("election", electionID).Msg("stale tally job cleanup failed")
		}
		s.countRun("noop")
		return nil
	}

	corrID := uuid.NewString()
	outcome := "ok"

	// An election may carry its own sink reference; it overrides the
	// process-wide default for every report of this run, cleanup included.
	sink := s.sink
	if election.SinkRef != "" && s.sinkFor != nil {
		sink = s.sinkFor(election.SinkRef)
	}

	ballots, err := s.store.SnapshotBallots(ctx, electionID)
	if err != nil {
		s.logger.Error().Err(err).Str("election", electionID).Msg("ballot snapshot failed")
		outcome = "storage_error"
	}

	var reports []model.Report
	switch {
	case err != nil:
		// Nothing to count; fall through to cleanup.
	case len(ballots) == 0:
		reports = []model.Report{buildNoBallotsReport(election, corrID)}
	default:
		result, tallyErr := stv.Tally(election.Candidates, ballots, election.Seats, stv.NewByCandidateOrder(election.Candidates))
		if tallyErr != nil {
			s.logger.Error().Err(tallyErr).Str("election", electionID).Msg("tally computation failed")
			reports = []model.Report{buildFailureReport(election, tallyErr, corrID)}
			outcome = "computation_failed"
		} else {
			s.logger.Info().
				Str("election", electionID).
				Strs("winners", result.Winners).
				Int("rounds", len(result.Rounds)).
				Msg("tally computed")
			reports = buildTallyReports(election, len(ballots), result, corrID)
			reports = append(reports, buildBallotPages(election, ballots, corrID)...)
		}
	}

	s.emit(ctx, sink, reports)

	cleanupErr := s.cleanup(ctx, sink, election, corrID)
	s.countRun(outcome)
	if cleanupErr != nil {
		return cleanupErr
	}
	if outcome == "computation_failed" {
		return model.ErrTallyComputation
	}
	return nil
}

// emit posts reports in order with a fixed delay between them, as
// backpressure against the sink's rate limits. A failed post stops the
// stream; cleanup still runs.
func (s *TallyService) emit(ctx context.Context, sink ResultSink, reports []model.Report) {
	for i, report := range reports {
		if err := sink.Post(ctx, report); err != nil {
			s.logger.Warn().Err(err).
				Int("sent", i).
				Int("total", len(reports)).
				Msg("result sink unavailable, remaining reports dropped")
			return
		}
		if i < len(reports)-1 && s.reportDelay > 0 {
			time.Sleep(s.reportDelay)
		}
	}
}

// cleanup deactivates the election, purges identity-linking rows, and
// removes the scheduling entry. A failure here is the one condition the
// system cannot self-heal: identity data may be left un-purged, so it is
// logged as critical and reported best-effort.
func (s *TallyService) cleanup(ctx context.Context, sink ResultSink, election *model.Election, corrID string) error {
	var firstErr error

	if err := s.store.Deactivate(ctx, election.ID); err != nil {
		firstErr = err
	}
	// Cached vote-details must not outlive the election. Advisory only:
	// entries also expire by TTL, so a cache error is not a cleanup failure.
	if s.cache != nil {
		if err := s.cache.InvalidateElection(ctx, election.ID); err != nil {
			s.logger.Warn().Err(err).Str("election", election.ID).Msg("vote-details cache invalidation failed")
		}
	}
	if err := s.store.PurgeIdentity(ctx, election.ID); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.jobs.Delete(ctx, election.ID); err != nil && firstErr == nil {
		firstErr = err
	}

	if firstErr == nil {
		s.logger.Info().Str("election", election.ID).Msg("election closed, identity data purged")
		return nil
	}

	s.logger.Error().Err(firstErr).
		Str("election", election.ID).
		Msg("CRITICAL: election cleanup failed, identity data may remain")

	report := model.Report{
		CorrelationID: corrID,
		Title:         fmt.Sprintf("Cleanup failed: %s", election.Title),
		Severity:      model.SeverityError,
		Body:          fmt.Sprintf("Closing the election failed: %v. Operator attention required.", firstErr),
		Fields:        map[string]string{"election": election.ID},
	}
	if err := sink.Post(ctx, report); err != nil {
		s.logger.Warn().Err(err).Msg("cleanup failure report could not be posted")
	}
	return firstErr
}

func (s *TallyService) countRun(outcome string) {
	if s.runsTotal != nil {
		s.runsTotal.WithLabelValues(outcome).Inc()
	}
}
