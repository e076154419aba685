package service

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tekeve/WITv3.0-sub000/internal/model"
	"github.com/tekeve/WITv3.0-sub000/internal/repository"
	"github.com/tekeve/WITv3.0-sub000/pkg/hash"
)

// CasterService is the ballot-casting protocol: it resolves tokens for the
// vote-details lookup and submits ballots through the atomic casting
// transaction in BallotRepo.
type CasterService struct {
	repo       *repository.BallotRepo
	cache      *TokenCache
	logger     zerolog.Logger
	castsTotal *prometheus.CounterVec
}

func NewCasterService(repo *repository.BallotRepo, cache *TokenCache, logger zerolog.Logger, castsTotal *prometheus.CounterVec) *CasterService {
	return &CasterService{
		repo:       repo,
		cache:      cache,
		logger:     logger,
		castsTotal: castsTotal,
	}
}

// VoteDetails returns the title and candidate list for a valid, unused token
// on an active election. Served cache-aside through Redis when available.
func (s *CasterService) VoteDetails(ctx context.Context, token string) (*model.VoteDetailsResponse, error) {
	if s.cache != nil {
		cached, err := s.cache.GetDetails(ctx, token)
		if err != nil {
			s.logger.Warn().Err(err).Msg("token cache read failed")
		}
		if cached != nil {
			return cached, nil
		}
	}

	election, err := s.repo.TokenElection(ctx, token)
	if err != nil {
		return nil, err
	}

	details := &model.VoteDetailsResponse{
		Title:      election.Title,
		Candidates: election.Candidates,
	}
	if s.cache != nil {
		if err := s.cache.SetDetails(ctx, token, election.ID, details); err != nil {
			s.logger.Warn().Err(err).Msg("token cache write failed")
		}
	}
	return details, nil
}

// Cast submits a ballot. All validation and persistence happens inside one
// transaction in the repository; this layer adds cache invalidation, metrics,
// and logging keyed on a token hash rather than the token itself.
func (s *CasterService) Cast(ctx context.Context, token string, choices []string) error {
	err := s.repo.Cast(ctx, token, choices)

	if s.castsTotal != nil {
		s.castsTotal.WithLabelValues(castOutcome(err)).Inc()
	}

	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, token); err != nil {
			s.logger.Warn().Err(err).Msg("token cache invalidate failed")
		}
	}

	s.logger.Info().
		Str("token_hash", hash.TokenKeySuffix(token)).
		Msg("ballot cast")
	return nil
}

func castOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, model.ErrInactiveElection):
		return "inactive_election"
	case errors.Is(err, model.ErrMalformedBallot):
		return "malformed_ballot"
	case errors.Is(err, model.ErrConcurrentCast):
		return "conflict"
	default:
		return "storage_error"
	}
}
