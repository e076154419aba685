package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tekeve/WITv3.0-sub000/internal/model"
)

type BallotRepo struct {
	pool *pgxpool.Pool
}

func NewBallotRepo(pool *pgxpool.Pool) *BallotRepo {
	return &BallotRepo{pool: pool}
}

// TokenElection resolves a casting token to its owning election for the
// vote-details lookup. Read-only: the token stays unconsumed.
func (r *BallotRepo) TokenElection(ctx context.Context, token string) (*model.Election, error) {
	var used bool
	var e model.Election
	err := r.pool.QueryRow(ctx, `
		SELECT t.used, e.id, e.title, e.candidates, e.seats, e.active
		FROM casting_tokens t
		JOIN elections e ON e.id = t.election_id
		WHERE t.token = $1`,
		token).Scan(&used, &e.ID, &e.Title, &e.Candidates, &e.Seats, &e.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if used {
		return nil, model.ErrInvalidToken
	}
	if !e.Active {
		return nil, model.ErrInactiveElection
	}
	return &e, nil
}

// Cast runs the whole ballot-casting protocol as one transaction:
//
//  1. resolve the token and its election
//  2. validate the ranking against the candidate set (no mutation yet)
//  3. consume the token via a conditional update; zero rows affected means
//     a concurrent request won the race
//  4. record participation (idempotent insert)
//  5. store the anonymized ballot (no voter linkage column exists)
//
// Any failure rolls the whole transaction back, so partial writes are never
// observable and a malformed ballot leaves the token reusable.
func (r *BallotRepo) Cast(ctx context.Context, token string, choices []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cast: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		electionID string
		voterHash  string
		used       bool
		candidates []string
		active     bool
	)
	err = tx.QueryRow(ctx, `
		SELECT t.election_id, t.voter_hash, t.used, e.candidates, e.active
		FROM casting_tokens t
		JOIN elections e ON e.id = t.election_id
		WHERE t.token = $1`,
		token).Scan(&electionID, &voterHash, &used, &candidates, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("lookup token: %w", err)
	}
	if used {
		return model.ErrInvalidToken
	}
	if !active {
		return model.ErrInactiveElection
	}

	if err := model.ValidateRanking(candidates, choices); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE casting_tokens SET used = TRUE
		WHERE token = $1 AND used = FALSE`,
		token)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrConcurrentCast
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO participation_records (election_id, voter_hash)
		VALUES ($1, $2)
		ON CONFLICT (election_id, voter_hash) DO NOTHING`,
		electionID, voterHash)
	if err != nil {
		return fmt.Errorf("record participation: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ballots (election_id, ranked_choices)
		VALUES ($1, $2)`,
		electionID, choices)
	if err != nil {
		return fmt.Errorf("store ballot: %w", err)
	}

	return tx.Commit(ctx)
}
