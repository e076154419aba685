package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tekeve/WITv3.0-sub000/internal/model"
)

type ElectionRepo struct {
	pool *pgxpool.Pool
}

func NewElectionRepo(pool *pgxpool.Pool) *ElectionRepo {
	return &ElectionRepo{pool: pool}
}

// Get returns an election by ID, or (nil, nil) when it does not exist.
func (r *ElectionRepo) Get(ctx context.Context, id string) (*model.Election, error) {
	var e model.Election
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, candidates, seats, active, sink_ref, created_at
		FROM elections
		WHERE id = $1`,
		id).Scan(&e.ID, &e.Title, &e.Candidates, &e.Seats, &e.Active, &e.SinkRef, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load election: %w", err)
	}
	return &e, nil
}

// SnapshotBallots loads every ballot for an election in insertion order.
// The returned slice is the immutable snapshot the tally engine consumes.
func (r *ElectionRepo) SnapshotBallots(ctx context.Context, electionID string) ([][]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ranked_choices FROM ballots
		WHERE election_id = $1
		ORDER BY id`,
		electionID)
	if err != nil {
		return nil, fmt.Errorf("load ballots: %w", err)
	}
	defer rows.Close()

	var ballots [][]string
	for rows.Next() {
		var choices []string
		if err := rows.Scan(&choices); err != nil {
			return nil, fmt.Errorf("scan ballot: %w", err)
		}
		ballots = append(ballots, choices)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read ballots: %w", err)
	}
	return ballots, nil
}

// Deactivate flips the election inactive. Safe to call repeatedly.
func (r *ElectionRepo) Deactivate(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE elections SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate election: %w", err)
	}
	return nil
}

// PurgeIdentity deletes every casting token and participation record for an
// election in one transaction. Ballots are kept: they carry no voter data.
func (r *ElectionRepo) PurgeIdentity(ctx context.Context, electionID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM casting_tokens WHERE election_id = $1`, electionID); err != nil {
		return fmt.Errorf("purge tokens: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM participation_records WHERE election_id = $1`, electionID); err != nil {
		return fmt.Errorf("purge participation: %w", err)
	}

	return tx.Commit(ctx)
}
