package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tekeve/WITv3.0-sub000/internal/model"
)

// NotifyChannel is the Postgres NOTIFY channel used to wake the tally worker
// when a job is scheduled, so due work is not stuck waiting on the poll tick.
const NotifyChannel = "tally_jobs"

type ScheduleRepo struct {
	pool *pgxpool.Pool
}

func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

// Schedule upserts the durable tally job for an election. One job per
// election; rescheduling moves the deadline. This is the producer side of
// the schedule, exposed for the election-creation service that owns minting
// elections and tokens; in-process the worker only consumes via Due/Delete.
func (r *ScheduleRepo) Schedule(ctx context.Context, electionID string, runAt time.Time) (*model.TallyJob, error) {
	job := &model.TallyJob{
		ID:         uuid.NewString(),
		ElectionID: electionID,
		RunAt:      runAt,
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tally_jobs (id, election_id, run_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (election_id) DO UPDATE SET run_at = EXCLUDED.run_at`,
		job.ID, job.ElectionID, job.RunAt)
	if err != nil {
		return nil, fmt.Errorf("schedule tally: %w", err)
	}

	_, err = r.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, electionID)
	if err != nil {
		return nil, fmt.Errorf("notify tally worker: %w", err)
	}
	return job, nil
}

// Due returns the jobs whose deadline has passed.
func (r *ScheduleRepo) Due(ctx context.Context, now time.Time) ([]model.TallyJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, election_id, run_at FROM tally_jobs
		WHERE run_at <= $1
		ORDER BY run_at`,
		now)
	if err != nil {
		return nil, fmt.Errorf("load due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.TallyJob
	for rows.Next() {
		var j model.TallyJob
		if err := rows.Scan(&j.ID, &j.ElectionID, &j.RunAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read jobs: %w", err)
	}
	return jobs, nil
}

// Delete removes the job for an election. Called only after the tally has
// run to completion, so a crash mid-tally leaves the job to be retried.
func (r *ScheduleRepo) Delete(ctx context.Context, electionID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tally_jobs WHERE election_id = $1`, electionID)
	if err != nil {
		return fmt.Errorf("delete tally job: %w", err)
	}
	return nil
}
