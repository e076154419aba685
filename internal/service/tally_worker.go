package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/tekeve/WITv3.0-sub000/internal/repository"
)

// TallyWorker drives scheduled tallies from the durable tally_jobs table.
// It polls for due jobs on a ticker and additionally wakes on Postgres
// NOTIFY when a job is scheduled, so a deadline that has already passed is
// picked up immediately. Because jobs are rows, a process restart resumes
// any pending tally instead of dropping it.
type TallyWorker struct {
	pool      *pgxpool.Pool
	schedule  *repository.ScheduleRepo
	tally     *TallyService
	logger    zerolog.Logger
	pollEvery time.Duration
}

func NewTallyWorker(pool *pgxpool.Pool, schedule *repository.ScheduleRepo, tally *TallyService, logger zerolog.Logger, pollEvery time.Duration) *TallyWorker {
	return &TallyWorker{
		pool:      pool,
		schedule:  schedule,
		tally:     tally,
		logger:    logger,
		pollEvery: pollEvery,
	}
}

// Start runs the worker until the context is cancelled, reconnecting the
// listening connection with a backoff on failure.
func (w *TallyWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("poll_every", w.pollEvery).Msg("tally worker starting")

	for {
		if err := w.listenLoop(ctx); err != nil {
			if ctx.Err() != nil {
				w.logger.Info().Msg("tally worker stopping")
				return
			}
			w.logger.Warn().Err(err).Msg("tally worker listen error, reconnecting in 5s")
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				w.logger.Info().Msg("tally worker stopping")
				return
			}
		}
	}
}

// listenLoop holds a dedicated connection on LISTEN while a side goroutine
// polls for jobs whose deadline arrives without any notification.
func (w *TallyWorker) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+repository.NotifyChannel); err != nil {
		return err
	}

	pollCtx, pollCancel := context.WithCancel(ctx)
	defer pollCancel()
	go w.pollLoop(pollCtx)

	// Catch up on anything that came due while we were not listening.
	w.runDue(ctx)

	for {
		if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
			return err
		}
		w.runDue(ctx)
	}
}

func (w *TallyWorker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runDue(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// runDue invokes the coordinator for every job whose deadline has passed.
// The job row is removed inside RunTally's cleanup, never here, so a crash
// mid-run leaves the job to be retried.
func (w *TallyWorker) runDue(ctx context.Context) {
	jobs, err := w.schedule.Due(ctx, time.Now())
	if err != nil {
		w.logger.Warn().Err(err).Msg("due job query failed")
		return
	}

	for _, job := range jobs {
		w.logger.Info().
			Str("job", job.ID).
			Str("election", job.ElectionID).
			Time("run_at", job.RunAt).
			Msg("running scheduled tally")
		if err := w.tally.RunTally(ctx, job.ElectionID); err != nil {
			w.logger.Error().Err(err).Str("election", job.ElectionID).Msg("scheduled tally failed")
		}
	}
}
