package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"

	"github.com/tekeve/WITv3.0-sub000/internal/config"
	"github.com/tekeve/WITv3.0-sub000/internal/db"
	"github.com/tekeve/WITv3.0-sub000/internal/handler"
	"github.com/tekeve/WITv3.0-sub000/internal/middleware"
	"github.com/tekeve/WITv3.0-sub000/internal/repository"
	"github.com/tekeve/WITv3.0-sub000/internal/router"
	"github.com/tekeve/WITv3.0-sub000/internal/service"
)

func main() {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "elections")
	logger := middleware.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.InitSchema(ctx, pool); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	handler.InitMetrics(pool)

	cache := service.NewTokenCache(cfg.RedisURL)
	defer cache.Close()

	ballotRepo := repository.NewBallotRepo(pool)
	electionRepo := repository.NewElectionRepo(pool)
	scheduleRepo := repository.NewScheduleRepo(pool)

	var sink service.ResultSink
	if cfg.SinkWebhookURL != "" {
		sink = service.NewWebhookSink(cfg.SinkWebhookURL)
	} else {
		logger.Warn().Msg("no SINK_WEBHOOK_URL configured, tally reports go to the log")
		sink = service.NewLogSink(logger)
	}
	sink = service.NewInstrumentedSink(sink, handler.Metrics.ReportsPosted)

	// Elections may carry their own sink_ref; treat it as a webhook URL.
	sinkFor := func(ref string) service.ResultSink {
		return service.NewInstrumentedSink(service.NewWebhookSink(ref), handler.Metrics.ReportsPosted)
	}

	caster := service.NewCasterService(ballotRepo, cache, logger, handler.Metrics.CastsTotal)
	tally := service.NewTallyService(electionRepo, scheduleRepo, sink, sinkFor, cache, logger, cfg.ReportDelay, handler.Metrics.TalliesTotal)

	worker := service.NewTallyWorker(pool, scheduleRepo, tally, logger, cfg.SchedulerPoll)
	go worker.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "Elections API",
		ServerHeader: "Elections",
	})

	router.Setup(app, &router.Handlers{
		Vote:   handler.NewVoteHandler(caster),
		Tally:  handler.NewTallyHandler(tally),
		Health: handler.NewHealthHandler(pool, cache.Client()),
	}, cfg.CORSOrigins)

	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Printf("elections backend starting on :%s (env=%s)", cfg.Port, cfg.Environment)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
