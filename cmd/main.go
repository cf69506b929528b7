package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/riftwatch/riftsync/internal"
)

func main() {
	cfg, err := internal.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := internal.NewLogger(cfg)
	metrics := internal.NewMetricsCollector(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := internal.NewDatabaseManager(cfg, logger)
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	defer db.Close()

	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Error bootstrapping schema: %v", err)
	}

	cache := internal.NewCacheManager(cfg)
	limiter := internal.NewRateLimiter(cfg, logger)
	riotClient := internal.NewRiotAPIClient(cfg, limiter, cache, logger, metrics)

	natsClient, err := internal.NewNATSClient(cfg, logger)
	if err != nil {
		log.Fatalf("Error connecting to NATS: %v", err)
	}
	defer natsClient.Close()

	dedup := internal.NewDeduplicationResolver(db, logger)
	matchPipeline := internal.NewMatchPipeline(cfg, riotClient, db, dedup, natsClient, logger, metrics)
	summonerPipeline := internal.NewSummonerPipeline(cfg, riotClient, db, logger)
	catalogPipeline := internal.NewCatalogPipeline(riotClient, db, logger)

	if _, err := natsClient.StartSummonerRefreshWorker(summonerPipeline); err != nil {
		log.Fatalf("Error starting refresh worker: %v", err)
	}

	profiler := internal.NewProfiler(cfg, logger)
	profiler.StartMemoryProfiling(ctx)

	scheduler := internal.NewSyncScheduler(cfg, matchPipeline, summonerPipeline, catalogPipeline, db, natsClient, logger)

	done := make(chan struct{})
	if cfg.SyncEnabled {
		go func() {
			scheduler.Run(ctx)
			close(done)
		}()
	} else {
		close(done)
		logger.Warn("sync_disabled").
			Component("main").
			Operation("startup").
			Log()
	}

	ops := internal.NewOpsServer(cfg, scheduler, db, natsClient, metrics, logger)
	server := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: ops.Routes(),
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	logger.Info("ops_listener_started").
		Component("main").
		Operation("startup").
		Meta("port", cfg.AppPort).
		Log()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Error starting ops listener: %v", err)
	}

	<-done
}
