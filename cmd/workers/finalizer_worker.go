package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mobility-finance/ledger-backend/internal/app"
	"mobility-finance/ledger-backend/internal/config"
	"mobility-finance/ledger-backend/internal/keeper"
	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/internal/logger"
)

// The finalizer worker is the only writer for its store while it runs. Do
// not point it at a store that a ledger-api process is serving.
func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	once := flag.Bool("once", false, "run a single finalizer pass and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledgerApp, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open ledger", zap.Error(err))
	}
	defer ledgerApp.Close()

	finalizer := keeper.NewFinalizer(
		ledgerApp.Contracts.Governance,
		ledger.SystemClock{},
		ledger.Address(cfg.Keeper.Principal),
		cfg.Keeper.BatchSize,
		log,
	)

	if *once {
		res, err := finalizer.FinalizeDue(ctx)
		if err != nil {
			log.Fatal("Finalizer pass failed", zap.Error(err))
		}
		log.Info("Finalizer pass done",
			zap.Int("due", res.Due),
			zap.Int("passed", res.Passed),
			zap.Int("failed", res.Failed))
		return
	}

	scheduler := keeper.NewScheduler(log)
	if err := scheduler.Schedule(cfg.Keeper.Schedule, finalizer); err != nil {
		log.Fatal("Failed to schedule finalizer", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Finalizer worker starting",
			zap.String("schedule", cfg.Keeper.Schedule),
			zap.Int("batch_size", cfg.Keeper.BatchSize))
		if err := scheduler.Start(); err != nil {
			return err
		}
		<-gctx.Done()
		log.Info("Shutdown signal received")
		scheduler.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Worker error", zap.Error(err))
	}
	log.Info("Finalizer worker stopped")
}
