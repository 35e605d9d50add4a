package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mobility-finance/ledger-backend/internal/app"
	"mobility-finance/ledger-backend/internal/config"
	"mobility-finance/ledger-backend/internal/equity"
	"mobility-finance/ledger-backend/internal/events"
	"mobility-finance/ledger-backend/internal/gateway"
	"mobility-finance/ledger-backend/internal/governance"
	"mobility-finance/ledger-backend/internal/keeper"
	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/internal/loanpool"
	"mobility-finance/ledger-backend/internal/logger"
	"mobility-finance/ledger-backend/internal/revenue"
	"mobility-finance/ledger-backend/internal/statements"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	cfg, err := config.LoadConfig(configPath)
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

	if err := run(cfg, log); err != nil {
		log.Fatal("Ledger API stopped with error", zap.Error(err))
	}
	log.Info("Server exiting")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var observers []ledger.Observer
	var hub *events.Hub
	if cfg.Events.WebSocket {
		hub = events.NewHub(log)
		defer hub.Close()
		observers = append(observers, hub)
	}

	ledgerApp, err := app.New(ctx, cfg, log, observers...)
	if err != nil {
		return err
	}
	defer ledgerApp.Close()

	if err := ledgerApp.Contracts.Bootstrap(ctx, cfg.Contracts, log); err != nil {
		return err
	}

	secret := cfg.Security.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("No JWT secret configured, using an ephemeral one")
	}
	tokens := gateway.NewTokenManager(secret, cfg.Security.TokenTTL)

	router := newRouter(cfg, log, ledgerApp, tokens, hub)

	scheduler := keeper.NewScheduler(log)
	finalizer := keeper.NewFinalizer(
		ledgerApp.Contracts.Governance,
		ledger.SystemClock{},
		ledger.Address(cfg.Keeper.Principal),
		cfg.Keeper.BatchSize,
		log,
	)
	if err := scheduler.Schedule(cfg.Keeper.Schedule, finalizer); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server started", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := scheduler.Start(); err != nil {
			return err
		}
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func newRouter(cfg *config.Config, log *zap.Logger, ledgerApp *app.App, tokens *gateway.TokenManager, hub *events.Hub) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), gateway.RequestID(), gateway.AccessLog(log), gateway.CORS())

	router.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":    "healthy",
			"storage":   cfg.Storage.Driver,
			"journal":   cfg.Journal.Enabled,
			"timestamp": time.Now(),
		}
		if hub != nil {
			body["subscribers"] = hub.ClientCount()
		}
		c.JSON(http.StatusOK, body)
	})

	api := router.Group("/api/v1", tokens.Authenticate())
	{
		gateway.RegisterRoutes(api)
		equity.NewHandler(ledgerApp.Contracts.Equity, log).RegisterRoutes(api)
		loanpool.NewHandler(ledgerApp.Contracts.LoanPool, log).RegisterRoutes(api)
		revenue.NewHandler(ledgerApp.Contracts.Revenue, log).RegisterRoutes(api)
		governance.NewHandler(ledgerApp.Contracts.Governance, log).RegisterRoutes(api)
		statements.NewHandler(statements.NewService(ledgerApp.Contracts.Revenue, ledger.SystemClock{}), log).RegisterRoutes(api)
	}

	if hub != nil {
		router.GET("/events/ws", tokens.Authenticate(), hub.ServeWS)
	}

	return router
}
