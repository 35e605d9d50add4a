// Package app assembles the ledger runtime, its contracts and their
// infrastructure from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mobility-finance/ledger-backend/internal/config"
	"mobility-finance/ledger-backend/internal/equity"
	"mobility-finance/ledger-backend/internal/events"
	"mobility-finance/ledger-backend/internal/governance"
	"mobility-finance/ledger-backend/internal/journal"
	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/internal/loanpool"
	"mobility-finance/ledger-backend/internal/revenue"
	"mobility-finance/ledger-backend/internal/storage"
)

// Contracts holds one instance of every ledger contract
type Contracts struct {
	Equity     *equity.Contract
	LoanPool   *loanpool.Contract
	Revenue    *revenue.Contract
	Governance *governance.Contract
}

// NewContracts binds every contract to rt
func NewContracts(rt *ledger.Runtime, logger *zap.Logger) Contracts {
	return Contracts{
		Equity:     equity.NewContract(rt, logger),
		LoanPool:   loanpool.NewContract(rt, logger),
		Revenue:    revenue.NewContract(rt, logger),
		Governance: governance.NewContract(rt, logger),
	}
}

// Dispatchers returns the contracts in a fixed order
func (c Contracts) Dispatchers() []ledger.Dispatcher {
	return []ledger.Dispatcher{c.Equity, c.LoanPool, c.Revenue, c.Governance}
}

// Names returns the contract names in dispatcher order
func (c Contracts) Names() []string {
	var names []string
	for _, d := range c.Dispatchers() {
		names = append(names, d.Name())
	}
	return names
}

// Bootstrap initializes every contract that has no configuration yet, signed
// by the configured admin. Nothing happens when no admin is configured.
func (c Contracts) Bootstrap(ctx context.Context, cfg config.ContractsConfig, logger *zap.Logger) error {
	if cfg.Admin == "" {
		return nil
	}
	admin := ledger.Address(cfg.Admin)
	oracle := ledger.Address(cfg.Oracle)
	pool := ledger.Address(cfg.LoanPool)

	steps := []struct {
		name        string
		initialized func(context.Context) (bool, error)
		initialize  func() error
	}{
		{equity.ContractName, c.Equity.Initialized, func() error {
			return c.Equity.Initialize(ctx, admin, equity.InitializeRequest{
				Admin: admin, Oracle: oracle, BaseRate: cfg.BaseRate, RequireOracleData: cfg.RequireOracleData,
			})
		}},
		{loanpool.ContractName, c.LoanPool.Initialized, func() error {
			return c.LoanPool.Initialize(ctx, admin, loanpool.InitializeRequest{Admin: admin, EquityOracle: oracle})
		}},
		{revenue.ContractName, c.Revenue.Initialized, func() error {
			return c.Revenue.Initialize(ctx, admin, revenue.InitializeRequest{
				Admin: admin, Oracle: oracle, LoanPool: pool, EquityBonusRate: cfg.EquityBonusRate,
			})
		}},
		{governance.ContractName, c.Governance.Initialized, func() error {
			return c.Governance.Initialize(ctx, admin, governance.InitializeRequest{
				Admin: admin, Oracle: oracle, LoanPool: pool, MinProposalDuration: cfg.MinProposalDuration,
			})
		}},
	}

	for _, step := range steps {
		ok, err := step.initialized(ctx)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", step.name, err)
		}
		if ok {
			continue
		}
		if err := step.initialize(); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		logger.Info("Contract initialized", zap.String("contract", step.name), zap.String("admin", cfg.Admin))
	}
	return nil
}

// journalStore is what the runtime appends to and replay reads from
type journalStore interface {
	ledger.Journal
	journal.Source
}

// App is a fully wired ledger
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sqlx.DB
	Store     ledger.KVStore
	Journal   journal.Source
	Runtime   *ledger.Runtime
	Contracts Contracts
	Publisher *events.Publisher
}

// New opens storage, the journal and the broker publisher, then builds the
// runtime and contracts. Extra observers such as the websocket hub are
// attached after the publisher.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, observers ...ledger.Observer) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if needsDatabase(cfg) {
		logger.Info("Connecting to database",
			zap.String("host", cfg.Database.Host),
			zap.String("db", cfg.Database.DBName))
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxConnections)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.MaxLifetime)
		a.DB = db
	}

	store, err := storage.Open(ctx, cfg.Storage, a.DB)
	if err != nil {
		return nil, err
	}
	a.Store = store

	opts := []ledger.Option{ledger.WithLogger(logger)}

	if cfg.Journal.Enabled {
		j, err := a.openJournal()
		if err != nil {
			return nil, err
		}
		a.Journal = j
		opts = append(opts, ledger.WithJournal(j))
	}

	if cfg.Events.AMQPURL != "" {
		pub, err := events.NewPublisher(events.DialURL(cfg.Events.AMQPURL), cfg.Events.Exchange, logger)
		if err != nil {
			return nil, err
		}
		a.Publisher = pub
		opts = append(opts, ledger.WithObserver(pub))
	}
	for _, o := range observers {
		opts = append(opts, ledger.WithObserver(o))
	}

	a.Runtime = ledger.NewRuntime(store, ledger.SystemClock{}, opts...)
	a.Contracts = NewContracts(a.Runtime, logger)

	ok = true
	return a, nil
}

// Replayer returns a replayer over the configured journal
func (a *App) Replayer() (*journal.Replayer, error) {
	if a.Journal == nil {
		return nil, errors.New("journal is not enabled")
	}
	return journal.NewReplayer(a.Journal, func(rt *ledger.Runtime) []ledger.Dispatcher {
		return NewContracts(rt, a.Logger).Dispatchers()
	}, a.Logger), nil
}

// Close releases the broker connection and the database
func (a *App) Close() {
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func (a *App) openJournal() (journalStore, error) {
	if a.DB == nil {
		return journal.NewMemoryJournal(), nil
	}
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: a.DB.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	return journal.NewGormJournal(gdb)
}

// needsDatabase reports whether PostgreSQL backs the state or the journal.
// An in-memory ledger keeps its journal in memory too.
func needsDatabase(cfg *config.Config) bool {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		return true
	case config.StorageMemory:
		return false
	default:
		return cfg.Journal.Enabled
	}
}
