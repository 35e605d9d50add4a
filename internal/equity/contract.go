package equity

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/pkg/amount"
)

// ContractName is the storage namespace and journal name of the rate adjuster.
const ContractName = "equity_rate_adjuster"

const (
	MethodInitialize         = "initialize"
	MethodSubmitApplication  = "submit_application"
	MethodApproveApplication = "approve_application"
	MethodRejectApplication  = "reject_application"
	MethodUpdateUrbanData    = "update_urban_data"
)

// Contract scores loan applications against urban data and prices them.
type Contract struct {
	rt     *ledger.Runtime
	logger *zap.Logger
}

// NewContract creates the rate adjuster on top of rt.
func NewContract(rt *ledger.Runtime, logger *zap.Logger) *Contract {
	return &Contract{rt: rt, logger: logger}
}

func (c *Contract) Name() string {
	return ContractName
}

// Initialize stores the admin, oracle and base rate. It succeeds only once.
func (c *Contract) Initialize(ctx context.Context, caller ledger.Address, req InitializeRequest) error {
	return c.rt.Execute(ctx, c.call(MethodInitialize, caller, req), func(tx *ledger.Tx) error {
		exists, err := tx.Has(keyConfig)
		if err != nil {
			return err
		}
		if exists {
			return ledger.ErrAlreadyInitialized
		}
		if err := ledger.ValidateAddresses(req.Admin, req.Oracle); err != nil {
			return err
		}

		cfg := Config{
			Admin:             req.Admin,
			Oracle:            req.Oracle,
			BaseRate:          req.BaseRate,
			MaxRateAdjustment: DefaultMaxRateAdjustment,
			RequireOracleData: req.RequireOracleData,
		}
		if err := tx.Put(keyConfig, cfg); err != nil {
			return err
		}
		return tx.Put(keyStats, Stats{})
	})
}

// SubmitApplication prices a new application and returns its identifier.
func (c *Contract) SubmitApplication(ctx context.Context, caller ledger.Address, req SubmitApplicationRequest) (ledger.Symbol, error) {
	var (
		id   ledger.Symbol
		rate int32
	)
	err := c.rt.Execute(ctx, c.call(MethodSubmitApplication, caller, req), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if !amount.Positive(req.RequestedAmount) {
			return ErrInvalidAmount
		}
		if err := req.Borrower.Validate(); err != nil {
			return err
		}
		if err := ledger.ValidateSymbols(req.AssetID, req.Location); err != nil {
			return err
		}

		urban, err := resolveUrbanData(tx, cfg, req.Location)
		if err != nil {
			return err
		}
		score := EquityScore(urban)

		id = ledger.ShortID(req.Borrower.String(), req.AssetID.String(), ledger.FormatTimestamp(tx.Timestamp()))
		exists, err := tx.Has(applicationKey(id))
		if err != nil {
			return err
		}
		if exists {
			return ErrApplicationExists
		}

		rate = AdjustedRate(cfg.BaseRate, cfg.MaxRateAdjustment, score, urban)
		app := LoanApplication{
			ID:              id,
			Borrower:        req.Borrower,
			AssetID:         req.AssetID,
			RequestedAmount: req.RequestedAmount,
			BaseRate:        cfg.BaseRate,
			AdjustedRate:    rate,
			EquityScore:     score,
			UrbanData:       urban,
			Status:          StatusPending,
			CreatedAt:       tx.Timestamp(),
		}
		if err := tx.Put(applicationKey(id), app); err != nil {
			return err
		}
		if err := tx.Put(borrowerKey(app.Borrower, id), id); err != nil {
			return err
		}
		if err := tx.Put(urbanKey(req.Location), urban); err != nil {
			return err
		}
		return updateStats(tx, func(s *Stats) { s.Pending++ })
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Loan application priced",
		zap.String("application_id", id.String()),
		zap.String("location", req.Location.String()),
		zap.Int32("adjusted_rate", rate))
	return id, nil
}

// ApproveApplication moves a pending application to approved. Admin only.
func (c *Contract) ApproveApplication(ctx context.Context, caller ledger.Address, id ledger.Symbol) error {
	return c.decide(ctx, caller, MethodApproveApplication, id, StatusApproved)
}

// RejectApplication moves a pending application to rejected. Admin only.
func (c *Contract) RejectApplication(ctx context.Context, caller ledger.Address, id ledger.Symbol) error {
	return c.decide(ctx, caller, MethodRejectApplication, id, StatusRejected)
}

func (c *Contract) decide(ctx context.Context, caller ledger.Address, method string, id ledger.Symbol, target ApplicationStatus) error {
	req := ApplicationDecisionRequest{ApplicationID: id}
	return c.rt.Execute(ctx, c.call(method, caller, req), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if tx.Caller() != cfg.Admin {
			return ledger.ErrUnauthorized
		}

		var app LoanApplication
		ok, err := tx.Get(applicationKey(id), &app)
		if err != nil {
			return err
		}
		if !ok {
			return ErrApplicationNotFound
		}
		if !applicationLifecycle.CanTransition(app.Status, target) {
			return ErrInvalidStatus
		}

		app.Status = target
		if err := tx.Put(applicationKey(id), app); err != nil {
			return err
		}
		return updateStats(tx, func(s *Stats) {
			s.Pending--
			if target == StatusApproved {
				s.Approved++
			} else {
				s.Rejected++
			}
		})
	})
}

// UpdateUrbanData replaces the cached snapshot for a location. Oracle only.
func (c *Contract) UpdateUrbanData(ctx context.Context, caller ledger.Address, req UpdateUrbanDataRequest) error {
	return c.rt.Execute(ctx, c.call(MethodUpdateUrbanData, caller, req), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if tx.Caller() != cfg.Oracle {
			return ledger.ErrUnauthorized
		}
		if err := req.Location.Validate(); err != nil {
			return err
		}
		for _, f := range []int32{req.IncomeLevel, req.PollutionLevel, req.PublicTransportScore, req.PopulationDensity} {
			if !validFactor(f) {
				return ErrInvalidInput
			}
		}

		return tx.Put(urbanKey(req.Location), UrbanData{
			Location:             req.Location,
			IncomeLevel:          req.IncomeLevel,
			PollutionLevel:       req.PollutionLevel,
			PublicTransportScore: req.PublicTransportScore,
			PopulationDensity:    req.PopulationDensity,
			Timestamp:            tx.Timestamp(),
		})
	})
}

// GetApplication returns a single application.
func (c *Contract) GetApplication(ctx context.Context, id ledger.Symbol) (*LoanApplication, error) {
	var app LoanApplication
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		ok, err := tx.Get(applicationKey(id), &app)
		if err != nil {
			return err
		}
		if !ok {
			return ErrApplicationNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// GetBorrowerApplications lists a borrower's applications ordered by id.
func (c *Contract) GetBorrowerApplications(ctx context.Context, borrower ledger.Address) ([]LoanApplication, error) {
	var apps []LoanApplication
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		if err := borrower.Validate(); err != nil {
			return err
		}
		ids, err := ledger.ScanAll[ledger.Symbol](tx, borrowerPrefix(borrower))
		if err != nil {
			return err
		}
		apps = make([]LoanApplication, 0, len(ids))
		for _, id := range ids {
			var app LoanApplication
			ok, err := tx.Get(applicationKey(id), &app)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("borrower index references missing application %s", id)
			}
			apps = append(apps, app)
		}
		return nil
	})
	return apps, err
}

// GetUrbanDataForLocation returns the cached oracle snapshot for a location.
func (c *Contract) GetUrbanDataForLocation(ctx context.Context, location ledger.Symbol) (*UrbanData, error) {
	var data UrbanData
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		ok, err := tx.Get(urbanKey(location), &data)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDataNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// CalculateRateAdjustment returns adjusted_rate - base_rate for a location
// without recording anything.
func (c *Contract) CalculateRateAdjustment(ctx context.Context, location ledger.Symbol) (int32, error) {
	var delta int32
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if err := location.Validate(); err != nil {
			return err
		}
		urban, err := resolveUrbanData(tx, cfg, location)
		if err != nil {
			return err
		}
		delta = AdjustedRate(cfg.BaseRate, cfg.MaxRateAdjustment, EquityScore(urban), urban) - cfg.BaseRate
		return nil
	})
	return delta, err
}

// GetStats returns application counts by status.
func (c *Contract) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		_, err := tx.Get(keyStats, &stats)
		return err
	})
	return stats, err
}

// Initialized reports whether Initialize has been committed.
func (c *Contract) Initialized(ctx context.Context) (bool, error) {
	var ok bool
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		var err error
		ok, err = tx.Has(keyConfig)
		return err
	})
	return ok, err
}

// Dispatch replays a journaled transaction.
func (c *Contract) Dispatch(ctx context.Context, caller ledger.Address, method string, args json.RawMessage) error {
	switch method {
	case MethodInitialize:
		var req InitializeRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		return c.Initialize(ctx, caller, req)
	case MethodSubmitApplication:
		var req SubmitApplicationRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		_, err := c.SubmitApplication(ctx, caller, req)
		return err
	case MethodApproveApplication, MethodRejectApplication:
		var req ApplicationDecisionRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		if method == MethodApproveApplication {
			return c.ApproveApplication(ctx, caller, req.ApplicationID)
		}
		return c.RejectApplication(ctx, caller, req.ApplicationID)
	case MethodUpdateUrbanData:
		var req UpdateUrbanDataRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		return c.UpdateUrbanData(ctx, caller, req)
	default:
		return fmt.Errorf("%w: %s.%s", ledger.ErrUnknownMethod, ContractName, method)
	}
}

func (c *Contract) call(method string, caller ledger.Address, args any) ledger.Call {
	return ledger.Call{Contract: ContractName, Method: method, Caller: caller, Args: args}
}

func loadConfig(tx *ledger.Tx) (Config, error) {
	var cfg Config
	ok, err := tx.Get(keyConfig, &cfg)
	if err != nil {
		return cfg, err
	}
	if !ok {
		return cfg, ledger.ErrNotInitialized
	}
	return cfg, nil
}

func resolveUrbanData(tx *ledger.Tx, cfg Config, location ledger.Symbol) (UrbanData, error) {
	var data UrbanData
	ok, err := tx.Get(urbanKey(location), &data)
	if err != nil {
		return data, err
	}
	if ok {
		return data, nil
	}
	if cfg.RequireOracleData {
		return data, ErrDataNotFound
	}
	return MockUrbanData(location, tx.Timestamp()), nil
}

func updateStats(tx *ledger.Tx, mutate func(*Stats)) error {
	var stats Stats
	if _, err := tx.Get(keyStats, &stats); err != nil {
		return err
	}
	mutate(&stats)
	return tx.Put(keyStats, stats)
}
