package loanpool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/pkg/amount"
)

// ContractName is the storage namespace and journal name of the loan pool.
const ContractName = "loan_pool"

const (
	MethodInitialize    = "initialize"
	MethodCreateAsset   = "create_asset"
	MethodInvest        = "invest"
	MethodDeployAsset   = "deploy_asset"
	MethodCompleteAsset = "complete_asset"
)

// Contract crowdfunds mobility assets and tracks their lifecycle.
type Contract struct {
	rt     *ledger.Runtime
	logger *zap.Logger
}

// NewContract creates the loan pool on top of rt.
func NewContract(rt *ledger.Runtime, logger *zap.Logger) *Contract {
	return &Contract{rt: rt, logger: logger}
}

func (c *Contract) Name() string {
	return ContractName
}

// Initialize stores the admin and equity oracle. It succeeds only once.
func (c *Contract) Initialize(ctx context.Context, caller ledger.Address, req InitializeRequest) error {
	return c.rt.Execute(ctx, c.call(MethodInitialize, caller, req), func(tx *ledger.Tx) error {
		exists, err := tx.Has(keyConfig)
		if err != nil {
			return err
		}
		if exists {
			return ledger.ErrAlreadyInitialized
		}
		if err := ledger.ValidateAddresses(req.Admin, req.EquityOracle); err != nil {
			return err
		}
		if err := tx.Put(keyConfig, Config{Admin: req.Admin, EquityOracle: req.EquityOracle}); err != nil {
			return err
		}
		return tx.Put(keyBalance, decimal.Zero)
	})
}

// CreateAsset lists a new asset in the funding state. Admin only.
func (c *Contract) CreateAsset(ctx context.Context, caller ledger.Address, req CreateAssetRequest) error {
	err := c.rt.Execute(ctx, c.call(MethodCreateAsset, caller, req), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if tx.Caller() != cfg.Admin {
			return ledger.ErrUnauthorized
		}
		if err := ledger.ValidateSymbols(req.AssetID, req.AssetType, req.Location); err != nil {
			return err
		}

		exists, err := tx.Has(assetKey(req.AssetID))
		if err != nil {
			return err
		}
		if exists {
			return ErrAssetExists
		}
		if !amount.Positive(req.TargetAmount) {
			return ErrInvalidAmount
		}

		return tx.Put(assetKey(req.AssetID), MobilityAsset{
			ID:           req.AssetID,
			Name:         req.Name,
			AssetType:    req.AssetType,
			TargetAmount: req.TargetAmount,
			FundedAmount: decimal.Zero,
			Location:     req.Location,
			EquityScore:  AssetEquityScore(req.Location),
			Status:       AssetFunding,
			Investors:    []ledger.Address{},
			CreatedAt:    tx.Timestamp(),
		})
	})
	if err != nil {
		return err
	}

	c.logger.Info("Mobility asset listed",
		zap.String("asset_id", req.AssetID.String()),
		zap.String("target_amount", req.TargetAmount.String()))
	return nil
}

// Invest records a contribution and returns the investor's equity bonus.
// The asset moves to funded once the target is reached.
func (c *Contract) Invest(ctx context.Context, caller ledger.Address, req InvestRequest) (int32, error) {
	var (
		bonus  int32
		funded bool
	)
	err := c.rt.Execute(ctx, c.call(MethodInvest, caller, req), func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		if !amount.Positive(req.Amount) {
			return ErrInvalidAmount
		}
		if err := req.Investor.Validate(); err != nil {
			return err
		}

		asset, err := loadAsset(tx, req.AssetID)
		if err != nil {
			return err
		}
		if asset.Status != AssetFunding {
			return ErrAssetNotFunding
		}

		bonus = InvestorBonus(req.Investor, asset.Location)
		seq := len(asset.Investors)
		asset.Investors = append(asset.Investors, req.Investor)
		asset.FundedAmount = asset.FundedAmount.Add(req.Amount)
		if !amount.Valid(asset.FundedAmount) {
			return ErrInvalidAmount
		}
		if asset.FundedAmount.GreaterThanOrEqual(asset.TargetAmount) {
			asset.Status = AssetFunded
			funded = true
		}

		investment := Investment{
			Investor:    req.Investor,
			AssetID:     req.AssetID,
			Amount:      req.Amount,
			EquityBonus: bonus,
			Timestamp:   tx.Timestamp(),
		}
		if err := tx.Put(investmentKey(req.AssetID, seq), investment); err != nil {
			return err
		}
		if err := tx.Put(assetKey(req.AssetID), asset); err != nil {
			return err
		}

		var balance decimal.Decimal
		if _, err := tx.Get(keyBalance, &balance); err != nil {
			return err
		}
		balance = balance.Add(req.Amount)
		if !amount.Valid(balance) {
			return ErrInvalidAmount
		}
		return tx.Put(keyBalance, balance)
	})
	if err != nil {
		return 0, err
	}

	if funded {
		c.logger.Info("Mobility asset fully funded", zap.String("asset_id", req.AssetID.String()))
	}
	return bonus, nil
}

// DeployAsset moves a funded asset into service. Admin only.
func (c *Contract) DeployAsset(ctx context.Context, caller ledger.Address, assetID ledger.Symbol) error {
	return c.advance(ctx, caller, MethodDeployAsset, assetID, AssetDeployed, ErrAssetNotFunded)
}

// CompleteAsset retires a deployed asset. Admin only.
func (c *Contract) CompleteAsset(ctx context.Context, caller ledger.Address, assetID ledger.Symbol) error {
	return c.advance(ctx, caller, MethodCompleteAsset, assetID, AssetCompleted, ErrAssetNotDeployed)
}

func (c *Contract) advance(ctx context.Context, caller ledger.Address, method string, assetID ledger.Symbol, target AssetStatus, wrongState ledger.Code) error {
	return c.rt.Execute(ctx, c.call(method, caller, AssetRequest{AssetID: assetID}), func(tx *ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if tx.Caller() != cfg.Admin {
			return ledger.ErrUnauthorized
		}

		asset, err := loadAsset(tx, assetID)
		if err != nil {
			return err
		}
		if !assetLifecycle.CanTransition(asset.Status, target) {
			return wrongState
		}

		asset.Status = target
		return tx.Put(assetKey(assetID), asset)
	})
}

// GetAsset returns a single asset.
func (c *Contract) GetAsset(ctx context.Context, assetID ledger.Symbol) (*MobilityAsset, error) {
	var asset MobilityAsset
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		var err error
		asset, err = loadAsset(tx, assetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// GetAllAssets lists every asset ordered by id.
func (c *Contract) GetAllAssets(ctx context.Context) ([]MobilityAsset, error) {
	var assets []MobilityAsset
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		var err error
		assets, err = ledger.ScanAll[MobilityAsset](tx, prefixAssets)
		return err
	})
	return assets, err
}

// GetAssetInvestments lists an asset's investments in the order they were made.
func (c *Contract) GetAssetInvestments(ctx context.Context, assetID ledger.Symbol) ([]Investment, error) {
	var investments []Investment
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		if err := assetID.Validate(); err != nil {
			return err
		}
		var err error
		investments, err = ledger.ScanAll[Investment](tx, investmentPrefix(assetID))
		return err
	})
	return investments, err
}

// GetPoolBalance returns the total invested across all assets.
func (c *Contract) GetPoolBalance(ctx context.Context) (decimal.Decimal, error) {
	balance := decimal.Zero
	err := c.rt.View(ctx, ContractName, func(tx *ledger.Tx) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}
		_, err := tx.Get(keyBalance, &balance)
		return err
	})
	return balance, err
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
	case MethodCreateAsset:
		var req CreateAssetRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		return c.CreateAsset(ctx, caller, req)
	case MethodInvest:
		var req InvestRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		_, err := c.Invest(ctx, caller, req)
		return err
	case MethodDeployAsset, MethodCompleteAsset:
		var req AssetRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return fmt.Errorf("failed to decode %s args: %w", method, err)
		}
		if method == MethodDeployAsset {
			return c.DeployAsset(ctx, caller, req.AssetID)
		}
		return c.CompleteAsset(ctx, caller, req.AssetID)
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

func loadAsset(tx *ledger.Tx, id ledger.Symbol) (MobilityAsset, error) {
	var asset MobilityAsset
	ok, err := tx.Get(assetKey(id), &asset)
	if err != nil {
		return asset, err
	}
	if !ok {
		return asset, ErrAssetNotFound
	}
	return asset, nil
}
