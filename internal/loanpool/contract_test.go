package loanpool

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/pkg/amount"
)

const (
	admin     ledger.Address = "GADMIN0000000001"
	oracle    ledger.Address = "GORACLE000000001"
	investorA ledger.Address = "GINVESTORA000001"
	investorB ledger.Address = "GINVESTORB000001"
)

func newTestPool(t *testing.T) *Contract {
	t.Helper()
	rt := ledger.NewRuntime(ledger.NewMemoryStore(), ledger.NewManualClock(1_700_000_000))
	c := NewContract(rt, zap.NewNop())
	require.NoError(t, c.Initialize(context.Background(), admin, InitializeRequest{Admin: admin, EquityOracle: oracle}))
	return c
}

func createAsset(t *testing.T, c *Contract, id ledger.Symbol, target int64, location ledger.Symbol) {
	t.Helper()
	require.NoError(t, c.CreateAsset(context.Background(), admin, CreateAssetRequest{
		AssetID:      id,
		Name:         "E-Bike Fleet",
		AssetType:    "ebike",
		TargetAmount: decimal.NewFromInt(target),
		Location:     location,
	}))
}

func invest(t *testing.T, c *Contract, investor ledger.Address, id ledger.Symbol, amt int64) int32 {
	t.Helper()
	bonus, err := c.Invest(context.Background(), investor, InvestRequest{
		Investor: investor, AssetID: id, Amount: decimal.NewFromInt(amt),
	})
	require.NoError(t, err)
	return bonus
}

func TestCreateAndFund(t *testing.T) {
	c := newTestPool(t)
	ctx := context.Background()
	createAsset(t, c, "ebike_001", 10000, "downtown_low_income")

	bonus := invest(t, c, investorA, "ebike_001", 1000)
	assert.GreaterOrEqual(t, bonus, int32(15))

	asset, err := c.GetAsset(ctx, "ebike_001")
	require.NoError(t, err)
	assert.Equal(t, "1000", asset.FundedAmount.String())
	assert.Equal(t, AssetFunding, asset.Status)
	assert.Equal(t, []ledger.Address{investorA}, asset.Investors)
	assert.Equal(t, AssetEquityScore("downtown_low_income"), asset.EquityScore)

	balance, err := c.GetPoolBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1000", balance.String())
}

func TestInvest_AutoFundedTransition(t *testing.T) {
	c := newTestPool(t)
	ctx := context.Background()
	createAsset(t, c, "shuttle_01", 20000, "uptown")

	invest(t, c, investorA, "shuttle_01", 8000)
	asset, err := c.GetAsset(ctx, "shuttle_01")
	require.NoError(t, err)
	assert.Equal(t, AssetFunding, asset.Status)

	invest(t, c, investorB, "shuttle_01", 12000)
	asset, err = c.GetAsset(ctx, "shuttle_01")
	require.NoError(t, err)
	assert.Equal(t, AssetFunded, asset.Status)
	assert.Len(t, asset.Investors, 2)

	investments, err := c.GetAssetInvestments(ctx, "shuttle_01")
	require.NoError(t, err)
	require.Len(t, investments, 2)
	assert.Equal(t, investorA, investments[0].Investor)
	assert.Equal(t, investorB, investments[1].Investor)

	sum := decimal.Zero
	for _, inv := range investments {
		sum = sum.Add(inv.Amount)
	}
	assert.True(t, sum.Equal(asset.FundedAmount))

	_, err = c.Invest(ctx, investorA, InvestRequest{Investor: investorA, AssetID: "shuttle_01", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrAssetNotFunding)
}

func TestAssetLifecycle(t *testing.T) {
	c := newTestPool(t)
	ctx := context.Background()
	createAsset(t, c, "scooter_9", 1000, "riverside")

	assert.ErrorIs(t, c.DeployAsset(ctx, admin, "scooter_9"), ErrAssetNotFunded)
	assert.ErrorIs(t, c.CompleteAsset(ctx, admin, "scooter_9"), ErrAssetNotDeployed)

	invest(t, c, investorA, "scooter_9", 1000)

	assert.ErrorIs(t, c.DeployAsset(ctx, investorA, "scooter_9"), ledger.ErrUnauthorized)
	require.NoError(t, c.DeployAsset(ctx, admin, "scooter_9"))
	asset, err := c.GetAsset(ctx, "scooter_9")
	require.NoError(t, err)
	assert.Equal(t, AssetDeployed, asset.Status)

	require.NoError(t, c.CompleteAsset(ctx, admin, "scooter_9"))
	asset, err = c.GetAsset(ctx, "scooter_9")
	require.NoError(t, err)
	assert.Equal(t, AssetCompleted, asset.Status)

	assert.ErrorIs(t, c.DeployAsset(ctx, admin, "scooter_9"), ErrAssetNotFunded)
}

func TestCreateAsset_Failures(t *testing.T) {
	c := newTestPool(t)
	ctx := context.Background()
	req := CreateAssetRequest{AssetID: "ebike_001", Name: "Fleet", AssetType: "ebike", TargetAmount: decimal.NewFromInt(10), Location: "downtown"}

	assert.ErrorIs(t, c.CreateAsset(ctx, investorA, req), ledger.ErrUnauthorized)

	zero := req
	zero.TargetAmount = decimal.Zero
	assert.ErrorIs(t, c.CreateAsset(ctx, admin, zero), ErrInvalidAmount)

	badID := req
	badID.AssetID = "bad id"
	assert.ErrorIs(t, c.CreateAsset(ctx, admin, badID), ledger.ErrInvalidSymbol)

	require.NoError(t, c.CreateAsset(ctx, admin, req))
	assert.ErrorIs(t, c.CreateAsset(ctx, admin, req), ErrAssetExists)

	assets, err := c.GetAllAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

func TestInvest_Failures(t *testing.T) {
	c := newTestPool(t)
	ctx := context.Background()

	_, err := c.Invest(ctx, investorA, InvestRequest{Investor: investorA, AssetID: "ghost", Amount: decimal.NewFromInt(0)})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = c.Invest(ctx, investorA, InvestRequest{Investor: investorA, AssetID: "ghost", Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, ErrAssetNotFound)

	balance, err := c.GetPoolBalance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestInvest_RejectsOverflowingTotals(t *testing.T) {
	ctx := context.Background()
	almostMax := amount.MaxI128.Sub(decimal.NewFromInt(1))

	newMaxAsset := func(c *Contract, id ledger.Symbol) {
		require.NoError(t, c.CreateAsset(ctx, admin, CreateAssetRequest{
			AssetID: id, Name: "Bus Depot", AssetType: "bus", TargetAmount: amount.MaxI128, Location: "downtown",
		}))
	}

	t.Run("asset funded amount", func(t *testing.T) {
		c := newTestPool(t)
		newMaxAsset(c, "bus_1")
		_, err := c.Invest(ctx, investorA, InvestRequest{Investor: investorA, AssetID: "bus_1", Amount: almostMax})
		require.NoError(t, err)

		_, err = c.Invest(ctx, investorB, InvestRequest{Investor: investorB, AssetID: "bus_1", Amount: amount.MaxI128})
		assert.ErrorIs(t, err, ErrInvalidAmount)

		asset, err := c.GetAsset(ctx, "bus_1")
		require.NoError(t, err)
		assert.True(t, asset.FundedAmount.Equal(almostMax))
		assert.Equal(t, AssetFunding, asset.Status)
		assert.Len(t, asset.Investors, 1)
	})

	t.Run("pool balance", func(t *testing.T) {
		c := newTestPool(t)
		newMaxAsset(c, "bus_1")
		newMaxAsset(c, "bus_2")
		_, err := c.Invest(ctx, investorA, InvestRequest{Investor: investorA, AssetID: "bus_1", Amount: almostMax})
		require.NoError(t, err)

		_, err = c.Invest(ctx, investorB, InvestRequest{Investor: investorB, AssetID: "bus_2", Amount: decimal.NewFromInt(2)})
		assert.ErrorIs(t, err, ErrInvalidAmount)

		balance, err := c.GetPoolBalance(ctx)
		require.NoError(t, err)
		assert.True(t, balance.Equal(almostMax))
		asset, err := c.GetAsset(ctx, "bus_2")
		require.NoError(t, err)
		assert.True(t, asset.FundedAmount.IsZero())
	})
}

func TestGetAllAssets_SortedByID(t *testing.T) {
	c := newTestPool(t)
	createAsset(t, c, "zeta", 10, "a")
	createAsset(t, c, "alpha", 10, "b")

	assets, err := c.GetAllAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, ledger.Symbol("alpha"), assets[0].ID)
	assert.Equal(t, ledger.Symbol("zeta"), assets[1].ID)
}
