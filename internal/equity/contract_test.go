package equity

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/ledger"
)

const (
	admin    ledger.Address = "GADMIN0000000001"
	oracle   ledger.Address = "GORACLE000000001"
	borrower ledger.Address = "GBORROWER0000001"
)

func newTestContract(t *testing.T, strict bool) (*Contract, *ledger.ManualClock) {
	t.Helper()
	clock := ledger.NewManualClock(1_700_000_000)
	rt := ledger.NewRuntime(ledger.NewMemoryStore(), clock)
	c := NewContract(rt, zap.NewNop())
	require.NoError(t, c.Initialize(context.Background(), admin, InitializeRequest{
		Admin:             admin,
		Oracle:            oracle,
		BaseRate:          10,
		RequireOracleData: strict,
	}))
	return c, clock
}

func exampleUrbanData(location ledger.Symbol) UpdateUrbanDataRequest {
	return UpdateUrbanDataRequest{
		Location:             location,
		IncomeLevel:          2,
		PollutionLevel:       9,
		PublicTransportScore: 2,
		PopulationDensity:    7,
	}
}

func TestInitialize_OnlyOnce(t *testing.T) {
	c, _ := newTestContract(t, false)

	err := c.Initialize(context.Background(), borrower, InitializeRequest{Admin: borrower, Oracle: borrower, BaseRate: 99})
	assert.ErrorIs(t, err, ledger.ErrAlreadyInitialized)
}

func TestOperations_RequireInitialization(t *testing.T) {
	rt := ledger.NewRuntime(ledger.NewMemoryStore(), ledger.NewManualClock(1))
	c := NewContract(rt, zap.NewNop())

	_, err := c.SubmitApplication(context.Background(), borrower, SubmitApplicationRequest{
		Borrower: borrower, AssetID: "ebike_001", RequestedAmount: decimal.NewFromInt(1), Location: "downtown",
	})
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)

	_, err = c.GetStats(context.Background())
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)
}

func TestSubmitApplication_UsesOracleData(t *testing.T) {
	c, clock := newTestContract(t, false)
	ctx := context.Background()
	require.NoError(t, c.UpdateUrbanData(ctx, oracle, exampleUrbanData("eastside")))

	id, err := c.SubmitApplication(ctx, borrower, SubmitApplicationRequest{
		Borrower:        borrower,
		AssetID:         "ebike_001",
		RequestedAmount: decimal.NewFromInt(5000),
		Location:        "eastside",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.ShortID(string(borrower), "ebike_001", ledger.FormatTimestamp(clock.Now())), id)

	app, err := c.GetApplication(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int32(57), app.EquityScore)
	assert.Equal(t, int32(10), app.BaseRate)
	assert.Equal(t, int32(16), app.AdjustedRate)
	assert.Equal(t, StatusPending, app.Status)
	assert.Equal(t, "5000", app.RequestedAmount.String())
	assert.Equal(t, int32(2), app.UrbanData.IncomeLevel)
	assert.Equal(t, clock.Now(), app.CreatedAt)

	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 1}, stats)
}

func TestSubmitApplication_InvalidAmount(t *testing.T) {
	c, _ := newTestContract(t, false)
	ctx := context.Background()

	for _, amt := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5), decimal.RequireFromString("10.5")} {
		_, err := c.SubmitApplication(ctx, borrower, SubmitApplicationRequest{
			Borrower: borrower, AssetID: "ebike_001", RequestedAmount: amt, Location: "downtown",
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}

	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestSubmitApplication_MockDataIsCached(t *testing.T) {
	c, clock := newTestContract(t, false)
	ctx := context.Background()

	_, err := c.GetUrbanDataForLocation(ctx, "midtown")
	assert.ErrorIs(t, err, ErrDataNotFound)

	id, err := c.SubmitApplication(ctx, borrower, SubmitApplicationRequest{
		Borrower: borrower, AssetID: "scooter_7", RequestedAmount: decimal.NewFromInt(100), Location: "midtown",
	})
	require.NoError(t, err)

	expected := MockUrbanData("midtown", clock.Now())
	app, err := c.GetApplication(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, expected, app.UrbanData)
	assert.Equal(t, EquityScore(expected), app.EquityScore)

	cached, err := c.GetUrbanDataForLocation(ctx, "midtown")
	require.NoError(t, err)
	assert.Equal(t, expected, *cached)
}

func TestSubmitApplication_StrictOracleMode(t *testing.T) {
	c, _ := newTestContract(t, true)
	ctx := context.Background()

	_, err := c.SubmitApplication(ctx, borrower, SubmitApplicationRequest{
		Borrower: borrower, AssetID: "ebike_001", RequestedAmount: decimal.NewFromInt(100), Location: "nowhere",
	})
	assert.ErrorIs(t, err, ErrDataNotFound)

	_, err = c.CalculateRateAdjustment(ctx, "nowhere")
	assert.ErrorIs(t, err, ErrDataNotFound)

	require.NoError(t, c.UpdateUrbanData(ctx, oracle, exampleUrbanData("nowhere")))
	_, err = c.SubmitApplication(ctx, borrower, SubmitApplicationRequest{
		Borrower: borrower, AssetID: "ebike_001", RequestedAmount: decimal.NewFromInt(100), Location: "nowhere",
	})
	assert.NoError(t, err)
}

func TestSubmitApplication_DuplicateWithinTimestamp(t *testing.T) {
	c, clock := newTestContract(t, false)
	ctx := context.Background()
	req := SubmitApplicationRequest{
		Borrower: borrower, AssetID: "ebike_001", RequestedAmount: decimal.NewFromInt(100), Location: "downtown",
	}

	first, err := c.SubmitApplication(ctx, borrower, req)
	require.NoError(t, err)

	_, err = c.SubmitApplication(ctx, borrower, req)
	assert.ErrorIs(t, err, ErrApplicationExists)

	clock.Advance(1)
	second, err := c.SubmitApplication(ctx, borrower, req)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	apps, err := c.GetBorrowerApplications(ctx, borrower)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.True(t, apps[0].ID < apps[1].ID)

	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), stats.Pending)
}

func TestApplicationDecisions(t *testing.T) {
	c, clock := newTestContract(t, false)
	ctx := context.Background()
	submit := func(asset ledger.Symbol) ledger.Symbol {
		id, err := c.SubmitApplication(ctx, borrower, SubmitApplicationRequest{
			Borrower: borrower, AssetID: asset, RequestedAmount: decimal.NewFromInt(100), Location: "downtown",
		})
		require.NoError(t, err)
		return id
	}
	approved := submit("ebike_001")
	clock.Advance(1)
	rejected := submit("ebike_002")

	assert.ErrorIs(t, c.ApproveApplication(ctx, borrower, approved), ledger.ErrUnauthorized)
	assert.ErrorIs(t, c.ApproveApplication(ctx, oracle, approved), ledger.ErrUnauthorized)
	assert.ErrorIs(t, c.ApproveApplication(ctx, admin, "missing"), ErrApplicationNotFound)

	require.NoError(t, c.ApproveApplication(ctx, admin, approved))
	require.NoError(t, c.RejectApplication(ctx, admin, rejected))

	assert.ErrorIs(t, c.RejectApplication(ctx, admin, approved), ErrInvalidStatus)
	assert.ErrorIs(t, c.ApproveApplication(ctx, admin, rejected), ErrInvalidStatus)

	app, err := c.GetApplication(ctx, approved)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, app.Status)

	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 0, Approved: 1, Rejected: 1}, stats)
}

func TestUpdateUrbanData(t *testing.T) {
	c, clock := newTestContract(t, false)
	ctx := context.Background()

	assert.ErrorIs(t, c.UpdateUrbanData(ctx, admin, exampleUrbanData("eastside")), ledger.ErrUnauthorized)

	bad := exampleUrbanData("eastside")
	bad.PollutionLevel = 11
	assert.ErrorIs(t, c.UpdateUrbanData(ctx, oracle, bad), ErrInvalidInput)

	require.NoError(t, c.UpdateUrbanData(ctx, oracle, exampleUrbanData("eastside")))
	data, err := c.GetUrbanDataForLocation(ctx, "eastside")
	require.NoError(t, err)
	assert.Equal(t, UrbanData{
		Location:             "eastside",
		IncomeLevel:          2,
		PollutionLevel:       9,
		PublicTransportScore: 2,
		PopulationDensity:    7,
		Timestamp:            clock.Now(),
	}, *data)

	delta, err := c.CalculateRateAdjustment(ctx, "eastside")
	require.NoError(t, err)
	assert.Equal(t, int32(6), delta)
}

func TestCalculateRateAdjustment_DoesNotCache(t *testing.T) {
	c, _ := newTestContract(t, false)
	ctx := context.Background()

	_, err := c.CalculateRateAdjustment(ctx, "harbor")
	require.NoError(t, err)

	_, err = c.GetUrbanDataForLocation(ctx, "harbor")
	assert.ErrorIs(t, err, ErrDataNotFound)
}
