package statements

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/internal/revenue"
)

const (
	admin  ledger.Address = "GADMIN0000000001"
	oracle ledger.Address = "GORACLE000000001"
)

func newService(t *testing.T) (*Service, ledger.Symbol) {
	t.Helper()
	ctx := context.Background()
	clock := ledger.NewManualClock(1_700_000_000)
	rev := revenue.NewContract(ledger.NewRuntime(ledger.NewMemoryStore(), clock), zap.NewNop())
	require.NoError(t, rev.Initialize(ctx, admin, revenue.InitializeRequest{
		Admin: admin, Oracle: oracle, LoanPool: "CLOANPOOL0000001", EquityBonusRate: 20,
	}))
	require.NoError(t, rev.RecordRevenue(ctx, oracle, revenue.RecordRevenueRequest{
		AssetID: "bus_1", RevenueAmount: decimal.NewFromInt(10000),
		RideCount: 100, CO2Saved: 1500, UnderservedRides: 60,
	}))
	id, err := rev.DistributeRevenue(ctx, admin, revenue.DistributeRevenueRequest{
		AssetID:           "bus_1",
		Investors:         []ledger.Address{"GINVESTORA", "GINVESTORB"},
		InvestmentAmounts: []decimal.Decimal{decimal.NewFromInt(3000), decimal.NewFromInt(1000)},
		EquityScores:      []int32{80, 50},
	})
	require.NoError(t, err)
	return NewService(rev, clock), id
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}

func TestStatement_RowsAndTotals(t *testing.T) {
	svc, id := newService(t)
	st, err := svc.ForDistribution(context.Background(), id)
	require.NoError(t, err)

	rows := st.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, ledger.Address("GINVESTORA"), rows[0].Investor)
	assert.Equal(t, "8560", rows[0].TotalAmount.String())
	assert.Equal(t, int64(1_700_000_000), rows[0].DistributedAt.Unix())

	totals := st.Totals()
	assert.Equal(t, 1, totals.Distributions)
	assert.Equal(t, 2, totals.Payouts)
	assert.Equal(t, "10000", totals.TotalRevenue.String())
	assert.Equal(t, "12160", totals.Distributed.String())
}

func TestWriteCSV(t *testing.T) {
	svc, id := newService(t)
	st, err := svc.ForDistribution(context.Background(), id)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatCSV, st))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, string(id), records[1][0])
	assert.Equal(t, "2023-11-14T22:13:20Z", records[1][2])
	assert.Equal(t, "GINVESTORB", records[2][3])
	assert.Equal(t, "3600", records[2][6])
}

func TestWriteXLSX(t *testing.T) {
	svc, _ := newService(t)
	st, err := svc.ForAsset(context.Background(), "bus_1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatXLSX, st))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{PayoutsSheet, SummarySheet}, f.GetSheetList())

	header, err := f.GetCellValue(PayoutsSheet, "D1")
	require.NoError(t, err)
	assert.Equal(t, "investor", header)
	investor, err := f.GetCellValue(PayoutsSheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "GINVESTORB", investor)

	total, err := f.GetCellValue(SummarySheet, "A4")
	require.NoError(t, err)
	assert.Equal(t, "total", total)
}

func TestWritePDF(t *testing.T) {
	svc, id := newService(t)
	st, err := svc.ForDistribution(context.Background(), id)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatPDF, st))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestHandler(t *testing.T) {
	svc, id := newService(t)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(svc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))

	t.Run("csv download", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/statements/distributions/"+string(id), nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	})

	t.Run("xlsx download", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/statements/assets/bus_1?format=xlsx", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, FormatXLSX.ContentType(), w.Header().Get("Content-Type"))
	})

	t.Run("unknown distribution", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/statements/distributions/missing", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad format", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/statements/assets/bus_1?format=docx", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
