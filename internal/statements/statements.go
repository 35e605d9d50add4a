// Package statements renders investor payout statements from revenue
// distributions as CSV, XLSX or PDF documents.
package statements

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"mobility-finance/ledger-backend/internal/ledger"
	"mobility-finance/ledger-backend/internal/revenue"
)

// Format is an output document format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a user supplied name to a Format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, FormatPDF:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported statement format %q", s)
}

// ContentType returns the MIME type served for f
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv"
	}
}

// Source is the read side of the revenue distributor
type Source interface {
	GetDistribution(ctx context.Context, id ledger.Symbol) (*revenue.RevenueDistribution, error)
	GetAssetDistributions(ctx context.Context, assetID ledger.Symbol) ([]revenue.RevenueDistribution, error)
}

// Statement is a set of distributions rendered as one document
type Statement struct {
	Title         string
	GeneratedAt   time.Time
	Distributions []revenue.RevenueDistribution
}

// Row is one investor payout line
type Row struct {
	DistributionID   ledger.Symbol
	AssetID          ledger.Symbol
	DistributedAt    time.Time
	Investor         ledger.Address
	BaseAmount       decimal.Decimal
	EquityBonus      decimal.Decimal
	TotalAmount      decimal.Decimal
	EquityScore      int32
	ImpactMultiplier int32
}

// Totals sums a statement
type Totals struct {
	Distributions int
	Payouts       int
	TotalRevenue  decimal.Decimal
	Distributed   decimal.Decimal
	EquityBonus   decimal.Decimal
}

// Columns are the row headers shared by every format
var Columns = []string{
	"distribution_id",
	"asset_id",
	"distributed_at",
	"investor",
	"base_amount",
	"equity_bonus",
	"total_amount",
	"equity_score",
	"impact_multiplier",
}

// Rows flattens the statement into payout lines, in distribution order
func (s Statement) Rows() []Row {
	var rows []Row
	for _, dist := range s.Distributions {
		at := unixTime(dist.Timestamp)
		for _, inv := range dist.Distributions {
			rows = append(rows, Row{
				DistributionID:   dist.ID,
				AssetID:          dist.AssetID,
				DistributedAt:    at,
				Investor:         inv.Investor,
				BaseAmount:       inv.BaseAmount,
				EquityBonus:      inv.EquityBonus,
				TotalAmount:      inv.TotalAmount,
				EquityScore:      inv.EquityScore,
				ImpactMultiplier: inv.ImpactMultiplier,
			})
		}
	}
	return rows
}

// Totals sums revenue and payouts over the statement
func (s Statement) Totals() Totals {
	t := Totals{
		Distributions: len(s.Distributions),
		TotalRevenue:  decimal.Zero,
		Distributed:   decimal.Zero,
		EquityBonus:   decimal.Zero,
	}
	for _, dist := range s.Distributions {
		t.TotalRevenue = t.TotalRevenue.Add(dist.TotalRevenue)
		for _, inv := range dist.Distributions {
			t.Payouts++
			t.Distributed = t.Distributed.Add(inv.TotalAmount)
			t.EquityBonus = t.EquityBonus.Add(inv.EquityBonus)
		}
	}
	return t
}

// values renders a row in Columns order
func (r Row) values(dateFormat string) []string {
	return []string{
		string(r.DistributionID),
		string(r.AssetID),
		r.DistributedAt.Format(dateFormat),
		string(r.Investor),
		r.BaseAmount.String(),
		r.EquityBonus.String(),
		r.TotalAmount.String(),
		fmt.Sprintf("%d", r.EquityScore),
		fmt.Sprintf("%d", r.ImpactMultiplier),
	}
}

// Service loads distributions and renders statements
type Service struct {
	source Source
	clock  ledger.Clock
}

// NewService creates a statement service
func NewService(source Source, clock ledger.Clock) *Service {
	return &Service{source: source, clock: clock}
}

// ForDistribution builds a statement holding a single distribution
func (s *Service) ForDistribution(ctx context.Context, id ledger.Symbol) (*Statement, error) {
	dist, err := s.source.GetDistribution(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Statement{
		Title:         fmt.Sprintf("Distribution %s", id),
		GeneratedAt:   s.now(),
		Distributions: []revenue.RevenueDistribution{*dist},
	}, nil
}

// ForAsset builds a statement over every distribution of an asset
func (s *Service) ForAsset(ctx context.Context, assetID ledger.Symbol) (*Statement, error) {
	dists, err := s.source.GetAssetDistributions(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return &Statement{
		Title:         fmt.Sprintf("Asset %s distributions", assetID),
		GeneratedAt:   s.now(),
		Distributions: dists,
	}, nil
}

func (s *Service) now() time.Time {
	return unixTime(s.clock.Now())
}

func unixTime(ts uint64) time.Time {
	return time.Unix(int64(ts), 0).UTC()
}

// Render writes the statement to w in the given format
func Render(w io.Writer, format Format, st *Statement) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, st, DefaultCSVOptions())
	case FormatXLSX:
		return WriteXLSX(w, st, DefaultExcelOptions())
	case FormatPDF:
		return WritePDF(w, st, DefaultPDFOptions())
	}
	return fmt.Errorf("unsupported statement format %q", format)
}
