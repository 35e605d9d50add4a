package statements

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// PDFColor represents an RGB color
type PDFColor struct {
	R, G, B int
}

// PDFOptions configures PDF output
type PDFOptions struct {
	PageSize       string
	Orientation    string
	Author         string
	DateFormat     string
	FontFamily     string
	FontSize       float64
	HeaderFontSize float64
	TitleFontSize  float64
	HeaderColor    PDFColor
	AlternateRows  bool
	AlternateColor PDFColor
	Margin         float64
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:       "A4",
		Orientation:    "landscape",
		Author:         "Mobility Finance Ledger",
		DateFormat:     "2006-01-02 15:04",
		FontFamily:     "Arial",
		FontSize:       8,
		HeaderFontSize: 8,
		TitleFontSize:  16,
		HeaderColor:    PDFColor{R: 68, G: 114, B: 196},
		AlternateRows:  true,
		AlternateColor: PDFColor{R: 242, G: 242, B: 242},
		Margin:         12,
	}
}

// relative widths of Columns
var pdfColumnWeights = []float64{1.4, 1.2, 1.3, 1.8, 1, 1, 1, 0.7, 0.7}

type pdfWriter struct {
	pdf     *gofpdf.Fpdf
	options PDFOptions
	widths  []float64
}

// WritePDF writes a paginated payout table followed by a totals section
func WritePDF(w io.Writer, st *Statement, options PDFOptions) error {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margin, options.Margin, options.Margin)
	pdf.SetAutoPageBreak(false, options.Margin)
	pdf.SetTitle(st.Title, false)
	pdf.SetAuthor(options.Author, false)
	pdf.SetCreationDate(st.GeneratedAt)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-options.Margin + 2)
		pdf.SetFont(options.FontFamily, "I", options.FontSize)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pw := &pdfWriter{pdf: pdf, options: options}
	pw.layout()

	pdf.AddPage()
	pw.title(st)
	pw.table(st.Rows())
	pw.totals(st.Totals())

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func (p *pdfWriter) layout() {
	pageWidth, _ := p.pdf.GetPageSize()
	available := pageWidth - 2*p.options.Margin

	var sum float64
	for _, weight := range pdfColumnWeights {
		sum += weight
	}
	p.widths = make([]float64, len(pdfColumnWeights))
	for i, weight := range pdfColumnWeights {
		p.widths[i] = available * weight / sum
	}
}

func (p *pdfWriter) title(st *Statement) {
	p.pdf.SetFont(p.options.FontFamily, "B", p.options.TitleFontSize)
	p.pdf.SetTextColor(0, 0, 0)
	p.pdf.CellFormat(0, 10, st.Title, "", 1, "C", false, 0, "")

	p.pdf.SetFont(p.options.FontFamily, "", p.options.FontSize)
	p.pdf.SetTextColor(128, 128, 128)
	p.pdf.CellFormat(0, 6, "Generated: "+st.GeneratedAt.Format(p.options.DateFormat), "", 1, "R", false, 0, "")
	p.pdf.Ln(4)
}

func (p *pdfWriter) header() {
	c := p.options.HeaderColor
	p.pdf.SetFont(p.options.FontFamily, "B", p.options.HeaderFontSize)
	p.pdf.SetFillColor(c.R, c.G, c.B)
	p.pdf.SetTextColor(255, 255, 255)
	for i, col := range Columns {
		p.pdf.CellFormat(p.widths[i], 7, col, "1", 0, "C", true, 0, "")
	}
	p.pdf.Ln(-1)
	p.pdf.SetFont(p.options.FontFamily, "", p.options.FontSize)
	p.pdf.SetTextColor(0, 0, 0)
}

func (p *pdfWriter) table(rows []Row) {
	p.header()
	_, pageHeight := p.pdf.GetPageSize()

	for i, row := range rows {
		if p.pdf.GetY()+6 > pageHeight-p.options.Margin-6 {
			p.pdf.AddPage()
			p.header()
		}

		fill := p.options.AlternateRows && i%2 == 1
		if fill {
			c := p.options.AlternateColor
			p.pdf.SetFillColor(c.R, c.G, c.B)
		}
		for j, val := range row.values(p.options.DateFormat) {
			align := "L"
			if j >= 4 {
				align = "R"
			}
			p.pdf.CellFormat(p.widths[j], 6, p.fit(val, p.widths[j]), "1", 0, align, fill, 0, "")
		}
		p.pdf.Ln(-1)
	}
}

// fit truncates s to the cell width
func (p *pdfWriter) fit(s string, width float64) string {
	if p.pdf.GetStringWidth(s) <= width-2 {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && p.pdf.GetStringWidth(string(runes)+"...") > width-2 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func (p *pdfWriter) totals(t Totals) {
	p.pdf.Ln(6)
	p.pdf.SetFont(p.options.FontFamily, "B", p.options.FontSize+2)
	p.pdf.CellFormat(0, 8, "Totals", "", 1, "L", false, 0, "")

	items := []struct {
		label string
		value string
	}{
		{"Distributions", fmt.Sprintf("%d", t.Distributions)},
		{"Payouts", fmt.Sprintf("%d", t.Payouts)},
		{"Revenue", t.TotalRevenue.StringFixed(2)},
		{"Distributed", t.Distributed.StringFixed(2)},
		{"Equity bonus", t.EquityBonus.StringFixed(2)},
	}

	p.pdf.SetFont(p.options.FontFamily, "", p.options.FontSize+1)
	for _, item := range items {
		p.pdf.CellFormat(40, 6, item.label+":", "", 0, "L", false, 0, "")
		p.pdf.CellFormat(40, 6, item.value, "", 1, "R", false, 0, "")
	}
}
