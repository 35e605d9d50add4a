package statements

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVOptions configures CSV output
type CSVOptions struct {
	Delimiter     rune
	UseCRLF       bool
	IncludeHeader bool
	DateFormat    string
}

// DefaultCSVOptions returns default CSV options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:     ',',
		IncludeHeader: true,
		DateFormat:    "2006-01-02T15:04:05Z07:00",
	}
}

// WriteCSV writes one line per investor payout
func WriteCSV(w io.Writer, st *Statement, options CSVOptions) error {
	writer := csv.NewWriter(w)
	writer.Comma = options.Delimiter
	writer.UseCRLF = options.UseCRLF

	if options.IncludeHeader {
		if err := writer.Write(Columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for _, row := range st.Rows() {
		if err := writer.Write(row.values(options.DateFormat)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
