package record

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// dateLayout is the wire format for all date columns.
const dateLayout = "2006-01-02"

// Load reads the invoice and line-item CSVs and returns the run dataset.
// Individual malformed rows are skipped with a warning; an unreadable file
// or missing header fails the load outright.
func Load(ctx context.Context, invoicePath, lineItemPath string, logger log.Logger) (*Dataset, error) {
	invoices, invSkipped, err := LoadInvoices(ctx, invoicePath, logger)
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}

	items, liSkipped, err := LoadLineItems(ctx, lineItemPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load line items: %w", err)
	}

	return &Dataset{
		Invoices:  invoices,
		LineItems: items,
		Skipped:   invSkipped + liSkipped,
	}, nil
}

// LoadInvoices reads invoices from a CSV file. Returns the parsed invoices
// and the number of rows skipped.
func LoadInvoices(ctx context.Context, path string, logger log.Logger) ([]Invoice, int, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is operator-supplied config, not user input
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()
	return ReadInvoices(ctx, f, logger)
}

// LoadLineItems reads line items from a CSV file. Returns the parsed items
// and the number of rows skipped.
func LoadLineItems(ctx context.Context, path string, logger log.Logger) ([]LineItem, int, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is operator-supplied config, not user input
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()
	return ReadLineItems(ctx, f, logger)
}

// ReadInvoices parses invoice rows from r. Required columns: invoice_id,
// canonical_vendor_id, invoice_date, total_amount. A row missing any of them
// (or failing to parse) is skipped with a warning.
func ReadInvoices(ctx context.Context, r io.Reader, logger log.Logger) ([]Invoice, int, error) {
	if logger == nil {
		logger = log.Nop()
	}

	rows, cols, err := readAll(r, "invoice_id", "canonical_vendor_id", "invoice_date", "total_amount")
	if err != nil {
		return nil, 0, err
	}

	var (
		invoices []Invoice
		skipped  int
	)
	for i, row := range rows {
		inv := Invoice{
			InvoiceID: cols.get(row, "invoice_id"),
			VendorID:  cols.get(row, "canonical_vendor_id"),
		}
		if inv.InvoiceID == "" || inv.VendorID == "" {
			skipped++
			logger.Warn(ctx, "skipping invoice row with missing identifier", "row", i+2)
			continue
		}

		inv.Date, err = time.Parse(dateLayout, cols.get(row, "invoice_date"))
		if err != nil {
			skipped++
			logger.Warn(ctx, "skipping invoice row with bad date", "row", i+2, "invoice_id", inv.InvoiceID, "value", cols.get(row, "invoice_date"))
			continue
		}

		inv.TotalAmount, err = strconv.ParseFloat(cols.get(row, "total_amount"), 64)
		if err != nil {
			skipped++
			logger.Warn(ctx, "skipping invoice row with bad amount", "row", i+2, "invoice_id", inv.InvoiceID, "value", cols.get(row, "total_amount"))
			continue
		}

		// period_end_date is optional passthrough
		if v := cols.get(row, "period_end_date"); v != "" {
			if end, perr := time.Parse(dateLayout, v); perr == nil {
				inv.PeriodEnd = end
			}
		}

		invoices = append(invoices, inv)
	}
	return invoices, skipped, nil
}

// ReadLineItems parses line-item rows from r. Required columns: line_item_id,
// invoice_id, canonical_line_item_id, amount. A row with an empty
// canonical_line_item_id is kept; it stays unmapped and is excluded from
// canonical aggregation downstream.
func ReadLineItems(ctx context.Context, r io.Reader, logger log.Logger) ([]LineItem, int, error) {
	if logger == nil {
		logger = log.Nop()
	}

	rows, cols, err := readAll(r, "line_item_id", "invoice_id", "canonical_line_item_id", "amount")
	if err != nil {
		return nil, 0, err
	}

	var (
		items   []LineItem
		skipped int
	)
	for i, row := range rows {
		li := LineItem{
			LineItemID:  cols.get(row, "line_item_id"),
			InvoiceID:   cols.get(row, "invoice_id"),
			CanonicalID: cols.get(row, "canonical_line_item_id"),
		}
		if li.LineItemID == "" || li.InvoiceID == "" {
			skipped++
			logger.Warn(ctx, "skipping line item row with missing identifier", "row", i+2)
			continue
		}

		li.Amount, err = strconv.ParseFloat(cols.get(row, "amount"), 64)
		if err != nil {
			skipped++
			logger.Warn(ctx, "skipping line item row with bad amount", "row", i+2, "line_item_id", li.LineItemID, "value", cols.get(row, "amount"))
			continue
		}

		if v := cols.get(row, "period_end_date"); v != "" {
			if end, perr := time.Parse(dateLayout, v); perr == nil {
				li.PeriodEnd = end
			}
		}

		items = append(items, li)
	}
	return items, skipped, nil
}

// colIndex maps header names to column positions.
type colIndex map[string]int

// get returns the value of the named column, or "" if the column is absent
// or the row is short.
func (c colIndex) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// readAll reads the header and all data rows, verifying required columns
// are present. Extra columns are ignored.
func readAll(r io.Reader, required ...string) ([][]string, colIndex, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows, guarded per-cell in colIndex.get

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(colIndex, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q", name)
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, cols, nil
}
