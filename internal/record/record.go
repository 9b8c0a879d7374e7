// Package record defines the immutable input records for a glean run and
// their flat-file loaders. Invoices and line items are read once per run and
// never mutated afterwards.
package record

import "time"

// Invoice is a single vendor invoice. Extra columns in the source file are
// passthrough and ignored here.
type Invoice struct {
	InvoiceID   string    `json:"invoice_id"`
	VendorID    string    `json:"canonical_vendor_id"`
	Date        time.Time `json:"invoice_date"`
	TotalAmount float64   `json:"total_amount"`
	PeriodEnd   time.Time `json:"period_end_date,omitempty"`
}

// LineItem is one constituent line of an invoice. LineItemID is the raw
// identity; CanonicalID is the deduplicated identity it resolves to. The
// raw-to-canonical mapping is many-to-one.
type LineItem struct {
	LineItemID  string    `json:"line_item_id"`
	InvoiceID   string    `json:"invoice_id"`
	CanonicalID string    `json:"canonical_line_item_id"`
	Amount      float64   `json:"amount"`
	PeriodEnd   time.Time `json:"period_end_date,omitempty"`
}

// Dataset is the full input snapshot for one run.
type Dataset struct {
	Invoices  []Invoice
	LineItems []LineItem

	// Skipped counts rows dropped during loading (malformed fields,
	// missing required identifiers). Skips are warnings, not run failures.
	Skipped int
}
