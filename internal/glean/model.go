package glean

import "time"

// Type identifies the detector rule that produced a glean. The integer
// values are the wire encoding in the flat output.
type Type int

const (
	// TypeVendorNotSeen fires when a vendor has gone quiet relative to
	// its typical invoicing gap.
	TypeVendorNotSeen Type = 1

	// TypeAccrualAlert fires when a period's invoiced amount falls short
	// of the vendor's baseline, signaling a probable uninvoiced liability.
	TypeAccrualAlert Type = 2

	// TypeLargeMonthIncrease fires when month-to-date spend outruns the
	// vendor's historical month-to-date spend.
	TypeLargeMonthIncrease Type = 3

	// TypeNoInvoiceReceived fires while an expected invoice is overdue
	// within the current period.
	TypeNoInvoiceReceived Type = 4
)

// String returns the snake_case rule name.
func (t Type) String() string {
	switch t {
	case TypeVendorNotSeen:
		return "vendor_not_seen_in_a_while"
	case TypeAccrualAlert:
		return "accrual_alert"
	case TypeLargeMonthIncrease:
		return "large_month_increase_mtd"
	case TypeNoInvoiceReceived:
		return "no_invoice_received"
	default:
		return "unknown"
	}
}

// Location identifies what a glean is attached to.
type Location int

const (
	// LocationInvoice scopes the glean to a single invoice.
	LocationInvoice Location = 1

	// LocationVendor scopes the glean to the vendor as a whole.
	LocationVendor Location = 2
)

// Glean is a generated alert record describing a detected anomaly in vendor
// invoicing behavior. Gleans are created only by the assembler and never
// mutated afterwards.
type Glean struct {
	ID        string    `json:"glean_id"`
	Date      time.Time `json:"glean_date"`
	Text      string    `json:"glean_text"`
	Type      Type      `json:"glean_type"`
	Location  Location  `json:"glean_location"`
	InvoiceID string    `json:"invoice_id,omitempty"` // empty for vendor-scoped gleans
	VendorID  string    `json:"canonical_vendor_id"`
}

// Status tracks where a detection run is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet started
	StatusPending Status = "pending"

	// StatusInProgress means currently being processed
	StatusInProgress Status = "in_progress"

	// StatusComplete means finished successfully
	StatusComplete Status = "complete"

	// StatusFailed means finished with errors
	StatusFailed Status = "failed"
)

// Run is the record of one detection run over the loaded dataset.
type Run struct {
	ID          string         `json:"id"`
	Fingerprint string         `json:"fingerprint"`
	Status      Status         `json:"status"`
	WindowStart time.Time      `json:"window_start"`
	WindowEnd   time.Time      `json:"window_end"`
	Invoices    int            `json:"invoice_count"`
	LineItems   int            `json:"line_item_count"`
	Vendors     int            `json:"vendor_count"`
	Skipped     int            `json:"skipped_records"`
	GleanCount  int            `json:"glean_count"`
	ByType      map[string]int `json:"gleans_by_type,omitempty"`
	Digest      string         `json:"digest,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt time.Time      `json:"completed_at,omitempty"`
	Duration    float64        `json:"duration_seconds,omitempty"`
}
