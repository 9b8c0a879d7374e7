package glean

import (
	"testing"
	"time"

	"github.com/linnemanlabs/gleaner/internal/record"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func inv(id, vendor string, date time.Time, amount float64) record.Invoice {
	return record.Invoice{InvoiceID: id, VendorID: vendor, Date: date, TotalAmount: amount}
}

func TestBuildProfiles_MonthlyCadence(t *testing.T) {
	t.Parallel()

	invoices := []record.Invoice{
		inv("inv-1", "vend-a", day(2025, 1, 5), 100),
		inv("inv-2", "vend-a", day(2025, 2, 5), 100),
		inv("inv-3", "vend-a", day(2025, 3, 5), 100),
	}

	profiles := BuildProfiles(invoices, day(2025, 6, 1), DefaultConfig())

	p, ok := profiles["vend-a"]
	if !ok {
		t.Fatal("missing profile for vend-a")
	}
	if p.Cadence != CadenceMonthly {
		t.Errorf("cadence = %q, want monthly", p.Cadence)
	}
	// gaps are 31 and 28 days
	if p.MedianGapDays != 29 {
		t.Errorf("median gap = %d, want 29", p.MedianGapDays)
	}
	if p.MostFrequentDay != 5 {
		t.Errorf("most frequent day = %d, want 5", p.MostFrequentDay)
	}
}

func TestBuildProfiles_QuarterlyCadence(t *testing.T) {
	t.Parallel()

	invoices := []record.Invoice{
		inv("inv-1", "vend-q", day(2024, 7, 15), 500),
		inv("inv-2", "vend-q", day(2024, 10, 15), 500),
		inv("inv-3", "vend-q", day(2025, 1, 15), 500),
	}

	profiles := BuildProfiles(invoices, day(2025, 4, 1), DefaultConfig())

	p := profiles["vend-q"]
	if p.Cadence != CadenceQuarterly {
		t.Fatalf("cadence = %q, want quarterly", p.Cadence)
	}
	if p.MostFrequentDay != 15 {
		t.Errorf("most frequent day = %d, want 15 (day of quarter)", p.MostFrequentDay)
	}
}

func TestBuildProfiles_IrregularCadence(t *testing.T) {
	t.Parallel()

	invoices := []record.Invoice{
		inv("inv-1", "vend-x", day(2025, 1, 1), 50),
		inv("inv-2", "vend-x", day(2025, 1, 6), 50),
		inv("inv-3", "vend-x", day(2025, 1, 16), 50),
		inv("inv-4", "vend-x", day(2025, 1, 31), 50),
	}

	profiles := BuildProfiles(invoices, day(2025, 6, 1), DefaultConfig())

	p := profiles["vend-x"]
	if p.Cadence != CadenceIrregular {
		t.Errorf("cadence = %q, want irregular", p.Cadence)
	}
	if p.MostFrequentDay != 0 {
		t.Errorf("most frequent day = %d, want 0 for irregular cadence", p.MostFrequentDay)
	}
	if p.Baseline != 0 {
		t.Errorf("baseline = %g, want 0 for irregular cadence", p.Baseline)
	}
}

func TestBuildProfiles_InsufficientHistory(t *testing.T) {
	t.Parallel()

	invoices := []record.Invoice{
		inv("inv-1", "vend-new", day(2025, 1, 5), 100),
		inv("inv-2", "vend-new", day(2025, 2, 5), 100),
	}

	profiles := BuildProfiles(invoices, day(2025, 6, 1), DefaultConfig())

	p := profiles["vend-new"]
	if p.Cadence != CadenceUnknown {
		t.Errorf("cadence = %q, want unknown below the invoice minimum", p.Cadence)
	}
}

func TestBuildProfiles_DropsEmptyVendorID(t *testing.T) {
	t.Parallel()

	invoices := []record.Invoice{
		inv("inv-1", "", day(2025, 1, 5), 100),
		inv("inv-2", "vend-a", day(2025, 1, 5), 100),
	}

	profiles := BuildProfiles(invoices, day(2025, 6, 1), DefaultConfig())

	if len(profiles) != 1 {
		t.Fatalf("profiles = %d, want 1 (empty vendor dropped)", len(profiles))
	}
	if _, ok := profiles["vend-a"]; !ok {
		t.Error("expected profile for vend-a")
	}
}

func TestBuildProfiles_ModeDayTieBreaksSmallest(t *testing.T) {
	t.Parallel()

	// days 5 and 12 each appear twice; the smaller day wins
	invoices := []record.Invoice{
		inv("inv-1", "vend-a", day(2025, 1, 5), 100),
		inv("inv-2", "vend-a", day(2025, 2, 12), 100),
		inv("inv-3", "vend-a", day(2025, 3, 12), 100),
		inv("inv-4", "vend-a", day(2025, 4, 5), 100),
	}

	profiles := BuildProfiles(invoices, day(2025, 6, 1), DefaultConfig())

	p := profiles["vend-a"]
	if p.Cadence != CadenceMonthly {
		t.Fatalf("cadence = %q, want monthly", p.Cadence)
	}
	if p.MostFrequentDay != 5 {
		t.Errorf("most frequent day = %d, want 5 (tie breaks to smallest)", p.MostFrequentDay)
	}
}

func TestBuildProfiles_SortsByDateThenID(t *testing.T) {
	t.Parallel()

	invoices := []record.Invoice{
		inv("inv-b", "vend-a", day(2025, 1, 5), 100),
		inv("inv-a", "vend-a", day(2025, 1, 5), 100),
		inv("inv-c", "vend-a", day(2025, 1, 1), 100),
	}

	profiles := BuildProfiles(invoices, day(2025, 6, 1), DefaultConfig())

	got := profiles["vend-a"].Invoices
	wantOrder := []string{"inv-c", "inv-a", "inv-b"}
	for i, want := range wantOrder {
		if got[i].InvoiceID != want {
			t.Errorf("invoices[%d] = %s, want %s", i, got[i].InvoiceID, want)
		}
	}
}

func TestTrailingBaseline_CountsEmptyPeriodsAsZero(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.BaselinePeriods = 3

	// Jan, Feb, Mar invoiced; April silent. Baseline at May averages
	// Feb + Mar + Apr, with April counting as zero.
	invoices := []record.Invoice{
		inv("inv-1", "vend-a", day(2025, 1, 1), 300),
		inv("inv-2", "vend-a", day(2025, 2, 1), 300),
		inv("inv-3", "vend-a", day(2025, 3, 1), 300),
	}

	profiles := BuildProfiles(invoices, day(2025, 5, 10), cfg)

	p := profiles["vend-a"]
	if p.Cadence != CadenceMonthly {
		t.Fatalf("cadence = %q, want monthly", p.Cadence)
	}
	if p.Baseline != 200 {
		t.Errorf("baseline = %g, want 200 ((300+300+0)/3)", p.Baseline)
	}
}

func TestTrailingBaseline_ZeroWhenNoHistoryInWindow(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.BaselinePeriods = 2

	// All invoices fall outside the 2-month trailing window of the anchor.
	invoices := []record.Invoice{
		inv("inv-1", "vend-a", day(2024, 1, 1), 300),
		inv("inv-2", "vend-a", day(2024, 2, 1), 300),
		inv("inv-3", "vend-a", day(2024, 3, 1), 300),
	}

	profiles := BuildProfiles(invoices, day(2025, 6, 15), cfg)

	if got := profiles["vend-a"].Baseline; got != 0 {
		t.Errorf("baseline = %g, want 0 when no period in the window has spend", got)
	}
}

func TestDayOfQuarter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		date time.Time
		want int
	}{
		{day(2025, 1, 1), 1},
		{day(2025, 1, 15), 15},
		{day(2025, 3, 31), 90},
		{day(2025, 4, 1), 1},
		{day(2025, 5, 15), 45},
		{day(2025, 10, 1), 1},
	}

	for _, tt := range tests {
		if got := dayOfQuarter(tt.date); got != tt.want {
			t.Errorf("dayOfQuarter(%s) = %d, want %d", tt.date.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestMedianGapDays(t *testing.T) {
	t.Parallel()

	history := []record.Invoice{
		inv("inv-1", "v", day(2025, 1, 1), 0),
		inv("inv-2", "v", day(2025, 1, 11), 0), // gap 10
		inv("inv-3", "v", day(2025, 1, 31), 0), // gap 20
		inv("inv-4", "v", day(2025, 3, 2), 0),  // gap 30
	}

	// odd gap count takes the middle element
	if got := medianGapDays(history); got != 20 {
		t.Errorf("median = %d, want 20", got)
	}

	// even gap count averages the middle pair
	if got := medianGapDays(history[:3]); got != 15 {
		t.Errorf("median = %d, want 15", got)
	}
}
