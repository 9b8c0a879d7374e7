package glean

import (
	"errors"
	"fmt"
)

// Config holds the detector thresholds. The exact numbers are deployment
// configuration, not design constants; defaults follow the behavior of the
// system this engine replaces.
type Config struct {
	// MinCadenceInvoices is the minimum invoice history needed before
	// cadence statistics are derived. Below it the vendor profile carries
	// cadence "unknown" and cadence-dependent detectors stay silent.
	MinCadenceInvoices int

	// Cadence classification: a vendor is monthly when the median gap
	// between consecutive invoices is within MonthlyGapTolerance days of
	// MonthlyGapDays, quarterly likewise; otherwise irregular.
	MonthlyGapDays        int
	MonthlyGapTolerance   int
	QuarterlyGapDays      int
	QuarterlyGapTolerance int

	// NotSeenMultiplier scales the vendor's median gap to the silence
	// threshold for vendor_not_seen_in_a_while.
	NotSeenMultiplier float64

	// IncreaseRatio is the fractional rise over the historical
	// month-to-date average that triggers large_month_increase_mtd
	// (0.5 = 50% above average). MinIncreaseAmount floors tiny spends
	// out of the rule entirely.
	IncreaseRatio     float64
	MinIncreaseAmount float64

	// AccrualRatio: accrual_alert fires when the current period's
	// recognized amount is below AccrualRatio * baseline once the
	// vendor's typical invoice day has passed.
	AccrualRatio float64

	// BaselinePeriods is the trailing window, in cadence periods, for
	// the expected-amount baseline and the month-to-date average.
	// Periods without invoices count as zero spend.
	BaselinePeriods int

	// ConsecutiveMonths / ConsecutiveQuarters gate no_invoice_received:
	// the vendor must have invoiced in that many immediately-prior
	// periods before an absent invoice is worth alarming on.
	ConsecutiveMonths   int
	ConsecutiveQuarters int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinCadenceInvoices:    3,
		MonthlyGapDays:        30,
		MonthlyGapTolerance:   7,
		QuarterlyGapDays:      91,
		QuarterlyGapTolerance: 15,
		NotSeenMultiplier:     2.0,
		IncreaseRatio:         0.5,
		MinIncreaseAmount:     100,
		AccrualRatio:          0.5,
		BaselinePeriods:       12,
		ConsecutiveMonths:     3,
		ConsecutiveQuarters:   2,
	}
}

// Validate checks threshold sanity.
func (c Config) Validate() error {
	var errs []error

	if c.MinCadenceInvoices < 2 {
		errs = append(errs, fmt.Errorf("MinCadenceInvoices %d must be >= 2", c.MinCadenceInvoices))
	}
	if c.MonthlyGapDays <= 0 || c.QuarterlyGapDays <= c.MonthlyGapDays {
		errs = append(errs, fmt.Errorf("gap days invalid (monthly %d, quarterly %d)", c.MonthlyGapDays, c.QuarterlyGapDays))
	}
	if c.MonthlyGapTolerance < 0 || c.QuarterlyGapTolerance < 0 {
		errs = append(errs, errors.New("gap tolerances must be >= 0"))
	}
	if c.MonthlyGapDays+c.MonthlyGapTolerance >= c.QuarterlyGapDays-c.QuarterlyGapTolerance {
		errs = append(errs, errors.New("monthly and quarterly tolerance bands overlap"))
	}
	if c.NotSeenMultiplier < 1 {
		errs = append(errs, fmt.Errorf("NotSeenMultiplier %g must be >= 1", c.NotSeenMultiplier))
	}
	if c.IncreaseRatio <= 0 {
		errs = append(errs, fmt.Errorf("IncreaseRatio %g must be > 0", c.IncreaseRatio))
	}
	if c.MinIncreaseAmount < 0 {
		errs = append(errs, fmt.Errorf("MinIncreaseAmount %g must be >= 0", c.MinIncreaseAmount))
	}
	if c.AccrualRatio <= 0 || c.AccrualRatio >= 1 {
		errs = append(errs, fmt.Errorf("AccrualRatio %g must be in (0, 1)", c.AccrualRatio))
	}
	if c.BaselinePeriods < 1 {
		errs = append(errs, fmt.Errorf("BaselinePeriods %d must be >= 1", c.BaselinePeriods))
	}
	if c.ConsecutiveMonths < 1 || c.ConsecutiveQuarters < 1 {
		errs = append(errs, errors.New("consecutive period requirements must be >= 1"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
