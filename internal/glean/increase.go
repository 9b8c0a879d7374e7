package glean

import (
	"fmt"
	"time"
)

// detectLargeIncrease flags month-to-date spend that outruns the vendor's
// historical month-to-date spend at the equivalent day of prior months.
// Fires when cumulative MTD spend exceeds (1 + IncreaseRatio) times the
// trailing average and clears the MinIncreaseAmount floor. The glean is
// attached to the invoice that pushed the total over the threshold, at most
// once per vendor per month. Never fires without a prior-month baseline.
func detectLargeIncrease(cfg Config, profiles map[string]*VendorProfile, from, to time.Time) []Glean {
	var gleans []Glean
	for _, vendorID := range sortedVendors(profiles) {
		p := profiles[vendorID]

		firedMonth := make(map[time.Time]bool)
		var cum float64
		var cumMonth time.Time

		for _, inv := range p.Invoices {
			month := monthStart(inv.Date)
			if !month.Equal(cumMonth) {
				cumMonth = month
				cum = 0
			}
			cum += inv.TotalAmount

			if inv.Date.Before(from) || inv.Date.After(to) || firedMonth[month] {
				continue
			}
			if cum < cfg.MinIncreaseAmount {
				continue
			}

			avg := mtdAverage(p, inv.Date, cfg.BaselinePeriods)
			if avg <= 0 {
				continue // no prior-month baseline
			}
			if cum <= (1+cfg.IncreaseRatio)*avg {
				continue
			}

			firedMonth[month] = true
			pct := (cum/avg - 1) * 100
			gleans = append(gleans, Glean{
				Date:      inv.Date,
				Type:      TypeLargeMonthIncrease,
				Location:  LocationInvoice,
				InvoiceID: inv.InvoiceID,
				VendorID:  vendorID,
				Text: fmt.Sprintf("Monthly spend with %s is $%.2f (%.2f%%) higher than average",
					vendorID, cum, pct),
			})
		}
	}
	return gleans
}

// mtdAverage is the vendor's average spend through day-of-month d.Day()
// across the `months` calendar months before d's month. Months with no
// invoices count as zero; returns 0 when no prior month has spend by that
// day.
func mtdAverage(p *VendorProfile, d time.Time, months int) float64 {
	current := monthStart(d)
	earliest := current.AddDate(0, -months, 0)

	byMonth := make(map[time.Time]float64)
	for _, inv := range p.Invoices {
		m := monthStart(inv.Date)
		if m.Before(earliest) || !m.Before(current) {
			continue
		}
		if inv.Date.Day() <= d.Day() {
			byMonth[m] += inv.TotalAmount
		}
	}
	if len(byMonth) == 0 {
		return 0
	}

	var total float64
	for _, amt := range byMonth {
		total += amt
	}
	return total / float64(months)
}
