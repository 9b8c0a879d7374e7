package glean

import (
	"fmt"
	"time"
)

// detectVendorNotSeen flags vendors whose silence has outrun their typical
// invoicing gap: the gap from the last known invoice to the evaluation date
// exceeds NotSeenMultiplier times the vendor's median gap. Vendors with
// irregular or unknown cadence are skipped. Emits at most one glean per
// vendor per run, dated the first day the threshold was crossed.
func detectVendorNotSeen(cfg Config, profiles map[string]*VendorProfile, from, to time.Time) []Glean {
	var gleans []Glean
	for _, vendorID := range sortedVendors(profiles) {
		p := profiles[vendorID]
		if p.Cadence != CadenceMonthly && p.Cadence != CadenceQuarterly {
			continue
		}
		threshold := cfg.NotSeenMultiplier * float64(p.MedianGapDays)

		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			last, ok := lastInvoiceOnOrBefore(p, d)
			if !ok {
				continue
			}
			gap := daysBetween(last, d)
			if float64(gap) <= threshold {
				continue
			}

			gleans = append(gleans, Glean{
				Date:     d,
				Type:     TypeVendorNotSeen,
				Location: LocationVendor,
				VendorID: vendorID,
				Text: fmt.Sprintf("Last bill from vendor %s was %d days ago; this vendor typically bills every %d days",
					vendorID, gap, p.MedianGapDays),
			})
			break // once per vendor per run
		}
	}
	return gleans
}

// lastInvoiceOnOrBefore returns the date of the vendor's most recent invoice
// on or before d. Profile invoices are sorted ascending.
func lastInvoiceOnOrBefore(p *VendorProfile, d time.Time) (time.Time, bool) {
	for i := len(p.Invoices) - 1; i >= 0; i-- {
		if !p.Invoices[i].Date.After(d) {
			return p.Invoices[i].Date, true
		}
	}
	return time.Time{}, false
}
