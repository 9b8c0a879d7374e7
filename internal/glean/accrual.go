package glean

import (
	"fmt"
	"time"

	"github.com/linnemanlabs/gleaner/internal/canonical"
	"github.com/linnemanlabs/gleaner/internal/record"
)

// detectAccrualAlert compares the current period's recognized amount against
// the vendor's baseline. Recognized amount is the sum of canonically mapped
// line items on the vendor's invoices dated within the current cadence
// period on or before asOf; unmapped line items are excluded. Fires once per
// vendor when the vendor's typical invoice day has passed and recognized
// spend sits below AccrualRatio * baseline — a probable uninvoiced
// liability. Runs only for vendors with a baseline.
//
// The exact trigger was under-specified in the source notes; the ratio is
// configuration, not a design constant.
func detectAccrualAlert(cfg Config, ds *record.Dataset, mapper *canonical.Mapper, profiles map[string]*VendorProfile, asOf time.Time) []Glean {
	invoiceByID := make(map[string]*record.Invoice, len(ds.Invoices))
	for i := range ds.Invoices {
		invoiceByID[ds.Invoices[i].InvoiceID] = &ds.Invoices[i]
	}

	// recognized spend per vendor for the vendor's own current period
	recognized := make(map[string]float64)
	for _, li := range ds.LineItems {
		if _, ok := mapper.Resolve(li.LineItemID); !ok {
			continue // excluded from canonical aggregation, non-fatal
		}
		inv, ok := invoiceByID[li.InvoiceID]
		if !ok || inv.Date.After(asOf) {
			continue
		}
		p, ok := profiles[inv.VendorID]
		if !ok {
			continue
		}
		if periodStart(inv.Date, p.Cadence).Equal(periodStart(asOf, p.Cadence)) {
			recognized[inv.VendorID] += li.Amount
		}
	}

	var gleans []Glean
	for _, vendorID := range sortedVendors(profiles) {
		p := profiles[vendorID]
		if p.Baseline <= 0 {
			continue
		}
		if dayOfPeriod(asOf, p.Cadence) < p.MostFrequentDay {
			continue // too early in the period to call the shortfall
		}

		actual := recognized[vendorID]
		expected := p.Baseline
		if actual >= cfg.AccrualRatio*expected {
			continue
		}

		gleans = append(gleans, Glean{
			Date:     asOf,
			Type:     TypeAccrualAlert,
			Location: LocationVendor,
			VendorID: vendorID,
			Text: fmt.Sprintf("Vendor %s has invoiced $%.2f so far this %s against a typical $%.2f; a liability may need to be accrued",
				vendorID, actual, periodName(p.Cadence), expected),
		})
	}
	return gleans
}

func dayOfPeriod(t time.Time, cadence Cadence) int {
	if cadence == CadenceQuarterly {
		return dayOfQuarter(t)
	}
	return dayOfMonth(t)
}

func periodName(cadence Cadence) string {
	if cadence == CadenceQuarterly {
		return "quarter"
	}
	return "month"
}
