package glean

import (
	"fmt"
	"time"
)

// watchState is the per-period state of the expected-invoice watch.
type watchState int

const (
	// watchWaiting: before the vendor's expected day; nothing to report.
	watchWaiting watchState = iota

	// watchOverdue: the expected day has passed with no invoice yet this
	// period; one glean per evaluation date.
	watchOverdue

	// watchSatisfied: an invoice arrived this period; suppresses further
	// gleans until the next period.
	watchSatisfied
)

// invoiceWatch tracks one vendor's state machine across an evaluation
// window. The state and period boundaries are recomputed per run, never
// persisted.
type invoiceWatch struct {
	cadence     Cadence
	expectedDay int

	period time.Time // start of the period currently being watched
	state  watchState
}

// detectNoInvoice runs the expected-invoice state machine for every vendor
// with monthly or quarterly cadence, stepping each date from `from` through
// `to`. A vendor enters OVERDUE when the date's day-of-period reaches its
// most frequent invoice day with no invoice recorded yet that period, emits
// one glean per evaluated date while OVERDUE, goes SATISFIED when an invoice
// dated on or before the evaluation date lands in the period, and resets to
// WAITING at the period boundary. Vendors must have invoiced in the
// configured number of immediately-prior consecutive periods before absence
// is alarming.
func detectNoInvoice(cfg Config, profiles map[string]*VendorProfile, from, to time.Time) []Glean {
	var gleans []Glean
	for _, vendorID := range sortedVendors(profiles) {
		p := profiles[vendorID]
		if p.Cadence != CadenceMonthly && p.Cadence != CadenceQuarterly {
			continue
		}
		if p.MostFrequentDay <= 0 {
			continue
		}
		gleans = append(gleans, watchVendor(cfg, p, from, to)...)
	}
	return gleans
}

func watchVendor(cfg Config, p *VendorProfile, from, to time.Time) []Glean {
	required := cfg.ConsecutiveMonths
	if p.Cadence == CadenceQuarterly {
		required = cfg.ConsecutiveQuarters
	}

	// first invoice date per period, from the full history
	firstInPeriod := make(map[time.Time]time.Time)
	for _, inv := range p.Invoices {
		key := periodStart(inv.Date, p.Cadence)
		if cur, ok := firstInPeriod[key]; !ok || inv.Date.Before(cur) {
			firstInPeriod[key] = inv.Date
		}
	}

	w := invoiceWatch{
		cadence:     p.Cadence,
		expectedDay: p.MostFrequentDay,
	}

	var gleans []Glean
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if ps := periodStart(d, p.Cadence); !ps.Equal(w.period) {
			// new period: re-derive the watch
			w.period = ps
			w.state = watchWaiting
		}

		if w.state == watchSatisfied {
			continue
		}

		// invoice recorded this period on or before the evaluation date
		if first, ok := firstInPeriod[w.period]; ok && !first.After(d) {
			w.state = watchSatisfied
			continue
		}

		if !hasConsecutivePriorPeriods(firstInPeriod, w.period, p.Cadence, required) {
			continue
		}
		if dayOfPeriod(d, p.Cadence) < w.expectedDay {
			continue
		}

		w.state = watchOverdue
		gleans = append(gleans, Glean{
			Date:     d,
			Type:     TypeNoInvoiceReceived,
			Location: LocationVendor,
			VendorID: p.VendorID,
			Text: fmt.Sprintf("%s generally charges between on %d day of each %s invoices are sent. On %s, an invoice from %s has not been received",
				p.VendorID, w.expectedDay, periodName(p.Cadence), d.Format("2006-01-02"), p.VendorID),
		})
	}
	return gleans
}

// hasConsecutivePriorPeriods reports whether each of the n periods
// immediately before `period` saw at least one invoice.
func hasConsecutivePriorPeriods(firstInPeriod map[time.Time]time.Time, period time.Time, cadence Cadence, n int) bool {
	for i := 1; i <= n; i++ {
		if _, ok := firstInPeriod[addPeriods(period, cadence, -i)]; !ok {
			return false
		}
	}
	return true
}
