package glean

import (
	"sort"
	"time"

	"github.com/linnemanlabs/gleaner/internal/record"
)

// Cadence is the inferred regular interval at which a vendor invoices.
type Cadence string

const (
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceIrregular Cadence = "irregular"
	CadenceUnknown   Cadence = "unknown"
)

// VendorProfile is the per-vendor history snapshot detectors read. Built
// once per run from the full invoice set and discarded afterwards.
type VendorProfile struct {
	VendorID string

	// Invoices sorted by date ascending (ties by invoice id for
	// deterministic runs).
	Invoices []record.Invoice

	Cadence      Cadence
	MedianGapDays int

	// MostFrequentDay is the mode of day-of-month (monthly cadence) or
	// day-of-quarter (quarterly cadence) across the history. Ties break
	// to the smallest day. Zero when cadence is irregular or unknown.
	MostFrequentDay int

	// Baseline is the trailing average spend per cadence period over
	// Config.BaselinePeriods periods ending just before the period of
	// the run's anchor date. Zero means no baseline.
	Baseline float64
}

// BuildProfiles groups invoices by canonical vendor and derives the cadence,
// day-of-period, and baseline statistics. asOf anchors the baseline window.
// Invoices with a missing vendor id are dropped (fatal for that invoice,
// not for the run).
func BuildProfiles(invoices []record.Invoice, asOf time.Time, cfg Config) map[string]*VendorProfile {
	byVendor := make(map[string][]record.Invoice)
	for _, inv := range invoices {
		if inv.VendorID == "" {
			continue
		}
		byVendor[inv.VendorID] = append(byVendor[inv.VendorID], inv)
	}

	profiles := make(map[string]*VendorProfile, len(byVendor))
	for vendorID, history := range byVendor {
		sort.Slice(history, func(i, j int) bool {
			if !history[i].Date.Equal(history[j].Date) {
				return history[i].Date.Before(history[j].Date)
			}
			return history[i].InvoiceID < history[j].InvoiceID
		})

		p := &VendorProfile{
			VendorID: vendorID,
			Invoices: history,
			Cadence:  CadenceUnknown,
		}

		if len(history) >= cfg.MinCadenceInvoices {
			p.MedianGapDays = medianGapDays(history)
			p.Cadence = classifyCadence(p.MedianGapDays, cfg)
		}

		switch p.Cadence {
		case CadenceMonthly:
			p.MostFrequentDay = modeDay(history, dayOfMonth)
			p.Baseline = trailingBaseline(history, asOf, CadenceMonthly, cfg.BaselinePeriods)
		case CadenceQuarterly:
			p.MostFrequentDay = modeDay(history, dayOfQuarter)
			p.Baseline = trailingBaseline(history, asOf, CadenceQuarterly, cfg.BaselinePeriods)
		}

		profiles[vendorID] = p
	}
	return profiles
}

// sortedVendors returns the profile keys in stable order so detector output
// is deterministic run to run.
func sortedVendors(profiles map[string]*VendorProfile) []string {
	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func medianGapDays(history []record.Invoice) int {
	gaps := make([]int, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		gaps = append(gaps, daysBetween(history[i-1].Date, history[i].Date))
	}
	sort.Ints(gaps)

	mid := len(gaps) / 2
	if len(gaps)%2 == 1 {
		return gaps[mid]
	}
	return (gaps[mid-1] + gaps[mid]) / 2
}

func classifyCadence(medianGap int, cfg Config) Cadence {
	switch {
	case abs(medianGap-cfg.MonthlyGapDays) <= cfg.MonthlyGapTolerance:
		return CadenceMonthly
	case abs(medianGap-cfg.QuarterlyGapDays) <= cfg.QuarterlyGapTolerance:
		return CadenceQuarterly
	default:
		return CadenceIrregular
	}
}

// modeDay returns the most frequent day value across the history, smallest
// day winning ties.
func modeDay(history []record.Invoice, day func(time.Time) int) int {
	counts := make(map[int]int)
	for _, inv := range history {
		counts[day(inv.Date)]++
	}

	best, bestCount := 0, 0
	for d, n := range counts {
		if n > bestCount || (n == bestCount && d < best) {
			best, bestCount = d, n
		}
	}
	return best
}

// trailingBaseline averages per-period spend over the `periods` cadence
// periods immediately before the period containing asOf. Periods with no
// invoices count as zero. Returns 0 when no invoice falls in the window.
func trailingBaseline(history []record.Invoice, asOf time.Time, cadence Cadence, periods int) float64 {
	spend := make(map[time.Time]float64)
	for _, inv := range history {
		spend[periodStart(inv.Date, cadence)] += inv.TotalAmount
	}

	current := periodStart(asOf, cadence)
	var total float64
	var seen bool
	for i := 1; i <= periods; i++ {
		p := addPeriods(current, cadence, -i)
		if amt, ok := spend[p]; ok {
			total += amt
			seen = true
		}
	}
	if !seen {
		return 0
	}
	return total / float64(periods)
}

// --- calendar helpers ---

func dayOfMonth(t time.Time) int { return t.Day() }

// dayOfQuarter is the 1-based day offset from the first day of the quarter
// containing t.
func dayOfQuarter(t time.Time) int {
	return t.YearDay() - quarterStart(t).YearDay() + 1
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func quarterStart(t time.Time) time.Time {
	m := time.Month(((int(t.Month())-1)/3)*3 + 1)
	return time.Date(t.Year(), m, 1, 0, 0, 0, 0, t.Location())
}

func periodStart(t time.Time, cadence Cadence) time.Time {
	if cadence == CadenceQuarterly {
		return quarterStart(t)
	}
	return monthStart(t)
}

func addPeriods(start time.Time, cadence Cadence, n int) time.Time {
	if cadence == CadenceQuarterly {
		return start.AddDate(0, 3*n, 0)
	}
	return start.AddDate(0, n, 0)
}

// daysBetween counts whole days from a to b, date-granularity.
func daysBetween(a, b time.Time) int {
	return int(b.Truncate(24*time.Hour).Sub(a.Truncate(24*time.Hour)) / (24 * time.Hour))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
