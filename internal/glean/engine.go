package glean

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/gleaner/internal/canonical"
	"github.com/linnemanlabs/gleaner/internal/record"
)

// EngineHooks receive engine events, typically for metrics.
type EngineHooks struct {
	// OnProfile is called once per vendor profile built.
	OnProfile func(cadence Cadence)

	// OnGleans is called once per detector with the number of gleans it
	// produced.
	OnGleans func(t Type, count int)

	// OnComplete is called once at the end of a run.
	OnComplete func(e *CompleteEvent)
}

// CompleteEvent summarizes a finished engine run.
type CompleteEvent struct {
	Duration float64
	Vendors  int
	Invoices int
	Gleans   int
}

// Engine evaluates the four detector rules over per-vendor history
// profiles. It is a pure function of its inputs: no shared mutable state,
// no persistence, identical inputs yield identical gleans.
type Engine struct {
	cfg    Config
	logger log.Logger
	hooks  EngineHooks
}

// NewEngine creates a detection engine with the given thresholds.
func NewEngine(cfg Config, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		cfg:    cfg,
		logger: logger,
		hooks:  hooks,
	}
}

// Run evaluates a single as-of date.
func (e *Engine) Run(ctx context.Context, ds *record.Dataset, mapper *canonical.Mapper, asOf time.Time) []Glean {
	return e.RunRange(ctx, ds, mapper, asOf, asOf)
}

// RunRange evaluates every date from `from` through `to` inclusive. The
// no_invoice_received state machine steps day by day across the window;
// vendor_not_seen_in_a_while emits at most once per vendor for the whole
// run; accrual_alert is judged at the window end. Returned gleans carry no
// ids; the assembler attaches them.
func (e *Engine) RunRange(ctx context.Context, ds *record.Dataset, mapper *canonical.Mapper, from, to time.Time) []Glean {
	start := time.Now()

	if to.Before(from) {
		from, to = to, from
	}

	profiles := BuildProfiles(ds.Invoices, to, e.cfg)
	if e.hooks.OnProfile != nil {
		for _, p := range profiles {
			e.hooks.OnProfile(p.Cadence)
		}
	}

	// Detectors are independent pure functions over the shared immutable
	// profile snapshot; their candidate lists are concatenated, never
	// merged destructively.
	var gleans []Glean
	for _, detect := range []struct {
		t   Type
		run func() []Glean
	}{
		{TypeVendorNotSeen, func() []Glean { return detectVendorNotSeen(e.cfg, profiles, from, to) }},
		{TypeAccrualAlert, func() []Glean { return detectAccrualAlert(e.cfg, ds, mapper, profiles, to) }},
		{TypeLargeMonthIncrease, func() []Glean { return detectLargeIncrease(e.cfg, profiles, from, to) }},
		{TypeNoInvoiceReceived, func() []Glean { return detectNoInvoice(e.cfg, profiles, from, to) }},
	} {
		found := detect.run()
		if e.hooks.OnGleans != nil {
			e.hooks.OnGleans(detect.t, len(found))
		}
		gleans = append(gleans, found...)
	}

	duration := time.Since(start).Seconds()
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(&CompleteEvent{
			Duration: duration,
			Vendors:  len(profiles),
			Invoices: len(ds.Invoices),
			Gleans:   len(gleans),
		})
	}

	e.logger.Info(ctx, "detection complete",
		"window_start", from.Format("2006-01-02"),
		"window_end", to.Format("2006-01-02"),
		"vendors", len(profiles),
		"invoices", len(ds.Invoices),
		"gleans", len(gleans),
		"duration", duration,
	)

	return gleans
}
