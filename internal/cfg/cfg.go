package cfg

import (
	"errors"
	"flag"
	"fmt"

	"github.com/linnemanlabs/gleaner/internal/glean"
)

// Config holds the server-level configuration fields, bound to flags and
// filled from GLEANER_-prefixed environment variables by main.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	DatabaseURL           string
	InvoiceCSV            string
	LineItemCSV           string
	ClaudeAPIKey          string
	ClaudeModel           string
	SlackWebhookURL       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token for the detection API (empty = no auth)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.InvoiceCSV, "invoice-csv", "", "path to the invoice CSV file")
	fs.StringVar(&c.LineItemCSV, "line-item-csv", "", "path to the invoice line item CSV file")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude run-digest summarizer (empty = disabled)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use for run digests")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for run notifications (empty = disabled)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// The detection service is useless without invoice history
	if c.InvoiceCSV == "" {
		errs = append(errs, errors.New("INVOICE_CSV is required"))
	}
	if c.LineItemCSV == "" {
		errs = append(errs, errors.New("LINE_ITEM_CSV is required"))
	}

	// Model only matters when the summarizer is enabled
	if c.ClaudeAPIKey != "" && c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required when CLAUDE_API_KEY is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Detector holds the tunable detection thresholds, shared between the server
// and the batch CLI.
type Detector struct {
	MinCadenceInvoices int
	NotSeenMultiplier  float64
	IncreaseRatio      float64
	MinIncreaseAmount  float64
	AccrualRatio       float64
	BaselinePeriods    int
}

// RegisterFlags binds Detector fields to the given FlagSet with defaults inline
func (d *Detector) RegisterFlags(fs *flag.FlagSet) {
	def := glean.DefaultConfig()
	fs.IntVar(&d.MinCadenceInvoices, "min-cadence-invoices", def.MinCadenceInvoices, "minimum invoices before a vendor cadence is inferred (>= 2)")
	fs.Float64Var(&d.NotSeenMultiplier, "not-seen-multiplier", def.NotSeenMultiplier, "gap multiple of the median cadence before a vendor is flagged as not seen (> 1)")
	fs.Float64Var(&d.IncreaseRatio, "increase-ratio", def.IncreaseRatio, "fractional month-to-date increase over baseline that triggers a large-increase glean (> 0)")
	fs.Float64Var(&d.MinIncreaseAmount, "min-increase-amount", def.MinIncreaseAmount, "minimum dollar increase before a large-increase glean fires (>= 0)")
	fs.Float64Var(&d.AccrualRatio, "accrual-ratio", def.AccrualRatio, "fraction of baseline spend below which an accrual alert fires (0..1)")
	fs.IntVar(&d.BaselinePeriods, "baseline-periods", def.BaselinePeriods, "trailing periods used for vendor baselines (>= 1)")
}

// Validate checks all detector thresholds for correctness.
func (d *Detector) Validate() error {
	var errs []error

	if d.MinCadenceInvoices < 2 {
		errs = append(errs, fmt.Errorf("invalid MIN_CADENCE_INVOICES %d (must be >= 2)", d.MinCadenceInvoices))
	}
	if d.NotSeenMultiplier <= 1 {
		errs = append(errs, fmt.Errorf("invalid NOT_SEEN_MULTIPLIER %g (must be > 1)", d.NotSeenMultiplier))
	}
	if d.IncreaseRatio <= 0 {
		errs = append(errs, fmt.Errorf("invalid INCREASE_RATIO %g (must be > 0)", d.IncreaseRatio))
	}
	if d.MinIncreaseAmount < 0 {
		errs = append(errs, fmt.Errorf("invalid MIN_INCREASE_AMOUNT %g (must be >= 0)", d.MinIncreaseAmount))
	}
	if d.AccrualRatio <= 0 || d.AccrualRatio >= 1 {
		errs = append(errs, fmt.Errorf("invalid ACCRUAL_RATIO %g (must be in (0, 1))", d.AccrualRatio))
	}
	if d.BaselinePeriods < 1 {
		errs = append(errs, fmt.Errorf("invalid BASELINE_PERIODS %d (must be >= 1)", d.BaselinePeriods))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ToEngineConfig copies the detector thresholds onto an engine config,
// leaving the calendar constants at their defaults.
func (d *Detector) ToEngineConfig() glean.Config {
	c := glean.DefaultConfig()
	c.MinCadenceInvoices = d.MinCadenceInvoices
	c.NotSeenMultiplier = d.NotSeenMultiplier
	c.IncreaseRatio = d.IncreaseRatio
	c.MinIncreaseAmount = d.MinIncreaseAmount
	c.AccrualRatio = d.AccrualRatio
	c.BaselinePeriods = d.BaselinePeriods
	return c
}
