// Gleaner batch CLI: run anomaly detection over invoice CSV exports and
// write the gleans as a flat CSV.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/log"
	v "github.com/linnemanlabs/go-core/version"

	"github.com/linnemanlabs/gleaner/internal/canonical"
	gc "github.com/linnemanlabs/gleaner/internal/cfg"
	"github.com/linnemanlabs/gleaner/internal/export"
	"github.com/linnemanlabs/gleaner/internal/glean"
	"github.com/linnemanlabs/gleaner/internal/record"
)

const appName = "gleaner"
const component = "cli"

const dateLayout = "2006-01-02"

// batchOptions are the resolved inputs for one batch run.
type batchOptions struct {
	invoicePath  string
	lineItemPath string
	outPath      string
	asOf         time.Time
	windowDays   int
	engineCfg    glean.Config
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	v.AppName = appName
	v.Component = component
	vi := v.Get()

	var (
		detCfg gc.Detector
		logCfg log.Config

		invoicePath  string
		lineItemPath string
		outPath      string
		asOfStr      string
		windowDays   int
		showVersion  bool
	)

	detCfg.RegisterFlags(flag.CommandLine)
	logCfg.RegisterFlags(flag.CommandLine)
	flag.StringVar(&invoicePath, "invoices", "", "path to the invoice CSV file (required)")
	flag.StringVar(&lineItemPath, "line-items", "", "path to the invoice line item CSV file (required)")
	flag.StringVar(&outPath, "out", "gleans.csv", "path to write the glean CSV output")
	flag.StringVar(&asOfStr, "as-of", "", "evaluation date YYYY-MM-DD (default today)")
	flag.IntVar(&windowDays, "window-days", 1, "number of days ending at -as-of to evaluate (>= 1)")
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")

	flag.Parse()
	if showVersion {
		fmt.Printf(
			"%s (%s) %s (commit=%s, build_date=%s, go=%s)\n",
			vi.AppName, vi.Component, vi.Version, vi.Commit, vi.BuildDate, vi.GoVersion,
		)
		return nil
	}

	cfg.FillFromEnv(flag.CommandLine, "GLEANER_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := errors.Join(detCfg.Validate(), logCfg.Validate()); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if invoicePath == "" || lineItemPath == "" {
		return errors.New("-invoices and -line-items are required")
	}
	if windowDays < 1 {
		return fmt.Errorf("invalid -window-days %d (must be >= 1)", windowDays)
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if asOfStr != "" {
		parsed, err := time.Parse(dateLayout, asOfStr)
		if err != nil {
			return fmt.Errorf("invalid -as-of %q: %w", asOfStr, err)
		}
		asOf = parsed
	}

	lg, err := log.New(logCfg.ToOptions(v.AppName))
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	L := lg.With("component", vi.Component)
	ctx = log.WithContext(ctx, L)

	opts := batchOptions{
		invoicePath:  invoicePath,
		lineItemPath: lineItemPath,
		outPath:      outPath,
		asOf:         asOf,
		windowDays:   windowDays,
		engineCfg:    detCfg.ToEngineConfig(),
	}

	n, err := runBatch(ctx, opts, L)
	if err != nil {
		return err
	}

	L.Info(ctx, "batch run complete", "gleans", n, "out", outPath)
	return nil
}

// runBatch loads the dataset, evaluates the window, and writes the output
// file. It returns the number of gleans written.
func runBatch(ctx context.Context, opts batchOptions, L log.Logger) (int, error) {
	if L == nil {
		L = log.Nop()
	}

	ds, err := record.Load(ctx, opts.invoicePath, opts.lineItemPath, L)
	if err != nil {
		return 0, fmt.Errorf("load dataset: %w", err)
	}
	L.Info(ctx, "dataset loaded",
		"invoices", len(ds.Invoices),
		"line_items", len(ds.LineItems),
		"skipped", ds.Skipped,
	)

	mapper := canonical.Build(ctx, ds.LineItems, L)

	from := opts.asOf.AddDate(0, 0, -(opts.windowDays - 1))
	engine := glean.NewEngine(opts.engineCfg, L, glean.EngineHooks{})
	gleans := engine.RunRange(ctx, ds, mapper, from, opts.asOf)

	for i := range gleans {
		gleans[i].ID = ulid.Make().String()
	}

	if err := export.WriteFile(opts.outPath, gleans); err != nil {
		return 0, fmt.Errorf("write output: %w", err)
	}
	return len(gleans), nil
}
