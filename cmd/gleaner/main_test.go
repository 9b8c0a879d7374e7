package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/gleaner/internal/glean"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

const lineItemHeader = "line_item_id,invoice_id,canonical_line_item_id,amount\n"

func TestRunBatch_QuietDataset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// Two invoices are below the cadence minimum, so no detector can fire.
	invoices := writeFixture(t, dir, "invoices.csv",
		"invoice_id,canonical_vendor_id,invoice_date,total_amount\n"+
			"inv-1,vend-a,2025-01-05,100.00\n"+
			"inv-2,vend-a,2025-02-05,100.00\n")
	items := writeFixture(t, dir, "line_items.csv",
		lineItemHeader+
			"li-1,inv-1,canon-1,100.00\n"+
			"li-2,inv-2,canon-1,100.00\n")
	out := filepath.Join(dir, "gleans.csv")

	opts := batchOptions{
		invoicePath:  invoices,
		lineItemPath: items,
		outPath:      out,
		asOf:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		windowDays:   1,
		engineCfg:    glean.DefaultConfig(),
	}

	n, err := runBatch(context.Background(), opts, nil)
	if err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	if n != 0 {
		t.Errorf("gleans = %d, want 0", n)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("output lines = %d, want header only", len(lines))
	}
}

func TestRunBatch_VendorGoneQuiet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// Monthly vendor, silent since March; evaluated in June the gap far
	// exceeds twice the median cadence.
	invoices := writeFixture(t, dir, "invoices.csv",
		"invoice_id,canonical_vendor_id,invoice_date,total_amount\n"+
			"inv-1,vend-a,2025-01-05,100.00\n"+
			"inv-2,vend-a,2025-02-05,100.00\n"+
			"inv-3,vend-a,2025-03-05,100.00\n")
	items := writeFixture(t, dir, "line_items.csv",
		lineItemHeader+
			"li-1,inv-1,canon-1,100.00\n"+
			"li-2,inv-2,canon-1,100.00\n"+
			"li-3,inv-3,canon-1,100.00\n")
	out := filepath.Join(dir, "gleans.csv")

	opts := batchOptions{
		invoicePath:  invoices,
		lineItemPath: items,
		outPath:      out,
		asOf:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		windowDays:   1,
		engineCfg:    glean.DefaultConfig(),
	}

	n, err := runBatch(context.Background(), opts, nil)
	if err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	if n != 1 {
		t.Fatalf("gleans = %d, want 1", n)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1 glean", len(rows))
	}

	row := rows[1]
	if row[0] == "" {
		t.Error("glean_id should be assigned")
	}
	if row[1] != "2025-06-01" {
		t.Errorf("glean_date = %q, want 2025-06-01", row[1])
	}
	if row[3] != "1" {
		t.Errorf("glean_type = %q, want 1 (vendor not seen)", row[3])
	}
	if row[4] != "2" {
		t.Errorf("glean_location = %q, want 2 (vendor)", row[4])
	}
	if row[5] != "" {
		t.Errorf("invoice_id = %q, want empty for vendor-scoped glean", row[5])
	}
	if row[6] != "vend-a" {
		t.Errorf("canonical_vendor_id = %q, want vend-a", row[6])
	}
	if !strings.Contains(row[2], "typically bills every") {
		t.Errorf("glean_text = %q", row[2])
	}
}

func TestRunBatch_MissingInvoiceFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	items := writeFixture(t, dir, "line_items.csv", lineItemHeader)

	opts := batchOptions{
		invoicePath:  filepath.Join(dir, "nope.csv"),
		lineItemPath: items,
		outPath:      filepath.Join(dir, "gleans.csv"),
		asOf:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		windowDays:   1,
		engineCfg:    glean.DefaultConfig(),
	}

	if _, err := runBatch(context.Background(), opts, nil); err == nil {
		t.Fatal("expected error for missing invoice file")
	}
}
