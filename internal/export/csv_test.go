package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/gleaner/internal/glean"
)

func sampleGleans() []glean.Glean {
	return []glean.Glean{
		{
			ID:        "01JF0000000000000000000001",
			Date:      time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
			Text:      "Monthly spend with vend-acme is $450.00 (55.00%) higher than average",
			Type:      glean.TypeLargeMonthIncrease,
			Location:  glean.LocationInvoice,
			InvoiceID: "inv-123",
			VendorID:  "vend-acme",
		},
		{
			ID:       "01JF0000000000000000000002",
			Date:     time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
			Text:     "Last bill from vendor vend-globex was 75 days ago; this vendor typically bills every 30 days",
			Type:     glean.TypeVendorNotSeen,
			Location: glean.LocationVendor,
			VendorID: "vend-globex",
		},
	}
}

func TestWriteGleans(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	if err := WriteGleans(&buf, sampleGleans()); err != nil {
		t.Fatalf("WriteGleans: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (header + 2 gleans)", len(rows))
	}

	wantHeader := []string{"glean_id", "glean_date", "glean_text", "glean_type", "glean_location", "invoice_id", "canonical_vendor_id"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}

	first := rows[1]
	if first[0] != "01JF0000000000000000000001" {
		t.Errorf("glean_id = %q", first[0])
	}
	if first[1] != "2025-03-15" {
		t.Errorf("glean_date = %q, want 2025-03-15", first[1])
	}
	if first[3] != "3" {
		t.Errorf("glean_type = %q, want 3", first[3])
	}
	if first[4] != "1" {
		t.Errorf("glean_location = %q, want 1", first[4])
	}
	if first[5] != "inv-123" {
		t.Errorf("invoice_id = %q, want inv-123", first[5])
	}

	second := rows[2]
	if second[5] != "" {
		t.Errorf("vendor-scoped invoice_id = %q, want empty", second[5])
	}
	if second[4] != "2" {
		t.Errorf("glean_location = %q, want 2", second[4])
	}
	if second[6] != "vend-globex" {
		t.Errorf("canonical_vendor_id = %q, want vend-globex", second[6])
	}
}

func TestWriteGleans_Empty(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	if err := WriteGleans(&buf, nil); err != nil {
		t.Fatalf("WriteGleans: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want header only", len(lines))
	}
	if !strings.HasPrefix(lines[0], "glean_id,") {
		t.Errorf("header line = %q", lines[0])
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gleans.csv")
	if err := WriteFile(path, sampleGleans()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "vend-globex") {
		t.Errorf("output missing expected vendor row:\n%s", data)
	}
}

func TestWriteFile_BadPath(t *testing.T) {
	t.Parallel()

	err := WriteFile(filepath.Join(t.TempDir(), "missing", "gleans.csv"), nil)
	if err == nil {
		t.Fatal("WriteFile into missing directory should fail")
	}
}
