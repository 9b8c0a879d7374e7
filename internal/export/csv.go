// Package export writes gleans to the flat CSV output consumed by
// downstream reporting.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/linnemanlabs/gleaner/internal/glean"
)

const dateLayout = "2006-01-02"

var header = []string{
	"glean_id",
	"glean_date",
	"glean_text",
	"glean_type",
	"glean_location",
	"invoice_id",
	"canonical_vendor_id",
}

// WriteGleans writes the header row followed by one row per glean, in the
// order given. Vendor-scoped gleans carry an empty invoice_id.
func WriteGleans(w io.Writer, gleans []glean.Glean) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, g := range gleans {
		row := []string{
			g.ID,
			g.Date.Format(dateLayout),
			g.Text,
			strconv.Itoa(int(g.Type)),
			strconv.Itoa(int(g.Location)),
			g.InvoiceID,
			g.VendorID,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write glean %s: %w", g.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes gleans to path, creating or truncating it.
func WriteFile(path string, gleans []glean.Glean) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := WriteGleans(f, gleans); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
