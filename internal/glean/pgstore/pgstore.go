// Package pgstore provides a PostgreSQL implementation of glean.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/gleaner/internal/glean"
)

var tracer = otel.Tracer("github.com/linnemanlabs/gleaner/internal/glean/pgstore")

//go:embed schema.sql
var schema string

// Store persists detection runs and their glean batches in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store over the given pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const runColumns = `id, fingerprint, status, window_start, window_end, invoice_count,
	line_item_count, vendor_count, skipped_records, glean_count, by_type, digest,
	created_at, completed_at, duration_s`

// GetRun retrieves a run by ID.
//
//nolint:dupl // similar structure to GetRunByFingerprint is intentional
func (s *Store) GetRun(ctx context.Context, id string) (*glean.Run, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetRun", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + runColumns + ` FROM glean_runs WHERE id = $1`
	r, err := s.scanRunRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// GetRunByFingerprint retrieves the most recent run for a window
// fingerprint.
//
//nolint:dupl // similar structure to GetRun is intentional
func (s *Store) GetRunByFingerprint(ctx context.Context, fingerprint string) (*glean.Run, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetRunByFingerprint", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + runColumns + ` FROM glean_runs WHERE fingerprint = $1 ORDER BY created_at DESC LIMIT 1`
	r, err := s.scanRunRow(s.pool.QueryRow(ctx, query, fingerprint))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// PutRun inserts or updates a run (upsert on glean_runs).
func (s *Store) PutRun(ctx context.Context, r *glean.Run) error {
	ctx, span := tracer.Start(ctx, "pgstore.PutRun", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	byTypeJSON, err := json.Marshal(r.ByType)
	if err != nil {
		return fmt.Errorf("marshal by_type: %w", err)
	}

	var completedAt *time.Time
	if !r.CompletedAt.IsZero() {
		completedAt = &r.CompletedAt
	}

	query := `INSERT INTO glean_runs (
		id, fingerprint, status, window_start, window_end, invoice_count,
		line_item_count, vendor_count, skipped_records, glean_count, by_type, digest,
		created_at, completed_at, duration_s
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	ON CONFLICT (id) DO UPDATE SET
		fingerprint     = EXCLUDED.fingerprint,
		status          = EXCLUDED.status,
		window_start    = EXCLUDED.window_start,
		window_end      = EXCLUDED.window_end,
		invoice_count   = EXCLUDED.invoice_count,
		line_item_count = EXCLUDED.line_item_count,
		vendor_count    = EXCLUDED.vendor_count,
		skipped_records = EXCLUDED.skipped_records,
		glean_count     = EXCLUDED.glean_count,
		by_type         = EXCLUDED.by_type,
		digest          = EXCLUDED.digest,
		completed_at    = EXCLUDED.completed_at,
		duration_s      = EXCLUDED.duration_s`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.Fingerprint, string(r.Status), r.WindowStart, r.WindowEnd, r.Invoices,
		r.LineItems, r.Vendors, r.Skipped, r.GleanCount, byTypeJSON, r.Digest,
		r.CreatedAt, completedAt, r.Duration,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// PutGleans replaces the run's glean batch in one transaction. A run owns
// exactly one batch; re-running a window writes a new run, not a new batch
// on the old one.
func (s *Store) PutGleans(ctx context.Context, runID string, gleans []glean.Glean) error {
	ctx, span := tracer.Start(ctx, "pgstore.PutGleans", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
		attribute.Int("gleaner.batch_size", len(gleans)),
	))
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	if _, err := tx.Exec(ctx, `DELETE FROM gleans WHERE run_id = $1`, runID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("clear batch: %w", err)
	}

	for i := range gleans {
		g := &gleans[i]

		var invoiceID *string
		if g.InvoiceID != "" {
			invoiceID = &g.InvoiceID
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO gleans (id, run_id, glean_date, glean_text, glean_type, glean_location, invoice_id, canonical_vendor_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			g.ID, runID, g.Date, g.Text, int(g.Type), int(g.Location), invoiceID, g.VendorID,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("insert glean %s: %w", g.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListGleans returns the run's glean batch ordered by date then id.
func (s *Store) ListGleans(ctx context.Context, runID string) ([]glean.Glean, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ListGleans", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, glean_date, glean_text, glean_type, glean_location, invoice_id, canonical_vendor_id
		 FROM gleans WHERE run_id = $1 ORDER BY glean_date, id`,
		runID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query gleans: %w", err)
	}
	defer rows.Close()

	var gleans []glean.Glean
	for rows.Next() {
		var (
			g         glean.Glean
			gType     int
			gLocation int
			invoiceID *string
		)
		if err := rows.Scan(&g.ID, &g.Date, &g.Text, &gType, &gLocation, &invoiceID, &g.VendorID); err != nil {
			return nil, fmt.Errorf("scan glean: %w", err)
		}
		g.Type = glean.Type(gType)
		g.Location = glean.Location(gLocation)
		if invoiceID != nil {
			g.InvoiceID = *invoiceID
		}
		gleans = append(gleans, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gleans: %w", err)
	}
	return gleans, nil
}

// scanRunRow scans a single row into a glean.Run. Returns (nil, nil) when
// no row is found.
func (s *Store) scanRunRow(row pgx.Row) (*glean.Run, error) {
	var (
		r           glean.Run
		status      string
		byTypeJSON  []byte
		completedAt *time.Time
	)

	err := row.Scan(
		&r.ID, &r.Fingerprint, &status, &r.WindowStart, &r.WindowEnd, &r.Invoices,
		&r.LineItems, &r.Vendors, &r.Skipped, &r.GleanCount, &byTypeJSON, &r.Digest,
		&r.CreatedAt, &completedAt, &r.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Status = glean.Status(status)

	if completedAt != nil {
		r.CompletedAt = *completedAt
	}

	if len(byTypeJSON) > 0 {
		if err := json.Unmarshal(byTypeJSON, &r.ByType); err != nil {
			return nil, fmt.Errorf("unmarshal by_type: %w", err)
		}
	}

	return &r, nil
}
