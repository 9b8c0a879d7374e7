package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/gleaner/internal/glean"
)

func TestStore_PutAndGetRun(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	r := &glean.Run{ID: "run-1", Fingerprint: "2025-04-01..2025-04-30", Status: glean.StatusPending}
	if err := s.PutRun(ctx, r); err != nil {
		t.Fatalf("PutRun: %v", err)
	}

	got, ok, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !ok {
		t.Fatal("expected run to be found")
	}
	if got.ID != "run-1" {
		t.Errorf("ID = %q, want %q", got.ID, "run-1")
	}
	if got.Fingerprint != "2025-04-01..2025-04-30" {
		t.Errorf("Fingerprint = %q, want %q", got.Fingerprint, "2025-04-01..2025-04-30")
	}
}

func TestStore_GetRunMissing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.GetRun(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing ID")
	}
}

func TestStore_GetRunByFingerprint(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	r := &glean.Run{ID: "run-2", Fingerprint: "2025-05-01..2025-05-31", Status: glean.StatusPending}
	if err := s.PutRun(ctx, r); err != nil {
		t.Fatalf("PutRun: %v", err)
	}

	got, ok, err := s.GetRunByFingerprint(ctx, "2025-05-01..2025-05-31")
	if err != nil {
		t.Fatalf("GetRunByFingerprint: %v", err)
	}
	if !ok {
		t.Fatal("expected run to be found by fingerprint")
	}
	if got.ID != "run-2" {
		t.Errorf("ID = %q, want %q", got.ID, "run-2")
	}
}

func TestStore_GetRunByFingerprintMissing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.GetRunByFingerprint(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetRunByFingerprint: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing fingerprint")
	}
}

func TestStore_PutRunOverwrites(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.PutRun(ctx, &glean.Run{ID: "run-3", Fingerprint: "fp-3", Status: glean.StatusPending})
	_ = s.PutRun(ctx, &glean.Run{ID: "run-3", Fingerprint: "fp-3", Status: glean.StatusComplete, GleanCount: 7, Digest: "done"})

	got, ok, err := s.GetRun(ctx, "run-3")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !ok {
		t.Fatal("expected run to be found")
	}
	if got.Status != glean.StatusComplete {
		t.Errorf("Status = %q, want %q", got.Status, glean.StatusComplete)
	}
	if got.GleanCount != 7 {
		t.Errorf("GleanCount = %d, want 7", got.GleanCount)
	}
	if got.Digest != "done" {
		t.Errorf("Digest = %q, want %q", got.Digest, "done")
	}
}

func TestStore_GetRunReturnsCopy(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.PutRun(ctx, &glean.Run{ID: "run-4", Fingerprint: "fp-4", Status: glean.StatusPending})

	got, _, _ := s.GetRun(ctx, "run-4")
	got.Status = glean.StatusFailed

	again, _, _ := s.GetRun(ctx, "run-4")
	if again.Status != glean.StatusPending {
		t.Error("mutating a returned run must not affect the stored run")
	}
}

func TestStore_PutAndListGleans(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	batch := []glean.Glean{
		{ID: "g-1", Date: time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC), Type: glean.TypeNoInvoiceReceived, Location: glean.LocationVendor, VendorID: "vend-a", Text: "overdue"},
		{ID: "g-2", Date: time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), Type: glean.TypeLargeMonthIncrease, Location: glean.LocationInvoice, InvoiceID: "inv-9", VendorID: "vend-a", Text: "spike"},
	}
	if err := s.PutGleans(ctx, "run-5", batch); err != nil {
		t.Fatalf("PutGleans: %v", err)
	}

	got, err := s.ListGleans(ctx, "run-5")
	if err != nil {
		t.Fatalf("ListGleans: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("gleans = %d, want 2", len(got))
	}
	if got[0].ID != "g-1" || got[1].ID != "g-2" {
		t.Errorf("ids = %q, %q", got[0].ID, got[1].ID)
	}
	if got[1].InvoiceID != "inv-9" {
		t.Errorf("InvoiceID = %q, want inv-9", got[1].InvoiceID)
	}
}

func TestStore_PutGleansReplacesBatch(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	_ = s.PutGleans(ctx, "run-6", []glean.Glean{{ID: "g-1"}, {ID: "g-2"}})
	_ = s.PutGleans(ctx, "run-6", []glean.Glean{{ID: "g-3"}})

	got, err := s.ListGleans(ctx, "run-6")
	if err != nil {
		t.Fatalf("ListGleans: %v", err)
	}
	if len(got) != 1 || got[0].ID != "g-3" {
		t.Errorf("gleans = %v, want single g-3", got)
	}
}

func TestStore_ListGleansEmptyRun(t *testing.T) {
	t.Parallel()

	s := New()
	got, err := s.ListGleans(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("ListGleans: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("gleans = %d, want 0", len(got))
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n * 2)

	for i := range n {
		id := fmt.Sprintf("run-%d", i)
		fp := fmt.Sprintf("fp-%d", i)

		go func() {
			defer wg.Done()
			_ = s.PutRun(ctx, &glean.Run{ID: id, Fingerprint: fp, Status: glean.StatusPending})
			_ = s.PutGleans(ctx, id, []glean.Glean{{ID: id + "-g"}})
		}()

		go func() {
			defer wg.Done()
			_, _, _ = s.GetRun(ctx, id)
			_, _, _ = s.GetRunByFingerprint(ctx, fp)
			_, _ = s.ListGleans(ctx, id)
		}()
	}

	wg.Wait()
}
