package glean

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/gleaner/internal/canonical"
	"github.com/linnemanlabs/gleaner/internal/record"
)

// RunRequest describes the evaluation window for a detection run. A
// zero-value window means "evaluate today only".
type RunRequest struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// SubmitResult is the outcome of submitting a detection run.
type SubmitResult struct {
	ID      string
	Skipped bool
	Reason  string
}

// Summarizer produces an optional reviewer digest for a completed run.
type Summarizer interface {
	Summarize(ctx context.Context, run *Run, gleans []Glean) (string, error)
}

// Notifier delivers a completed run somewhere a reviewer will see it.
type Notifier interface {
	Send(ctx context.Context, run *Run, gleans []Glean) error
}

// Service is the business boundary for detection runs: the glean assembler.
// It owns run lifecycle, id generation, dedup, async dispatch, and the
// merge of detector candidates into stored glean records.
type Service struct {
	store      Store
	engine     *Engine
	ds         *record.Dataset
	mapper     *canonical.Mapper
	logger     log.Logger
	metrics    *Metrics
	summarizer Summarizer
	notifier   Notifier

	// newID supplies opaque unique ids for runs and gleans.
	newID func() string
}

// NewService creates a detection service over a loaded dataset. metrics,
// summarizer, and notifier may be nil.
func NewService(store Store, engine *Engine, ds *record.Dataset, mapper *canonical.Mapper, logger log.Logger, metrics *Metrics, summarizer Summarizer, notifier Notifier) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:      store,
		engine:     engine,
		ds:         ds,
		mapper:     mapper,
		logger:     logger,
		metrics:    metrics,
		summarizer: summarizer,
		notifier:   notifier,
		newID:      func() string { return ulid.Make().String() },
	}
}

// Submit accepts a detection run, handling window defaults, dedup, and
// lifecycle. The run executes asynchronously; poll Get for completion.
func (s *Service) Submit(ctx context.Context, req *RunRequest) (*SubmitResult, error) {
	from, to := req.WindowStart, req.WindowEnd
	if from.IsZero() && to.IsZero() {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		from, to = today, today
	}
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("window_start and window_end must be set together")
	}
	if to.Before(from) {
		return nil, fmt.Errorf("window_end %s before window_start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	fp := from.Format("2006-01-02") + ".." + to.Format("2006-01-02")

	// dedup: skip if the same window is already pending or in progress
	if existing, ok, err := s.store.GetRunByFingerprint(ctx, fp); err != nil {
		return nil, err
	} else if ok && (existing.Status == StatusPending || existing.Status == StatusInProgress) {
		s.observeSubmit("duplicate")
		return &SubmitResult{Skipped: true, Reason: "duplicate"}, nil
	}

	run := &Run{
		ID:          s.newID(),
		Fingerprint: fp,
		Status:      StatusPending,
		WindowStart: from,
		WindowEnd:   to,
		Invoices:    len(s.ds.Invoices),
		LineItems:   len(s.ds.LineItems),
		Skipped:     s.ds.Skipped,
		CreatedAt:   time.Now(),
	}

	if err := s.store.PutRun(ctx, run); err != nil {
		return nil, err
	}
	s.observeSubmit("accepted")

	// detach from the request so a client disconnect doesn't cancel the run
	go s.runDetection(context.WithoutCancel(ctx), run.ID, from, to)

	return &SubmitResult{ID: run.ID}, nil
}

// Get retrieves a run by id.
func (s *Service) Get(ctx context.Context, id string) (*Run, bool, error) {
	return s.store.GetRun(ctx, id)
}

// Gleans retrieves the glean batch for a run.
func (s *Service) Gleans(ctx context.Context, id string) ([]Glean, error) {
	return s.store.ListGleans(ctx, id)
}

func (s *Service) runDetection(ctx context.Context, id string, from, to time.Time) {
	L := s.logger.With("run_id", id)
	start := time.Now()

	run, ok, err := s.store.GetRun(ctx, id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch run for detection")
		return
	}

	run.Status = StatusInProgress
	if err := s.store.PutRun(ctx, run); err != nil {
		L.Error(ctx, err, "failed to update status to in_progress")
		return
	}

	gleans := s.Assemble(ctx, from, to)

	if err := s.store.PutGleans(ctx, id, gleans); err != nil {
		L.Error(ctx, err, "failed to persist glean batch")
		run.Status = StatusFailed
		run.CompletedAt = time.Now()
		run.Duration = time.Since(start).Seconds()
		if perr := s.store.PutRun(ctx, run); perr != nil {
			L.Error(ctx, perr, "failed to persist failed run")
		}
		s.observeRun(run)
		return
	}

	run.GleanCount = len(gleans)
	run.ByType = countByType(gleans)
	run.Vendors = countVendors(s.ds)

	if s.summarizer != nil && len(gleans) > 0 {
		digest, derr := s.summarizer.Summarize(ctx, run, gleans)
		if derr != nil {
			// the digest is best-effort; the batch stands without it
			L.Warn(ctx, "digest generation failed", "error", derr)
		} else {
			run.Digest = digest
		}
	}

	run.Status = StatusComplete
	run.CompletedAt = time.Now()
	run.Duration = time.Since(start).Seconds()

	if err := s.store.PutRun(ctx, run); err != nil {
		L.Error(ctx, err, "failed to persist run result")
	}
	s.observeRun(run)

	if s.notifier != nil {
		if nerr := s.notifier.Send(ctx, run, gleans); nerr != nil {
			L.Warn(ctx, "run notification failed", "error", nerr)
		}
	}

	L.Info(ctx, "run complete",
		"status", run.Status,
		"gleans", run.GleanCount,
		"duration", run.Duration,
	)
}

// Assemble executes the engine over the service's dataset and attaches
// glean ids. Exposed for the batch CLI, which wants gleans without run
// lifecycle or persistence.
func (s *Service) Assemble(ctx context.Context, from, to time.Time) []Glean {
	gleans := s.engine.RunRange(ctx, s.ds, s.mapper, from, to)
	for i := range gleans {
		gleans[i].ID = s.newID()
	}
	return gleans
}

func (s *Service) observeSubmit(result string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) observeRun(run *Run) {
	if s.metrics != nil {
		s.metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
		s.metrics.RunDuration.WithLabelValues(string(run.Status)).Observe(run.Duration)
	}
}

func countByType(gleans []Glean) map[string]int {
	if len(gleans) == 0 {
		return nil
	}
	byType := make(map[string]int)
	for _, g := range gleans {
		byType[g.Type.String()]++
	}
	return byType
}

func countVendors(ds *record.Dataset) int {
	seen := make(map[string]bool)
	for _, inv := range ds.Invoices {
		if inv.VendorID != "" {
			seen[inv.VendorID] = true
		}
	}
	return len(seen)
}
