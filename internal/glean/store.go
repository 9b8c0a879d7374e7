package glean

import "context"

// Store is the persistence interface for detection runs and their glean
// batches. Each run owns exactly one batch.
type Store interface {
	GetRun(ctx context.Context, id string) (*Run, bool, error)
	GetRunByFingerprint(ctx context.Context, fingerprint string) (*Run, bool, error)
	PutRun(ctx context.Context, run *Run) error
	PutGleans(ctx context.Context, runID string, gleans []Glean) error
	ListGleans(ctx context.Context, runID string) ([]Glean, error)
}
