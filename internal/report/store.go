package report

import "context"

// Store persists reports.
type Store interface {
	Create(ctx context.Context, r *Report) error
	Find(ctx context.Context, id string) (*Report, error)
	// List returns reports newest first, optionally filtered.
	List(ctx context.Context, f Filter) ([]Report, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context) (Counts, error)
}
