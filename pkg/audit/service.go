package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Recorder appends change records without blocking the mutation that
// produced them.
type Recorder struct {
	repo    ChangeRepository
	timeout time.Duration
}

// RecorderOption is a function that configures a Recorder
type RecorderOption func(*Recorder)

// WithAppendTimeout sets the deadline for a single background append
func WithAppendTimeout(timeout time.Duration) RecorderOption {
	return func(rec *Recorder) {
		rec.timeout = timeout
	}
}

// NewRecorder creates a new Recorder
func NewRecorder(repo ChangeRepository, opts ...RecorderOption) *Recorder {
	rec := &Recorder{
		repo:    repo,
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(rec)
	}
	return rec
}

// Record appends a change record in the background. Mutations by the owner
// themselves (empty OnBehalfOfEmail) are not recorded. The append runs
// outside the mutation's transaction and after its commit; a failed append
// is logged and never fails the mutation.
func (rec *Recorder) Record(ctx context.Context, record ChangeRecord) {
	if record.OnBehalfOfEmail == "" {
		return
	}

	// Detach from the request so cancellation of the HTTP request does not
	// lose the record
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, rec.timeout)
		defer cancel()

		if _, err := rec.repo.AppendChange(ctx, record); err != nil {
			slog.Error("Failed to record change", "err", err, "owner", record.OwnerID, "eventKind", record.EventKind)
			return
		}
		slog.Debug("Change recorded", "owner", record.OwnerID, "eventKind", record.EventKind, "onBehalfOf", record.OnBehalfOfEmail)
	}()
}

// List returns an owner's change history, newest first
func (rec *Recorder) List(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]ChangeRecord, int64, error) {
	return rec.repo.ListChangesByOwner(ctx, ownerID, limit, offset)
}
