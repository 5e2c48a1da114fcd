package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemChangeRepository implements ChangeRepository using an in-memory
// slice. Intended for tests and local development.
type InMemChangeRepository struct {
	records []ChangeRecord
	mu      sync.Mutex
}

// NewInMemChangeRepository creates a new in-memory change repository
func NewInMemChangeRepository() *InMemChangeRepository {
	return &InMemChangeRepository{}
}

// AppendChange stores a change record
func (r *InMemChangeRepository) AppendChange(ctx context.Context, record ChangeRecord) (ChangeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	r.records = append(r.records, record)
	return record, nil
}

// ListChangesByOwner lists an owner's change records, newest first
func (r *InMemChangeRepository) ListChangesByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]ChangeRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matches []ChangeRecord
	for _, record := range r.records {
		if record.OwnerID == ownerID {
			matches = append(matches, record)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := int64(len(matches))
	if offset >= int32(len(matches)) {
		return nil, total, nil
	}
	matches = matches[offset:]
	if limit > 0 && int32(len(matches)) > limit {
		matches = matches[:limit]
	}
	return matches, total, nil
}
