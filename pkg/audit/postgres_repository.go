package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresChangeRepository implements ChangeRepository using PostgreSQL
type PostgresChangeRepository struct {
	db DBTX
}

// NewPostgresChangeRepository creates a new PostgreSQL change repository
func NewPostgresChangeRepository(db DBTX) *PostgresChangeRepository {
	return &PostgresChangeRepository{db: db}
}

// AppendChange stores a change record
func (r *PostgresChangeRepository) AppendChange(ctx context.Context, record ChangeRecord) (ChangeRecord, error) {
	var resourceID interface{}
	if record.ResourceID != uuid.Nil {
		resourceID = record.ResourceID
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO sharing_change_record (
			owner_id, actor_id, on_behalf_of_email, event_kind, resource_id, before, after
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING id, created_at
	`,
		record.OwnerID,
		record.ActorID,
		record.OnBehalfOfEmail,
		record.EventKind,
		resourceID,
		record.Before,
		record.After,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		slog.Error("Failed to append change record", "err", err, "owner", record.OwnerID)
		return ChangeRecord{}, fmt.Errorf("failed to append change record: %w", err)
	}
	return record, nil
}

// ListChangesByOwner lists an owner's change records, newest first
func (r *PostgresChangeRepository) ListChangesByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]ChangeRecord, int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, owner_id, actor_id, on_behalf_of_email, event_kind,
		       COALESCE(resource_id, '00000000-0000-0000-0000-000000000000'::uuid),
		       before, after, created_at
		FROM sharing_change_record
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list change records: %w", err)
	}
	defer rows.Close()

	var records []ChangeRecord
	for rows.Next() {
		var record ChangeRecord
		err := rows.Scan(
			&record.ID,
			&record.OwnerID,
			&record.ActorID,
			&record.OnBehalfOfEmail,
			&record.EventKind,
			&record.ResourceID,
			&record.Before,
			&record.After,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan change record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over change records: %w", err)
	}

	var total int64
	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sharing_change_record WHERE owner_id = $1`, ownerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count change records: %w", err)
	}

	return records, total, nil
}
