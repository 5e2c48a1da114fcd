package sharing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresSessionRepository implements SessionRepository using PostgreSQL
type PostgresSessionRepository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// NewPostgresSessionRepository creates a new PostgreSQL session repository
func NewPostgresSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: pool, pool: pool}
}

const sessionColumns = `id, owner_id, invitee_email, role, duration_minutes, created_at, activated_at, expires_at, total_resource_count`

func scanSession(row pgx.Row) (SharingSession, error) {
	var s SharingSession
	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.InviteeEmail,
		&s.Role,
		&s.DurationMinutes,
		&s.CreatedAt,
		&s.ActivatedAt,
		&s.ExpiresAt,
		&s.TotalResourceCount,
	)
	return s, err
}

func (r *PostgresSessionRepository) loadResourceIDs(ctx context.Context, sessionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT resource_id
		FROM sharing_session_resource
		WHERE session_id = $1
		ORDER BY resource_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session resources: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan resource id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over session resources: %w", err)
	}
	return ids, nil
}

// CreateSession inserts a session and its resource link rows. Callers that
// need the insert to be atomic run this on a transaction-scoped repository.
func (r *PostgresSessionRepository) CreateSession(ctx context.Context, session SharingSession) (SharingSession, error) {
	query := `
		INSERT INTO sharing_session (
			owner_id, invitee_email, role, duration_minutes, activated_at, expires_at, total_resource_count
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING ` + sessionColumns

	created, err := scanSession(r.db.QueryRow(ctx, query,
		session.OwnerID,
		session.InviteeEmail,
		session.Role,
		session.DurationMinutes,
		session.ActivatedAt,
		session.ExpiresAt,
		session.TotalResourceCount,
	))
	if err != nil {
		slog.Error("Failed to create sharing session", "err", err, "owner", session.OwnerID)
		return SharingSession{}, fmt.Errorf("failed to create sharing session: %w", err)
	}

	for _, rid := range session.ResourceIDs {
		_, err := r.db.Exec(ctx, `
			INSERT INTO sharing_session_resource (session_id, resource_id)
			VALUES ($1, $2)
		`, created.ID, rid)
		if err != nil {
			slog.Error("Failed to link resource to session", "err", err, "sessionId", created.ID, "resourceId", rid)
			return SharingSession{}, fmt.Errorf("failed to link resource to session: %w", err)
		}
	}
	created.ResourceIDs = append([]uuid.UUID(nil), session.ResourceIDs...)

	slog.Debug("Sharing session created", "sessionId", created.ID, "owner", created.OwnerID, "invitee", created.InviteeEmail)
	return created, nil
}

// GetSession retrieves a session with its resource ids
func (r *PostgresSessionRepository) GetSession(ctx context.Context, id uuid.UUID) (SharingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sharing_session WHERE id = $1`

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SharingSession{}, ErrSessionNotFound
		}
		return SharingSession{}, fmt.Errorf("failed to get sharing session: %w", err)
	}

	session.ResourceIDs, err = r.loadResourceIDs(ctx, session.ID)
	if err != nil {
		return SharingSession{}, err
	}
	return session, nil
}

// ListSessionsByOwner lists sessions issued by an owner, newest first
func (r *PostgresSessionRepository) ListSessionsByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]SharingSession, int64, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sharing_session
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sharing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SharingSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sharing session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over sharing sessions: %w", err)
	}

	for i := range sessions {
		sessions[i].ResourceIDs, err = r.loadResourceIDs(ctx, sessions[i].ID)
		if err != nil {
			return nil, 0, err
		}
	}

	var total int64
	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sharing_session WHERE owner_id = $1`, ownerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sharing sessions: %w", err)
	}

	return sessions, total, nil
}

// FindOverlappingUsable returns usable sessions from owner to invitee that
// reference any of the given resources
func (r *PostgresSessionRepository) FindOverlappingUsable(ctx context.Context, ownerID uuid.UUID, inviteeEmail string, resourceIDs []uuid.UUID, now time.Time) ([]SharingSession, error) {
	query := `
		SELECT DISTINCT ` + qualifiedSessionColumns("s") + `
		FROM sharing_session s
		JOIN sharing_session_resource sr ON sr.session_id = s.id
		WHERE s.owner_id = $1
		  AND s.invitee_email = $2
		  AND (s.expires_at IS NULL OR s.expires_at > $3)
		  AND sr.resource_id = ANY($4)
	`

	rows, err := r.db.Query(ctx, query, ownerID, inviteeEmail, now, resourceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SharingSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sharing session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over sharing sessions: %w", err)
	}

	for i := range sessions {
		sessions[i].ResourceIDs, err = r.loadResourceIDs(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// FindUsableEditorSession returns a usable editor session from owner to invitee
func (r *PostgresSessionRepository) FindUsableEditorSession(ctx context.Context, ownerID uuid.UUID, inviteeEmail string, now time.Time) (SharingSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sharing_session
		WHERE owner_id = $1
		  AND invitee_email = $2
		  AND role = $3
		  AND (expires_at IS NULL OR expires_at > $4)
		LIMIT 1
	`

	session, err := scanSession(r.db.QueryRow(ctx, query, ownerID, inviteeEmail, RoleEditor, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SharingSession{}, ErrSessionNotFound
		}
		return SharingSession{}, fmt.Errorf("failed to find editor session: %w", err)
	}

	session.ResourceIDs, err = r.loadResourceIDs(ctx, session.ID)
	if err != nil {
		return SharingSession{}, err
	}
	return session, nil
}

// FindSessionsByResource returns all sessions linking the resource
func (r *PostgresSessionRepository) FindSessionsByResource(ctx context.Context, resourceID uuid.UUID) ([]SharingSession, error) {
	query := `
		SELECT ` + qualifiedSessionColumns("s") + `
		FROM sharing_session s
		JOIN sharing_session_resource sr ON sr.session_id = s.id
		WHERE sr.resource_id = $1
	`

	rows, err := r.db.Query(ctx, query, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find sessions by resource: %w", err)
	}
	defer rows.Close()

	var sessions []SharingSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sharing session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over sharing sessions: %w", err)
	}
	return sessions, nil
}

// ActivateSession sets activated_at (and expires_at for positive durations)
// in a single conditional update so concurrent first opens cannot race
func (r *PostgresSessionRepository) ActivateSession(ctx context.Context, id uuid.UUID, now time.Time) (SharingSession, error) {
	_, err := r.db.Exec(ctx, `
		UPDATE sharing_session
		SET activated_at = $2,
		    expires_at = CASE
		        WHEN duration_minutes > 0 THEN $2::timestamptz + make_interval(mins => duration_minutes)
		        ELSE expires_at
		    END
		WHERE id = $1 AND activated_at IS NULL
	`, id, now)
	if err != nil {
		slog.Error("Failed to activate sharing session", "err", err, "sessionId", id)
		return SharingSession{}, fmt.Errorf("failed to activate sharing session: %w", err)
	}

	return r.GetSession(ctx, id)
}

// ExpireSession sets expires_at to the given time
func (r *PostgresSessionRepository) ExpireSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE sharing_session SET expires_at = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		slog.Error("Failed to expire sharing session", "err", err, "sessionId", id)
		return fmt.Errorf("failed to expire sharing session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	slog.Debug("Sharing session expired", "sessionId", id, "at", at)
	return nil
}

// DeleteSession physically removes a session and its links
func (r *PostgresSessionRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sharing_session_resource WHERE session_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session resources: %w", err)
	}

	result, err := r.db.Exec(ctx, `DELETE FROM sharing_session WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sharing session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// BeginTx starts a pgx transaction and returns a repository scoped to it
func (r *PostgresSessionRepository) BeginTx(ctx context.Context) (SessionRepository, SessionTx, error) {
	if r.pool == nil {
		return nil, nil, errors.New("repository is already transaction-scoped")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &PostgresSessionRepository{db: tx}, pgxTx{tx}, nil
}

// WithTx returns a repository scoped to an externally owned pgx transaction
func (r *PostgresSessionRepository) WithTx(tx interface{}) SessionRepository {
	if tx == nil {
		return r
	}
	pgTx, ok := tx.(pgx.Tx)
	if !ok {
		slog.Warn("Unsupported transaction type for session repository")
		return r
	}
	return &PostgresSessionRepository{db: pgTx}
}

type pgxTx struct {
	tx pgx.Tx
}

func (t pgxTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t pgxTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

func qualifiedSessionColumns(alias string) string {
	return alias + ".id, " + alias + ".owner_id, " + alias + ".invitee_email, " + alias + ".role, " +
		alias + ".duration_minutes, " + alias + ".created_at, " + alias + ".activated_at, " +
		alias + ".expires_at, " + alias + ".total_resource_count"
}

// PostgresResourceChecker verifies resource ownership against the resource
// table maintained by the resource domains
type PostgresResourceChecker struct {
	db DBTX
}

// NewPostgresResourceChecker creates a new PostgreSQL resource checker
func NewPostgresResourceChecker(db DBTX) *PostgresResourceChecker {
	return &PostgresResourceChecker{db: db}
}

// OwnsResources reports whether every resource exists and is owned by ownerID
func (c *PostgresResourceChecker) OwnsResources(ctx context.Context, ownerID uuid.UUID, resourceIDs []uuid.UUID) (bool, error) {
	var count int64
	err := c.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM resource WHERE owner_id = $1 AND id = ANY($2)
	`, ownerID, resourceIDs).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check resource ownership: %w", err)
	}
	return count == int64(len(resourceIDs)), nil
}
