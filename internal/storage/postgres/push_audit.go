package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mediguru/mediguru-gateway/internal/generation/domain"
)

const pushAuditSchema = `
CREATE TABLE IF NOT EXISTS push_audit (
	id            UUID PRIMARY KEY,
	generation_id TEXT NOT NULL,
	artifact_path TEXT NOT NULL,
	commit_sha    TEXT NOT NULL DEFAULT '',
	success       BOOLEAN NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PushAuditRepository records push attempts.
type PushAuditRepository struct {
	db *sql.DB
}

func NewPushAuditRepository(db *sql.DB) *PushAuditRepository {
	return &PushAuditRepository{db: db}
}

// EnsureSchema creates the push_audit table when missing.
func (r *PushAuditRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, pushAuditSchema); err != nil {
		return fmt.Errorf("create push_audit table: %w", err)
	}
	return nil
}

func (r *PushAuditRepository) Record(ctx context.Context, audit *domain.PushAudit) error {
	query := `
		INSERT INTO push_audit (id, generation_id, artifact_path, commit_sha, success, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		audit.ID,
		audit.GenerationID,
		audit.ArtifactPath,
		audit.Commit,
		audit.Success,
		audit.Error,
		audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert push audit: %w", err)
	}
	return nil
}

// ListByGeneration returns the attempts for one generation, oldest first.
func (r *PushAuditRepository) ListByGeneration(ctx context.Context, generationID string) ([]*domain.PushAudit, error) {
	query := `
		SELECT id, generation_id, artifact_path, commit_sha, success, error, created_at
		FROM push_audit
		WHERE generation_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, generationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query push audit: %w", err)
	}
	defer rows.Close()

	var out []*domain.PushAudit
	for rows.Next() {
		var a domain.PushAudit
		if err := rows.Scan(&a.ID, &a.GenerationID, &a.ArtifactPath, &a.Commit, &a.Success, &a.Error, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan push audit: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate push audit: %w", err)
	}
	return out, nil
}
