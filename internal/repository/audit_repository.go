package repository

import (
	"context"
	"database/sql"
	"fmt"

	"docflow/internal/models"
)

// AuditRepository handles document audit log database operations
type AuditRepository struct {
	db dbtx
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) withTx(tx *sql.Tx) *AuditRepository {
	return &AuditRepository{db: tx}
}

// Create appends an audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO document_audit_logs (document_id, user_id, action, from_stage, to_stage, details, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx,
		query,
		log.DocumentID,
		log.UserID,
		log.Action,
		log.FromStage,
		log.ToStage,
		nullString(log.Details),
		nullString(log.IPAddress),
		nullString(log.UserAgent),
	).Scan(&log.ID, &log.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

// ListByDocument retrieves the audit trail of a document, oldest first
func (r *AuditRepository) ListByDocument(ctx context.Context, documentID int64) ([]models.AuditLog, error) {
	query := `
		SELECT l.id, l.document_id, l.user_id, u.name, l.action, l.from_stage, l.to_stage,
		       COALESCE(l.details, ''), COALESCE(l.ip_address, ''), COALESCE(l.user_agent, ''), l.created_at
		FROM document_audit_logs l
		LEFT JOIN users u ON u.id = l.user_id
		WHERE l.document_id = $1
		ORDER BY l.id
	`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	defer rows.Close()

	// Initialize with empty slice to return [] instead of null
	logs := []models.AuditLog{}
	for rows.Next() {
		var log models.AuditLog
		if err := rows.Scan(
			&log.ID,
			&log.DocumentID,
			&log.UserID,
			&log.UserName,
			&log.Action,
			&log.FromStage,
			&log.ToStage,
			&log.Details,
			&log.IPAddress,
			&log.UserAgent,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}
