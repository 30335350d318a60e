package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"docflow/internal/models"
)

// Participant tables holding per-document user sets
const (
	tableCoExecutors  = "document_co_executors"
	tableContributors = "document_contributors"
)

// ExecutorRepository handles a document's co-executor and contributor sets
type ExecutorRepository struct {
	db dbtx
}

// NewExecutorRepository creates a new executor repository
func NewExecutorRepository(db *sql.DB) *ExecutorRepository {
	return &ExecutorRepository{db: db}
}

func (r *ExecutorRepository) withTx(tx *sql.Tx) *ExecutorRepository {
	return &ExecutorRepository{db: tx}
}

// CoExecutors lists the co-executors of a document
func (r *ExecutorRepository) CoExecutors(ctx context.Context, documentID int64) ([]models.UserRef, error) {
	return r.list(ctx, tableCoExecutors, documentID)
}

// Contributors lists the contributors of a document
func (r *ExecutorRepository) Contributors(ctx context.Context, documentID int64) ([]models.UserRef, error) {
	return r.list(ctx, tableContributors, documentID)
}

// ReplaceCoExecutors replaces the co-executor set; an empty set clears it
func (r *ExecutorRepository) ReplaceCoExecutors(ctx context.Context, documentID int64, userIDs []int64) error {
	return r.replace(ctx, tableCoExecutors, documentID, userIDs)
}

// ReplaceContributors replaces the contributor set; an empty set clears it
func (r *ExecutorRepository) ReplaceContributors(ctx context.Context, documentID int64, userIDs []int64) error {
	return r.replace(ctx, tableContributors, documentID, userIDs)
}

func (r *ExecutorRepository) list(ctx context.Context, table string, documentID int64) ([]models.UserRef, error) {
	query := fmt.Sprintf(`
		SELECT t.user_id, u.name
		FROM %s t
		JOIN users u ON u.id = t.user_id
		WHERE t.document_id = $1
		ORDER BY t.user_id
	`, table)

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", table, err)
	}
	defer rows.Close()

	refs := []models.UserRef{}
	for rows.Next() {
		var ref models.UserRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

func (r *ExecutorRepository) replace(ctx context.Context, table string, documentID int64, userIDs []int64) error {
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, table), documentID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	if len(userIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, user_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`, table)
	if _, err := r.db.ExecContext(ctx, query, documentID, pq.Array(userIDs)); err != nil {
		return fmt.Errorf("failed to insert %s: %w", table, err)
	}
	return nil
}
