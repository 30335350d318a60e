package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"docflow/internal/models"
	"docflow/internal/service"
)

// ReviewerRepository handles review round assignments
type ReviewerRepository struct {
	db dbtx
}

// NewReviewerRepository creates a new reviewer repository
func NewReviewerRepository(db *sql.DB) *ReviewerRepository {
	return &ReviewerRepository{db: db}
}

func (r *ReviewerRepository) withTx(tx *sql.Tx) *ReviewerRepository {
	return &ReviewerRepository{db: tx}
}

// ListByRound retrieves the assignments of one review round, most recently updated first
func (r *ReviewerRepository) ListByRound(ctx context.Context, documentID int64, round int) ([]models.ReviewerAssignment, error) {
	query := `
		SELECT dr.document_id, dr.round, dr.user_id, u.name, dr.status, dr.comment, dr.decided_at, dr.created_at, dr.updated_at
		FROM document_reviewers dr
		JOIN users u ON u.id = dr.user_id
		WHERE dr.document_id = $1 AND dr.round = $2
		ORDER BY dr.updated_at DESC, dr.user_id
	`

	rows, err := r.db.QueryContext(ctx, query, documentID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviewers: %w", err)
	}
	defer rows.Close()

	reviewers := []models.ReviewerAssignment{}
	for rows.Next() {
		var a models.ReviewerAssignment
		var name string
		if err := rows.Scan(
			&a.DocumentID,
			&a.Round,
			&a.UserID,
			&name,
			&a.Status,
			&a.Comment,
			&a.DecidedAt,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reviewer: %w", err)
		}
		a.User = &models.UserRef{ID: a.UserID, Name: name}
		reviewers = append(reviewers, a)
	}

	return reviewers, rows.Err()
}

// InsertPending assigns userIDs to a review round; existing assignments are kept
func (r *ReviewerRepository) InsertPending(ctx context.Context, documentID int64, round int, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO document_reviewers (document_id, round, user_id, status)
		SELECT $1, $2, unnest($3::bigint[]), 'PENDING'
		ON CONFLICT (document_id, round, user_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, documentID, round, pq.Array(userIDs)); err != nil {
		return fmt.Errorf("failed to insert reviewers: %w", err)
	}
	return nil
}

// Decide records a decision on a still pending assignment and reports
// whether such an assignment existed
func (r *ReviewerRepository) Decide(ctx context.Context, documentID int64, d *service.ReviewerDecision) (bool, error) {
	query := `
		UPDATE document_reviewers
		SET status = $4, comment = $5, decided_at = $6, updated_at = $6
		WHERE document_id = $1 AND round = $2 AND user_id = $3 AND status = 'PENDING'
	`

	result, err := r.db.ExecContext(ctx, query, documentID, d.Round, d.UserID, string(d.Status), d.Comment, d.At)
	if err != nil {
		return false, fmt.Errorf("failed to record review decision: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}
