package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"docflow/internal/models"
	"docflow/internal/service"
	"docflow/internal/workflow"
)

// DocumentRepository is the Postgres document store
type DocumentRepository struct {
	db        *sql.DB
	q         dbtx
	reviewers *ReviewerRepository
	executors *ExecutorRepository
	audit     *AuditRepository
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{
		db:        db,
		q:         db,
		reviewers: NewReviewerRepository(db),
		executors: NewExecutorRepository(db),
		audit:     NewAuditRepository(db),
	}
}

func (r *DocumentRepository) withTx(tx *sql.Tx) *DocumentRepository {
	return &DocumentRepository{
		db:        r.db,
		q:         tx,
		reviewers: r.reviewers.withTx(tx),
		executors: r.executors.withTx(tx),
		audit:     r.audit.withTx(tx),
	}
}

const documentSelect = `
	SELECT d.id, d.type, d.stage, d.title, d.content, d.source, d.kartoteka,
	       d.author_id, a.name, d.main_executor_id, me.name, d.internal_assignee_id, ia.name,
	       d.deadline, d.stage_deadline, d.review_round, d.created_at, d.updated_at
	FROM documents d
	JOIN users a ON a.id = d.author_id
	LEFT JOIN users me ON me.id = d.main_executor_id
	LEFT JOIN users ia ON ia.id = d.internal_assignee_id
`

// CreateDocument inserts a document and its creation audit entry in one transaction
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *models.Document, entry *models.AuditLog) error {
	return r.inTx(ctx, func(txr *DocumentRepository) error {
		query := `
			INSERT INTO documents (type, stage, title, content, source, kartoteka, author_id,
			                       main_executor_id, internal_assignee_id, deadline, stage_deadline)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at, updated_at
		`
		err := txr.q.QueryRowContext(ctx,
			query,
			string(doc.Type),
			string(doc.Stage),
			doc.Title,
			doc.Content,
			nullString(doc.Source),
			nullString(doc.Kartoteka),
			doc.AuthorID,
			doc.MainExecutorID,
			doc.InternalAssigneeID,
			doc.Deadline,
			doc.StageDeadline,
		).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}

		if entry != nil {
			entry.DocumentID = doc.ID
			if err := txr.audit.Create(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadDocument retrieves a document snapshot; nil, nil when missing
func (r *DocumentRepository) LoadDocument(ctx context.Context, id int64) (*models.Document, error) {
	return r.load(ctx, id, false)
}

// ListDocuments retrieves the documents matching filter, newest first
func (r *DocumentRepository) ListDocuments(ctx context.Context, filter service.DocumentFilter) ([]models.Document, error) {
	query := documentSelect
	args := []interface{}{}
	argPos := 1

	if !filter.All {
		var conds []string
		if len(filter.Stages) > 0 {
			stages := make([]string, len(filter.Stages))
			for i, s := range filter.Stages {
				stages[i] = string(s)
			}
			conds = append(conds, fmt.Sprintf(`d.stage = ANY($%d)`, argPos))
			args = append(args, pq.Array(stages))
			argPos++
		}
		if filter.MainExecutorDepartmentID != nil {
			conds = append(conds, fmt.Sprintf(`me.department_id = $%d`, argPos))
			args = append(args, *filter.MainExecutorDepartmentID)
			argPos++
		}
		if filter.InternalAssigneeID != nil {
			conds = append(conds, fmt.Sprintf(`d.internal_assignee_id = $%d`, argPos))
			args = append(args, *filter.InternalAssigneeID)
			argPos++
		}
		if filter.PendingReviewerID != nil {
			conds = append(conds, fmt.Sprintf(`EXISTS (
				SELECT 1 FROM document_reviewers dr
				WHERE dr.document_id = d.id AND dr.round = d.review_round
				  AND dr.user_id = $%d AND dr.status = 'PENDING')`, argPos))
			args = append(args, *filter.PendingReviewerID)
			argPos++
		}

		if len(conds) == 0 {
			return []models.Document{}, nil
		}
		query += ` WHERE ` + strings.Join(conds, ` OR `)
	}

	query += ` ORDER BY d.created_at DESC, d.id DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	rows.Close()

	for i := range docs {
		if err := r.loadRelations(ctx, &docs[i]); err != nil {
			return nil, err
		}
	}

	return docs, nil
}

// History retrieves the audit trail of a document
func (r *DocumentRepository) History(ctx context.Context, documentID int64) ([]models.AuditLog, error) {
	return r.audit.ListByDocument(ctx, documentID)
}

// WithinTx runs fn in a transaction that commits only when fn succeeds
func (r *DocumentRepository) WithinTx(ctx context.Context, fn func(tx service.StoreTx) error) error {
	return r.inTx(ctx, func(txr *DocumentRepository) error {
		return fn(&documentTx{repo: txr})
	})
}

func (r *DocumentRepository) inTx(ctx context.Context, fn func(txr *DocumentRepository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Rollback only if not committed
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(r.withTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *DocumentRepository) load(ctx context.Context, id int64, forUpdate bool) (*models.Document, error) {
	query := documentSelect + ` WHERE d.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF d`
	}

	doc, err := scanDocument(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if err := r.loadRelations(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) loadRelations(ctx context.Context, doc *models.Document) error {
	var err error
	if doc.CoExecutors, err = r.executors.CoExecutors(ctx, doc.ID); err != nil {
		return err
	}
	if doc.Contributors, err = r.executors.Contributors(ctx, doc.ID); err != nil {
		return err
	}
	if doc.Reviewers, err = r.reviewers.ListByRound(ctx, doc.ID, doc.ReviewRound); err != nil {
		return err
	}
	return nil
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var source, kartoteka, mainExecutor, internalAssignee sql.NullString
	var author string

	if err := row.Scan(
		&doc.ID,
		&doc.Type,
		&doc.Stage,
		&doc.Title,
		&doc.Content,
		&source,
		&kartoteka,
		&doc.AuthorID,
		&author,
		&doc.MainExecutorID,
		&mainExecutor,
		&doc.InternalAssigneeID,
		&internalAssignee,
		&doc.Deadline,
		&doc.StageDeadline,
		&doc.ReviewRound,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	doc.Source = source.String
	doc.Kartoteka = kartoteka.String
	doc.Author = &models.UserRef{ID: doc.AuthorID, Name: author}
	if doc.MainExecutorID != nil {
		doc.MainExecutor = &models.UserRef{ID: *doc.MainExecutorID, Name: mainExecutor.String}
	}
	if doc.InternalAssigneeID != nil {
		doc.InternalAssignee = &models.UserRef{ID: *doc.InternalAssigneeID, Name: internalAssignee.String}
	}
	return &doc, nil
}

// documentTx is the transactional store view handed to the lifecycle engine
type documentTx struct {
	repo *DocumentRepository
}

func (t *documentTx) LoadDocumentForUpdate(ctx context.Context, id int64) (*models.Document, error) {
	return t.repo.load(ctx, id, true)
}

func (t *documentTx) ListReviewers(ctx context.Context, documentID int64, round int) ([]models.ReviewerAssignment, error) {
	return t.repo.reviewers.ListByRound(ctx, documentID, round)
}

// Apply writes the mutation. The stage guard and the pending guard turn a
// lost race into workflow.ErrConflict.
func (t *documentTx) Apply(ctx context.Context, m *service.Mutation) error {
	r := t.repo
	doc := m.Document

	query := `
		UPDATE documents
		SET stage = $2, main_executor_id = $3, internal_assignee_id = $4,
		    deadline = $5, stage_deadline = $6, review_round = $7, updated_at = NOW()
		WHERE id = $1 AND stage = $8
	`
	result, err := r.q.ExecContext(ctx,
		query,
		doc.ID,
		string(doc.Stage),
		doc.MainExecutorID,
		doc.InternalAssigneeID,
		doc.Deadline,
		doc.StageDeadline,
		doc.ReviewRound,
		string(m.ExpectedStage),
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return workflow.Conflict("apply", fmt.Sprintf("document %d is no longer in stage %s", doc.ID, m.ExpectedStage))
	}

	if err := r.reviewers.InsertPending(ctx, doc.ID, doc.ReviewRound, m.NewReviewers); err != nil {
		return err
	}

	if m.Decision != nil {
		ok, err := r.reviewers.Decide(ctx, doc.ID, m.Decision)
		if err != nil {
			return err
		}
		if !ok {
			return workflow.Conflict("apply", "review assignment is no longer pending")
		}
	}

	if m.ReplaceCoExecutors {
		if err := r.executors.ReplaceCoExecutors(ctx, doc.ID, m.CoExecutorIDs); err != nil {
			return err
		}
	}
	if m.ReplaceContributors {
		if err := r.executors.ReplaceContributors(ctx, doc.ID, m.ContributorIDs); err != nil {
			return err
		}
	}

	if m.Audit != nil {
		m.Audit.DocumentID = doc.ID
		if err := r.audit.Create(ctx, m.Audit); err != nil {
			return err
		}
	}

	return nil
}
