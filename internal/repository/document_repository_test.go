package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/models"
	"docflow/internal/service"
	"docflow/internal/workflow"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var documentColumns = []string{
	"id", "type", "stage", "title", "content", "source", "kartoteka",
	"author_id", "author_name", "main_executor_id", "main_executor_name", "internal_assignee_id", "internal_assignee_name",
	"deadline", "stage_deadline", "review_round", "created_at", "updated_at",
}

func TestApply_StageGuardConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents")).
		WithArgs(int64(5), "SIGNATURE", nil, nil, nil, nil, 1, "FINAL_REVIEW").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx service.StoreTx) error {
		return tx.Apply(context.Background(), &service.Mutation{
			Document:      &models.Document{ID: 5, Stage: models.StageSignature, ReviewRound: 1},
			ExpectedStage: models.StageFinalReview,
		})
	})

	assert.True(t, errors.Is(err, workflow.ErrConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_DecisionGuardConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentRepository(db)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_reviewers")).
		WithArgs(int64(5), 2, int64(3), "APPROVED", nil, at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx service.StoreTx) error {
		return tx.Apply(context.Background(), &service.Mutation{
			Document:      &models.Document{ID: 5, Stage: models.StageFinalReview, ReviewRound: 2},
			ExpectedStage: models.StageFinalReview,
			Decision:      &service.ReviewerDecision{UserID: 3, Round: 2, Status: models.ReviewApproved, At: at},
		})
	})

	assert.True(t, errors.Is(err, workflow.ErrConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_FullMutation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentRepository(db)
	from, to := models.StageRevisionRequested, models.StageFinalReview
	userID := int64(9)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_reviewers")).
		WithArgs(int64(5), 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM document_co_executors")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM document_contributors")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_contributors")).
		WithArgs(int64(5), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO document_audit_logs")).
		WithArgs(int64(5), userID, "submit_for_review", "REVISION_REQUESTED", "FINAL_REVIEW", "round=2", "10.0.0.1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(77), time.Now()))
	mock.ExpectCommit()

	entry := &models.AuditLog{UserID: &userID, Action: "submit_for_review", FromStage: &from, ToStage: &to, Details: "round=2", IPAddress: "10.0.0.1"}
	err := repo.WithinTx(context.Background(), func(tx service.StoreTx) error {
		return tx.Apply(context.Background(), &service.Mutation{
			Document:            &models.Document{ID: 5, Stage: models.StageFinalReview, ReviewRound: 2},
			ExpectedStage:       models.StageRevisionRequested,
			NewReviewers:        []int64{3, 4, 7},
			ReplaceCoExecutors:  true,
			CoExecutorIDs:       []int64{},
			ReplaceContributors: true,
			ContributorIDs:      []int64{8},
			Audit:               entry,
		})
	})

	require.NoError(t, err)
	assert.Equal(t, int64(77), entry.ID)
	assert.Equal(t, int64(5), entry.DocumentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadDocument(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE d.id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(documentColumns).AddRow(
			int64(1), "OUTGOING", "FINAL_REVIEW", "Javob xati", "", "Bank ichki tizimi", nil,
			int64(9), "Author", int64(5), "Head", nil, nil,
			nil, nil, int64(1), now, now,
		))
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_co_executors")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name"}).AddRow(int64(7), "Lawyer"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_contributors")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_reviewers")).
		WithArgs(int64(1), 1).
		WillReturnRows(sqlmock.NewRows([]string{"document_id", "round", "user_id", "name", "status", "comment", "decided_at", "created_at", "updated_at"}).
			AddRow(int64(1), int64(1), int64(3), "Bank One", "PENDING", nil, nil, now, now))

	doc, err := repo.LoadDocument(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, models.DocumentTypeOutgoing, doc.Type)
	assert.Equal(t, models.StageFinalReview, doc.Stage)
	assert.Equal(t, "Bank ichki tizimi", doc.Source)
	assert.Equal(t, "Author", doc.Author.Name)
	assert.Equal(t, "Head", doc.MainExecutor.Name)
	assert.Nil(t, doc.InternalAssigneeID)
	assert.Equal(t, []int64{7}, doc.CoExecutorIDs())
	assert.Empty(t, doc.Contributors)
	require.Len(t, doc.Reviewers, 1)
	assert.Equal(t, models.ReviewPending, doc.Reviewers[0].Status)
	assert.Equal(t, "Bank One", doc.Reviewers[0].User.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadDocument_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE d.id = $1")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(documentColumns))

	doc, err := repo.LoadDocument(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDocuments_Filter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE d.stage = ANY($1) OR EXISTS")).
		WithArgs(sqlmock.AnyArg(), int64(2)).
		WillReturnRows(sqlmock.NewRows(documentColumns))

	docs, err := repo.ListDocuments(context.Background(), service.DocumentFilter{
		Stages:            []models.Stage{models.StageResolution},
		PendingReviewerID: func() *int64 { id := int64(2); return &id }(),
	})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NotNil(t, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDocuments_EmptyScope(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentRepository(db)

	docs, err := repo.ListDocuments(context.Background(), service.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDocument(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentRepository(db)
	now := time.Now()
	to := models.StageDrafting

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO documents")).
		WithArgs("OUTGOING", "DRAFTING", "Javob xati", "", "Bank ichki tizimi", nil, int64(9), nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(12), now, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO document_audit_logs")).
		WithArgs(int64(12), nil, "create", nil, "DRAFTING", nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))
	mock.ExpectCommit()

	doc := &models.Document{
		Type:     models.DocumentTypeOutgoing,
		Stage:    models.StageDrafting,
		Title:    "Javob xati",
		Source:   models.OutgoingSource,
		AuthorID: 9,
	}
	err := repo.CreateDocument(context.Background(), doc, &models.AuditLog{Action: "create", ToStage: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(12), doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
