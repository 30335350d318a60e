package service

import (
	"context"
	"time"

	"docflow/internal/models"
)

// UserFilter selects users from the directory. Roles and Departments are
// alternatives (a user matching either is selected); IDs, when set,
// restricts the result to those users.
type UserFilter struct {
	IDs         []int64
	Roles       []models.Role
	Departments []string
}

// UserDirectory is the read-only view of the organisation's users
type UserDirectory interface {
	// GetUser returns nil, nil when the user does not exist
	GetUser(ctx context.Context, id int64) (*models.User, error)
	FindUsers(ctx context.Context, filter UserFilter) ([]models.User, error)
}

// DocumentFilter selects documents for listing. Unless All is set, a
// document is selected when it matches any of the populated conditions.
type DocumentFilter struct {
	All                      bool
	Stages                   []models.Stage
	MainExecutorDepartmentID *int64
	InternalAssigneeID       *int64
	PendingReviewerID        *int64
}

// DocumentStore persists documents and their sub-entities
type DocumentStore interface {
	// LoadDocument returns the snapshot of a document, or nil, nil when missing
	LoadDocument(ctx context.Context, id int64) (*models.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]models.Document, error)
	// CreateDocument inserts doc, filling in its id and timestamps, together with entry
	CreateDocument(ctx context.Context, doc *models.Document, entry *models.AuditLog) error
	History(ctx context.Context, documentID int64) ([]models.AuditLog, error)
	// WithinTx runs fn in one transaction; it commits only when fn returns nil
	WithinTx(ctx context.Context, fn func(tx StoreTx) error) error
}

// StoreTx is the transactional view used by the lifecycle engine
type StoreTx interface {
	// LoadDocumentForUpdate loads and row-locks a document together with its
	// current-round reviewers; nil, nil when missing
	LoadDocumentForUpdate(ctx context.Context, id int64) (*models.Document, error)
	ListReviewers(ctx context.Context, documentID int64, round int) ([]models.ReviewerAssignment, error)
	// Apply persists m. It fails with workflow.ErrConflict when the document
	// is no longer in m.ExpectedStage or the decided assignment is no longer pending.
	Apply(ctx context.Context, m *Mutation) error
}

// ReviewerDecision records one reviewer's verdict
type ReviewerDecision struct {
	UserID  int64
	Round   int
	Status  models.ReviewStatus
	Comment *string
	At      time.Time
}

// Mutation is the complete set of changes one action makes to a document
type Mutation struct {
	// Document carries the next values of the scalar columns: stage,
	// main executor, internal assignee, deadlines and review round
	Document      *models.Document
	ExpectedStage models.Stage

	// NewReviewers are assigned, pending, to Document.ReviewRound
	NewReviewers []int64
	Decision     *ReviewerDecision

	// Co-executor and contributor sets are replaced when the flag is set
	ReplaceCoExecutors  bool
	CoExecutorIDs       []int64
	ReplaceContributors bool
	ContributorIDs      []int64

	Audit *models.AuditLog
}
