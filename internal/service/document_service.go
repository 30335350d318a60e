package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docflow/internal/locker"
	"docflow/internal/models"
	"docflow/internal/workflow"
	"docflow/pkg/validator"
)

// DefaultRejectPlaceholder is stored when a rejection carries no comment
const DefaultRejectPlaceholder = "Izohsiz"

// Options tunes the lifecycle engine
type Options struct {
	// StageDeadline is applied to every stage change; zero clears the stage deadline instead
	StageDeadline     time.Duration
	RejectPlaceholder string
	Now               func() time.Time
}

// CreateIncomingInput is the payload for registering an incoming letter
type CreateIncomingInput struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Source    string `json:"source"`
	Kartoteka string `json:"kartoteka"`
}

// CreateOutgoingInput is the payload for drafting an outgoing letter
type CreateOutgoingInput struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Kartoteka string `json:"kartoteka"`
}

// UpdateExecutorsInput changes a document's executors. A nil slice leaves the
// set untouched; an empty slice clears it.
type UpdateExecutorsInput struct {
	MainExecutorID *int64  `json:"main_executor_id,omitempty"`
	CoExecutorIDs  []int64 `json:"co_executor_ids"`
	ContributorIDs []int64 `json:"contributor_ids"`
}

// UpdateDeadlineInput changes a document's deadlines; only supplied fields change
type UpdateDeadlineInput struct {
	Deadline      *time.Time `json:"deadline,omitempty"`
	StageDeadline *time.Time `json:"stage_deadline,omitempty"`
}

// DocumentService is the lifecycle engine. Every mutating operation runs
// under a per-document lock inside one store transaction and returns the
// fresh snapshot of the document.
type DocumentService struct {
	store      DocumentStore
	users      UserDirectory
	locker     locker.Locker
	authorizer *workflow.Authorizer
	reviewers  *ReviewerService
	audit      *AuditService
	opts       Options
}

// NewDocumentService creates a new document service
func NewDocumentService(
	store DocumentStore,
	users UserDirectory,
	lk locker.Locker,
	reviewers *ReviewerService,
	audit *AuditService,
	opts Options,
) *DocumentService {
	if opts.RejectPlaceholder == "" {
		opts.RejectPlaceholder = DefaultRejectPlaceholder
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &DocumentService{
		store:      store,
		users:      users,
		locker:     lk,
		authorizer: workflow.NewAuthorizer(),
		reviewers:  reviewers,
		audit:      audit,
		opts:       opts,
	}
}

// planFunc fills in the mutation for an already authorized action and
// returns the audit details
type planFunc func(ctx context.Context, doc *models.Document, m *Mutation) (string, error)

// CreateIncoming registers a new incoming document in PendingRegistration
func (s *DocumentService) CreateIncoming(ctx context.Context, actor *models.User, in CreateIncomingInput) (*models.Document, error) {
	in.Title = validator.SanitizeString(in.Title)
	in.Source = validator.SanitizeString(in.Source)
	in.Kartoteka = validator.SanitizeString(in.Kartoteka)
	if err := validatePayload("create_incoming", createIncomingSchema, &in); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, &models.Document{
		Type:      models.DocumentTypeIncoming,
		Title:     in.Title,
		Content:   in.Content,
		Source:    in.Source,
		Kartoteka: in.Kartoteka,
	})
}

// CreateOutgoing drafts a new outgoing document
func (s *DocumentService) CreateOutgoing(ctx context.Context, actor *models.User, in CreateOutgoingInput) (*models.Document, error) {
	in.Title = validator.SanitizeString(in.Title)
	in.Kartoteka = validator.SanitizeString(in.Kartoteka)
	if err := validatePayload("create_outgoing", createOutgoingSchema, &in); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, &models.Document{
		Type:      models.DocumentTypeOutgoing,
		Title:     in.Title,
		Content:   in.Content,
		Source:    models.OutgoingSource,
		Kartoteka: in.Kartoteka,
	})
}

func (s *DocumentService) create(ctx context.Context, actor *models.User, doc *models.Document) (*models.Document, error) {
	op := "create_" + strings.ToLower(string(doc.Type))
	if actor == nil {
		return nil, workflow.Forbidden(op, "no authenticated actor")
	}

	stage, err := workflow.InitialStage(doc.Type)
	if err != nil {
		return nil, workflow.InvalidInput(op, "type", err.Error())
	}
	doc.Stage = stage
	doc.AuthorID = actor.ID
	doc.StageDeadline = s.stageDeadline(stage)

	entry := s.audit.Entry(ctx, actor, workflow.ActionCreate, "", stage, fmt.Sprintf("type=%s", doc.Type))
	if err := s.store.CreateDocument(ctx, doc, entry); err != nil {
		return nil, s.fail(op, 0, err)
	}

	slog.Info("Document created", "document_id", doc.ID, "type", doc.Type, "stage", stage, "actor_id", actor.ID)
	return s.snapshot(ctx, op, doc.ID)
}

// GetDocument returns the snapshot of a document
func (s *DocumentService) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	return s.snapshot(ctx, "get_document", id)
}

// ListDocuments returns the documents visible to actor, newest first
func (s *DocumentService) ListDocuments(ctx context.Context, actor *models.User) ([]models.Document, error) {
	op := "list_documents"
	if actor == nil {
		return nil, workflow.Forbidden(op, "no authenticated actor")
	}
	docs, err := s.store.ListDocuments(ctx, VisibilityFilter(actor))
	if err != nil {
		return nil, s.fail(op, 0, err)
	}
	return docs, nil
}

// VisibilityFilter returns the listing scope of actor's role
func VisibilityFilter(actor *models.User) DocumentFilter {
	pending := int64Ptr(actor.ID)
	switch actor.Role {
	case models.RoleAdmin, models.RoleBankApparati:
		return DocumentFilter{All: true}
	case models.RoleBoshqaruv:
		return DocumentFilter{
			Stages:            []models.Stage{models.StageAssignment, models.StageSignature, models.StageResolution},
			PendingReviewerID: pending,
		}
	case models.RoleYordamchi:
		return DocumentFilter{
			Stages:            []models.Stage{models.StageResolution},
			PendingReviewerID: pending,
		}
	case models.RoleTarmoq:
		return DocumentFilter{
			MainExecutorDepartmentID: actor.DepartmentID,
			PendingReviewerID:        pending,
		}
	case models.RoleReviewer:
		return DocumentFilter{
			InternalAssigneeID: int64Ptr(actor.ID),
			PendingReviewerID:  pending,
		}
	default:
		return DocumentFilter{PendingReviewerID: pending}
	}
}

// History returns the audit trail of a document
func (s *DocumentService) History(ctx context.Context, id int64) ([]models.AuditLog, error) {
	return s.audit.History(ctx, id)
}

// AllowedActions returns the actions actor may currently perform on a document
func (s *DocumentService) AllowedActions(ctx context.Context, id int64, actor *models.User) ([]workflow.Action, error) {
	doc, err := s.snapshot(ctx, "allowed_actions", id)
	if err != nil {
		return nil, err
	}
	return s.authorizer.Permitted(actor, doc), nil
}

// Register moves an incoming document from PendingRegistration to Registration
func (s *DocumentService) Register(ctx context.Context, id int64, actor *models.User) (*models.Document, error) {
	return s.transition(ctx, id, actor, workflow.ActionRegister, s.advance(workflow.ActionRegister))
}

// SendToResolution hands a registered document to the board for resolution
func (s *DocumentService) SendToResolution(ctx context.Context, id int64, actor *models.User) (*models.Document, error) {
	return s.transition(ctx, id, actor, workflow.ActionSendToResolution, s.advance(workflow.ActionSendToResolution))
}

// Resolve records the board's resolution and opens executor assignment
func (s *DocumentService) Resolve(ctx context.Context, id int64, actor *models.User) (*models.Document, error) {
	return s.transition(ctx, id, actor, workflow.ActionResolve, s.advance(workflow.ActionResolve))
}

// Sign moves a fully approved document to Dispatch
func (s *DocumentService) Sign(ctx context.Context, id int64, actor *models.User) (*models.Document, error) {
	return s.transition(ctx, id, actor, workflow.ActionSign, s.advance(workflow.ActionSign))
}

// Dispatch completes a signed document
func (s *DocumentService) Dispatch(ctx context.Context, id int64, actor *models.User) (*models.Document, error) {
	return s.transition(ctx, id, actor, workflow.ActionDispatch, s.advance(workflow.ActionDispatch))
}

// Hold parks a document in OnHold
func (s *DocumentService) Hold(ctx context.Context, id int64, actor *models.User) (*models.Document, error) {
	return s.transition(ctx, id, actor, workflow.ActionHold, s.advance(workflow.ActionHold))
}

// Cancel cancels a document
func (s *DocumentService) Cancel(ctx context.Context, id int64, actor *models.User) (*models.Document, error) {
	return s.transition(ctx, id, actor, workflow.ActionCancel, s.advance(workflow.ActionCancel))
}

// Archive moves a completed document to Archived
func (s *DocumentService) Archive(ctx context.Context, id int64, actor *models.User) (*models.Document, error) {
	return s.transition(ctx, id, actor, workflow.ActionArchive, s.advance(workflow.ActionArchive))
}

// advance plans a move to the action's fixed target stage
func (s *DocumentService) advance(action workflow.Action) planFunc {
	return func(_ context.Context, _ *models.Document, m *Mutation) (string, error) {
		rule, _ := s.authorizer.Rule(action)
		m.Document.Stage = rule.Target
		return "", nil
	}
}

// SubmitForReview opens a new review round with every reviewer resolved from
// the directory and moves the document to FinalReview
func (s *DocumentService) SubmitForReview(ctx context.Context, id int64, actor *models.User) (*models.Document, error) {
	return s.transition(ctx, id, actor, workflow.ActionSubmitForReview,
		func(ctx context.Context, doc *models.Document, m *Mutation) (string, error) {
			ids, err := s.reviewers.ResolveReviewers(ctx)
			if err != nil {
				return "", err
			}
			m.Document.Stage = models.StageFinalReview
			m.Document.ReviewRound = doc.ReviewRound + 1
			m.Document.Reviewers = nil
			m.NewReviewers = ids
			return fmt.Sprintf("round=%d reviewers=%s", m.Document.ReviewRound, formatIDs(ids)), nil
		})
}

// ApproveReview records actor's approval; the last approval of the round
// moves the document to Signature
func (s *DocumentService) ApproveReview(ctx context.Context, id int64, actor *models.User) (*models.Document, error) {
	return s.transition(ctx, id, actor, workflow.ActionApproveReview,
		func(_ context.Context, doc *models.Document, m *Mutation) (string, error) {
			outcome, err := workflow.Evaluate(doc.Reviewers, actor.ID, models.ReviewApproved)
			if err != nil {
				return "", err
			}
			m.Decision = &ReviewerDecision{
				UserID: actor.ID,
				Round:  doc.ReviewRound,
				Status: models.ReviewApproved,
				At:     s.opts.Now(),
			}
			if outcome == workflow.OutcomeConsensus {
				m.Document.Stage = models.StageSignature
			}
			return fmt.Sprintf("round=%d outcome=%s", doc.ReviewRound, outcome), nil
		})
}

// RejectReview records actor's rejection and sends the document back for revision
func (s *DocumentService) RejectReview(ctx context.Context, id int64, actor *models.User, comment string) (*models.Document, error) {
	comment = validator.SanitizeString(comment)
	if err := validatePayload(string(workflow.ActionRejectReview), rejectSchema, rejectPayload{Comment: comment}); err != nil {
		return nil, err
	}
	if comment == "" {
		comment = s.opts.RejectPlaceholder
	}
	return s.transition(ctx, id, actor, workflow.ActionRejectReview,
		func(_ context.Context, doc *models.Document, m *Mutation) (string, error) {
			if _, err := workflow.Evaluate(doc.Reviewers, actor.ID, models.ReviewRejected); err != nil {
				return "", err
			}
			m.Decision = &ReviewerDecision{
				UserID:  actor.ID,
				Round:   doc.ReviewRound,
				Status:  models.ReviewRejected,
				Comment: &comment,
				At:      s.opts.Now(),
			}
			m.Document.Stage = models.StageRevisionRequested
			return fmt.Sprintf("round=%d comment=%s", doc.ReviewRound, comment), nil
		})
}

// AssignExecutor sets the main executor and moves the document to Execution
func (s *DocumentService) AssignExecutor(ctx context.Context, id int64, actor *models.User, mainExecutorID *int64) (*models.Document, error) {
	op := string(workflow.ActionAssignExecutor)
	if err := validatePayload(op, assignSchema, assignPayload{MainExecutorID: mainExecutorID}); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, actor, workflow.ActionAssignExecutor,
		func(ctx context.Context, _ *models.Document, m *Mutation) (string, error) {
			if err := s.requireUsers(ctx, op, *mainExecutorID); err != nil {
				return "", err
			}
			m.Document.MainExecutorID = int64Ptr(*mainExecutorID)
			m.Document.Stage = models.StageExecution
			return fmt.Sprintf("main_executor_id=%d", *mainExecutorID), nil
		})
}

// DelegateInternal sets the internal assignee of a document in Execution
func (s *DocumentService) DelegateInternal(ctx context.Context, id int64, actor *models.User, internalAssigneeID *int64) (*models.Document, error) {
	op := string(workflow.ActionDelegateInternal)
	if err := validatePayload(op, delegateSchema, delegatePayload{InternalAssigneeID: internalAssigneeID}); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, actor, workflow.ActionDelegateInternal,
		func(ctx context.Context, _ *models.Document, m *Mutation) (string, error) {
			if err := s.requireUsers(ctx, op, *internalAssigneeID); err != nil {
				return "", err
			}
			m.Document.InternalAssigneeID = int64Ptr(*internalAssigneeID)
			return fmt.Sprintf("internal_assignee_id=%d", *internalAssigneeID), nil
		})
}

// UpdateExecutors replaces the main executor, co-executors and contributors
func (s *DocumentService) UpdateExecutors(ctx context.Context, id int64, actor *models.User, in UpdateExecutorsInput) (*models.Document, error) {
	op := string(workflow.ActionUpdateExecutors)
	if err := validatePayload(op, executorsSchema, &in); err != nil {
		return nil, err
	}

	return s.transition(ctx, id, actor, workflow.ActionUpdateExecutors,
		func(ctx context.Context, _ *models.Document, m *Mutation) (string, error) {
			var referenced []int64
			var details []string
			if in.MainExecutorID != nil {
				referenced = append(referenced, *in.MainExecutorID)
				m.Document.MainExecutorID = int64Ptr(*in.MainExecutorID)
				details = append(details, fmt.Sprintf("main_executor_id=%d", *in.MainExecutorID))
			}
			if in.CoExecutorIDs != nil {
				m.ReplaceCoExecutors = true
				m.CoExecutorIDs = append([]int64{}, uniqueIDs(in.CoExecutorIDs)...)
				referenced = append(referenced, m.CoExecutorIDs...)
				details = append(details, "co_executor_ids="+formatIDs(m.CoExecutorIDs))
			}
			if in.ContributorIDs != nil {
				m.ReplaceContributors = true
				m.ContributorIDs = append([]int64{}, uniqueIDs(in.ContributorIDs)...)
				referenced = append(referenced, m.ContributorIDs...)
				details = append(details, "contributor_ids="+formatIDs(m.ContributorIDs))
			}
			if err := s.requireUsers(ctx, op, referenced...); err != nil {
				return "", err
			}
			return strings.Join(details, " "), nil
		})
}

// UpdateDeadline changes the overall and/or stage deadline of a document
func (s *DocumentService) UpdateDeadline(ctx context.Context, id int64, actor *models.User, in UpdateDeadlineInput) (*models.Document, error) {
	op := string(workflow.ActionUpdateDeadline)
	if err := validatePayload(op, deadlineSchema, &in); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, actor, workflow.ActionUpdateDeadline,
		func(_ context.Context, _ *models.Document, m *Mutation) (string, error) {
			var details []string
			if in.Deadline != nil {
				d := in.Deadline.UTC()
				m.Document.Deadline = &d
				details = append(details, "deadline="+d.Format(time.RFC3339))
			}
			if in.StageDeadline != nil {
				d := in.StageDeadline.UTC()
				m.Document.StageDeadline = &d
				details = append(details, "stage_deadline="+d.Format(time.RFC3339))
			}
			return strings.Join(details, " "), nil
		})
}

// transition runs one action: lock, load for update, authorize, plan,
// check the edge, reset the stage deadline, apply and audit, commit, reload
func (s *DocumentService) transition(ctx context.Context, id int64, actor *models.User, action workflow.Action, plan planFunc) (*models.Document, error) {
	op := string(action)

	release, err := s.locker.Lock(ctx, locker.DocumentKey(id))
	if err != nil {
		if errors.Is(err, locker.ErrLockTimeout) {
			return nil, &workflow.Error{Kind: workflow.ErrConflict, Op: op, Msg: "document is busy", Err: err}
		}
		return nil, s.fail(op, id, err)
	}
	defer release()

	var from, to models.Stage
	err = s.store.WithinTx(ctx, func(tx StoreTx) error {
		doc, err := tx.LoadDocumentForUpdate(ctx, id)
		if err != nil {
			return workflow.StorageFailure(op, err)
		}
		if doc == nil {
			return workflow.NotFound(op, "document not found")
		}

		if err := s.authorizer.Authorize(actor, doc, action); err != nil {
			return err
		}

		next := *doc
		m := &Mutation{Document: &next, ExpectedStage: doc.Stage}
		details, err := plan(ctx, doc, m)
		if err != nil {
			return err
		}

		if next.Stage != doc.Stage {
			if !workflow.CanTransition(doc.Stage, next.Stage) {
				return workflow.InvalidState(op, fmt.Sprintf("no edge from %s to %s", doc.Stage, next.Stage))
			}
			next.StageDeadline = s.stageDeadline(next.Stage)
		}

		m.Audit = s.audit.Entry(ctx, actor, action, doc.Stage, next.Stage, details)
		m.Audit.DocumentID = id
		if err := tx.Apply(ctx, m); err != nil {
			if workflow.KindOf(err) != nil {
				return err
			}
			return workflow.StorageFailure(op, err)
		}

		from, to = doc.Stage, next.Stage
		return nil
	})
	if err != nil {
		return nil, s.fail(op, id, err)
	}

	slog.Info("Document transition",
		"document_id", id,
		"action", action,
		"from", from,
		"to", to,
		"actor_id", actor.ID,
	)
	return s.snapshot(ctx, op, id)
}

func (s *DocumentService) snapshot(ctx context.Context, op string, id int64) (*models.Document, error) {
	doc, err := s.store.LoadDocument(ctx, id)
	if err != nil {
		return nil, s.fail(op, id, err)
	}
	if doc == nil {
		return nil, workflow.NotFound(op, "document not found")
	}
	return doc, nil
}

// fail classifies err and logs storage failures
func (s *DocumentService) fail(op string, id int64, err error) error {
	if workflow.KindOf(err) == nil {
		err = workflow.StorageFailure(op, err)
	}
	if errors.Is(err, workflow.ErrStorageFailure) {
		slog.Error("Document operation failed", "op", op, "document_id", id, "error", err)
	}
	return err
}

// stageDeadline returns the deadline a document gets on entering stage
func (s *DocumentService) stageDeadline(stage models.Stage) *time.Time {
	if s.opts.StageDeadline <= 0 || workflow.IsTerminal(stage) {
		return nil
	}
	d := s.opts.Now().Add(s.opts.StageDeadline).UTC()
	return &d
}

// requireUsers fails with ErrNotFound unless every id exists in the directory
func (s *DocumentService) requireUsers(ctx context.Context, op string, ids ...int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	users, err := s.users.FindUsers(ctx, UserFilter{IDs: ids})
	if err != nil {
		return workflow.StorageFailure(op, err)
	}
	found := make(map[int64]bool, len(users))
	for _, u := range users {
		found[u.ID] = true
	}
	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return workflow.NotFound(op, "users not found: "+formatIDs(missing))
	}
	return nil
}


