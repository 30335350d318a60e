package handlers

import (
	"context"
	"net/http"

	"docflow/internal/middleware"
	"docflow/internal/models"
	"docflow/internal/service"
	"docflow/internal/workflow"
)

// DocumentHandler exposes the correspondence lifecycle over HTTP
type DocumentHandler struct {
	documentService *service.DocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
	}
}

// AssignExecutorRequest is the body of the assign endpoint
type AssignExecutorRequest struct {
	MainExecutorID *int64 `json:"main_executor_id"`
}

// DelegateInternalRequest is the body of the delegate endpoint
type DelegateInternalRequest struct {
	InternalAssigneeID *int64 `json:"internal_assignee_id"`
}

// RejectReviewRequest is the body of the reject endpoint
type RejectReviewRequest struct {
	Comment string `json:"comment"`
}

// AllowedActionsResponse lists what the caller may currently do
type AllowedActionsResponse struct {
	DocumentID int64             `json:"document_id"`
	Actions    []workflow.Action `json:"actions"`
}

type stepFunc func(ctx context.Context, id int64, actor *models.User) (*models.Document, error)

// step runs a payload-free lifecycle operation on the document in the path
func (h *DocumentHandler) step(w http.ResponseWriter, r *http.Request, fn stepFunc) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := parseDocumentID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidDocumentID)
		return
	}

	doc, err := fn(r.Context(), id, actor)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, doc)
}

// withBody decodes the request body into T and hands it to fn
func withBody[T any](h *DocumentHandler, w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64, actor *models.User, body T) (*models.Document, error)) {
	var body T
	if err := decodeJSON(r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	h.step(w, r, func(ctx context.Context, id int64, actor *models.User) (*models.Document, error) {
		return fn(ctx, id, actor, body)
	})
}

// ListDocuments returns the documents visible to the caller
// @Summary List correspondence
// @Description List the documents visible to the caller's role, newest first
// @Tags Correspondence
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Document
// @Failure 401 {object} ErrorResponse
// @Router /correspondences [get]
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	docs, err := h.documentService.ListDocuments(r.Context(), actor)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, docs)
}

// GetDocument returns a document snapshot
// @Summary Get correspondence
// @Tags Correspondence
// @Security BearerAuth
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 404 {object} ErrorResponse
// @Router /correspondences/{id} [get]
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, func(ctx context.Context, id int64, _ *models.User) (*models.Document, error) {
		return h.documentService.GetDocument(ctx, id)
	})
}

// GetHistory returns the audit trail of a document
// @Summary Get correspondence history
// @Description Audit trail, oldest entry first. Admin, Boshqaruv and Bank apparati only.
// @Tags Correspondence
// @Security BearerAuth
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {array} models.AuditLog
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /correspondences/{id}/history [get]
func (h *DocumentHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDocumentID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidDocumentID)
		return
	}

	history, err := h.documentService.History(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, history)
}

// GetAllowedActions returns the actions the caller may perform now
// @Summary List allowed actions
// @Tags Correspondence
// @Security BearerAuth
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} AllowedActionsResponse
// @Failure 404 {object} ErrorResponse
// @Router /correspondences/{id}/actions [get]
func (h *DocumentHandler) GetAllowedActions(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}
	id, ok := parseDocumentID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidDocumentID)
		return
	}

	actions, err := h.documentService.AllowedActions(r.Context(), id, actor)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, AllowedActionsResponse{DocumentID: id, Actions: actions})
}

// CreateIncoming registers an incoming letter
// @Summary Create incoming correspondence
// @Tags Correspondence
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body service.CreateIncomingInput true "Letter"
// @Success 201 {object} models.Document
// @Failure 400 {object} ErrorResponse
// @Router /correspondences/incoming [post]
func (h *DocumentHandler) CreateIncoming(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var in service.CreateIncomingInput
	if err := decodeJSON(r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	doc, err := h.documentService.CreateIncoming(r.Context(), actor, in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, doc)
}

// CreateOutgoing drafts an outgoing letter
// @Summary Create outgoing correspondence
// @Tags Correspondence
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body service.CreateOutgoingInput true "Letter"
// @Success 201 {object} models.Document
// @Failure 400 {object} ErrorResponse
// @Router /correspondences/outgoing [post]
func (h *DocumentHandler) CreateOutgoing(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var in service.CreateOutgoingInput
	if err := decodeJSON(r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	doc, err := h.documentService.CreateOutgoing(r.Context(), actor, in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, doc)
}

// Register moves an incoming letter into registration
// @Summary Register correspondence
// @Tags Correspondence
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /correspondences/{id}/register [post]
func (h *DocumentHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.documentService.Register)
}

// SendToResolution hands a registered letter to the board
// @Summary Send to resolution
// @Tags Correspondence
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /correspondences/{id}/send-to-resolution [post]
func (h *DocumentHandler) SendToResolution(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.documentService.SendToResolution)
}

// Resolve records the board resolution
// @Summary Resolve correspondence
// @Tags Correspondence
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /correspondences/{id}/resolve [post]
func (h *DocumentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.documentService.Resolve)
}

// SubmitForReview opens a new review round
// @Summary Submit for review
// @Tags Review
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "No reviewers configured"
// @Failure 409 {object} ErrorResponse
// @Router /correspondences/{id}/submit-review [post]
func (h *DocumentHandler) SubmitForReview(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.documentService.SubmitForReview)
}

// ApproveReview records the caller's approval in the current round
// @Summary Approve review
// @Tags Review
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 404 {object} ErrorResponse "Caller is not a reviewer of this round"
// @Failure 409 {object} ErrorResponse
// @Router /correspondences/{id}/approve-review [post]
func (h *DocumentHandler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.documentService.ApproveReview)
}

// RejectReview records the caller's rejection and returns the draft for revision
// @Summary Reject review
// @Tags Review
// @Security BearerAuth
// @Accept json
// @Param id path int true "Document ID"
// @Param body body RejectReviewRequest false "Optional comment"
// @Success 200 {object} models.Document
// @Failure 404 {object} ErrorResponse "Caller is not a reviewer of this round"
// @Failure 409 {object} ErrorResponse
// @Router /correspondences/{id}/reject-review [post]
func (h *DocumentHandler) RejectReview(w http.ResponseWriter, r *http.Request) {
	withBody(h, w, r, func(ctx context.Context, id int64, actor *models.User, body RejectReviewRequest) (*models.Document, error) {
		return h.documentService.RejectReview(ctx, id, actor, body.Comment)
	})
}

// AssignExecutor sets the main executor and starts execution
// @Summary Assign main executor
// @Tags Executors
// @Security BearerAuth
// @Accept json
// @Param id path int true "Document ID"
// @Param body body AssignExecutorRequest true "Executor"
// @Success 200 {object} models.Document
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /correspondences/{id}/assign [post]
func (h *DocumentHandler) AssignExecutor(w http.ResponseWriter, r *http.Request) {
	withBody(h, w, r, func(ctx context.Context, id int64, actor *models.User, body AssignExecutorRequest) (*models.Document, error) {
		return h.documentService.AssignExecutor(ctx, id, actor, body.MainExecutorID)
	})
}

// DelegateInternal hands the work to an employee of the executor's department
// @Summary Delegate internally
// @Tags Executors
// @Security BearerAuth
// @Accept json
// @Param id path int true "Document ID"
// @Param body body DelegateInternalRequest true "Assignee"
// @Success 200 {object} models.Document
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /correspondences/{id}/delegate [post]
func (h *DocumentHandler) DelegateInternal(w http.ResponseWriter, r *http.Request) {
	withBody(h, w, r, func(ctx context.Context, id int64, actor *models.User, body DelegateInternalRequest) (*models.Document, error) {
		return h.documentService.DelegateInternal(ctx, id, actor, body.InternalAssigneeID)
	})
}

// Sign records the board signature
// @Summary Sign correspondence
// @Tags Correspondence
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /correspondences/{id}/sign [post]
func (h *DocumentHandler) Sign(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.documentService.Sign)
}

// Dispatch sends the signed letter out and completes it
// @Summary Dispatch correspondence
// @Tags Correspondence
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /correspondences/{id}/dispatch [post]
func (h *DocumentHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.documentService.Dispatch)
}

// Hold parks a document
// @Summary Put correspondence on hold
// @Tags Administration
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /correspondences/{id}/hold [post]
func (h *DocumentHandler) Hold(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.documentService.Hold)
}

// Cancel withdraws a document
// @Summary Cancel correspondence
// @Tags Administration
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /correspondences/{id}/cancel [post]
func (h *DocumentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.documentService.Cancel)
}

// Archive archives a completed document
// @Summary Archive correspondence
// @Tags Administration
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /correspondences/{id}/archive [post]
func (h *DocumentHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.documentService.Archive)
}

// UpdateDeadline changes the overall or stage deadline
// @Summary Update deadlines
// @Tags Administration
// @Security BearerAuth
// @Accept json
// @Param id path int true "Document ID"
// @Param body body service.UpdateDeadlineInput true "Deadlines"
// @Success 200 {object} models.Document
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /correspondences/{id}/deadline [put]
func (h *DocumentHandler) UpdateDeadline(w http.ResponseWriter, r *http.Request) {
	withBody(h, w, r, h.documentService.UpdateDeadline)
}

// UpdateExecutors replaces the main executor, co-executors or contributors
// @Summary Update executors
// @Tags Executors
// @Security BearerAuth
// @Accept json
// @Param id path int true "Document ID"
// @Param body body service.UpdateExecutorsInput true "Executors"
// @Success 200 {object} models.Document
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Unknown user"
// @Router /correspondences/{id}/executors [put]
func (h *DocumentHandler) UpdateExecutors(w http.ResponseWriter, r *http.Request) {
	withBody(h, w, r, h.documentService.UpdateExecutors)
}
