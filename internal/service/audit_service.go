package service

import (
	"context"

	"docflow/internal/models"
	"docflow/internal/workflow"
)

type requestMetaKey struct{}

// RequestMeta describes the client a request came from
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// WithRequestMeta attaches client information recorded in the audit trail
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the client information attached to ctx
func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// AuditService builds and reads a document's audit trail
type AuditService struct {
	store DocumentStore
}

// NewAuditService creates a new audit service
func NewAuditService(store DocumentStore) *AuditService {
	return &AuditService{
		store: store,
	}
}

// Entry builds an audit entry for an action performed by actor.
// The entry is persisted by the store together with the change it records.
func (s *AuditService) Entry(ctx context.Context, actor *models.User, action workflow.Action, from, to models.Stage, details string) *models.AuditLog {
	meta := RequestMetaFrom(ctx)
	entry := &models.AuditLog{
		Action:    string(action),
		Details:   details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if actor != nil {
		id, name := actor.ID, actor.Name
		entry.UserID = &id
		entry.UserName = &name
	}
	if from != "" {
		entry.FromStage = &from
	}
	if to != "" {
		entry.ToStage = &to
	}
	return entry
}

// History returns the audit trail of a document, oldest first
func (s *AuditService) History(ctx context.Context, documentID int64) ([]models.AuditLog, error) {
	op := "history"
	doc, err := s.store.LoadDocument(ctx, documentID)
	if err != nil {
		return nil, workflow.StorageFailure(op, err)
	}
	if doc == nil {
		return nil, workflow.NotFound(op, "document not found")
	}

	entries, err := s.store.History(ctx, documentID)
	if err != nil {
		return nil, workflow.StorageFailure(op, err)
	}
	return entries, nil
}
