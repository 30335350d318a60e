package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"docflow/internal/models"
	"docflow/internal/service"
	"docflow/internal/workflow"
)

// MemDirectory is an in-memory user directory
type MemDirectory struct {
	mu    sync.RWMutex
	users map[int64]models.User
	// Err, when set, is returned by every lookup
	Err error
}

// NewMemDirectory creates a directory holding users
func NewMemDirectory(users ...models.User) *MemDirectory {
	d := &MemDirectory{users: make(map[int64]models.User)}
	for _, u := range users {
		d.Add(u)
	}
	return d
}

// Add inserts or replaces a user
func (d *MemDirectory) Add(u models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

// GetUser returns the user with id, or nil when missing
func (d *MemDirectory) GetUser(_ context.Context, id int64) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.Err != nil {
		return nil, d.Err
	}
	u, ok := d.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// FindUsers returns matching users ordered by id
func (d *MemDirectory) FindUsers(_ context.Context, f service.UserFilter) ([]models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.Err != nil {
		return nil, d.Err
	}
	out := []models.User{}
	for _, u := range d.users {
		if len(f.IDs) > 0 && !slices.Contains(f.IDs, u.ID) {
			continue
		}
		if len(f.Roles) > 0 || len(f.Departments) > 0 {
			if !slices.Contains(f.Roles, u.Role) && !slices.Contains(f.Departments, u.Department) {
				continue
			}
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *MemDirectory) ref(id int64) *models.UserRef {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return &models.UserRef{ID: id}
	}
	return &models.UserRef{ID: u.ID, Name: u.Name}
}

type memDocument struct {
	doc          models.Document
	reviewers    []models.ReviewerAssignment
	coExecutors  []int64
	contributors []int64
}

func (m *memDocument) clone() *memDocument {
	c := *m
	c.reviewers = slices.Clone(m.reviewers)
	c.coExecutors = slices.Clone(m.coExecutors)
	c.contributors = slices.Clone(m.contributors)
	return &c
}

// MemStore is an in-memory document store. Transactions are serialized and
// roll back when the callback fails.
type MemStore struct {
	mu     sync.Mutex
	users  *MemDirectory
	nextID int64
	docs   map[int64]*memDocument
	audit  []models.AuditLog
	now    func() time.Time

	// ApplyErr, when set, makes Apply fail after validating its guards
	ApplyErr error
}

// NewMemStore creates an empty store resolving user names through users
func NewMemStore(users *MemDirectory) *MemStore {
	return &MemStore{
		users: users,
		docs:  make(map[int64]*memDocument),
		now:   time.Now,
	}
}

// Seed stores doc as-is (keeping its stage) and returns its id
func (s *MemStore) Seed(doc models.Document) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	doc.ID = s.nextID
	doc.CreatedAt = s.now()
	doc.UpdatedAt = doc.CreatedAt
	md := &memDocument{doc: doc, coExecutors: doc.CoExecutorIDs(), contributors: doc.ContributorIDs()}
	for _, r := range doc.Reviewers {
		r.DocumentID = doc.ID
		md.reviewers = append(md.reviewers, r)
	}
	s.docs[doc.ID] = md
	return doc.ID
}

// AuditEntries returns every audit entry written so far
func (s *MemStore) AuditEntries() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.audit)
}

// LoadDocument returns a document snapshot
func (s *MemStore) LoadDocument(_ context.Context, id int64) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(id), nil
}

// ListDocuments returns documents matching f, newest first
func (s *MemStore) ListDocuments(_ context.Context, f service.DocumentFilter) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Document{}
	for id, md := range s.docs {
		if f.All || s.matches(md, f) {
			out = append(out, *s.snapshot(id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemStore) matches(md *memDocument, f service.DocumentFilter) bool {
	d := md.doc
	if slices.Contains(f.Stages, d.Stage) {
		return true
	}
	if f.MainExecutorDepartmentID != nil && d.MainExecutorID != nil {
		if u, _ := s.users.GetUser(context.Background(), *d.MainExecutorID); u != nil &&
			u.DepartmentID != nil && *u.DepartmentID == *f.MainExecutorDepartmentID {
			return true
		}
	}
	if f.InternalAssigneeID != nil && d.InternalAssigneeID != nil && *d.InternalAssigneeID == *f.InternalAssigneeID {
		return true
	}
	if f.PendingReviewerID != nil {
		for _, r := range md.reviewers {
			if r.Round == d.ReviewRound && r.UserID == *f.PendingReviewerID && r.Status == models.ReviewPending {
				return true
			}
		}
	}
	return false
}

// CreateDocument inserts doc and its creation audit entry
func (s *MemStore) CreateDocument(_ context.Context, doc *models.Document, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	doc.ID = s.nextID
	doc.CreatedAt = s.now()
	doc.UpdatedAt = doc.CreatedAt
	s.docs[doc.ID] = &memDocument{doc: *doc}
	if entry != nil {
		entry.DocumentID = doc.ID
		s.appendAudit(*entry)
	}
	return nil
}

// History returns the audit trail of a document, oldest first
func (s *MemStore) History(_ context.Context, documentID int64) ([]models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.AuditLog{}
	for _, e := range s.audit {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// WithinTx runs fn with exclusive access and restores the previous state when it fails
func (s *MemStore) WithinTx(_ context.Context, fn func(tx service.StoreTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make(map[int64]*memDocument, len(s.docs))
	for id, md := range s.docs {
		docs[id] = md.clone()
	}
	audit := slices.Clone(s.audit)

	if err := fn(&memTx{s: s}); err != nil {
		s.docs = docs
		s.audit = audit
		return err
	}
	return nil
}

type memTx struct {
	s *MemStore
}

func (t *memTx) LoadDocumentForUpdate(_ context.Context, id int64) (*models.Document, error) {
	return t.s.snapshot(id), nil
}

func (t *memTx) ListReviewers(_ context.Context, documentID int64, round int) ([]models.ReviewerAssignment, error) {
	md, ok := t.s.docs[documentID]
	if !ok {
		return []models.ReviewerAssignment{}, nil
	}
	return t.s.round(md, round), nil
}

func (t *memTx) Apply(_ context.Context, m *service.Mutation) error {
	s := t.s
	next := m.Document
	md, ok := s.docs[next.ID]
	if !ok || md.doc.Stage != m.ExpectedStage {
		return workflow.Conflict("apply", "document stage changed concurrently")
	}

	if m.Decision != nil {
		decided := false
		for i := range md.reviewers {
			r := &md.reviewers[i]
			if r.Round == m.Decision.Round && r.UserID == m.Decision.UserID && r.Status == models.ReviewPending {
				at := m.Decision.At
				r.Status = m.Decision.Status
				r.Comment = m.Decision.Comment
				r.DecidedAt = &at
				r.UpdatedAt = at
				decided = true
			}
		}
		if !decided {
			return workflow.Conflict("apply", "review assignment is no longer pending")
		}
	}

	if s.ApplyErr != nil {
		return s.ApplyErr
	}

	md.doc.Stage = next.Stage
	md.doc.MainExecutorID = next.MainExecutorID
	md.doc.InternalAssigneeID = next.InternalAssigneeID
	md.doc.Deadline = next.Deadline
	md.doc.StageDeadline = next.StageDeadline
	md.doc.ReviewRound = next.ReviewRound
	md.doc.UpdatedAt = s.now()

	for _, uid := range m.NewReviewers {
		exists := false
		for _, r := range md.reviewers {
			if r.Round == next.ReviewRound && r.UserID == uid {
				exists = true
			}
		}
		if !exists {
			md.reviewers = append(md.reviewers, models.ReviewerAssignment{
				DocumentID: next.ID,
				Round:      next.ReviewRound,
				UserID:     uid,
				Status:     models.ReviewPending,
				CreatedAt:  s.now(),
				UpdatedAt:  s.now(),
			})
		}
	}

	if m.ReplaceCoExecutors {
		md.coExecutors = slices.Clone(m.CoExecutorIDs)
	}
	if m.ReplaceContributors {
		md.contributors = slices.Clone(m.ContributorIDs)
	}

	if m.Audit != nil {
		s.appendAudit(*m.Audit)
	}
	return nil
}

func (s *MemStore) appendAudit(e models.AuditLog) {
	e.ID = int64(len(s.audit) + 1)
	e.CreatedAt = s.now()
	s.audit = append(s.audit, e)
}

func (s *MemStore) round(md *memDocument, round int) []models.ReviewerAssignment {
	out := []models.ReviewerAssignment{}
	for _, r := range md.reviewers {
		if r.Round == round {
			r.User = s.users.ref(r.UserID)
			out = append(out, r)
		}
	}
	return out
}

func (s *MemStore) snapshot(id int64) *models.Document {
	md, ok := s.docs[id]
	if !ok {
		return nil
	}
	doc := md.doc
	doc.Author = s.users.ref(doc.AuthorID)
	if doc.MainExecutorID != nil {
		doc.MainExecutor = s.users.ref(*doc.MainExecutorID)
	}
	if doc.InternalAssigneeID != nil {
		doc.InternalAssignee = s.users.ref(*doc.InternalAssigneeID)
	}
	doc.CoExecutors = s.refs(md.coExecutors)
	doc.Contributors = s.refs(md.contributors)
	doc.Reviewers = s.round(md, doc.ReviewRound)
	return &doc
}

func (s *MemStore) refs(ids []int64) []models.UserRef {
	out := make([]models.UserRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.users.ref(id))
	}
	return out
}

// String summarizes the store for test failure messages
func (s *MemStore) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("MemStore{documents: %d, audit: %d}", len(s.docs), len(s.audit))
}
