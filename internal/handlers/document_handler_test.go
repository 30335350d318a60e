package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/auth"
	"docflow/internal/config"
	"docflow/internal/handlers"
	"docflow/internal/locker"
	"docflow/internal/middleware"
	"docflow/internal/models"
	"docflow/internal/service"
	"docflow/internal/testutil"
	"docflow/internal/workflow"
)

var (
	legal = int64(11)

	admin    = models.User{ID: 1, Name: "Admin", Role: models.RoleAdmin}
	board    = models.User{ID: 2, Name: "Board", Role: models.RoleBoshqaruv}
	bank1    = models.User{ID: 3, Name: "Bank One", Role: models.RoleBankApparati}
	bank2    = models.User{ID: 4, Name: "Bank Two", Role: models.RoleBankApparati}
	lawyer   = models.User{ID: 7, Name: "Lawyer", Role: models.RoleReviewer, DepartmentID: &legal, Department: "Yuridik Departament"}
	author   = models.User{ID: 9, Name: "Author", Role: models.RoleReviewer}
	stranger = models.User{ID: 10, Name: "Stranger", Role: models.RoleReviewer}
)

type server struct {
	mux   *http.ServeMux
	store *testutil.MemStore
	auth  *testutil.AuthHelper
}

func newServer(t *testing.T) *server {
	t.Helper()

	dir := testutil.NewMemDirectory(admin, board, bank1, bank2, lawyer, author, stranger)
	store := testutil.NewMemStore(dir)
	svc := service.NewDocumentService(
		store,
		dir,
		locker.NewLocalLocker(time.Second),
		service.NewReviewerService(dir, service.DefaultReviewerCriteria()),
		service.NewAuditService(store),
		service.Options{},
	)

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: testutil.TestJWTSecret},
		App: config.AppConfig{Name: "docflow", Version: "test", Env: "test"},
	}
	authMw := middleware.NewAuthMiddleware(auth.NewService(&cfg.JWT), dir)

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, authMw,
		handlers.NewDocumentHandler(svc),
		handlers.NewConfigHandler(cfg, workflow.NewAuthorizer()),
	)
	return &server{mux: mux, store: store, auth: testutil.NewAuthHelper()}
}

func (s *server) do(t *testing.T, method, path string, user *models.User, body any) *testutil.TestResponse {
	t.Helper()
	req := s.auth.CreateAuthenticatedRequest(t, method, path, user, body)
	rr := testutil.NewTestResponse()
	s.mux.ServeHTTP(rr, req)
	return rr
}

func docPath(id int64, suffix string) string {
	return fmt.Sprintf("%s/%d%s", handlers.DocumentsAPIBasePath, id, suffix)
}

func TestOutgoingFlowOverHTTP(t *testing.T) {
	s := newServer(t)

	rr := s.do(t, http.MethodPost, handlers.DocumentsAPIBasePath+"/outgoing", &author, map[string]string{
		"title":   "Javob xati",
		"content": "Matn",
	})
	rr.AssertStatusCreated(t)
	var doc models.Document
	rr.Decode(t, &doc)
	assert.Equal(t, models.StageDrafting, doc.Stage)
	assert.Equal(t, models.OutgoingSource, doc.Source)
	assert.NotNil(t, doc.Reviewers)

	rr = s.do(t, http.MethodPost, docPath(doc.ID, "/submit-review"), &author, nil)
	rr.AssertStatusOK(t)
	rr.Decode(t, &doc)
	assert.Equal(t, models.StageFinalReview, doc.Stage)
	require.Len(t, doc.Reviewers, 3)

	rr = s.do(t, http.MethodPost, docPath(doc.ID, "/reject-review"), &lawyer, map[string]string{"comment": "Imzo yetishmaydi"})
	rr.AssertStatusOK(t)
	rr.Decode(t, &doc)
	assert.Equal(t, models.StageRevisionRequested, doc.Stage)

	rr = s.do(t, http.MethodPost, docPath(doc.ID, "/submit-review"), &author, nil)
	rr.AssertStatusOK(t)

	for _, u := range []*models.User{&bank1, &bank2, &lawyer} {
		rr = s.do(t, http.MethodPost, docPath(doc.ID, "/approve-review"), u, nil)
		rr.AssertStatusOK(t)
	}
	rr.Decode(t, &doc)
	assert.Equal(t, models.StageSignature, doc.Stage)

	rr = s.do(t, http.MethodPost, docPath(doc.ID, "/sign"), &board, nil)
	rr.AssertStatusOK(t)
	rr = s.do(t, http.MethodPost, docPath(doc.ID, "/dispatch"), &bank2, nil)
	rr.AssertStatusOK(t)
	rr.Decode(t, &doc)
	assert.Equal(t, models.StageCompleted, doc.Stage)

	rr = s.do(t, http.MethodGet, docPath(doc.ID, "/history"), &board, nil)
	rr.AssertStatusOK(t)
	var history []models.AuditLog
	rr.Decode(t, &history)
	assert.Len(t, history, 9)
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t)
	drafting := s.store.Seed(models.Document{Type: models.DocumentTypeOutgoing, Stage: models.StageDrafting, Title: "Xat", AuthorID: author.ID})
	completed := s.store.Seed(models.Document{Type: models.DocumentTypeOutgoing, Stage: models.StageCompleted, Title: "Xat", AuthorID: author.ID})

	tests := []struct {
		name   string
		method string
		path   string
		user   *models.User
		body   any
		status int
		field  string
	}{
		{"forbidden role", http.MethodPost, docPath(drafting, "/sign"), &author, nil, http.StatusForbidden, ""},
		{"wrong stage", http.MethodPost, docPath(drafting, "/sign"), &board, nil, http.StatusConflict, ""},
		{"terminal stage", http.MethodPost, docPath(completed, "/hold"), &admin, nil, http.StatusConflict, ""},
		{"missing document", http.MethodGet, docPath(404, ""), &admin, nil, http.StatusNotFound, ""},
		{"not a reviewer", http.MethodPost, docPath(drafting, "/approve-review"), &lawyer, nil, http.StatusConflict, ""},
		{"invalid id", http.MethodGet, handlers.DocumentsAPIBasePath + "/abc", &admin, nil, http.StatusBadRequest, ""},
		{"missing title", http.MethodPost, handlers.DocumentsAPIBasePath + "/outgoing", &author, map[string]string{"content": "x"}, http.StatusBadRequest, "title"},
		{"missing executor", http.MethodPost, docPath(drafting, "/assign"), &board, map[string]any{}, http.StatusBadRequest, "main_executor_id"},
		{"empty deadline", http.MethodPut, docPath(drafting, "/deadline"), &admin, map[string]any{}, http.StatusBadRequest, "deadline"},
		{"non-positive co-executor", http.MethodPut, docPath(drafting, "/executors"), &admin, map[string]any{"co_executor_ids": []int64{0}}, http.StatusBadRequest, "co_executor_ids"},
		{"unknown executor", http.MethodPut, docPath(drafting, "/executors"), &admin, map[string]any{"co_executor_ids": []int64{99}}, http.StatusNotFound, ""},
		{"history needs management role", http.MethodGet, docPath(drafting, "/history"), &author, nil, http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, tt.method, tt.path, tt.user, tt.body)
			rr.AssertStatus(t, tt.status)

			var resp handlers.ErrorResponse
			rr.Decode(t, &resp)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.field, resp.Field)
		})
	}
}

func TestMalformedBody(t *testing.T) {
	s := newServer(t)
	id := s.store.Seed(models.Document{Type: models.DocumentTypeOutgoing, Stage: models.StageDrafting, Title: "Xat", AuthorID: author.ID})

	req := s.auth.CreateAuthenticatedRequest(t, http.MethodPut, docPath(id, "/deadline"), &admin, nil)
	req.Body = http.NoBody
	rr := testutil.NewTestResponse()
	s.mux.ServeHTTP(rr, req)
	rr.AssertStatusBadRequest(t)

	req = s.auth.CreateAuthenticatedRequest(t, http.MethodPut, docPath(id, "/deadline"), &admin, "not an object")
	rr = testutil.NewTestResponse()
	s.mux.ServeHTTP(rr, req)
	rr.AssertStatusBadRequest(t)
}

func TestUnauthenticated(t *testing.T) {
	s := newServer(t)

	req := s.auth.CreateAuthenticatedRequest(t, http.MethodGet, handlers.DocumentsAPIBasePath, &admin, nil)
	req.Header.Del("Authorization")
	rr := testutil.NewTestResponse()
	s.mux.ServeHTTP(rr, req)
	rr.AssertStatusUnauthorized(t)
}

func TestListDocumentsVisibility(t *testing.T) {
	s := newServer(t)
	s.store.Seed(models.Document{Type: models.DocumentTypeIncoming, Stage: models.StageRegistration, Title: "A", AuthorID: bank1.ID})
	s.store.Seed(models.Document{Type: models.DocumentTypeOutgoing, Stage: models.StageDrafting, Title: "B", AuthorID: author.ID})

	rr := s.do(t, http.MethodGet, handlers.DocumentsAPIBasePath, &admin, nil)
	rr.AssertStatusOK(t)
	var docs []models.Document
	rr.Decode(t, &docs)
	assert.Len(t, docs, 2)

	rr = s.do(t, http.MethodGet, handlers.DocumentsAPIBasePath, &stranger, nil)
	rr.AssertStatusOK(t)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestAllowedActions(t *testing.T) {
	s := newServer(t)
	id := s.store.Seed(models.Document{Type: models.DocumentTypeIncoming, Stage: models.StagePendingRegistration, Title: "A", AuthorID: bank1.ID})

	rr := s.do(t, http.MethodGet, docPath(id, "/actions"), &bank1, nil)
	rr.AssertStatusOK(t)

	var resp handlers.AllowedActionsResponse
	rr.Decode(t, &resp)
	assert.Equal(t, id, resp.DocumentID)
	assert.Contains(t, resp.Actions, workflow.ActionRegister)
	assert.NotContains(t, resp.Actions, workflow.ActionSign)
}

func TestWorkflowConfig(t *testing.T) {
	s := newServer(t)

	rr := testutil.NewTestResponse()
	s.mux.ServeHTTP(rr, s.auth.CreateAuthenticatedRequest(t, http.MethodGet, "/api/v1/config/workflow", &admin, nil))
	rr.AssertStatusOK(t)

	var resp handlers.WorkflowResponse
	rr.Decode(t, &resp)
	assert.Len(t, resp.Stages, len(workflow.Stages()))
	assert.Len(t, resp.Actions, len(workflow.Actions()))
	for _, st := range resp.Stages {
		assert.NotNil(t, st.Successors, "stage %s", st.Stage)
		if st.Stage == models.StageArchived {
			assert.True(t, st.Terminal)
			assert.Empty(t, st.Successors)
		}
	}

	rr = testutil.NewTestResponse()
	s.mux.ServeHTTP(rr, s.auth.CreateAuthenticatedRequest(t, http.MethodGet, "/api/v1/config/app", &admin, nil))
	rr.AssertStatusOK(t)
	assert.Contains(t, rr.Body.String(), `"name":"docflow"`)
}
