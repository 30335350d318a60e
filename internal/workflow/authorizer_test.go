package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"docflow/internal/models"
)

func ptr[T any](v T) *T { return &v }

func user(id int64, role models.Role) *models.User {
	return &models.User{ID: id, Name: string(role), Role: role}
}

func TestAuthorize(t *testing.T) {
	a := NewAuthorizer()

	admin := user(1, models.RoleAdmin)
	board := user(2, models.RoleBoshqaruv)
	bank := user(3, models.RoleBankApparati)
	head := user(4, models.RoleTarmoq)
	assistant := user(5, models.RoleYordamchi)
	author := user(6, models.RoleReviewer)
	other := user(7, models.RoleReviewer)

	doc := func(stage models.Stage) *models.Document {
		return &models.Document{
			ID:             10,
			Stage:          stage,
			AuthorID:       author.ID,
			MainExecutorID: ptr(head.ID),
			Reviewers: []models.ReviewerAssignment{
				{UserID: bank.ID, Status: models.ReviewPending},
				{UserID: other.ID, Status: models.ReviewRejected},
			},
		}
	}

	tests := []struct {
		name    string
		actor   *models.User
		stage   models.Stage
		action  Action
		wantErr error
	}{
		{"register by bank staff", bank, models.StagePendingRegistration, ActionRegister, nil},
		{"register by board", board, models.StagePendingRegistration, ActionRegister, ErrForbidden},
		{"register from wrong stage", admin, models.StageResolution, ActionRegister, ErrInvalidState},
		{"resolve by assistant", assistant, models.StageResolution, ActionResolve, nil},
		{"submit by author", author, models.StageDrafting, ActionSubmitForReview, nil},
		{"submit by main executor", head, models.StageExecution, ActionSubmitForReview, nil},
		{"submit by stranger", other, models.StageDrafting, ActionSubmitForReview, ErrForbidden},
		{"submit from signature", author, models.StageSignature, ActionSubmitForReview, ErrInvalidState},
		{"approve by pending reviewer", bank, models.StageFinalReview, ActionApproveReview, nil},
		{"approve without assignment", board, models.StageFinalReview, ActionApproveReview, ErrNotFound},
		{"approve after own rejection", other, models.StageFinalReview, ActionApproveReview, ErrConflict},
		{"approve outside final review", bank, models.StageRevisionRequested, ActionApproveReview, ErrInvalidState},
		{"sign by board", board, models.StageSignature, ActionSign, nil},
		{"sign by admin", admin, models.StageSignature, ActionSign, ErrForbidden},
		{"sign from final review", board, models.StageFinalReview, ActionSign, ErrInvalidState},
		{"dispatch by bank staff", bank, models.StageDispatch, ActionDispatch, nil},
		{"dispatch by board", board, models.StageDispatch, ActionDispatch, ErrForbidden},
		{"assign in assignment", board, models.StageAssignment, ActionAssignExecutor, nil},
		{"reassign in execution", board, models.StageExecution, ActionAssignExecutor, nil},
		{"assign from drafting", board, models.StageDrafting, ActionAssignExecutor, ErrInvalidState},
		{"delegate by main executor", head, models.StageExecution, ActionDelegateInternal, nil},
		{"delegate by other department head", user(8, models.RoleTarmoq), models.StageExecution, ActionDelegateInternal, ErrForbidden},
		{"update executors by board", board, models.StageAssignment, ActionUpdateExecutors, nil},
		{"update deadline by reviewer", author, models.StageExecution, ActionUpdateDeadline, ErrForbidden},
		{"hold by bank staff", bank, models.StageFinalReview, ActionHold, nil},
		{"hold when held", admin, models.StageOnHold, ActionHold, ErrInvalidState},
		{"cancel when cancelled", admin, models.StageCancelled, ActionCancel, ErrInvalidState},
		{"cancel completed", admin, models.StageCompleted, ActionCancel, ErrInvalidState},
		{"terminal beats role", other, models.StageCompleted, ActionSign, ErrInvalidState},
		{"archive completed", admin, models.StageCompleted, ActionArchive, nil},
		{"archive by board", board, models.StageCompleted, ActionArchive, ErrForbidden},
		{"archive cancelled", admin, models.StageCancelled, ActionArchive, ErrInvalidState},
		{"archive active", admin, models.StageExecution, ActionArchive, ErrInvalidState},
		{"nil actor", nil, models.StageDrafting, ActionSubmitForReview, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Authorize(tt.actor, doc(tt.stage), tt.action)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestAuthorizeTerminalRejectsEverything(t *testing.T) {
	a := NewAuthorizer()
	for _, stage := range []models.Stage{models.StageCompleted, models.StageCancelled, models.StageArchived, models.StageOnHold} {
		for _, action := range Actions() {
			if action == ActionArchive && stage == models.StageCompleted {
				continue
			}
			for _, role := range []models.Role{models.RoleAdmin, models.RoleBoshqaruv, models.RoleBankApparati, models.RoleTarmoq} {
				doc := &models.Document{Stage: stage, AuthorID: 1, MainExecutorID: ptr(int64(1))}
				err := a.Authorize(user(1, role), doc, action)
				assert.True(t, errors.Is(err, ErrInvalidState), "%s %s by %s: %v", stage, action, role, err)
			}
		}
	}
}

func TestRuleTargetsAreGraphEdges(t *testing.T) {
	a := NewAuthorizer()
	for _, action := range Actions() {
		rule, ok := a.Rule(action)
		assert.True(t, ok, "no rule for %s", action)
		if rule.Target == "" {
			continue
		}
		sources := rule.Stages
		if len(sources) == 0 {
			for _, s := range Stages() {
				if !IsTerminal(s) {
					sources = append(sources, s)
				}
			}
		}
		for _, from := range sources {
			if from == rule.Target {
				continue
			}
			assert.True(t, CanTransition(from, rule.Target), "%s: %s -> %s", action, from, rule.Target)
		}
	}
}

func TestPermitted(t *testing.T) {
	a := NewAuthorizer()
	doc := &models.Document{Stage: models.StageSignature, AuthorID: 99}
	assert.ElementsMatch(t,
		[]Action{ActionSign, ActionUpdateExecutors, ActionUpdateDeadline, ActionHold, ActionCancel},
		a.Permitted(user(2, models.RoleBoshqaruv), doc))
	assert.Empty(t, a.Permitted(user(3, models.RoleReviewer), doc))
}

func TestErrorClassification(t *testing.T) {
	err := InvalidInput("assign_executor", "main_executor_id", "required")
	assert.Equal(t, ErrInvalidInput, KindOf(err))
	assert.Equal(t, "main_executor_id", FieldOf(err))
	assert.Contains(t, err.Error(), "assign_executor")

	cause := errors.New("connection reset")
	serr := StorageFailure("approve_review", cause)
	assert.True(t, errors.Is(serr, ErrStorageFailure))
	assert.True(t, errors.Is(serr, cause))
	assert.Nil(t, KindOf(cause))
}
