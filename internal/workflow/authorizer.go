package workflow

import (
	"fmt"
	"slices"

	"docflow/internal/models"
)

// relation is a document-relative condition on the actor
type relation int

const (
	relationNone relation = iota
	relationAuthorOrMainExecutor
	relationMainExecutor
	relationCurrentReviewer
)

var managers = []models.Role{models.RoleAdmin, models.RoleBoshqaruv, models.RoleBankApparati}

// Rule describes who may perform an action and from where
type Rule struct {
	Roles    []models.Role  // any of; empty means no role requirement
	relation relation       // additional document-relative requirement
	Stages   []models.Stage // allowed source stages; empty means any non-terminal
	Target   models.Stage   // stage forced by the action; empty when it depends on the payload or outcome
	// FromTerminal lets the action run from the terminal stages it lists in Stages
	FromTerminal bool
}

var defaultRules = map[Action]Rule{
	ActionRegister: {
		Roles:  []models.Role{models.RoleAdmin, models.RoleBankApparati},
		Stages: []models.Stage{models.StagePendingRegistration},
		Target: models.StageRegistration,
	},
	ActionSendToResolution: {
		Roles:  []models.Role{models.RoleAdmin, models.RoleBankApparati},
		Stages: []models.Stage{models.StageRegistration},
		Target: models.StageResolution,
	},
	ActionResolve: {
		Roles:  []models.Role{models.RoleBoshqaruv, models.RoleYordamchi},
		Stages: []models.Stage{models.StageResolution},
		Target: models.StageAssignment,
	},
	ActionSubmitForReview: {
		relation: relationAuthorOrMainExecutor,
		Stages:   []models.Stage{models.StageDrafting, models.StageRevisionRequested, models.StageExecution},
		Target:   models.StageFinalReview,
	},
	ActionApproveReview: {
		relation: relationCurrentReviewer,
		Stages:   []models.Stage{models.StageFinalReview},
	},
	ActionRejectReview: {
		relation: relationCurrentReviewer,
		Stages:   []models.Stage{models.StageFinalReview},
		Target:   models.StageRevisionRequested,
	},
	ActionSign: {
		Roles:  []models.Role{models.RoleBoshqaruv},
		Stages: []models.Stage{models.StageSignature},
		Target: models.StageDispatch,
	},
	ActionDispatch: {
		Roles:  []models.Role{models.RoleBankApparati},
		Stages: []models.Stage{models.StageDispatch},
		Target: models.StageCompleted,
	},
	ActionAssignExecutor: {
		Roles:  []models.Role{models.RoleBoshqaruv},
		Stages: []models.Stage{models.StageAssignment, models.StageExecution},
		Target: models.StageExecution,
	},
	ActionDelegateInternal: {
		Roles:    []models.Role{models.RoleTarmoq},
		relation: relationMainExecutor,
		Stages:   []models.Stage{models.StageExecution},
	},
	ActionUpdateExecutors: {Roles: managers},
	ActionUpdateDeadline:  {Roles: managers},
	ActionHold:            {Roles: managers, Target: models.StageOnHold},
	ActionCancel:          {Roles: managers, Target: models.StageCancelled},
	ActionArchive: {
		Roles:        []models.Role{models.RoleAdmin},
		Stages:       []models.Stage{models.StageCompleted},
		Target:       models.StageArchived,
		FromTerminal: true,
	},
}

// Authorizer decides whether an actor may perform an action on a document.
// All role, relationship and stage rules live in one table.
type Authorizer struct {
	rules map[Action]Rule
}

// NewAuthorizer creates an authorizer with the standard rule table
func NewAuthorizer() *Authorizer {
	return &Authorizer{rules: defaultRules}
}

// Rule returns the rule registered for action
func (a *Authorizer) Rule(action Action) (Rule, bool) {
	r, ok := a.rules[action]
	return r, ok
}

// Authorize checks, in order: the terminal stage rule (ErrInvalidState), the
// role and relationship rule (ErrForbidden, or for reviewer actions
// ErrNotFound / ErrConflict on the assignment) and the stage rule
// (ErrInvalidState). A nil actor is always forbidden.
func (a *Authorizer) Authorize(actor *models.User, doc *models.Document, action Action) error {
	op := string(action)
	rule, ok := a.rules[action]
	if !ok {
		return InvalidInput(op, "action", fmt.Sprintf("unknown action %q", action))
	}
	if actor == nil {
		return Forbidden(op, "no authenticated actor")
	}

	if IsTerminal(doc.Stage) && !(rule.FromTerminal && slices.Contains(rule.Stages, doc.Stage)) {
		return InvalidState(op, fmt.Sprintf("document is in terminal stage %s", doc.Stage))
	}

	if len(rule.Roles) > 0 && !actor.HasRole(rule.Roles...) {
		return Forbidden(op, fmt.Sprintf("role %q may not %s", actor.Role, action))
	}

	switch rule.relation {
	case relationAuthorOrMainExecutor:
		if doc.AuthorID != actor.ID && !doc.IsMainExecutor(actor.ID) {
			return Forbidden(op, "only the author or the main executor may do this")
		}
	case relationMainExecutor:
		if !doc.IsMainExecutor(actor.ID) {
			return Forbidden(op, "only the main executor may do this")
		}
	case relationCurrentReviewer:
		if doc.Stage != models.StageFinalReview {
			break
		}
		ra := doc.Reviewer(actor.ID)
		if ra == nil {
			return NotFound(op, "no review assignment for this user in the current round")
		}
		if ra.Status != models.ReviewPending {
			return Conflict(op, fmt.Sprintf("review already %s", ra.Status))
		}
	}

	if len(rule.Stages) > 0 && !slices.Contains(rule.Stages, doc.Stage) {
		return InvalidState(op, fmt.Sprintf("%s is not allowed from stage %s", action, doc.Stage))
	}
	return nil
}

// Permitted returns the actions the actor may currently perform on doc
func (a *Authorizer) Permitted(actor *models.User, doc *models.Document) []Action {
	var out []Action
	for _, action := range actions {
		if a.Authorize(actor, doc, action) == nil {
			out = append(out, action)
		}
	}
	return out
}
