package service

import (
	"context"
	"log/slog"

	"docflow/internal/models"
	"docflow/internal/workflow"
)

// ReviewerCriteria decides which directory users review a submitted document
type ReviewerCriteria struct {
	Roles       []models.Role
	Departments []string
}

// DefaultReviewerCriteria selects bank staff plus the legal and compliance departments
func DefaultReviewerCriteria() ReviewerCriteria {
	return ReviewerCriteria{
		Roles:       []models.Role{models.RoleBankApparati},
		Departments: []string{"Yuridik Departament", "Komplayens nazorat"},
	}
}

// ReviewerService resolves reviewer sets from the user directory
type ReviewerService struct {
	users    UserDirectory
	criteria ReviewerCriteria
}

// NewReviewerService creates a new reviewer service
func NewReviewerService(users UserDirectory, criteria ReviewerCriteria) *ReviewerService {
	return &ReviewerService{
		users:    users,
		criteria: criteria,
	}
}

// Criteria returns the configured reviewer criteria
func (s *ReviewerService) Criteria() ReviewerCriteria {
	return s.criteria
}

// ResolveReviewers returns the ids of every user matching the reviewer
// criteria, in ascending order. An empty result is ErrNotFound.
func (s *ReviewerService) ResolveReviewers(ctx context.Context) ([]int64, error) {
	op := string(workflow.ActionSubmitForReview)
	if len(s.criteria.Roles) == 0 && len(s.criteria.Departments) == 0 {
		return nil, workflow.NotFound(op, "no reviewer criteria configured")
	}

	users, err := s.users.FindUsers(ctx, UserFilter{
		Roles:       s.criteria.Roles,
		Departments: s.criteria.Departments,
	})
	if err != nil {
		return nil, workflow.StorageFailure(op, err)
	}

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, workflow.NotFound(op, "no reviewers found")
	}

	slog.Debug("Resolved reviewers", "count", len(ids))
	return ids, nil
}
