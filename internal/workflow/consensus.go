package workflow

import (
	"fmt"

	"docflow/internal/models"
)

// Outcome is the state of a review round after a decision
type Outcome int

const (
	// OutcomePending means at least one reviewer has not decided yet
	OutcomePending Outcome = iota
	// OutcomeConsensus means every reviewer of the round approved
	OutcomeConsensus
	// OutcomeRejected means a reviewer rejected; the round is over
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeConsensus:
		return "consensus"
	case OutcomeRejected:
		return "rejected"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Tally counts the assignments of a round by status
type Tally struct {
	Pending  int
	Approved int
	Rejected int
}

// Count tallies assignments
func Count(assignments []models.ReviewerAssignment) Tally {
	var t Tally
	for _, a := range assignments {
		switch a.Status {
		case models.ReviewPending:
			t.Pending++
		case models.ReviewApproved:
			t.Approved++
		case models.ReviewRejected:
			t.Rejected++
		}
	}
	return t
}

// Evaluate applies one reviewer's decision to the round and returns the
// resulting outcome. assignments is not modified.
func Evaluate(assignments []models.ReviewerAssignment, userID int64, decision models.ReviewStatus) (Outcome, error) {
	op := "evaluate_review"
	if decision != models.ReviewApproved && decision != models.ReviewRejected {
		return OutcomePending, InvalidInput(op, "status", fmt.Sprintf("unsupported decision %q", decision))
	}

	var current *models.ReviewerAssignment
	for i := range assignments {
		if assignments[i].UserID == userID {
			current = &assignments[i]
			break
		}
	}
	if current == nil {
		return OutcomePending, NotFound(op, "no review assignment for this user in the current round")
	}
	if current.Status != models.ReviewPending {
		return OutcomePending, Conflict(op, fmt.Sprintf("review already %s", current.Status))
	}

	if decision == models.ReviewRejected {
		return OutcomeRejected, nil
	}

	t := Count(assignments)
	if t.Rejected > 0 {
		return OutcomeRejected, nil
	}
	if t.Pending-1 == 0 {
		return OutcomeConsensus, nil
	}
	return OutcomePending, nil
}
