package workflow

import (
	"fmt"

	"docflow/internal/models"
)

// stages lists every stage in lifecycle order
var stages = [...]models.Stage{
	models.StagePendingRegistration,
	models.StageRegistration,
	models.StageResolution,
	models.StageAssignment,
	models.StageExecution,
	models.StageDrafting,
	models.StageRevisionRequested,
	models.StageFinalReview,
	models.StageSignature,
	models.StageDispatch,
	models.StageCompleted,
	models.StageOnHold,
	models.StageCancelled,
	models.StageArchived,
}

// edges is the forward graph. Administrative edges to OnHold and Cancelled
// are implied for every non-terminal stage and are not listed here.
var edges = map[models.Stage][]models.Stage{
	models.StagePendingRegistration: {models.StageRegistration},
	models.StageRegistration:        {models.StageResolution},
	models.StageResolution:          {models.StageAssignment},
	models.StageAssignment:          {models.StageExecution},
	models.StageExecution:           {models.StageFinalReview},
	models.StageDrafting:            {models.StageFinalReview},
	models.StageRevisionRequested:   {models.StageFinalReview},
	models.StageFinalReview:         {models.StageSignature, models.StageRevisionRequested},
	models.StageSignature:           {models.StageDispatch},
	models.StageDispatch:            {models.StageCompleted},
	models.StageCompleted:           {models.StageArchived},
}

var terminal = map[models.Stage]bool{
	models.StageCompleted: true,
	models.StageCancelled: true,
	models.StageArchived:  true,
	models.StageOnHold:    true,
}

// Stages returns all stages in lifecycle order
func Stages() []models.Stage {
	out := make([]models.Stage, len(stages))
	copy(out, stages[:])
	return out
}

// ValidStage reports whether s is a known stage
func ValidStage(s models.Stage) bool {
	for _, known := range stages {
		if known == s {
			return true
		}
	}
	return false
}

// ParseStage converts a persisted or user supplied value into a Stage
func ParseStage(v string) (models.Stage, error) {
	s := models.Stage(v)
	if !ValidStage(s) {
		return "", fmt.Errorf("unknown stage %q", v)
	}
	return s, nil
}

// IsTerminal reports whether no mutating action is accepted in s
func IsTerminal(s models.Stage) bool {
	return terminal[s]
}

// InitialStage returns the stage a new document of type t starts in
func InitialStage(t models.DocumentType) (models.Stage, error) {
	switch t {
	case models.DocumentTypeIncoming:
		return models.StagePendingRegistration, nil
	case models.DocumentTypeOutgoing:
		return models.StageDrafting, nil
	default:
		return "", fmt.Errorf("unknown document type %q", t)
	}
}

// Successors returns the stages directly reachable from s, administrative
// edges included
func Successors(s models.Stage) []models.Stage {
	next := append([]models.Stage(nil), edges[s]...)
	if ValidStage(s) && !IsTerminal(s) {
		next = append(next, models.StageOnHold, models.StageCancelled)
	}
	return next
}

// CanTransition reports whether from -> to is an edge of the stage graph
func CanTransition(from, to models.Stage) bool {
	for _, s := range Successors(from) {
		if s == to {
			return true
		}
	}
	return false
}
