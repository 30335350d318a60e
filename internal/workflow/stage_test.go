package workflow

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/models"
)

func TestInitialStage(t *testing.T) {
	s, err := InitialStage(models.DocumentTypeIncoming)
	require.NoError(t, err)
	assert.Equal(t, models.StagePendingRegistration, s)

	s, err = InitialStage(models.DocumentTypeOutgoing)
	require.NoError(t, err)
	assert.Equal(t, models.StageDrafting, s)

	_, err = InitialStage("MEMO")
	assert.Error(t, err)
}

func TestTerminalStages(t *testing.T) {
	for _, s := range Stages() {
		want := s == models.StageCompleted || s == models.StageCancelled ||
			s == models.StageArchived || s == models.StageOnHold
		assert.Equal(t, want, IsTerminal(s), "stage %s", s)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.Stage
		want     bool
	}{
		{models.StagePendingRegistration, models.StageRegistration, true},
		{models.StageRegistration, models.StageResolution, true},
		{models.StageResolution, models.StageAssignment, true},
		{models.StageAssignment, models.StageExecution, true},
		{models.StageExecution, models.StageFinalReview, true},
		{models.StageDrafting, models.StageFinalReview, true},
		{models.StageRevisionRequested, models.StageFinalReview, true},
		{models.StageFinalReview, models.StageSignature, true},
		{models.StageFinalReview, models.StageRevisionRequested, true},
		{models.StageSignature, models.StageDispatch, true},
		{models.StageDispatch, models.StageCompleted, true},
		{models.StageCompleted, models.StageArchived, true},
		{models.StageExecution, models.StageOnHold, true},
		{models.StageFinalReview, models.StageCancelled, true},

		{models.StagePendingRegistration, models.StageExecution, false},
		{models.StageDrafting, models.StageSignature, false},
		{models.StageFinalReview, models.StageCompleted, false},
		{models.StageCompleted, models.StageCancelled, false},
		{models.StageOnHold, models.StageExecution, false},
		{models.StageCancelled, models.StageOnHold, false},
		{models.StageArchived, models.StageCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestParseStage(t *testing.T) {
	s, err := ParseStage("FINAL_REVIEW")
	require.NoError(t, err)
	assert.Equal(t, models.StageFinalReview, s)

	_, err = ParseStage("final_review")
	assert.Error(t, err)
}

// Random walks over the graph never leave the closed stage set and never
// move out of a terminal stage except Completed -> Archived.
func TestStageGraphClosure(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("walks stay inside the stage set", prop.ForAll(
		func(outgoing bool, choices []int) bool {
			docType := models.DocumentTypeIncoming
			if outgoing {
				docType = models.DocumentTypeOutgoing
			}
			cur, err := InitialStage(docType)
			if err != nil {
				return false
			}
			for _, c := range choices {
				next := Successors(cur)
				if IsTerminal(cur) && cur != models.StageCompleted && len(next) != 0 {
					return false
				}
				if len(next) == 0 {
					return IsTerminal(cur)
				}
				to := next[c%len(next)]
				if !ValidStage(to) || !CanTransition(cur, to) {
					return false
				}
				cur = to
			}
			return ValidStage(cur)
		},
		gen.Bool(),
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}
