package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/models"
)

func TestRenderTable(t *testing.T) {
	cols := []column{{title: "Name"}, {title: "Count", numeric: true}}
	out := renderTable(cols, [][]string{{"alpha", "1"}, {"beta"}})

	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")
	assert.True(t, strings.HasPrefix(out, "╭"), "expected rounded style, got %q", out)
}

func TestRenderTable_NoColumns(t *testing.T) {
	assert.Empty(t, renderTable(nil, [][]string{{"x"}}))
}

func TestRenderTable_WrapsWideColumns(t *testing.T) {
	cols := []column{{title: "Comment", width: 10}}
	out := renderTable(cols, [][]string{{"Shartnoma raqami noto'g'ri ko'rsatilgan"}})

	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 14, "line %q exceeds the column width", line)
	}
}

func TestRenderReviewers(t *testing.T) {
	comment := "Izohsiz"
	out := renderReviewers([]models.ReviewerAssignment{
		{UserID: 3, User: &models.UserRef{ID: 3, Name: "Bank One"}, Round: 2, Status: models.ReviewApproved},
		{UserID: 7, Round: 2, Status: models.ReviewRejected, Comment: &comment},
	})

	assert.Contains(t, out, "Bank One")
	assert.Contains(t, out, "7")
	assert.Contains(t, out, "REJECTED")
	assert.Contains(t, out, "Izohsiz")
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "show", "history", "archive", "token", "workflow"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestWorkflowCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"workflow"})

	require.NoError(t, root.Execute())

	text := out.String()
	assert.Contains(t, text, string(models.StagePendingRegistration))
	assert.Contains(t, text, string(models.StageArchived))
	assert.Contains(t, text, "submit_for_review")
	assert.Contains(t, text, "Bank apparati")
}

func TestShowCommand_InvalidID(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"show", "abc"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid document id")
}

func TestArchiveCommand_RequiresActor(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"archive", "5"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actor")
}

func TestRenderDocumentAndHistory(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	exec := int64(4)
	doc := &models.Document{
		ID:             12,
		Type:           models.DocumentTypeIncoming,
		Stage:          models.StageExecution,
		Title:          "Soliq so'rovi",
		MainExecutorID: &exec,
		MainExecutor:   &models.UserRef{ID: 4, Name: "Head"},
		CoExecutors:    []models.UserRef{{ID: 5, Name: "A"}, {ID: 6, Name: "B"}},
		Deadline:       &deadline,
	}

	out := renderDocument(doc)
	assert.Contains(t, out, "Soliq so'rovi")
	assert.Contains(t, out, "A, B")
	assert.Contains(t, out, "2026-03-01 09:30")

	from, to := models.StageAssignment, models.StageExecution
	name := "Board"
	hist := renderHistory([]models.AuditLog{{
		Action:    "assign_executor",
		UserName:  &name,
		FromStage: &from,
		ToStage:   &to,
		CreatedAt: deadline,
	}})
	assert.Contains(t, hist, "assign_executor")
	assert.Contains(t, hist, "ASSIGNMENT")
	assert.Contains(t, hist, "Board")
}
