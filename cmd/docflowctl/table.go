package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"docflow/internal/database"
	"docflow/internal/models"
)

// column describes one column of a CLI table. Zero width means unbounded.
type column struct {
	title   string
	numeric bool
	width   int
}

var (
	documentColumns  = []column{{title: "Field"}, {title: "Value", width: 60}}
	reviewerColumns  = []column{{title: "Reviewer"}, {title: "Round", numeric: true}, {title: "Status"}, {title: "Comment", width: 40}, {title: "Decided"}}
	historyColumns   = []column{{title: "Time"}, {title: "User"}, {title: "Action"}, {title: "From"}, {title: "To"}, {title: "Details", width: 50}}
	stageColumns     = []column{{title: "Stage"}, {title: "Next", width: 50}, {title: "Terminal"}}
	ruleColumns      = []column{{title: "Action"}, {title: "Stages", width: 50}, {title: "Roles", width: 40}}
	migrationColumns = []column{{title: "Version", numeric: true}, {title: "Name"}, {title: "State"}}
)

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.title
		cfg := table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if c.numeric {
			cfg.Align = text.AlignRight
		}
		if c.width > 0 {
			cfg.WidthMax = c.width
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
		configs[i] = cfg
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	return tw.Render()
}

func renderDocument(doc *models.Document) string {
	return renderTable(documentColumns, [][]string{
		{"ID", strconv.FormatInt(doc.ID, 10)},
		{"Type", string(doc.Type)},
		{"Stage", string(doc.Stage)},
		{"Title", doc.Title},
		{"Source", doc.Source},
		{"Kartoteka", doc.Kartoteka},
		{"Author", refName(doc.Author)},
		{"Main executor", refName(doc.MainExecutor)},
		{"Internal assignee", refName(doc.InternalAssignee)},
		{"Co-executors", joinRefs(doc.CoExecutors)},
		{"Contributors", joinRefs(doc.Contributors)},
		{"Deadline", formatTime(doc.Deadline)},
		{"Stage deadline", formatTime(doc.StageDeadline)},
		{"Review round", strconv.Itoa(doc.ReviewRound)},
		{"Updated", doc.UpdatedAt.Format(timeLayout)},
	})
}

func renderReviewers(reviewers []models.ReviewerAssignment) string {
	rows := make([][]string, 0, len(reviewers))
	for _, r := range reviewers {
		name := strconv.FormatInt(r.UserID, 10)
		if r.User != nil {
			name = r.User.Name
		}
		comment := ""
		if r.Comment != nil {
			comment = *r.Comment
		}
		rows = append(rows, []string{name, strconv.Itoa(r.Round), string(r.Status), comment, formatTime(r.DecidedAt)})
	}
	return renderTable(reviewerColumns, rows)
}

func renderHistory(entries []models.AuditLog) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		user := ""
		if e.UserName != nil {
			user = *e.UserName
		}
		rows = append(rows, []string{
			e.CreatedAt.Format(timeLayout),
			user,
			e.Action,
			stageName(e.FromStage),
			stageName(e.ToStage),
			e.Details,
		})
	}
	return renderTable(historyColumns, rows)
}

func renderMigrationStatus(status []database.MigrationStatus) string {
	rows := make([][]string, 0, len(status))
	for _, s := range status {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		rows = append(rows, []string{s.Version, s.Name, state})
	}
	return renderTable(migrationColumns, rows)
}
