package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docflow/internal/bootstrap"
	"docflow/internal/models"
)

const timeLayout = "2006-01-02 15:04"

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <document-id>",
		Short: "Print a document snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(app *bootstrap.App) error {
				doc, err := app.DocumentService.GetDocument(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderDocument(doc))
				if len(doc.Reviewers) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), renderReviewers(doc.Reviewers))
				}
				return nil
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <document-id>",
		Short: "Print the audit trail of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(app *bootstrap.App) error {
				entries, err := app.DocumentService.History(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No history recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderHistory(entries))
				return nil
			})
		},
	}
}

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var actorID int64

	cmd := &cobra.Command{
		Use:   "archive <document-id>",
		Short: "Archive a document on behalf of an administrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(app *bootstrap.App) error {
				actor, err := app.Users.GetUser(cmd.Context(), actorID)
				if err != nil {
					return err
				}
				if actor == nil {
					return fmt.Errorf("user %d not found", actorID)
				}
				doc, err := app.DocumentService.Archive(cmd.Context(), id, actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Document %d is now %s\n", doc.ID, doc.Stage)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&actorID, "actor", 0, "ID of the user performing the action")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", raw)
	}
	return id, nil
}




func refName(ref *models.UserRef) string {
	if ref == nil {
		return ""
	}
	return ref.Name
}

func joinRefs(refs []models.UserRef) string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

func stageName(s *models.Stage) string {
	if s == nil {
		return ""
	}
	return string(*s)
}
