package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docflow/internal/workflow"
)

func newWorkflowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "workflow",
		Short: "Print the stage graph and action rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderStageGraph())
			fmt.Fprintln(out, renderActionRules(workflow.NewAuthorizer()))
			return nil
		},
	}
}

func renderStageGraph() string {
	stages := workflow.Stages()
	rows := make([][]string, 0, len(stages))
	for _, s := range stages {
		next := make([]string, 0)
		for _, n := range workflow.Successors(s) {
			next = append(next, string(n))
		}
		terminal := ""
		if workflow.IsTerminal(s) {
			terminal = "yes"
		}
		rows = append(rows, []string{string(s), strings.Join(next, ", "), terminal})
	}
	return renderTable(stageColumns, rows)
}

func renderActionRules(a *workflow.Authorizer) string {
	actions := workflow.Actions()
	rows := make([][]string, 0, len(actions))
	for _, action := range actions {
		rule, ok := a.Rule(action)
		if !ok {
			continue
		}
		stages := make([]string, 0, len(rule.Stages))
		for _, s := range rule.Stages {
			stages = append(stages, string(s))
		}
		roles := make([]string, 0, len(rule.Roles))
		for _, r := range rule.Roles {
			roles = append(roles, string(r))
		}
		rows = append(rows, []string{string(action), strings.Join(stages, ", "), strings.Join(roles, ", ")})
	}
	return renderTable(ruleColumns, rows)
}
