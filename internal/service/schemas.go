package service

import (
	"errors"

	"docflow/internal/workflow"
	"docflow/pkg/validator"
)

var (
	createIncomingSchema = validator.MustCompile("create_incoming", `{
		"type": "object",
		"properties": {
			"title":     {"type": "string", "minLength": 1, "maxLength": 500},
			"content":   {"type": "string", "pattern": "\\S"},
			"source":    {"type": "string", "minLength": 1, "maxLength": 255},
			"kartoteka": {"type": "string", "maxLength": 255}
		}
	}`, "", "")

	createOutgoingSchema = validator.MustCompile("create_outgoing", `{
		"type": "object",
		"properties": {
			"title":     {"type": "string", "minLength": 1, "maxLength": 500},
			"content":   {"type": "string"},
			"kartoteka": {"type": "string", "maxLength": 255}
		}
	}`, "", "")

	assignSchema = validator.MustCompile("assign_executor", `{
		"type": "object",
		"properties": {
			"main_executor_id": {"type": "integer", "minimum": 1}
		}
	}`, "main_executor_id", "main_executor_id is required")

	delegateSchema = validator.MustCompile("delegate_internal", `{
		"type": "object",
		"properties": {
			"internal_assignee_id": {"type": "integer", "minimum": 1}
		}
	}`, "internal_assignee_id", "internal_assignee_id is required")

	rejectSchema = validator.MustCompile("reject_review", `{
		"type": "object",
		"properties": {
			"comment": {"type": "string", "maxLength": 2000}
		}
	}`, "comment", "invalid comment")

	executorsSchema = validator.MustCompile("update_executors", `{
		"type": "object",
		"properties": {
			"main_executor_id": {"type": "integer", "minimum": 1},
			"co_executor_ids":  {"type": ["array", "null"], "items": {"type": "integer", "minimum": 1}},
			"contributor_ids":  {"type": ["array", "null"], "items": {"type": "integer", "minimum": 1}}
		},
		"anyOf": [
			{"required": ["main_executor_id"]},
			{"properties": {"co_executor_ids": {"type": "array"}}},
			{"properties": {"contributor_ids": {"type": "array"}}}
		]
	}`, "main_executor_id", "at least one of main_executor_id, co_executor_ids, contributor_ids is required")

	deadlineSchema = validator.MustCompile("update_deadline", `{
		"type": "object",
		"properties": {
			"deadline":       {"type": "string"},
			"stage_deadline": {"type": "string"}
		},
		"minProperties": 1
	}`, "deadline", "at least one of deadline, stage_deadline is required")
)

type assignPayload struct {
	MainExecutorID *int64 `json:"main_executor_id"`
}

type delegatePayload struct {
	InternalAssigneeID *int64 `json:"internal_assignee_id"`
}

type rejectPayload struct {
	Comment string `json:"comment"`
}

// validatePayload turns a schema violation into ErrInvalidInput naming the field
func validatePayload(op string, schema *validator.Schema, payload any) error {
	err := schema.Validate(payload)
	if err == nil {
		return nil
	}
	var fe *validator.FieldError
	if errors.As(err, &fe) {
		return workflow.InvalidInput(op, fe.Field, fe.Error())
	}
	return workflow.InvalidInput(op, "", err.Error())
}
