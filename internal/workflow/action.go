package workflow

// Action identifies a lifecycle operation on a document
type Action string

const (
	ActionRegister         Action = "register"
	ActionSendToResolution Action = "send_to_resolution"
	ActionResolve          Action = "resolve"
	ActionSubmitForReview  Action = "submit_for_review"
	ActionApproveReview    Action = "approve_review"
	ActionRejectReview     Action = "reject_review"
	ActionSign             Action = "sign"
	ActionDispatch         Action = "dispatch"
	ActionAssignExecutor   Action = "assign_executor"
	ActionDelegateInternal Action = "delegate_internal"
	ActionUpdateExecutors  Action = "update_executors"
	ActionUpdateDeadline   Action = "update_deadline"
	ActionHold             Action = "hold"
	ActionCancel           Action = "cancel"
	ActionArchive          Action = "archive"
)

// ActionCreate is recorded in the audit trail when a document is created.
// It is not subject to authorization rules.
const ActionCreate Action = "create"

var actions = [...]Action{
	ActionRegister,
	ActionSendToResolution,
	ActionResolve,
	ActionSubmitForReview,
	ActionApproveReview,
	ActionRejectReview,
	ActionSign,
	ActionDispatch,
	ActionAssignExecutor,
	ActionDelegateInternal,
	ActionUpdateExecutors,
	ActionUpdateDeadline,
	ActionHold,
	ActionCancel,
	ActionArchive,
}

// Actions returns every authorizable action
func Actions() []Action {
	out := make([]Action, len(actions))
	copy(out, actions[:])
	return out
}
