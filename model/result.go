package model

type Outcome string

const OUTCOME_OK Outcome = "OK"
const OUTCOME_SKIPPED Outcome = "SKIPPED"
const OUTCOME_FAILED Outcome = "FAILED"

// Result is the explicit outcome of a validation or composition stage.
// Skipped means the action is validly dropped (no valid recipients, nothing
// to do); Failed means the stage itself broke. Callers must not confuse the
// two.
type Result[T any] struct {
	Outcome Outcome
	Value   T
	Reason  string
	Err     error
}

func Ok[T any](value T) Result[T] {
	return Result[T]{Outcome: OUTCOME_OK, Value: value}
}

func Skipped[T any](reason string) Result[T] {
	return Result[T]{Outcome: OUTCOME_SKIPPED, Reason: reason}
}

func Failed[T any](err error) Result[T] {
	return Result[T]{Outcome: OUTCOME_FAILED, Err: err}
}

func (r Result[T]) IsOk() bool { return r.Outcome == OUTCOME_OK }

type ExecOutcome string

// EXEC_CREATED: a domain record was written.
// EXEC_NOOP: the type executes as a deliberate no-op (NO_ACTION).
// EXEC_DISABLED: the type is feature-flagged off; nothing was written. The
// orchestrator treats this as terminal, distinct from both success and failure.
const EXEC_CREATED ExecOutcome = "CREATED"
const EXEC_NOOP ExecOutcome = "NOOP"
const EXEC_DISABLED ExecOutcome = "DISABLED"

type ExecutionResult struct {
	ActionId        string      `json:"actionId"`
	ActionType      ActionType  `json:"actionType"`
	Outcome         ExecOutcome `json:"outcome"`
	CreatedRecordId string      `json:"createdRecordId,omitempty"`
	ScheduledFor    string      `json:"scheduledFor,omitempty"`
	// Output carries a value surfaced by execution itself, e.g. the answer of
	// a LOOKUP action.
	Output string `json:"output,omitempty"`
}
