package models

import "time"

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is enqueued and waiting for a worker.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusProcessing indicates a worker owns the task and is executing it.
	TaskStatusProcessing TaskStatus = "processing"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task finished with an error.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusBlocked indicates routing policy rejected the task with no
	// viable fallback. Blocked tasks require human resubmission.
	TaskStatusBlocked TaskStatus = "blocked"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed, TaskStatusBlocked:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state.
// Terminal tasks are immutable; a blocked task is never retried automatically.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusBlocked:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a transition from s to next is legal.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusProcessing
	case TaskStatusProcessing:
		return next == TaskStatusCompleted || next == TaskStatusFailed || next == TaskStatusBlocked
	default:
		return false
	}
}

// TaskType classifies the kind of work a task represents.
type TaskType string

const (
	// TaskTypeStandard is a general-purpose task with no special handling.
	TaskTypeStandard TaskType = "standard"
	// TaskTypeChat is a conversational turn.
	TaskTypeChat TaskType = "chat"
	// TaskTypeCodingSimple is a small, self-contained code change.
	TaskTypeCodingSimple TaskType = "coding_simple"
	// TaskTypeCodingComplex is a code change that warrants a review loop.
	TaskTypeCodingComplex TaskType = "coding_complex"
	// TaskTypeAnalysis is a data or document analysis request.
	TaskTypeAnalysis TaskType = "analysis"
	// TaskTypeGeneration is a long-form content generation request.
	TaskTypeGeneration TaskType = "generation"
	// TaskTypeResearch is a multi-step research or campaign request.
	TaskTypeResearch TaskType = "research"
	// TaskTypeSensitive is a task the submitter has flagged as containing
	// sensitive material. The router also infers this from payload scanning.
	TaskTypeSensitive TaskType = "sensitive"
)

// Valid returns true if the task type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeStandard, TaskTypeChat, TaskTypeCodingSimple, TaskTypeCodingComplex,
		TaskTypeAnalysis, TaskTypeGeneration, TaskTypeResearch, TaskTypeSensitive:
		return true
	default:
		return false
	}
}

// AllTaskTypes lists every known task type. Used by workflow selection tests
// to ensure the mapping stays exhaustive.
var AllTaskTypes = []TaskType{
	TaskTypeStandard,
	TaskTypeChat,
	TaskTypeCodingSimple,
	TaskTypeCodingComplex,
	TaskTypeAnalysis,
	TaskTypeGeneration,
	TaskTypeResearch,
	TaskTypeSensitive,
}

// ErrorEnvelope is the structured error attached to a failed task.
// Downstream faults are converted into this shape at the orchestrator
// boundary and never propagated raw to callers.
type ErrorEnvelope struct {
	// Component is the subsystem that produced the error (router, flow, ...).
	Component string `json:"component"`
	// Stage is the execution stage within the component.
	Stage string `json:"stage"`
	// Message is the human-readable error description.
	Message string `json:"message"`
	// ReasonCode carries the routing reason code for policy failures.
	ReasonCode ReasonCode `json:"reason_code,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return e.Component + "/" + e.Stage + ": " + e.Message
}

// Task represents a unit of work submitted to the orchestrator.
// The orchestrator owns the task exclusively; other components receive
// read-only views or return deltas.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Payload is the prompt or request body.
	Payload string `json:"payload"`
	// Type classifies the task and selects its workflow.
	Type TaskType `json:"type"`
	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`
	// StructuredOutput indicates the caller requires machine-parseable output.
	StructuredOutput bool `json:"structured_output,omitempty"`
	// Result is the final output payload for completed tasks.
	Result string `json:"result,omitempty"`
	// Partial indicates the result is the best attempt from an exhausted
	// review loop rather than an accepted artifact.
	Partial bool `json:"partial,omitempty"`
	// Error is the structured error envelope for failed or blocked tasks.
	Error *ErrorEnvelope `json:"error,omitempty"`
	// Summary is the human-readable outcome summary.
	Summary string `json:"summary,omitempty"`
	// Decisions is the audit trail of routing decisions made for this task.
	Decisions []*RoutingDecision `json:"decisions,omitempty"`
	// CreatedAt is when the task was submitted.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when a worker dequeued the task.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the task reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
