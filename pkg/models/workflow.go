package models

import "time"

// WorkflowKind identifies which execution workflow the coordinator runs.
type WorkflowKind string

const (
	// WorkflowDirect is a single routed backend call.
	WorkflowDirect WorkflowKind = "direct"
	// WorkflowCouncil runs parallel calls to distinct backends and aggregates.
	WorkflowCouncil WorkflowKind = "council"
	// WorkflowReview is the generate-review-regenerate loop for code.
	WorkflowReview WorkflowKind = "review"
	// WorkflowHeal is the patch-validate repair cycle for a failing artifact.
	WorkflowHeal WorkflowKind = "heal"
	// WorkflowCampaign is a checkpointed sequence of milestone steps.
	WorkflowCampaign WorkflowKind = "campaign"
)

// Valid returns true if the workflow kind is a known value.
func (k WorkflowKind) Valid() bool {
	switch k {
	case WorkflowDirect, WorkflowCouncil, WorkflowReview, WorkflowHeal, WorkflowCampaign:
		return true
	default:
		return false
	}
}

// WorkflowForType maps a task type to its workflow. The mapping is a closed
// table; unknown types fall through to direct so a malformed task still has
// defined behavior.
func WorkflowForType(t TaskType) WorkflowKind {
	switch t {
	case TaskTypeChat, TaskTypeStandard, TaskTypeSensitive:
		return WorkflowDirect
	case TaskTypeAnalysis, TaskTypeGeneration:
		return WorkflowCouncil
	case TaskTypeCodingSimple:
		return WorkflowDirect
	case TaskTypeCodingComplex:
		return WorkflowReview
	case TaskTypeResearch:
		return WorkflowCampaign
	default:
		return WorkflowDirect
	}
}

// StepStatus is the state of a single workflow step.
type StepStatus string

const (
	// StepProcessing indicates the step's backend call is in flight.
	StepProcessing StepStatus = "processing"
	// StepCompleted indicates the step succeeded.
	StepCompleted StepStatus = "completed"
	// StepFailed indicates the step failed.
	StepFailed StepStatus = "failed"
)

// StepRecord captures one backend call inside a workflow run.
type StepRecord struct {
	// Index is the zero-based step position.
	Index int `json:"index"`
	// Decision is the routing decision that backed this step.
	Decision *RoutingDecision `json:"decision,omitempty"`
	// Status is the step outcome.
	Status StepStatus `json:"status"`
	// Output is the step's result payload, if any.
	Output string `json:"output,omitempty"`
	// Error is the step error message, if any.
	Error string `json:"error,omitempty"`
	// Attempt is the retry attempt this step belongs to (1-indexed).
	Attempt int `json:"attempt,omitempty"`
	// Duration is the wall-clock time of the backend call.
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// WorkflowRun is the transient record of one coordinator execution.
// It is owned by the flow coordinator and attached to the task outcome
// as the diagnostic trail.
type WorkflowRun struct {
	// TaskID is the task this run belongs to.
	TaskID string `json:"task_id"`
	// Kind is the workflow that was executed.
	Kind WorkflowKind `json:"kind"`
	// Steps is the ordered list of backend calls made.
	Steps []StepRecord `json:"steps"`
	// Retries counts regenerate/repair attempts beyond the first.
	Retries int `json:"retries"`
	// Escalated indicates a council run fell back to direct.
	Escalated bool `json:"escalated,omitempty"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`
}

// ActiveSteps returns the number of steps still processing. A task must
// never complete while this is non-zero.
func (r *WorkflowRun) ActiveSteps() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StepProcessing {
			n++
		}
	}
	return n
}

// ReasonTrail returns the ordered reason codes from every step decision,
// sufficient to reconstruct the routing path.
func (r *WorkflowRun) ReasonTrail() []ReasonCode {
	trail := make([]ReasonCode, 0, len(r.Steps))
	for _, s := range r.Steps {
		if s.Decision != nil {
			trail = append(trail, s.Decision.Reason)
		}
	}
	return trail
}
