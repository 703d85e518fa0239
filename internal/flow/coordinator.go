// Package flow selects and runs execution workflows: direct, council,
// review loop, healing cycle, and campaign. Every backend call inside a
// workflow is wrapped by a router lookup and governed fallback.
package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/mpieniak01/venom/internal/config"
	"github.com/mpieniak01/venom/internal/governance"
	"github.com/mpieniak01/venom/internal/provider"
	"github.com/mpieniak01/venom/internal/router"
	"github.com/mpieniak01/venom/pkg/models"
)

// BlockedError signals that routing policy rejected a call with no viable
// fallback. The orchestrator maps it to the BLOCKED task state.
type BlockedError struct {
	// Decision is the exhausted routing decision, carrying the reason code
	// and the fallback chain attempted.
	Decision *models.RoutingDecision
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("routing blocked: %s (chain: %v)", e.Decision.Reason, e.Decision.FallbackChain)
}

// CheckpointStore persists campaign progress so a campaign resumes from
// its last completed milestone after a restart.
type CheckpointStore interface {
	// SaveCheckpoint records that milestones [0, completed) are done.
	SaveCheckpoint(taskID string, completed int, outputs []string) error
	// LoadCheckpoint returns the completed milestone count and their outputs.
	// A task with no checkpoint returns (0, nil, nil).
	LoadCheckpoint(taskID string) (int, []string, error)
}

// Outcome is the result of one workflow execution.
type Outcome struct {
	// Result is the final output payload.
	Result string
	// Partial indicates the result is the best attempt from an exhausted
	// loop rather than an accepted artifact.
	Partial bool
	// Summary is the human-readable outcome line.
	Summary string
	// Run is the full diagnostic trail.
	Run *models.WorkflowRun
}

// Coordinator runs workflows for the orchestrator.
type Coordinator struct {
	router      *router.Router
	governor    *governance.Governor
	registry    *provider.Registry
	checkpoints CheckpointStore
	validator   Validator

	council  config.CouncilConfig
	workflow config.WorkflowConfig
}

// New creates a Coordinator. checkpoints may be nil, in which case campaign
// workflows run without persistence.
func New(rt *router.Router, gov *governance.Governor, reg *provider.Registry, council config.CouncilConfig, workflow config.WorkflowConfig, checkpoints CheckpointStore) *Coordinator {
	if workflow.MaxRepairAttempts <= 0 {
		workflow.MaxRepairAttempts = 3
	}
	if workflow.WallClockBudget <= 0 {
		workflow.WallClockBudget = 10 * time.Minute
	}
	if workflow.CallTimeout <= 0 {
		workflow.CallTimeout = 2 * time.Minute
	}
	if council.Size <= 0 {
		council.Size = 3
	}
	if council.MaxConcurrency <= 0 || council.MaxConcurrency > council.Size {
		council.MaxConcurrency = council.Size
	}
	return &Coordinator{
		router:      rt,
		governor:    gov,
		registry:    reg,
		checkpoints: checkpoints,
		council:     council,
		workflow:    workflow,
	}
}

// Execute selects the workflow for the task's type and runs it under the
// workflow wall-clock budget. Exceeding the budget or the attempt ceiling
// ends the workflow with an error carrying the accumulated trail.
func (c *Coordinator) Execute(ctx context.Context, task *models.Task, contextBlob string) (*Outcome, error) {
	kind := models.WorkflowForType(task.Type)
	return c.ExecuteWorkflow(ctx, task, contextBlob, kind)
}

// ExecuteWorkflow runs a specific workflow kind for the task. The healing
// cycle is reachable only through this entry point (or Heal) since no task
// type maps to it directly.
func (c *Coordinator) ExecuteWorkflow(ctx context.Context, task *models.Task, contextBlob string, kind models.WorkflowKind) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.workflow.WallClockBudget)
	defer cancel()

	run := &models.WorkflowRun{
		TaskID:    task.ID,
		Kind:      kind,
		StartedAt: time.Now(),
	}
	defer func() { run.FinishedAt = time.Now() }()

	switch kind {
	case models.WorkflowDirect:
		return c.runDirect(ctx, task, contextBlob, run)
	case models.WorkflowCouncil:
		return c.runCouncil(ctx, task, contextBlob, run)
	case models.WorkflowReview:
		return c.runReview(ctx, task, contextBlob, run)
	case models.WorkflowHeal:
		return c.runHeal(ctx, task, contextBlob, run)
	case models.WorkflowCampaign:
		return c.runCampaign(ctx, task, contextBlob, run)
	default:
		return nil, fmt.Errorf("unknown workflow kind %q", kind)
	}
}

// composePayload joins the session context blob with the task payload.
func composePayload(contextBlob, payload string) string {
	if contextBlob == "" {
		return payload
	}
	return contextBlob + "\n\n" + payload
}
