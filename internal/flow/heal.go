package flow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mpieniak01/venom/pkg/models"
)

// Validator checks a candidate patch against the failing state. A nil
// error means the patch heals the failure; a non-nil error is the
// diagnostic fed into the next attempt.
type Validator func(ctx context.Context, candidate string) error

// SetValidator installs the validation step for healing cycles. Without
// one, healing falls back to the built-in review checks.
func (c *Coordinator) SetValidator(v Validator) {
	c.validator = v
}

// Heal runs the healing cycle for a task: request a patch for the failing
// state, validate it, and feed the diagnostic back until validation passes
// or the repair budget runs out. No task type maps here; callers invoke it
// explicitly with the failure description in the task payload.
func (c *Coordinator) Heal(ctx context.Context, task *models.Task, contextBlob string) (*Outcome, error) {
	return c.ExecuteWorkflow(ctx, task, contextBlob, models.WorkflowHeal)
}

func (c *Coordinator) runHeal(ctx context.Context, task *models.Task, contextBlob string, run *models.WorkflowRun) (*Outcome, error) {
	basePayload := composePayload(contextBlob, task.Payload)
	validate := c.validator
	if validate == nil {
		validate = func(_ context.Context, candidate string) error {
			if findings := reviewOutput(task.Type, candidate); len(findings) > 0 {
				return errors.New(findings[0].Problem)
			}
			return nil
		}
	}

	var lastCandidate string
	var diagnostic string

	attempts := c.workflow.MaxRepairAttempts + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		payload := basePayload
		if diagnostic != "" {
			payload = healPayload(basePayload, lastCandidate, diagnostic)
		}

		output, decision, err := c.callBackend(ctx, run, task, payload, attempt, nil)
		if err != nil {
			var blocked *BlockedError
			if errors.As(err, &blocked) {
				return &Outcome{Run: run}, err
			}
			if attempt < attempts {
				run.Retries++
				continue
			}
			return &Outcome{Run: run}, err
		}
		lastCandidate = output

		vctx, cancel := context.WithTimeout(ctx, c.workflow.CallTimeout)
		verr := validate(vctx, output)
		cancel()
		if verr == nil {
			return &Outcome{
				Result:  output,
				Summary: fmt.Sprintf("healed on attempt %d via %s", attempt, decision.Target),
				Run:     run,
			}, nil
		}

		diagnostic = verr.Error()
		log.Printf("[flow] task %s: heal attempt %d rejected: %s", task.ID, attempt, diagnostic)
		run.Retries++

		if ctx.Err() != nil {
			return &Outcome{Result: lastCandidate, Partial: true, Summary: "healing cycle ran out of time", Run: run}, ctx.Err()
		}
	}

	return &Outcome{
		Result:  lastCandidate,
		Partial: true,
		Summary: fmt.Sprintf("healing failed after %d attempts: %s", attempts, diagnostic),
		Run:     run,
	}, nil
}

// healPayload rebuilds the prompt with the rejected patch and its diagnostic.
func healPayload(base, previous, diagnostic string) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nThe previous patch did not resolve the failure.\nPrevious patch:\n")
	b.WriteString(previous)
	b.WriteString("\n\nValidation output:\n")
	b.WriteString(diagnostic)
	b.WriteString("\n\nProduce a corrected patch that makes validation pass.")
	return b.String()
}
