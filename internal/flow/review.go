package flow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/mpieniak01/venom/pkg/models"
)

var codeBlockRe = regexp.MustCompile("(?s)```.+?```")

// reviewFinding is one problem the reviewer found with a candidate output.
type reviewFinding struct {
	Problem string
}

// runReview generates an output, reviews it, and regenerates with the
// findings folded into the prompt until the review passes or the repair
// budget runs out. On exhaustion the best candidate so far is returned
// as a partial result rather than discarded.
func (c *Coordinator) runReview(ctx context.Context, task *models.Task, contextBlob string, run *models.WorkflowRun) (*Outcome, error) {
	basePayload := composePayload(contextBlob, task.Payload)

	var best string
	bestFindings := -1
	var findings []reviewFinding

	attempts := c.workflow.MaxRepairAttempts + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		payload := basePayload
		if len(findings) > 0 {
			payload = repairPayload(basePayload, best, findings)
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
			if best != "" {
				return &Outcome{Result: best, Partial: true, Summary: "repair budget exhausted, returning best attempt", Run: run}, nil
			}
			return &Outcome{Run: run}, err
		}

		findings = reviewOutput(task.Type, output)
		if len(findings) == 0 {
			return &Outcome{
				Result:  output,
				Summary: fmt.Sprintf("passed review on attempt %d via %s", attempt, decision.Target),
				Run:     run,
			}, nil
		}

		if bestFindings < 0 || len(findings) < bestFindings {
			best, bestFindings = output, len(findings)
		}
		log.Printf("[flow] task %s: review attempt %d found %d problem(s)", task.ID, attempt, len(findings))
		run.Retries++
	}

	return &Outcome{
		Result:  best,
		Partial: true,
		Summary: fmt.Sprintf("review never passed after %d attempts, returning best candidate (%d finding(s))", attempts, bestFindings),
		Run:     run,
	}, nil
}

// reviewOutput applies the built-in acceptance checks for a candidate.
func reviewOutput(taskType models.TaskType, output string) []reviewFinding {
	var findings []reviewFinding

	if strings.TrimSpace(output) == "" {
		findings = append(findings, reviewFinding{Problem: "output is empty"})
		return findings
	}

	if taskType == models.TaskTypeCodingSimple || taskType == models.TaskTypeCodingComplex {
		if !codeBlockRe.MatchString(output) {
			findings = append(findings, reviewFinding{Problem: "coding task output contains no code block"})
		}
	}

	upper := strings.ToUpper(output)
	for _, marker := range []string{"TODO", "FIXME", "XXX", "NOT IMPLEMENTED"} {
		if strings.Contains(upper, marker) {
			findings = append(findings, reviewFinding{Problem: fmt.Sprintf("output contains placeholder marker %q", marker)})
		}
	}
	return findings
}

// repairPayload rebuilds the prompt with the previous candidate and the
// reviewer's findings so the next attempt can address them.
func repairPayload(base, previous string, findings []reviewFinding) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nA previous attempt was rejected by review. Previous attempt:\n")
	b.WriteString(previous)
	b.WriteString("\n\nProblems to fix:\n")
	for _, f := range findings {
		b.WriteString("- ")
		b.WriteString(f.Problem)
		b.WriteString("\n")
	}
	b.WriteString("\nProduce a corrected answer that resolves every problem above.")
	return b.String()
}
