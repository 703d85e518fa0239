package flow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mpieniak01/venom/pkg/models"
)

// runCampaign splits the payload into milestones and executes them in
// order, each milestone seeing the outputs of the ones before it. Progress
// is checkpointed after every milestone so a restarted campaign resumes
// from its last completed one instead of starting over.
func (c *Coordinator) runCampaign(ctx context.Context, task *models.Task, contextBlob string, run *models.WorkflowRun) (*Outcome, error) {
	milestones := splitMilestones(task.Payload)
	if len(milestones) == 0 {
		return c.runDirect(ctx, task, contextBlob, run)
	}

	completed := 0
	var outputs []string
	if c.checkpoints != nil {
		n, prior, err := c.checkpoints.LoadCheckpoint(task.ID)
		if err != nil {
			log.Printf("[flow] task %s: checkpoint load failed, starting fresh: %v", task.ID, err)
		} else if n > 0 && n <= len(milestones) && len(prior) == n {
			completed, outputs = n, prior
			log.Printf("[flow] task %s: resuming campaign at milestone %d/%d", task.ID, completed+1, len(milestones))
		}
	}

	for i := completed; i < len(milestones); i++ {
		payload := composePayload(contextBlob, milestonePayload(milestones, outputs, i))

		output, _, err := c.callBackend(ctx, run, task, payload, 1, nil)
		if err != nil {
			partial := strings.Join(outputs, "\n\n")
			var blocked *BlockedError
			if errors.As(err, &blocked) {
				return &Outcome{Result: partial, Partial: partial != "", Run: run}, err
			}
			return &Outcome{
				Result:  partial,
				Partial: partial != "",
				Summary: fmt.Sprintf("campaign stopped at milestone %d/%d", i+1, len(milestones)),
				Run:     run,
			}, err
		}

		outputs = append(outputs, output)
		if c.checkpoints != nil {
			if cerr := c.checkpoints.SaveCheckpoint(task.ID, i+1, outputs); cerr != nil {
				log.Printf("[flow] task %s: checkpoint save failed at milestone %d: %v", task.ID, i+1, cerr)
			}
		}
	}

	return &Outcome{
		Result:  strings.Join(outputs, "\n\n"),
		Summary: fmt.Sprintf("campaign completed %d milestone(s)", len(milestones)),
		Run:     run,
	}, nil
}

// splitMilestones extracts ordered milestones from a campaign payload.
// Numbered lines ("1. ...") and dashed bullets ("- ...") are milestones;
// a payload with fewer than two is treated as a single direct task.
func splitMilestones(payload string) []string {
	var milestones []string
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m, ok := stripMilestoneMarker(line); ok {
			milestones = append(milestones, m)
		}
	}
	if len(milestones) < 2 {
		return nil
	}
	return milestones
}

func stripMilestoneMarker(line string) (string, bool) {
	if rest, ok := strings.CutPrefix(line, "- "); ok {
		return strings.TrimSpace(rest), true
	}
	if rest, ok := strings.CutPrefix(line, "* "); ok {
		return strings.TrimSpace(rest), true
	}
	for i := 0; i < len(line); i++ {
		if line[i] >= '0' && line[i] <= '9' {
			continue
		}
		if i > 0 && (line[i] == '.' || line[i] == ')') {
			return strings.TrimSpace(line[i+1:]), true
		}
		break
	}
	return "", false
}

// milestonePayload builds the prompt for milestone i, carrying the outputs
// of earlier milestones as working context.
func milestonePayload(milestones, outputs []string, i int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This is milestone %d of %d in a larger campaign.\n", i+1, len(milestones))
	if len(outputs) > 0 {
		b.WriteString("\nCompleted milestones:\n")
		for j, out := range outputs {
			fmt.Fprintf(&b, "%d. %s\nResult:\n%s\n\n", j+1, milestones[j], out)
		}
	}
	fmt.Fprintf(&b, "\nCurrent milestone:\n%s", milestones[i])
	return b.String()
}
