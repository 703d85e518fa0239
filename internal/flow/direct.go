package flow

import (
	"context"
	"fmt"

	"github.com/mpieniak01/venom/pkg/models"
)

// runDirect makes a single routed backend call.
func (c *Coordinator) runDirect(ctx context.Context, task *models.Task, contextBlob string, run *models.WorkflowRun) (*Outcome, error) {
	payload := composePayload(contextBlob, task.Payload)

	output, decision, err := c.callBackend(ctx, run, task, payload, 1, nil)
	if err != nil {
		return &Outcome{Run: run}, err
	}

	return &Outcome{
		Result:  output,
		Summary: fmt.Sprintf("answered directly via %s (%s)", decision.Target, decision.Reason),
		Run:     run,
	}, nil
}
