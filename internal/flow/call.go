package flow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mpieniak01/venom/internal/provider"
	"github.com/mpieniak01/venom/pkg/models"
)

// callBackend makes one governed backend call: route, gate check, invoke
// with the per-call timeout, and report the outcome to the ledger. A
// transient invoke failure (timeout, auth rejection, rate limit, 5xx)
// re-enters the fallback chain at the next candidate; the error surfaces
// only once the chain is exhausted. Every routed attempt appends its own
// step record to the run, so failed candidates stay visible in the trail.
func (c *Coordinator) callBackend(ctx context.Context, run *models.WorkflowRun, task *models.Task, payload string, attempt int, exclude map[string]bool) (string, *models.RoutingDecision, error) {
	excluded := make(map[string]bool, len(exclude))
	for name := range exclude {
		excluded[name] = true
	}

	var failed []string
	var lastErr error

	for {
		decision := c.router.RouteExcluding(task.Type, payload, task.StructuredOutput, excluded)

		// A live failure brought us back here. The follow-up decision
		// carries the failure's fallback code and the full chain so far.
		if decision.Routable() && len(failed) > 0 {
			chain := append([]string(nil), failed...)
			if len(decision.FallbackChain) > 0 {
				chain = append(chain, decision.FallbackChain...)
			} else {
				chain = append(chain, decision.Target)
			}
			decision.FallbackChain = chain
			decision.FallbackApplied = true
			decision.Reason = provider.FallbackReason(lastErr)
		}

		run.Steps = append(run.Steps, models.StepRecord{
			Index:    len(run.Steps),
			Decision: decision,
			Status:   models.StepProcessing,
			Attempt:  attempt,
		})
		step := &run.Steps[len(run.Steps)-1]

		// A decision that failed the policy gate must never reach an adapter.
		if !decision.Routable() {
			step.Status = models.StepFailed
			if lastErr != nil {
				step.Error = lastErr.Error()
				return "", decision, fmt.Errorf("fallback chain exhausted: %w", lastErr)
			}
			step.Error = string(decision.Reason)
			return "", decision, &BlockedError{Decision: decision}
		}

		adapter, ok := c.registry.Adapter(decision.Target)
		if !ok {
			// Governance verified availability moments ago; losing the
			// adapter between then and now is a hot catalog reload. Walk
			// on to the next candidate.
			step.Status = models.StepFailed
			step.Error = "adapter unregistered"
			lastErr = fmt.Errorf("adapter %s unregistered", decision.Target)
			c.governor.ReportFailure(decision.Target, lastErr)
			failed = append(failed, decision.Target)
			excluded[decision.Target] = true
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, c.workflow.CallTimeout)

		c.governor.ReportCall(decision.Target)
		start := time.Now()
		result, err := adapter.Invoke(callCtx, decision.Model, payload)
		cancel()
		step.Duration = time.Since(start)

		if err != nil {
			step.Status = models.StepFailed
			step.Error = err.Error()
			c.governor.ReportFailure(decision.Target, err)
			if !provider.IsTransient(err) {
				return "", decision, err
			}
			log.Printf("[flow] task %s step %d: %s/%s failed (%v), walking to next candidate", task.ID, step.Index, decision.Target, decision.Model, err)
			lastErr = err
			failed = append(failed, decision.Target)
			excluded[decision.Target] = true
			continue
		}

		cost := realizedCost(c.registry, decision, result)
		c.governor.ReportSuccess(decision.Target, cost)

		step.Status = models.StepCompleted
		step.Output = result.Content
		log.Printf("[flow] task %s step %d: %s/%s ok (%.4f USD, %s)", task.ID, step.Index, decision.Target, decision.Model, cost, step.Duration.Round(time.Millisecond))
		return result.Content, decision, nil
	}
}

// realizedCost computes the actual USD cost using reported usage, falling
// back to the routing estimate when the backend reports none.
func realizedCost(reg *provider.Registry, decision *models.RoutingDecision, result *provider.Result) float64 {
	spec, ok := reg.Spec(decision.Target)
	if !ok {
		return decision.EstimatedCost
	}
	if result.Usage == nil || result.Usage.TotalTokens == 0 {
		return decision.EstimatedCost
	}
	return spec.EstimateCost(result.Usage.TotalTokens)
}
