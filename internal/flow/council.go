package flow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mpieniak01/venom/pkg/models"
)

// runCouncil consults up to council.Size distinct backends in parallel and
// returns the majority answer. Each seat carries its own routing decision
// and its own per-call timeout, so one slow backend cannot block the rest.
// If fewer than the quorum agree, the council escalates to a direct call
// instead of failing.
func (c *Coordinator) runCouncil(ctx context.Context, task *models.Task, contextBlob string, run *models.WorkflowRun) (*Outcome, error) {
	payload := composePayload(contextBlob, task.Payload)

	// Pre-route every seat sequentially, excluding already-claimed targets
	// so seats land on distinct backends. Seats that cannot route are
	// dropped; the quorum check below handles a shrunken council.
	exclude := make(map[string]bool)
	var seats []*models.RoutingDecision
	for i := 0; i < c.council.Size; i++ {
		decision := c.router.RouteExcluding(task.Type, payload, task.StructuredOutput, exclude)
		if !decision.Routable() {
			break
		}
		exclude[decision.Target] = true
		seats = append(seats, decision)
	}

	if len(seats) == 0 {
		decision := c.router.Route(task.Type, payload, task.StructuredOutput)
		run.Steps = append(run.Steps, models.StepRecord{
			Index:    0,
			Decision: decision,
			Status:   models.StepFailed,
			Error:    string(decision.Reason),
			Attempt:  1,
		})
		return &Outcome{Run: run}, &BlockedError{Decision: decision}
	}

	// One step record per seat, written by index from the seat goroutines.
	base := len(run.Steps)
	for i, decision := range seats {
		run.Steps = append(run.Steps, models.StepRecord{
			Index:    base + i,
			Decision: decision,
			Status:   models.StepProcessing,
			Attempt:  1,
		})
	}

	type seatResult struct {
		index  int
		output string
		err    error
		// failures is the seat provider's failure streak going into the
		// call, read before the call so the seat's own outcome cannot
		// reset it. Tie-break input for the aggregation below.
		failures int
	}

	results := make([]seatResult, len(seats))
	sem := make(chan struct{}, c.council.MaxConcurrency)
	var wg sync.WaitGroup

	for i, decision := range seats {
		wg.Add(1)
		go func(i int, decision *models.RoutingDecision) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			step := &run.Steps[base+i]
			streak := c.governor.Ledger().ConsecutiveFailures(decision.Target)
			adapter, ok := c.registry.Adapter(decision.Target)
			if !ok {
				step.Status = models.StepFailed
				step.Error = "adapter unregistered"
				results[i] = seatResult{index: i, err: fmt.Errorf("adapter %s unregistered", decision.Target)}
				return
			}

			callCtx, cancel := context.WithTimeout(ctx, c.workflow.CallTimeout)
			defer cancel()

			c.governor.ReportCall(decision.Target)
			start := time.Now()
			result, err := adapter.Invoke(callCtx, decision.Model, payload)
			step.Duration = time.Since(start)

			if err != nil {
				step.Status = models.StepFailed
				step.Error = err.Error()
				c.governor.ReportFailure(decision.Target, err)
				results[i] = seatResult{index: i, err: err}
				return
			}

			c.governor.ReportSuccess(decision.Target, realizedCost(c.registry, decision, result))
			step.Status = models.StepCompleted
			step.Output = result.Content
			results[i] = seatResult{index: i, output: result.Content, failures: streak}
		}(i, decision)
	}
	wg.Wait()

	// Aggregate: most frequent normalized answer among successes. Ties go
	// to the answer backed by the seat with the lowest failure streak,
	// then lexicographically for determinism.
	counts := make(map[string]int)
	representative := make(map[string]string)
	bestStreak := make(map[string]int)
	successes := 0
	for _, r := range results {
		if r.err != nil {
			continue
		}
		successes++
		key := normalizeAnswer(r.output)
		counts[key]++
		if _, ok := representative[key]; !ok {
			representative[key] = r.output
			bestStreak[key] = r.failures
		} else if r.failures < bestStreak[key] {
			bestStreak[key] = r.failures
		}
	}

	quorum := c.quorum()
	bestKey, bestCount := "", 0
	for key, n := range counts {
		switch {
		case n > bestCount:
		case n == bestCount && bestStreak[key] < bestStreak[bestKey]:
		case n == bestCount && bestStreak[key] == bestStreak[bestKey] && key < bestKey:
		default:
			continue
		}
		bestKey, bestCount = key, n
	}

	if bestCount >= quorum {
		return &Outcome{
			Result:  representative[bestKey],
			Summary: fmt.Sprintf("council consensus: %d/%d seats agreed", bestCount, len(seats)),
			Run:     run,
		}, nil
	}

	// Quorum failed: escalate to direct rather than throwing.
	log.Printf("[flow] task %s: council quorum failed (%d successes, need %d agreeing), escalating to direct", task.ID, successes, quorum)
	run.Escalated = true

	output, decision, err := c.callBackend(ctx, run, task, payload, 2, nil)
	if err != nil {
		return &Outcome{Run: run}, err
	}
	return &Outcome{
		Result:  output,
		Summary: fmt.Sprintf("council escalated to direct via %s", decision.Target),
		Run:     run,
	}, nil
}

// quorum returns the configured quorum, defaulting to a strict majority of
// the council size.
func (c *Coordinator) quorum() int {
	if c.council.Quorum > 0 {
		return c.council.Quorum
	}
	return c.council.Size/2 + 1
}

// normalizeAnswer canonicalizes an output for consensus comparison:
// lowercase with collapsed whitespace.
func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
