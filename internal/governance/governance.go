// Package governance enforces routing decisions against provider health,
// rate limits, and budgets, walking the ordered fallback chain until a
// candidate passes every check and the policy gate, or the chain is exhausted.
package governance

import (
	"log"
	"sort"

	"github.com/mpieniak01/venom/internal/ledger"
	"github.com/mpieniak01/venom/internal/policy"
	"github.com/mpieniak01/venom/internal/provider"
	"github.com/mpieniak01/venom/pkg/models"
)

// Governor applies the fallback chain to tentative routing decisions and
// records call outcomes back into the ledger.
type Governor struct {
	registry *provider.Registry
	ledger   *ledger.Ledger
	gate     *policy.Gate
}

// New creates a Governor over the given registry, ledger, and policy gate.
func New(registry *provider.Registry, led *ledger.Ledger, gate *policy.Gate) *Governor {
	return &Governor{
		registry: registry,
		ledger:   led,
		gate:     gate,
	}
}

// Ledger exposes the governed ledger for the router's tie-break rule.
func (g *Governor) Ledger() *ledger.Ledger {
	return g.ledger
}

// Enforce walks the ordered candidate list for the decision's class and
// finalizes the target. It mutates target, model, cost, and reason fields,
// never the complexity score or sensitivity flag. When the chain is
// exhausted the returned decision has an empty target and reason
// POLICY_BLOCKED_NO_PROVIDER; callers must not retry the same chain.
func (g *Governor) Enforce(decision *models.RoutingDecision, payload string) *models.RoutingDecision {
	return g.EnforceExcluding(decision, payload, nil)
}

// EnforceExcluding is Enforce with a set of provider names removed from the
// walk. Council workflows use it to pin each seat to a distinct backend.
// Excluded providers do not count as rejected candidates.
func (g *Governor) EnforceExcluding(decision *models.RoutingDecision, payload string, exclude map[string]bool) *models.RoutingDecision {
	// A payload-level content block cannot be cured by any candidate.
	if g.gate.ContentBlocked(payload) {
		decision.Target = ""
		decision.Model = ""
		decision.PolicyGatePassed = false
		decision.Reason = models.ReasonPolicyBlockedContent
		return decision
	}

	candidates := g.orderedCandidates(decision)
	if len(candidates) == 0 {
		decision.Target = ""
		decision.Model = ""
		decision.PolicyGatePassed = false
		decision.Reason = models.ReasonPolicyBlockedNoProvider
		return decision
	}

	routingReason := decision.Reason
	var firstRejection models.ReasonCode
	var attempted []string

	reject := func(name string, reason models.ReasonCode) {
		attempted = append(attempted, name)
		if firstRejection == "" {
			firstRejection = reason
		}
		log.Printf("[governance] candidate %s rejected: %s", name, reason)
	}

	for _, spec := range candidates {
		if exclude[spec.Name] {
			continue
		}

		// Circuit breaker: skip without a live check while the breaker is open.
		if g.ledger.CircuitOpen(spec.Name) {
			reject(spec.Name, models.ReasonFallbackProviderDegraded)
			continue
		}

		// Credential/availability: a provider without a registered adapter
		// is offline for routing purposes.
		if _, ok := g.registry.Adapter(spec.Name); !ok {
			reject(spec.Name, models.ReasonFallbackProviderOffline)
			continue
		}

		// Rate-limit window.
		if !g.ledger.RateAllows(spec.Name) {
			reject(spec.Name, models.ReasonFallbackRateLimit)
			continue
		}

		// Budget remaining.
		cost := spec.EstimateCost(estimateTokens(payload))
		if cost > 0 && !g.ledger.BudgetAllows(spec.Name, cost) {
			reject(spec.Name, models.ReasonFallbackBudgetExceeded)
			continue
		}

		// Tentatively finalize, then let the policy gate veto. A gate block
		// re-enters the chain at the next candidate rather than terminating.
		decision.Target = spec.Name
		decision.Model = spec.Model
		decision.Class = spec.Class
		decision.EstimatedCost = cost
		decision.RemainingBudget = g.ledger.BudgetRemaining(spec.Name)

		if g.gate.Evaluate(decision, payload) == policy.Block {
			reject(spec.Name, decision.Reason)
			continue
		}

		// Accepted.
		if len(attempted) > 0 {
			decision.FallbackApplied = true
			decision.FallbackChain = append(attempted, spec.Name)
			decision.Reason = firstRejection
		} else {
			decision.FallbackApplied = false
			decision.Reason = routingReason
		}
		return decision
	}

	decision.Target = ""
	decision.Model = ""
	decision.EstimatedCost = 0
	decision.PolicyGatePassed = false
	decision.FallbackApplied = true
	decision.FallbackChain = attempted
	decision.Reason = models.ReasonPolicyBlockedNoProvider
	return decision
}

// orderedCandidates returns the fallback walk order for a decision.
// Local candidates keep their catalog priority. Remote candidates are
// ordered by cost estimate, ties broken by the lower consecutive-failure
// counter. Remote walks fall through to the local chain so a spent budget
// degrades to cost-free backends instead of blocking; local walks never
// escalate to remote.
func (g *Governor) orderedCandidates(decision *models.RoutingDecision) []provider.Spec {
	if decision.Class == models.ClassLocal {
		return g.registry.Candidates(models.ClassLocal)
	}

	remote := g.registry.Candidates(models.ClassRemote)
	sort.SliceStable(remote, func(i, j int) bool {
		ci, cj := remote[i].CostPer1K, remote[j].CostPer1K
		if ci != cj {
			return ci < cj
		}
		return g.ledger.ConsecutiveFailures(remote[i].Name) < g.ledger.ConsecutiveFailures(remote[j].Name)
	})

	return append(remote, g.registry.Candidates(models.ClassLocal)...)
}

// ReportSuccess records a successful call and its realized cost.
func (g *Governor) ReportSuccess(providerName string, costUSD float64) {
	g.ledger.RecordSuccess(providerName)
	g.ledger.Spend(providerName, costUSD)
}

// ReportFailure records a failed call. Timeouts count identically to
// provider failures for circuit-breaker purposes.
func (g *Governor) ReportFailure(providerName string, err error) {
	g.ledger.RecordFailure(providerName)
	log.Printf("[governance] provider %s call failed: %v", providerName, err)
}

// ReportCall records a call attempt against the rate window. Called at
// dispatch time, before the outcome is known.
func (g *Governor) ReportCall(providerName string) {
	g.ledger.RecordCall(providerName)
}

// estimateTokens projects the token footprint of a call for cost checks:
// a rough four characters per prompt token plus completion headroom.
func estimateTokens(payload string) int {
	return len(payload)/4 + 1024
}
