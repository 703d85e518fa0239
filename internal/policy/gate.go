// Package policy implements the stateless policy gate that validates
// routing decisions against privacy, budget, and content rules.
package policy

import (
	"strings"

	"github.com/mpieniak01/venom/pkg/models"
)

// Verdict is the outcome of a gate evaluation.
type Verdict int

const (
	// Allow permits the decision to proceed to the adapter.
	Allow Verdict = iota
	// Block rejects the decision's current target.
	Block
)

// String returns a human-readable representation of the verdict.
func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Block:
		return "block"
	default:
		return "unknown"
	}
}

// Gate evaluates routing decisions against a fixed-order rule list.
// It holds configuration only; evaluation is stateless.
type Gate struct {
	// maxCallCostUSD is the per-call cost ceiling. Zero disables the rule.
	maxCallCostUSD float64
	// blockedContent lists organization-level content restrictions,
	// matched case-insensitively against the payload.
	blockedContent []string
}

// NewGate creates a policy gate with the given limits.
func NewGate(maxCallCostUSD float64, blockedContent []string) *Gate {
	lowered := make([]string, 0, len(blockedContent))
	for _, c := range blockedContent {
		c = strings.TrimSpace(strings.ToLower(c))
		if c != "" {
			lowered = append(lowered, c)
		}
	}
	return &Gate{
		maxCallCostUSD: maxCallCostUSD,
		blockedContent: lowered,
	}
}

// Evaluate checks the decision's current target against the rules in fixed
// order (first match wins): sensitivity-must-stay-local, per-call cost
// ceiling, content restrictions. It updates PolicyGatePassed and, on a
// block, the reason code, in place.
func (g *Gate) Evaluate(decision *models.RoutingDecision, payload string) Verdict {
	// Rule 1: sensitive payloads never leave local-class backends.
	if decision.Sensitive && decision.Class != models.ClassLocal {
		decision.PolicyGatePassed = false
		decision.Reason = models.ReasonPolicyBlockedContent
		return Block
	}

	// Rule 2: per-call cost ceiling.
	if g.maxCallCostUSD > 0 && decision.EstimatedCost > g.maxCallCostUSD {
		decision.PolicyGatePassed = false
		decision.Reason = models.ReasonPolicyBlockedBudget
		return Block
	}

	// Rule 3: organization content restrictions.
	if g.matchesBlockedContent(payload) {
		decision.PolicyGatePassed = false
		decision.Reason = models.ReasonPolicyBlockedContent
		return Block
	}

	decision.PolicyGatePassed = true
	return Allow
}

// ContentBlocked reports whether the payload alone trips the content rules,
// independent of any candidate. Governance uses this to short-circuit the
// fallback walk: no candidate can pass a payload-level block.
func (g *Gate) ContentBlocked(payload string) bool {
	return g.matchesBlockedContent(payload)
}

func (g *Gate) matchesBlockedContent(payload string) bool {
	if len(g.blockedContent) == 0 {
		return false
	}
	lowered := strings.ToLower(payload)
	for _, c := range g.blockedContent {
		if strings.Contains(lowered, c) {
			return true
		}
	}
	return false
}
