package models

import "time"

// BackendClass groups providers by where they run.
type BackendClass string

const (
	// ClassLocal is a backend running on operator-controlled hardware.
	ClassLocal BackendClass = "local"
	// ClassRemote is a paid hosted backend.
	ClassRemote BackendClass = "remote"
)

// Valid returns true if the class is a known value.
func (c BackendClass) Valid() bool {
	return c == ClassLocal || c == ClassRemote
}

// ReasonCode explains why a routing decision landed where it did.
// The set is closed; every decision carries exactly one code.
type ReasonCode string

const (
	// ReasonDefaultEcoMode means paid routing is disabled and the task went
	// to the ordered local backend list.
	ReasonDefaultEcoMode ReasonCode = "DEFAULT_ECO_MODE"
	// ReasonComplexityLow means the complexity score fell below the paid
	// threshold, so local backends were preferred even under paid mode.
	ReasonComplexityLow ReasonCode = "TASK_COMPLEXITY_LOW"
	// ReasonComplexityHigh means the score met the paid threshold and remote
	// backends were preferred by cost.
	ReasonComplexityHigh ReasonCode = "TASK_COMPLEXITY_HIGH"
	// ReasonSensitiveOverride means sensitive content forced local routing.
	// This override is absolute and evaluated before every other rule.
	ReasonSensitiveOverride ReasonCode = "SENSITIVE_CONTENT_OVERRIDE"
	// ReasonFallbackTimeout means the preferred backend timed out.
	ReasonFallbackTimeout ReasonCode = "FALLBACK_TIMEOUT"
	// ReasonFallbackAuthError means the preferred backend rejected credentials.
	ReasonFallbackAuthError ReasonCode = "FALLBACK_AUTH_ERROR"
	// ReasonFallbackBudgetExceeded means the preferred backend's budget is spent.
	ReasonFallbackBudgetExceeded ReasonCode = "FALLBACK_BUDGET_EXCEEDED"
	// ReasonFallbackProviderDegraded means the circuit breaker skipped a backend.
	ReasonFallbackProviderDegraded ReasonCode = "FALLBACK_PROVIDER_DEGRADED"
	// ReasonFallbackProviderOffline means the backend is unreachable or unconfigured.
	ReasonFallbackProviderOffline ReasonCode = "FALLBACK_PROVIDER_OFFLINE"
	// ReasonFallbackRateLimit means the backend's rate window is saturated.
	ReasonFallbackRateLimit ReasonCode = "FALLBACK_RATE_LIMIT"
	// ReasonPolicyBlockedBudget means the policy gate rejected the call cost.
	ReasonPolicyBlockedBudget ReasonCode = "POLICY_BLOCKED_BUDGET"
	// ReasonPolicyBlockedRateLimit means policy rejected for rate limiting.
	ReasonPolicyBlockedRateLimit ReasonCode = "POLICY_BLOCKED_RATE_LIMIT"
	// ReasonPolicyBlockedNoProvider means the entire fallback chain was
	// exhausted. Terminal for the call; the caller must not retry the chain.
	ReasonPolicyBlockedNoProvider ReasonCode = "POLICY_BLOCKED_NO_PROVIDER"
	// ReasonPolicyBlockedContent means organization content rules blocked the call.
	ReasonPolicyBlockedContent ReasonCode = "POLICY_BLOCKED_CONTENT"
)

// Valid returns true if the reason code is a member of the closed set.
func (r ReasonCode) Valid() bool {
	switch r {
	case ReasonDefaultEcoMode, ReasonComplexityLow, ReasonComplexityHigh,
		ReasonSensitiveOverride, ReasonFallbackTimeout, ReasonFallbackAuthError,
		ReasonFallbackBudgetExceeded, ReasonFallbackProviderDegraded,
		ReasonFallbackProviderOffline, ReasonFallbackRateLimit,
		ReasonPolicyBlockedBudget, ReasonPolicyBlockedRateLimit,
		ReasonPolicyBlockedNoProvider, ReasonPolicyBlockedContent:
		return true
	default:
		return false
	}
}

// Blocking returns true for reason codes that block the task rather than
// redirect it. Blocking codes surface to the caller; fallback codes do not.
func (r ReasonCode) Blocking() bool {
	switch r {
	case ReasonPolicyBlockedNoProvider, ReasonPolicyBlockedContent:
		return true
	default:
		return false
	}
}

// RoutingDecision is the immutable record of a single backend selection.
// A fresh decision is created per backend call; decisions are never reused
// across retries.
type RoutingDecision struct {
	// Target is the selected provider name, empty when the chain is exhausted.
	Target string `json:"target"`
	// Model is the selected model name on the target provider.
	Model string `json:"model,omitempty"`
	// Class is the backend class the chain was walked for.
	Class BackendClass `json:"class"`
	// Reason is the closed-set reason code for this decision.
	Reason ReasonCode `json:"reason"`
	// ComplexityScore is the computed task complexity in [0,10].
	ComplexityScore float64 `json:"complexity_score"`
	// Sensitive indicates the payload matched a sensitive pattern.
	Sensitive bool `json:"sensitive"`
	// FallbackApplied indicates the first candidate was not accepted.
	FallbackApplied bool `json:"fallback_applied"`
	// FallbackChain lists the candidates rejected before Target, in order.
	FallbackChain []string `json:"fallback_chain,omitempty"`
	// PolicyGatePassed indicates the policy gate allowed the final target.
	// A decision with PolicyGatePassed=false must never reach an adapter.
	PolicyGatePassed bool `json:"policy_gate_passed"`
	// EstimatedCost is the projected cost of the call in USD.
	EstimatedCost float64 `json:"estimated_cost"`
	// RemainingBudget is the target provider's remaining daily budget in USD.
	RemainingBudget float64 `json:"remaining_budget"`
	// Latency is how long the routing decision took.
	Latency time.Duration `json:"latency_ns"`
	// Timestamp is when the decision was made.
	Timestamp time.Time `json:"timestamp"`
}

// Routable returns true if the decision may be handed to a provider adapter.
func (d *RoutingDecision) Routable() bool {
	return d != nil && d.Target != "" && d.PolicyGatePassed
}
