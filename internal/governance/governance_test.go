package governance

import (
	"errors"
	"testing"

	"github.com/mpieniak01/venom/internal/ledger"
	"github.com/mpieniak01/venom/internal/policy"
	"github.com/mpieniak01/venom/internal/provider"
	"github.com/mpieniak01/venom/pkg/models"
)

func testGovernor(t *testing.T, gate *policy.Gate, specs []provider.Spec, registered ...string) (*Governor, *ledger.Ledger) {
	t.Helper()

	registry := provider.NewRegistry(specs)
	for _, name := range registered {
		if err := registry.Register(name, provider.NewMockAdapter(name)); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	led := ledger.New(ledger.Options{DailyBudgetUSD: 25, RateLimit: 5})
	if gate == nil {
		gate = policy.NewGate(0, nil)
	}
	return New(registry, led, gate), led
}

func remoteSpecs() []provider.Spec {
	return []provider.Spec{
		{Name: "cheap", Class: models.ClassRemote, Model: "m1", CostPer1K: 0.002},
		{Name: "pricey", Class: models.ClassRemote, Model: "m2", CostPer1K: 0.01},
	}
}

func remoteDecision() *models.RoutingDecision {
	return &models.RoutingDecision{Class: models.ClassRemote, Reason: models.ReasonComplexityHigh}
}

func TestEnforceAcceptsFirstHealthyCandidate(t *testing.T) {
	g, _ := testGovernor(t, nil, remoteSpecs(), "cheap", "pricey")

	d := g.Enforce(remoteDecision(), "payload")
	if d.Target != "cheap" || d.Model != "m1" {
		t.Errorf("target = %s/%s, want cheap/m1", d.Target, d.Model)
	}
	if d.FallbackApplied || len(d.FallbackChain) != 0 {
		t.Errorf("no fallback expected, got chain %v", d.FallbackChain)
	}
	if d.Reason != models.ReasonComplexityHigh {
		t.Errorf("routing reason must be preserved, got %s", d.Reason)
	}
}

func TestOpenCircuitSkipsCandidate(t *testing.T) {
	g, led := testGovernor(t, nil, remoteSpecs(), "cheap", "pricey")
	for i := 0; i < 3; i++ {
		led.RecordFailure("cheap")
	}

	d := g.Enforce(remoteDecision(), "payload")
	if d.Target != "pricey" {
		t.Fatalf("target = %q, want pricey", d.Target)
	}
	if d.Reason != models.ReasonFallbackProviderDegraded {
		t.Errorf("reason = %s, want %s", d.Reason, models.ReasonFallbackProviderDegraded)
	}
}

func TestRateLimitedCandidateSkipped(t *testing.T) {
	g, led := testGovernor(t, nil, remoteSpecs(), "cheap", "pricey")
	for i := 0; i < 5; i++ {
		led.RecordCall("cheap")
	}

	d := g.Enforce(remoteDecision(), "payload")
	if d.Target != "pricey" {
		t.Fatalf("target = %q, want pricey", d.Target)
	}
	if d.Reason != models.ReasonFallbackRateLimit {
		t.Errorf("reason = %s, want %s", d.Reason, models.ReasonFallbackRateLimit)
	}
}

func TestGateVetoContinuesChain(t *testing.T) {
	// The remote passes every health check but trips the per-call cost
	// ceiling; the walk continues into the local fallthrough instead of
	// terminating.
	specs := []provider.Spec{
		{Name: "pricey", Class: models.ClassRemote, Model: "m2", CostPer1K: 10.0},
		{Name: "ollama", Class: models.ClassLocal, Model: "llama3.1:8b"},
	}
	gate := policy.NewGate(9.0, nil)
	g, _ := testGovernor(t, gate, specs, "pricey", "ollama")

	d := g.Enforce(remoteDecision(), "payload")
	if d.Target != "ollama" {
		t.Fatalf("target = %q, want ollama after gate veto", d.Target)
	}
	if d.Reason != models.ReasonPolicyBlockedBudget {
		t.Errorf("reason = %s, want the vetoed candidate's rejection", d.Reason)
	}
	if !d.PolicyGatePassed {
		t.Error("accepted local candidate must pass the gate")
	}
}

func TestPayloadContentBlockShortCircuits(t *testing.T) {
	gate := policy.NewGate(0, []string{"verboten"})
	g, _ := testGovernor(t, gate, remoteSpecs(), "cheap", "pricey")

	d := g.Enforce(remoteDecision(), "this is verboten material")
	if d.Target != "" {
		t.Errorf("target = %q, want empty", d.Target)
	}
	if d.Reason != models.ReasonPolicyBlockedContent {
		t.Errorf("reason = %s, want %s", d.Reason, models.ReasonPolicyBlockedContent)
	}
}

func TestExhaustedChainBlocks(t *testing.T) {
	g, _ := testGovernor(t, nil, remoteSpecs()) // nothing registered

	d := g.Enforce(remoteDecision(), "payload")
	if d.Target != "" || d.PolicyGatePassed {
		t.Errorf("exhausted decision routable: target=%q gate=%v", d.Target, d.PolicyGatePassed)
	}
	if d.Reason != models.ReasonPolicyBlockedNoProvider {
		t.Errorf("reason = %s, want %s", d.Reason, models.ReasonPolicyBlockedNoProvider)
	}
	if len(d.FallbackChain) != 2 {
		t.Errorf("chain = %v, want both candidates attempted", d.FallbackChain)
	}
}

func TestEnforceExcluding(t *testing.T) {
	g, _ := testGovernor(t, nil, remoteSpecs(), "cheap", "pricey")

	d := g.EnforceExcluding(remoteDecision(), "payload", map[string]bool{"cheap": true})
	if d.Target != "pricey" {
		t.Fatalf("target = %q, want pricey", d.Target)
	}
	if d.FallbackApplied {
		t.Error("exclusion must not count as a rejection")
	}
}

func TestReportFailureFeedsBreaker(t *testing.T) {
	g, led := testGovernor(t, nil, remoteSpecs(), "cheap", "pricey")

	for i := 0; i < 3; i++ {
		g.ReportFailure("cheap", errors.New("boom"))
	}
	if !led.CircuitOpen("cheap") {
		t.Error("three reported failures should open the circuit")
	}
	g.ReportSuccess("cheap", 0.01)
	if led.CircuitOpen("cheap") {
		t.Error("reported success should close the circuit")
	}
}
