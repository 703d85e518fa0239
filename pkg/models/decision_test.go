package models

import "testing"

func TestReasonCodeValid(t *testing.T) {
	valid := []ReasonCode{
		ReasonDefaultEcoMode, ReasonComplexityLow, ReasonComplexityHigh,
		ReasonSensitiveOverride, ReasonFallbackTimeout, ReasonFallbackAuthError,
		ReasonFallbackBudgetExceeded, ReasonFallbackProviderDegraded,
		ReasonFallbackProviderOffline, ReasonFallbackRateLimit,
		ReasonPolicyBlockedBudget, ReasonPolicyBlockedRateLimit,
		ReasonPolicyBlockedNoProvider, ReasonPolicyBlockedContent,
	}
	if len(valid) != 14 {
		t.Fatalf("reason code set has %d members, want 14", len(valid))
	}
	for _, r := range valid {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if ReasonCode("MADE_UP").Valid() {
		t.Error("unknown reason code should not be valid")
	}
}

func TestReasonCodeBlocking(t *testing.T) {
	blocking := map[ReasonCode]bool{
		ReasonPolicyBlockedNoProvider: true,
		ReasonPolicyBlockedContent:    true,
		ReasonFallbackTimeout:         false,
		ReasonDefaultEcoMode:          false,
		ReasonPolicyBlockedBudget:     false,
	}
	for r, want := range blocking {
		if got := r.Blocking(); got != want {
			t.Errorf("%s.Blocking() = %v, want %v", r, got, want)
		}
	}
}

func TestRoutableRequiresTargetAndGate(t *testing.T) {
	tests := []struct {
		name string
		d    *RoutingDecision
		want bool
	}{
		{"nil decision", nil, false},
		{"no target", &RoutingDecision{PolicyGatePassed: true}, false},
		{"gate not passed", &RoutingDecision{Target: "ollama"}, false},
		{"routable", &RoutingDecision{Target: "ollama", PolicyGatePassed: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Routable(); got != tt.want {
				t.Errorf("Routable() = %v, want %v", got, tt.want)
			}
		})
	}
}
