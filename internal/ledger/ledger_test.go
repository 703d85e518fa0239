package ledger

import (
	"testing"
	"time"
)

func testLedger(opts Options) (*Ledger, *time.Time) {
	l := New(opts)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := &now
	l.SetClock(func() time.Time { return *clock })
	return l, clock
}

func TestBudgetEnforcement(t *testing.T) {
	l, _ := testLedger(Options{DailyBudgetUSD: 10})

	if !l.BudgetAllows("openai", 9.5) {
		t.Error("call within budget should be allowed")
	}

	l.Spend("openai", 9.5)
	if l.BudgetAllows("openai", 1.0) {
		t.Error("call over remaining budget should be rejected")
	}
	if got := l.BudgetRemaining("openai"); got != 0.5 {
		t.Errorf("BudgetRemaining = %.2f, want 0.50", got)
	}

	// Other providers keep their own budget.
	if !l.BudgetAllows("anthropic", 5.0) {
		t.Error("budgets must be tracked per provider")
	}
}

func TestBudgetResetsAtUTCMidnight(t *testing.T) {
	l, clock := testLedger(Options{DailyBudgetUSD: 10})

	l.Spend("openai", 10)
	if l.BudgetAllows("openai", 0.01) {
		t.Fatal("budget should be exhausted")
	}

	*clock = clock.Add(24 * time.Hour)
	if !l.BudgetAllows("openai", 5.0) {
		t.Error("budget should reset in the next daily window")
	}
}

func TestUnlimitedBudget(t *testing.T) {
	l, _ := testLedger(Options{})
	l.Spend("openai", 9999)
	if !l.BudgetAllows("openai", 9999) {
		t.Error("zero daily budget disables enforcement")
	}
	if got := l.BudgetRemaining("openai"); got >= 0 {
		t.Errorf("unlimited budget should report negative remainder, got %.2f", got)
	}
}

func TestRateWindowSlides(t *testing.T) {
	l, clock := testLedger(Options{RateWindow: 60 * time.Second, RateLimit: 2})

	l.RecordCall("ollama")
	l.RecordCall("ollama")
	if l.RateAllows("ollama") {
		t.Fatal("third call inside the window should be rejected")
	}

	*clock = clock.Add(61 * time.Second)
	if !l.RateAllows("ollama") {
		t.Error("calls outside the window should no longer count")
	}
}

func TestCircuitBreaker(t *testing.T) {
	l, clock := testLedger(Options{BreakerThreshold: 3, BreakerCooldown: 5 * time.Minute})

	l.RecordFailure("anthropic")
	l.RecordFailure("anthropic")
	if l.CircuitOpen("anthropic") {
		t.Fatal("circuit should stay closed below the threshold")
	}

	l.RecordFailure("anthropic")
	if !l.CircuitOpen("anthropic") {
		t.Fatal("circuit should open at the threshold")
	}

	// A success closes the circuit immediately.
	l.RecordSuccess("anthropic")
	if l.CircuitOpen("anthropic") {
		t.Error("success should close the circuit")
	}

	// Reopen, then let the cooldown elapse: one probe goes through.
	l.RecordFailure("anthropic")
	l.RecordFailure("anthropic")
	l.RecordFailure("anthropic")
	if !l.CircuitOpen("anthropic") {
		t.Fatal("circuit should reopen")
	}
	*clock = clock.Add(5 * time.Minute)
	if l.CircuitOpen("anthropic") {
		t.Error("cooldown elapse should allow a probe")
	}
}

func TestSnapshot(t *testing.T) {
	l, _ := testLedger(Options{DailyBudgetUSD: 10, BreakerThreshold: 2})

	l.Spend("openai", 3.5)
	l.RecordCall("openai")
	l.RecordFailure("ollama")
	l.RecordFailure("ollama")

	snaps := l.Snapshot()
	byName := make(map[string]Snapshot, len(snaps))
	for _, s := range snaps {
		byName[s.Provider] = s
	}

	if s := byName["openai"]; !s.Healthy || s.SpentTodayUSD != 3.5 || s.WindowCalls != 1 {
		t.Errorf("openai snapshot = %+v", s)
	}
	if s := byName["ollama"]; s.Healthy || s.ConsecutiveFailures != 2 {
		t.Errorf("ollama snapshot = %+v", s)
	}
}
