// Package ledger tracks per-provider health, budget consumption, and
// rate-limit state for routing governance. The ledger is shared mutable
// state across all queue workers; every mutation is atomic with respect to
// concurrent readers, while reads for a routing decision are read-committed
// rather than isolated: a small budget race is accepted and corrected on
// the next reconciliation.
package ledger

import (
	"log"
	"sync"
	"time"
)

// Snapshot is a read-only view of one provider's ledger entry.
type Snapshot struct {
	// Provider is the provider name.
	Provider string `json:"provider"`
	// Healthy is false while the circuit breaker is open.
	Healthy bool `json:"healthy"`
	// ConsecutiveFailures is the current failure streak.
	ConsecutiveFailures int `json:"consecutive_failures"`
	// SpentTodayUSD is the budget consumed in the current daily window.
	SpentTodayUSD float64 `json:"spent_today_usd"`
	// WindowCalls is the call count inside the sliding rate window.
	WindowCalls int `json:"window_calls"`
}

// entry is the rolling state for one provider. Each entry carries its own
// lock so contention on one provider does not serialize the others.
type entry struct {
	mu                  sync.Mutex
	consecutiveFailures int
	lastFailure         time.Time
	spentUSD            float64
	budgetDay           time.Time // UTC midnight of the current budget window
	callTimes           []time.Time
}

// Ledger is the arena of per-provider entries.
type Ledger struct {
	dailyBudgetUSD   float64
	rateWindow       time.Duration
	rateLimit        int
	breakerThreshold int
	breakerCooldown  time.Duration

	mu      sync.RWMutex
	entries map[string]*entry

	// now is swappable for tests.
	now func() time.Time
}

// Options configures a Ledger.
type Options struct {
	// DailyBudgetUSD is the per-provider daily spend ceiling. Zero disables
	// budget enforcement.
	DailyBudgetUSD float64
	// RateWindow is the sliding rate-limit window.
	RateWindow time.Duration
	// RateLimit is the maximum calls per provider per window. Zero disables
	// rate enforcement.
	RateLimit int
	// BreakerThreshold is the consecutive-failure count that opens the circuit.
	BreakerThreshold int
	// BreakerCooldown is how long an open circuit stays open without a success.
	BreakerCooldown time.Duration
}

// New creates a Ledger with the given windows and thresholds.
func New(opts Options) *Ledger {
	if opts.RateWindow <= 0 {
		opts.RateWindow = 60 * time.Second
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = 3
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 5 * time.Minute
	}
	return &Ledger{
		dailyBudgetUSD:   opts.DailyBudgetUSD,
		rateWindow:       opts.RateWindow,
		rateLimit:        opts.RateLimit,
		breakerThreshold: opts.BreakerThreshold,
		breakerCooldown:  opts.BreakerCooldown,
		entries:          make(map[string]*entry),
		now:              time.Now,
	}
}

// SetClock overrides the time source (for testing).
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *Ledger) entryFor(provider string) *entry {
	l.mu.RLock()
	e, ok := l.entries[provider]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[provider]; ok {
		return e
	}
	e = &entry{budgetDay: l.now().UTC().Truncate(24 * time.Hour)}
	l.entries[provider] = e
	return e
}

// rollWindows resets expired windows. Must be called with e.mu held.
func (l *Ledger) rollWindows(e *entry, now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if day.After(e.budgetDay) {
		e.budgetDay = day
		e.spentUSD = 0
	}

	cutoff := now.Add(-l.rateWindow)
	kept := e.callTimes[:0]
	for _, t := range e.callTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.callTimes = kept
}

// RecordSuccess notes a successful call, closing the circuit breaker.
func (l *Ledger) RecordSuccess(provider string) {
	e := l.entryFor(provider)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.consecutiveFailures = 0
}

// RecordFailure increments the provider's failure streak. Timeouts count
// the same as provider failures.
func (l *Ledger) RecordFailure(provider string) {
	e := l.entryFor(provider)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.consecutiveFailures++
	e.lastFailure = l.now()
	if e.consecutiveFailures == l.breakerThreshold {
		log.Printf("[ledger] circuit opened for provider %s after %d consecutive failures", provider, e.consecutiveFailures)
	}
}

// RecordCall notes a call attempt against the sliding rate window.
func (l *Ledger) RecordCall(provider string) {
	e := l.entryFor(provider)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := l.now()
	l.rollWindows(e, now)
	e.callTimes = append(e.callTimes, now)
}

// Spend decrements the provider's daily budget by the given USD amount.
func (l *Ledger) Spend(provider string, usd float64) {
	if usd <= 0 {
		return
	}
	e := l.entryFor(provider)
	e.mu.Lock()
	defer e.mu.Unlock()

	l.rollWindows(e, l.now())
	e.spentUSD += usd
}

// BudgetRemaining returns the USD budget left in the provider's daily window.
// Unlimited budgets report a negative remainder.
func (l *Ledger) BudgetRemaining(provider string) float64 {
	if l.dailyBudgetUSD <= 0 {
		return -1
	}
	e := l.entryFor(provider)
	e.mu.Lock()
	defer e.mu.Unlock()

	l.rollWindows(e, l.now())
	return l.dailyBudgetUSD - e.spentUSD
}

// BudgetAllows reports whether a call with the projected cost fits the
// provider's remaining daily budget.
func (l *Ledger) BudgetAllows(provider string, projectedUSD float64) bool {
	remaining := l.BudgetRemaining(provider)
	if remaining < 0 {
		return true
	}
	return projectedUSD <= remaining
}

// RateAllows reports whether the provider has headroom in its rate window.
func (l *Ledger) RateAllows(provider string) bool {
	if l.rateLimit <= 0 {
		return true
	}
	e := l.entryFor(provider)
	e.mu.Lock()
	defer e.mu.Unlock()

	l.rollWindows(e, l.now())
	return len(e.callTimes) < l.rateLimit
}

// CircuitOpen reports whether the provider should be skipped without a live
// check. The circuit closes on one observed success or after the cooldown.
func (l *Ledger) CircuitOpen(provider string) bool {
	e := l.entryFor(provider)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.consecutiveFailures < l.breakerThreshold {
		return false
	}
	if l.now().Sub(e.lastFailure) >= l.breakerCooldown {
		// Cooldown elapsed; allow one probe through.
		e.consecutiveFailures = 0
		return false
	}
	return true
}

// ConsecutiveFailures returns the provider's current failure streak.
// Used by the router's cost tie-break rule.
func (l *Ledger) ConsecutiveFailures(provider string) int {
	e := l.entryFor(provider)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.consecutiveFailures
}

// Snapshot returns a read-only view of every tracked provider.
func (l *Ledger) Snapshot() []Snapshot {
	l.mu.RLock()
	names := make([]string, 0, len(l.entries))
	for name := range l.entries {
		names = append(names, name)
	}
	l.mu.RUnlock()

	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		e := l.entryFor(name)
		e.mu.Lock()
		l.rollWindows(e, l.now())
		out = append(out, Snapshot{
			Provider:            name,
			Healthy:             e.consecutiveFailures < l.breakerThreshold,
			ConsecutiveFailures: e.consecutiveFailures,
			SpentTodayUSD:       e.spentUSD,
			WindowCalls:         len(e.callTimes),
		})
		e.mu.Unlock()
	}
	return out
}
