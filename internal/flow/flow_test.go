package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mpieniak01/venom/internal/config"
	"github.com/mpieniak01/venom/internal/governance"
	"github.com/mpieniak01/venom/internal/ledger"
	"github.com/mpieniak01/venom/internal/policy"
	"github.com/mpieniak01/venom/internal/provider"
	"github.com/mpieniak01/venom/internal/router"
	"github.com/mpieniak01/venom/pkg/models"
)

// memCheckpoints is an in-memory CheckpointStore for tests.
type memCheckpoints struct {
	mu        sync.Mutex
	completed map[string]int
	outputs   map[string][]string
	saves     int
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{
		completed: make(map[string]int),
		outputs:   make(map[string][]string),
	}
}

func (m *memCheckpoints) SaveCheckpoint(taskID string, completed int, outputs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[taskID] = completed
	m.outputs[taskID] = append([]string(nil), outputs...)
	m.saves++
	return nil
}

func (m *memCheckpoints) LoadCheckpoint(taskID string) (int, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed[taskID], m.outputs[taskID], nil
}

type harness struct {
	coordinator *Coordinator
	adapters    map[string]*provider.MockAdapter
	checkpoints *memCheckpoints
	ledger      *ledger.Ledger
}

// newHarness wires a coordinator over n local mock backends in eco mode.
func newHarness(t *testing.T, n int) *harness {
	return newCouncilHarness(t, n, config.CouncilConfig{Size: 3, MaxConcurrency: 3})
}

// newCouncilHarness is newHarness with an explicit council shape.
func newCouncilHarness(t *testing.T, n int, council config.CouncilConfig) *harness {
	t.Helper()

	var specs []provider.Spec
	for i := 0; i < n; i++ {
		specs = append(specs, provider.Spec{
			Name:     fmt.Sprintf("local-%d", i),
			Class:    models.ClassLocal,
			Model:    "test-model",
			Priority: i,
		})
	}
	registry := provider.NewRegistry(specs)
	adapters := make(map[string]*provider.MockAdapter, n)
	for _, spec := range specs {
		a := provider.NewMockAdapter(spec.Name)
		if err := registry.Register(spec.Name, a); err != nil {
			t.Fatalf("register %s: %v", spec.Name, err)
		}
		adapters[spec.Name] = a
	}

	led := ledger.New(ledger.Options{})
	gate := policy.NewGate(0, nil)
	governor := governance.New(registry, led, gate)
	rt := router.New(config.RoutingConfig{ComplexityThreshold: 6}, governor)

	checkpoints := newMemCheckpoints()
	coordinator := New(rt, governor, registry,
		council,
		config.WorkflowConfig{MaxRepairAttempts: 2, WallClockBudget: time.Minute, CallTimeout: 10 * time.Second},
		checkpoints)

	return &harness{coordinator: coordinator, adapters: adapters, checkpoints: checkpoints, ledger: led}
}

func newTask(taskType models.TaskType, payload string) *models.Task {
	return &models.Task{
		ID:      "t-1234",
		Payload: payload,
		Type:    taskType,
		Status:  models.TaskStatusProcessing,
	}
}

func TestDirectWorkflow(t *testing.T) {
	h := newHarness(t, 1)
	h.adapters["local-0"].SetDefaultResponse("the answer")

	task := newTask(models.TaskTypeChat, "what is up")
	outcome, err := h.coordinator.Execute(context.Background(), task, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.Result != "the answer what is up" {
		t.Errorf("result = %q", outcome.Result)
	}
	if outcome.Partial {
		t.Error("direct success must not be partial")
	}
	if len(outcome.Run.Steps) != 1 || outcome.Run.Steps[0].Status != models.StepCompleted {
		t.Errorf("run steps = %+v", outcome.Run.Steps)
	}
	if outcome.Run.ActiveSteps() != 0 {
		t.Error("no step may remain processing after the run")
	}
}

func TestDirectBlockedWhenNoProvider(t *testing.T) {
	h := newHarness(t, 1)
	// Reload with a catalog entry that has no adapter.
	h.coordinator.registry.Reload([]provider.Spec{{Name: "ghost", Class: models.ClassLocal}})

	task := newTask(models.TaskTypeChat, "hello")
	_, err := h.coordinator.Execute(context.Background(), task, "")

	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want BlockedError", err)
	}
	if blocked.Decision.Reason != models.ReasonPolicyBlockedNoProvider {
		t.Errorf("reason = %s", blocked.Decision.Reason)
	}
}

func TestDirectFallsBackOnTransientFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason models.ReasonCode
	}{
		{"timeout", &provider.CallError{Err: context.DeadlineExceeded}, models.ReasonFallbackTimeout},
		{"auth rejection", &provider.CallError{Status: 401, Err: errors.New("invalid api key")}, models.ReasonFallbackAuthError},
		{"rate limited", &provider.CallError{Status: 429, Err: errors.New("too many requests")}, models.ReasonFallbackRateLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 2)
			h.adapters["local-0"].Err = tt.err
			h.adapters["local-1"].SetResponse("what is up", "fallback answer")

			task := newTask(models.TaskTypeChat, "what is up")
			outcome, err := h.coordinator.Execute(context.Background(), task, "")
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if outcome.Result != "fallback answer" {
				t.Errorf("result = %q, want fallback answer", outcome.Result)
			}

			steps := outcome.Run.Steps
			if len(steps) != 2 {
				t.Fatalf("steps = %d, want 2", len(steps))
			}
			if steps[0].Status != models.StepFailed || steps[0].Decision.Target != "local-0" {
				t.Errorf("first step = %s on %q, want failed on local-0", steps[0].Status, steps[0].Decision.Target)
			}
			final := steps[1].Decision
			if final.Target != "local-1" {
				t.Errorf("final target = %q, want local-1", final.Target)
			}
			if final.Reason != tt.reason {
				t.Errorf("reason = %s, want %s", final.Reason, tt.reason)
			}
			if !final.FallbackApplied {
				t.Error("fallback_applied must be set after a live failure")
			}
			if len(final.FallbackChain) != 2 || final.FallbackChain[0] != "local-0" || final.FallbackChain[1] != "local-1" {
				t.Errorf("fallback chain = %v", final.FallbackChain)
			}
		})
	}
}

func TestDirectSurfacesNonTransientFailure(t *testing.T) {
	h := newHarness(t, 2)
	h.adapters["local-0"].Err = errors.New("malformed request")

	task := newTask(models.TaskTypeChat, "hello")
	_, err := h.coordinator.Execute(context.Background(), task, "")
	if err == nil || !strings.Contains(err.Error(), "malformed request") {
		t.Fatalf("err = %v, want malformed request", err)
	}
	if got := h.adapters["local-1"].Calls(); got != 0 {
		t.Errorf("fallback adapter called %d times, want 0", got)
	}
}

func TestDirectFailsWhenChainExhausted(t *testing.T) {
	h := newHarness(t, 2)
	h.adapters["local-0"].Err = &provider.CallError{Status: 503, Err: errors.New("upstream unavailable")}
	h.adapters["local-1"].Err = &provider.CallError{Status: 503, Err: errors.New("upstream unavailable")}

	task := newTask(models.TaskTypeChat, "hello")
	outcome, err := h.coordinator.Execute(context.Background(), task, "")
	if err == nil || !strings.Contains(err.Error(), "fallback chain exhausted") {
		t.Fatalf("err = %v, want chain exhaustion", err)
	}
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		t.Fatal("live-failure exhaustion is a failure, not a block")
	}

	steps := outcome.Run.Steps
	if len(steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(steps))
	}
	last := steps[2].Decision
	if last.Target != "" || last.Reason != models.ReasonPolicyBlockedNoProvider {
		t.Errorf("exhausted decision target=%q reason=%s", last.Target, last.Reason)
	}
}

func TestCouncilConsensus(t *testing.T) {
	h := newHarness(t, 3)
	for _, a := range h.adapters {
		a.SetDefaultResponse("Paris")
		a.SetResponse("capital of France?", "Paris")
	}

	task := newTask(models.TaskTypeAnalysis, "capital of France?")
	outcome, err := h.coordinator.Execute(context.Background(), task, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.Result != "Paris" {
		t.Errorf("result = %q, want Paris", outcome.Result)
	}
	if outcome.Run.Escalated {
		t.Error("unanimous council must not escalate")
	}

	// Seats must land on distinct backends.
	seen := make(map[string]bool)
	for _, step := range outcome.Run.Steps {
		if seen[step.Decision.Target] {
			t.Errorf("backend %s used by two seats", step.Decision.Target)
		}
		seen[step.Decision.Target] = true
	}
	if len(seen) != 3 {
		t.Errorf("council used %d backends, want 3", len(seen))
	}
}

func TestCouncilAgreementIsCaseAndSpaceInsensitive(t *testing.T) {
	h := newHarness(t, 3)
	payload := "capital of France?"
	h.adapters["local-0"].SetResponse(payload, "Paris")
	h.adapters["local-1"].SetResponse(payload, "  paris ")
	h.adapters["local-2"].SetResponse(payload, "Lyon")

	task := newTask(models.TaskTypeAnalysis, payload)
	outcome, err := h.coordinator.Execute(context.Background(), task, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.Run.Escalated {
		t.Fatal("two normalized-equal answers meet the quorum of two")
	}
	if normalizeAnswer(outcome.Result) != "paris" {
		t.Errorf("result = %q", outcome.Result)
	}
}

func TestCouncilEscalatesWithoutQuorum(t *testing.T) {
	h := newHarness(t, 3)
	payload := "pick a number"
	h.adapters["local-0"].SetResponse(payload, "one")
	h.adapters["local-1"].SetResponse(payload, "two")
	h.adapters["local-2"].SetResponse(payload, "three")

	task := newTask(models.TaskTypeAnalysis, payload)
	outcome, err := h.coordinator.Execute(context.Background(), task, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !outcome.Run.Escalated {
		t.Fatal("split council must escalate to direct")
	}
	if outcome.Result == "" {
		t.Error("escalated direct call should produce a result")
	}
	// Three seats plus the escalation call.
	if len(outcome.Run.Steps) != 4 {
		t.Errorf("got %d steps, want 4", len(outcome.Run.Steps))
	}
}

func TestCouncilTieBreakPrefersHealthierSeat(t *testing.T) {
	h := newCouncilHarness(t, 4, config.CouncilConfig{Size: 4, Quorum: 2, MaxConcurrency: 4})
	payload := "pick a city"
	h.adapters["local-0"].SetResponse(payload, "Athens")
	h.adapters["local-1"].SetResponse(payload, "Athens")
	h.adapters["local-2"].SetResponse(payload, "Zagreb")
	h.adapters["local-3"].SetResponse(payload, "Zagreb")

	// Both seats behind the lexicographically smaller answer carry a
	// failure streak going into the round.
	h.ledger.RecordFailure("local-0")
	h.ledger.RecordFailure("local-1")

	task := newTask(models.TaskTypeAnalysis, payload)
	outcome, err := h.coordinator.Execute(context.Background(), task, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.Run.Escalated {
		t.Fatal("a tie at quorum must not escalate")
	}
	if outcome.Result != "Zagreb" {
		t.Errorf("result = %q, want the healthier seats' Zagreb", outcome.Result)
	}
}

func TestReviewPassesWithCleanOutput(t *testing.T) {
	h := newHarness(t, 1)
	h.adapters["local-0"].SetDefaultResponse("```go\nfunc add(a, b int) int { return a + b }\n```")

	task := newTask(models.TaskTypeCodingComplex, "write an add function")
	outcome, err := h.coordinator.Execute(context.Background(), task, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.Partial {
		t.Error("clean output must pass review")
	}
	if outcome.Run.Retries != 0 {
		t.Errorf("retries = %d, want 0", outcome.Run.Retries)
	}
}

func TestReviewExhaustionReturnsBestAttempt(t *testing.T) {
	h := newHarness(t, 1)
	// Every attempt produces a coding answer without a code block.
	h.adapters["local-0"].SetDefaultResponse("here is prose instead of code")

	task := newTask(models.TaskTypeCodingComplex, "write an add function")
	outcome, err := h.coordinator.Execute(context.Background(), task, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !outcome.Partial {
		t.Fatal("exhausted review must return a partial result")
	}
	if outcome.Result == "" {
		t.Error("best attempt must be preserved")
	}
	// MaxRepairAttempts(2) + 1 initial = 3 calls.
	if got := h.adapters["local-0"].Calls(); got != 3 {
		t.Errorf("backend calls = %d, want 3", got)
	}
}

func TestHealValidatorLoop(t *testing.T) {
	h := newHarness(t, 1)

	attempts := 0
	h.coordinator.SetValidator(func(_ context.Context, candidate string) error {
		attempts++
		if attempts == 1 {
			return errors.New("test still failing: nil pointer in parse")
		}
		return nil
	})

	task := newTask(models.TaskTypeCodingSimple, "fix the parser crash")
	outcome, err := h.coordinator.Heal(context.Background(), task, "")
	if err != nil {
		t.Fatalf("Heal: %v", err)
	}
	if outcome.Partial {
		t.Error("validated patch must not be partial")
	}
	if outcome.Run.Retries != 1 {
		t.Errorf("retries = %d, want 1", outcome.Run.Retries)
	}
	if attempts != 2 {
		t.Errorf("validator ran %d times, want 2", attempts)
	}
	if outcome.Run.Kind != models.WorkflowHeal {
		t.Errorf("run kind = %s", outcome.Run.Kind)
	}
}

func TestHealExhaustionIsPartial(t *testing.T) {
	h := newHarness(t, 1)
	h.coordinator.SetValidator(func(_ context.Context, _ string) error {
		return errors.New("still broken")
	})

	task := newTask(models.TaskTypeCodingSimple, "fix it")
	outcome, err := h.coordinator.Heal(context.Background(), task, "")
	if err != nil {
		t.Fatalf("Heal: %v", err)
	}
	if !outcome.Partial {
		t.Error("unhealed cycle must return partial")
	}
	if got := h.adapters["local-0"].Calls(); got != 3 {
		t.Errorf("backend calls = %d, want 3", got)
	}
}

func TestCampaignCheckpointsEveryMilestone(t *testing.T) {
	h := newHarness(t, 1)

	payload := "1. gather sources\n2. draft outline\n3. write summary"
	task := newTask(models.TaskTypeResearch, payload)
	outcome, err := h.coordinator.Execute(context.Background(), task, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if h.checkpoints.saves != 3 {
		t.Errorf("checkpoint saves = %d, want 3", h.checkpoints.saves)
	}
	if completed := h.checkpoints.completed[task.ID]; completed != 3 {
		t.Errorf("completed = %d, want 3", completed)
	}
	if outcome.Result == "" {
		t.Error("campaign should join milestone outputs")
	}
}

func TestCampaignResumesFromCheckpoint(t *testing.T) {
	h := newHarness(t, 1)

	task := newTask(models.TaskTypeResearch, "1. first step\n2. second step\n3. third step")
	if err := h.checkpoints.SaveCheckpoint(task.ID, 1, []string{"first output"}); err != nil {
		t.Fatal(err)
	}
	h.checkpoints.saves = 0

	outcome, err := h.coordinator.Execute(context.Background(), task, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// Only the two remaining milestones hit the backend.
	if got := h.adapters["local-0"].Calls(); got != 2 {
		t.Errorf("backend calls = %d, want 2", got)
	}
	if h.checkpoints.completed[task.ID] != 3 {
		t.Errorf("completed = %d, want 3", h.checkpoints.completed[task.ID])
	}
	if !strings.Contains(outcome.Result, "first output") {
		t.Errorf("resumed campaign must keep prior outputs, result = %q", outcome.Result)
	}
}

func TestCampaignWithoutMilestonesRunsDirect(t *testing.T) {
	h := newHarness(t, 1)

	task := newTask(models.TaskTypeResearch, "just one flat request with no list")
	outcome, err := h.coordinator.Execute(context.Background(), task, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(outcome.Run.Steps) != 1 {
		t.Errorf("steps = %d, want 1 direct call", len(outcome.Run.Steps))
	}
	if h.checkpoints.saves != 0 {
		t.Error("direct fallback must not checkpoint")
	}
}

func TestSplitMilestones(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"numbered", "1. one\n2. two\n3. three", 3},
		{"dashes", "- alpha\n- beta", 2},
		{"stars", "* alpha\n* beta", 2},
		{"parens", "1) alpha\n2) beta", 2},
		{"single item is not a campaign", "- only one", 0},
		{"plain prose", "do the thing", 0},
		{"mixed with prose", "intro line\n1. one\n2. two", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(splitMilestones(tt.payload)); got != tt.want {
				t.Errorf("splitMilestones(%q) = %d milestones, want %d", tt.payload, got, tt.want)
			}
		})
	}
}
