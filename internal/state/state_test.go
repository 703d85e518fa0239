package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mpieniak01/venom/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestTaskRoundTrip(t *testing.T) {
	db := openTestDB(t)

	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	started := created.Add(time.Second)
	completed := created.Add(5 * time.Second)

	task := &models.Task{
		ID:               "abc123",
		Payload:          "summarize the report",
		Type:             models.TaskTypeAnalysis,
		Status:           models.TaskStatusCompleted,
		StructuredOutput: true,
		Result:           "the summary",
		Summary:          "council consensus: 3/3 seats agreed",
		CreatedAt:        created,
		StartedAt:        &started,
		CompletedAt:      &completed,
	}
	if err := db.SaveTask(task); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.GetTask("abc123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("task not found")
	}
	if got.Payload != task.Payload || got.Type != task.Type || got.Status != task.Status {
		t.Errorf("got %+v", got)
	}
	if !got.StructuredOutput {
		t.Error("structured_output lost")
	}
	if got.Result != "the summary" || got.Summary != task.Summary {
		t.Errorf("result = %q summary = %q", got.Result, got.Summary)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, created)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Errorf("started_at = %v", got.StartedAt)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("completed_at = %v", got.CompletedAt)
	}
}

func TestTaskErrorEnvelopeRoundTrip(t *testing.T) {
	db := openTestDB(t)

	task := &models.Task{
		ID:        "blocked1",
		Payload:   "p",
		Type:      models.TaskTypeChat,
		Status:    models.TaskStatusBlocked,
		CreatedAt: time.Now().UTC(),
		Error: &models.ErrorEnvelope{
			Component:  "router",
			Stage:      "governance",
			Message:    "no viable provider",
			ReasonCode: models.ReasonPolicyBlockedNoProvider,
		},
	}
	if err := db.SaveTask(task); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.GetTask("blocked1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Error == nil {
		t.Fatal("envelope lost")
	}
	if got.Error.Component != "router" || got.Error.ReasonCode != models.ReasonPolicyBlockedNoProvider {
		t.Errorf("envelope = %+v", got.Error)
	}
}

func TestGetTaskMissingReturnsNil(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetTask("nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestSaveTaskUpserts(t *testing.T) {
	db := openTestDB(t)

	task := &models.Task{ID: "t1", Payload: "p", Type: models.TaskTypeChat, Status: models.TaskStatusPending, CreatedAt: time.Now().UTC()}
	if err := db.SaveTask(task); err != nil {
		t.Fatalf("save: %v", err)
	}
	task.Status = models.TaskStatusCompleted
	task.Result = "done"
	if err := db.SaveTask(task); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, _ := db.GetTask("t1")
	if got.Status != models.TaskStatusCompleted || got.Result != "done" {
		t.Errorf("got %s %q", got.Status, got.Result)
	}
}

func TestListTasks(t *testing.T) {
	db := openTestDB(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []struct {
		id     string
		status models.TaskStatus
	}{
		{"t1", models.TaskStatusCompleted},
		{"t2", models.TaskStatusPending},
		{"t3", models.TaskStatusCompleted},
	}
	for i, s := range seed {
		task := &models.Task{ID: s.id, Payload: "p", Type: models.TaskTypeChat, Status: s.status, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.SaveTask(task); err != nil {
			t.Fatalf("save %s: %v", s.id, err)
		}
	}

	all, err := db.ListTasks("", 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 || all[0].ID != "t3" {
		t.Errorf("all = %d tasks, first %s; want 3 newest-first", len(all), all[0].ID)
	}

	done, err := db.ListTasks(models.TaskStatusCompleted, 0)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(done) != 2 {
		t.Errorf("completed = %d, want 2", len(done))
	}

	limited, err := db.ListTasks("", 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "t3" || limited[1].ID != "t2" {
		t.Errorf("limited = %v", limited)
	}
}

func TestDecisionTrailRoundTrip(t *testing.T) {
	db := openTestDB(t)

	first := &models.RoutingDecision{
		Target:           "anthropic",
		Model:            "claude-sonnet",
		Class:            models.ClassRemote,
		Reason:           models.ReasonFallbackBudgetExceeded,
		ComplexityScore:  7.5,
		FallbackApplied:  true,
		FallbackChain:    []string{"openai", "anthropic"},
		PolicyGatePassed: true,
		EstimatedCost:    0.0123,
		RemainingBudget:  4.5,
		Latency:          12 * time.Millisecond,
		Timestamp:        time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC),
	}
	second := &models.RoutingDecision{
		Target:           "ollama",
		Model:            "llama3",
		Class:            models.ClassLocal,
		Reason:           models.ReasonDefaultEcoMode,
		Sensitive:        true,
		PolicyGatePassed: true,
		Timestamp:        time.Date(2026, 2, 2, 10, 0, 1, 0, time.UTC),
	}
	for _, d := range []*models.RoutingDecision{first, second} {
		if err := db.RecordDecision("task-9", d); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := db.ListDecisions("task-9")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d decisions, want 2", len(got))
	}
	if got[0].Target != "anthropic" || got[1].Target != "ollama" {
		t.Errorf("order = %s, %s", got[0].Target, got[1].Target)
	}
	if got[0].Reason != models.ReasonFallbackBudgetExceeded || !got[0].FallbackApplied {
		t.Errorf("first = %+v", got[0])
	}
	if len(got[0].FallbackChain) != 2 || got[0].FallbackChain[1] != "anthropic" {
		t.Errorf("chain = %v", got[0].FallbackChain)
	}
	if got[0].Latency != 12*time.Millisecond {
		t.Errorf("latency = %v", got[0].Latency)
	}
	if !got[1].Sensitive || got[1].FallbackChain != nil {
		t.Errorf("second = %+v", got[1])
	}
}

func TestCheckpointLifecycle(t *testing.T) {
	db := openTestDB(t)

	n, outputs, err := db.LoadCheckpoint("none")
	if err != nil || n != 0 || outputs != nil {
		t.Fatalf("fresh load = %d %v %v, want 0 nil nil", n, outputs, err)
	}

	if err := db.SaveCheckpoint("c1", 2, []string{"one", "two"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	n, outputs, err = db.LoadCheckpoint("c1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 2 || len(outputs) != 2 || outputs[1] != "two" {
		t.Errorf("got %d %v", n, outputs)
	}

	// A later checkpoint replaces the earlier one.
	if err := db.SaveCheckpoint("c1", 3, []string{"one", "two", "three"}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	n, outputs, _ = db.LoadCheckpoint("c1")
	if n != 3 || len(outputs) != 3 {
		t.Errorf("after resave: %d %v", n, outputs)
	}

	if err := db.ClearCheckpoint("c1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	n, outputs, _ = db.LoadCheckpoint("c1")
	if n != 0 || outputs != nil {
		t.Errorf("after clear: %d %v", n, outputs)
	}
}

func TestRecentMessages(t *testing.T) {
	db := openTestDB(t)

	for i, content := range []string{"first", "second", "third"} {
		m := &Message{TaskID: "t1", Role: "user", Content: content, CreatedAt: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC)}
		if err := db.AppendMessage(m); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := db.RecentMessages(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	// The newest two, oldest first.
	if got[0].Content != "second" || got[1].Content != "third" {
		t.Errorf("got %q, %q", got[0].Content, got[1].Content)
	}
}

func TestPurgeOldTasks(t *testing.T) {
	db := openTestDB(t)

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()

	tasks := []*models.Task{
		{ID: "old-done", Payload: "p", Type: models.TaskTypeChat, Status: models.TaskStatusCompleted, CreatedAt: old},
		{ID: "old-pending", Payload: "p", Type: models.TaskTypeChat, Status: models.TaskStatusPending, CreatedAt: old},
		{ID: "new-done", Payload: "p", Type: models.TaskTypeChat, Status: models.TaskStatusCompleted, CreatedAt: recent},
	}
	for _, task := range tasks {
		if err := db.SaveTask(task); err != nil {
			t.Fatalf("save %s: %v", task.ID, err)
		}
	}
	if err := db.RecordDecision("old-done", &models.RoutingDecision{Target: "ollama", Class: models.ClassLocal, Reason: models.ReasonComplexityLow, Timestamp: old}); err != nil {
		t.Fatalf("record: %v", err)
	}

	count, err := db.PurgeOldTasks(24 * time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if count != 1 {
		t.Errorf("purged %d, want 1", count)
	}

	if got, _ := db.GetTask("old-done"); got != nil {
		t.Error("old terminal task must be purged")
	}
	if got, _ := db.GetTask("old-pending"); got == nil {
		t.Error("non-terminal tasks must survive the purge")
	}
	if got, _ := db.GetTask("new-done"); got == nil {
		t.Error("recent tasks must survive the purge")
	}

	decisions, _ := db.ListDecisions("old-done")
	if len(decisions) != 0 {
		t.Errorf("orphaned decisions = %d, want 0", len(decisions))
	}
}
