// Package session rebuilds conversational context for tasks and persists
// exchanges after they finish. Context is a bounded window of recent
// messages so long-running deployments do not grow prompts without limit.
package session

import (
	"fmt"
	"log"
	"strings"

	"github.com/mpieniak01/venom/internal/state"
	"github.com/mpieniak01/venom/pkg/models"
)

// DefaultWindow is the number of stored messages folded into context.
const DefaultWindow = 20

// Handler rebuilds context before a task runs and persists the exchange
// after it finishes.
type Handler struct {
	store  state.MessageStore
	window int
}

// NewHandler creates a Handler over the message store. A nil store yields
// a handler that returns empty context and skips persistence.
func NewHandler(store state.MessageStore, window int) *Handler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Handler{store: store, window: window}
}

// BuildContext returns the context blob for a task: the recent exchange
// history rendered as role-prefixed lines. Chat tasks get full history;
// other types run without carried context.
func (h *Handler) BuildContext(task *models.Task) string {
	if h.store == nil || task.Type != models.TaskTypeChat {
		return ""
	}

	messages, err := h.store.RecentMessages(h.window)
	if err != nil {
		log.Printf("[session] context rebuild failed for task %s: %v", task.ID, err)
		return ""
	}
	if len(messages) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

// Persist stores the task's exchange after a successful run. Failed and
// blocked tasks are not folded into future context.
func (h *Handler) Persist(task *models.Task) error {
	if h.store == nil || task.Status != models.TaskStatusCompleted {
		return nil
	}

	if err := h.store.AppendMessage(&state.Message{
		TaskID:  task.ID,
		Role:    "user",
		Content: task.Payload,
	}); err != nil {
		return fmt.Errorf("persist user message: %w", err)
	}
	if err := h.store.AppendMessage(&state.Message{
		TaskID:  task.ID,
		Role:    "assistant",
		Content: task.Result,
	}); err != nil {
		return fmt.Errorf("persist assistant message: %w", err)
	}
	return nil
}
