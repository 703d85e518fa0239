// Package orchestrator manages the task queue, worker pool, and task
// lifecycle. A worker owns a task exclusively from dequeue to terminal
// state; other components receive read-only views.
package orchestrator

import (
	"time"

	"github.com/mpieniak01/venom/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTaskQueued indicates a task was accepted and enqueued.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates a worker dequeued the task.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
	// EventTaskBlocked indicates routing policy rejected the task with no
	// viable fallback.
	EventTaskBlocked EventType = "task_blocked"
	// EventDecision carries one routing decision as a JSON record in Message.
	EventDecision EventType = "decision"
	// EventPaused indicates task processing was paused.
	EventPaused EventType = "paused"
	// EventResumed indicates task processing was resumed.
	EventResumed EventType = "resumed"
	// EventStopped indicates the orchestrator shut down.
	EventStopped EventType = "stopped"
)

// Event represents an event emitted by the orchestrator. Subscribers such
// as the CLI status view receive these to track progress.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// Message provides additional context about the event.
	Message string
	// Reason carries the routing reason code for blocked tasks.
	Reason models.ReasonCode
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
