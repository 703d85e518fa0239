package state

import (
	"io"

	"github.com/mpieniak01/venom/pkg/models"
)

// TaskStore handles task record persistence.
type TaskStore interface {
	SaveTask(t *models.Task) error
	GetTask(id string) (*models.Task, error)
	ListTasks(status models.TaskStatus, limit int) ([]*models.Task, error)
}

// DecisionStore handles the routing decision audit trail.
type DecisionStore interface {
	RecordDecision(taskID string, d *models.RoutingDecision) error
	ListDecisions(taskID string) ([]*models.RoutingDecision, error)
}

// CheckpointStore handles campaign checkpoint persistence.
type CheckpointStore interface {
	SaveCheckpoint(taskID string, completed int, outputs []string) error
	LoadCheckpoint(taskID string) (int, []string, error)
	ClearCheckpoint(taskID string) error
}

// MessageStore handles session message persistence.
type MessageStore interface {
	AppendMessage(m *Message) error
	RecentMessages(limit int) ([]Message, error)
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for orchestration state persistence.
// This interface allows the orchestrator to work with any backend
// without depending on the concrete SQLite implementation.
// It composes focused sub-interfaces for better modularity.
type Store interface {
	io.Closer
	Migrator
	TaskStore
	DecisionStore
	CheckpointStore
	MessageStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store           = (*DB)(nil)
	_ Migrator        = (*DB)(nil)
	_ TaskStore       = (*DB)(nil)
	_ DecisionStore   = (*DB)(nil)
	_ CheckpointStore = (*DB)(nil)
	_ MessageStore    = (*DB)(nil)
)
