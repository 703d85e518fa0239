package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mpieniak01/venom/pkg/models"
)

// Task CRUD operations

// SaveTask inserts or replaces the persisted record for a task.
// The error envelope is stored as JSON.
func (db *DB) SaveTask(t *models.Task) error {
	var errJSON sql.NullString
	if t.Error != nil {
		data, err := json.Marshal(t.Error)
		if err != nil {
			return fmt.Errorf("marshal task error: %w", err)
		}
		errJSON = sql.NullString{String: string(data), Valid: true}
	}

	var startedAt, completedAt sql.NullString
	if t.StartedAt != nil {
		startedAt = sql.NullString{String: formatTime(*t.StartedAt), Valid: true}
	}
	if t.CompletedAt != nil {
		completedAt = sql.NullString{String: formatTime(*t.CompletedAt), Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO tasks (id, payload, type, status, structured_output, result, partial, error, summary, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			result = excluded.result,
			partial = excluded.partial,
			error = excluded.error,
			summary = excluded.summary,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`, t.ID, t.Payload, string(t.Type), string(t.Status), boolToInt(t.StructuredOutput),
		t.Result, boolToInt(t.Partial), errJSON, t.Summary, formatTime(t.CreatedAt), startedAt, completedAt)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns (nil, nil) when no task exists.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(`
		SELECT id, payload, type, status, structured_output, result, partial, error, summary, created_at, started_at, completed_at
		FROM tasks WHERE id = ?
	`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks with the given status, newest first.
// An empty status returns all tasks.
func (db *DB) ListTasks(status models.TaskStatus, limit int) ([]*models.Task, error) {
	query := `
		SELECT id, payload, type, status, structured_output, result, partial, error, summary, created_at, started_at, completed_at
		FROM tasks`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var taskType, status, createdAt string
	var structured, partial int
	var result, errJSON, summary, startedAt, completedAt sql.NullString

	err := row.Scan(&t.ID, &t.Payload, &taskType, &status, &structured, &result,
		&partial, &errJSON, &summary, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	t.Type = models.TaskType(taskType)
	t.Status = models.TaskStatus(status)
	t.StructuredOutput = structured != 0
	t.Result = result.String
	t.Partial = partial != 0
	t.Summary = summary.String
	t.CreatedAt, _ = parseTime(createdAt)
	t.StartedAt = parseNullableTime(startedAt)
	t.CompletedAt = parseNullableTime(completedAt)

	if errJSON.Valid && errJSON.String != "" {
		var envelope models.ErrorEnvelope
		if uerr := json.Unmarshal([]byte(errJSON.String), &envelope); uerr == nil {
			t.Error = &envelope
		}
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
