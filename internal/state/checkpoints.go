package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Campaign checkpoint operations

// SaveCheckpoint records that milestones [0, completed) of the task's
// campaign are done, replacing any earlier checkpoint.
func (db *DB) SaveCheckpoint(taskID string, completed int, outputs []string) error {
	data, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("marshal checkpoint outputs: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO checkpoints (task_id, completed, outputs, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			completed = excluded.completed,
			outputs = excluded.outputs,
			updated_at = excluded.updated_at
	`, taskID, completed, string(data), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the completed milestone count and outputs for a
// task. A task with no checkpoint returns (0, nil, nil).
func (db *DB) LoadCheckpoint(taskID string) (int, []string, error) {
	row := db.QueryRow(`
		SELECT completed, outputs FROM checkpoints WHERE task_id = ?
	`, taskID)

	var completed int
	var outputsJSON string
	err := row.Scan(&completed, &outputsJSON)
	if err == sql.ErrNoRows {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var outputs []string
	if err := json.Unmarshal([]byte(outputsJSON), &outputs); err != nil {
		return 0, nil, fmt.Errorf("unmarshal checkpoint outputs: %w", err)
	}
	return completed, outputs, nil
}

// ClearCheckpoint removes the checkpoint for a task, typically after the
// campaign completes.
func (db *DB) ClearCheckpoint(taskID string) error {
	if _, err := db.Exec(`DELETE FROM checkpoints WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}
