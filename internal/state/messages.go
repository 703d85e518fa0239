package state

import (
	"fmt"
	"time"
)

// Message is one stored exchange entry used to rebuild session context.
type Message struct {
	TaskID    string    `json:"task_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendMessage stores one session message.
func (db *DB) AppendMessage(m *Message) error {
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO messages (task_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, m.TaskID, m.Role, m.Content, formatTime(created))
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// RecentMessages returns the most recent messages, oldest first, capped
// at limit.
func (db *DB) RecentMessages(limit int) ([]Message, error) {
	rows, err := db.Query(`
		SELECT task_id, role, content, created_at FROM (
			SELECT id, task_id, role, content, created_at
			FROM messages ORDER BY id DESC LIMIT ?
		) ORDER BY id
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var createdAt string
		if err := rows.Scan(&m.TaskID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt, _ = parseTime(createdAt)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
