package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mpieniak01/venom/pkg/models"
)

// Decision audit trail operations

// RecordDecision appends a routing decision to the task's audit trail.
func (db *DB) RecordDecision(taskID string, d *models.RoutingDecision) error {
	var chainJSON sql.NullString
	if len(d.FallbackChain) > 0 {
		data, err := json.Marshal(d.FallbackChain)
		if err != nil {
			return fmt.Errorf("marshal fallback chain: %w", err)
		}
		chainJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO decisions (task_id, target, model, class, reason, complexity_score, sensitive,
			fallback_applied, fallback_chain, gate_passed, estimated_cost, remaining_budget, latency_ms, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, taskID, d.Target, d.Model, string(d.Class), string(d.Reason), d.ComplexityScore,
		boolToInt(d.Sensitive), boolToInt(d.FallbackApplied), chainJSON, boolToInt(d.PolicyGatePassed),
		d.EstimatedCost, d.RemainingBudget, d.Latency.Milliseconds(), formatTime(d.Timestamp))
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// ListDecisions returns the decisions for a task in the order they were made.
func (db *DB) ListDecisions(taskID string) ([]*models.RoutingDecision, error) {
	rows, err := db.Query(`
		SELECT target, model, class, reason, complexity_score, sensitive, fallback_applied,
			fallback_chain, gate_passed, estimated_cost, remaining_budget, latency_ms, decided_at
		FROM decisions WHERE task_id = ? ORDER BY id
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*models.RoutingDecision
	for rows.Next() {
		var d models.RoutingDecision
		var class, reason, decidedAt string
		var sensitive, fallbackApplied, gatePassed int
		var model, chainJSON sql.NullString
		var latencyMS int64

		err := rows.Scan(&d.Target, &model, &class, &reason, &d.ComplexityScore, &sensitive,
			&fallbackApplied, &chainJSON, &gatePassed, &d.EstimatedCost, &d.RemainingBudget,
			&latencyMS, &decidedAt)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}

		d.Model = model.String
		d.Class = models.BackendClass(class)
		d.Reason = models.ReasonCode(reason)
		d.Sensitive = sensitive != 0
		d.FallbackApplied = fallbackApplied != 0
		d.PolicyGatePassed = gatePassed != 0
		d.Latency = time.Duration(latencyMS) * time.Millisecond
		d.Timestamp, _ = parseTime(decidedAt)
		if chainJSON.Valid && chainJSON.String != "" {
			json.Unmarshal([]byte(chainJSON.String), &d.FallbackChain)
		}
		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}
