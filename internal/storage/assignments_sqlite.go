package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/diario/internal/record"
	"github.com/matsen/diario/internal/topic"
)

// MonthlyTopicCount is the number of records of one topic in one month.
// Month is the last day of the month, formatted YYYY-MM-DD.
type MonthlyTopicCount struct {
	Month     string `json:"month"`
	TopicName string `json:"topic"`
	Count     int    `json:"count"`
}

// createAssignmentsSchema creates the topic_assignments table and indexes.
func createAssignmentsSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS topic_assignments (
			record_id TEXT PRIMARY KEY,
			topic_id INTEGER NOT NULL,
			topic_name TEXT NOT NULL,
			probability REAL NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_assignments_topic ON topic_assignments(topic_id);
	`
	_, err := db.Exec(schema)
	return err
}

// RebuildAssignmentsFromJSONL clears the topic_assignments table and rebuilds it from a JSONL file.
func (d *DB) RebuildAssignmentsFromJSONL(jsonlPath string) (int, error) {
	assignments, err := ReadAllAssignments(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading assignments JSONL: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM topic_assignments"); err != nil {
		return 0, fmt.Errorf("clearing topic_assignments table: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO topic_assignments (record_id, topic_id, topic_name, probability)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing assignments insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range assignments {
		if _, err := stmt.Exec(a.RecordID, a.TopicID, a.TopicName, a.Probability); err != nil {
			return 0, fmt.Errorf("inserting assignment for %s: %w", a.RecordID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing assignments: %w", err)
	}

	return len(assignments), nil
}

// GetAssignment returns the topic assignment of a record, or nil if it has none.
func (d *DB) GetAssignment(recordID string) (*topic.Assignment, error) {
	var a topic.Assignment
	err := d.db.QueryRow(`
		SELECT record_id, topic_id, topic_name, probability
		FROM topic_assignments
		WHERE record_id = ?
	`, recordID).Scan(&a.RecordID, &a.TopicID, &a.TopicName, &a.Probability)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ListRecordsByTopic returns the records assigned to a topic, most
// representative first.
func (d *DB) ListRecordsByTopic(topicID, limit int) ([]record.Record, error) {
	rows, err := d.db.Query(`
		SELECT r.id, r.source, r.text, r.timestamp
		FROM topic_assignments a
		JOIN records r ON r.id = a.record_id
		WHERE a.topic_id = ?
		ORDER BY a.probability DESC, r.ts_unix
		LIMIT ?
	`, topicID, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("listing topic %d: %w", topicID, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// CountAssignments returns the number of stored topic assignments.
func (d *DB) CountAssignments() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM topic_assignments").Scan(&count)
	return count, err
}

// MonthlyTopicCounts counts assigned records per month and topic name.
// Months are keyed by their last day. When topicNames is non-empty only
// those topics are counted.
func (d *DB) MonthlyTopicCounts(topicNames []string) ([]MonthlyTopicCount, error) {
	query := `
		SELECT date(r.ts_unix, 'unixepoch', 'start of month', '+1 month', '-1 day') AS month,
			a.topic_name,
			COUNT(*)
		FROM topic_assignments a
		JOIN records r ON r.id = a.record_id`

	var args []interface{}
	if len(topicNames) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(topicNames)), ",")
		query += " WHERE a.topic_name IN (" + placeholders + ")"
		for _, name := range topicNames {
			args = append(args, name)
		}
	}
	query += " GROUP BY month, a.topic_name ORDER BY month, a.topic_name"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("counting topics per month: %w", err)
	}
	defer rows.Close()

	var counts []MonthlyTopicCount
	for rows.Next() {
		var c MonthlyTopicCount
		if err := rows.Scan(&c.Month, &c.TopicName, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
