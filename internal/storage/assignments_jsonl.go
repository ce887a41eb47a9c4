package storage

import (
	"github.com/matsen/diario/internal/topic"
)

// ReadAllAssignments reads all topic assignments from a JSONL file.
func ReadAllAssignments(path string) ([]topic.Assignment, error) {
	return readJSONL[topic.Assignment](path, "assignments")
}

// WriteAllAssignments writes all topic assignments to a JSONL file, replacing existing content.
func WriteAllAssignments(path string, assignments []topic.Assignment) error {
	return writeJSONL(path, "assignments", assignments)
}
