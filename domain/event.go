package domain

import "encoding/json"

// EventTaskUpdated marks a partial update of one task.
const EventTaskUpdated = "task-updated"

// TaskEvent records a single task mutation for the read-model queue consumers.
type TaskEvent struct {
	UserID    string          `json:"userId"`
	TaskID    string          `json:"taskId"`
	BoardID   string          `json:"boardId,omitempty"`
	Space     Space           `json:"space,omitempty"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}
