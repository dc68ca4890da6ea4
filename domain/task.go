package domain

// Priority ranks how urgently a task needs attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task represents a single board item in the read model.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	DueDate     *int64   `json:"dueDate,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	ColumnID    string   `json:"columnId"`
	BoardID     string   `json:"boardId"`
}

// TaskPatch is a partial update of a single task. A patch produced from a
// suggestion changes exactly one aspect of the task; BoardID rides along with
// ColumnID when a move crosses boards.
type TaskPatch struct {
	ColumnID *string   `json:"columnId,omitempty"`
	BoardID  *string   `json:"boardId,omitempty"`
	Priority *Priority `json:"priority,omitempty"`
	DueDate  *int64    `json:"dueDate,omitempty"`
}

// Empty reports whether the patch carries no changes.
func (p TaskPatch) Empty() bool {
	return p.ColumnID == nil && p.BoardID == nil && p.Priority == nil && p.DueDate == nil
}
