package domain

// Space is a top-level partition of a user's boards and tasks.
type Space string

const (
	SpaceWork     Space = "work"
	SpacePersonal Space = "personal"
)

// Valid reports whether s is one of the known spaces.
func (s Space) Valid() bool {
	return s == SpaceWork || s == SpacePersonal
}

// Board groups columns inside a space.
type Board struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Space       Space  `json:"space"`
}

// Column is a single lane on a board. TaskCount is derived from the ongoing
// task set and never stored.
type Column struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoardID   string `json:"boardId"`
	WIPLimit  *int   `json:"wipLimit,omitempty"`
	TaskCount int    `json:"taskCount"`
}
