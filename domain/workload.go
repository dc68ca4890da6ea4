package domain

import "time"

// WorkloadContext is the aggregated view of a user's in-progress work handed
// to the suggestion oracle.
type WorkloadContext struct {
	GeneratedAt           time.Time       `json:"generatedAt"`
	Timezone              string          `json:"timezone"`
	Boards                []BoardWorkload `json:"boards"`
	OngoingTasks          []TaskContext   `json:"ongoingTasks"`
	CompletedTasksSkipped int             `json:"completedTasksSkipped"`
}

// BoardWorkload pairs a board with its columns. Column task counts reflect
// ongoing tasks only, so completed work never inflates workload signals.
type BoardWorkload struct {
	Board   Board    `json:"board"`
	Columns []Column `json:"columns"`
}

// TaskContext carries a task with its column and board names resolved, which
// the oracle needs to describe moves in human terms.
type TaskContext struct {
	Task
	ColumnName string `json:"columnName"`
	BoardName  string `json:"boardName"`
}
