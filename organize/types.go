package organize

import (
	"context"
	"errors"

	"tidyboard-api/domain"
)

// Store is the persistence contract the pipeline reads through. Space, board
// and date filtering happen in the builder; the store only scans partitions.
type Store interface {
	FetchBoards(ctx context.Context, userID string) ([]domain.Board, error)
	FetchColumns(ctx context.Context, boardIDs []string) ([]domain.Column, error)
	FetchTasks(ctx context.Context, userID string) ([]domain.Task, error)
}

// TaskStore is the write contract of the batch applier: one partial update per
// task, plus a best-effort mutation event for the read-model consumers.
type TaskStore interface {
	PatchTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) error
	EnqueueTaskEvent(ctx context.Context, ev domain.TaskEvent) error
}

// SuggestionOracle is the external reasoning capability that produces raw
// suggestions from a workload context. Implementations are opaque and
// non-deterministic; tests substitute a stub.
type SuggestionOracle interface {
	Generate(ctx context.Context, wc domain.WorkloadContext) (OracleResult, error)
}

// OracleResult is the schema-validated output of one oracle invocation.
type OracleResult struct {
	Summary     string
	Suggestions []domain.Suggestion
}

// Invalidator evicts a user's cached views after task mutations.
type Invalidator interface {
	InvalidateViews(ctx context.Context, userID string)
}

// Notifier fans a task mutation out to the user's other active sessions.
type Notifier interface {
	TaskUpdated(ctx context.Context, userID, taskID, boardID string, space domain.Space)
}

// GenerateRequest scopes one auto-organize run. Dates are epoch seconds.
type GenerateRequest struct {
	Space     domain.Space `json:"space"`
	BoardID   string       `json:"boardId,omitempty"`
	StartDate *int64       `json:"startDate,omitempty"`
	EndDate   *int64       `json:"endDate,omitempty"`
}

// GenerateResponse is the outcome of one auto-organize run. Empty-result
// sentinels are successes carrying an explanatory summary.
type GenerateResponse struct {
	Suggestions           []domain.Suggestion `json:"suggestions"`
	Summary               string              `json:"summary"`
	TotalTasksAnalyzed    int                 `json:"totalTasksAnalyzed"`
	CompletedTasksSkipped int                 `json:"completedTasksSkipped"`
}

// ErrGenerationFailed is the single user-facing error for any generation
// failure: storage reads, the oracle call, or a schema violation. No partial
// suggestions survive it.
var ErrGenerationFailed = errors.New("failed to generate organization suggestions")
