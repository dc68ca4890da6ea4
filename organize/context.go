package organize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tidyboard-api/domain"
)

// completionMarker identifies the column that holds finished work. The match
// is case-insensitive on the column name.
const completionMarker = "done"

// ContextBuilder aggregates a user's in-progress work into the workload
// context handed to the oracle.
type ContextBuilder struct {
	store Store
	now   func() time.Time
	tz    *time.Location
}

// NewContextBuilder creates a builder reading through the given store.
func NewContextBuilder(store Store) *ContextBuilder {
	return &ContextBuilder{store: store, now: time.Now, tz: time.Local}
}

// Build resolves boards, columns and tasks for (user, space), partitions tasks
// into ongoing and completed, and computes per-column load from the ongoing
// set only. An empty board or ongoing set is not an error; callers detect it
// from the returned context.
func (b *ContextBuilder) Build(ctx context.Context, userID string, req GenerateRequest) (domain.WorkloadContext, error) {
	now := b.now().In(b.tz)
	wc := domain.WorkloadContext{
		GeneratedAt: now,
		Timezone:    b.tz.String(),
	}

	boards, err := b.store.FetchBoards(ctx, userID)
	if err != nil {
		return domain.WorkloadContext{}, fmt.Errorf("fetch boards: %w", err)
	}
	scoped := make([]domain.Board, 0, len(boards))
	for _, board := range boards {
		if board.Space != req.Space {
			continue
		}
		if req.BoardID != "" && board.ID != req.BoardID {
			continue
		}
		scoped = append(scoped, board)
	}
	if len(scoped) == 0 {
		return wc, nil
	}

	boardIDs := make([]string, len(scoped))
	boardNames := make(map[string]string, len(scoped))
	for i, board := range scoped {
		boardIDs[i] = board.ID
		boardNames[board.ID] = board.Name
	}

	columns, err := b.store.FetchColumns(ctx, boardIDs)
	if err != nil {
		return domain.WorkloadContext{}, fmt.Errorf("fetch columns: %w", err)
	}
	columnByID := make(map[string]domain.Column, len(columns))
	doneColumns := make(map[string]bool)
	for _, col := range columns {
		columnByID[col.ID] = col
		if strings.EqualFold(col.Name, completionMarker) {
			doneColumns[col.ID] = true
		}
	}

	tasks, err := b.store.FetchTasks(ctx, userID)
	if err != nil {
		return domain.WorkloadContext{}, fmt.Errorf("fetch tasks: %w", err)
	}

	nowUnix := now.Unix()
	ongoingByColumn := make(map[string]int)
	for _, task := range tasks {
		if _, inScope := columnByID[task.ColumnID]; !inScope {
			continue
		}
		if !includeByDueDate(task.DueDate, req.StartDate, req.EndDate, nowUnix) {
			continue
		}
		if doneColumns[task.ColumnID] {
			wc.CompletedTasksSkipped++
			continue
		}
		col := columnByID[task.ColumnID]
		ongoingByColumn[task.ColumnID]++
		wc.OngoingTasks = append(wc.OngoingTasks, domain.TaskContext{
			Task:       task,
			ColumnName: col.Name,
			BoardName:  boardNames[task.BoardID],
		})
	}

	columnsByBoard := make(map[string][]domain.Column, len(scoped))
	for _, col := range columns {
		col.TaskCount = ongoingByColumn[col.ID]
		columnsByBoard[col.BoardID] = append(columnsByBoard[col.BoardID], col)
	}
	wc.Boards = make([]domain.BoardWorkload, len(scoped))
	for i, board := range scoped {
		wc.Boards[i] = domain.BoardWorkload{Board: board, Columns: columnsByBoard[board.ID]}
	}
	return wc, nil
}

// OngoingTaskCounts derives per-column ongoing task counts from the full task
// list. Tasks sitting in a completion column or in a column outside the given
// set contribute nothing.
func OngoingTaskCounts(columns []domain.Column, tasks []domain.Task) map[string]int {
	ongoing := make(map[string]bool, len(columns))
	for _, col := range columns {
		ongoing[col.ID] = !strings.EqualFold(col.Name, completionMarker)
	}
	counts := make(map[string]int)
	for _, task := range tasks {
		if ongoing[task.ColumnID] {
			counts[task.ColumnID]++
		}
	}
	return counts
}

// includeByDueDate applies the generation date predicate. Overdue tasks always
// surface when any range is given; tasks without a due date pass only when no
// range is given at all.
func includeByDueDate(due, start, end *int64, now int64) bool {
	if start == nil && end == nil {
		return true
	}
	if due == nil {
		return false
	}
	switch {
	case start != nil && end != nil:
		return (*due >= *start && *due <= *end) || *due < now
	case start != nil:
		return *due < now || *due >= *start
	default:
		return *due <= *end
	}
}
