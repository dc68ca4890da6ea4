package storage

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"tidyboard-api/domain"
)

// Storage provides access to underlying persistence mechanisms.
type Storage struct {
	boardTable  *aztables.Client
	columnTable *aztables.Client
	taskTable   *aztables.Client
	eventQueue  *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr, boardsTable, columnsTable, tasksTable, eventQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	bt := svc.NewClient(boardsTable)
	ct := svc.NewClient(columnsTable)
	tt := svc.NewClient(tasksTable)
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	eq, err := azqueue.NewQueueClientFromConnectionString(connStr, eventQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{boardTable: bt, columnTable: ct, taskTable: tt, eventQueue: eq}, nil
}

// Board rows are partitioned by owner, column rows by board, task rows by
// owner again so one scan covers a whole space.
type boardEntity struct {
	aztables.Entity
	Name        string `json:"Name"`
	Description string `json:"Description"`
	Space       string `json:"Space"`
}

type columnEntity struct {
	aztables.Entity
	Name     string `json:"Name"`
	Position int    `json:"Position"`
	WIPLimit *int   `json:"WIPLimit,omitempty"`
}

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	DueDate     *int64 `json:"DueDate,omitempty"`
	Priority    string `json:"Priority"`
	Labels      string `json:"Labels"`
	ColumnID    string `json:"ColumnId"`
	BoardID     string `json:"BoardId"`
}

// FetchBoards retrieves all boards owned by the provided user.
func (s *Storage) FetchBoards(ctx context.Context, userID string) ([]domain.Board, error) {
	filter := "PartitionKey eq '" + userID + "'"
	pager := s.boardTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	boards := []domain.Board{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent boardEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			boards = append(boards, domain.Board{
				ID:          ent.RowKey,
				Name:        ent.Name,
				Description: ent.Description,
				Space:       domain.Space(ent.Space),
			})
		}
	}
	return boards, nil
}

// FetchColumns retrieves the columns of the given boards, ordered by their
// position within each board.
func (s *Storage) FetchColumns(ctx context.Context, boardIDs []string) ([]domain.Column, error) {
	type positioned struct {
		col domain.Column
		pos int
	}
	cols := []positioned{}
	for _, boardID := range boardIDs {
		filter := "PartitionKey eq '" + boardID + "'"
		pager := s.columnTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
		for pager.More() {
			resp, err := pager.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			for _, e := range resp.Entities {
				var ent columnEntity
				if err := json.Unmarshal(e, &ent); err != nil {
					return nil, err
				}
				cols = append(cols, positioned{
					col: domain.Column{
						ID:       ent.RowKey,
						Name:     ent.Name,
						BoardID:  ent.PartitionKey,
						WIPLimit: ent.WIPLimit,
					},
					pos: ent.Position,
				})
			}
		}
	}
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].col.BoardID != cols[j].col.BoardID {
			return cols[i].col.BoardID < cols[j].col.BoardID
		}
		return cols[i].pos < cols[j].pos
	})
	out := make([]domain.Column, len(cols))
	for i, c := range cols {
		out[i] = c.col
	}
	return out, nil
}

// FetchTasks retrieves all tasks for the provided user.
func (s *Storage) FetchTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + userID + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			tasks = append(tasks, domain.Task{
				ID:          ent.RowKey,
				Title:       ent.Title,
				Description: ent.Description,
				DueDate:     ent.DueDate,
				Priority:    domain.Priority(ent.Priority),
				Labels:      decodeLabels(ent.Labels),
				ColumnID:    ent.ColumnID,
				BoardID:     ent.BoardID,
			})
		}
	}
	return tasks, nil
}

// PatchTask merges the set fields of the patch into one task row. Unset
// fields are left untouched by the merge.
func (s *Storage) PatchTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) error {
	props := map[string]any{
		"PartitionKey": userID,
		"RowKey":       taskID,
	}
	if patch.ColumnID != nil {
		props["ColumnId"] = *patch.ColumnID
	}
	if patch.BoardID != nil {
		props["BoardId"] = *patch.BoardID
	}
	if patch.Priority != nil {
		props["Priority"] = string(*patch.Priority)
	}
	if patch.DueDate != nil {
		props["DueDate"] = *patch.DueDate
	}
	data, err := json.Marshal(props)
	if err != nil {
		return err
	}
	updateMode := aztables.UpdateModeMerge
	_, err = s.taskTable.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: updateMode})
	return err
}

// EnqueueTaskEvent sends the given event to the task event queue.
func (s *Storage) EnqueueTaskEvent(ctx context.Context, ev domain.TaskEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.eventQueue.EnqueueMessage(ctx, string(data), nil)
	return err
}

// Labels live in a single table property as a JSON array.
func decodeLabels(raw string) []string {
	if raw == "" {
		return nil
	}
	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil
	}
	return labels
}
