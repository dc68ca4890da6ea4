package api

import (
	"context"

	"tidyboard-api/domain"
	"tidyboard-api/organize"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	FetchBoards(ctx context.Context, userID string) ([]domain.Board, error)
	FetchColumns(ctx context.Context, boardIDs []string) ([]domain.Column, error)
	FetchTasks(ctx context.Context, userID string) ([]domain.Task, error)
	PatchTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) error
	EnqueueTaskEvent(ctx context.Context, ev domain.TaskEvent) error
}

// Organizer runs suggestion generation and batch apply.
type Organizer interface {
	Generate(ctx context.Context, userID string, req organize.GenerateRequest) (organize.GenerateResponse, error)
	Apply(ctx context.Context, userID string, space domain.Space, suggestions []domain.Suggestion) domain.BatchApplyResult
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents a retried apply batch from mutating tasks twice.
type Deduper interface {
	// Add records the batch key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the whole batch failed.
	Remove(ctx context.Context, userID, key string) error
}

// Notifier fans a task mutation out to the user's other active sessions.
type Notifier interface {
	TaskUpdated(ctx context.Context, userID, taskID, boardID string, space domain.Space)
}
