package api

import "tidyboard-api/domain"

const (
	organizeRequestMaxSize = 16 * 1024  // 16 KiB
	applyRequestMaxSize    = 256 * 1024 // 256 KiB
	patchRequestMaxSize    = 4 * 1024   // 4 KiB
)

// POST /api/organize/apply request body
type applyRequest struct {
	Space       domain.Space        `json:"space"`
	BatchID     string              `json:"batchId,omitempty"`
	Suggestions []domain.Suggestion `json:"suggestions"`
}

// POST /api/organize/apply response body
type applyResponse struct {
	BatchID string `json:"batchId"`
	domain.BatchApplyResult
}

// GET /api/boards response body
type boardsResponse struct {
	Boards []boardView `json:"boards"`
}

type boardView struct {
	domain.Board
	Columns []domain.Column `json:"columns"`
}

// GET /api/tasks and /api/agenda response body
type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}
