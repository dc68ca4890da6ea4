package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DetailKind discriminates the suggestion detail variants on the wire.
type DetailKind string

const (
	DetailColumnMove     DetailKind = "column-move"
	DetailPriorityChange DetailKind = "priority-change"
	DetailDueDateAdjust  DetailKind = "due-date-adjust"
)

// SuggestionDetail is the closed set of single-field changes the organizer may
// propose for a task. Exactly one variant backs every suggestion; structural
// changes to boards or columns are never expressed here.
type SuggestionDetail interface {
	Kind() DetailKind
	// Patch renders the variant as the single-field task update it stands for.
	Patch() TaskPatch

	isSuggestionDetail()
}

// ColumnMove proposes relocating a task to another column, possibly on a
// different board.
type ColumnMove struct {
	CurrentBoardID      string `json:"currentBoardId"`
	CurrentBoardName    string `json:"currentBoardName"`
	CurrentColumnID     string `json:"currentColumnId"`
	CurrentColumnName   string `json:"currentColumnName"`
	SuggestedBoardID    string `json:"suggestedBoardId"`
	SuggestedBoardName  string `json:"suggestedBoardName"`
	SuggestedColumnID   string `json:"suggestedColumnId"`
	SuggestedColumnName string `json:"suggestedColumnName"`
}

func (ColumnMove) Kind() DetailKind { return DetailColumnMove }

func (m ColumnMove) Patch() TaskPatch {
	columnID := m.SuggestedColumnID
	patch := TaskPatch{ColumnID: &columnID}
	if m.SuggestedBoardID != m.CurrentBoardID {
		boardID := m.SuggestedBoardID
		patch.BoardID = &boardID
	}
	return patch
}

func (ColumnMove) isSuggestionDetail() {}

// PriorityChange proposes a new priority for a task.
type PriorityChange struct {
	CurrentPriority   Priority `json:"currentPriority"`
	SuggestedPriority Priority `json:"suggestedPriority"`
}

func (PriorityChange) Kind() DetailKind { return DetailPriorityChange }

func (p PriorityChange) Patch() TaskPatch {
	priority := p.SuggestedPriority
	return TaskPatch{Priority: &priority}
}

func (PriorityChange) isSuggestionDetail() {}

// DueDateAdjust proposes a new due date for a task. CurrentDueDate is nil when
// the task has no due date yet.
type DueDateAdjust struct {
	CurrentDueDate   *int64 `json:"currentDueDate"`
	SuggestedDueDate int64  `json:"suggestedDueDate"`
}

func (DueDateAdjust) Kind() DetailKind { return DetailDueDateAdjust }

func (d DueDateAdjust) Patch() TaskPatch {
	dueDate := d.SuggestedDueDate
	return TaskPatch{DueDate: &dueDate}
}

func (DueDateAdjust) isSuggestionDetail() {}

// Suggestion is a proposed single-field change to one task, carrying the
// oracle's confidence and rationale. Included is review-dialog state only and
// is never persisted.
type Suggestion struct {
	TaskID          string
	TaskTitle       string
	TaskDescription string
	Details         SuggestionDetail
	Reason          string
	Confidence      int
	Included        bool
}

type suggestionJSON struct {
	TaskID          string          `json:"taskId"`
	TaskTitle       string          `json:"taskTitle"`
	TaskDescription string          `json:"taskDescription,omitempty"`
	Details         json.RawMessage `json:"details"`
	Reason          string          `json:"reason"`
	Confidence      int             `json:"confidence"`
	Included        bool            `json:"included"`
}

// MarshalJSON encodes the detail variant with a type discriminator so the
// union survives the client round trip.
func (s Suggestion) MarshalJSON() ([]byte, error) {
	detail, err := MarshalDetail(s.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(suggestionJSON{
		TaskID:          s.TaskID,
		TaskTitle:       s.TaskTitle,
		TaskDescription: s.TaskDescription,
		Details:         detail,
		Reason:          s.Reason,
		Confidence:      s.Confidence,
		Included:        s.Included,
	})
}

func (s *Suggestion) UnmarshalJSON(data []byte) error {
	var aux suggestionJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	detail, err := UnmarshalDetail(aux.Details)
	if err != nil {
		return err
	}
	*s = Suggestion{
		TaskID:          aux.TaskID,
		TaskTitle:       aux.TaskTitle,
		TaskDescription: aux.TaskDescription,
		Details:         detail,
		Reason:          aux.Reason,
		Confidence:      aux.Confidence,
		Included:        aux.Included,
	}
	return nil
}

// MarshalDetail encodes a detail variant together with its discriminator.
func MarshalDetail(d SuggestionDetail) ([]byte, error) {
	switch v := d.(type) {
	case ColumnMove:
		return json.Marshal(struct {
			Type DetailKind `json:"type"`
			ColumnMove
		}{DetailColumnMove, v})
	case PriorityChange:
		return json.Marshal(struct {
			Type DetailKind `json:"type"`
			PriorityChange
		}{DetailPriorityChange, v})
	case DueDateAdjust:
		return json.Marshal(struct {
			Type DetailKind `json:"type"`
			DueDateAdjust
		}{DetailDueDateAdjust, v})
	case nil:
		return nil, errors.New("suggestion detail is required")
	default:
		return nil, fmt.Errorf("unknown suggestion detail %T", d)
	}
}

// UnmarshalDetail decodes a detail variant by its discriminator.
func UnmarshalDetail(data []byte) (SuggestionDetail, error) {
	if len(data) == 0 {
		return nil, errors.New("suggestion detail is required")
	}
	var probe struct {
		Type DetailKind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	switch probe.Type {
	case DetailColumnMove:
		var v ColumnMove
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case DetailPriorityChange:
		var v PriorityChange
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case DetailDueDateAdjust:
		var v DueDateAdjust
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown suggestion detail type %q", probe.Type)
	}
}

// ApplyError records one failed task update inside a batch.
type ApplyError struct {
	TaskID string `json:"taskId"`
	Error  string `json:"error"`
}

// BatchApplyResult aggregates the outcome of independent single-task updates.
// Errors is omitted entirely when every update succeeded.
type BatchApplyResult struct {
	Applied int          `json:"applied"`
	Failed  int          `json:"failed"`
	Errors  []ApplyError `json:"errors,omitempty"`
}
