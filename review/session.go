// Package review holds the client-side state of one suggestion review dialog.
// A session is created fresh per generation and discarded on close; nothing in
// it is shared between users or persisted between generation and apply.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tidyboard-api/domain"
	"tidyboard-api/organize"
)

// State names one phase of the review/apply flow.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateReviewing  State = "reviewing"
	StateApplying   State = "applying"
	StateError      State = "error"
	StateClosed     State = "closed"
)

var (
	// ErrNothingIncluded gates the apply action while zero suggestions are
	// selected.
	ErrNothingIncluded = errors.New("no suggestions selected")

	errUnknownTask = errors.New("no suggestion for task")
)

// ColumnSource lazily fetches the columns of a board the user retargets a
// suggestion to. Target boards are not part of the generation context.
type ColumnSource interface {
	FetchColumns(ctx context.Context, boardIDs []string) ([]domain.Column, error)
}

// Applier executes the accepted subset of a reviewed batch.
type Applier interface {
	Apply(ctx context.Context, userID string, space domain.Space, accepted []domain.Suggestion) domain.BatchApplyResult
}

// Session is the user-editable suggestion list between generation and apply.
// Suggestions are keyed by task id within one batch.
type Session struct {
	mu sync.Mutex

	userID  string
	space   domain.Space
	source  ColumnSource
	applier Applier

	state       State
	summary     string
	suggestions []domain.Suggestion
	columns     map[string][]domain.Column
}

// NewSession creates an idle session for one user and space.
func NewSession(userID string, space domain.Space, source ColumnSource, applier Applier) *Session {
	return &Session{
		userID:  userID,
		space:   space,
		source:  source,
		applier: applier,
		state:   StateIdle,
		columns: make(map[string][]domain.Column),
	}
}

// State reports the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin marks the start of a generation run. Allowed from idle and from a
// failed previous run.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle && s.state != StateError {
		return s.transitionError(StateGenerating)
	}
	s.state = StateGenerating
	return nil
}

// FinishGeneration installs a fresh suggestion list and opens the review.
func (s *Session) FinishGeneration(resp organize.GenerateResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateGenerating {
		return s.transitionError(StateReviewing)
	}
	s.summary = resp.Summary
	s.suggestions = append([]domain.Suggestion(nil), resp.Suggestions...)
	s.columns = make(map[string][]domain.Column)
	s.state = StateReviewing
	return nil
}

// FailGeneration records a failed run. The user re-triggers from scratch.
func (s *Session) FailGeneration() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateGenerating {
		return s.transitionError(StateError)
	}
	s.state = StateError
	s.suggestions = nil
	return nil
}

// Summary returns the oracle's workload summary.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Suggestions returns a copy of the current, possibly edited list.
func (s *Session) Suggestions() []domain.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Suggestion(nil), s.suggestions...)
}

// ToggleIncluded flips one suggestion's inclusion, leaving its detail intact.
func (s *Session) ToggleIncluded(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReviewing {
		return fmt.Errorf("cannot toggle in state %s", s.state)
	}
	for i := range s.suggestions {
		if s.suggestions[i].TaskID == taskID {
			s.suggestions[i].Included = !s.suggestions[i].Included
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errUnknownTask, taskID)
}

// UpdateSuggestion fully replaces one entry, used for inline edits.
func (s *Session) UpdateSuggestion(taskID string, replacement domain.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReviewing {
		return fmt.Errorf("cannot edit in state %s", s.state)
	}
	if replacement.TaskID != taskID {
		return fmt.Errorf("replacement task id %q does not match %q", replacement.TaskID, taskID)
	}
	for i := range s.suggestions {
		if s.suggestions[i].TaskID == taskID {
			s.suggestions[i] = replacement
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errUnknownTask, taskID)
}

// TargetColumns returns the column options for a retarget board, fetching them
// on first use and caching them for the life of the session.
func (s *Session) TargetColumns(ctx context.Context, boardID string) ([]domain.Column, error) {
	s.mu.Lock()
	if cols, ok := s.columns[boardID]; ok {
		s.mu.Unlock()
		return cols, nil
	}
	s.mu.Unlock()

	cols, err := s.source.FetchColumns(ctx, []string{boardID})
	if err != nil {
		return nil, fmt.Errorf("fetch columns for board %s: %w", boardID, err)
	}

	s.mu.Lock()
	s.columns[boardID] = cols
	s.mu.Unlock()
	return cols, nil
}

// SetTargetBoard points a column-move suggestion at another board. The target
// column resets to that board's first column until the user picks one
// explicitly.
func (s *Session) SetTargetBoard(ctx context.Context, taskID, boardID, boardName string) error {
	cols, err := s.TargetColumns(ctx, boardID)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("board %s has no columns", boardID)
	}
	first := cols[0]

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReviewing {
		return fmt.Errorf("cannot edit in state %s", s.state)
	}
	for i := range s.suggestions {
		if s.suggestions[i].TaskID != taskID {
			continue
		}
		move, ok := s.suggestions[i].Details.(domain.ColumnMove)
		if !ok {
			return fmt.Errorf("suggestion for %s is not a column move", taskID)
		}
		move.SuggestedBoardID = boardID
		move.SuggestedBoardName = boardName
		move.SuggestedColumnID = first.ID
		move.SuggestedColumnName = first.Name
		s.suggestions[i].Details = move
		return nil
	}
	return fmt.Errorf("%w: %s", errUnknownTask, taskID)
}

// IncludedCount reports how many suggestions are selected for apply.
func (s *Session) IncludedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.includedLocked()
}

func (s *Session) includedLocked() int {
	n := 0
	for _, sug := range s.suggestions {
		if sug.Included {
			n++
		}
	}
	return n
}

// ApplyLabel renders the action label for the current selection.
func (s *Session) ApplyLabel() string {
	return fmt.Sprintf("Apply %d Changes", s.IncludedCount())
}

// Apply executes the included subset with each suggestion's current detail
// values and consumes the batch. Once started it runs to completion: closing
// the dialog mid-flight does not cancel in-flight updates.
func (s *Session) Apply(ctx context.Context) (domain.BatchApplyResult, error) {
	s.mu.Lock()
	if s.state != StateReviewing {
		s.mu.Unlock()
		return domain.BatchApplyResult{}, fmt.Errorf("cannot apply in state %s", s.state)
	}
	accepted := make([]domain.Suggestion, 0, len(s.suggestions))
	for _, sug := range s.suggestions {
		if sug.Included {
			accepted = append(accepted, sug)
		}
	}
	if len(accepted) == 0 {
		s.mu.Unlock()
		return domain.BatchApplyResult{}, ErrNothingIncluded
	}
	s.state = StateApplying
	s.suggestions = nil
	s.mu.Unlock()

	res := s.applier.Apply(ctx, s.userID, s.space, accepted)

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	return res, nil
}

// Close abandons the dialog. Before apply this has zero side effects; during
// apply the in-flight batch still runs to completion.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateApplying {
		// The in-flight batch settles on its own; the state flips to closed
		// when it does.
		return
	}
	s.state = StateClosed
	s.suggestions = nil
}

func (s *Session) transitionError(to State) error {
	return fmt.Errorf("invalid transition %s -> %s", s.state, to)
}
