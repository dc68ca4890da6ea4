package review

import (
	"context"
	"errors"
	"testing"

	"tidyboard-api/domain"
	"tidyboard-api/organize"
)

type stubColumnSource struct {
	fetchFn func(ctx context.Context, boardIDs []string) ([]domain.Column, error)
	calls   int
}

func (s *stubColumnSource) FetchColumns(ctx context.Context, boardIDs []string) ([]domain.Column, error) {
	s.calls++
	if s.fetchFn != nil {
		return s.fetchFn(ctx, boardIDs)
	}
	return nil, nil
}

type stubApplier struct {
	applyFn func(ctx context.Context, userID string, space domain.Space, accepted []domain.Suggestion) domain.BatchApplyResult
	last    []domain.Suggestion
}

func (s *stubApplier) Apply(ctx context.Context, userID string, space domain.Space, accepted []domain.Suggestion) domain.BatchApplyResult {
	s.last = accepted
	if s.applyFn != nil {
		return s.applyFn(ctx, userID, space, accepted)
	}
	return domain.BatchApplyResult{Applied: len(accepted)}
}

func moveSuggestion(taskID string) domain.Suggestion {
	return domain.Suggestion{
		TaskID:     taskID,
		TaskTitle:  "t " + taskID,
		Reason:     "column is overloaded",
		Confidence: 80,
		Included:   true,
		Details: domain.ColumnMove{
			CurrentBoardID:      "b1",
			CurrentBoardName:    "Work",
			CurrentColumnID:     "c1",
			CurrentColumnName:   "Backlog",
			SuggestedBoardID:    "b1",
			SuggestedBoardName:  "Work",
			SuggestedColumnID:   "c2",
			SuggestedColumnName: "In Progress",
		},
	}
}

func reviewingSession(t *testing.T, applier *stubApplier, source *stubColumnSource, suggestions ...domain.Suggestion) *Session {
	t.Helper()
	if applier == nil {
		applier = &stubApplier{}
	}
	if source == nil {
		source = &stubColumnSource{}
	}
	s := NewSession("user-1", domain.SpaceWork, source, applier)
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.FinishGeneration(organize.GenerateResponse{Suggestions: suggestions, Summary: "summary"}); err != nil {
		t.Fatalf("FinishGeneration: %v", err)
	}
	return s
}

func TestLifecycleHappyPath(t *testing.T) {
	applier := &stubApplier{}
	s := reviewingSession(t, applier, nil, moveSuggestion("t1"))

	if got := s.State(); got != StateReviewing {
		t.Fatalf("state = %s, want %s", got, StateReviewing)
	}
	if got := s.Summary(); got != "summary" {
		t.Fatalf("summary = %q", got)
	}

	res, err := s.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Applied != 1 {
		t.Fatalf("applied = %d, want 1", res.Applied)
	}
	if got := s.State(); got != StateClosed {
		t.Fatalf("state after apply = %s, want %s", got, StateClosed)
	}
}

func TestGenerationFailureReturnsToError(t *testing.T) {
	s := NewSession("user-1", domain.SpaceWork, &stubColumnSource{}, &stubApplier{})
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.FailGeneration(); err != nil {
		t.Fatalf("FailGeneration: %v", err)
	}
	if got := s.State(); got != StateError {
		t.Fatalf("state = %s, want %s", got, StateError)
	}
	// A failed run can be retried without recreating the session.
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin after error: %v", err)
	}
}

func TestBeginRejectedWhileReviewing(t *testing.T) {
	s := reviewingSession(t, nil, nil, moveSuggestion("t1"))
	if err := s.Begin(); err == nil {
		t.Fatal("expected transition error, got nil")
	}
}

func TestToggleIncludedFlipsSelection(t *testing.T) {
	s := reviewingSession(t, nil, nil, moveSuggestion("t1"), moveSuggestion("t2"))

	if err := s.ToggleIncluded("t2"); err != nil {
		t.Fatalf("ToggleIncluded: %v", err)
	}
	if got := s.IncludedCount(); got != 1 {
		t.Fatalf("included = %d, want 1", got)
	}
	if err := s.ToggleIncluded("t2"); err != nil {
		t.Fatalf("ToggleIncluded again: %v", err)
	}
	if got := s.IncludedCount(); got != 2 {
		t.Fatalf("included = %d, want 2", got)
	}
	if err := s.ToggleIncluded("missing"); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestApplyLabelTracksSelection(t *testing.T) {
	s := reviewingSession(t, nil, nil, moveSuggestion("t1"), moveSuggestion("t2"), moveSuggestion("t3"))
	if got := s.ApplyLabel(); got != "Apply 3 Changes" {
		t.Fatalf("label = %q", got)
	}
	if err := s.ToggleIncluded("t1"); err != nil {
		t.Fatalf("ToggleIncluded: %v", err)
	}
	if got := s.ApplyLabel(); got != "Apply 2 Changes" {
		t.Fatalf("label = %q", got)
	}
}

func TestUpdateSuggestionReplacesEntry(t *testing.T) {
	s := reviewingSession(t, nil, nil, moveSuggestion("t1"))

	edited := moveSuggestion("t1")
	move := edited.Details.(domain.ColumnMove)
	move.SuggestedColumnID = "c9"
	move.SuggestedColumnName = "Done"
	edited.Details = move

	if err := s.UpdateSuggestion("t1", edited); err != nil {
		t.Fatalf("UpdateSuggestion: %v", err)
	}
	got := s.Suggestions()[0].Details.(domain.ColumnMove)
	if got.SuggestedColumnID != "c9" {
		t.Fatalf("suggested column = %s, want c9", got.SuggestedColumnID)
	}
}

func TestUpdateSuggestionRejectsMismatchedTaskID(t *testing.T) {
	s := reviewingSession(t, nil, nil, moveSuggestion("t1"))
	if err := s.UpdateSuggestion("t1", moveSuggestion("t2")); err == nil {
		t.Fatal("expected mismatch error, got nil")
	}
}

func TestTargetColumnsFetchedOncePerBoard(t *testing.T) {
	source := &stubColumnSource{fetchFn: func(_ context.Context, boardIDs []string) ([]domain.Column, error) {
		return []domain.Column{
			{ID: "c10", Name: "Inbox", BoardID: boardIDs[0]},
			{ID: "c11", Name: "Doing", BoardID: boardIDs[0]},
		}, nil
	}}
	s := reviewingSession(t, nil, source, moveSuggestion("t1"))

	for i := 0; i < 3; i++ {
		cols, err := s.TargetColumns(context.Background(), "b2")
		if err != nil {
			t.Fatalf("TargetColumns: %v", err)
		}
		if len(cols) != 2 {
			t.Fatalf("columns = %d, want 2", len(cols))
		}
	}
	if source.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", source.calls)
	}
}

func TestSetTargetBoardResetsColumnToFirst(t *testing.T) {
	source := &stubColumnSource{fetchFn: func(_ context.Context, boardIDs []string) ([]domain.Column, error) {
		return []domain.Column{
			{ID: "c20", Name: "Todo", BoardID: boardIDs[0]},
			{ID: "c21", Name: "Later", BoardID: boardIDs[0]},
		}, nil
	}}
	s := reviewingSession(t, nil, source, moveSuggestion("t1"))

	if err := s.SetTargetBoard(context.Background(), "t1", "b2", "Personal"); err != nil {
		t.Fatalf("SetTargetBoard: %v", err)
	}
	move := s.Suggestions()[0].Details.(domain.ColumnMove)
	if move.SuggestedBoardID != "b2" || move.SuggestedBoardName != "Personal" {
		t.Fatalf("board = %s/%s, want b2/Personal", move.SuggestedBoardID, move.SuggestedBoardName)
	}
	if move.SuggestedColumnID != "c20" || move.SuggestedColumnName != "Todo" {
		t.Fatalf("column = %s/%s, want first column c20/Todo", move.SuggestedColumnID, move.SuggestedColumnName)
	}
	// The source column stays what it was.
	if move.CurrentColumnID != "c1" {
		t.Fatalf("current column changed to %s", move.CurrentColumnID)
	}
}

func TestSetTargetBoardFetchFailure(t *testing.T) {
	source := &stubColumnSource{fetchFn: func(context.Context, []string) ([]domain.Column, error) {
		return nil, errors.New("tables down")
	}}
	s := reviewingSession(t, nil, source, moveSuggestion("t1"))
	if err := s.SetTargetBoard(context.Background(), "t1", "b2", "Personal"); err == nil {
		t.Fatal("expected fetch error, got nil")
	}
}

func TestApplySendsOnlyIncludedWithEdits(t *testing.T) {
	applier := &stubApplier{}
	s := reviewingSession(t, applier, nil, moveSuggestion("t1"), moveSuggestion("t2"))

	if err := s.ToggleIncluded("t1"); err != nil {
		t.Fatalf("ToggleIncluded: %v", err)
	}
	edited := moveSuggestion("t2")
	move := edited.Details.(domain.ColumnMove)
	move.SuggestedColumnID = "c-edited"
	edited.Details = move
	if err := s.UpdateSuggestion("t2", edited); err != nil {
		t.Fatalf("UpdateSuggestion: %v", err)
	}

	if _, err := s.Apply(context.Background()); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(applier.last) != 1 {
		t.Fatalf("accepted = %d, want 1", len(applier.last))
	}
	got := applier.last[0].Details.(domain.ColumnMove)
	if applier.last[0].TaskID != "t2" || got.SuggestedColumnID != "c-edited" {
		t.Fatalf("accepted %s -> %s, want t2 -> c-edited", applier.last[0].TaskID, got.SuggestedColumnID)
	}
}

func TestApplyWithNothingIncluded(t *testing.T) {
	s := reviewingSession(t, nil, nil, moveSuggestion("t1"))
	if err := s.ToggleIncluded("t1"); err != nil {
		t.Fatalf("ToggleIncluded: %v", err)
	}
	if _, err := s.Apply(context.Background()); !errors.Is(err, ErrNothingIncluded) {
		t.Fatalf("err = %v, want ErrNothingIncluded", err)
	}
	// Still reviewing, the selection can be changed and applied later.
	if got := s.State(); got != StateReviewing {
		t.Fatalf("state = %s, want %s", got, StateReviewing)
	}
}

func TestCloseDuringApplyRunsToCompletion(t *testing.T) {
	var s *Session
	applier := &stubApplier{applyFn: func(_ context.Context, _ string, _ domain.Space, accepted []domain.Suggestion) domain.BatchApplyResult {
		s.Close()
		return domain.BatchApplyResult{Applied: len(accepted)}
	}}
	s = reviewingSession(t, applier, nil, moveSuggestion("t1"))

	res, err := s.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Applied != 1 {
		t.Fatalf("applied = %d, want 1", res.Applied)
	}
}

func TestCloseBeforeApplyDropsSuggestions(t *testing.T) {
	applier := &stubApplier{}
	s := reviewingSession(t, applier, nil, moveSuggestion("t1"))
	s.Close()
	if got := s.State(); got != StateClosed {
		t.Fatalf("state = %s, want %s", got, StateClosed)
	}
	if applier.last != nil {
		t.Fatal("applier was called on close")
	}
	if _, err := s.Apply(context.Background()); err == nil {
		t.Fatal("expected apply to be rejected after close")
	}
}
