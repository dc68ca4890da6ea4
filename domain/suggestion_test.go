package domain

import (
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestSuggestionMarshalCarriesDetailType(t *testing.T) {
	s := Suggestion{
		TaskID:    "t1",
		TaskTitle: "Write report",
		Details: PriorityChange{
			CurrentPriority:   PriorityLow,
			SuggestedPriority: PriorityHigh,
		},
		Reason:     "deadline is close",
		Confidence: 80,
		Included:   true,
	}

	payload, err := sonic.Marshal(s)
	if err != nil {
		t.Fatalf("marshal suggestion: %v", err)
	}
	if !strings.Contains(string(payload), `"type":"priority-change"`) {
		t.Fatalf("expected detail discriminator, got %s", payload)
	}
	if !strings.Contains(string(payload), `"confidence":80`) {
		t.Fatalf("expected confidence field, got %s", payload)
	}
}

func TestSuggestionRoundTripPreservesVariant(t *testing.T) {
	due := int64(1700000000)
	orig := Suggestion{
		TaskID: "t2",
		Details: DueDateAdjust{
			CurrentDueDate:   &due,
			SuggestedDueDate: due + 86400,
		},
		Reason:     "bumped by a day",
		Confidence: 65,
		Included:   true,
	}

	payload, err := sonic.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Suggestion
	if err := sonic.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	adjust, ok := decoded.Details.(DueDateAdjust)
	if !ok {
		t.Fatalf("expected DueDateAdjust, got %T", decoded.Details)
	}
	if adjust.CurrentDueDate == nil || *adjust.CurrentDueDate != due {
		t.Fatalf("current due date lost: %#v", adjust.CurrentDueDate)
	}
	if adjust.SuggestedDueDate != due+86400 {
		t.Fatalf("suggested due date lost: %d", adjust.SuggestedDueDate)
	}
}

func TestUnmarshalDetailRejectsUnknownType(t *testing.T) {
	if _, err := UnmarshalDetail([]byte(`{"type":"rename-board"}`)); err == nil {
		t.Fatal("expected error for unknown detail type")
	}
	if _, err := UnmarshalDetail(nil); err == nil {
		t.Fatal("expected error for missing detail")
	}
}

func TestDetailPatchSetsExactlyOneField(t *testing.T) {
	details := []SuggestionDetail{
		ColumnMove{CurrentColumnID: "c1", SuggestedColumnID: "c2"},
		PriorityChange{CurrentPriority: PriorityLow, SuggestedPriority: PriorityUrgent},
		DueDateAdjust{SuggestedDueDate: 1700000000},
	}
	for _, d := range details {
		patch := d.Patch()
		set := 0
		if patch.ColumnID != nil {
			set++
		}
		if patch.Priority != nil {
			set++
		}
		if patch.DueDate != nil {
			set++
		}
		if set != 1 {
			t.Fatalf("detail %s produced %d fields, want 1", d.Kind(), set)
		}
	}

	move := ColumnMove{SuggestedColumnID: "col-9"}.Patch()
	if move.ColumnID == nil || *move.ColumnID != "col-9" {
		t.Fatalf("column move patch lost target column: %#v", move.ColumnID)
	}
	if move.BoardID != nil {
		t.Fatalf("same-board move must not patch the board: %#v", move.BoardID)
	}
}

func TestCrossBoardMovePatchesBoard(t *testing.T) {
	patch := ColumnMove{
		CurrentBoardID:    "b1",
		SuggestedBoardID:  "b2",
		SuggestedColumnID: "c7",
	}.Patch()
	if patch.BoardID == nil || *patch.BoardID != "b2" {
		t.Fatalf("cross-board move must carry the target board: %#v", patch.BoardID)
	}
	if patch.ColumnID == nil || *patch.ColumnID != "c7" {
		t.Fatalf("cross-board move lost target column: %#v", patch.ColumnID)
	}
}

func TestBatchApplyResultOmitsErrorsWhenNoneFailed(t *testing.T) {
	payload, err := sonic.Marshal(BatchApplyResult{Applied: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(payload), "errors") {
		t.Fatalf("errors must be absent when failed==0, got %s", payload)
	}

	payload, err = sonic.Marshal(BatchApplyResult{Applied: 2, Failed: 1, Errors: []ApplyError{{TaskID: "t1", Error: "boom"}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(payload), `"taskId":"t1"`) {
		t.Fatalf("expected error entry, got %s", payload)
	}
}
