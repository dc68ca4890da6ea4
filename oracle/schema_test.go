package oracle

import (
	"strings"
	"testing"

	"tidyboard-api/domain"
)

const validReply = `{
  "summary": "The sprint board is front-loaded.",
  "suggestions": [
    {
      "taskId": "t1",
      "taskTitle": "Ship release notes",
      "reason": "Due tomorrow but still in backlog",
      "confidence": 85,
      "details": {"type": "priority-change", "currentPriority": "low", "suggestedPriority": "high"}
    }
  ]
}`

func TestDecodeResultValidReply(t *testing.T) {
	res, err := DecodeResult(validReply)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Summary != "The sprint board is front-loaded." {
		t.Fatalf("unexpected summary: %q", res.Summary)
	}
	if len(res.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(res.Suggestions))
	}
	s := res.Suggestions[0]
	if s.TaskID != "t1" || s.Confidence != 85 {
		t.Fatalf("unexpected suggestion: %+v", s)
	}
	pc, ok := s.Details.(domain.PriorityChange)
	if !ok {
		t.Fatalf("expected PriorityChange, got %T", s.Details)
	}
	if pc.SuggestedPriority != domain.PriorityHigh {
		t.Fatalf("unexpected target priority: %s", pc.SuggestedPriority)
	}
}

func TestDecodeResultStripsMarkdownFence(t *testing.T) {
	fenced := "```json\n" + validReply + "\n```"
	res, err := DecodeResult(fenced)
	if err != nil {
		t.Fatalf("decode fenced: %v", err)
	}
	if len(res.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(res.Suggestions))
	}
}

func TestDecodeResultWholeRequestFailures(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"not json", "I could not produce suggestions today."},
		{"missing summary", `{"suggestions": []}`},
		{"missing task id", `{"summary": "s", "suggestions": [{"reason": "r", "confidence": 70, "details": {"type": "priority-change", "currentPriority": "low", "suggestedPriority": "high"}}]}`},
		{"missing reason", `{"summary": "s", "suggestions": [{"taskId": "t1", "confidence": 70, "details": {"type": "priority-change", "currentPriority": "low", "suggestedPriority": "high"}}]}`},
		{"confidence above range", `{"summary": "s", "suggestions": [{"taskId": "t1", "reason": "r", "confidence": 150, "details": {"type": "priority-change", "currentPriority": "low", "suggestedPriority": "high"}}]}`},
		{"confidence below range", `{"summary": "s", "suggestions": [{"taskId": "t1", "reason": "r", "confidence": -1, "details": {"type": "priority-change", "currentPriority": "low", "suggestedPriority": "high"}}]}`},
		{"unknown detail type", `{"summary": "s", "suggestions": [{"taskId": "t1", "reason": "r", "confidence": 70, "details": {"type": "rename-board"}}]}`},
		{"unknown priority", `{"summary": "s", "suggestions": [{"taskId": "t1", "reason": "r", "confidence": 70, "details": {"type": "priority-change", "currentPriority": "low", "suggestedPriority": "critical"}}]}`},
		{"missing details", `{"summary": "s", "suggestions": [{"taskId": "t1", "reason": "r", "confidence": 70}]}`},
	}
	for _, tc := range cases {
		if _, err := DecodeResult(tc.text); err == nil {
			t.Errorf("%s: expected whole-request failure", tc.name)
		}
	}
}

func TestDecodeResultOneBadSuggestionFailsAll(t *testing.T) {
	reply := `{
	  "summary": "s",
	  "suggestions": [
	    {"taskId": "good", "reason": "r", "confidence": 70, "details": {"type": "priority-change", "currentPriority": "low", "suggestedPriority": "high"}},
	    {"taskId": "bad", "reason": "r", "confidence": 70, "details": {"type": "mystery"}}
	  ]
	}`
	if _, err := DecodeResult(reply); err == nil {
		t.Fatal("expected failure; partial suggestions must never be salvaged")
	}
}

func TestRenderContextSurfacesWorkloadSignals(t *testing.T) {
	wip := 3
	due := int64(1700000000)
	wc := domain.WorkloadContext{
		Timezone: "UTC",
		Boards: []domain.BoardWorkload{{
			Board: domain.Board{ID: "b1", Name: "Sprint", Space: domain.SpaceWork},
			Columns: []domain.Column{
				{ID: "c1", Name: "To Do", BoardID: "b1", WIPLimit: &wip, TaskCount: 5},
			},
		}},
		OngoingTasks: []domain.TaskContext{{
			Task:       domain.Task{ID: "t1", Title: "Write report", Priority: domain.PriorityHigh, DueDate: &due, ColumnID: "c1", BoardID: "b1"},
			ColumnName: "To Do",
			BoardName:  "Sprint",
		}},
		CompletedTasksSkipped: 4,
	}

	rendered := renderContext(wc)
	for _, want := range []string{"5 ongoing task(s)", "WIP limit 3", "Write report", "priority=high", "4 completed tasks were skipped"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered context missing %q:\n%s", want, rendered)
		}
	}
}

func TestSystemGuidanceNamesAllHeuristics(t *testing.T) {
	for _, want := range []string{"Deadline urgency", "Workload balancing", "Content similarity", "confidence 60 or higher", "at most 20"} {
		if !strings.Contains(systemGuidance, want) {
			t.Errorf("guidance missing %q", want)
		}
	}
}
