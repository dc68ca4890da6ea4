package oracle

import (
	"fmt"
	"strings"
	"time"

	"tidyboard-api/domain"
)

// systemGuidance is the fixed analysis contract. The confidence floor and item
// cap are advisory: the validator enforces its own cap and never trusts the
// model's self-filtering.
const systemGuidance = `You are a personal task organizer. You are given a snapshot of a user's kanban boards and their ongoing tasks. Propose reorganizations that make the workload more manageable.

Analyze using exactly three heuristics:
1. Deadline urgency: tasks that are overdue or due soon should be prioritized or moved forward.
2. Workload balancing: columns holding more tasks than their WIP limit should shed work to less loaded columns.
3. Content similarity: tasks about the same topic work better grouped in the same column.

Every suggestion changes exactly one field of one task: its column, its priority, or its due date. Never propose creating, renaming or deleting boards or columns, and never propose combined changes.

Respond with a single JSON object and nothing else:
{
  "summary": "<one paragraph describing the overall shape of the workload>",
  "suggestions": [
    {
      "taskId": "<id>",
      "taskTitle": "<title>",
      "taskDescription": "<description if any>",
      "reason": "<one sentence a person can act on>",
      "confidence": <integer 0-100>,
      "details": <one of the variants below>
    }
  ]
}

details variants:
- {"type": "column-move", "currentBoardId": "...", "currentBoardName": "...", "currentColumnId": "...", "currentColumnName": "...", "suggestedBoardId": "...", "suggestedBoardName": "...", "suggestedColumnId": "...", "suggestedColumnName": "..."}
- {"type": "priority-change", "currentPriority": "low|medium|high|urgent", "suggestedPriority": "low|medium|high|urgent"}
- {"type": "due-date-adjust", "currentDueDate": <epoch seconds or null>, "suggestedDueDate": <epoch seconds>}

Only include suggestions with confidence 60 or higher, return at most 20, ordered from highest to lowest confidence.`

// renderContext turns the workload context into the user message. Plain text,
// one line per fact, so the model sees taskCount against wipLimit directly.
func renderContext(wc domain.WorkloadContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current time: %s (%s)\n\n", wc.GeneratedAt.Format(time.RFC3339), wc.Timezone)

	b.WriteString("Boards:\n")
	for _, bw := range wc.Boards {
		fmt.Fprintf(&b, "- %s (id=%s, space=%s)\n", bw.Board.Name, bw.Board.ID, bw.Board.Space)
		for _, col := range bw.Columns {
			fmt.Fprintf(&b, "  - column %q (id=%s): %d ongoing task(s)", col.Name, col.ID, col.TaskCount)
			if col.WIPLimit != nil {
				fmt.Fprintf(&b, ", WIP limit %d", *col.WIPLimit)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nOngoing tasks (%d; %d completed tasks were skipped):\n", len(wc.OngoingTasks), wc.CompletedTasksSkipped)
	for _, t := range wc.OngoingTasks {
		fmt.Fprintf(&b, "- %q (id=%s) in %q on %q", t.Title, t.ID, t.ColumnName, t.BoardName)
		if t.Priority != "" {
			fmt.Fprintf(&b, ", priority=%s", t.Priority)
		}
		if t.DueDate != nil {
			fmt.Fprintf(&b, ", due=%s", time.Unix(*t.DueDate, 0).UTC().Format("2006-01-02"))
		}
		if len(t.Labels) > 0 {
			fmt.Fprintf(&b, ", labels=%s", strings.Join(t.Labels, ","))
		}
		b.WriteString("\n")
		if t.Description != "" {
			fmt.Fprintf(&b, "  %s\n", t.Description)
		}
	}

	return b.String()
}
