package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"tidyboard-api/domain"
	"tidyboard-api/organize"
)

type rawResult struct {
	Summary     string          `json:"summary"`
	Suggestions []rawSuggestion `json:"suggestions"`
}

type rawSuggestion struct {
	TaskID          string          `json:"taskId"`
	TaskTitle       string          `json:"taskTitle"`
	TaskDescription string          `json:"taskDescription"`
	Reason          string          `json:"reason"`
	Confidence      int             `json:"confidence"`
	Details         json.RawMessage `json:"details"`
}

// DecodeResult parses and validates the oracle's reply against the response
// contract. Any deviation fails the whole generation; no partial suggestion
// list is ever salvaged.
func DecodeResult(text string) (organize.OracleResult, error) {
	var raw rawResult
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return organize.OracleResult{}, fmt.Errorf("oracle reply is not valid JSON: %w", err)
	}
	if raw.Summary == "" {
		return organize.OracleResult{}, fmt.Errorf("oracle reply missing summary")
	}

	out := organize.OracleResult{Summary: raw.Summary}
	for i, rs := range raw.Suggestions {
		s, err := validateSuggestion(rs)
		if err != nil {
			return organize.OracleResult{}, fmt.Errorf("oracle suggestion %d: %w", i, err)
		}
		out.Suggestions = append(out.Suggestions, s)
	}
	return out, nil
}

func validateSuggestion(rs rawSuggestion) (domain.Suggestion, error) {
	if rs.TaskID == "" {
		return domain.Suggestion{}, fmt.Errorf("missing taskId")
	}
	if rs.Reason == "" {
		return domain.Suggestion{}, fmt.Errorf("missing reason")
	}
	if rs.Confidence < 0 || rs.Confidence > 100 {
		return domain.Suggestion{}, fmt.Errorf("confidence %d out of range", rs.Confidence)
	}
	detail, err := domain.UnmarshalDetail(rs.Details)
	if err != nil {
		return domain.Suggestion{}, err
	}
	if pc, ok := detail.(domain.PriorityChange); ok {
		if !pc.SuggestedPriority.Valid() {
			return domain.Suggestion{}, fmt.Errorf("unknown priority %q", pc.SuggestedPriority)
		}
	}
	return domain.Suggestion{
		TaskID:          rs.TaskID,
		TaskTitle:       rs.TaskTitle,
		TaskDescription: rs.TaskDescription,
		Details:         detail,
		Reason:          rs.Reason,
		Confidence:      rs.Confidence,
	}, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag. Models wrap JSON this way often enough to handle it here.
func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	if idx := strings.Index(cleaned, "\n"); idx >= 0 {
		cleaned = cleaned[idx+1:]
	}
	if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	return strings.TrimSpace(cleaned)
}
