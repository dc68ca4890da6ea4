package organize

import "tidyboard-api/domain"

// maxSuggestions caps one generation run. The oracle is asked to stay under
// this as well, but its compliance is not trusted.
const maxSuggestions = 20

// FilterSuggestions deterministically drops no-op suggestions, enforces the
// suggestion cap, and marks every survivor included for the opt-out review
// flow. Ordering is preserved exactly as received from the oracle.
func FilterSuggestions(raw []domain.Suggestion) []domain.Suggestion {
	out := make([]domain.Suggestion, 0, len(raw))
	for _, s := range raw {
		if isNoop(s.Details) {
			continue
		}
		s.Included = true
		out = append(out, s)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

func isNoop(d domain.SuggestionDetail) bool {
	switch v := d.(type) {
	case domain.ColumnMove:
		return v.CurrentColumnID == v.SuggestedColumnID
	case domain.PriorityChange:
		return v.CurrentPriority == v.SuggestedPriority
	case domain.DueDateAdjust:
		return v.CurrentDueDate != nil && *v.CurrentDueDate == v.SuggestedDueDate
	default:
		return d == nil
	}
}
