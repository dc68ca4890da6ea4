package organize

import (
	"context"

	log "github.com/sirupsen/logrus"

	"tidyboard-api/domain"
)

const (
	summaryNoBoards  = "No boards found in this space"
	summaryNoOngoing = "No ongoing tasks found to organize"
)

// Service runs the auto-organize pipeline: aggregate workload, consult the
// oracle, filter deterministically, and apply accepted batches. Generation is
// a single sequential request per user action; no state is held between
// generation and apply.
type Service struct {
	builder *ContextBuilder
	oracle  SuggestionOracle
	applier *Applier
	logger  *log.Logger
}

// NewService wires the pipeline components together.
func NewService(builder *ContextBuilder, oracle SuggestionOracle, applier *Applier, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{builder: builder, oracle: oracle, applier: applier, logger: logger}
}

// Generate produces reviewed-ready suggestions for the scoped workload. Empty
// boards or an empty ongoing set are successes with explanatory summaries; any
// storage or oracle failure collapses to ErrGenerationFailed with no partial
// suggestions.
func (s *Service) Generate(ctx context.Context, userID string, req GenerateRequest) (GenerateResponse, error) {
	wc, err := s.builder.Build(ctx, userID, req)
	if err != nil {
		s.logger.WithError(err).Error("workload context build failed")
		return GenerateResponse{}, ErrGenerationFailed
	}
	if len(wc.Boards) == 0 {
		return GenerateResponse{Suggestions: []domain.Suggestion{}, Summary: summaryNoBoards}, nil
	}
	if len(wc.OngoingTasks) == 0 {
		return GenerateResponse{
			Suggestions:           []domain.Suggestion{},
			Summary:               summaryNoOngoing,
			CompletedTasksSkipped: wc.CompletedTasksSkipped,
		}, nil
	}

	result, err := s.oracle.Generate(ctx, wc)
	if err != nil {
		s.logger.WithError(err).Error("suggestion oracle failed")
		return GenerateResponse{}, ErrGenerationFailed
	}

	return GenerateResponse{
		Suggestions:           FilterSuggestions(result.Suggestions),
		Summary:               result.Summary,
		TotalTasksAnalyzed:    len(wc.OngoingTasks),
		CompletedTasksSkipped: wc.CompletedTasksSkipped,
	}, nil
}

// Apply executes the included subset of a reviewed suggestion list. The list
// round-trips from the client with any inline edits already applied.
func (s *Service) Apply(ctx context.Context, userID string, space domain.Space, suggestions []domain.Suggestion) domain.BatchApplyResult {
	accepted := make([]domain.Suggestion, 0, len(suggestions))
	for _, sug := range suggestions {
		if sug.Included {
			accepted = append(accepted, sug)
		}
	}
	return s.applier.Apply(ctx, userID, space, accepted)
}
