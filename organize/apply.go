package organize

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"tidyboard-api/domain"
)

// Applier converts accepted suggestions into independent single-task updates.
// There is no transaction and no rollback; each update succeeds or fails on
// its own.
type Applier struct {
	store  TaskStore
	cache  Invalidator
	notify Notifier
	logger *log.Logger
}

// NewApplier creates an applier. Cache and notifier may be nil in tests.
func NewApplier(store TaskStore, cache Invalidator, notify Notifier, logger *log.Logger) *Applier {
	if store == nil {
		panic("organize.NewApplier: store is required")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Applier{store: store, cache: cache, notify: notify, logger: logger}
}

// Apply fans out one patch per accepted suggestion, using each suggestion's
// current detail values, and joins on completion. Latency is bounded by the
// slowest single update. After the batch settles it invalidates the caller's
// cached views and emits one broadcast notification per mutated task.
func (a *Applier) Apply(ctx context.Context, userID string, space domain.Space, accepted []domain.Suggestion) domain.BatchApplyResult {
	if len(accepted) == 0 {
		return domain.BatchApplyResult{}
	}

	outcomes := make([]error, len(accepted))
	var wg sync.WaitGroup
	for i := range accepted {
		wg.Add(1)
		go func(i int, s domain.Suggestion) {
			defer wg.Done()
			outcomes[i] = a.applyOne(ctx, userID, space, s)
		}(i, accepted[i])
	}
	wg.Wait()

	var res domain.BatchApplyResult
	for i, err := range outcomes {
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, domain.ApplyError{TaskID: accepted[i].TaskID, Error: err.Error()})
			continue
		}
		res.Applied++
	}

	// Coarse on purpose: an accepted batch may span many boards and columns.
	if a.cache != nil {
		a.cache.InvalidateViews(ctx, userID)
	}
	if a.notify != nil {
		for i, err := range outcomes {
			if err != nil {
				continue
			}
			a.notify.TaskUpdated(ctx, userID, accepted[i].TaskID, boardIDForNotify(accepted[i]), space)
		}
	}
	if res.Failed > 0 {
		a.logger.WithFields(log.Fields{
			"user":    userID,
			"applied": res.Applied,
			"failed":  res.Failed,
		}).Warn("organize batch settled with failures")
	}
	return res
}

func (a *Applier) applyOne(ctx context.Context, userID string, space domain.Space, s domain.Suggestion) error {
	if s.TaskID == "" {
		return errors.New("suggestion has no task id")
	}
	if s.Details == nil {
		return errors.New("suggestion has no detail")
	}
	if err := a.store.PatchTask(ctx, userID, s.TaskID, s.Details.Patch()); err != nil {
		return err
	}

	ev := domain.TaskEvent{
		UserID:    userID,
		TaskID:    s.TaskID,
		BoardID:   boardIDForNotify(s),
		Space:     space,
		Type:      domain.EventTaskUpdated,
		Timestamp: time.Now().UnixNano(),
	}
	// The patch is the source of truth; a queue outage must not fail the item.
	if err := a.store.EnqueueTaskEvent(ctx, ev); err != nil {
		a.logger.WithError(err).Warnf("enqueue task event failed, task=%s", s.TaskID)
	}
	return nil
}

// boardIDForNotify resolves the board a mutation lands on. Only column moves
// carry board information; other variants leave the task on its board.
func boardIDForNotify(s domain.Suggestion) string {
	if mv, ok := s.Details.(domain.ColumnMove); ok {
		return mv.SuggestedBoardID
	}
	return ""
}
