package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/progress"
	"github.com/EmnaWalha99/Job-Portal/internal/storage"
)

// StoreSink persists run start and completion to a storage.RunStore. Stage
// and task events are ignored.
type StoreSink struct {
	runs   storage.RunStore
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided run store.
func NewStoreSink(runs storage.RunStore, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{runs: runs, logger: logger}
}

// Consume forwards run lifecycle events and returns repository errors.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.runs == nil {
		return nil
	}
	for _, evt := range batch {
		runID := evt.RunID.String()
		switch evt.Kind {
		case progress.KindRunStart:
			if err := s.runs.StartRun(ctx, runID, evt.TS); err != nil {
				return fmt.Errorf("start run %s: %w", runID, err)
			}
		case progress.KindRunDone:
			if err := s.runs.CompleteRun(ctx, runID, evt.TS, evt.State, evt.Payload); err != nil {
				return fmt.Errorf("complete run %s: %w", runID, err)
			}
			s.logger.Debug("run recorded", zap.String("run_id", runID), zap.String("state", evt.State))
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
