package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/metrics"
)

// sagaStep is a forward action and the action that undoes it. compensate may
// be nil for a step with nothing to undo.
type sagaStep struct {
	name       string
	forward    func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

type saga struct {
	name   string
	steps  []sagaStep
	logger *zap.Logger
}

func newSaga(name string, logger *zap.Logger, steps ...sagaStep) *saga {
	return &saga{name: name, steps: steps, logger: logger}
}

// run executes the steps in order. When a step fails, the compensations of
// the steps already completed run in reverse order before the step's error
// is returned. Compensation ignores cancellation of ctx.
func (s *saga) run(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.forward(ctx); err != nil {
			s.logger.Warn("saga step failed",
				zap.String("saga", s.name),
				zap.String("step", step.name),
				zap.Error(err),
			)
			s.compensate(context.WithoutCancel(ctx), i)
			return err
		}
	}
	return nil
}

func (s *saga) compensate(ctx context.Context, failed int) {
	for i := failed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.compensate == nil {
			continue
		}
		if err := step.compensate(ctx); err != nil {
			metrics.RecordCompensation(step.name, "failed")
			s.logger.Error("compensation failed",
				zap.String("saga", s.name),
				zap.String("step", step.name),
				zap.Error(err),
			)
			continue
		}
		metrics.RecordCompensation(step.name, "ok")
	}
}
