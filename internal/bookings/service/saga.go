package service

import (
	"context"
	"receptionist/pkg/logger"
)

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// saga collects compensations for completed steps. Unless complete is called,
// rollback runs them newest first. Each compensation runs regardless of
// earlier failures; failures are logged and never surface to the caller.
type saga struct {
	steps []compensation
	done  bool
	log   *logger.Logger
}

func newSaga(log *logger.Logger) *saga {
	return &saga{log: log}
}

func (s *saga) push(name string, fn func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, fn: fn})
}

func (s *saga) complete() {
	s.done = true
}

func (s *saga) rollback(ctx context.Context) {
	if s.done {
		return
	}
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.fn(ctx); err != nil {
			s.log.Error("Compensation failed",
				"compensation", step.name,
				"error", err,
			)
			continue
		}
		s.log.Info("Compensation applied", "compensation", step.name)
	}
}
