package workflow

import (
	"context"

	"disckit/internal/logging"
	"disckit/internal/services"
)

func (m *Manager) logStepFailure(ctx context.Context, stepName string, err error) {
	logger := logging.WithContext(ctx, m.logger)
	outcome := classify(err)
	attrs := []logging.Attr{
		logging.String("step", stepName),
		logging.String("outcome", string(outcome)),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
		logging.Alert("title_failure"),
		logging.String(logging.FieldErrorHint, failureHint(outcome)),
		logging.String(logging.FieldImpact, "remaining steps for this title skipped"),
		logging.String(logging.FieldEventType, "step_failure"),
	}
	if outcome == OutcomeReview {
		logger.Warn("step needs review", logging.Args(attrs...)...)
		return
	}
	logging.ErrorWithContext(logger, "step failed", "step_failure", attrs...)
}

func failureHint(outcome Outcome) string {
	if outcome == OutcomeReview {
		return "fix the reported name or file by hand and run again"
	}
	return "check permissions and free space in the library, then run again"
}
