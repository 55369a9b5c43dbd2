package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error markers classify failures so batch reporting can separate titles that
// need attention from titles that hit an I/O problem.
var (
	ErrNotFound     = errors.New("not found")
	ErrIO           = errors.New("io failure")
	ErrParse        = errors.New("parse failure")
	ErrValidation   = errors.New("validation failure")
	ErrInconsistent = errors.New("inconsistent state")
)

// Kind names reported for each marker.
const (
	KindNotFound     = "NotFound"
	KindIO           = "IOFailure"
	KindParse        = "ParseFailure"
	KindValidation   = "ValidationFailure"
	KindInconsistent = "Inconsistent"
	KindUnknown      = "Unknown"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the failure kind carried by err, or KindUnknown when err has no
// marker. A nil error has an empty kind.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInconsistent):
		return KindInconsistent
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindUnknown
	}
}

// NeedsReview reports whether a failure is something the user has to resolve by
// hand (bad names, missing files, conflicting directories) rather than a
// retryable I/O problem.
func NeedsReview(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInconsistent)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, ": ")
}
