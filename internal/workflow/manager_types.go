package workflow

import (
	"errors"
	"time"

	"disckit/internal/services"
)

// Step names recorded on results and stamped on log lines.
const (
	StepRepairName  = "repair_name"
	StepIdentify    = "identify"
	StepFixCue      = "fix_cue"
	StepMerge       = "merge"
	StepConsolidate = "consolidate"
	StepCompanion   = "cu2"
	StepCover       = "cover"
	StepCatalog     = "catalog"
	StepVerify      = "verify"
)

// Outcome classifies a step or a title.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
	OutcomeReview  Outcome = "review"
	OutcomeSkipped Outcome = "skipped"
)

// StepResult records one step run against a title.
type StepResult struct {
	Name     string
	Outcome  Outcome
	Detail   string
	Duration time.Duration
	Err      error
}

// Result is the outcome of one title, or of one consolidated multi-disc
// group. Err holds the first unrecoverable error; the steps after it were
// not run.
type Result struct {
	Title     string
	Path      string
	ProductID string
	Members   []string
	Steps     []StepResult
	Err       error
}

// Outcome classifies the title. A cancelled title is skipped; a failure the
// user has to fix by hand (bad names, missing files, conflicts) needs review.
func (r Result) Outcome() Outcome {
	return classify(r.Err)
}

// Step returns the named step, if it ran.
func (r Result) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, errUnitSkipped):
		return OutcomeSkipped
	case services.NeedsReview(err):
		return OutcomeReview
	default:
		return OutcomeFailed
	}
}
