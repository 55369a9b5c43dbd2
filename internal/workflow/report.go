package workflow

import (
	"fmt"
	"time"
)

// Report summarises one batch run.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Cleaned  []string
	Results  []Result
}

// Counts tallies titles by outcome.
func (r Report) Counts() map[Outcome]int {
	counts := map[Outcome]int{
		OutcomeOK:      0,
		OutcomeFailed:  0,
		OutcomeReview:  0,
		OutcomeSkipped: 0,
	}
	for _, res := range r.Results {
		counts[res.Outcome()]++
	}
	return counts
}

// Failed reports whether any title failed or needs review.
func (r Report) Failed() bool {
	c := r.Counts()
	return c[OutcomeFailed] > 0 || c[OutcomeReview] > 0
}

// Summary renders the counts on one line.
func (r Report) Summary() string {
	c := r.Counts()
	return fmt.Sprintf("%d titles: %d ok, %d failed, %d review, %d skipped",
		len(r.Results), c[OutcomeOK], c[OutcomeFailed], c[OutcomeReview], c[OutcomeSkipped])
}
