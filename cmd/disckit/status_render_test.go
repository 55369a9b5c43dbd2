package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"disckit/internal/workflow"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Game", statusError, "merge failed", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Game:", "[ERROR] merge failed")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Game", statusOK, "", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
	if !strings.Contains(got, "[OK]") {
		t.Fatalf("expected bare status label, got %q", got)
	}
}

func TestOutcomeKind(t *testing.T) {
	cases := map[workflow.Outcome]statusKind{
		workflow.OutcomeOK:      statusOK,
		workflow.OutcomeReview:  statusWarn,
		workflow.OutcomeSkipped: statusWarn,
		workflow.OutcomeFailed:  statusError,
	}
	for outcome, want := range cases {
		if got := outcomeKind(outcome); got != want {
			t.Fatalf("outcomeKind(%s) = %d, want %d", outcome, got, want)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
