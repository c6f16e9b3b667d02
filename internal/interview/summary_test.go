package interview

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestSummarizePrefersBackendFinalScore(t *testing.T) {
	scores := map[int]float64{1: 4, 2: 4, 3: 4, 4: 4, 5: 4}

	summary := Summarize(scores, ptr(7.5), VerdictSelected, 5)

	if summary.OverallScore != 7.5 {
		t.Fatalf("expected backend score 7.5, got %v", summary.OverallScore)
	}
	if summary.Verdict != VerdictSelected {
		t.Fatalf("unexpected verdict: %s", summary.Verdict)
	}
	if summary.Answered != 5 {
		t.Fatalf("unexpected answered count: %d", summary.Answered)
	}
}

func TestSummarizeFallsBackToMean(t *testing.T) {
	scores := map[int]float64{1: 6, 2: 8}

	summary := Summarize(scores, nil, "", 2)

	if summary.OverallScore != 7 {
		t.Fatalf("expected mean 7, got %v", summary.OverallScore)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil, nil, "", 0)

	if summary.OverallScore != 0 {
		t.Fatalf("expected zero score, got %v", summary.OverallScore)
	}
	if len(summary.Scores) != 0 {
		t.Fatalf("expected empty score map")
	}
}

func TestSummarizeCopiesScores(t *testing.T) {
	scores := map[int]float64{1: 6}

	summary := Summarize(scores, nil, "", 1)
	summary.Scores[1] = 99

	if scores[1] != 6 {
		t.Fatalf("summary must not alias the caller's map")
	}
}

func TestSessionSummaryRequiresFinished(t *testing.T) {
	session, _ := New(1, testRole(), nil, zap.NewNop())

	if _, err := session.Summary(); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("expected ErrNotFinished, got %v", err)
	}
}
