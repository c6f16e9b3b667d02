package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// scriptedInterviewer returns its queued results one by one, failing the
// pipeline with err when set.
type scriptedInterviewer struct {
	results     []*TurnResult
	err         error
	calls       int
	transcripts [][]Turn
}

func (s *scriptedInterviewer) NextTurn(_ context.Context, _ *RoleContext, transcript []Turn) (*TurnResult, error) {
	s.calls++
	s.transcripts = append(s.transcripts, transcript)
	if s.err != nil {
		return nil, s.err
	}
	result := s.results[0]
	s.results = s.results[1:]
	return result, nil
}

// blockingInterviewer parks inside NextTurn until released, to exercise the
// busy rejection.
type blockingInterviewer struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingInterviewer) NextTurn(_ context.Context, _ *RoleContext, _ []Turn) (*TurnResult, error) {
	close(b.entered)
	<-b.release
	return &TurnResult{Message: "ok", Status: StatusOngoing}, nil
}

func testRole() *RoleContext {
	return &RoleContext{JobTitle: "Backend Engineer", Company: "Acme", Level: "Senior"}
}

func ptr(v float64) *float64 { return &v }

func ongoingResult(message string, score *float64) *TurnResult {
	return &TurnResult{Message: message, Status: StatusOngoing, Score: score}
}

func mustSubmit(t *testing.T, s *Session, text string) string {
	t.Helper()
	message, err := s.SubmitAnswer(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error submitting %q: %v", text, err)
	}
	return message
}

func TestNewValidatesRole(t *testing.T) {
	if _, err := New(1, &RoleContext{Company: "Acme", Level: "Senior"}, nil, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing job title")
	}
}

func TestNewAppliesResumePlaceholder(t *testing.T) {
	role := testRole()
	session, err := New(1, role, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.Role().Resume != "Not provided" {
		t.Fatalf("expected resume placeholder, got %q", session.Role().Resume)
	}
	if session.Status() != StatusNotStarted {
		t.Fatalf("expected not_started, got %s", session.Status())
	}
}

func TestFirstExchange(t *testing.T) {
	iv := &scriptedInterviewer{results: []*TurnResult{ongoingResult("Hi, first question?", nil)}}
	session, _ := New(1, testRole(), iv, zap.NewNop())

	message := mustSubmit(t, session, "Hello")

	if message != "Hi, first question?" {
		t.Fatalf("unexpected reply: %s", message)
	}
	if session.Status() != StatusOngoing {
		t.Fatalf("expected ongoing, got %s", session.Status())
	}

	transcript := session.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected one candidate and one interviewer turn, got %d turns", len(transcript))
	}
	if transcript[0].Speaker != SpeakerCandidate || transcript[1].Speaker != SpeakerInterviewer {
		t.Fatalf("unexpected speakers: %s, %s", transcript[0].Speaker, transcript[1].Speaker)
	}

	if len(session.Scores()) != 0 {
		t.Fatalf("expected no recorded score for question 1")
	}
	if session.QuestionNumber() != 1 {
		t.Fatalf("expected question 1, got %d", session.QuestionNumber())
	}
}

func TestSpeakersAlternate(t *testing.T) {
	iv := &scriptedInterviewer{results: []*TurnResult{
		ongoingResult("Q1?", nil),
		ongoingResult("Q2?", ptr(6)),
		ongoingResult("Q3?", ptr(7)),
	}}
	session, _ := New(1, testRole(), iv, zap.NewNop())

	mustSubmit(t, session, "Hello")
	mustSubmit(t, session, "Answer one")
	mustSubmit(t, session, "Answer two")

	for i, turn := range session.Transcript() {
		expected := SpeakerCandidate
		if i%2 == 1 {
			expected = SpeakerInterviewer
		}
		if turn.Speaker != expected {
			t.Fatalf("turn %d: expected %s, got %s", i, expected, turn.Speaker)
		}
	}
}

func TestScoresRecordedPerQuestion(t *testing.T) {
	iv := &scriptedInterviewer{results: []*TurnResult{
		ongoingResult("Q1?", nil),
		ongoingResult("Q2?", ptr(6)),
		ongoingResult("Q3?", ptr(8.5)),
	}}
	session, _ := New(1, testRole(), iv, zap.NewNop())

	mustSubmit(t, session, "Hello")
	mustSubmit(t, session, "Answer one")
	mustSubmit(t, session, "Answer two")

	scores := session.Scores()
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	if scores[1] != 6 || scores[2] != 8.5 {
		t.Fatalf("unexpected scores: %v", scores)
	}
	if session.AnsweredCount() != 2 {
		t.Fatalf("expected 2 answered, got %d", session.AnsweredCount())
	}
	if session.QuestionNumber() != 3 {
		t.Fatalf("expected question 3, got %d", session.QuestionNumber())
	}
}

func TestDegradedTurnKeepsQuestionSlot(t *testing.T) {
	iv := &scriptedInterviewer{results: []*TurnResult{
		ongoingResult("Q1?", nil),
		ongoingResult("Q2?", ptr(6)),
		{Message: "{\"broken\":", Status: StatusOngoing, Degraded: true},
		ongoingResult("Q3?", ptr(7)),
	}}
	session, _ := New(1, testRole(), iv, zap.NewNop())

	mustSubmit(t, session, "Hello")
	mustSubmit(t, session, "Answer one")

	answeredBefore := session.AnsweredCount()
	message := mustSubmit(t, session, "Answer two")

	if message != "{\"broken\":" {
		t.Fatalf("expected the raw text as the rendered turn, got %q", message)
	}
	if session.Status() != StatusOngoing {
		t.Fatalf("expected ongoing after degraded turn, got %s", session.Status())
	}
	if session.AnsweredCount() != answeredBefore {
		t.Fatalf("degraded turn must not advance the answered count")
	}

	// Retrying the same slot succeeds and scores question 2.
	mustSubmit(t, session, "Answer two, retried")
	if session.Scores()[2] != 7 {
		t.Fatalf("expected retry to score question 2, got %v", session.Scores())
	}
}

func TestBackendErrorAbsorbedIntoDegradedTurn(t *testing.T) {
	iv := &scriptedInterviewer{err: errors.New("backend down")}
	session, _ := New(1, testRole(), iv, zap.NewNop())

	message := mustSubmit(t, session, "Hello")

	if !strings.Contains(message, "backend down") {
		t.Fatalf("expected visible error notice, got %q", message)
	}
	if session.Status() != StatusOngoing {
		t.Fatalf("expected ongoing, got %s", session.Status())
	}
	if session.AnsweredCount() != 0 {
		t.Fatalf("failed call must not advance the answered count")
	}
	if len(session.Transcript()) != 2 {
		t.Fatalf("expected the answer and the placeholder turn to be kept")
	}
}

func TestPrematureFinishedDemoted(t *testing.T) {
	iv := &scriptedInterviewer{results: []*TurnResult{
		ongoingResult("Q1?", nil),
		{Message: "Done already!", Status: StatusFinished, Score: ptr(9), FinalScore: ptr(9), Verdict: VerdictSelected},
	}}
	session, _ := New(1, testRole(), iv, zap.NewNop())

	mustSubmit(t, session, "Hello")
	mustSubmit(t, session, "Answer one")

	if session.Status() == StatusFinished {
		t.Fatalf("fewer than %d answers must never finish the session", TotalQuestions)
	}
	if session.AnsweredCount() != 1 {
		t.Fatalf("expected one recorded answer, got %d", session.AnsweredCount())
	}
}

func fullInterview(t *testing.T, finalScore *float64, verdict string) (*Session, *scriptedInterviewer) {
	t.Helper()

	results := []*TurnResult{ongoingResult("Q1?", nil)}
	for q := 1; q < TotalQuestions; q++ {
		results = append(results, ongoingResult(fmt.Sprintf("Q%d?", q+1), ptr(float64(5+q))))
	}
	results = append(results, &TurnResult{
		Message:    "Thank you, we are done.",
		Status:     StatusFinished,
		Score:      ptr(8),
		FinalScore: finalScore,
		Verdict:    verdict,
	})

	iv := &scriptedInterviewer{results: results}
	session, _ := New(1, testRole(), iv, zap.NewNop())

	mustSubmit(t, session, "Hello")
	for q := 1; q <= TotalQuestions; q++ {
		mustSubmit(t, session, fmt.Sprintf("Answer %d", q))
	}

	return session, iv
}

func TestFullInterviewFinishes(t *testing.T) {
	session, iv := fullInterview(t, ptr(7.5), VerdictSelected)

	if session.Status() != StatusFinished {
		t.Fatalf("expected finished, got %s", session.Status())
	}
	if session.AnsweredCount() != TotalQuestions {
		t.Fatalf("expected %d answers, got %d", TotalQuestions, session.AnsweredCount())
	}
	if session.QuestionNumber() != TotalQuestions {
		t.Fatalf("question number must cap at %d", TotalQuestions)
	}
	if iv.calls != TotalQuestions+1 {
		t.Fatalf("expected %d backend calls, got %d", TotalQuestions+1, iv.calls)
	}

	summary, err := session.Summary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.OverallScore != 7.5 {
		t.Fatalf("backend final score is authoritative; got %v", summary.OverallScore)
	}
	if summary.Verdict != VerdictSelected {
		t.Fatalf("unexpected verdict: %s", summary.Verdict)
	}
}

func TestFinishedSessionRejectsAnswers(t *testing.T) {
	session, _ := fullInterview(t, ptr(7.5), VerdictSelected)

	before := session.Transcript()

	_, err := session.SubmitAnswer(context.Background(), "One more thing")
	if !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}

	after := session.Transcript()
	if len(after) != len(before) {
		t.Fatalf("rejected answer must leave the transcript unchanged")
	}
}

func TestFinishedWithoutVerdictStaysOngoing(t *testing.T) {
	results := []*TurnResult{ongoingResult("Q1?", nil)}
	for q := 1; q < TotalQuestions; q++ {
		results = append(results, ongoingResult("Next?", ptr(6)))
	}
	// Claims finished but carries no final score or verdict.
	results = append(results, &TurnResult{Message: "Done.", Status: StatusFinished, Score: ptr(6)})

	iv := &scriptedInterviewer{results: results}
	session, _ := New(1, testRole(), iv, zap.NewNop())

	mustSubmit(t, session, "Hello")
	for q := 1; q <= TotalQuestions; q++ {
		mustSubmit(t, session, "Answer")
	}

	if session.Status() != StatusOngoing {
		t.Fatalf("finished without verdict must keep the session ongoing, got %s", session.Status())
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	iv := &scriptedInterviewer{results: []*TurnResult{ongoingResult("Q1?", nil)}}
	session, _ := New(1, testRole(), iv, zap.NewNop())

	if _, err := session.SubmitAnswer(context.Background(), "   "); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
	if len(session.Transcript()) != 0 {
		t.Fatalf("rejected input must not touch the transcript")
	}
}

func TestNotConfigured(t *testing.T) {
	session, _ := New(1, testRole(), nil, zap.NewNop())

	if _, err := session.SubmitAnswer(context.Background(), "Hello"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if session.Status() != StatusNotStarted {
		t.Fatalf("expected not_started, got %s", session.Status())
	}
}

func TestConcurrentSubmitRejected(t *testing.T) {
	iv := &blockingInterviewer{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	session, _ := New(1, testRole(), iv, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		mustSubmit(t, session, "Hello")
	}()

	<-iv.entered

	if _, err := session.SubmitAnswer(context.Background(), "Second tab"); !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}

	close(iv.release)
	<-done
}

func TestPastTurnsNeverMutated(t *testing.T) {
	iv := &scriptedInterviewer{results: []*TurnResult{
		ongoingResult("Q1?", nil),
		ongoingResult("Q2?", ptr(6)),
	}}
	session, _ := New(1, testRole(), iv, zap.NewNop())

	mustSubmit(t, session, "Hello")
	before := session.Transcript()

	mustSubmit(t, session, "Answer one")
	after := session.Transcript()

	if len(after) != len(before)+2 {
		t.Fatalf("expected exactly two appended turns")
	}
	for i := range before {
		if after[i].Speaker != before[i].Speaker || after[i].Text != before[i].Text {
			t.Fatalf("turn %d mutated by a later exchange", i)
		}
	}
}

func TestRecordRequiresFinished(t *testing.T) {
	session, _ := New(1, testRole(), nil, zap.NewNop())

	if _, err := session.Record(); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("expected ErrNotFinished, got %v", err)
	}
}

func TestRecordOfFinishedInterview(t *testing.T) {
	session, _ := fullInterview(t, ptr(6.5), VerdictNotSelected)

	record, err := session.Record()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.UserID != 1 || record.JobTitle != "Backend Engineer" {
		t.Fatalf("unexpected record identity: %+v", record)
	}
	if record.FinalScore == nil || *record.FinalScore != 6.5 {
		t.Fatalf("unexpected final score: %v", record.FinalScore)
	}
	if record.Verdict != VerdictNotSelected {
		t.Fatalf("unexpected verdict: %s", record.Verdict)
	}
	if len(record.Transcript) != len(session.Transcript()) {
		t.Fatalf("record must carry the full transcript")
	}
}
