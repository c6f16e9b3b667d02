package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TotalQuestions is the number of candidate answers an interview solicits
// before the interviewer delivers the final verdict.
const TotalQuestions = 5

// Speaker identifies the author of a transcript turn.
type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

// Status is the lifecycle state of a session. Transitions are monotonic:
// not_started -> ongoing -> finished.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusOngoing    Status = "ongoing"
	StatusFinished   Status = "finished"
)

const (
	VerdictSelected    = "SELECTED"
	VerdictNotSelected = "NOT SELECTED"
)

var (
	// ErrAlreadyFinished is returned when an answer is submitted to a
	// session that has already delivered its verdict.
	ErrAlreadyFinished = errors.New("interview is already finished")
	// ErrSessionBusy is returned when another answer is still being
	// processed for the same session.
	ErrSessionBusy = errors.New("previous answer is still being processed")
	// ErrNotConfigured is returned when no interviewer backend is
	// available. The session is constructible without one; submitting
	// fails fast instead.
	ErrNotConfigured = errors.New("interviewer backend is not configured")
	// ErrEmptyAnswer is returned for blank candidate input.
	ErrEmptyAnswer = errors.New("answer text is required")
	// ErrNotFinished is returned when a result summary is requested
	// before the interview has concluded.
	ErrNotFinished = errors.New("interview is not finished yet")
)

// Turn is one utterance in the transcript. Score is set only on interviewer
// turns that rate the preceding candidate answer.
type Turn struct {
	Speaker Speaker  `json:"speaker"`
	Text    string   `json:"text"`
	Score   *float64 `json:"score,omitempty"`
}

// RoleContext is the immutable per-session setup: the job being interviewed
// for and the candidate's background. It is never mutated once the session
// starts.
type RoleContext struct {
	JobTitle string
	Company  string
	Level    string
	Skills   []string
	Resume   string
}

const resumePlaceholder = "Not provided"

// Validate checks the required fields and fills the resume placeholder.
func (r *RoleContext) Validate() error {
	if r == nil {
		return errors.New("role context is required")
	}
	if strings.TrimSpace(r.JobTitle) == "" {
		return errors.New("job title is required")
	}
	if strings.TrimSpace(r.Company) == "" {
		return errors.New("company is required")
	}
	if strings.TrimSpace(r.Level) == "" {
		return errors.New("seniority level is required")
	}
	if strings.TrimSpace(r.Resume) == "" {
		r.Resume = resumePlaceholder
	}
	return nil
}

// TurnResult is the decoded outcome of one backend call. Degraded marks
// results synthesized from unparseable or failed backend replies; such
// results never carry scores and never advance the question counter.
type TurnResult struct {
	Message    string
	Status     Status
	Score      *float64
	FinalScore *float64
	Verdict    string
	Degraded   bool
	Raw        string
}

// Interviewer produces the next interviewer turn for the supplied role
// context and transcript. Implementations return an error only for
// transport-level failures; malformed backend output must be reported as a
// degraded TurnResult instead.
type Interviewer interface {
	NextTurn(ctx context.Context, role *RoleContext, transcript []Turn) (*TurnResult, error)
}

// Session is the dialogue state machine. All mutation happens through
// SubmitAnswer; concurrent submissions on the same session are rejected with
// ErrSessionBusy.
type Session struct {
	id          string
	userID      uint
	role        *RoleContext
	interviewer Interviewer
	logger      *zap.Logger
	createdAt   time.Time

	// busy serializes SubmitAnswer calls for the whole pipeline run.
	busy sync.Mutex
	// mu guards the state below; held only for short reads and writes so
	// the transcript stays readable while a backend call is in flight.
	mu         sync.RWMutex
	turns      []Turn
	answered   int
	status     Status
	scores     map[int]float64
	finalScore *float64
	verdict    string
}

// New creates a session in the not_started state. The role context is
// validated and adopted as-is; iv may be nil, in which case every submit
// fails with ErrNotConfigured.
func New(userID uint, role *RoleContext, iv Interviewer, log *zap.Logger) (*Session, error) {
	if err := role.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	id := uuid.NewString()

	return &Session{
		id:          id,
		userID:      userID,
		role:        role,
		interviewer: iv,
		logger:      log.With(zap.String("session_id", id)),
		createdAt:   time.Now(),
		status:      StatusNotStarted,
		scores:      make(map[int]float64),
	}, nil
}

// SubmitAnswer appends the candidate's answer, runs one backend exchange and
// applies the result. It returns the interviewer's reply text for display.
// Backend failures and malformed replies are absorbed into a degraded
// interviewer turn; the candidate retries the same question slot.
func (s *Session) SubmitAnswer(ctx context.Context, text string) (string, error) {
	if !s.busy.TryLock() {
		return "", ErrSessionBusy
	}
	defer s.busy.Unlock()

	if s.Status() == StatusFinished {
		return "", ErrAlreadyFinished
	}
	if s.interviewer == nil {
		return "", ErrNotConfigured
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyAnswer
	}

	s.mu.Lock()
	s.turns = append(s.turns, Turn{Speaker: SpeakerCandidate, Text: text})
	if s.status == StatusNotStarted {
		s.status = StatusOngoing
	}
	transcript := s.snapshotLocked()
	s.mu.Unlock()

	result, err := s.interviewer.NextTurn(ctx, s.role, transcript)
	if err != nil {
		s.logger.Warn("interviewer call failed", zap.Error(err))
		result = &TurnResult{
			Message:  fmt.Sprintf("Error reaching the interviewer: %v. Please submit your answer again.", err),
			Status:   StatusOngoing,
			Degraded: true,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reply := Turn{Speaker: SpeakerInterviewer, Text: result.Message}

	if result.Degraded {
		// The answer stays in the transcript and the question slot stays
		// open; nothing is scored.
		s.turns = append(s.turns, reply)
		s.logger.Debug("recorded degraded interviewer turn", zap.Int("answered", s.answered))
		return result.Message, nil
	}

	// The answered count advances only when the reply scores the preceding
	// candidate answer. The very first interviewer turn (greeting plus the
	// opening question) carries no score and leaves the count at zero.
	if result.Score != nil {
		reply.Score = result.Score
		s.answered++
		s.scores[s.answered] = *result.Score
	}
	s.turns = append(s.turns, reply)

	finished := result.Status == StatusFinished && result.Verdict != "" && result.FinalScore != nil
	if result.Status == StatusFinished && !finished {
		s.logger.Warn("finished result without final score or verdict, keeping session ongoing")
	}
	if finished && s.answered < TotalQuestions {
		// The backend may not end the interview early.
		s.logger.Warn("premature finished result ignored",
			zap.Int("answered", s.answered),
			zap.Int("required", TotalQuestions),
		)
		finished = false
	}

	if finished {
		s.finalScore = result.FinalScore
		s.verdict = result.Verdict
		s.status = StatusFinished
		s.logger.Info("interview finished",
			zap.Float64("final_score", *result.FinalScore),
			zap.String("verdict", result.Verdict),
		)
	}

	return result.Message, nil
}

func (s *Session) snapshotLocked() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() uint { return s.userID }

func (s *Session) Role() *RoleContext { return s.role }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Transcript returns a copy of the turns in chronological order.
func (s *Session) Transcript() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// AnsweredCount is the number of candidate answers that received a scored
// interviewer reply.
func (s *Session) AnsweredCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answered
}

// QuestionNumber is the 1-based index of the question currently on the
// table, capped at TotalQuestions for display.
func (s *Session) QuestionNumber() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return min(s.answered+1, TotalQuestions)
}

// Scores returns a copy of the per-question score map.
func (s *Session) Scores() map[int]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]float64, len(s.scores))
	for q, score := range s.scores {
		out[q] = score
	}
	return out
}

// Record exposes the finished interview as an opaque value for persistence.
func (s *Session) Record() (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != StatusFinished {
		return nil, ErrNotFinished
	}
	return &Record{
		SessionID:  s.id,
		UserID:     s.userID,
		JobTitle:   s.role.JobTitle,
		Company:    s.role.Company,
		Level:      s.role.Level,
		Transcript: s.snapshotLocked(),
		FinalScore: s.finalScore,
		Verdict:    s.verdict,
	}, nil
}

// Record is the storage-facing shape of a finished interview.
type Record struct {
	SessionID  string
	UserID     uint
	JobTitle   string
	Company    string
	Level      string
	Transcript []Turn
	FinalScore *float64
	Verdict    string
}
