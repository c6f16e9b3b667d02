package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/veselov/interview-coach/internal/interview"
)

type createInterviewRequest struct {
	JobTitle string   `json:"job_title"`
	Company  string   `json:"company"`
	Level    string   `json:"level"`
	Skills   []string `json:"skills"`
	Resume   string   `json:"resume"`
}

type answerRequest struct {
	Text string `json:"text"`
}

func (s *Server) createInterview(c *fiber.Ctx) error {
	var req createInterviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	role := &interview.RoleContext{
		JobTitle: req.JobTitle,
		Company:  req.Company,
		Level:    req.Level,
		Skills:   req.Skills,
		Resume:   req.Resume,
	}

	session, err := interview.New(currentUserID(c), role, s.interviewer, s.logger)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	s.registry.Put(session)

	s.logger.Info("interview created",
		zap.String("session_id", session.ID()),
		zap.String("job_title", role.JobTitle),
		zap.String("company", role.Company),
	)

	return ok(c, fiber.Map{
		"id":              session.ID(),
		"status":          session.Status(),
		"question_number": session.QuestionNumber(),
	})
}

func (s *Server) submitAnswer(c *fiber.Ctx) error {
	session, err := s.ownedSession(c)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "interview not found")
	}

	var req answerRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := session.SubmitAnswer(c.Context(), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, interview.ErrAlreadyFinished):
			return fail(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, interview.ErrSessionBusy):
			return fail(c, fiber.StatusTooManyRequests, err.Error())
		case errors.Is(err, interview.ErrNotConfigured):
			return fail(c, fiber.StatusServiceUnavailable, err.Error())
		case errors.Is(err, interview.ErrEmptyAnswer):
			return fail(c, fiber.StatusBadRequest, err.Error())
		default:
			s.logger.Error("submitting answer", zap.Error(err))
			return fail(c, fiber.StatusInternalServerError, "could not process answer")
		}
	}

	data := fiber.Map{
		"message":         message,
		"status":          session.Status(),
		"question_number": session.QuestionNumber(),
	}

	if session.Status() == interview.StatusFinished {
		s.persistFinished(c, session)

		if summary, summaryErr := session.Summary(); summaryErr == nil {
			data["summary"] = summary
		}
	}

	return ok(c, data)
}

// persistFinished hands the finished interview to storage. A storage failure
// is logged, not surfaced: the candidate still gets the verdict.
func (s *Server) persistFinished(c *fiber.Ctx, session *interview.Session) {
	record, err := session.Record()
	if err != nil {
		s.logger.Error("building interview record", zap.Error(err))
		return
	}

	if err := s.interviews.Save(c.Context(), record); err != nil {
		s.logger.Error("persisting finished interview",
			zap.String("session_id", session.ID()),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("interview persisted", zap.String("session_id", session.ID()))
}

func (s *Server) getInterview(c *fiber.Ctx) error {
	session, err := s.ownedSession(c)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "interview not found")
	}

	return ok(c, fiber.Map{
		"id":              session.ID(),
		"status":          session.Status(),
		"question_number": session.QuestionNumber(),
		"transcript":      session.Transcript(),
	})
}

func (s *Server) getResult(c *fiber.Ctx) error {
	session, err := s.ownedSession(c)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "interview not found")
	}

	summary, err := session.Summary()
	if err != nil {
		return fail(c, fiber.StatusConflict, err.Error())
	}

	return ok(c, summary)
}

func (s *Server) history(c *fiber.Ctx) error {
	records, err := s.interviews.ListByUser(c.Context(), currentUserID(c))
	if err != nil {
		s.logger.Error("listing interviews", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "could not load history")
	}

	return ok(c, records)
}

var errUnknownSession = errors.New("unknown session")

// ownedSession resolves the :id parameter to a session owned by the caller.
// Foreign sessions are indistinguishable from missing ones.
func (s *Server) ownedSession(c *fiber.Ctx) (*interview.Session, error) {
	session, found := s.registry.Get(c.Params("id"))
	if !found || session.UserID() != currentUserID(c) {
		return nil, errUnknownSession
	}
	return session, nil
}
