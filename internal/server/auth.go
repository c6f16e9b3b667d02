package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/veselov/interview-coach/internal/store"
)

const userIDKey = "user_id"

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := s.users.Create(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return fail(c, fiber.StatusConflict, err.Error())
		}
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	s.logger.Info("user registered", zap.String("username", user.Username))

	return s.respondWithToken(c, user)
}

func (s *Server) login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := s.users.Authenticate(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			return fail(c, fiber.StatusUnauthorized, err.Error())
		}
		return fail(c, fiber.StatusInternalServerError, "authentication failed")
	}

	return s.respondWithToken(c, user)
}

func (s *Server) respondWithToken(c *fiber.Ctx, user *store.User) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIDKey: user.ID,
		"exp":     time.Now().Add(s.cfg.TokenTTL).Unix(),
	})

	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		s.logger.Error("signing token", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "could not issue token")
	}

	return ok(c, fiber.Map{
		"token":    signed,
		"username": user.Username,
	})
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return fail(c, fiber.StatusUnauthorized, "missing token")
	}

	token, err := jwt.Parse(header[7:], func(t *jwt.Token) (any, error) {
		if _, typeOK := t.Method.(*jwt.SigningMethodHMAC); !typeOK {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return fail(c, fiber.StatusUnauthorized, "invalid token")
	}

	claims, claimsOK := token.Claims.(jwt.MapClaims)
	if !claimsOK {
		return fail(c, fiber.StatusUnauthorized, "invalid claims")
	}

	id, idOK := claims[userIDKey].(float64)
	if !idOK || id <= 0 {
		return fail(c, fiber.StatusUnauthorized, "invalid claims")
	}

	c.Locals(userIDKey, uint(id))
	return c.Next()
}

func currentUserID(c *fiber.Ctx) uint {
	if id, idOK := c.Locals(userIDKey).(uint); idOK {
		return id
	}
	return 0
}
