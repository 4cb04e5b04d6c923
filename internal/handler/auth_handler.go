package handler

import (
	"go-stock-resi/internal/middleware"
	"go-stock-resi/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SessionHandler struct {
	sessions     service.SessionService
	fallbackUser string
}

func NewSessionHandler(sessions service.SessionService, fallbackUser string) *SessionHandler {
	return &SessionHandler{sessions: sessions, fallbackUser: fallbackUser}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Name string `json:"name"`
}

// Login issues a token carrying the display name.
// POST /api/v1/session
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	response, err := h.sessions.Login(req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

// Current reports who the request is acting as.
// GET /api/v1/session
func (h *SessionHandler) Current(c *fiber.Ctx) error {
	session := middleware.CurrentSession(c)
	return c.JSON(fiber.Map{
		"user_name":    session.DisplayName(h.fallbackUser),
		"is_anonymous": session.IsAnonymous(),
	})
}
