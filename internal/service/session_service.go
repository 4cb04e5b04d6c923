package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"go-stock-resi/internal/model"
	"go-stock-resi/pkg/jwt"
)

const maxNameLength = 100

type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Session   model.Session `json:"session"`
}

// SessionService identifies users by display name. There are no credentials;
// the token only saves the client from sending its name on every request.
type SessionService interface {
	Login(name string) (*LoginResponse, error)
	Resolve(token string) (model.Session, error)
}

type sessionService struct {
	tokens *jwt.Manager
}

func NewSessionService(tokens *jwt.Manager) SessionService {
	return &sessionService{tokens: tokens}
}

func (s *sessionService) Login(name string) (*LoginResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, &ValidationError{Field: "name", Reason: "is too long"}
	}

	token, expiresAt, err := s.tokens.GenerateToken(name)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Session:   model.Session{UserName: name},
	}, nil
}

func (s *sessionService) Resolve(token string) (model.Session, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{UserName: claims.Name}, nil
}
