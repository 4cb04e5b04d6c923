package service

import (
	"strings"
	"testing"
	"time"

	"go-stock-resi/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginIssuesResolvableToken(t *testing.T) {
	svc := NewSessionService(jwt.NewManager("secret", time.Hour))

	resp, err := svc.Login("  Ana  ")
	require.NoError(t, err)
	assert.Equal(t, "Ana", resp.Session.UserName)
	assert.NotEmpty(t, resp.Token)

	session, err := svc.Resolve(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "Ana", session.UserName)
}

func TestLoginRejectsBadNames(t *testing.T) {
	svc := NewSessionService(jwt.NewManager("secret", time.Hour))

	for _, name := range []string{"", "   ", strings.Repeat("a", maxNameLength+1)} {
		_, err := svc.Login(name)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	}
}

func TestResolveRejectsGarbage(t *testing.T) {
	svc := NewSessionService(jwt.NewManager("secret", time.Hour))
	_, err := svc.Resolve("not-a-token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}
