package middleware

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"go-stock-resi/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver map[string]string

func (r staticResolver) Resolve(token string) (model.Session, error) {
	name, ok := r[token]
	if !ok {
		return model.Session{}, errors.New("bad token")
	}
	return model.Session{UserName: name}, nil
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(Session(staticResolver{"good": "Ana"}))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(CurrentSession(c).DisplayName("nobody"))
	})
	return app
}

func call(t *testing.T, app *fiber.App, auth string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", "/", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestSessionMiddleware(t *testing.T) {
	app := newApp()

	status, body := call(t, app, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "nobody", body)

	status, body = call(t, app, "Bearer good")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ana", body)

	status, _ = call(t, app, "Bearer bad")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, "Token good")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
