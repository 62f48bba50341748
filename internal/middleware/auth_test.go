package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bluecarbon-backend/internal/auth"
	"bluecarbon-backend/internal/models"
)

func protectedApp(tokens *auth.TokenIssuer) *fiber.App {
	app := fiber.New()
	app.Get("/whoami", RequireAuth(tokens), func(c *fiber.Ctx) error {
		actor := GetActor(c)
		return c.JSON(fiber.Map{"address": actor.Address, "role": actor.Role})
	})
	return app
}

func TestRequireAuth_ValidToken(t *testing.T) {
	tokens := &auth.TokenIssuer{Secret: []byte("test-secret"), TTL: time.Hour}
	app := protectedApp(tokens)

	token, err := tokens.Issue("0xabc", models.RolePanchayat)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireAuth_Rejections(t *testing.T) {
	tokens := &auth.TokenIssuer{Secret: []byte("test-secret"), TTL: time.Hour}
	app := protectedApp(tokens)

	// No header.
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Not a bearer token.
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Signed with a different secret.
	foreign, err := (&auth.TokenIssuer{Secret: []byte("other"), TTL: time.Hour}).Issue("0xabc", models.RoleAdmin)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+foreign)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Expired.
	expired, err := (&auth.TokenIssuer{Secret: []byte("test-secret"), TTL: -time.Minute}).Issue("0xabc", models.RoleAdmin)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
