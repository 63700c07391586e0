package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/ticket-notifier/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("s3cret", 5)

	signed, expiresAt, err := tm.GenerateToken("ops@example.com", RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestParseTokenRejects(t *testing.T) {
	signed, _, err := NewTokenManager("one", 5).GenerateToken("x", RoleAdmin)
	require.NoError(t, err)
	_, err = NewTokenManager("two", 5).ParseToken(signed)
	assert.Error(t, err)

	expired := &TokenManager{secret: []byte("one"), ttl: -time.Minute}
	signed, _, err = expired.GenerateToken("x", RoleAdmin)
	require.NoError(t, err)
	_, err = expired.ParseToken(signed)
	assert.Error(t, err)

	_, err = NewTokenManager("one", 5).ParseToken("not-a-jwt")
	assert.Error(t, err)
}

func newProtectedApp(m *AuthMiddleware) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		var de *apperrors.DomainError
		if errors.As(err, &de) {
			return c.Status(de.HTTPStatus).SendString(de.Code)
		}
		return c.SendStatus(http.StatusInternalServerError)
	}})
	app.Get("/admin", m.Handle, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(principal.Subject)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("s3cret", 5)
	admin, _, err := tm.GenerateToken("ops", RoleAdmin)
	require.NoError(t, err)
	viewer, _, err := tm.GenerateToken("ops", "viewer")
	require.NoError(t, err)

	app := newProtectedApp(NewAuthMiddleware(tm))
	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + viewer, http.StatusUnauthorized},
		{"admin", "Bearer " + admin, http.StatusOK},
		{"lowercase scheme", "bearer " + admin, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	app := newProtectedApp(NewAuthMiddleware(nil))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
