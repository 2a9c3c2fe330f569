package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"

	"cardledger/internal/models"
	"cardledger/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]*models.UserClaims

func (s stubVerifier) Verify(token string) (*models.UserClaims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

func newApp() *fiber.App {
	log, _ := test.NewNullLogger()
	verifier := stubVerifier{
		"user-token":  {UserID: 1, Role: models.RoleUser, Permissions: models.GetDefaultPermissions(models.RoleUser)},
		"admin-token": {UserID: 2, Role: models.RoleAdmin},
		"bare-token":  {UserID: 3, Role: models.RoleUser},
	}
	auth := NewAuthMiddleware(verifier, log)

	app := fiber.New()
	api := app.Group("/api", auth.Handler)
	api.Get("/me", func(c *fiber.Ctx) error {
		p, err := utils.GetPrincipal(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"user_id": p.UserID, "admin": p.IsAdmin()})
	})
	api.Get("/cards", HasPermission(models.PermissionCardRead), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	api.Get("/admin", AdminOnly, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	app := newApp()

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/api/me", "", fiber.StatusUnauthorized},
		{"wrong scheme", "/api/me", "Basic abc", fiber.StatusUnauthorized},
		{"unknown token", "/api/me", "Bearer nope", fiber.StatusUnauthorized},
		{"valid token", "/api/me", "Bearer user-token", fiber.StatusOK},
		{"permission granted", "/api/cards", "Bearer user-token", fiber.StatusOK},
		{"permission missing", "/api/cards", "Bearer bare-token", fiber.StatusForbidden},
		{"admin bypasses permissions", "/api/cards", "Bearer admin-token", fiber.StatusOK},
		{"admin route as user", "/api/admin", "Bearer user-token", fiber.StatusForbidden},
		{"admin route as admin", "/api/admin", "Bearer admin-token", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
