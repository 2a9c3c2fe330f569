package handlers

import (
	"errors"

	apperrors "cardledger/internal/errors"
	"cardledger/internal/models"
	"cardledger/internal/repositories"
	"cardledger/internal/services/auth"
	"cardledger/internal/utils"
	"cardledger/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	authService auth.Service
	log         logrus.FieldLogger
}

func NewAuthHandler(authService auth.Service, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

// RegisterUser creates a plain user account.
func (h *AuthHandler) RegisterUser(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.authService.Register(auth.RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Name:     input.Name,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			return response.Error(c, fiber.StatusConflict, "Email already registered")
		}
		if apperrors.KindOf(err) != "" {
			return response.DomainError(c, err)
		}
		h.log.WithError(err).Error("registration failed")
		return response.ServerError(c, "Registration failed")
	}

	return response.Created(c, "user registered", fiber.Map{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
	})
}

// LoginUser handles user authentication and returns a JWT access token.
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.Email == "" || input.Password == "" {
		return response.BadRequest(c, "Email and password are required")
	}

	session, err := h.authService.Login(input.Email, input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return response.Error(c, fiber.StatusUnauthorized, "Invalid email or password")
		}
		h.log.WithError(err).Error("login failed")
		return response.ServerError(c, "Authentication failed")
	}

	return c.JSON(fiber.Map{
		"access_token": session.AccessToken,
		"expires_at":   session.ExpiresAt,
		"user": fiber.Map{
			"id":          session.User.ID,
			"email":       session.User.Email,
			"role":        session.User.Role,
			"permissions": models.GetDefaultPermissions(session.User.Role),
		},
	})
}

// LogoutUser revokes every token issued so far to the caller.
func (h *AuthHandler) LogoutUser(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	if err := h.authService.Logout(claims.UserID); err != nil {
		h.log.WithError(err).WithField("user_id", claims.UserID).Error("logout failed")
		return response.ServerError(c, "Logout failed")
	}
	return response.Success(c, "logged out", nil)
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.authService.ChangePassword(claims.UserID, input.OldPassword, input.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return response.BadRequest(c, "Incorrect password")
		}
		if apperrors.KindOf(err) != "" {
			return response.DomainError(c, err)
		}
		h.log.WithError(err).WithField("user_id", claims.UserID).Error("password change failed")
		return response.ServerError(c, "Password change failed")
	}
	return response.Success(c, "password changed", nil)
}
