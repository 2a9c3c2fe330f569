package response

import (
	apperrors "cardledger/internal/errors"

	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

func Unauthorized(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *fiber.Ctx) error {
	return Error(c, fiber.StatusForbidden, "Forbidden")
}

func ValidationError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

// StatusOf maps a classified failure to its HTTP status.
func StatusOf(err error) int {
	var (
		limit    *apperrors.LimitExceededError
		notReset *apperrors.LimitNotResetError
	)
	if apperrors.As(err, &limit) || apperrors.As(err, &notReset) {
		return fiber.StatusUnprocessableEntity
	}

	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return fiber.StatusNotFound
	case apperrors.KindPrecondition, apperrors.KindBusinessRule:
		return fiber.StatusBadRequest
	case apperrors.KindInfrastructure:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// DomainError renders err with its code and details. Unclassified errors
// are reported without their message.
func DomainError(c *fiber.Ctx, err error) error {
	status := StatusOf(err)
	if status == fiber.StatusInternalServerError {
		return ServerError(c, "internal server error")
	}

	body := fiber.Map{
		"error": err.Error(),
		"code":  apperrors.CodeOf(err),
	}
	if status == fiber.StatusServiceUnavailable {
		body["error"] = "temporary failure, retry the operation"
	}
	if details := apperrors.DetailsOf(err); len(details) > 0 {
		body["details"] = details
	}
	return c.Status(status).JSON(body)
}
