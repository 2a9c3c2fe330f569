package handlers

import (
	"context"

	"cardledger/internal/services/limit"
	"cardledger/internal/services/query"
	"cardledger/internal/services/user"
	"cardledger/internal/utils/pagination"
	"cardledger/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// SweepRunner triggers the limit reset sweeps on demand.
type SweepRunner interface {
	RunDaily(ctx context.Context) (limit.SweepResult, error)
	RunMonthly(ctx context.Context) (limit.SweepResult, error)
}

// AdminHandler serves the /admin routes. Callers are already checked to be
// admins by the route group.
type AdminHandler struct {
	users  user.Service
	query  query.Service
	limits limit.Service
	sweeps SweepRunner
}

func NewAdminHandler(users user.Service, q query.Service, limits limit.Service, sweeps SweepRunner) *AdminHandler {
	return &AdminHandler{users: users, query: q, limits: limits, sweeps: sweeps}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, err := h.users.List(pagination.ParseFromRequest(c))
	if err != nil {
		return response.DomainError(c, err)
	}
	return c.JSON(pagination.Response(page.Pagination, page.Items))
}

func (h *AdminHandler) ListUserCards(c *fiber.Ctx) error {
	userID, ok := uintParam(c, "userId")
	if !ok {
		return response.BadRequest(c, "invalid user id")
	}
	if _, err := h.users.GetByID(userID); err != nil {
		return response.DomainError(c, err)
	}

	page, err := h.query.ListCardsOfUser(c.UserContext(), userID, pagination.ParseFromRequest(c))
	if err != nil {
		return response.DomainError(c, err)
	}
	return c.JSON(pagination.Response(page.Pagination, page.Items))
}

// DeleteUser removes a user whose cards all hold a zero balance.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	userID, ok := uintParam(c, "userId")
	if !ok {
		return response.BadRequest(c, "invalid user id")
	}
	if err := h.users.Delete(c.UserContext(), userID); err != nil {
		return response.DomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetCardLimits replaces the four ceilings of a card. Omitted or null
// ceilings mean no limit.
func (h *AdminHandler) SetCardLimits(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid card id")
	}

	var req limit.Limits
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request")
	}

	card, err := h.limits.SetCardLimits(c.UserContext(), id, req)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "card limits updated", card.Limit)
}

// ResetLimits handles POST /admin/limits/reset/:window.
func (h *AdminHandler) ResetLimits(c *fiber.Ctx) error {
	var (
		res limit.SweepResult
		err error
	)
	switch c.Params("window") {
	case "daily":
		res, err = h.sweeps.RunDaily(c.UserContext())
	case "monthly":
		res, err = h.sweeps.RunMonthly(c.UserContext())
	default:
		return response.BadRequest(c, "window must be daily or monthly")
	}

	body := fiber.Map{
		"scanned": res.Scanned,
		"reset":   res.Reset,
		"failed":  res.Failed,
	}
	if err != nil {
		body["error"] = "some cards could not be reset"
		return c.Status(fiber.StatusMultiStatus).JSON(body)
	}
	return response.Success(c, "limits reset", body)
}
