package handlers

import (
	"cardledger/internal/models"
	"cardledger/internal/services/card"
	"cardledger/internal/services/query"
	"cardledger/internal/utils"
	"cardledger/internal/utils/pagination"
	"cardledger/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CardHandler exposes card issuance, lifecycle and card reads.
type CardHandler struct {
	cards card.Service
	query query.Service
}

func NewCardHandler(cards card.Service, query query.Service) *CardHandler {
	return &CardHandler{cards: cards, query: query}
}

// IssueCard handles POST /admin/users/:userId/cards.
func (h *CardHandler) IssueCard(c *fiber.Ctx) error {
	userID, ok := uintParam(c, "userId")
	if !ok {
		return response.BadRequest(c, "invalid user id")
	}

	var req struct {
		CardHolder     string          `json:"card_holder"`
		Type           models.CardType `json:"card_type"`
		DurationYears  int             `json:"duration_years"`
		InitialBalance decimal.Decimal `json:"initial_balance"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request")
	}

	issued, err := h.cards.CreateCard(c.UserContext(), userID, card.CreateCardInput{
		CardHolder:     req.CardHolder,
		Type:           req.Type,
		DurationYears:  req.DurationYears,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Created(c, "card issued", issued)
}

// ListCards returns the caller's cards, or every card for admins.
func (h *CardHandler) ListCards(c *fiber.Ctx) error {
	p, err := utils.GetPrincipal(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	page, err := h.query.ListCards(c.UserContext(), p, pagination.ParseFromRequest(c))
	if err != nil {
		return response.DomainError(c, err)
	}
	return c.JSON(pagination.Response(page.Pagination, page.Items))
}

func (h *CardHandler) GetCard(c *fiber.Ctx) error {
	p, err := utils.GetPrincipal(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid card id")
	}

	found, err := h.cards.GetCard(c.UserContext(), p, id)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "card retrieved", found)
}

func (h *CardHandler) GetBalance(c *fiber.Ctx) error {
	p, err := utils.GetPrincipal(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid card id")
	}

	balance, err := h.cards.GetCardBalance(c.UserContext(), p, id)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "balance retrieved", fiber.Map{
		"card_id": id,
		"balance": balance.StringFixed(2),
	})
}

// GetCardTransactions lists the history of one visible card.
func (h *CardHandler) GetCardTransactions(c *fiber.Ctx) error {
	p, err := utils.GetPrincipal(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid card id")
	}

	page, err := h.query.ListTransactions(c.UserContext(), p, query.TransactionFilter{CardID: &id}, pagination.ParseFromRequest(c))
	if err != nil {
		return response.DomainError(c, err)
	}
	return c.JSON(pagination.Response(page.Pagination, page.Items))
}

// UpdateStatus handles PATCH /admin/cards/:id/status.
func (h *CardHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid card id")
	}

	var req struct {
		Status models.CardStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request")
	}

	updated, err := h.cards.UpdateCardStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "card status updated", updated)
}

// DeleteCard handles DELETE /admin/cards/:id.
func (h *CardHandler) DeleteCard(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid card id")
	}
	if err := h.cards.DeleteCard(c.UserContext(), id); err != nil {
		return response.DomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
