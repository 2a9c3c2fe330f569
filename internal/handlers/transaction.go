package handlers

import (
	"cardledger/internal/models"
	"cardledger/internal/services/ledger"
	"cardledger/internal/services/query"
	"cardledger/internal/utils"
	"cardledger/internal/utils/pagination"
	"cardledger/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionHandler exposes withdrawals, deposits and the transaction history.
type TransactionHandler struct {
	ledger ledger.Service
	query  query.Service
}

func NewTransactionHandler(l ledger.Service, q query.Service) *TransactionHandler {
	return &TransactionHandler{ledger: l, query: q}
}

type cardAmountRequest struct {
	CardID      uuid.UUID       `json:"card_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (h *TransactionHandler) Withdraw(c *fiber.Ctx) error {
	p, err := utils.GetPrincipal(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req cardAmountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request")
	}

	res, err := h.ledger.Withdraw(c.UserContext(), ledger.WithdrawRequest{
		Principal:   p,
		CardID:      req.CardID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "withdrawal completed", res)
}

func (h *TransactionHandler) Deposit(c *fiber.Ctx) error {
	p, err := utils.GetPrincipal(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req cardAmountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request")
	}

	res, err := h.ledger.Deposit(c.UserContext(), ledger.DepositRequest{
		Principal:   p,
		CardID:      req.CardID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "deposit completed", res)
}

// ListTransactions handles GET /transactions?card_id=&type=&from=&to=.
func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	p, err := utils.GetPrincipal(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var filter query.TransactionFilter
	if raw := c.Query("card_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.BadRequest(c, "invalid card_id")
		}
		filter.CardID = &id
	}
	filter.Type = models.TransactionType(c.Query("type"))
	if filter.From, err = dateQuery(c, "from"); err != nil {
		return response.BadRequest(c, "from must be YYYY-MM-DD")
	}
	if filter.To, err = dateQuery(c, "to"); err != nil {
		return response.BadRequest(c, "to must be YYYY-MM-DD")
	}

	page, err := h.query.ListTransactions(c.UserContext(), p, filter, pagination.ParseFromRequest(c))
	if err != nil {
		return response.DomainError(c, err)
	}
	return c.JSON(pagination.Response(page.Pagination, page.Items))
}

func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	p, err := utils.GetPrincipal(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid transaction id")
	}

	tx, err := h.query.GetTransaction(c.UserContext(), p, id)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "transaction retrieved", tx)
}
