package handlers

import (
	"cardledger/internal/services/ledger"
	"cardledger/internal/utils"
	"cardledger/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferHandler exposes transfers between cards of one owner.
type TransferHandler struct {
	service ledger.Service
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(s ledger.Service) *TransferHandler { return &TransferHandler{service: s} }

// Transfer handles POST /transactions/transfer requests.
func (h *TransferHandler) Transfer(c *fiber.Ctx) error {
	p, err := utils.GetPrincipal(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req struct {
		FromCardID  uuid.UUID       `json:"from_card_id"`
		ToCardID    uuid.UUID       `json:"to_card_id"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request")
	}

	res, err := h.service.Transfer(c.UserContext(), ledger.TransferRequest{
		Principal:   p,
		FromCardID:  req.FromCardID,
		ToCardID:    req.ToCardID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "transfer completed", res)
}
