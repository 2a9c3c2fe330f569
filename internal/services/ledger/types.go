package ledger

import (
	"time"

	"cardledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawRequest takes money off a card.
type WithdrawRequest struct {
	Principal   models.Principal
	CardID      uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// DepositRequest puts money on a card.
type DepositRequest struct {
	Principal   models.Principal
	CardID      uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// TransferRequest moves money between two cards of the same owner.
type TransferRequest struct {
	Principal   models.Principal
	FromCardID  uuid.UUID
	ToCardID    uuid.UUID
	Amount      decimal.Decimal
	Description string
}

type WithdrawalResult struct {
	TransactionID    uuid.UUID       `json:"transaction_id"`
	CardMaskedNumber string          `json:"card_masked_number"`
	Amount           decimal.Decimal `json:"amount"`
	NewBalance       decimal.Decimal `json:"new_balance"`
	Status           string          `json:"status"`
}

type DepositResult struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	NewBalance    decimal.Decimal `json:"new_balance"`
}

// TransferResult describes both legs of a transfer. TransferID is the id of
// the outgoing record; both records share TransferRef.
type TransferResult struct {
	TransferID     uuid.UUID       `json:"transfer_id"`
	TransferRef    uuid.UUID       `json:"transfer_ref"`
	FromMasked     string          `json:"from_card_masked_number"`
	ToMasked       string          `json:"to_card_masked_number"`
	Amount         decimal.Decimal `json:"amount"`
	FromNewBalance decimal.Decimal `json:"from_new_balance"`
	ToNewBalance   decimal.Decimal `json:"to_new_balance"`
	Status         string          `json:"status"`
}

// Config holds configuration for ledger operations
type Config struct {
	// OperationTimeout bounds one whole atomic unit, lock waits included.
	OperationTimeout time.Duration
	Clock            func() time.Time
}

// MetricsCollector defines the interface for collecting ledger metrics
type MetricsCollector interface {
	// Operation metrics
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)

	// Balance metrics
	RecordBalanceChange(cardID uuid.UUID, oldBalance, newBalance decimal.Decimal)

	// Error metrics
	RecordError(operation, code string)

	// Transaction metrics
	RecordTransaction(txType models.TransactionType, amount decimal.Decimal)
}
