package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

// Transaction types. Inflows carry a positive amount, outflows a negative one.
const (
	TransactionTypeDeposit     TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal  TransactionType = "WITHDRAWAL"
	TransactionTypeTransferIn  TransactionType = "TRANSFER_IN"
	TransactionTypeTransferOut TransactionType = "TRANSFER_OUT"
)

// TransactionStatusCompleted is reported for every committed money movement.
const TransactionStatusCompleted = "COMPLETED"

// IsInflow reports whether t credits the card.
func (t TransactionType) IsInflow() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeTransferIn
}

// Transaction is an append-only ledger record owned by a single card.
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CardID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"card_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(19,2);not null" json:"amount"`
	Description string          `json:"description"`
	Type        TransactionType `gorm:"not null;index" json:"type"`
	TransferRef *uuid.UUID      `gorm:"type:uuid;index" json:"transfer_ref,omitempty"`
	Timestamp   time.Time       `gorm:"not null;index" json:"timestamp"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate keeps the ledger append-only.
func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrInvalidData
}

// NewTransaction builds a record whose sign follows its type.
func NewTransaction(cardID uuid.UUID, magnitude decimal.Decimal, txType TransactionType, description string, at time.Time) *Transaction {
	amount := magnitude.Abs()
	if !txType.IsInflow() {
		amount = amount.Neg()
	}
	return &Transaction{
		ID:          uuid.New(),
		CardID:      cardID,
		Amount:      amount,
		Description: description,
		Type:        txType,
		Timestamp:   at,
	}
}
