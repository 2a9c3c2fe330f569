package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// Valid reports whether s is a known status.
func (s CardStatus) Valid() bool {
	switch s {
	case CardStatusActive, CardStatusBlocked, CardStatusExpired:
		return true
	}
	return false
}

type CardType string

const (
	CardTypeVisa            CardType = "VISA"
	CardTypeMastercard      CardType = "MASTERCARD"
	CardTypeMir             CardType = "MIR"
	CardTypeAmericanExpress CardType = "AMERICAN_EXPRESS"
)

// Default ceilings applied to newly issued cards.
var (
	DefaultDailyWithdrawalLimit   = decimal.RequireFromString("150.00")
	DefaultMonthlyWithdrawalLimit = decimal.RequireFromString("5000.00")
	DefaultDailyTransferLimit     = decimal.RequireFromString("150.00")
	DefaultMonthlyTransferLimit   = decimal.RequireFromString("5000.00")
)

// Card is a payment card. Balance and the embedded limit state change only
// through the ledger and the limit tracker.
type Card struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uint            `gorm:"not null;index" json:"user_id"`
	MaskedNumber    string          `gorm:"not null" json:"masked_number"`
	EncryptedNumber string          `gorm:"not null" json:"-"`
	CardHolder      string          `gorm:"not null" json:"card_holder"`
	ExpiryDate      time.Time       `gorm:"type:date;not null" json:"expiry_date"`
	Type            CardType        `gorm:"column:card_type;not null" json:"card_type"`
	Status          CardStatus      `gorm:"not null;default:'ACTIVE';index" json:"status"`
	Balance         decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0" json:"balance"`
	Limit           CardLimit       `gorm:"embedded;embeddedPrefix:limit_" json:"limit"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CardLimit holds the four ceilings, their usage counters and the date the
// counters were last normalized. A nil ceiling means no limit.
type CardLimit struct {
	DailyWithdrawalLimit   *decimal.Decimal `gorm:"type:decimal(19,2)" json:"daily_withdrawal_limit"`
	MonthlyWithdrawalLimit *decimal.Decimal `gorm:"type:decimal(19,2)" json:"monthly_withdrawal_limit"`
	DailyTransferLimit     *decimal.Decimal `gorm:"type:decimal(19,2)" json:"daily_transfer_limit"`
	MonthlyTransferLimit   *decimal.Decimal `gorm:"type:decimal(19,2)" json:"monthly_transfer_limit"`

	DailyWithdrawalUsed   decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0" json:"daily_withdrawal_used"`
	MonthlyWithdrawalUsed decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0" json:"monthly_withdrawal_used"`
	DailyTransferUsed     decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0" json:"daily_transfer_used"`
	MonthlyTransferUsed   decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0" json:"monthly_transfer_used"`

	ResetDate time.Time `gorm:"column:reset_date;type:date;not null" json:"limit_reset_date"`
}

// DefaultCardLimit returns the limits of a freshly issued card.
func DefaultCardLimit(today time.Time) CardLimit {
	dw, mw := DefaultDailyWithdrawalLimit, DefaultMonthlyWithdrawalLimit
	dt, mt := DefaultDailyTransferLimit, DefaultMonthlyTransferLimit
	return CardLimit{
		DailyWithdrawalLimit:   &dw,
		MonthlyWithdrawalLimit: &mw,
		DailyTransferLimit:     &dt,
		MonthlyTransferLimit:   &mt,
		DailyWithdrawalUsed:    decimal.Zero,
		MonthlyWithdrawalUsed:  decimal.Zero,
		DailyTransferUsed:      decimal.Zero,
		MonthlyTransferUsed:    decimal.Zero,
		ResetDate:              DateOf(today),
	}
}

func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsExpiredOn reports whether the card's expiry date is before day.
func (c *Card) IsExpiredOn(day time.Time) bool {
	return DateOf(c.ExpiryDate).Before(DateOf(day))
}

// DateOf truncates t to its calendar date, in t's own location, expressed in UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
