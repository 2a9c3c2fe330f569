package limit

import (
	"time"

	"cardledger/internal/models"

	"github.com/shopspring/decimal"
)

// IsStale reports whether the card's counters were last normalized on a
// date other than today.
func IsStale(card *models.Card, today time.Time) bool {
	return !models.DateOf(card.Limit.ResetDate).Equal(models.DateOf(today))
}

// Refresh moves a stale card into today's period: daily counters are zeroed,
// monthly counters too when the month changed, and the reset date becomes
// today. It is idempotent and reports whether anything changed.
func Refresh(card *models.Card, today time.Time) bool {
	if !IsStale(card, today) {
		return false
	}

	last := models.DateOf(card.Limit.ResetDate)
	day := models.DateOf(today)

	card.Limit.DailyWithdrawalUsed = decimal.Zero
	card.Limit.DailyTransferUsed = decimal.Zero
	if last.Year() != day.Year() || last.Month() != day.Month() {
		card.Limit.MonthlyWithdrawalUsed = decimal.Zero
		card.Limit.MonthlyTransferUsed = decimal.Zero
	}
	card.Limit.ResetDate = day
	return true
}

// Apply replaces the ceilings of a card.
func (l Limits) Apply(card *models.Card) {
	card.Limit.DailyWithdrawalLimit = l.DailyWithdrawal
	card.Limit.MonthlyWithdrawalLimit = l.MonthlyWithdrawal
	card.Limit.DailyTransferLimit = l.DailyTransfer
	card.Limit.MonthlyTransferLimit = l.MonthlyTransfer
}

// LimitsOf returns the ceilings currently set on a card.
func LimitsOf(card *models.Card) Limits {
	return Limits{
		DailyWithdrawal:   card.Limit.DailyWithdrawalLimit,
		MonthlyWithdrawal: card.Limit.MonthlyWithdrawalLimit,
		DailyTransfer:     card.Limit.DailyTransferLimit,
		MonthlyTransfer:   card.Limit.MonthlyTransferLimit,
	}
}
