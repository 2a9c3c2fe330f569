package limit

import (
	"context"
	"time"

	"cardledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Policy decides what happens when a card's usage counters belong to an
// earlier period than today.
type Policy string

const (
	// PolicyLazy normalizes stale counters inline before any check.
	PolicyLazy Policy = "lazy"
	// PolicyStrict reports stale counters as LIMIT_NOT_RESET and leaves the
	// normalization to the scheduled reset sweeps.
	PolicyStrict Policy = "strict"
)

// Default configuration values
const (
	DefaultBatchSize = 500
)

// Limits are the four ceilings of a card. A nil ceiling means no limit.
type Limits struct {
	DailyWithdrawal   *decimal.Decimal `json:"daily_withdrawal_limit"`
	MonthlyWithdrawal *decimal.Decimal `json:"monthly_withdrawal_limit"`
	DailyTransfer     *decimal.Decimal `json:"daily_transfer_limit"`
	MonthlyTransfer   *decimal.Decimal `json:"monthly_transfer_limit"`
}

// Config holds configuration for the limit tracker.
type Config struct {
	Policy    Policy
	BatchSize int
	// Clock returns the current instant; today is its UTC calendar date.
	Clock func() time.Time
}

// SweepResult summarizes one reset pass over all cards.
type SweepResult struct {
	Scanned int
	Reset   int
	Failed  int
}

// Service owns the rolling-window usage counters embedded in each card.
//
// Check and Add methods operate on a card already loaded under a row lock;
// persisting the mutation is the caller's job, inside the same unit as the
// money movement it backs.
type Service interface {
	// Today returns the current calendar date.
	Today() time.Time
	// Prepare brings the card's counters into today's period according to
	// the configured policy. It must run before any check.
	Prepare(card *models.Card, today time.Time) error

	CheckDailyWithdrawal(card *models.Card, amount decimal.Decimal) error
	CheckMonthlyWithdrawal(card *models.Card, amount decimal.Decimal) error
	CheckDailyTransfer(card *models.Card, amount decimal.Decimal) error
	CheckMonthlyTransfer(card *models.Card, amount decimal.Decimal) error

	AddWithdrawalUsage(card *models.Card, amount decimal.Decimal)
	AddTransferUsage(card *models.Card, amount decimal.Decimal)

	// SetCardLimits replaces all four ceilings of a card. Usage is untouched.
	SetCardLimits(ctx context.Context, cardID uuid.UUID, limits Limits) (*models.Card, error)

	ResetDailyLimits(ctx context.Context) (SweepResult, error)
	ResetMonthlyLimits(ctx context.Context) (SweepResult, error)
}
