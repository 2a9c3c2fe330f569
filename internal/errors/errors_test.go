package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMatchesSentinel(t *testing.T) {
	id := uuid.New()
	err := fmt.Errorf("withdraw: %w", CardNotFound(id))

	assert.True(t, Is(err, ErrCardNotFound))
	assert.False(t, Is(err, ErrCardNotActive))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "CARD_NOT_FOUND", CodeOf(err))
	assert.Equal(t, id.String(), DetailsOf(err)["card_id"])
}

func TestWithDoesNotMutateSentinel(t *testing.T) {
	_ = CardNotActive(uuid.New(), "BLOCKED")
	assert.Nil(t, ErrCardNotActive.Details)
}

func TestLimitExceededError(t *testing.T) {
	tests := []struct {
		window   LimitWindow
		op       LimitOperation
		sentinel *DomainError
	}{
		{WindowDaily, OperationWithdrawal, ErrDailyWithdrawalLimitExceeded},
		{WindowMonthly, OperationWithdrawal, ErrMonthlyWithdrawalLimitExceeded},
		{WindowDaily, OperationTransfer, ErrDailyTransferLimitExceeded},
		{WindowMonthly, OperationTransfer, ErrMonthlyTransferLimitExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.sentinel.Code, func(t *testing.T) {
			err := &LimitExceededError{
				Window:    tt.window,
				Operation: tt.op,
				Limit:     decimal.RequireFromString("90"),
				Attempted: decimal.RequireFromString("60"),
				Used:      decimal.RequireFromString("50"),
			}
			assert.True(t, Is(err, tt.sentinel))
			assert.Equal(t, tt.sentinel.Code, CodeOf(err))
			assert.Equal(t, KindBusinessRule, KindOf(err))
			assert.Equal(t, map[string]interface{}{
				"limit": "90.00", "attempted": "60.00", "used": "50.00",
			}, DetailsOf(err))
		})
	}
}

func TestInsufficientFundsError(t *testing.T) {
	err := &InsufficientFundsError{
		CardID:    uuid.New(),
		Requested: decimal.RequireFromString("80"),
		Available: decimal.RequireFromString("20"),
	}
	assert.True(t, Is(err, ErrInsufficientFunds))
	assert.Contains(t, err.Error(), "requested 80.00, available 20.00")
}

func TestLimitNotResetError(t *testing.T) {
	err := &LimitNotResetError{
		CardID:    uuid.New(),
		ResetDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Today:     time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, Is(err, ErrLimitNotReset))
	assert.Equal(t, "2024-03-01", DetailsOf(err)["reset_date"])
}

func TestTransient(t *testing.T) {
	cause := New("connection refused")
	err := Transient("save card", cause)

	require.True(t, Is(err, ErrTransient))
	assert.True(t, Is(err, cause))
	assert.Equal(t, KindInfrastructure, KindOf(err))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(New("boom")))
	assert.Nil(t, DetailsOf(New("boom")))
}
