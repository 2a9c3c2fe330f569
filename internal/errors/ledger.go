package errors

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = &DomainError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient funds",
		Kind:    KindBusinessRule,
	}
	ErrDailyWithdrawalLimitExceeded = &DomainError{
		Code:    "DAILY_WITHDRAWAL_LIMIT_EXCEEDED",
		Message: "daily withdrawal limit exceeded",
		Kind:    KindBusinessRule,
	}
	ErrMonthlyWithdrawalLimitExceeded = &DomainError{
		Code:    "MONTHLY_WITHDRAWAL_LIMIT_EXCEEDED",
		Message: "monthly withdrawal limit exceeded",
		Kind:    KindBusinessRule,
	}
	ErrDailyTransferLimitExceeded = &DomainError{
		Code:    "DAILY_TRANSFER_LIMIT_EXCEEDED",
		Message: "daily transfer limit exceeded",
		Kind:    KindBusinessRule,
	}
	ErrMonthlyTransferLimitExceeded = &DomainError{
		Code:    "MONTHLY_TRANSFER_LIMIT_EXCEEDED",
		Message: "monthly transfer limit exceeded",
		Kind:    KindBusinessRule,
	}
	ErrLimitNotReset = &DomainError{
		Code:    "LIMIT_NOT_RESET",
		Message: "card limits were not reset for the current period",
		Kind:    KindBusinessRule,
	}
	// ErrTransient marks storage or lock failures. Nothing was committed,
	// so the whole operation may be retried from the top.
	ErrTransient = &DomainError{
		Code:    "TRANSIENT_FAILURE",
		Message: "temporary storage failure, retry the operation",
		Kind:    KindInfrastructure,
	}
)

// InsufficientFundsError carries the requested amount and the available balance.
type InsufficientFundsError struct {
	CardID    uuid.UUID
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on card %s: requested %s, available %s",
		e.CardID, e.Requested.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientFundsError) Is(target error) bool { return ErrInsufficientFunds.Is(target) }
func (e *InsufficientFundsError) ErrorCode() string    { return ErrInsufficientFunds.Code }
func (e *InsufficientFundsError) ErrorKind() Kind      { return ErrInsufficientFunds.Kind }
func (e *InsufficientFundsError) ErrorDetails() map[string]interface{} {
	return map[string]interface{}{
		"card_id":   e.CardID.String(),
		"requested": e.Requested.StringFixed(2),
		"available": e.Available.StringFixed(2),
	}
}

// LimitWindow is the rolling window a ceiling applies to.
type LimitWindow string

// LimitOperation is the kind of outflow a ceiling restricts.
type LimitOperation string

const (
	WindowDaily   LimitWindow = "daily"
	WindowMonthly LimitWindow = "monthly"

	OperationWithdrawal LimitOperation = "withdrawal"
	OperationTransfer   LimitOperation = "transfer"
)

// LimitExceededError reports a ceiling that the attempted amount would overshoot.
type LimitExceededError struct {
	Window    LimitWindow
	Operation LimitOperation
	Limit     decimal.Decimal
	Attempted decimal.Decimal
	Used      decimal.Decimal
}

func (e *LimitExceededError) sentinel() *DomainError {
	switch {
	case e.Window == WindowDaily && e.Operation == OperationWithdrawal:
		return ErrDailyWithdrawalLimitExceeded
	case e.Window == WindowMonthly && e.Operation == OperationWithdrawal:
		return ErrMonthlyWithdrawalLimitExceeded
	case e.Window == WindowDaily && e.Operation == OperationTransfer:
		return ErrDailyTransferLimitExceeded
	default:
		return ErrMonthlyTransferLimitExceeded
	}
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s: limit %s, attempted %s, already used %s",
		e.sentinel().Message, e.Limit.StringFixed(2), e.Attempted.StringFixed(2), e.Used.StringFixed(2))
}

func (e *LimitExceededError) Is(target error) bool { return e.sentinel().Is(target) }
func (e *LimitExceededError) ErrorCode() string    { return e.sentinel().Code }
func (e *LimitExceededError) ErrorKind() Kind      { return KindBusinessRule }
func (e *LimitExceededError) ErrorDetails() map[string]interface{} {
	return map[string]interface{}{
		"limit":     e.Limit.StringFixed(2),
		"attempted": e.Attempted.StringFixed(2),
		"used":      e.Used.StringFixed(2),
	}
}

// LimitNotResetError reports a card whose usage counters belong to a past period.
type LimitNotResetError struct {
	CardID    uuid.UUID
	ResetDate time.Time
	Today     time.Time
}

func (e *LimitNotResetError) Error() string {
	return fmt.Sprintf("limits of card %s last reset on %s, today is %s",
		e.CardID, e.ResetDate.Format("2006-01-02"), e.Today.Format("2006-01-02"))
}

func (e *LimitNotResetError) Is(target error) bool { return ErrLimitNotReset.Is(target) }
func (e *LimitNotResetError) ErrorCode() string    { return ErrLimitNotReset.Code }
func (e *LimitNotResetError) ErrorKind() Kind      { return ErrLimitNotReset.Kind }
func (e *LimitNotResetError) ErrorDetails() map[string]interface{} {
	return map[string]interface{}{
		"card_id":    e.CardID.String(),
		"reset_date": e.ResetDate.Format("2006-01-02"),
		"today":      e.Today.Format("2006-01-02"),
	}
}

// Transient wraps a storage or locking failure of the named operation.
func Transient(op string, err error) error {
	return ErrTransient.Wrap(fmt.Errorf("%s: %w", op, err))
}
