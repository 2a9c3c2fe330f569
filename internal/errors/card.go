package errors

import (
	"time"

	"github.com/google/uuid"
)

var (
	ErrCardNotFound = &DomainError{
		Code:    "CARD_NOT_FOUND",
		Message: "card not found",
		Kind:    KindNotFound,
	}
	ErrTransactionNotFound = &DomainError{
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
		Kind:    KindNotFound,
	}
	ErrUserNotFound = &DomainError{
		Code:    "USER_NOT_FOUND",
		Message: "user not found",
		Kind:    KindNotFound,
	}
	ErrCardNotActive = &DomainError{
		Code:    "CARD_NOT_ACTIVE",
		Message: "card is not active",
		Kind:    KindPrecondition,
	}
	ErrCardExpired = &DomainError{
		Code:    "CARD_EXPIRED",
		Message: "card has expired",
		Kind:    KindPrecondition,
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "amount must be positive with at most two fractional digits",
		Kind:    KindPrecondition,
	}
	ErrSameCardOperation = &DomainError{
		Code:    "SAME_CARD_OPERATION",
		Message: "operation between the same card is not allowed",
		Kind:    KindPrecondition,
	}
	ErrCrossOwnerOperation = &DomainError{
		Code:    "CROSS_OWNER_OPERATION",
		Message: "operation between cards of different owners is not allowed",
		Kind:    KindPrecondition,
	}
	ErrInvalidCardData = &DomainError{
		Code:    "INVALID_CARD_DATA",
		Message: "invalid card data",
		Kind:    KindPrecondition,
	}
	ErrCardOperation = &DomainError{
		Code:    "CARD_OPERATION_NOT_ALLOWED",
		Message: "card operation not allowed",
		Kind:    KindBusinessRule,
	}
)

// CardNotFound reports an unknown card or one the principal may not see.
func CardNotFound(id uuid.UUID) error {
	return ErrCardNotFound.With(map[string]interface{}{"card_id": id.String()})
}

// TransactionNotFound reports an unknown or invisible transaction.
func TransactionNotFound(id uuid.UUID) error {
	return ErrTransactionNotFound.With(map[string]interface{}{"transaction_id": id.String()})
}

// UserNotFound reports an unknown user.
func UserNotFound(id uint) error {
	return ErrUserNotFound.With(map[string]interface{}{"user_id": id})
}

// CardNotActive reports a card whose status forbids money movement.
func CardNotActive(id uuid.UUID, status string) error {
	return ErrCardNotActive.With(map[string]interface{}{
		"card_id": id.String(),
		"status":  status,
	})
}

// CardExpired reports a card past its expiry date.
func CardExpired(id uuid.UUID, expiry time.Time) error {
	return ErrCardExpired.With(map[string]interface{}{
		"card_id":     id.String(),
		"expiry_date": expiry.Format("2006-01-02"),
	})
}

// InvalidAmount reports a non-positive or over-precise amount.
func InvalidAmount(amount string) error {
	return ErrInvalidAmount.With(map[string]interface{}{"amount": amount})
}

// SameCardOperation reports a transfer from a card to itself.
func SameCardOperation(id uuid.UUID) error {
	return ErrSameCardOperation.With(map[string]interface{}{"card_id": id.String()})
}

// CrossOwnerOperation reports a transfer between cards held by different users.
func CrossOwnerOperation(from, to uuid.UUID) error {
	return ErrCrossOwnerOperation.With(map[string]interface{}{
		"from_card_id": from.String(),
		"to_card_id":   to.String(),
	})
}

// InvalidCardData reports a rejected card attribute.
func InvalidCardData(field, reason string) error {
	return ErrInvalidCardData.With(map[string]interface{}{
		"field":  field,
		"reason": reason,
	})
}

// CardOperation reports a card management action that the card's state forbids.
func CardOperation(id uuid.UUID, reason string) error {
	return ErrCardOperation.With(map[string]interface{}{
		"card_id": id.String(),
		"reason":  reason,
	})
}
