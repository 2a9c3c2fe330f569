package validation

import (
	"time"

	apperrors "cardledger/internal/errors"
	"cardledger/internal/models"
	"cardledger/internal/money"

	"github.com/shopspring/decimal"
)

// CardIsValidForTransaction gates a card's participation in a money operation.
// Checks run in order: status, amount, expiry.
func CardIsValidForTransaction(card *models.Card, amount decimal.Decimal, today time.Time) error {
	if card.Status != models.CardStatusActive {
		return apperrors.CardNotActive(card.ID, string(card.Status))
	}
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if card.IsExpiredOn(today) {
		return apperrors.CardExpired(card.ID, card.ExpiryDate)
	}
	return nil
}

// ValidateAmount rejects non-positive amounts and amounts finer than a cent.
func ValidateAmount(amount decimal.Decimal) error {
	if !money.IsPositive(amount) || !money.HasValidScale(amount) {
		return apperrors.InvalidAmount(amount.String())
	}
	return nil
}

// ValidateNotSameCard fails when both sides of an operation are one card.
func ValidateNotSameCard(a, b *models.Card) error {
	if a.ID == b.ID {
		return apperrors.SameCardOperation(a.ID)
	}
	return nil
}

// ValidateSameOwner fails when the cards belong to different users.
func ValidateSameOwner(a, b *models.Card) error {
	if a.UserID != b.UserID {
		return apperrors.CrossOwnerOperation(a.ID, b.ID)
	}
	return nil
}

// ValidateCardOwner fails with CARD_NOT_FOUND when card is not among ownerCards,
// so a user never learns whether somebody else's card exists.
func ValidateCardOwner(card *models.Card, ownerCards []models.Card) error {
	for i := range ownerCards {
		if ownerCards[i].ID == card.ID {
			return nil
		}
	}
	return apperrors.CardNotFound(card.ID)
}
