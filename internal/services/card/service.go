// Package card issues cards and manages their lifecycle outside of money
// movement: status changes, deletion and owner-scoped reads.
package card

import (
	"context"
	"time"

	apperrors "cardledger/internal/errors"
	"cardledger/internal/models"
	"cardledger/internal/money"
	"cardledger/internal/repositories"
	"cardledger/internal/utils"
	"cardledger/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const initialDepositDescription = "Initial deposit"

// CreateCardInput is what a caller supplies to issue a card.
type CreateCardInput struct {
	CardHolder     string
	Type           models.CardType
	DurationYears  int
	InitialBalance decimal.Decimal
}

// UserLookup is the part of the user repository issuance needs.
type UserLookup interface {
	GetByID(id uint) (*models.User, error)
}

// NumberCipher seals card numbers before they are stored.
type NumberCipher interface {
	Encrypt(number string) (string, error)
}

type Service interface {
	CreateCard(ctx context.Context, userID uint, in CreateCardInput) (*models.Card, error)
	GetCard(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Card, error)
	GetCardBalance(ctx context.Context, p models.Principal, id uuid.UUID) (decimal.Decimal, error)
	UpdateCardStatus(ctx context.Context, id uuid.UUID, status models.CardStatus) (*models.Card, error)
	DeleteCard(ctx context.Context, id uuid.UUID) error
}

type service struct {
	cards  repositories.CardRepository
	users  UserLookup
	cipher NumberCipher
	cache  repositories.CardCache
	clock  func() time.Time
	log    logrus.FieldLogger
}

// NewService creates a card service. cache and clock may be nil.
func NewService(
	cards repositories.CardRepository,
	users UserLookup,
	cipher NumberCipher,
	cache repositories.CardCache,
	clock func() time.Time,
	log logrus.FieldLogger,
) Service {
	if cards == nil {
		panic("card repository is required")
	}
	if users == nil {
		panic("user lookup is required")
	}
	if cipher == nil {
		panic("card cipher is required")
	}
	if cache == nil {
		cache = repositories.NoopCardCache{}
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{cards: cards, users: users, cipher: cipher, cache: cache, clock: clock, log: log}
}

func validateInput(in CreateCardInput) error {
	v := validation.New()
	v.CardHolder("card_holder", in.CardHolder)
	v.Required("card_type", string(in.Type))
	v.IntRange("duration_years", in.DurationYears, validation.MinCardDurationYears, validation.MaxCardDurationYears)
	v.PositiveAmount("initial_balance", in.InitialBalance)
	return v.Err()
}

func (s *service) CreateCard(ctx context.Context, userID uint, in CreateCardInput) (*models.Card, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	balance, err := money.Normalize(in.InitialBalance)
	if err != nil {
		return nil, apperrors.InvalidAmount(in.InitialBalance.String())
	}

	if _, err := s.users.GetByID(userID); err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.UserNotFound(userID)
		}
		return nil, apperrors.Transient("lookup card owner", err)
	}

	number, err := utils.GenerateCardNumber(in.Type)
	if err != nil {
		return nil, apperrors.Transient("generate card number", err)
	}
	sealed, err := s.cipher.Encrypt(number)
	if err != nil {
		return nil, apperrors.Transient("encrypt card number", err)
	}

	now := s.clock()
	card := &models.Card{
		ID:              uuid.New(),
		UserID:          userID,
		MaskedNumber:    utils.MaskCardNumber(number),
		EncryptedNumber: sealed,
		CardHolder:      in.CardHolder,
		ExpiryDate:      utils.ExpiryDate(now, in.DurationYears),
		Type:            in.Type,
		Status:          models.CardStatusActive,
		Balance:         balance,
		Limit:           models.DefaultCardLimit(now),
	}

	err = s.cards.ExecuteInTransaction(ctx, func(tx repositories.CardRepository) error {
		if err := tx.Create(ctx, card); err != nil {
			return err
		}
		return tx.CreateTransaction(ctx, models.NewTransaction(
			card.ID, balance, models.TransactionTypeDeposit, initialDepositDescription, now))
	})
	if err != nil {
		return nil, passOrTransient("create card", err)
	}

	s.log.WithFields(logrus.Fields{
		"card_id": card.ID,
		"user_id": userID,
		"type":    card.Type,
	}).Info("card issued")
	return card, nil
}

func (s *service) GetCard(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Card, error) {
	card, err := s.cache.GetCard(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("card_id", id).Warn("card cache read failed")
		card = nil
	}
	if card == nil {
		card, err = s.cards.GetByID(ctx, id)
		if err != nil {
			return nil, passOrTransient("get card", err)
		}
		if err := s.cache.SetCard(ctx, card); err != nil {
			s.log.WithError(err).WithField("card_id", id).Warn("card cache write failed")
		}
	}

	if !p.IsAdmin() && card.UserID != p.UserID {
		return nil, apperrors.CardNotFound(id)
	}
	return card, nil
}

func (s *service) GetCardBalance(ctx context.Context, p models.Principal, id uuid.UUID) (decimal.Decimal, error) {
	card, err := s.GetCard(ctx, p, id)
	if err != nil {
		return decimal.Zero, err
	}
	return card.Balance, nil
}

// UpdateCardStatus moves a card to status. EXPIRED is terminal.
func (s *service) UpdateCardStatus(ctx context.Context, id uuid.UUID, status models.CardStatus) (*models.Card, error) {
	if !status.Valid() {
		return nil, apperrors.InvalidCardData("status", "unknown card status")
	}

	var updated *models.Card
	err := s.cards.ExecuteInTransaction(ctx, func(tx repositories.CardRepository) error {
		card, err := tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if card.Status == models.CardStatusExpired {
			return apperrors.CardOperation(id, "cannot change status of expired card")
		}
		card.Status = status
		if err := tx.Update(ctx, card); err != nil {
			return err
		}
		updated = card
		return nil
	})
	if err != nil {
		return nil, passOrTransient("update card status", err)
	}

	s.invalidate(ctx, id)
	s.log.WithFields(logrus.Fields{"card_id": id, "status": status}).Info("card status changed")
	return updated, nil
}

// DeleteCard removes a card whose balance is exactly zero. Its transaction
// records are kept.
func (s *service) DeleteCard(ctx context.Context, id uuid.UUID) error {
	err := s.cards.ExecuteInTransaction(ctx, func(tx repositories.CardRepository) error {
		card, err := tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !card.Balance.IsZero() {
			return apperrors.CardOperation(id, "cannot delete card with non-zero balance")
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return passOrTransient("delete card", err)
	}

	s.invalidate(ctx, id)
	s.log.WithField("card_id", id).Info("card deleted")
	return nil
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.InvalidateCards(ctx, id); err != nil {
		s.log.WithError(err).WithField("card_id", id).Warn("failed to invalidate card cache")
	}
}

func passOrTransient(op string, err error) error {
	if apperrors.KindOf(err) != "" {
		return err
	}
	return apperrors.Transient(op, err)
}
