package ledger

import (
	"bytes"
	"context"
	"fmt"
	"time"

	apperrors "cardledger/internal/errors"
	"cardledger/internal/models"
	"cardledger/internal/repositories"
	"cardledger/internal/services/limit"
	"cardledger/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Operation names used in logs and metrics.
const (
	opWithdraw = "withdraw"
	opDeposit  = "deposit"
	opTransfer = "transfer"
)

// DefaultOperationTimeout bounds one operation when Config leaves it unset.
const DefaultOperationTimeout = 30 * time.Second

// Service defines the money movement operations on cards.
type Service interface {
	Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawalResult, error)
	Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}

type service struct {
	repo    repositories.CardRepository
	limits  limit.Service
	cache   repositories.CardCache
	config  Config
	metrics MetricsCollector
	log     logrus.FieldLogger
}

// NewService creates a new ledger service
func NewService(
	repo repositories.CardRepository,
	limits limit.Service,
	cache repositories.CardCache,
	config Config,
	metrics MetricsCollector,
	log logrus.FieldLogger,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if limits == nil {
		panic("limit service is required")
	}

	if cache == nil {
		cache = repositories.NoopCardCache{}
	}
	if config.OperationTimeout == 0 {
		config.OperationTimeout = DefaultOperationTimeout
	}
	if config.Clock == nil {
		config.Clock = func() time.Time { return time.Now().UTC() }
	}
	// Metrics is optional, create no-op collector if nil
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &service{
		repo:    repo,
		limits:  limits,
		cache:   cache,
		config:  config,
		metrics: metrics,
		log:     log.WithField("component", "ledger"),
	}
}

func (s *service) Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawalResult, error) {
	start := time.Now()
	now := s.config.Clock()
	today := models.DateOf(now)

	var (
		result     *WithdrawalResult
		oldBalance decimal.Decimal
	)
	err := s.atomically(ctx, func(tx repositories.CardRepository) error {
		card, err := s.lockCard(ctx, tx, req.Principal, req.CardID)
		if err != nil {
			return err
		}
		if err := validation.CardIsValidForTransaction(card, req.Amount, today); err != nil {
			return err
		}
		if err := checkFunds(card, req.Amount); err != nil {
			return err
		}

		if err := s.limits.Prepare(card, today); err != nil {
			return err
		}
		if err := s.limits.CheckDailyWithdrawal(card, req.Amount); err != nil {
			return err
		}
		if err := s.limits.CheckMonthlyWithdrawal(card, req.Amount); err != nil {
			return err
		}
		s.limits.AddWithdrawalUsage(card, req.Amount)

		oldBalance = card.Balance
		card.Balance = card.Balance.Sub(req.Amount)

		record := models.NewTransaction(card.ID, req.Amount, models.TransactionTypeWithdrawal,
			describe(req.Description, "Cash withdrawal"), now)
		if err := tx.CreateTransaction(ctx, record); err != nil {
			return err
		}
		if err := tx.Update(ctx, card); err != nil {
			return err
		}

		result = &WithdrawalResult{
			TransactionID:    record.ID,
			CardMaskedNumber: card.MaskedNumber,
			Amount:           req.Amount,
			NewBalance:       card.Balance,
			Status:           models.TransactionStatusCompleted,
		}
		return nil
	})

	fields := logrus.Fields{
		"card_id": req.CardID,
		"user_id": req.Principal.UserID,
		"amount":  req.Amount.StringFixed(2),
	}
	if err != nil {
		return nil, s.fail(opWithdraw, err, fields)
	}

	s.committed(ctx, opWithdraw, start, fields, req.CardID)
	s.metrics.RecordBalanceChange(req.CardID, oldBalance, result.NewBalance)
	s.metrics.RecordTransaction(models.TransactionTypeWithdrawal, req.Amount)
	return result, nil
}

func (s *service) Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	start := time.Now()
	now := s.config.Clock()
	today := models.DateOf(now)

	var (
		result     *DepositResult
		oldBalance decimal.Decimal
	)
	err := s.atomically(ctx, func(tx repositories.CardRepository) error {
		card, err := s.lockCard(ctx, tx, req.Principal, req.CardID)
		if err != nil {
			return err
		}
		if err := validation.CardIsValidForTransaction(card, req.Amount, today); err != nil {
			return err
		}

		oldBalance = card.Balance
		card.Balance = card.Balance.Add(req.Amount)

		record := models.NewTransaction(card.ID, req.Amount, models.TransactionTypeDeposit,
			describe(req.Description, "Deposit"), now)
		if err := tx.CreateTransaction(ctx, record); err != nil {
			return err
		}
		if err := tx.Update(ctx, card); err != nil {
			return err
		}

		result = &DepositResult{
			TransactionID: record.ID,
			Amount:        req.Amount,
			NewBalance:    card.Balance,
		}
		return nil
	})

	fields := logrus.Fields{
		"card_id": req.CardID,
		"user_id": req.Principal.UserID,
		"amount":  req.Amount.StringFixed(2),
	}
	if err != nil {
		return nil, s.fail(opDeposit, err, fields)
	}

	s.committed(ctx, opDeposit, start, fields, req.CardID)
	s.metrics.RecordBalanceChange(req.CardID, oldBalance, result.NewBalance)
	s.metrics.RecordTransaction(models.TransactionTypeDeposit, req.Amount)
	return result, nil
}

func (s *service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	start := time.Now()
	now := s.config.Clock()
	today := models.DateOf(now)

	var (
		result         *TransferResult
		fromOld, toOld decimal.Decimal
	)
	err := s.atomically(ctx, func(tx repositories.CardRepository) error {
		from, to, err := s.lockPair(ctx, tx, req.Principal, req.FromCardID, req.ToCardID)
		if err != nil {
			return err
		}

		if err := validation.CardIsValidForTransaction(from, req.Amount, today); err != nil {
			return err
		}
		if err := validation.CardIsValidForTransaction(to, req.Amount, today); err != nil {
			return err
		}
		if err := validation.ValidateNotSameCard(from, to); err != nil {
			return err
		}
		if err := validation.ValidateSameOwner(from, to); err != nil {
			return err
		}
		if err := checkFunds(from, req.Amount); err != nil {
			return err
		}

		// Only the source card's transfer limits apply; inbound money is unconstrained.
		if err := s.limits.Prepare(from, today); err != nil {
			return err
		}
		if err := s.limits.CheckDailyTransfer(from, req.Amount); err != nil {
			return err
		}
		if err := s.limits.CheckMonthlyTransfer(from, req.Amount); err != nil {
			return err
		}
		s.limits.AddTransferUsage(from, req.Amount)

		fromOld, toOld = from.Balance, to.Balance
		from.Balance = from.Balance.Sub(req.Amount)
		to.Balance = to.Balance.Add(req.Amount)

		ref := uuid.New()
		out := models.NewTransaction(from.ID, req.Amount, models.TransactionTypeTransferOut,
			describeTransfer(req.Description, "to", to.MaskedNumber), now)
		out.TransferRef = &ref
		in := models.NewTransaction(to.ID, req.Amount, models.TransactionTypeTransferIn,
			describeTransfer(req.Description, "from", from.MaskedNumber), now)
		in.TransferRef = &ref

		if err := tx.CreateTransaction(ctx, out); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, in); err != nil {
			return err
		}
		if err := tx.Update(ctx, from); err != nil {
			return err
		}
		if err := tx.Update(ctx, to); err != nil {
			return err
		}

		result = &TransferResult{
			TransferID:     out.ID,
			TransferRef:    ref,
			FromMasked:     from.MaskedNumber,
			ToMasked:       to.MaskedNumber,
			Amount:         req.Amount,
			FromNewBalance: from.Balance,
			ToNewBalance:   to.Balance,
			Status:         models.TransactionStatusCompleted,
		}
		return nil
	})

	fields := logrus.Fields{
		"from_card_id": req.FromCardID,
		"to_card_id":   req.ToCardID,
		"user_id":      req.Principal.UserID,
		"amount":       req.Amount.StringFixed(2),
	}
	if err != nil {
		return nil, s.fail(opTransfer, err, fields)
	}

	s.committed(ctx, opTransfer, start, fields, req.FromCardID, req.ToCardID)
	s.metrics.RecordBalanceChange(req.FromCardID, fromOld, result.FromNewBalance)
	s.metrics.RecordBalanceChange(req.ToCardID, toOld, result.ToNewBalance)
	s.metrics.RecordTransaction(models.TransactionTypeTransferOut, req.Amount)
	return result, nil
}

// atomically runs fn in one transaction bounded by the operation timeout.
func (s *service) atomically(ctx context.Context, fn func(repositories.CardRepository) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()
	return s.repo.ExecuteInTransaction(ctx, fn)
}

// lockCard locks the card and checks the principal may operate on it.
func (s *service) lockCard(ctx context.Context, tx repositories.CardRepository, p models.Principal, id uuid.UUID) (*models.Card, error) {
	card, err := tx.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, tx, p, card); err != nil {
		return nil, err
	}
	return card, nil
}

// lockPair locks both cards in ascending id order and returns them in
// request order.
func (s *service) lockPair(ctx context.Context, tx repositories.CardRepository, p models.Principal, fromID, toID uuid.UUID) (*models.Card, *models.Card, error) {
	first, second := fromID, toID
	if bytes.Compare(first[:], second[:]) > 0 {
		first, second = second, first
	}

	a, err := tx.GetByIDForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := tx.GetByIDForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}

	from, to := a, b
	if first != fromID {
		from, to = b, a
	}
	if err := authorize(ctx, tx, p, from); err != nil {
		return nil, nil, err
	}
	if err := authorize(ctx, tx, p, to); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// authorize lets admins through and otherwise requires the card to be one of
// the principal's own.
func authorize(ctx context.Context, tx repositories.CardRepository, p models.Principal, card *models.Card) error {
	if p.IsAdmin() {
		return nil
	}
	owned, err := tx.ListByUserID(ctx, p.UserID)
	if err != nil {
		return err
	}
	return validation.ValidateCardOwner(card, owned)
}

func checkFunds(card *models.Card, amount decimal.Decimal) error {
	if card.Balance.LessThan(amount) {
		return &apperrors.InsufficientFundsError{
			CardID:    card.ID,
			Requested: amount,
			Available: card.Balance,
		}
	}
	return nil
}

func describe(description, fallback string) string {
	if description != "" {
		return description
	}
	return fallback
}

func describeTransfer(description, direction, counterparty string) string {
	if description != "" {
		return fmt.Sprintf("%s (%s card %s)", description, direction, counterparty)
	}
	return fmt.Sprintf("Transfer %s card %s", direction, counterparty)
}

// fail classifies err, records it and logs it. Domain rejections are
// returned as is; anything else means the unit did not commit and is
// reported as transient.
func (s *service) fail(op string, err error, fields logrus.Fields) error {
	if apperrors.KindOf(err) == "" {
		err = apperrors.Transient(op, err)
	}
	code := apperrors.CodeOf(err)
	s.metrics.RecordError(op, code)
	s.metrics.RecordOperationResult(op, "failure")

	entry := s.log.WithFields(fields).WithField("operation", op).WithField("code", code)
	if apperrors.KindOf(err) == apperrors.KindInfrastructure {
		entry.WithError(err).Error("operation failed")
	} else {
		entry.Info("operation rejected")
	}
	return err
}

// committed runs the post-commit bookkeeping shared by all operations.
func (s *service) committed(ctx context.Context, op string, start time.Time, fields logrus.Fields, cardIDs ...uuid.UUID) {
	if err := s.cache.InvalidateCards(ctx, cardIDs...); err != nil {
		s.log.WithError(err).WithFields(fields).Warn("failed to invalidate card cache")
	}
	s.metrics.RecordOperationDuration(op, time.Since(start))
	s.metrics.RecordOperationResult(op, "success")
	s.log.WithFields(fields).WithField("operation", op).Info("operation completed")
}
