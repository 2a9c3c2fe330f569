package limit

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "cardledger/internal/errors"
	"cardledger/internal/models"
	"cardledger/internal/repositories"
	"cardledger/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type service struct {
	repo   repositories.CardRepository
	cache  repositories.CardCache
	config Config
	log    logrus.FieldLogger
}

// NewService creates a new limit tracker. cache may be nil.
func NewService(repo repositories.CardRepository, cache repositories.CardCache, config Config, log logrus.FieldLogger) Service {
	if repo == nil {
		panic("repo is required")
	}

	if cache == nil {
		cache = repositories.NoopCardCache{}
	}
	if config.Policy != PolicyStrict {
		config.Policy = PolicyLazy
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.Clock == nil {
		config.Clock = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &service{
		repo:   repo,
		cache:  cache,
		config: config,
		log:    log.WithField("component", "limit"),
	}
}

func (s *service) Today() time.Time {
	return models.DateOf(s.config.Clock())
}

func (s *service) Prepare(card *models.Card, today time.Time) error {
	if !IsStale(card, today) {
		return nil
	}
	if s.config.Policy == PolicyStrict {
		return &apperrors.LimitNotResetError{
			CardID:    card.ID,
			ResetDate: models.DateOf(card.Limit.ResetDate),
			Today:     models.DateOf(today),
		}
	}
	Refresh(card, today)
	return nil
}

func (s *service) CheckDailyWithdrawal(card *models.Card, amount decimal.Decimal) error {
	return check(apperrors.WindowDaily, apperrors.OperationWithdrawal,
		card.Limit.DailyWithdrawalLimit, card.Limit.DailyWithdrawalUsed, amount)
}

func (s *service) CheckMonthlyWithdrawal(card *models.Card, amount decimal.Decimal) error {
	return check(apperrors.WindowMonthly, apperrors.OperationWithdrawal,
		card.Limit.MonthlyWithdrawalLimit, card.Limit.MonthlyWithdrawalUsed, amount)
}

func (s *service) CheckDailyTransfer(card *models.Card, amount decimal.Decimal) error {
	return check(apperrors.WindowDaily, apperrors.OperationTransfer,
		card.Limit.DailyTransferLimit, card.Limit.DailyTransferUsed, amount)
}

func (s *service) CheckMonthlyTransfer(card *models.Card, amount decimal.Decimal) error {
	return check(apperrors.WindowMonthly, apperrors.OperationTransfer,
		card.Limit.MonthlyTransferLimit, card.Limit.MonthlyTransferUsed, amount)
}

// check fails when used + attempted would overshoot a non-nil ceiling.
func check(window apperrors.LimitWindow, op apperrors.LimitOperation, ceiling *decimal.Decimal, used, attempted decimal.Decimal) error {
	if ceiling == nil {
		return nil
	}
	if used.Add(attempted).GreaterThan(*ceiling) {
		return &apperrors.LimitExceededError{
			Window:    window,
			Operation: op,
			Limit:     *ceiling,
			Attempted: attempted,
			Used:      used,
		}
	}
	return nil
}

func (s *service) AddWithdrawalUsage(card *models.Card, amount decimal.Decimal) {
	card.Limit.DailyWithdrawalUsed = card.Limit.DailyWithdrawalUsed.Add(amount)
	card.Limit.MonthlyWithdrawalUsed = card.Limit.MonthlyWithdrawalUsed.Add(amount)
}

func (s *service) AddTransferUsage(card *models.Card, amount decimal.Decimal) {
	card.Limit.DailyTransferUsed = card.Limit.DailyTransferUsed.Add(amount)
	card.Limit.MonthlyTransferUsed = card.Limit.MonthlyTransferUsed.Add(amount)
}

func (s *service) SetCardLimits(ctx context.Context, cardID uuid.UUID, limits Limits) (*models.Card, error) {
	v := validation.New()
	v.OptionalPositiveAmount("daily_withdrawal_limit", limits.DailyWithdrawal)
	v.OptionalPositiveAmount("monthly_withdrawal_limit", limits.MonthlyWithdrawal)
	v.OptionalPositiveAmount("daily_transfer_limit", limits.DailyTransfer)
	v.OptionalPositiveAmount("monthly_transfer_limit", limits.MonthlyTransfer)
	if err := v.Err(); err != nil {
		return nil, err
	}

	var updated *models.Card
	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.CardRepository) error {
		card, err := tx.GetByIDForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		limits.Apply(card)
		if err := tx.Update(ctx, card); err != nil {
			return err
		}
		updated = card
		return nil
	})
	if err != nil {
		return nil, classify("set card limits", err)
	}

	s.invalidate(ctx, cardID)
	s.log.WithField("card_id", cardID).Info("card limits replaced")
	return updated, nil
}

func (s *service) ResetDailyLimits(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, "daily")
}

// ResetMonthlyLimits runs the same normalization as the daily pass. Refresh
// already zeroes monthly counters when the month rolled over, so whichever
// pass reaches a card first on the 1st does the work and the other is a no-op.
func (s *service) ResetMonthlyLimits(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, "monthly")
}

// sweep walks every card in id order, batch by batch, refreshing each one
// in its own short locked unit so it never holds more than one row lock
// and never overwrites usage consumed by an in-flight money operation.
func (s *service) sweep(ctx context.Context, name string) (SweepResult, error) {
	var (
		result SweepResult
		errs   []error
		after  = uuid.Nil
	)
	today := s.Today()
	log := s.log.WithFields(logrus.Fields{"sweep": name, "today": today.Format("2006-01-02")})

	for {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		ids, err := s.repo.ListIDsAfter(ctx, after, s.config.BatchSize)
		if err != nil {
			errs = append(errs, apperrors.Transient("list cards", err))
			break
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			result.Scanned++
			changed, err := s.refreshOne(ctx, id, today)
			switch {
			case errors.Is(err, apperrors.ErrCardNotFound):
				// deleted since the batch was listed
			case err != nil:
				result.Failed++
				errs = append(errs, fmt.Errorf("card %s: %w", id, err))
				log.WithError(err).WithField("card_id", id).Warn("limit reset failed")
			case changed:
				result.Reset++
			}
		}
		after = ids[len(ids)-1]
	}

	log.WithFields(logrus.Fields{
		"scanned": result.Scanned,
		"reset":   result.Reset,
		"failed":  result.Failed,
	}).Info("limit reset sweep finished")

	return result, errors.Join(errs...)
}

func (s *service) refreshOne(ctx context.Context, id uuid.UUID, today time.Time) (bool, error) {
	changed := false
	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.CardRepository) error {
		card, err := tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !Refresh(card, today) {
			return nil
		}
		changed = true
		return tx.Update(ctx, card)
	})
	if err != nil {
		return false, classify("reset limits", err)
	}
	if changed {
		s.invalidate(ctx, id)
	}
	return changed, nil
}

// invalidate drops the cached copy of a card after a committed change.
func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.InvalidateCards(ctx, id); err != nil {
		s.log.WithError(err).WithField("card_id", id).Warn("failed to invalidate card cache")
	}
}

// classify passes domain errors through and reports anything else as a
// transient storage failure.
func classify(op string, err error) error {
	if apperrors.KindOf(err) != "" {
		return err
	}
	return apperrors.Transient(op, err)
}
