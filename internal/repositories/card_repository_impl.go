package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "cardledger/internal/errors"
	"cardledger/internal/models"
	"cardledger/internal/utils/pagination"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres error codes that indicate a lock could not be obtained.
const (
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
)

type cardRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
	inTx        bool
}

// NewCardRepository creates a card repository. Row lock waits inside
// ExecuteInTransaction are bounded by lockTimeout when it is positive.
func NewCardRepository(db *gorm.DB, lockTimeout time.Duration) CardRepository {
	return &cardRepository{
		db:          db,
		lockTimeout: lockTimeout,
	}
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	if err := r.db.WithContext(ctx).Create(card).Error; err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

func (r *cardRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.CardNotFound(id)
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

func (r *cardRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	if !r.inTx {
		return nil, ErrNotInTransaction
	}

	var card models.Card
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&card, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.CardNotFound(id)
		}
		return nil, fmt.Errorf("failed to lock card %s: %w", id, classifyLockError(err))
	}
	return &card, nil
}

func (r *cardRepository) ListByUserID(ctx context.Context, userID uint) ([]models.Card, error) {
	var cards []models.Card
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("failed to list cards of user %d: %w", userID, err)
	}
	return cards, nil
}

func (r *cardRepository) List(ctx context.Context, filter CardFilter, p pagination.Pagination) ([]models.Card, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Card{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	var cards []models.Card
	if err := query.
		Order("created_at DESC").
		Limit(p.Limit).
		Offset(p.Offset).
		Find(&cards).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, total, nil
}

func (r *cardRepository) ListIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("id > ?", after).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list card ids: %w", err)
	}
	return ids, nil
}

func (r *cardRepository) Update(ctx context.Context, card *models.Card) error {
	if err := r.db.WithContext(ctx).Save(card).Error; err != nil {
		return fmt.Errorf("failed to update card: %w", classifyLockError(err))
	}
	return nil
}

func (r *cardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Card{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete card: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.CardNotFound(id)
	}
	return nil
}

func (r *cardRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *cardRepository) ExecuteInTransaction(ctx context.Context, fn func(CardRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.lockTimeout > 0 {
			// SET does not take bind parameters; the value is an integer.
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}
		txRepo := &cardRepository{db: tx, lockTimeout: r.lockTimeout, inTx: true}
		return fn(txRepo)
	})
}

// classifyLockError maps lock waits that timed out or deadlocked to
// ErrLockNotAvailable, keeping the driver error in the chain.
func classifyLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgDeadlockDetected, pgSerializationFailure:
			return fmt.Errorf("%w: %w", ErrLockNotAvailable, err)
		}
	}
	return err
}
