package repositories

import (
	"context"
	"errors"

	"cardledger/internal/models"
	"cardledger/internal/utils/pagination"

	"github.com/google/uuid"
)

var (
	// ErrLockNotAvailable is returned when a row lock could not be taken
	// within the configured lock timeout, or the database aborted the
	// transaction to break a deadlock.
	ErrLockNotAvailable = errors.New("row lock not available")
	ErrNotInTransaction = errors.New("row locks require a transaction")
)

// CardFilter narrows card listings. Zero values mean no restriction.
type CardFilter struct {
	UserID *uint
	Status models.CardStatus
}

// CardRepository defines card persistence together with the ledger writes
// that must commit in the same unit as a card update.
type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Card, error)
	// GetByIDForUpdate loads the card under an exclusive row lock held until
	// the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Card, error)
	ListByUserID(ctx context.Context, userID uint) ([]models.Card, error)
	List(ctx context.Context, filter CardFilter, p pagination.Pagination) ([]models.Card, int64, error)
	// ListIDsAfter returns up to limit card ids greater than after, ascending.
	ListIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
	Update(ctx context.Context, card *models.Card) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateTransaction(ctx context.Context, tx *models.Transaction) error

	// ExecuteInTransaction runs fn against a repository bound to one
	// database transaction. A non-nil error from fn rolls everything back.
	ExecuteInTransaction(ctx context.Context, fn func(CardRepository) error) error
}
