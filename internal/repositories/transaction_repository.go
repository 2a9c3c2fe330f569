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
	"gorm.io/gorm"
)

// TransactionFilter narrows transaction listings. A nil CardIDs slice means
// every card; From is inclusive and Before exclusive.
type TransactionFilter struct {
	CardIDs []uuid.UUID
	Type    models.TransactionType
	From    *time.Time
	Before  *time.Time
}

// TransactionRepository is the read side of the append-only ledger.
// Records are written through CardRepository.CreateTransaction so they
// commit together with the card they move money on.
type TransactionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, filter TransactionFilter, p pagination.Pagination) ([]models.Transaction, int64, error)
	ListByTransferRef(ctx context.Context, ref uuid.UUID) ([]models.Transaction, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.TransactionNotFound(id)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionFilter, p pagination.Pagination) ([]models.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{})
	if filter.CardIDs != nil {
		query = query.Where("card_id IN ?", filter.CardIDs)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.From != nil {
		query = query.Where("timestamp >= ?", *filter.From)
	}
	if filter.Before != nil {
		query = query.Where("timestamp < ?", *filter.Before)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var txs []models.Transaction
	if err := query.
		Order("timestamp DESC").
		Limit(p.Limit).
		Offset(p.Offset).
		Find(&txs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, total, nil
}

func (r *transactionRepository) ListByTransferRef(ctx context.Context, ref uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := r.db.WithContext(ctx).
		Where("transfer_ref = ?", ref).
		Order("amount ASC").
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to get transfer legs: %w", err)
	}
	return txs, nil
}
