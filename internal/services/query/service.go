// Package query is the read side of the ledger: card and transaction
// listings scoped to what the acting principal may see.
package query

import (
	"context"
	"time"

	apperrors "cardledger/internal/errors"
	"cardledger/internal/models"
	"cardledger/internal/repositories"
	"cardledger/internal/utils/pagination"

	"github.com/google/uuid"
)

// TransactionFilter selects transactions. From and To are calendar dates,
// both inclusive.
type TransactionFilter struct {
	CardID *uuid.UUID
	Type   models.TransactionType
	From   *time.Time
	To     *time.Time
}

type TransactionPage struct {
	Items      []models.Transaction
	Pagination pagination.Pagination
}

type CardPage struct {
	Items      []models.Card
	Pagination pagination.Pagination
}

type Service interface {
	ListTransactions(ctx context.Context, p models.Principal, filter TransactionFilter, page pagination.Pagination) (*TransactionPage, error)
	GetTransaction(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Transaction, error)
	ListCards(ctx context.Context, p models.Principal, page pagination.Pagination) (*CardPage, error)
	// ListCardsOfUser is the admin view of one user's cards.
	ListCardsOfUser(ctx context.Context, userID uint, page pagination.Pagination) (*CardPage, error)
}

type service struct {
	cards repositories.CardRepository
	txs   repositories.TransactionRepository
}

func NewService(cards repositories.CardRepository, txs repositories.TransactionRepository) Service {
	if cards == nil || txs == nil {
		panic("repositories are required")
	}
	return &service{cards: cards, txs: txs}
}

func (s *service) ListTransactions(ctx context.Context, p models.Principal, filter TransactionFilter, page pagination.Pagination) (*TransactionPage, error) {
	repoFilter := repositories.TransactionFilter{Type: filter.Type}

	if filter.From != nil {
		from := models.DateOf(*filter.From)
		repoFilter.From = &from
	}
	if filter.To != nil {
		before := models.DateOf(*filter.To).AddDate(0, 0, 1)
		repoFilter.Before = &before
	}

	visible, err := s.visibleCardIDs(ctx, p)
	if err != nil {
		return nil, err
	}

	switch {
	case filter.CardID != nil:
		if visible != nil && !contains(visible, *filter.CardID) {
			return nil, apperrors.CardNotFound(*filter.CardID)
		}
		repoFilter.CardIDs = []uuid.UUID{*filter.CardID}
	case visible != nil:
		if len(visible) == 0 {
			return &TransactionPage{Items: []models.Transaction{}, Pagination: page}, nil
		}
		repoFilter.CardIDs = visible
	}

	items, total, err := s.txs.List(ctx, repoFilter, page)
	if err != nil {
		return nil, apperrors.Transient("list transactions", err)
	}
	page.Total = total
	return &TransactionPage{Items: items, Pagination: page}, nil
}

func (s *service) GetTransaction(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Transaction, error) {
	tx, err := s.txs.GetByID(ctx, id)
	if err != nil {
		return nil, passOrTransient("get transaction", err)
	}

	visible, err := s.visibleCardIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	if visible != nil && !contains(visible, tx.CardID) {
		return nil, apperrors.TransactionNotFound(id)
	}
	return tx, nil
}

func (s *service) ListCards(ctx context.Context, p models.Principal, page pagination.Pagination) (*CardPage, error) {
	var filter repositories.CardFilter
	if !p.IsAdmin() {
		filter.UserID = &p.UserID
	}
	return s.listCards(ctx, filter, page)
}

func (s *service) ListCardsOfUser(ctx context.Context, userID uint, page pagination.Pagination) (*CardPage, error) {
	return s.listCards(ctx, repositories.CardFilter{UserID: &userID}, page)
}

func (s *service) listCards(ctx context.Context, filter repositories.CardFilter, page pagination.Pagination) (*CardPage, error) {
	items, total, err := s.cards.List(ctx, filter, page)
	if err != nil {
		return nil, apperrors.Transient("list cards", err)
	}
	page.Total = total
	return &CardPage{Items: items, Pagination: page}, nil
}

// visibleCardIDs returns nil for admins, who see everything, and the ids of
// the principal's own cards otherwise.
func (s *service) visibleCardIDs(ctx context.Context, p models.Principal) ([]uuid.UUID, error) {
	if p.IsAdmin() {
		return nil, nil
	}
	cards, err := s.cards.ListByUserID(ctx, p.UserID)
	if err != nil {
		return nil, apperrors.Transient("list own cards", err)
	}
	ids := make([]uuid.UUID, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func passOrTransient(op string, err error) error {
	if apperrors.KindOf(err) != "" {
		return err
	}
	return apperrors.Transient(op, err)
}
