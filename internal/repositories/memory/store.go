// Package memory is an in-process implementation of the card and
// transaction repositories. Writes made inside ExecuteInTransaction are
// staged and applied only when the callback succeeds, and row locks are
// real per-card mutexes held until the unit ends, so it reproduces the
// locking and atomicity behavior of the postgres repositories.
package memory

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"

	apperrors "cardledger/internal/errors"
	"cardledger/internal/models"
	"cardledger/internal/repositories"
	"cardledger/internal/utils/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrCommitFailed is what a CommitHook typically returns in tests.
var ErrCommitFailed = errors.New("commit failed")

// Store holds committed state shared by the repositories it hands out.
type Store struct {
	mu    sync.Mutex
	cards map[uuid.UUID]models.Card
	txs   []models.Transaction
	locks map[uuid.UUID]*sync.Mutex

	// CommitHook, when set, runs before staged writes are applied. A
	// non-nil result aborts the unit as a storage failure would.
	CommitHook func() error
}

func NewStore() *Store {
	return &Store{
		cards: make(map[uuid.UUID]models.Card),
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Cards returns a card repository over s.
func (s *Store) Cards() repositories.CardRepository {
	return &cardRepository{store: s}
}

// Transactions returns a transaction repository over s.
func (s *Store) Transactions() repositories.TransactionRepository {
	return &transactionRepository{store: s}
}

// Put stores a card directly, bypassing any unit.
func (s *Store) Put(card models.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	s.cards[card.ID] = cloneCard(card)
}

// Card returns the committed state of a card.
func (s *Store) Card(id uuid.UUID) (models.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	return cloneCard(c), ok
}

// TransactionsOf returns the committed records of a card in insertion order.
func (s *Store) TransactionsOf(cardID uuid.UUID) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, t := range s.txs {
		if t.CardID == cardID {
			out = append(out, t)
		}
	}
	return out
}

// TransactionCount returns the number of committed records.
func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txs)
}

func (s *Store) rowLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

type unit struct {
	cards   map[uuid.UUID]models.Card
	deleted map[uuid.UUID]bool
	txs     []models.Transaction
	held    map[uuid.UUID]*sync.Mutex
}

type cardRepository struct {
	store *Store
	unit  *unit
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	if r.unit != nil {
		r.unit.cards[card.ID] = cloneCard(*card)
		return nil
	}
	r.store.Put(*card)
	return nil
}

func (r *cardRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	if r.unit != nil {
		if r.unit.deleted[id] {
			return nil, apperrors.CardNotFound(id)
		}
		if c, ok := r.unit.cards[id]; ok {
			c = cloneCard(c)
			return &c, nil
		}
	}
	c, ok := r.store.Card(id)
	if !ok {
		return nil, apperrors.CardNotFound(id)
	}
	return &c, nil
}

func (r *cardRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	if r.unit == nil {
		return nil, repositories.ErrNotInTransaction
	}
	if _, held := r.unit.held[id]; !held {
		l := r.store.rowLock(id)
		l.Lock()
		r.unit.held[id] = l
	}
	return r.GetByID(ctx, id)
}

func (r *cardRepository) ListByUserID(ctx context.Context, userID uint) ([]models.Card, error) {
	all := r.snapshot()
	var out []models.Card
	for _, c := range all {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *cardRepository) List(ctx context.Context, filter repositories.CardFilter, p pagination.Pagination) ([]models.Card, int64, error) {
	var matched []models.Card
	for _, c := range r.snapshot() {
		if filter.UserID != nil && c.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		matched = append(matched, c)
	}
	return window(matched, p), int64(len(matched)), nil
}

func (r *cardRepository) ListIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, c := range r.snapshot() {
		if bytes.Compare(c.ID[:], after[:]) > 0 {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *cardRepository) Update(ctx context.Context, card *models.Card) error {
	if r.unit != nil {
		r.unit.cards[card.ID] = cloneCard(*card)
		return nil
	}
	if _, ok := r.store.Card(card.ID); !ok {
		return apperrors.CardNotFound(card.ID)
	}
	r.store.Put(*card)
	return nil
}

func (r *cardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	if r.unit != nil {
		r.unit.deleted[id] = true
		delete(r.unit.cards, id)
		return nil
	}
	r.store.mu.Lock()
	delete(r.store.cards, id)
	r.store.mu.Unlock()
	return nil
}

func (r *cardRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if r.unit != nil {
		r.unit.txs = append(r.unit.txs, *tx)
		return nil
	}
	r.store.mu.Lock()
	r.store.txs = append(r.store.txs, *tx)
	r.store.mu.Unlock()
	return nil
}

func (r *cardRepository) ExecuteInTransaction(ctx context.Context, fn func(repositories.CardRepository) error) error {
	if r.unit != nil {
		return fn(r)
	}
	u := &unit{
		cards:   make(map[uuid.UUID]models.Card),
		deleted: make(map[uuid.UUID]bool),
		held:    make(map[uuid.UUID]*sync.Mutex),
	}
	defer func() {
		for _, l := range u.held {
			l.Unlock()
		}
	}()

	if err := fn(&cardRepository{store: r.store, unit: u}); err != nil {
		return err
	}
	if hook := r.store.CommitHook; hook != nil {
		if err := hook(); err != nil {
			return err
		}
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, c := range u.cards {
		r.store.cards[id] = c
	}
	for id := range u.deleted {
		delete(r.store.cards, id)
	}
	r.store.txs = append(r.store.txs, u.txs...)
	return nil
}

// snapshot returns the cards visible to r sorted by id.
func (r *cardRepository) snapshot() []models.Card {
	r.store.mu.Lock()
	merged := make(map[uuid.UUID]models.Card, len(r.store.cards))
	for id, c := range r.store.cards {
		merged[id] = cloneCard(c)
	}
	r.store.mu.Unlock()

	if r.unit != nil {
		for id, c := range r.unit.cards {
			merged[id] = cloneCard(c)
		}
		for id := range r.unit.deleted {
			delete(merged, id)
		}
	}

	out := make([]models.Card, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out
}

type transactionRepository struct {
	store *Store
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.txs {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, apperrors.TransactionNotFound(id)
}

func (r *transactionRepository) List(ctx context.Context, filter repositories.TransactionFilter, p pagination.Pagination) ([]models.Transaction, int64, error) {
	var allowed map[uuid.UUID]bool
	if filter.CardIDs != nil {
		allowed = make(map[uuid.UUID]bool, len(filter.CardIDs))
		for _, id := range filter.CardIDs {
			allowed[id] = true
		}
	}

	r.store.mu.Lock()
	var matched []models.Transaction
	for _, t := range r.store.txs {
		if allowed != nil && !allowed[t.CardID] {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.From != nil && t.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.Before != nil && !t.Timestamp.Before(*filter.Before) {
			continue
		}
		matched = append(matched, t)
	}
	r.store.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return window(matched, p), int64(len(matched)), nil
}

func (r *transactionRepository) ListByTransferRef(ctx context.Context, ref uuid.UUID) ([]models.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Transaction
	for _, t := range r.store.txs {
		if t.TransferRef != nil && *t.TransferRef == ref {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount.LessThan(out[j].Amount) })
	return out, nil
}

func window[T any](items []T, p pagination.Pagination) []T {
	if p.Limit == 0 {
		return items
	}
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

func cloneCard(c models.Card) models.Card {
	c.Limit.DailyWithdrawalLimit = cloneDecimal(c.Limit.DailyWithdrawalLimit)
	c.Limit.MonthlyWithdrawalLimit = cloneDecimal(c.Limit.MonthlyWithdrawalLimit)
	c.Limit.DailyTransferLimit = cloneDecimal(c.Limit.DailyTransferLimit)
	c.Limit.MonthlyTransferLimit = cloneDecimal(c.Limit.MonthlyTransferLimit)
	return c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
