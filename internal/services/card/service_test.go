package card

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "cardledger/internal/errors"
	"cardledger/internal/models"
	"cardledger/internal/money"
	"cardledger/internal/repositories"
	"cardledger/internal/repositories/memory"
	"cardledger/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	owner    = models.Principal{UserID: 1, Roles: []models.Role{models.RoleUser}}
	stranger = models.Principal{UserID: 2, Roles: []models.Role{models.RoleUser}}
	admin    = models.Principal{UserID: 9, Roles: []models.Role{models.RoleAdmin}}

	now = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
)

type fakeUsers map[uint]*models.User

func (f fakeUsers) GetByID(id uint) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetCard(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	args := m.Called(ctx, id)
	card, _ := args.Get(0).(*models.Card)
	return card, args.Error(1)
}

func (m *MockCache) SetCard(ctx context.Context, card *models.Card) error {
	return m.Called(ctx, card).Error(0)
}

func (m *MockCache) InvalidateCards(ctx context.Context, ids ...uuid.UUID) error {
	return m.Called(ctx, ids).Error(0)
}

func newTestService(t *testing.T, cache repositories.CardCache) (Service, *memory.Store, *utils.CardCipher) {
	t.Helper()
	store := memory.NewStore()
	cipher, err := utils.NewCardCipher("test-key")
	require.NoError(t, err)
	users := fakeUsers{1: {Email: "owner@example.com"}}
	svc := NewService(store.Cards(), users, cipher, cache, func() time.Time { return now }, nil)
	return svc, store, cipher
}

func validInput() CreateCardInput {
	return CreateCardInput{
		CardHolder:     "JOHN DOE",
		Type:           models.CardTypeVisa,
		DurationYears:  3,
		InitialBalance: money.MustParse("250.00"),
	}
}

func TestCreateCard(t *testing.T) {
	ctx := context.Background()
	svc, store, cipher := newTestService(t, nil)

	card, err := svc.CreateCard(ctx, 1, validInput())
	require.NoError(t, err)

	assert.Equal(t, uint(1), card.UserID)
	assert.Equal(t, models.CardStatusActive, card.Status)
	assert.True(t, card.Balance.Equal(money.MustParse("250.00")))
	assert.Equal(t, time.Date(2027, 4, 1, 0, 0, 0, 0, time.UTC), card.ExpiryDate)
	assert.Equal(t, models.DateOf(now), card.Limit.ResetDate)
	assert.True(t, card.Limit.DailyWithdrawalLimit.Equal(models.DefaultDailyWithdrawalLimit))
	assert.True(t, card.Limit.MonthlyTransferLimit.Equal(models.DefaultMonthlyTransferLimit))

	assert.True(t, strings.HasPrefix(card.MaskedNumber, "4"))
	assert.Contains(t, card.MaskedNumber, "******")

	number, err := cipher.Decrypt(card.EncryptedNumber)
	require.NoError(t, err)
	assert.True(t, utils.LuhnValid(number))
	assert.Equal(t, utils.MaskCardNumber(number), card.MaskedNumber)

	stored, ok := store.Card(card.ID)
	require.True(t, ok)
	assert.Equal(t, card.MaskedNumber, stored.MaskedNumber)

	txs := store.TransactionsOf(card.ID)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionTypeDeposit, txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(money.MustParse("250.00")))
}

func TestCreateCard_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		userID  uint
		mutate  func(*CreateCardInput)
		wantErr error
	}{
		{"lower-case holder", 1, func(in *CreateCardInput) { in.CardHolder = "john doe" }, apperrors.ErrInvalidCardData},
		{"single name", 1, func(in *CreateCardInput) { in.CardHolder = "JOHN" }, apperrors.ErrInvalidCardData},
		{"duration too long", 1, func(in *CreateCardInput) { in.DurationYears = 6 }, apperrors.ErrInvalidCardData},
		{"duration zero", 1, func(in *CreateCardInput) { in.DurationYears = 0 }, apperrors.ErrInvalidCardData},
		{"zero balance", 1, func(in *CreateCardInput) { in.InitialBalance = money.Zero }, apperrors.ErrInvalidCardData},
		{"sub-cent balance", 1, func(in *CreateCardInput) { in.InitialBalance = decimal.RequireFromString("1.005") }, apperrors.ErrInvalidCardData},
		{"missing type", 1, func(in *CreateCardInput) { in.Type = "" }, apperrors.ErrInvalidCardData},
		{"unknown user", 42, func(in *CreateCardInput) {}, apperrors.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t, nil)
			in := validInput()
			tt.mutate(&in)

			_, err := svc.CreateCard(ctx, tt.userID, in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, store.TransactionCount())
		})
	}
}

func TestCreateCard_CommitFailureIsTransient(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	store.CommitHook = func() error { return memory.ErrCommitFailed }

	_, err := svc.CreateCard(context.Background(), 1, validInput())
	assert.ErrorIs(t, err, apperrors.ErrTransient)
	assert.Zero(t, store.TransactionCount())
}

func seedCard(store *memory.Store, userID uint, status models.CardStatus, balance string) models.Card {
	c := models.Card{
		ID:         uuid.New(),
		UserID:     userID,
		Status:     status,
		Balance:    money.MustParse(balance),
		ExpiryDate: now.AddDate(1, 0, 0),
		Limit:      models.DefaultCardLimit(now),
	}
	store.Put(c)
	return c
}

func TestUpdateCardStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		from    models.CardStatus
		to      models.CardStatus
		wantErr error
	}{
		{"block active", models.CardStatusActive, models.CardStatusBlocked, nil},
		{"unblock", models.CardStatusBlocked, models.CardStatusActive, nil},
		{"expire", models.CardStatusActive, models.CardStatusExpired, nil},
		{"expired is terminal", models.CardStatusExpired, models.CardStatusActive, apperrors.ErrCardOperation},
		{"unknown status", models.CardStatusActive, models.CardStatus("LOST"), apperrors.ErrInvalidCardData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t, nil)
			c := seedCard(store, 1, tt.from, "0.00")

			updated, err := svc.UpdateCardStatus(ctx, c.ID, tt.to)
			stored, _ := store.Card(c.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, updated.Status)
			assert.Equal(t, tt.to, stored.Status)
		})
	}

	t.Run("missing card", func(t *testing.T) {
		svc, _, _ := newTestService(t, nil)
		_, err := svc.UpdateCardStatus(ctx, uuid.New(), models.CardStatusBlocked)
		assert.ErrorIs(t, err, apperrors.ErrCardNotFound)
	})
}

func TestDeleteCard(t *testing.T) {
	ctx := context.Background()

	t.Run("zero balance", func(t *testing.T) {
		svc, store, _ := newTestService(t, nil)
		c := seedCard(store, 1, models.CardStatusActive, "0.00")
		require.NoError(t, store.Cards().CreateTransaction(ctx,
			models.NewTransaction(c.ID, money.MustParse("5.00"), models.TransactionTypeDeposit, "", now)))

		require.NoError(t, svc.DeleteCard(ctx, c.ID))
		_, ok := store.Card(c.ID)
		assert.False(t, ok)
		assert.Len(t, store.TransactionsOf(c.ID), 1, "history is kept")
	})

	t.Run("non-zero balance", func(t *testing.T) {
		svc, store, _ := newTestService(t, nil)
		c := seedCard(store, 1, models.CardStatusActive, "0.01")

		err := svc.DeleteCard(ctx, c.ID)
		assert.ErrorIs(t, err, apperrors.ErrCardOperation)
		_, ok := store.Card(c.ID)
		assert.True(t, ok)
	})

	t.Run("missing card", func(t *testing.T) {
		svc, _, _ := newTestService(t, nil)
		assert.ErrorIs(t, svc.DeleteCard(ctx, uuid.New()), apperrors.ErrCardNotFound)
	})
}

func TestGetCard_Visibility(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, nil)
	c := seedCard(store, 1, models.CardStatusActive, "12.34")

	tests := []struct {
		name    string
		p       models.Principal
		wantErr error
	}{
		{"owner", owner, nil},
		{"admin", admin, nil},
		{"stranger", stranger, apperrors.ErrCardNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance, err := svc.GetCardBalance(ctx, tt.p, c.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, balance.Equal(money.MustParse("12.34")))
		})
	}
}

func TestGetCard_ReadThroughCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss populates", func(t *testing.T) {
		cache := new(MockCache)
		svc, store, _ := newTestService(t, cache)
		c := seedCard(store, 1, models.CardStatusActive, "1.00")

		cache.On("GetCard", ctx, c.ID).Return(nil, nil).Once()
		cache.On("SetCard", ctx, mock.MatchedBy(func(card *models.Card) bool { return card.ID == c.ID })).Return(nil).Once()

		_, err := svc.GetCard(ctx, owner, c.ID)
		require.NoError(t, err)
		cache.AssertExpectations(t)
	})

	t.Run("hit skips repository", func(t *testing.T) {
		cache := new(MockCache)
		svc, _, _ := newTestService(t, cache)
		cached := &models.Card{ID: uuid.New(), UserID: 1, Balance: money.MustParse("3.00")}

		cache.On("GetCard", ctx, cached.ID).Return(cached, nil).Once()

		got, err := svc.GetCard(ctx, owner, cached.ID)
		require.NoError(t, err)
		assert.Same(t, cached, got)
		cache.AssertNotCalled(t, "SetCard", mock.Anything, mock.Anything)
	})

	t.Run("cache failure falls back", func(t *testing.T) {
		cache := new(MockCache)
		svc, store, _ := newTestService(t, cache)
		c := seedCard(store, 1, models.CardStatusActive, "1.00")

		cache.On("GetCard", ctx, c.ID).Return(nil, errors.New("redis down")).Once()
		cache.On("SetCard", ctx, mock.Anything).Return(errors.New("redis down")).Once()

		got, err := svc.GetCard(ctx, owner, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
	})

	t.Run("status change invalidates", func(t *testing.T) {
		cache := new(MockCache)
		svc, store, _ := newTestService(t, cache)
		c := seedCard(store, 1, models.CardStatusActive, "1.00")

		cache.On("InvalidateCards", ctx, []uuid.UUID{c.ID}).Return(nil).Once()

		_, err := svc.UpdateCardStatus(ctx, c.ID, models.CardStatusBlocked)
		require.NoError(t, err)
		cache.AssertExpectations(t)
	})
}

func TestNewService_PanicsWithoutDependencies(t *testing.T) {
	store := memory.NewStore()
	cipher, _ := utils.NewCardCipher("k")

	assert.Panics(t, func() { NewService(nil, fakeUsers{}, cipher, nil, nil, nil) })
	assert.Panics(t, func() { NewService(store.Cards(), nil, cipher, nil, nil, nil) })
	assert.Panics(t, func() { NewService(store.Cards(), fakeUsers{}, nil, nil, nil, nil) })
}
