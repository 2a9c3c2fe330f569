package user

import (
	"context"
	"testing"

	apperrors "cardledger/internal/errors"
	"cardledger/internal/models"
	"cardledger/internal/repositories"
	"cardledger/internal/repositories/memory"
	"cardledger/internal/utils/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserRepository struct {
	mock.Mock
	repositories.UserRepository
}

func (m *MockUserRepository) GetByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(offset, limit int) ([]*models.User, int64, error) {
	args := m.Called(offset, limit)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func newService(repo repositories.UserRepository, store *memory.Store) Service {
	logger, _ := test.NewNullLogger()
	return NewService(repo, store.Cards(), nil, logger)
}

func TestGetByID(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		wantErr error
	}{
		{"found", nil, nil},
		{"missing", repositories.ErrUserNotFound, apperrors.ErrUserNotFound},
		{"database down", repositories.ErrDatabaseOperation, apperrors.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			if tt.repoErr != nil {
				repo.On("GetByID", uint(3)).Return(nil, tt.repoErr)
			} else {
				repo.On("GetByID", uint(3)).Return(&models.User{Email: "a@b.io"}, nil)
			}

			user, err := newService(repo, memory.NewStore()).GetByID(3)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@b.io", user.Email)
		})
	}
}

func TestList(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("List", 20, 10).Return([]*models.User{{Email: "a@b.io"}}, int64(21), nil)

	page, err := newService(repo, memory.NewStore()).List(pagination.New(3, 10))
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(21), page.Pagination.Total)
	repo.AssertExpectations(t)
}

func putCard(store *memory.Store, userID uint, balance string) uuid.UUID {
	id := uuid.New()
	store.Put(models.Card{
		ID:      id,
		UserID:  userID,
		Status:  models.CardStatusActive,
		Balance: decimal.RequireFromString(balance),
	})
	return id
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes zero-balance cards then the user", func(t *testing.T) {
		store := memory.NewStore()
		first := putCard(store, 3, "0")
		second := putCard(store, 3, "0.00")
		other := putCard(store, 4, "10.00")

		repo := new(MockUserRepository)
		repo.On("GetByID", uint(3)).Return(&models.User{}, nil)
		repo.On("Delete", uint(3)).Return(nil).Once()

		require.NoError(t, newService(repo, store).Delete(ctx, 3))

		_, ok := store.Card(first)
		assert.False(t, ok)
		_, ok = store.Card(second)
		assert.False(t, ok)
		_, ok = store.Card(other)
		assert.True(t, ok)
		repo.AssertExpectations(t)
	})

	t.Run("refuses while a card holds money", func(t *testing.T) {
		store := memory.NewStore()
		empty := putCard(store, 3, "0")
		funded := putCard(store, 3, "0.01")

		repo := new(MockUserRepository)
		repo.On("GetByID", uint(3)).Return(&models.User{}, nil)

		err := newService(repo, store).Delete(ctx, 3)
		assert.ErrorIs(t, err, apperrors.ErrCardOperation)
		assert.Equal(t, funded.String(), apperrors.DetailsOf(err)["card_id"])

		// nothing was removed
		_, ok := store.Card(empty)
		assert.True(t, ok)
		_, ok = store.Card(funded)
		assert.True(t, ok)
		repo.AssertNotCalled(t, "Delete", mock.Anything)
	})

	t.Run("user without cards", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetByID", uint(3)).Return(&models.User{}, nil)
		repo.On("Delete", uint(3)).Return(nil).Once()

		require.NoError(t, newService(repo, memory.NewStore()).Delete(ctx, 3))
		repo.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetByID", uint(9)).Return(nil, repositories.ErrUserNotFound)

		err := newService(repo, memory.NewStore()).Delete(ctx, 9)
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("card storage failure is transient and keeps the user", func(t *testing.T) {
		store := memory.NewStore()
		card := putCard(store, 3, "0")
		store.CommitHook = func() error { return memory.ErrCommitFailed }

		repo := new(MockUserRepository)
		repo.On("GetByID", uint(3)).Return(&models.User{}, nil)

		err := newService(repo, store).Delete(ctx, 3)
		assert.ErrorIs(t, err, apperrors.ErrTransient)
		_, ok := store.Card(card)
		assert.True(t, ok)
		repo.AssertNotCalled(t, "Delete", mock.Anything)
	})

	t.Run("user row failure is transient", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("GetByID", uint(3)).Return(&models.User{}, nil)
		repo.On("Delete", uint(3)).Return(repositories.ErrDatabaseOperation)

		err := newService(repo, memory.NewStore()).Delete(ctx, 3)
		assert.ErrorIs(t, err, apperrors.ErrTransient)
	})
}

func TestNewServicePanicsWithoutRepositories(t *testing.T) {
	store := memory.NewStore()
	assert.Panics(t, func() { NewService(nil, store.Cards(), nil, nil) })
	assert.Panics(t, func() { NewService(new(MockUserRepository), nil, nil, nil) })
}
