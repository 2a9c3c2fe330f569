package auth

import (
	"testing"
	"time"

	apperrors "cardledger/internal/errors"
	"cardledger/internal/models"
	"cardledger/internal/repositories"
	"cardledger/internal/utils"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementTokenVersion(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockUserRepository) List(offset, limit int) ([]*models.User, int64, error) {
	args := m.Called(offset, limit)
	return args.Get(0).([]*models.User), args.Get(1).(int64), args.Error(2)
}

func setup(t *testing.T) (*MockUserRepository, Service) {
	t.Helper()
	repo := new(MockUserRepository)
	tokens, err := utils.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	return repo, NewService(repo, tokens, log)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestRegister(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, svc := setup(t)
		repo.On("Create", mock.MatchedBy(func(u *models.User) bool {
			return u.Email == "jane@example.com" && u.Role == models.RoleUser &&
				bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("Secret123")) == nil
		})).Return(nil).Once()

		user, err := svc.Register(RegisterInput{Email: " Jane@Example.com ", Password: "Secret123", Name: "Jane"})
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", user.Email)
		repo.AssertExpectations(t)
	})

	t.Run("weak password", func(t *testing.T) {
		repo, svc := setup(t)
		_, err := svc.Register(RegisterInput{Email: "jane@example.com", Password: "short", Name: "Jane"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCardData)
		assert.Equal(t, "must be at least 8 characters long", apperrors.DetailsOf(err)["password"])
		repo.AssertNotCalled(t, "Create", mock.Anything)
	})

	t.Run("email taken", func(t *testing.T) {
		repo, svc := setup(t)
		repo.On("Create", mock.Anything).Return(repositories.ErrEmailTaken).Once()
		_, err := svc.Register(RegisterInput{Email: "jane@example.com", Password: "Secret123", Name: "Jane"})
		assert.ErrorIs(t, err, repositories.ErrEmailTaken)
	})
}

func TestLogin(t *testing.T) {
	user := func(t *testing.T) *models.User {
		u := &models.User{Email: "jane@example.com", Password: hashed(t, "Secret123"), Role: models.RoleAdmin, TokenVersion: 3}
		u.ID = 5
		return u
	}

	t.Run("success", func(t *testing.T) {
		repo, svc := setup(t)
		repo.On("GetByEmail", "jane@example.com").Return(user(t), nil).Once()
		repo.On("Update", mock.AnythingOfType("*models.User")).Return(nil).Once()

		session, err := svc.Login("jane@example.com", "Secret123")
		require.NoError(t, err)
		assert.NotEmpty(t, session.AccessToken)
		assert.NotNil(t, session.User.LastLoginAt)

		repo.On("GetByID", uint(5)).Return(user(t), nil).Once()
		claims, err := svc.Verify(session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(5), claims.UserID)
		assert.True(t, claims.Principal().IsAdmin())
	})

	t.Run("unknown email", func(t *testing.T) {
		repo, svc := setup(t)
		repo.On("GetByEmail", "nobody@example.com").Return(nil, repositories.ErrUserNotFound).Once()
		_, err := svc.Login("nobody@example.com", "Secret123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo, svc := setup(t)
		repo.On("GetByEmail", "jane@example.com").Return(user(t), nil).Once()
		_, err := svc.Login("jane@example.com", "Wrong1234")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		repo.AssertNotCalled(t, "Update", mock.Anything)
	})

	t.Run("database failure is not masked", func(t *testing.T) {
		repo, svc := setup(t)
		repo.On("GetByEmail", "jane@example.com").Return(nil, repositories.ErrDatabaseOperation).Once()
		_, err := svc.Login("jane@example.com", "Secret123")
		assert.ErrorIs(t, err, repositories.ErrDatabaseOperation)
	})
}

func TestVerify_RevokedAfterLogout(t *testing.T) {
	repo, svc := setup(t)
	u := &models.User{Email: "jane@example.com", Password: hashed(t, "Secret123"), Role: models.RoleUser, TokenVersion: 1}
	u.ID = 5
	repo.On("GetByEmail", "jane@example.com").Return(u, nil).Once()
	repo.On("Update", mock.Anything).Return(nil).Once()

	session, err := svc.Login("jane@example.com", "Secret123")
	require.NoError(t, err)

	repo.On("IncrementTokenVersion", uint(5)).Return(nil).Once()
	require.NoError(t, svc.Logout(5))

	bumped := *u
	bumped.TokenVersion = 2
	repo.On("GetByID", uint(5)).Return(&bumped, nil).Once()

	_, err = svc.Verify(session.AccessToken)
	assert.ErrorIs(t, err, ErrStaleToken)
}

func TestChangePassword(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		new     string
		wantErr error
	}{
		{"success", "Secret123", "Better456", nil},
		{"wrong old password", "Nope12345", "Better456", ErrInvalidCredentials},
		{"weak new password", "Secret123", "weak", apperrors.ErrInvalidCardData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, svc := setup(t)
			u := &models.User{Email: "jane@example.com", Password: hashed(t, "Secret123"), TokenVersion: 1}
			u.ID = 5
			repo.On("GetByID", uint(5)).Return(u, nil).Once()
			if tt.wantErr == nil {
				repo.On("Update", mock.MatchedBy(func(u *models.User) bool {
					return u.TokenVersion == 2 && bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(tt.new)) == nil
				})).Return(nil).Once()
			}

			err := svc.ChangePassword(5, tt.old, tt.new)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}

	t.Run("cached user without hash is reloaded", func(t *testing.T) {
		repo, svc := setup(t)
		cached := &models.User{Email: "jane@example.com", TokenVersion: 1}
		cached.ID = 5
		full := &models.User{Email: "jane@example.com", Password: hashed(t, "Secret123"), TokenVersion: 1}
		full.ID = 5
		repo.On("GetByID", uint(5)).Return(cached, nil).Once()
		repo.On("GetByEmail", "jane@example.com").Return(full, nil).Once()
		repo.On("Update", mock.Anything).Return(nil).Once()

		require.NoError(t, svc.ChangePassword(5, "Secret123", "Better456"))
		repo.AssertExpectations(t)
	})
}
