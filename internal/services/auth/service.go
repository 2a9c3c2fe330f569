package auth

import (
	"errors"
	"strings"
	"time"

	"cardledger/internal/models"
	"cardledger/internal/repositories"
	"cardledger/internal/utils"
	"cardledger/internal/validation"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStaleToken         = errors.New("token has been revoked")
)

// RegisterInput is the self-service sign-up payload. New accounts are
// always plain users.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Session is the result of a successful login.
type Session struct {
	User        *models.User
	AccessToken string
	ExpiresAt   time.Time
}

type Service interface {
	Register(input RegisterInput) (*models.User, error)
	Login(email, password string) (*Session, error)
	Logout(userID uint) error
	ChangePassword(userID uint, oldPassword, newPassword string) error
	// Verify parses an access token and rejects it when the user has since
	// logged out or changed password.
	Verify(token string) (*models.UserClaims, error)
}

type service struct {
	userRepo repositories.UserRepository
	tokens   *utils.TokenIssuer
	log      logrus.FieldLogger
}

func NewService(userRepo repositories.UserRepository, tokens *utils.TokenIssuer, log logrus.FieldLogger) Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		userRepo: userRepo,
		tokens:   tokens,
		log:      log,
	}
}

func (s *service) Register(input RegisterInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	v := validation.New()
	v.Email("email", input.Email)
	v.Required("name", input.Name)
	v.MaxLength("name", input.Name, 100)
	v.Password("password", input.Password)
	if err := v.Err(); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &models.User{
		Email:        input.Email,
		Password:     string(hashedPassword),
		Name:         input.Name,
		Role:         models.RoleUser,
		TokenVersion: 1,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

func (s *service) Login(email, password string) (*Session, error) {
	user, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.log.WithField("email", email).Info("login failed: unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.log.WithField("user_id", user.ID).Info("login failed: incorrect password")
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.GenerateAccessToken(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		Permissions:  models.GetDefaultPermissions(user.Role),
	})
	if err != nil {
		s.log.WithError(err).Error("error generating tokens")
		return nil, errors.New("error generating tokens")
	}

	loginAt := time.Now()
	user.LastLoginAt = &loginAt
	if err := s.userRepo.Update(user); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to record login time")
	}

	return &Session{User: user, AccessToken: token, ExpiresAt: expires}, nil
}

func (s *service) Logout(userID uint) error {
	return s.userRepo.IncrementTokenVersion(userID)
}

func (s *service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	// cached users carry no hash
	if user.Password == "" {
		if user, err = s.userRepo.GetByEmail(user.Email); err != nil {
			return err
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	v := validation.New()
	v.Password("new_password", newPassword)
	if err := v.Err(); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash password")
	}

	user.Password = string(hashedPassword)
	user.TokenVersion++ // Invalidate existing tokens

	return s.userRepo.Update(user)
}

func (s *service) Verify(token string) (*models.UserClaims, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrStaleToken
	}
	claims.Role = user.Role
	return claims, nil
}
