package user

import (
	"bytes"
	"context"
	"errors"
	"sort"

	apperrors "cardledger/internal/errors"
	"cardledger/internal/models"
	"cardledger/internal/repositories"
	"cardledger/internal/utils/pagination"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserPage is one page of users for the admin listing.
type UserPage struct {
	Items      []*models.User
	Pagination pagination.Pagination
}

type Service interface {
	GetByID(id uint) (*models.User, error)
	List(page pagination.Pagination) (*UserPage, error)
	// Delete removes a user and their cards. It is refused while any of the
	// cards holds a non-zero balance. Transaction records are kept.
	Delete(ctx context.Context, id uint) error
}

type service struct {
	repo  repositories.UserRepository
	cards repositories.CardRepository
	cache repositories.CardCache
	log   logrus.FieldLogger
}

// NewService creates a user service. cache and log may be nil.
func NewService(repo repositories.UserRepository, cards repositories.CardRepository, cache repositories.CardCache, log logrus.FieldLogger) Service {
	if repo == nil {
		panic("user repository is required")
	}
	if cards == nil {
		panic("card repository is required")
	}
	if cache == nil {
		cache = repositories.NoopCardCache{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		repo:  repo,
		cards: cards,
		cache: cache,
		log:   log,
	}
}

func (s *service) GetByID(id uint) (*models.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, userError("get user", id, err)
	}
	return user, nil
}

func (s *service) List(page pagination.Pagination) (*UserPage, error) {
	users, total, err := s.repo.List(page.Offset, page.Limit)
	if err != nil {
		return nil, apperrors.Transient("list users", err)
	}
	page.Total = total
	return &UserPage{Items: users, Pagination: page}, nil
}

// Delete locks every card of the user in ascending id order and removes
// them in one unit once all balances are zero. The user row goes after that
// unit commits, so a failure there leaves a user with no cards and the
// delete can simply be repeated.
func (s *service) Delete(ctx context.Context, id uint) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}

	var removed []uuid.UUID
	err := s.cards.ExecuteInTransaction(ctx, func(tx repositories.CardRepository) error {
		owned, err := tx.ListByUserID(ctx, id)
		if err != nil {
			return err
		}
		sort.Slice(owned, func(i, j int) bool {
			return bytes.Compare(owned[i].ID[:], owned[j].ID[:]) < 0
		})

		for _, c := range owned {
			card, err := tx.GetByIDForUpdate(ctx, c.ID)
			if err != nil {
				return err
			}
			if !card.Balance.IsZero() {
				return apperrors.CardOperation(card.ID, "cannot delete user while a card holds a non-zero balance")
			}
		}

		removed = removed[:0]
		for _, c := range owned {
			if err := tx.Delete(ctx, c.ID); err != nil {
				return err
			}
			removed = append(removed, c.ID)
		}
		return nil
	})
	if err != nil {
		if apperrors.KindOf(err) != "" {
			return err
		}
		return apperrors.Transient("delete user cards", err)
	}

	if len(removed) > 0 {
		if err := s.cache.InvalidateCards(ctx, removed...); err != nil {
			s.log.WithError(err).WithField("user_id", id).Warn("failed to invalidate card cache")
		}
	}

	if err := s.repo.Delete(id); err != nil {
		return userError("delete user", id, err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": id,
		"cards":   len(removed),
	}).Info("user deleted")
	return nil
}

func userError(op string, id uint, err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return apperrors.UserNotFound(id)
	}
	return apperrors.Transient(op, err)
}
