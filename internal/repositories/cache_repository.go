package repositories

import (
	"context"

	"cardledger/internal/models"

	"github.com/google/uuid"
)

// CardCache is the read-through cache in front of card lookups.
// GetCard returns (nil, nil) on a miss.
type CardCache interface {
	GetCard(ctx context.Context, id uuid.UUID) (*models.Card, error)
	SetCard(ctx context.Context, card *models.Card) error
	InvalidateCards(ctx context.Context, ids ...uuid.UUID) error
}

// NoopCardCache never stores anything.
type NoopCardCache struct{}

func (NoopCardCache) GetCard(context.Context, uuid.UUID) (*models.Card, error) { return nil, nil }
func (NoopCardCache) SetCard(context.Context, *models.Card) error              { return nil }
func (NoopCardCache) InvalidateCards(context.Context, ...uuid.UUID) error      { return nil }
