package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cardledger/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultCardTTL = time.Minute
	// DefaultCardFenceTTL bounds how long after an invalidation a read
	// may still be carrying a copy loaded before the commit.
	DefaultCardFenceTTL = 10 * time.Second
)

// fillCard stores a card unless its fence key is present.
var fillCard = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

type CacheService struct {
	client   *redis.Client
	ttl      time.Duration
	cardTTL  time.Duration
	fenceTTL time.Duration
}

// NewCacheService creates a cache. Card entries live for cardTTL, which
// falls back to DefaultCardTTL when not positive.
func NewCacheService(client *redis.Client, defaultTTL, cardTTL time.Duration) *CacheService {
	if cardTTL <= 0 {
		cardTTL = DefaultCardTTL
	}
	return &CacheService{
		client:   client,
		ttl:      defaultTTL,
		cardTTL:  cardTTL,
		fenceTTL: DefaultCardFenceTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

func UserKey(id uint) string           { return GenerateKey("user", "id", id) }
func CardKey(id uuid.UUID) string      { return GenerateKey("card", "id", id) }
func CardFenceKey(id uuid.UUID) string { return GenerateKey("card", "fence", id) }

// Card caching. Cached cards are a read-side convenience only: money
// movement always re-reads the card under a row lock.
//
// Invalidation deletes the entry and sets a short-lived fence. A fill that
// finds the fence is dropped, so a reader holding a copy loaded before the
// commit cannot put it back.
func (s *CacheService) GetCard(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	var card models.Card
	found, err := s.Get(ctx, CardKey(id), &card)
	if err != nil || !found {
		return nil, err
	}
	return &card, nil
}

func (s *CacheService) SetCard(ctx context.Context, card *models.Card) error {
	if card == nil {
		return errors.New("cannot cache nil card")
	}
	data, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	keys := []string{CardKey(card.ID), CardFenceKey(card.ID)}
	return fillCard.Run(ctx, s.client, keys, data, s.cardTTL.Milliseconds()).Err()
}

func (s *CacheService) InvalidateCards(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Set(ctx, CardFenceKey(id), 1, s.fenceTTL)
			pipe.Del(ctx, CardKey(id))
		}
		return nil
	})
	return err
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
