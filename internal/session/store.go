package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zimid/booking-server-go/internal/model"
)

// Store persists USSD sessions with an idle expiry.
type Store interface {
	// Get returns nil without error when the session is absent or expired.
	Get(ctx context.Context, id string) (*model.UssdSession, error)
	// Set writes the session and restarts its TTL.
	Set(ctx context.Context, s *model.UssdSession) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

const DefaultTTL = 5 * time.Minute

var ErrInvalidStore = errors.New("invalid session store configuration")

const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// NewStore builds the store for driver. The redis driver needs client.
func NewStore(driver string, client *redis.Client, ttl time.Duration) (Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	switch driver {
	case DriverRedis:
		if client == nil {
			return nil, ErrInvalidStore
		}
		return NewRedisStore(client, ttl), nil
	case DriverMemory:
		return NewMemoryStore(ttl), nil
	default:
		return nil, ErrInvalidStore
	}
}
