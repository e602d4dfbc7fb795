package lease

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/janhq/room-bridge/internal/domain/room"
)

const keyPrefix = "room-bridge:lease:"

// ErrLeaseLost is returned when a held lease could not be extended.
var ErrLeaseLost = errors.New("room lease lost")

type mutex interface {
	TryLockContext(ctx context.Context) error
	ExtendContext(ctx context.Context) (bool, error)
	UnlockContext(ctx context.Context) (bool, error)
}

// RedisLease keeps a room single-active across replicas with a redsync mutex.
// It implements room.Lease.
type RedisLease struct {
	client   redis.UniversalClient
	newMutex func(name string) mutex
	log      zerolog.Logger
}

// NewRedisLease connects to Redis and creates a lease provider whose locks
// expire after ttl unless extended.
func NewRedisLease(redisURL string, ttl time.Duration, log zerolog.Logger) (*RedisLease, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("Redis URL must be provided")
	}

	opts, err := buildUniversalOptions(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	log = log.With().Str("component", "room-lease").Logger()
	if len(opts.Addrs) > 1 && opts.DB != 0 {
		log.Warn().Msg("Ignoring non-zero DB when using Redis Cluster configuration")
		opts.DB = 0
	}

	client := redis.NewUniversalClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	rs := redsync.New(goredis.NewPool(client))
	log.Info().Dur("ttl", ttl).Msg("room lease enabled")
	return &RedisLease{
		client: client,
		newMutex: func(name string) mutex {
			return rs.NewMutex(name, redsync.WithExpiry(ttl), redsync.WithTries(1))
		},
		log: log,
	}, nil
}

// LeaseKey returns the Redis key guarding a room.
func LeaseKey(roomID string) string {
	return keyPrefix + roomID
}

// Acquire takes the lease of a room. A lease held by another replica yields
// room.ErrLeaseHeld.
func (l *RedisLease) Acquire(ctx context.Context, roomID string) (room.Lock, error) {
	m := l.newMutex(LeaseKey(roomID))
	if err := m.TryLockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, fmt.Errorf("%w: %s", room.ErrLeaseHeld, roomID)
		}
		return nil, fmt.Errorf("lock room %s: %w", roomID, err)
	}
	l.log.Debug().Str("room_id", roomID).Msg("room lease acquired")
	return &lock{roomID: roomID, mutex: m}, nil
}

// Ping checks the Redis connection.
func (l *RedisLease) Ping(ctx context.Context) error {
	if l.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (l *RedisLease) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}

type lock struct {
	roomID string
	mutex  mutex
}

func (k *lock) Extend(ctx context.Context) error {
	ok, err := k.mutex.ExtendContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLeaseLost, k.roomID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeaseLost, k.roomID)
	}
	return nil
}

func (k *lock) Release(ctx context.Context) error {
	if _, err := k.mutex.UnlockContext(ctx); err != nil {
		return fmt.Errorf("unlock room %s: %w", k.roomID, err)
	}
	return nil
}

func buildUniversalOptions(raw string) (*redis.UniversalOptions, error) {
	parts := strings.Split(raw, ",")
	opts := &redis.UniversalOptions{}

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if !strings.Contains(part, "://") {
			opts.Addrs = append(opts.Addrs, part)
			continue
		}

		parsed, err := redis.ParseURL(part)
		if err != nil {
			return nil, err
		}
		opts.Addrs = append(opts.Addrs, parsed.Addr)
		if opts.Username == "" {
			opts.Username = parsed.Username
		}
		if opts.Password == "" {
			opts.Password = parsed.Password
		}
		if opts.DB == 0 {
			opts.DB = parsed.DB
		}
		if opts.TLSConfig == nil {
			opts.TLSConfig = parsed.TLSConfig
		}
	}

	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("no Redis addresses provided")
	}

	return opts, nil
}
