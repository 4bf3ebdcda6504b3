package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the redis ledger backend.
type RedisConfig struct {
	// Address is the redis server address (e.g. "localhost:6379")
	Address string

	// Password for authentication (optional)
	Password string

	// Database number to use (default 0)
	Database int

	// Prefix is prepended to every ledger key
	Prefix string

	// TTL expires ledger keys (0 = keep forever)
	TTL time.Duration

	// Timeout for redis operations
	Timeout time.Duration
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address: address,
		Prefix:  "trapflow:imported:",
		Timeout: 5 * time.Second,
	}
}

// RedisLedger stores imported filenames as prefixed keys, for
// deployments where several import hosts share one trap feed.
type RedisLedger struct {
	cfg    RedisConfig
	client *redis.Client
}

// OpenRedisLedger connects and verifies the backend.
func OpenRedisLedger(ctx context.Context, cfg RedisConfig) (*RedisLedger, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "trapflow:imported:"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisLedger{cfg: cfg, client: client}, nil
}

// Seen implements Ledger.
func (l *RedisLedger) Seen(ctx context.Context, filename string) (bool, error) {
	n, err := l.client.Exists(ctx, l.cfg.Prefix+filename).Result()
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return n > 0, nil
}

// Mark implements Ledger.
func (l *RedisLedger) Mark(ctx context.Context, filename string) error {
	err := l.client.Set(ctx, l.cfg.Prefix+filename, time.Now().Format(time.RFC3339), l.cfg.TTL).Err()
	if err != nil {
		return fmt.Errorf("ledger mark: %w", err)
	}
	return nil
}

// Close implements Ledger.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
