package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tempcover/backend/internal/domain/shared"
	"github.com/tempcover/backend/internal/domain/vehicle"
	"github.com/tempcover/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Stores bundles the cache-backed components the server needs
type Stores struct {
	Idempotency shared.IdempotencyStore
	// Vehicles is nil when Redis is disabled
	Vehicles vehicle.Cache
	client   *redis.Client
}

// Close releases the idempotency store and the Redis connection
func (s *Stores) Close() error {
	err := s.Idempotency.Close()
	if s.client != nil {
		if cerr := s.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Ping checks Redis when it is in use
func (s *Stores) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Factory creates stores based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	vehicleTTL            time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// in-memory stores instead of failing startup. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// WithVehicleTTL sets how long vehicle lookups are cached
func WithVehicleTTL(ttl time.Duration) FactoryOption {
	return func(f *Factory) {
		f.vehicleTTL = ttl
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds Redis-backed stores when Redis is enabled and reachable,
// otherwise in-memory idempotency with no vehicle cache.
func (f *Factory) Create(ctx context.Context) (*Stores, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory idempotency store")
		return f.inMemory(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
			"Duplicate webhook deliveries across instances will rely on database keys only.",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Error(err))
		return f.inMemory(), nil
	}

	f.logger.Info("Using Redis idempotency store and vehicle cache",
		zap.String("addr", f.redisConfig.Addr()))
	return &Stores{
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Vehicles:    NewRedisVehicleCache(client, f.vehicleTTL),
		client:      client,
	}, nil
}

func (f *Factory) inMemory() *Stores {
	return &Stores{Idempotency: NewInMemoryIdempotencyStore()}
}
