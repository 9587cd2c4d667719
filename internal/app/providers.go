package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	socketio "github.com/googollee/go-socket.io"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/nguyentranbao-ct/livechat/internal/config"
	"github.com/nguyentranbao-ct/livechat/internal/kafka"
	kafkarepo "github.com/nguyentranbao-ct/livechat/internal/repo/kafka"
	"github.com/nguyentranbao-ct/livechat/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/livechat/internal/repo/redisstore"
	"github.com/nguyentranbao-ct/livechat/internal/repo/socket"
	"github.com/nguyentranbao-ct/livechat/internal/usecase"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
)

const tokenCleanupInterval = time.Hour

func newMongoDB(lc fx.Lifecycle, cfg *config.Config) (*mongodb.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := mongodb.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: db.Ping,
		OnStop:  db.Close,
	})
	return db, nil
}

// newRedis returns nil when redis is disabled; consumers fall back to
// process-local implementations.
func newRedis(lc fx.Lifecycle, cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	rdb := redisstore.NewClient(cfg.Redis)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
		OnStop: func(context.Context) error {
			return rdb.Close()
		},
	})
	return rdb
}

func newRateLimiter(cfg *config.Config, rdb *redis.Client) usecase.RateLimiter {
	if rdb == nil || cfg.Chat.RateLimitMessages <= 0 {
		return redisstore.NoopLimiter{}
	}
	return redisstore.NewFixedWindowLimiter(rdb, cfg.Redis.KeyPrefix, cfg.Chat.RateLimitMessages, cfg.Chat.RateLimitWindow)
}

func newPresenceStore(cfg *config.Config, rdb *redis.Client) usecase.PresenceStore {
	if rdb == nil {
		return redisstore.NewLocalPresence()
	}
	return redisstore.NewPresence(rdb, cfg.Redis.KeyPrefix)
}

func newOrigin() kafkarepo.Origin {
	return kafkarepo.Origin(uuid.NewString())
}

func newPublisher(lc fx.Lifecycle, cfg *config.Config, origin kafkarepo.Origin) (kafkarepo.Publisher, error) {
	publisher, err := kafkarepo.NewPublisher(cfg.Kafka, origin)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}

func newBroadcaster(server *socketio.Server, publisher kafkarepo.Publisher) (*socket.Broadcaster, error) {
	return socket.NewBroadcaster(server, publisher)
}

func asEventBroadcaster(b *socket.Broadcaster) usecase.EventBroadcaster { return b }

func asEmitter(b *socket.Broadcaster) kafka.Emitter { return b }

// RunMigrations ensures indexes before the server accepts traffic.
func RunMigrations(lc fx.Lifecycle, migrations mongodb.MigrationRepository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := migrations.Run(ctx); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			return nil
		},
	})
}

// StartTokenCleanup purges expired and revoked auth tokens periodically.
func StartTokenCleanup(lc fx.Lifecycle, auth usecase.AuthUsecase) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(tokenCleanupInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						n, err := auth.CleanupExpiredTokens(ctx)
						if err != nil {
							log.Warnw(ctx, "token cleanup failed", "error", err)
							continue
						}
						log.Infow(ctx, "expired tokens removed", "count", n)
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
