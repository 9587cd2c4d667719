package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nguyentranbao-ct/livechat/internal/config"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect builds a client from cfg without pinging; callers decide when the
// server must be reachable.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	opts := options.Client().
		SetAppName("livechat").
		SetDirect(cfg.Direct).
		SetHosts(cfg.Hosts).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(30 * time.Second).
		SetTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthDB,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("init mongo client: %w", err)
	}

	return &DB{
		Client:   client,
		Database: client.Database(cfg.Database),
	}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Client.Ping(ctx, nil)
}

func (db *DB) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}
