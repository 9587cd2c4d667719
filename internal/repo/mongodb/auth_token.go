package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

type AuthTokenRepository interface {
	Create(ctx context.Context, token *models.AuthToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.AuthToken, error)
	RevokeToken(ctx context.Context, tokenHash string) error
	RevokeUserTokens(ctx context.Context, userID primitive.ObjectID) (int64, error)
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type authTokenRepo struct {
	baseRepo[models.AuthToken]
}

func NewAuthTokenRepository(db *DB) AuthTokenRepository {
	return &authTokenRepo{
		baseRepo: newBaseRepo[models.AuthToken](db.Database),
	}
}

func (r *authTokenRepo) Create(ctx context.Context, token *models.AuthToken) error {
	token.ID = primitive.NewObjectID()
	token.CreatedAt = time.Now()

	if _, err := r.Insert(ctx, token); err != nil {
		return fmt.Errorf("create auth token: %w", err)
	}
	return nil
}

func (r *authTokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.AuthToken, error) {
	token, err := r.FindOne(ctx, bson.M{"token_hash": tokenHash})
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

func (r *authTokenRepo) RevokeToken(ctx context.Context, tokenHash string) error {
	update := bson.M{"$set": bson.M{"is_revoked": true}}
	if _, err := r.FindOneAndUpdate(ctx, bson.M{"token_hash": tokenHash}, update); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *authTokenRepo) RevokeUserTokens(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	filter := bson.M{"user_id": userID, "is_revoked": false}
	n, err := r.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_revoked": true}})
	if err != nil {
		return 0, fmt.Errorf("revoke user tokens: %w", err)
	}
	return n, nil
}

func (r *authTokenRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"expires_at": bson.M{"$lt": now}},
			bson.M{"is_revoked": true},
		},
	}
	n, err := r.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return n, nil
}
