package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
)

// MigrationRepository creates indexes and runs one-off data fixes, recording
// the outcome of each in the migrations collection.
type MigrationRepository interface {
	Run(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error
	BackfillMessageDefaults(ctx context.Context) error
	GetMigrationStatus(ctx context.Context, migrationName string) (*MigrationStatus, error)
	SetMigrationStatus(ctx context.Context, migrationName string, status string, result *MigrationResult) error
}

type migrationRepo struct {
	db *DB
}

type MigrationStatus struct {
	Name        string           `bson:"name" json:"name"`
	Status      string           `bson:"status" json:"status"` // running, completed, failed
	StartedAt   *time.Time       `bson:"started_at" json:"startedAt"`
	CompletedAt *time.Time       `bson:"completed_at" json:"completedAt"`
	Result      *MigrationResult `bson:"result,omitempty" json:"result,omitempty"`
	CreatedAt   time.Time        `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time        `bson:"updated_at" json:"updatedAt"`
}

type MigrationResult struct {
	RecordsProcessed int      `bson:"records_processed" json:"recordsProcessed"`
	RecordsUpdated   int      `bson:"records_updated" json:"recordsUpdated"`
	Errors           []string `bson:"errors,omitempty" json:"errors,omitempty"`
	Duration         string   `bson:"duration" json:"duration"`
}

const (
	migrationIndexes         = "ensure_indexes"
	migrationMessageDefaults = "backfill_message_defaults"
	migrationsCollection     = "migrations"
)

func NewMigrationRepository(db *DB) MigrationRepository {
	return &migrationRepo{
		db: db,
	}
}

func (r *migrationRepo) Run(ctx context.Context) error {
	if err := r.EnsureIndexes(ctx); err != nil {
		return err
	}
	return r.BackfillMessageDefaults(ctx)
}

// indexModels lists every index the service relies on, keyed by collection.
func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		models.User{}.CollectionName(): {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		models.AuthToken{}.CollectionName(): {
			{Keys: bson.D{{Key: "token_hash", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_revoked", Value: 1}}},
		},
		models.Note{}.CollectionName(): {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "title", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		models.Visitor{}.CollectionName(): {
			{Keys: bson.D{{Key: "visitor_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "is_online", Value: -1}, {Key: "last_seen", Value: -1}}},
		},
		models.ChatSession{}.CollectionName(): {
			{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "visitor_id", Value: 1}},
				Options: options.Index().
					SetName("one_active_session_per_visitor").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": models.SessionActive}),
			},
			{Keys: bson.D{{Key: "visitor_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "last_activity", Value: -1}}},
			{Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "last_activity", Value: -1}}},
		},
		models.Message{}.CollectionName(): {
			{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "visitor_id", Value: 1}, {Key: "sender_type", Value: 1}, {Key: "is_read", Value: 1}}},
		},
		migrationsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

func (r *migrationRepo) EnsureIndexes(ctx context.Context) error {
	startTime := time.Now()
	if err := r.SetMigrationStatus(ctx, migrationIndexes, "running", nil); err != nil {
		return fmt.Errorf("set migration status: %w", err)
	}

	result := &MigrationResult{}
	for coll, idx := range indexModels() {
		result.RecordsProcessed += len(idx)
		names, err := r.db.Database.Collection(coll).Indexes().CreateMany(ctx, idx)
		if err != nil {
			return r.completeMigrationWithError(ctx, migrationIndexes, startTime, fmt.Errorf("create indexes on %s: %w", coll, err))
		}
		result.RecordsUpdated += len(names)
	}
	result.Duration = time.Since(startTime).String()

	if err := r.SetMigrationStatus(ctx, migrationIndexes, "completed", result); err != nil {
		log.Errorw(ctx, "Failed to set migration completion status", "error", err)
	}
	log.Infow(ctx, "Indexes ensured", "migration", migrationIndexes, "indexes", result.RecordsUpdated, "duration", result.Duration)
	return nil
}

// BackfillMessageDefaults fills delivery status and receipt arrays on
// messages written before those fields existed.
func (r *migrationRepo) BackfillMessageDefaults(ctx context.Context) error {
	status, err := r.GetMigrationStatus(ctx, migrationMessageDefaults)
	if err == nil && status.Status == "completed" {
		log.Infow(ctx, "Migration already completed", "migration", migrationMessageDefaults)
		return nil
	}

	startTime := time.Now()
	if err := r.SetMigrationStatus(ctx, migrationMessageDefaults, "running", nil); err != nil {
		return fmt.Errorf("set migration status: %w", err)
	}

	coll := r.db.Database.Collection(models.Message{}.CollectionName())
	updateResult, err := coll.UpdateMany(ctx,
		bson.M{"metadata.delivery_status": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{
			"metadata.delivery_status": models.DeliverySent,
			"metadata.read_receipts":   bson.A{},
		}})
	if err != nil {
		return r.completeMigrationWithError(ctx, migrationMessageDefaults, startTime, err)
	}

	result := &MigrationResult{
		RecordsProcessed: int(updateResult.MatchedCount),
		RecordsUpdated:   int(updateResult.ModifiedCount),
		Duration:         time.Since(startTime).String(),
	}
	if err := r.SetMigrationStatus(ctx, migrationMessageDefaults, "completed", result); err != nil {
		log.Errorw(ctx, "Failed to set migration completion status", "error", err)
	}

	log.Infow(ctx, "Message defaults backfilled",
		"migration", migrationMessageDefaults,
		"processed", result.RecordsProcessed,
		"updated", result.RecordsUpdated,
		"duration", result.Duration)
	return nil
}

func (r *migrationRepo) completeMigrationWithError(ctx context.Context, migrationName string, startTime time.Time, err error) error {
	result := &MigrationResult{
		Duration: time.Since(startTime).String(),
		Errors:   []string{err.Error()},
	}
	if setErr := r.SetMigrationStatus(ctx, migrationName, "failed", result); setErr != nil {
		log.Errorw(ctx, "Failed to set migration failure status", "error", setErr)
	}
	return err
}

func (r *migrationRepo) GetMigrationStatus(ctx context.Context, migrationName string) (*MigrationStatus, error) {
	var status MigrationStatus
	err := r.db.Database.Collection(migrationsCollection).FindOne(ctx, bson.M{"name": migrationName}).Decode(&status)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NotFound("migration " + migrationName)
	}
	if err != nil {
		return nil, fmt.Errorf("get migration status: %w", err)
	}
	return &status, nil
}

func (r *migrationRepo) SetMigrationStatus(ctx context.Context, migrationName string, status string, result *MigrationResult) error {
	_, err := r.db.Database.Collection(migrationsCollection).UpdateOne(ctx,
		bson.M{"name": migrationName},
		migrationStatusUpdate(migrationName, status, result, time.Now()),
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set migration status: %w", err)
	}
	return nil
}

func migrationStatusUpdate(migrationName, status string, result *MigrationResult, now time.Time) bson.M {
	set := bson.M{
		"name":       migrationName,
		"status":     status,
		"updated_at": now,
	}
	switch status {
	case "running":
		set["started_at"] = now
	case "completed", "failed":
		set["completed_at"] = now
		if result != nil {
			set["result"] = result
		}
	}
	return bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}
}
