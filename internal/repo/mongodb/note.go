package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Note, error)
	FindByOwner(ctx context.Context, userID primitive.ObjectID) ([]*models.Note, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.NotePatch, now time.Time) (*models.Note, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type noteRepo struct {
	baseRepo[models.Note]
}

func NewNoteRepository(db *DB) NoteRepository {
	return &noteRepo{
		baseRepo: newBaseRepo[models.Note](db.Database),
	}
}

func (r *noteRepo) Create(ctx context.Context, note *models.Note) error {
	if note.ID.IsZero() {
		note.ID = primitive.NewObjectID()
	}
	if _, err := r.Insert(ctx, note); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (r *noteRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Note, error) {
	n, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find note %s: %w", id.Hex(), err)
	}
	return n, nil
}

func (r *noteRepo) FindByOwner(ctx context.Context, userID primitive.ObjectID) ([]*models.Note, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	notes, err := r.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find notes of user %s: %w", userID.Hex(), err)
	}
	return notes, nil
}

func (r *noteRepo) Update(ctx context.Context, id primitive.ObjectID, patch models.NotePatch, now time.Time) (*models.Note, error) {
	n, err := r.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": patch.Updates(now)})
	if err != nil {
		return nil, fmt.Errorf("update note %s: %w", id.Hex(), err)
	}
	return n, nil
}

func (r *noteRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete note %s: %w", id.Hex(), err)
	}
	return nil
}
