package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

// keep the baseRepo implementation in sync with IRepository interface
var _ IRepository[models.Note] = (*baseRepo[models.Note])(nil)

type IEntity interface {
	CollectionName() string
}

type PaginateWithTotal[E any] struct {
	Total int64
	Data  []*E
}

type IRepository[E IEntity] interface {
	Insert(ctx context.Context, entity *E) (primitive.ObjectID, error)
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]*E, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*E, error)
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*E, error)
	FindOneAndUpdate(ctx context.Context, filter, update any, opts ...*options.FindOneAndUpdateOptions) (*E, error)
	UpdateMany(ctx context.Context, filter, update any) (int64, error)
	DeleteOne(ctx context.Context, filter any) error
	DeleteMany(ctx context.Context, filter any) (int64, error)
	Count(ctx context.Context, filter any) (int64, error)
	PaginateWithTotal(ctx context.Context, filter any, limit, skip int64, opts ...*options.FindOptions) (*PaginateWithTotal[E], error)
	Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error
}

type baseRepo[E IEntity] struct {
	coll *mongo.Collection
}

func newBaseRepo[E IEntity](db *mongo.Database) baseRepo[E] {
	var entity E
	return baseRepo[E]{
		coll: db.Collection(entity.CollectionName()),
	}
}

func (r *baseRepo[E]) Insert(ctx context.Context, entity *E) (primitive.ObjectID, error) {
	result, err := r.coll.InsertOne(ctx, entity)
	if mongo.IsDuplicateKeyError(err) {
		return primitive.NilObjectID, models.ErrDuplicate
	}
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert one: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("invalid inserted id: %T %+v", result.InsertedID, result.InsertedID)
	}
	return oid, nil
}

func (r *baseRepo[E]) Find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]*E, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	entities := []*E{}
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, fmt.Errorf("cursor all: %w", err)
	}
	return entities, nil
}

func (r *baseRepo[E]) FindByID(ctx context.Context, id primitive.ObjectID) (*E, error) {
	return r.FindOne(ctx, bson.M{"_id": id})
}

func (r *baseRepo[E]) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*E, error) {
	var entity E
	err := r.coll.FindOne(ctx, filter, opts...).Decode(&entity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindOneAndUpdate applies update and returns the document after the change.
func (r *baseRepo[E]) FindOneAndUpdate(ctx context.Context, filter, update any, opts ...*options.FindOneAndUpdateOptions) (*E, error) {
	opts = append(opts, options.FindOneAndUpdate().SetReturnDocument(options.After))

	var updated E
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts...).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, models.ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *baseRepo[E]) UpdateMany(ctx context.Context, filter, update any) (int64, error) {
	result, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *baseRepo[E]) DeleteOne(ctx context.Context, filter any) error {
	result, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *baseRepo[E]) DeleteMany(ctx context.Context, filter any) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *baseRepo[E]) Count(ctx context.Context, filter any) (int64, error) {
	return r.coll.CountDocuments(ctx, filter)
}

func (r *baseRepo[E]) PaginateWithTotal(ctx context.Context, filter any, limit, skip int64, opts ...*options.FindOptions) (*PaginateWithTotal[E], error) {
	group, ctx := errgroup.WithContext(ctx)
	entities := []*E{}
	var total int64

	group.Go(func() error {
		opts = append(opts, options.Find().SetSkip(skip).SetLimit(limit))
		cursor, err := r.coll.Find(ctx, filter, opts...)
		if err != nil {
			return fmt.Errorf("find: %w", err)
		}
		if err := cursor.All(ctx, &entities); err != nil {
			return fmt.Errorf("cursor all: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		var err error
		total, err = r.coll.CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return &PaginateWithTotal[E]{Total: total, Data: entities}, nil
}

func (r *baseRepo[E]) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("cursor all: %w", err)
	}
	return nil
}
