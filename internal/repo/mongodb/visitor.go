package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

type VisitorRepository interface {
	Upsert(ctx context.Context, req models.UpsertVisitorRequest, now time.Time) (*models.Visitor, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Visitor, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Visitor, error)
	List(ctx context.Context, filter models.VisitorFilter, page models.PageRequest) (*PaginateWithTotal[models.Visitor], error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.VisitorPatch, now time.Time) (*models.Visitor, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, online bool, now time.Time) (*models.Visitor, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	IncrementCounters(ctx context.Context, id primitive.ObjectID, sessions, messages int64) error
	SetCounters(ctx context.Context, id primitive.ObjectID, sessions, messages int64) error
}

type visitorRepo struct {
	baseRepo[models.Visitor]
}

func NewVisitorRepository(db *DB) VisitorRepository {
	return &visitorRepo{
		baseRepo: newBaseRepo[models.Visitor](db.Database),
	}
}

// Upsert creates the visitor or refreshes it in one atomic write. Fields the
// request leaves empty are never overwritten.
func (r *visitorRepo) Upsert(ctx context.Context, req models.UpsertVisitorRequest, now time.Time) (*models.Visitor, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true)
	v, err := r.FindOneAndUpdate(ctx, bson.M{"visitor_id": req.VisitorID}, visitorUpsertUpdate(req, now), opts)
	if err != nil {
		return nil, fmt.Errorf("upsert visitor: %w", err)
	}
	return v, nil
}

func visitorUpsertUpdate(req models.UpsertVisitorRequest, now time.Time) bson.M {
	set := bson.M{
		"is_online":  true,
		"last_seen":  now,
		"updated_at": now,
	}
	setOnInsert := bson.M{
		"first_visit":    now,
		"created_at":     now,
		"session_count":  0,
		"total_messages": 0,
	}

	if req.Name != "" {
		set["name"] = req.Name
	} else {
		setOnInsert["name"] = models.DefaultVisitorName
	}
	for key, value := range map[string]string{
		"email":      req.Email,
		"phone":      req.Phone,
		"avatar":     req.Avatar,
		"ip_address": req.IPAddress,
		"user_agent": req.UserAgent,
	} {
		if value != "" {
			set[key] = value
		}
	}
	if req.Location != nil {
		set["location"] = req.Location
	}

	return bson.M{"$set": set, "$setOnInsert": setOnInsert}
}

func (r *visitorRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Visitor, error) {
	v, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find visitor %s: %w", id.Hex(), err)
	}
	return v, nil
}

func (r *visitorRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Visitor, error) {
	out := make(map[primitive.ObjectID]*models.Visitor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	visitors, err := r.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find visitors: %w", err)
	}
	for _, v := range visitors {
		out[v.ID] = v
	}
	return out, nil
}

func (r *visitorRepo) List(ctx context.Context, filter models.VisitorFilter, page models.PageRequest) (*PaginateWithTotal[models.Visitor], error) {
	opts := options.Find().SetSort(bson.D{{Key: "is_online", Value: -1}, {Key: "last_seen", Value: -1}})
	res, err := r.PaginateWithTotal(ctx, visitorListFilter(filter), page.Limit, page.Skip(), opts)
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	return res, nil
}

func visitorListFilter(filter models.VisitorFilter) bson.M {
	query := bson.M{}
	if filter.Online != nil {
		query["is_online"] = *filter.Online
	}
	if filter.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"email": re},
			bson.M{"visitor_id": re},
		}
	}
	return query
}

func (r *visitorRepo) Update(ctx context.Context, id primitive.ObjectID, patch models.VisitorPatch, now time.Time) (*models.Visitor, error) {
	v, err := r.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": patch.Updates(now)})
	if err != nil {
		return nil, fmt.Errorf("update visitor %s: %w", id.Hex(), err)
	}
	return v, nil
}

func (r *visitorRepo) SetStatus(ctx context.Context, id primitive.ObjectID, online bool, now time.Time) (*models.Visitor, error) {
	update := bson.M{"$set": bson.M{
		"is_online":  online,
		"last_seen":  now,
		"updated_at": now,
	}}
	v, err := r.FindOneAndUpdate(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, fmt.Errorf("set visitor status %s: %w", id.Hex(), err)
	}
	return v, nil
}

func (r *visitorRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete visitor %s: %w", id.Hex(), err)
	}
	return nil
}

func (r *visitorRepo) IncrementCounters(ctx context.Context, id primitive.ObjectID, sessions, messages int64) error {
	update := bson.M{
		"$inc": bson.M{"session_count": sessions, "total_messages": messages},
		"$set": bson.M{"updated_at": time.Now()},
	}
	if _, err := r.FindOneAndUpdate(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("increment visitor counters %s: %w", id.Hex(), err)
	}
	return nil
}

func (r *visitorRepo) SetCounters(ctx context.Context, id primitive.ObjectID, sessions, messages int64) error {
	update := bson.M{"$set": bson.M{
		"session_count":  sessions,
		"total_messages": messages,
		"updated_at":     time.Now(),
	}}
	if _, err := r.FindOneAndUpdate(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("set visitor counters %s: %w", id.Hex(), err)
	}
	return nil
}
