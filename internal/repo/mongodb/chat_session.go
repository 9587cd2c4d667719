package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *models.ChatSession) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.ChatSession, error)
	FindActiveByVisitor(ctx context.Context, visitorID primitive.ObjectID) (*models.ChatSession, error)
	FindOpenByVisitors(ctx context.Context, visitorIDs []primitive.ObjectID) (map[primitive.ObjectID]*models.ChatSession, error)
	Assign(ctx context.Context, id, agentID primitive.ObjectID, now time.Time) (*models.ChatSession, error)
	Transfer(ctx context.Context, id primitive.ObjectID, transfer models.Transfer, now time.Time) (*models.ChatSession, error)
	Close(ctx context.Context, id primitive.ObjectID, rating *int, feedback *string, now time.Time) (*models.ChatSession, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.SessionPatch, now time.Time) (*models.ChatSession, error)
	RecordMessage(ctx context.Context, id primitive.ObjectID, responseTime *float64, now time.Time) (*models.ChatSession, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByVisitor(ctx context.Context, visitorID primitive.ObjectID) (int64, error)
	List(ctx context.Context, filter models.SessionFilter, page models.PageRequest) (*PaginateWithTotal[models.ChatSession], error)
	ListByVisitor(ctx context.Context, visitorID primitive.ObjectID, status models.SessionStatus, page models.PageRequest) (*PaginateWithTotal[models.ChatSession], error)
	Recent(ctx context.Context, visitorID primitive.ObjectID, n int64) ([]*models.ChatSession, error)
	CountByVisitor(ctx context.Context, visitorID primitive.ObjectID) (int64, error)
	VisitorAggregate(ctx context.Context, visitorID primitive.ObjectID) (*SessionAggregate, error)
}

// SessionAggregate summarizes all sessions of one visitor.
type SessionAggregate struct {
	TotalSessions int64    `bson:"total_sessions"`
	AvgDuration   *float64 `bson:"avg_duration"`
	AvgRating     *float64 `bson:"avg_rating"`
}

type chatSessionRepo struct {
	baseRepo[models.ChatSession]
}

func NewChatSessionRepository(db *DB) ChatSessionRepository {
	return &chatSessionRepo{
		baseRepo: newBaseRepo[models.ChatSession](db.Database),
	}
}

func (r *chatSessionRepo) Create(ctx context.Context, session *models.ChatSession) error {
	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	if _, err := r.Insert(ctx, session); err != nil {
		return fmt.Errorf("insert chat session: %w", err)
	}
	return nil
}

func (r *chatSessionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ChatSession, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find chat session %s: %w", id.Hex(), err)
	}
	return s, nil
}

func (r *chatSessionRepo) FindActiveByVisitor(ctx context.Context, visitorID primitive.ObjectID) (*models.ChatSession, error) {
	return r.FindOne(ctx, bson.M{"visitor_id": visitorID, "status": models.SessionActive})
}

// FindOpenByVisitors returns the newest non-closed session per visitor.
func (r *chatSessionRepo) FindOpenByVisitors(ctx context.Context, visitorIDs []primitive.ObjectID) (map[primitive.ObjectID]*models.ChatSession, error) {
	out := make(map[primitive.ObjectID]*models.ChatSession, len(visitorIDs))
	if len(visitorIDs) == 0 {
		return out, nil
	}
	filter := bson.M{
		"visitor_id": bson.M{"$in": visitorIDs},
		"status":     bson.M{"$ne": models.SessionClosed},
	}
	sessions, err := r.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find open sessions: %w", err)
	}
	for _, s := range sessions {
		out[s.VisitorID] = s
	}
	return out, nil
}

func notClosed(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "status": bson.M{"$ne": models.SessionClosed}}
}

func (r *chatSessionRepo) Assign(ctx context.Context, id, agentID primitive.ObjectID, now time.Time) (*models.ChatSession, error) {
	update := bson.M{"$set": bson.M{
		"agent_id":      agentID,
		"status":        models.SessionActive,
		"last_activity": now,
		"updated_at":    now,
	}}
	s, err := r.FindOneAndUpdate(ctx, notClosed(id), update)
	if err != nil {
		return nil, fmt.Errorf("assign chat session %s: %w", id.Hex(), err)
	}
	return s, nil
}

func (r *chatSessionRepo) Transfer(ctx context.Context, id primitive.ObjectID, transfer models.Transfer, now time.Time) (*models.ChatSession, error) {
	update := bson.M{
		"$push": bson.M{"transfer_history": transfer},
		"$set": bson.M{
			"agent_id":      transfer.ToAgent,
			"status":        models.SessionActive,
			"last_activity": now,
			"updated_at":    now,
		},
	}
	s, err := r.FindOneAndUpdate(ctx, notClosed(id), update)
	if err != nil {
		return nil, fmt.Errorf("transfer chat session %s: %w", id.Hex(), err)
	}
	return s, nil
}

func (r *chatSessionRepo) Close(ctx context.Context, id primitive.ObjectID, rating *int, feedback *string, now time.Time) (*models.ChatSession, error) {
	update := bson.M{"$set": bson.M{
		"status":        models.SessionClosed,
		"ended_at":      now,
		"rating":        rating,
		"feedback":      feedback,
		"last_activity": now,
		"updated_at":    now,
	}}
	s, err := r.FindOneAndUpdate(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, fmt.Errorf("close chat session %s: %w", id.Hex(), err)
	}
	return s, nil
}

func (r *chatSessionRepo) Update(ctx context.Context, id primitive.ObjectID, patch models.SessionPatch, now time.Time) (*models.ChatSession, error) {
	s, err := r.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": patch.Updates(now)})
	if err != nil {
		return nil, fmt.Errorf("update chat session %s: %w", id.Hex(), err)
	}
	return s, nil
}

func (r *chatSessionRepo) RecordMessage(ctx context.Context, id primitive.ObjectID, responseTime *float64, now time.Time) (*models.ChatSession, error) {
	s, err := r.FindOneAndUpdate(ctx, bson.M{"_id": id}, recordMessagePipeline(responseTime, now))
	if err != nil {
		return nil, fmt.Errorf("record message on session %s: %w", id.Hex(), err)
	}
	return s, nil
}

// recordMessagePipeline bumps message_count and folds responseTime into the
// running average. Field paths read the values from before the stage.
func recordMessagePipeline(responseTime *float64, now time.Time) mongo.Pipeline {
	set := bson.D{
		{Key: "message_count", Value: bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$message_count", 0}}, 1}}},
		{Key: "last_activity", Value: now},
		{Key: "updated_at", Value: now},
	}
	if responseTime != nil {
		count := bson.M{"$ifNull": bson.A{"$response_count", 0}}
		avg := bson.M{"$ifNull": bson.A{"$avg_response_time", 0}}
		set = append(set,
			bson.E{Key: "avg_response_time", Value: bson.M{"$divide": bson.A{
				bson.M{"$add": bson.A{bson.M{"$multiply": bson.A{avg, count}}, *responseTime}},
				bson.M{"$add": bson.A{count, 1}},
			}}},
			bson.E{Key: "response_count", Value: bson.M{"$add": bson.A{count, 1}}},
		)
	}
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

func (r *chatSessionRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete chat session %s: %w", id.Hex(), err)
	}
	return nil
}

func (r *chatSessionRepo) DeleteByVisitor(ctx context.Context, visitorID primitive.ObjectID) (int64, error) {
	n, err := r.DeleteMany(ctx, bson.M{"visitor_id": visitorID})
	if err != nil {
		return 0, fmt.Errorf("delete sessions of visitor %s: %w", visitorID.Hex(), err)
	}
	return n, nil
}

func sessionListFilter(filter models.SessionFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.AgentID != nil {
		query["agent_id"] = *filter.AgentID
	}
	return query
}

func (r *chatSessionRepo) List(ctx context.Context, filter models.SessionFilter, page models.PageRequest) (*PaginateWithTotal[models.ChatSession], error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_activity", Value: -1}})
	res, err := r.PaginateWithTotal(ctx, sessionListFilter(filter), page.Limit, page.Skip(), opts)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	return res, nil
}

func (r *chatSessionRepo) ListByVisitor(ctx context.Context, visitorID primitive.ObjectID, status models.SessionStatus, page models.PageRequest) (*PaginateWithTotal[models.ChatSession], error) {
	query := sessionListFilter(models.SessionFilter{Status: status})
	query["visitor_id"] = visitorID
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	res, err := r.PaginateWithTotal(ctx, query, page.Limit, page.Skip(), opts)
	if err != nil {
		return nil, fmt.Errorf("list sessions of visitor %s: %w", visitorID.Hex(), err)
	}
	return res, nil
}

func (r *chatSessionRepo) Recent(ctx context.Context, visitorID primitive.ObjectID, n int64) ([]*models.ChatSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(n)
	return r.Find(ctx, bson.M{"visitor_id": visitorID}, opts)
}

func (r *chatSessionRepo) CountByVisitor(ctx context.Context, visitorID primitive.ObjectID) (int64, error) {
	return r.Count(ctx, bson.M{"visitor_id": visitorID})
}

func (r *chatSessionRepo) VisitorAggregate(ctx context.Context, visitorID primitive.ObjectID) (*SessionAggregate, error) {
	duration := bson.M{"$cond": bson.A{
		bson.M{"$eq": bson.A{bson.M{"$type": "$ended_at"}, "date"}},
		bson.M{"$subtract": bson.A{"$ended_at", "$started_at"}},
		nil,
	}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"visitor_id": visitorID}}},
		{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"total_sessions": bson.M{"$sum": 1},
			"avg_duration":   bson.M{"$avg": duration},
			"avg_rating":     bson.M{"$avg": "$rating"},
		}}},
	}
	var rows []SessionAggregate
	if err := r.Aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("aggregate sessions of visitor %s: %w", visitorID.Hex(), err)
	}
	if len(rows) == 0 {
		return &SessionAggregate{}, nil
	}
	return &rows[0], nil
}
