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

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	ListBySession(ctx context.Context, sessionID primitive.ObjectID, page models.PageRequest) (*PaginateWithTotal[models.Message], error)
	AllBySession(ctx context.Context, sessionID primitive.ObjectID) ([]*models.Message, error)
	LatestVisitorMessage(ctx context.Context, sessionID primitive.ObjectID) (*models.Message, error)
	MarkRead(ctx context.Context, ids []primitive.ObjectID, readerID primitive.ObjectID, now time.Time) (int64, error)
	GroupByVisitor(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID][]primitive.ObjectID, error)
	CountUnread(ctx context.Context, visitorID primitive.ObjectID) (int64, error)
	UnreadByVisitors(ctx context.Context, visitorIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error)
	Edit(ctx context.Context, id primitive.ObjectID, content string, now time.Time) (*models.Message, error)
	SetReaction(ctx context.Context, id, userID primitive.ObjectID, reaction models.Reaction, now time.Time) (*models.Message, error)
	SetDeliveryStatus(ctx context.Context, id primitive.ObjectID, status models.DeliveryStatus, now time.Time) (*models.Message, error)
	DeleteBySession(ctx context.Context, sessionID primitive.ObjectID) (int64, error)
	DeleteByVisitor(ctx context.Context, visitorID primitive.ObjectID) (int64, error)
	CountBySender(ctx context.Context, sessionID primitive.ObjectID) ([]models.SenderCount, error)
	CountByVisitor(ctx context.Context, visitorID primitive.ObjectID) (int64, error)
}

type messageRepo struct {
	baseRepo[models.Message]
}

func NewMessageRepository(db *DB) MessageRepository {
	return &messageRepo{
		baseRepo: newBaseRepo[models.Message](db.Database),
	}
}

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if _, err := r.Insert(ctx, msg); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *messageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	m, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find message %s: %w", id.Hex(), err)
	}
	return m, nil
}

var oldestFirst = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (r *messageRepo) ListBySession(ctx context.Context, sessionID primitive.ObjectID, page models.PageRequest) (*PaginateWithTotal[models.Message], error) {
	opts := options.Find().SetSort(oldestFirst)
	res, err := r.PaginateWithTotal(ctx, bson.M{"session_id": sessionID}, page.Limit, page.Skip(), opts)
	if err != nil {
		return nil, fmt.Errorf("list messages of session %s: %w", sessionID.Hex(), err)
	}
	return res, nil
}

func (r *messageRepo) AllBySession(ctx context.Context, sessionID primitive.ObjectID) ([]*models.Message, error) {
	msgs, err := r.Find(ctx, bson.M{"session_id": sessionID}, options.Find().SetSort(oldestFirst))
	if err != nil {
		return nil, fmt.Errorf("find messages of session %s: %w", sessionID.Hex(), err)
	}
	return msgs, nil
}

func (r *messageRepo) LatestVisitorMessage(ctx context.Context, sessionID primitive.ObjectID) (*models.Message, error) {
	filter := bson.M{"session_id": sessionID, "sender_type": models.SenderVisitor}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.FindOne(ctx, filter, opts)
}

// MarkRead touches exactly the listed ids and returns how many changed.
func (r *messageRepo) MarkRead(ctx context.Context, ids []primitive.ObjectID, readerID primitive.ObjectID, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := r.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, markReadUpdate(readerID, now))
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return n, nil
}

// GroupByVisitor maps each visitor to the listed message ids it owns.
// Unknown ids are left out.
func (r *messageRepo) GroupByVisitor(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID][]primitive.ObjectID, error) {
	out := map[primitive.ObjectID][]primitive.ObjectID{}
	if len(ids) == 0 {
		return out, nil
	}
	msgs, err := r.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1, "visitor_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("group messages by visitor: %w", err)
	}
	for _, m := range msgs {
		out[m.VisitorID] = append(out[m.VisitorID], m.ID)
	}
	return out, nil
}

func markReadUpdate(readerID primitive.ObjectID, now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"is_read":    true,
			"read_at":    now,
			"updated_at": now,
		},
		"$push": bson.M{
			"metadata.read_receipts": models.ReadReceipt{UserID: readerID, ReadAt: now},
		},
	}
}

func unreadFilter() bson.M {
	return bson.M{"sender_type": models.SenderVisitor, "is_read": false}
}

func (r *messageRepo) CountUnread(ctx context.Context, visitorID primitive.ObjectID) (int64, error) {
	filter := unreadFilter()
	filter["visitor_id"] = visitorID
	return r.Count(ctx, filter)
}

func (r *messageRepo) UnreadByVisitors(ctx context.Context, visitorIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	out := make(map[primitive.ObjectID]int64, len(visitorIDs))
	if len(visitorIDs) == 0 {
		return out, nil
	}
	match := unreadFilter()
	match["visitor_id"] = bson.M{"$in": visitorIDs}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$visitor_id", "count": bson.M{"$sum": 1}}}},
	}
	var rows []struct {
		VisitorID primitive.ObjectID `bson:"_id"`
		Count     int64              `bson:"count"`
	}
	if err := r.Aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("count unread by visitor: %w", err)
	}
	for _, row := range rows {
		out[row.VisitorID] = row.Count
	}
	return out, nil
}

func (r *messageRepo) Edit(ctx context.Context, id primitive.ObjectID, content string, now time.Time) (*models.Message, error) {
	update := bson.M{"$set": bson.M{
		"content":    content,
		"is_edited":  true,
		"edited_at":  now,
		"updated_at": now,
	}}
	m, err := r.FindOneAndUpdate(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, fmt.Errorf("edit message %s: %w", id.Hex(), err)
	}
	return m, nil
}

func (r *messageRepo) SetReaction(ctx context.Context, id, userID primitive.ObjectID, reaction models.Reaction, now time.Time) (*models.Message, error) {
	m, err := r.FindOneAndUpdate(ctx, bson.M{"_id": id}, reactionPipeline(userID, reaction, now))
	if err != nil {
		return nil, fmt.Errorf("react to message %s: %w", id.Hex(), err)
	}
	return m, nil
}

// reactionPipeline drops any earlier reaction of userID and appends the new one.
func reactionPipeline(userID primitive.ObjectID, reaction models.Reaction, now time.Time) mongo.Pipeline {
	others := bson.M{"$filter": bson.M{
		"input": bson.M{"$ifNull": bson.A{"$reactions", bson.A{}}},
		"as":    "r",
		"cond":  bson.M{"$ne": bson.A{"$$r.user_id", userID}},
	}}
	added := bson.A{bson.M{"user_id": userID, "reaction": string(reaction), "created_at": now}}
	return mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "reactions", Value: bson.M{"$concatArrays": bson.A{others, added}}},
		{Key: "updated_at", Value: now},
	}}}}
}

func (r *messageRepo) SetDeliveryStatus(ctx context.Context, id primitive.ObjectID, status models.DeliveryStatus, now time.Time) (*models.Message, error) {
	update := bson.M{"$set": bson.M{
		"metadata.delivery_status": status,
		"updated_at":               now,
	}}
	m, err := r.FindOneAndUpdate(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, fmt.Errorf("set delivery status of message %s: %w", id.Hex(), err)
	}
	return m, nil
}

func (r *messageRepo) DeleteBySession(ctx context.Context, sessionID primitive.ObjectID) (int64, error) {
	n, err := r.DeleteMany(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return 0, fmt.Errorf("delete messages of session %s: %w", sessionID.Hex(), err)
	}
	return n, nil
}

func (r *messageRepo) DeleteByVisitor(ctx context.Context, visitorID primitive.ObjectID) (int64, error) {
	n, err := r.DeleteMany(ctx, bson.M{"visitor_id": visitorID})
	if err != nil {
		return 0, fmt.Errorf("delete messages of visitor %s: %w", visitorID.Hex(), err)
	}
	return n, nil
}

func (r *messageRepo) CountBySender(ctx context.Context, sessionID primitive.ObjectID) ([]models.SenderCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"session_id": sessionID}}},
		{{Key: "$group", Value: bson.M{"_id": "$sender_type", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	rows := []models.SenderCount{}
	if err := r.Aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("count messages by sender: %w", err)
	}
	return rows, nil
}

func (r *messageRepo) CountByVisitor(ctx context.Context, visitorID primitive.ObjectID) (int64, error) {
	return r.Count(ctx, bson.M{"visitor_id": visitorID})
}
