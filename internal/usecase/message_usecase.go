package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
)

const DefaultMessagePageSize = 50

type MessageUsecase interface {
	Post(ctx context.Context, req models.PostMessageRequest) (*models.Message, error)
	List(ctx context.Context, sessionID primitive.ObjectID, page models.PageRequest) (*models.MessagePage, error)
	MarkRead(ctx context.Context, req models.MarkReadRequest) (int64, error)
	UnreadCount(ctx context.Context, visitorID primitive.ObjectID) (*models.UnreadCount, error)
	Edit(ctx context.Context, id primitive.ObjectID, content string) (*models.Message, error)
	React(ctx context.Context, id primitive.ObjectID, req models.ReactRequest) (*models.Message, error)
	SetDeliveryStatus(ctx context.Context, id primitive.ObjectID, status models.DeliveryStatus) (*models.Message, error)
}

type messageUsecase struct {
	messages    mongodb.MessageRepository
	sessions    mongodb.ChatSessionRepository
	visitors    mongodb.VisitorRepository
	limiter     RateLimiter
	broadcaster EventBroadcaster
	now         func() time.Time
}

func NewMessageUsecase(
	messages mongodb.MessageRepository,
	sessions mongodb.ChatSessionRepository,
	visitors mongodb.VisitorRepository,
	limiter RateLimiter,
	broadcaster EventBroadcaster,
) MessageUsecase {
	return &messageUsecase{
		messages:    messages,
		sessions:    sessions,
		visitors:    visitors,
		limiter:     limiter,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

func validatePost(req *models.PostMessageRequest) error {
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return models.InvalidArgument("content is required")
	}
	if req.MessageType == "" {
		req.MessageType = models.MessageText
	}
	if !req.MessageType.Valid() {
		return models.InvalidArgument("invalid message type %q", req.MessageType)
	}
	if !req.SenderType.Valid() {
		return models.InvalidArgument("invalid sender type %q", req.SenderType)
	}
	return nil
}

func (uc *messageUsecase) Post(ctx context.Context, req models.PostMessageRequest) (*models.Message, error) {
	if err := validatePost(&req); err != nil {
		return nil, err
	}
	session, err := uc.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, notFound(err, "Session")
	}

	allowed, err := uc.limiter.Allow(ctx, "session:"+req.SessionID.Hex())
	if err != nil {
		log.Warnw(ctx, "Rate limiter unavailable, allowing message", "session", req.SessionID.Hex(), "error", err)
	} else if !allowed {
		return nil, models.ErrRateLimited
	}

	now := uc.now()
	msg := &models.Message{
		SessionID:   session.ID,
		VisitorID:   session.VisitorID,
		Content:     req.Content,
		MessageType: req.MessageType,
		SenderType:  req.SenderType,
		ReplyTo:     req.ReplyTo,
		Attachments: req.Attachments,
		Metadata: models.MessageMetadata{
			IPAddress:      req.IPAddress,
			UserAgent:      req.UserAgent,
			Timestamp:      now,
			DeliveryStatus: models.DeliverySent,
			ReadReceipts:   []models.ReadReceipt{},
		},
		Reactions: []models.MessageReaction{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if msg.Attachments == nil {
		msg.Attachments = []models.Attachment{}
	}
	if req.SenderType == models.SenderAgent {
		msg.AgentID = req.AgentID
		msg.ResponseTime = uc.responseTime(ctx, session.ID, now)
	}

	if err := uc.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if _, err := uc.sessions.RecordMessage(ctx, session.ID, msg.ResponseTime, now); err != nil {
		log.Errorw(ctx, "Failed to record message on session", "session", session.ID.Hex(), "error", err)
	}
	if err := uc.visitors.IncrementCounters(ctx, session.VisitorID, 0, 1); err != nil {
		log.Errorw(ctx, "Failed to increment visitor message count", "visitor", session.VisitorID.Hex(), "error", err)
	}

	uc.broadcaster.Broadcast(ctx, models.Event{
		Name:    models.EventNewMessage,
		Rooms:   []string{models.RoomAgents, models.VisitorRoom(session.VisitorID)},
		Payload: models.NewMessagePayload{VisitorID: session.VisitorID, Message: msg},
	})
	return msg, nil
}

// responseTime is the number of seconds since the latest visitor message of
// the session, nil when the visitor has not written yet.
func (uc *messageUsecase) responseTime(ctx context.Context, sessionID primitive.ObjectID, now time.Time) *float64 {
	last, err := uc.messages.LatestVisitorMessage(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Warnw(ctx, "Failed to load latest visitor message", "session", sessionID.Hex(), "error", err)
		}
		return nil
	}
	seconds := now.Sub(last.CreatedAt).Seconds()
	return &seconds
}

func (uc *messageUsecase) List(ctx context.Context, sessionID primitive.ObjectID, page models.PageRequest) (*models.MessagePage, error) {
	res, err := uc.messages.ListBySession(ctx, sessionID, page)
	if err != nil {
		return nil, err
	}
	return &models.MessagePage{Messages: res.Data, Pagination: page.Paginate(res.Total)}, nil
}

// MarkRead marks exactly the listed messages and returns how many changed.
func (uc *messageUsecase) MarkRead(ctx context.Context, req models.MarkReadRequest) (int64, error) {
	if len(req.MessageIDs) == 0 {
		return 0, models.InvalidArgument("messageIds is required")
	}
	now := uc.now()
	n, err := uc.messages.MarkRead(ctx, req.MessageIDs, req.ReaderID, now)
	if err != nil {
		return 0, err
	}

	byVisitor := map[primitive.ObjectID][]primitive.ObjectID{}
	if req.VisitorID != nil {
		byVisitor[*req.VisitorID] = req.MessageIDs
	} else if byVisitor, err = uc.messages.GroupByVisitor(ctx, req.MessageIDs); err != nil {
		log.Warnw(ctx, "Failed to resolve visitors of read messages", "messages", len(req.MessageIDs), "error", err)
		return n, nil
	}

	for visitorID, ids := range byVisitor {
		uc.broadcaster.Broadcast(ctx, models.Event{
			Name:  models.EventMessageRead,
			Rooms: []string{models.RoomAgents, models.VisitorRoom(visitorID)},
			Payload: models.MessageReadPayload{
				VisitorID:  visitorID,
				MessageIDs: ids,
				ReaderID:   req.ReaderID,
				ReadAt:     now,
			},
		})
	}
	return n, nil
}

func (uc *messageUsecase) UnreadCount(ctx context.Context, visitorID primitive.ObjectID) (*models.UnreadCount, error) {
	n, err := uc.messages.CountUnread(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	return &models.UnreadCount{VisitorID: visitorID, UnreadCount: n}, nil
}

func (uc *messageUsecase) Edit(ctx context.Context, id primitive.ObjectID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.InvalidArgument("content is required")
	}
	m, err := uc.messages.Edit(ctx, id, content, uc.now())
	if err != nil {
		return nil, notFound(err, "Message")
	}
	return m, nil
}

// React replaces any earlier reaction of the same user.
func (uc *messageUsecase) React(ctx context.Context, id primitive.ObjectID, req models.ReactRequest) (*models.Message, error) {
	if !req.Reaction.Valid() {
		return nil, models.InvalidArgument("invalid reaction %q", req.Reaction)
	}
	m, err := uc.messages.SetReaction(ctx, id, req.UserID, req.Reaction, uc.now())
	if err != nil {
		return nil, notFound(err, "Message")
	}
	return m, nil
}

func (uc *messageUsecase) SetDeliveryStatus(ctx context.Context, id primitive.ObjectID, status models.DeliveryStatus) (*models.Message, error) {
	if !status.Valid() {
		return nil, models.InvalidArgument("invalid delivery status %q", status)
	}
	m, err := uc.messages.SetDeliveryStatus(ctx, id, status, uc.now())
	if err != nil {
		return nil, notFound(err, "Message")
	}
	return m, nil
}
