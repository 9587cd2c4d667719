package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/livechat/internal/config"
	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
	"github.com/nguyentranbao-ct/livechat/pkg/tmplx"
	"github.com/nguyentranbao-ct/livechat/pkg/util"
)

const (
	DefaultSessionPageSize        = 20
	DefaultVisitorSessionPageSize = 10
)

const defaultTranscriptTemplate = `Session {{ .SessionID }} ({{ .Status }})
Visitor: {{ .Visitor }}
Started: {{ formatTime "2006-01-02 15:04:05" .StartedAt }}
{{ range .Lines }}[{{ formatTime "15:04:05" .At }}] {{ upper .Sender }}: {{ .Content }}
{{ end }}`

type SessionUsecase interface {
	Create(ctx context.Context, req models.CreateSessionRequest) (*models.ChatSession, error)
	Assign(ctx context.Context, id, agentID primitive.ObjectID) (*models.ChatSession, error)
	Transfer(ctx context.Context, id primitive.ObjectID, req models.TransferSessionRequest) (*models.ChatSession, error)
	Close(ctx context.Context, id primitive.ObjectID, req models.CloseSessionRequest) (*models.ChatSession, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.SessionPatch) (*models.ChatSession, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.SessionDetail, error)
	List(ctx context.Context, filter models.SessionFilter, page models.PageRequest) (*models.SessionPage, error)
	ListByVisitor(ctx context.Context, visitorID primitive.ObjectID, status models.SessionStatus, page models.PageRequest) (*models.SessionPage, error)
	Stats(ctx context.Context, id primitive.ObjectID) (*models.SessionStats, error)
	Transcript(ctx context.Context, id primitive.ObjectID) (string, error)
}

type sessionUsecase struct {
	sessions    mongodb.ChatSessionRepository
	messages    mongodb.MessageRepository
	visitors    mongodb.VisitorRepository
	namer       *VisitorNamer
	broadcaster EventBroadcaster
	transcript  *tmplx.Template
	now         func() time.Time
	newToken    func() string
}

func NewSessionUsecase(
	conf *config.Config,
	sessions mongodb.ChatSessionRepository,
	messages mongodb.MessageRepository,
	visitors mongodb.VisitorRepository,
	namer *VisitorNamer,
	broadcaster EventBroadcaster,
) (SessionUsecase, error) {
	text := conf.Chat.TranscriptTemplate
	if text == "" {
		text = defaultTranscriptTemplate
	}
	transcript, err := tmplx.Parse("transcript", text)
	if err != nil {
		return nil, fmt.Errorf("parse transcript template: %w", err)
	}
	return &sessionUsecase{
		sessions:    sessions,
		messages:    messages,
		visitors:    visitors,
		namer:       namer,
		broadcaster: broadcaster,
		transcript:  transcript,
		now:         time.Now,
		newToken:    uuid.NewString,
	}, nil
}

// conflict builds the error returned when the visitor already has an
// active session. The existing id is looked up again when the unique index
// rejected the write.
func (uc *sessionUsecase) conflict(ctx context.Context, visitorID primitive.ObjectID) error {
	existing, err := uc.sessions.FindActiveByVisitor(ctx, visitorID)
	if err != nil {
		return models.NewActiveSessionConflict("")
	}
	return models.NewActiveSessionConflict(existing.ID.Hex())
}

func (uc *sessionUsecase) Create(ctx context.Context, req models.CreateSessionRequest) (*models.ChatSession, error) {
	visitor, err := uc.visitors.GetByID(ctx, req.VisitorID)
	if err != nil {
		return nil, notFound(err, "Visitor")
	}

	existing, err := uc.sessions.FindActiveByVisitor(ctx, req.VisitorID)
	switch {
	case err == nil:
		return nil, models.NewActiveSessionConflict(existing.ID.Hex())
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	now := uc.now()
	session := &models.ChatSession{
		VisitorID:       req.VisitorID,
		AgentID:         req.AgentID,
		SessionID:       uc.newToken(),
		Status:          models.SessionPending,
		StartedAt:       now,
		LastActivity:    now,
		Tags:            []string{},
		TransferHistory: []models.Transfer{},
		Metadata:        models.SessionMetadata{Source: models.SourceWebsite},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.AgentID != nil {
		session.Status = models.SessionActive
	}
	if req.Metadata != nil {
		session.Metadata = *req.Metadata
		if session.Metadata.Source == "" {
			session.Metadata.Source = models.SourceWebsite
		}
	}

	if err := uc.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, uc.conflict(ctx, req.VisitorID)
		}
		return nil, err
	}
	if err := uc.visitors.IncrementCounters(ctx, req.VisitorID, 1, 0); err != nil {
		log.Errorw(ctx, "Failed to increment visitor session count", "visitor", req.VisitorID.Hex(), "error", err)
	}

	session.Visitor = uc.namer.Summary(visitor)
	uc.broadcaster.Broadcast(ctx, models.Event{
		Name:    models.EventVisitorJoined,
		Rooms:   []string{models.RoomAgents},
		Payload: models.VisitorJoinedPayload{VisitorID: session.VisitorID, Session: session},
	})
	return session, nil
}

// openSession loads a session that assign and transfer may still act on.
func (uc *sessionUsecase) openSession(ctx context.Context, id primitive.ObjectID) (*models.ChatSession, error) {
	s, err := uc.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Session")
	}
	if !s.IsOpen() {
		return nil, models.InvalidArgument("session %s is closed", id.Hex())
	}
	return s, nil
}

// lostRace maps the errors of a guarded update made after openSession.
func (uc *sessionUsecase) lostRace(ctx context.Context, err error, s *models.ChatSession) error {
	switch {
	case errors.Is(err, models.ErrDuplicate):
		return uc.conflict(ctx, s.VisitorID)
	case errors.Is(err, models.ErrNotFound):
		return models.InvalidArgument("session %s is closed", s.ID.Hex())
	}
	return err
}

func (uc *sessionUsecase) Assign(ctx context.Context, id, agentID primitive.ObjectID) (*models.ChatSession, error) {
	s, err := uc.openSession(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := uc.sessions.Assign(ctx, id, agentID, uc.now())
	if err != nil {
		return nil, uc.lostRace(ctx, err, s)
	}

	uc.broadcaster.Broadcast(ctx, models.Event{
		Name:  models.EventAgentAssigned,
		Rooms: agentRooms(&agentID, models.RoomAgents, models.VisitorRoom(updated.VisitorID)),
		Payload: models.AgentAssignedPayload{
			SessionID: updated.ID,
			VisitorID: updated.VisitorID,
			AgentID:   agentID,
		},
	})
	return updated, nil
}

// Transfer records the hand-over and re-activates the session for the new
// agent. The current agent is not required to match FromAgentID.
func (uc *sessionUsecase) Transfer(ctx context.Context, id primitive.ObjectID, req models.TransferSessionRequest) (*models.ChatSession, error) {
	s, err := uc.openSession(ctx, id)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	transfer := models.Transfer{
		FromAgent:     req.FromAgentID,
		ToAgent:       req.ToAgentID,
		Reason:        strings.TrimSpace(req.Reason),
		TransferredAt: now,
	}
	if transfer.Reason == "" {
		transfer.Reason = models.DefaultTransferReason
	}

	updated, err := uc.sessions.Transfer(ctx, id, transfer, now)
	if err != nil {
		return nil, uc.lostRace(ctx, err, s)
	}

	rooms := agentRooms(req.FromAgentID, models.RoomAgents, models.VisitorRoom(updated.VisitorID))
	uc.broadcaster.Broadcast(ctx, models.Event{
		Name:  models.EventAgentAssigned,
		Rooms: agentRooms(&req.ToAgentID, rooms...),
		Payload: models.AgentAssignedPayload{
			SessionID: updated.ID,
			VisitorID: updated.VisitorID,
			AgentID:   req.ToAgentID,
			Transfer:  &transfer,
		},
	})
	return updated, nil
}

// Close is idempotent: closing a closed session rewrites endedAt.
func (uc *sessionUsecase) Close(ctx context.Context, id primitive.ObjectID, req models.CloseSessionRequest) (*models.ChatSession, error) {
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return nil, models.InvalidArgument("rating must be between 1 and 5")
	}
	s, err := uc.sessions.Close(ctx, id, req.Rating, req.Feedback, uc.now())
	if err != nil {
		return nil, notFound(err, "Session")
	}

	uc.broadcaster.Broadcast(ctx, models.Event{
		Name:  models.EventSessionEnded,
		Rooms: agentRooms(s.AgentID, models.RoomAgents, models.VisitorRoom(s.VisitorID)),
		Payload: models.SessionEndedPayload{
			SessionID: s.ID,
			VisitorID: s.VisitorID,
			Reason:    req.Reason,
			EndedAt:   util.Val(s.EndedAt),
		},
	})
	return s, nil
}

func (uc *sessionUsecase) Update(ctx context.Context, id primitive.ObjectID, patch models.SessionPatch) (*models.ChatSession, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, models.InvalidArgument("invalid session status %q", *patch.Status)
	}
	if patch.Rating != nil && (*patch.Rating < 1 || *patch.Rating > 5) {
		return nil, models.InvalidArgument("rating must be between 1 and 5")
	}
	s, err := uc.sessions.Update(ctx, id, patch, uc.now())
	if errors.Is(err, models.ErrDuplicate) {
		current, getErr := uc.sessions.GetByID(ctx, id)
		if getErr != nil {
			return nil, notFound(getErr, "Session")
		}
		return nil, uc.conflict(ctx, current.VisitorID)
	}
	if err != nil {
		return nil, notFound(err, "Session")
	}
	return s, nil
}

// Delete removes the session and its messages, then recomputes the
// visitor's counters from what remains.
func (uc *sessionUsecase) Delete(ctx context.Context, id primitive.ObjectID) error {
	s, err := uc.sessions.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "Session")
	}
	if err := uc.sessions.Delete(ctx, id); err != nil {
		return notFound(err, "Session")
	}
	deleted, err := uc.messages.DeleteBySession(ctx, id)
	if err != nil {
		return err
	}

	sessions, err := uc.sessions.CountByVisitor(ctx, s.VisitorID)
	if err != nil {
		return err
	}
	messages, err := uc.messages.CountByVisitor(ctx, s.VisitorID)
	if err != nil {
		return err
	}
	if err := uc.visitors.SetCounters(ctx, s.VisitorID, sessions, messages); err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	log.Infow(ctx, "Session deleted", "session", id.Hex(), "messages", deleted)
	return nil
}

func (uc *sessionUsecase) Get(ctx context.Context, id primitive.ObjectID) (*models.SessionDetail, error) {
	s, err := uc.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Session")
	}
	messages, err := uc.messages.AllBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.populate(ctx, []*models.ChatSession{s}); err != nil {
		return nil, err
	}
	return &models.SessionDetail{ChatSession: s, Messages: messages}, nil
}

// populate attaches visitor summaries. Sessions of deleted visitors keep a
// nil summary.
func (uc *sessionUsecase) populate(ctx context.Context, sessions []*models.ChatSession) error {
	ids := uniqueIDs(util.ConvertList(sessions, func(s *models.ChatSession) primitive.ObjectID { return s.VisitorID }))
	visitors, err := uc.visitors.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if v, ok := visitors[s.VisitorID]; ok {
			s.Visitor = uc.namer.Summary(v)
		}
	}
	return nil
}

func (uc *sessionUsecase) List(ctx context.Context, filter models.SessionFilter, page models.PageRequest) (*models.SessionPage, error) {
	res, err := uc.sessions.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	if err := uc.populate(ctx, res.Data); err != nil {
		return nil, err
	}
	return &models.SessionPage{Sessions: res.Data, Pagination: page.Paginate(res.Total)}, nil
}

func (uc *sessionUsecase) ListByVisitor(ctx context.Context, visitorID primitive.ObjectID, status models.SessionStatus, page models.PageRequest) (*models.SessionPage, error) {
	res, err := uc.sessions.ListByVisitor(ctx, visitorID, status, page)
	if err != nil {
		return nil, err
	}
	return &models.SessionPage{Sessions: res.Data, Pagination: page.Paginate(res.Total)}, nil
}

func (uc *sessionUsecase) Stats(ctx context.Context, id primitive.ObjectID) (*models.SessionStats, error) {
	s, err := uc.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Session")
	}
	bySender, err := uc.messages.CountBySender(ctx, id)
	if err != nil {
		return nil, err
	}

	end := uc.now()
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return &models.SessionStats{
		SessionID:           s.ID,
		SessionToken:        s.SessionID,
		Duration:            end.Sub(s.StartedAt).Milliseconds(),
		MessageCount:        s.MessageCount,
		MessagesByType:      bySender,
		AverageResponseTime: s.AvgResponseTime,
		Status:              s.Status,
		Rating:              s.Rating,
	}, nil
}

type transcriptLine struct {
	At      time.Time
	Sender  string
	Content string
}

type transcriptData struct {
	SessionID string
	Status    string
	Visitor   string
	StartedAt time.Time
	Lines     []transcriptLine
}

func (uc *sessionUsecase) Transcript(ctx context.Context, id primitive.ObjectID) (string, error) {
	detail, err := uc.Get(ctx, id)
	if err != nil {
		return "", err
	}
	data := transcriptData{
		SessionID: detail.SessionID,
		Status:    string(detail.Status),
		Visitor:   models.DefaultVisitorName,
		StartedAt: detail.StartedAt,
		Lines: util.ConvertList(detail.Messages, func(m *models.Message) transcriptLine {
			return transcriptLine{At: m.CreatedAt, Sender: string(m.SenderType), Content: m.Content}
		}),
	}
	if detail.Visitor != nil {
		data.Visitor = detail.Visitor.DisplayName
	}
	return uc.transcript.RenderString(data)
}
