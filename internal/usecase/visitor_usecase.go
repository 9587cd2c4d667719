package usecase

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
	"github.com/nguyentranbao-ct/livechat/pkg/util"
)

const (
	DefaultVisitorPageSize = 50
	recentSessionsLimit    = 5
)

type VisitorUsecase interface {
	Upsert(ctx context.Context, req models.UpsertVisitorRequest) (*models.Visitor, error)
	List(ctx context.Context, filter models.VisitorFilter, page models.PageRequest) (*models.VisitorPage, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.VisitorDetail, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.VisitorPatch) (*models.Visitor, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, online bool) (*models.Visitor, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context, id primitive.ObjectID) (*models.VisitorStats, error)
}

type visitorUsecase struct {
	visitors    mongodb.VisitorRepository
	sessions    mongodb.ChatSessionRepository
	messages    mongodb.MessageRepository
	namer       *VisitorNamer
	broadcaster EventBroadcaster
	now         func() time.Time
}

func NewVisitorUsecase(
	visitors mongodb.VisitorRepository,
	sessions mongodb.ChatSessionRepository,
	messages mongodb.MessageRepository,
	namer *VisitorNamer,
	broadcaster EventBroadcaster,
) VisitorUsecase {
	return &visitorUsecase{
		visitors:    visitors,
		sessions:    sessions,
		messages:    messages,
		namer:       namer,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

func (uc *visitorUsecase) Upsert(ctx context.Context, req models.UpsertVisitorRequest) (*models.Visitor, error) {
	v, err := uc.visitors.Upsert(ctx, req, uc.now())
	if err != nil {
		return nil, err
	}
	uc.namer.Decorate(v)
	uc.broadcastStatus(ctx, v)
	return v, nil
}

func (uc *visitorUsecase) List(ctx context.Context, filter models.VisitorFilter, page models.PageRequest) (*models.VisitorPage, error) {
	res, err := uc.visitors.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}

	ids := util.ConvertList(res.Data, func(v *models.Visitor) primitive.ObjectID { return v.ID })
	var (
		unread map[primitive.ObjectID]int64
		open   map[primitive.ObjectID]*models.ChatSession
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		unread, err = uc.messages.UnreadByVisitors(gctx, ids)
		return err
	})
	group.Go(func() (err error) {
		open, err = uc.sessions.FindOpenByVisitors(gctx, ids)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("load visitor list details: %w", err)
	}

	items := make([]*models.VisitorListItem, 0, len(res.Data))
	for _, v := range res.Data {
		uc.namer.Decorate(v)
		if s, ok := open[v.ID]; ok {
			v.CurrentSessionID = s.ID.Hex()
		}
		items = append(items, &models.VisitorListItem{Visitor: v, UnreadCount: unread[v.ID]})
	}
	return &models.VisitorPage{
		Visitors:   items,
		Pagination: page.Paginate(res.Total),
	}, nil
}

func (uc *visitorUsecase) Get(ctx context.Context, id primitive.ObjectID) (*models.VisitorDetail, error) {
	v, err := uc.visitors.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Visitor")
	}

	detail := &models.VisitorDetail{Visitor: uc.namer.Decorate(v)}
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		detail.RecentSessions, err = uc.sessions.Recent(gctx, id, recentSessionsLimit)
		return err
	})
	group.Go(func() (err error) {
		detail.UnreadCount, err = uc.messages.CountUnread(gctx, id)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("load visitor details: %w", err)
	}
	for _, s := range detail.RecentSessions {
		if s.IsOpen() && v.CurrentSessionID == "" {
			v.CurrentSessionID = s.ID.Hex()
		}
	}
	return detail, nil
}

func (uc *visitorUsecase) Update(ctx context.Context, id primitive.ObjectID, patch models.VisitorPatch) (*models.Visitor, error) {
	v, err := uc.visitors.Update(ctx, id, patch, uc.now())
	if err != nil {
		return nil, notFound(err, "Visitor")
	}
	return uc.namer.Decorate(v), nil
}

func (uc *visitorUsecase) SetStatus(ctx context.Context, id primitive.ObjectID, online bool) (*models.Visitor, error) {
	v, err := uc.visitors.SetStatus(ctx, id, online, uc.now())
	if err != nil {
		return nil, notFound(err, "Visitor")
	}
	uc.namer.Decorate(v)
	uc.broadcastStatus(ctx, v)
	return v, nil
}

func (uc *visitorUsecase) broadcastStatus(ctx context.Context, v *models.Visitor) {
	name := models.EventVisitorOffline
	if v.IsOnline {
		name = models.EventVisitorOnline
	}
	uc.broadcaster.Broadcast(ctx, models.Event{
		Name:  name,
		Rooms: []string{models.RoomAgents},
		Payload: models.VisitorStatusPayload{
			VisitorID: v.ID,
			IsOnline:  v.IsOnline,
			LastSeen:  v.LastSeen,
		},
	})
}

// Delete removes the visitor with its sessions and messages.
func (uc *visitorUsecase) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := uc.visitors.Delete(ctx, id); err != nil {
		return notFound(err, "Visitor")
	}
	sessions, err := uc.sessions.DeleteByVisitor(ctx, id)
	if err != nil {
		return err
	}
	messages, err := uc.messages.DeleteByVisitor(ctx, id)
	if err != nil {
		return err
	}
	log.Infow(ctx, "Visitor deleted", "visitor", id.Hex(), "sessions", sessions, "messages", messages)

	uc.broadcaster.Broadcast(ctx, models.Event{
		Name:    models.EventVisitorLeft,
		Rooms:   []string{models.RoomAgents, models.VisitorRoom(id)},
		Payload: models.VisitorLeftPayload{VisitorID: id},
	})
	return nil
}

func (uc *visitorUsecase) Stats(ctx context.Context, id primitive.ObjectID) (*models.VisitorStats, error) {
	v, err := uc.visitors.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Visitor")
	}
	agg, err := uc.sessions.VisitorAggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.VisitorStats{
		TotalSessions:          agg.TotalSessions,
		TotalMessages:          v.TotalMessages,
		AverageSessionDuration: util.Val(agg.AvgDuration),
		AverageRating:          util.Val(agg.AvgRating),
	}, nil
}
