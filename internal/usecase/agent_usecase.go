package usecase

import (
	"context"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

// AgentUsecase tracks which agents are connected and their availability.
type AgentUsecase interface {
	SetStatus(ctx context.Context, agentID string, status models.AgentStatus) error
	Disconnect(ctx context.Context, agentID string) error
	Online(ctx context.Context) ([]models.AgentPresence, error)
}

type agentUsecase struct {
	presence    PresenceStore
	broadcaster EventBroadcaster
}

func NewAgentUsecase(presence PresenceStore, broadcaster EventBroadcaster) AgentUsecase {
	return &agentUsecase{presence: presence, broadcaster: broadcaster}
}

func (uc *agentUsecase) SetStatus(ctx context.Context, agentID string, status models.AgentStatus) error {
	if agentID == "" {
		return models.InvalidArgument("agentId is required")
	}
	if status == "" {
		status = models.AgentOnline
	}
	if !status.Valid() {
		return models.InvalidArgument("invalid agent status %q", status)
	}
	if err := uc.presence.SetStatus(ctx, agentID, status); err != nil {
		return err
	}
	uc.broadcast(ctx, agentID, status)
	return nil
}

func (uc *agentUsecase) Disconnect(ctx context.Context, agentID string) error {
	if err := uc.presence.Remove(ctx, agentID); err != nil {
		return err
	}
	uc.broadcast(ctx, agentID, models.AgentOffline)
	return nil
}

func (uc *agentUsecase) broadcast(ctx context.Context, agentID string, status models.AgentStatus) {
	uc.broadcaster.Broadcast(ctx, models.Event{
		Name:    models.EventAgentStatus,
		Rooms:   []string{models.RoomAgents},
		Payload: models.AgentStatusPayload{AgentID: agentID, Status: status},
	})
}

func (uc *agentUsecase) Online(ctx context.Context) ([]models.AgentPresence, error) {
	return uc.presence.List(ctx)
}
