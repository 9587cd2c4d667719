package usecase

import (
	"context"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

// EventBroadcaster delivers events to socket rooms. Delivery is best effort.
type EventBroadcaster interface {
	Broadcast(ctx context.Context, event models.Event)
}

type RateLimiter interface {
	Allow(ctx context.Context, subject string) (bool, error)
}

type PresenceStore interface {
	SetStatus(ctx context.Context, agentID string, status models.AgentStatus) error
	Remove(ctx context.Context, agentID string) error
	List(ctx context.Context) ([]models.AgentPresence, error)
}
