package redisstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

// Presence keeps one hash field per agent under <prefix>:agents:online.
type Presence struct {
	rdb *redis.Client
	key string
	now func() time.Time
}

func NewPresence(rdb *redis.Client, prefix string) *Presence {
	return &Presence{
		rdb: rdb,
		key: key(prefix, "agents", "online"),
		now: time.Now,
	}
}

func (p *Presence) SetStatus(ctx context.Context, agentID string, status models.AgentStatus) error {
	if status == models.AgentOffline {
		return p.Remove(ctx, agentID)
	}
	data, err := json.Marshal(models.AgentPresence{AgentID: agentID, Status: status, UpdatedAt: p.now()})
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}
	if err := p.rdb.HSet(ctx, p.key, agentID, data).Err(); err != nil {
		return fmt.Errorf("set presence of %s: %w", agentID, err)
	}
	return nil
}

func (p *Presence) Remove(ctx context.Context, agentID string) error {
	if err := p.rdb.HDel(ctx, p.key, agentID).Err(); err != nil {
		return fmt.Errorf("remove presence of %s: %w", agentID, err)
	}
	return nil
}

func (p *Presence) List(ctx context.Context) ([]models.AgentPresence, error) {
	result, err := p.rdb.HGetAll(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list presence: %w", err)
	}
	out := make([]models.AgentPresence, 0, len(result))
	for agentID, raw := range result {
		var entry models.AgentPresence
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			entry = models.AgentPresence{AgentID: agentID, Status: models.AgentOnline}
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}
