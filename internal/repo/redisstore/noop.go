package redisstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

// NoopLimiter allows everything.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string) (bool, error) {
	return true, nil
}

// LocalPresence tracks agents of this process only.
type LocalPresence struct {
	mu     sync.RWMutex
	agents map[string]models.AgentPresence
}

func NewLocalPresence() *LocalPresence {
	return &LocalPresence{agents: map[string]models.AgentPresence{}}
}

func (p *LocalPresence) SetStatus(_ context.Context, agentID string, status models.AgentStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status == models.AgentOffline {
		delete(p.agents, agentID)
		return nil
	}
	p.agents[agentID] = models.AgentPresence{AgentID: agentID, Status: status, UpdatedAt: time.Now()}
	return nil
}

func (p *LocalPresence) Remove(_ context.Context, agentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.agents, agentID)
	return nil
}

func (p *LocalPresence) List(context.Context) ([]models.AgentPresence, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.AgentPresence, 0, len(p.agents))
	for _, a := range p.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}
