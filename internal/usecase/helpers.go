package usecase

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

// notFound replaces a repository miss with a message naming the resource.
func notFound(err error, what string) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFound(what)
	}
	return err
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func agentRooms(agentID *primitive.ObjectID, rooms ...string) []string {
	if agentID != nil {
		rooms = append(rooms, models.AgentRoom(agentID.Hex()))
	}
	return rooms
}
