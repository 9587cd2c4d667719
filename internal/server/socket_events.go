package server

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

// Inbound socket payloads. Ids travel as hex strings.

type joinAgentRoomPayload struct {
	AgentID string             `json:"agentId"`
	Status  models.AgentStatus `json:"status"`
}

type visitorRoomPayload struct {
	VisitorID string `json:"visitorId"`
	AgentID   string `json:"agentId"`
}

type sendMessagePayload struct {
	SessionID   string              `json:"sessionId"`
	Content     string              `json:"content"`
	MessageType models.MessageType  `json:"messageType"`
	AgentID     string              `json:"agentId"`
	Attachments []models.Attachment `json:"attachments"`
}

type markReadPayload struct {
	MessageIDs []string `json:"messageIds"`
	VisitorID  string   `json:"visitorId"`
	AgentID    string   `json:"agentId"`
}

type typingPayload struct {
	VisitorID string `json:"visitorId"`
	SessionID string `json:"sessionId"`
	AgentID   string `json:"agentId"`
}

type assignSessionPayload struct {
	SessionID string `json:"sessionId"`
	AgentID   string `json:"agentId"`
}

type endSessionPayload struct {
	SessionID string `json:"sessionId"`
	AgentID   string `json:"agentId"`
	Reason    string `json:"reason"`
}

type transferSessionPayload struct {
	SessionID   string `json:"sessionId"`
	FromAgentID string `json:"fromAgentId"`
	ToAgentID   string `json:"toAgentId"`
	Reason      string `json:"reason"`
}

func parseID(hex, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, models.InvalidArgument("invalid %s %q", field, hex)
	}
	return id, nil
}

// parseOptionalID returns nil for an empty hex.
func parseOptionalID(hex, field string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	id, err := parseID(hex, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
