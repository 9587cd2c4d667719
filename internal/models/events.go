package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outbound real-time event names.
const (
	EventNewMessage      = "new-message"
	EventVisitorOnline   = "visitor-online"
	EventVisitorOffline  = "visitor-offline"
	EventVisitorJoined   = "visitor-joined"
	EventVisitorLeft     = "visitor-left"
	EventTypingIndicator = "typing-indicator"
	EventMessageRead     = "message-read"
	EventAgentAssigned   = "agent-assigned"
	EventSessionEnded    = "session-ended"
	EventAgentStatus     = "agent-status"
	EventError           = "error"
	EventChatError       = "chat-error"
)

// Inbound events sent by agent clients.
const (
	EventJoinAgentRoom    = "join-agent-room"
	EventJoinVisitorRoom  = "join-visitor-room"
	EventLeaveVisitorRoom = "leave-visitor-room"
	EventSendMessage      = "send-message"
	EventMarkRead         = "mark-read"
	EventTypingStart      = "typing-start"
	EventTypingStop       = "typing-stop"
	EventAssignSession    = "assign-session"
	EventEndSession       = "end-session"
	EventTransferSession  = "transfer-session"
)

const RoomAgents = "agents"

func AgentRoom(agentID string) string {
	return "agent:" + agentID
}

func VisitorRoom(visitorID primitive.ObjectID) string {
	return "visitor:" + visitorID.Hex()
}

// Event is one broadcast addressed to a set of rooms.
type Event struct {
	Name    string
	Rooms   []string
	Payload any
}

// EventEnvelope is the Kafka wire form of an Event.
type EventEnvelope struct {
	Origin    string    `json:"origin"`
	Name      string    `json:"name"`
	Rooms     []string  `json:"rooms"`
	Payload   any       `json:"payload"`
	EmittedAt time.Time `json:"emittedAt"`
}

type NewMessagePayload struct {
	VisitorID primitive.ObjectID `json:"visitorId"`
	Message   *Message           `json:"message"`
}

type VisitorStatusPayload struct {
	VisitorID primitive.ObjectID `json:"visitorId"`
	IsOnline  bool               `json:"isOnline"`
	LastSeen  time.Time          `json:"lastSeen"`
}

type VisitorJoinedPayload struct {
	VisitorID primitive.ObjectID `json:"visitorId"`
	Session   *ChatSession       `json:"session"`
}

type VisitorLeftPayload struct {
	VisitorID primitive.ObjectID `json:"visitorId"`
}

type MessageReadPayload struct {
	VisitorID  primitive.ObjectID   `json:"visitorId"`
	MessageIDs []primitive.ObjectID `json:"messageIds"`
	ReaderID   primitive.ObjectID   `json:"readerId"`
	ReadAt     time.Time            `json:"readAt"`
}

type AgentAssignedPayload struct {
	SessionID primitive.ObjectID `json:"sessionId"`
	VisitorID primitive.ObjectID `json:"visitorId"`
	AgentID   primitive.ObjectID `json:"agentId"`
	Transfer  *Transfer          `json:"transfer,omitempty"`
}

type SessionEndedPayload struct {
	SessionID primitive.ObjectID `json:"sessionId"`
	VisitorID primitive.ObjectID `json:"visitorId"`
	Reason    string             `json:"reason,omitempty"`
	EndedAt   time.Time          `json:"endedAt"`
}

type TypingPayload struct {
	VisitorID string `json:"visitorId"`
	SessionID string `json:"sessionId,omitempty"`
	AgentID   string `json:"agentId,omitempty"`
	IsTyping  bool   `json:"isTyping"`
}

type AgentStatusPayload struct {
	AgentID string      `json:"agentId"`
	Status  AgentStatus `json:"status"`
}

type ChatErrorPayload struct {
	Error string `json:"error"`
	Event string `json:"event"`
}
