package chatsocket

import (
	"time"

	"github.com/nguyentranbao-ct/livechat/pkg/chatstore"
)

// Event names shared with the server gateway.
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
	EventError           = "error"
	EventChatError       = "chat-error"

	EventJoinAgentRoom    = "join-agent-room"
	EventAgentStatus      = "agent-status"
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

type NewMessage struct {
	VisitorID string            `json:"visitorId"`
	Message   chatstore.Message `json:"message"`
}

type VisitorStatus struct {
	VisitorID string    `json:"visitorId"`
	IsOnline  bool      `json:"isOnline"`
	LastSeen  time.Time `json:"lastSeen"`
}

type Session struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	VisitorID string `json:"visitorId"`
	AgentID   string `json:"agentId,omitempty"`
	Status    string `json:"status"`
}

type VisitorJoined struct {
	VisitorID string   `json:"visitorId"`
	Session   *Session `json:"session"`
}

type VisitorLeft struct {
	VisitorID string `json:"visitorId"`
}

type Typing struct {
	VisitorID string `json:"visitorId"`
	SessionID string `json:"sessionId,omitempty"`
	AgentID   string `json:"agentId,omitempty"`
	IsTyping  bool   `json:"isTyping"`
}

type MessageRead struct {
	VisitorID  string    `json:"visitorId"`
	MessageIDs []string  `json:"messageIds"`
	ReaderID   string    `json:"readerId"`
	ReadAt     time.Time `json:"readAt"`
}

type AgentAssigned struct {
	SessionID string `json:"sessionId"`
	VisitorID string `json:"visitorId"`
	AgentID   string `json:"agentId"`
}

type SessionEnded struct {
	SessionID string    `json:"sessionId"`
	VisitorID string    `json:"visitorId"`
	Reason    string    `json:"reason,omitempty"`
	EndedAt   time.Time `json:"endedAt"`
}

// ServerError is an error or chat-error event sent by the server.
type ServerError struct {
	Message string `json:"error"`
	Event   string `json:"event,omitempty"`
}

func (e *ServerError) Error() string {
	if e.Event != "" {
		return e.Event + ": " + e.Message
	}
	return e.Message
}

// Outbound payloads.

type SendMessage struct {
	SessionID   string                 `json:"sessionId"`
	Content     string                 `json:"content"`
	MessageType string                 `json:"messageType,omitempty"`
	AgentID     string                 `json:"agentId,omitempty"`
	Attachments []chatstore.Attachment `json:"attachments,omitempty"`
}

type agentStatus struct {
	AgentID string `json:"agentId"`
	Status  string `json:"status"`
}

type visitorRoom struct {
	VisitorID string `json:"visitorId"`
	AgentID   string `json:"agentId,omitempty"`
}

type markRead struct {
	MessageIDs []string `json:"messageIds"`
	VisitorID  string   `json:"visitorId,omitempty"`
	AgentID    string   `json:"agentId,omitempty"`
}

type typing struct {
	VisitorID string `json:"visitorId"`
	SessionID string `json:"sessionId,omitempty"`
	AgentID   string `json:"agentId,omitempty"`
}

type assignSession struct {
	SessionID string `json:"sessionId"`
	AgentID   string `json:"agentId"`
}

type endSession struct {
	SessionID string `json:"sessionId"`
	AgentID   string `json:"agentId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type transferSession struct {
	SessionID   string `json:"sessionId"`
	FromAgentID string `json:"fromAgentId,omitempty"`
	ToAgentID   string `json:"toAgentId"`
	Reason      string `json:"reason,omitempty"`
}
