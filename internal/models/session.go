package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SessionStatus string

const (
	SessionPending     SessionStatus = "pending"
	SessionActive      SessionStatus = "active"
	SessionClosed      SessionStatus = "closed"
	SessionTransferred SessionStatus = "transferred"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionActive, SessionClosed, SessionTransferred:
		return true
	}
	return false
}

type SessionSource string

const (
	SourceWebsite SessionSource = "website"
	SourceMobile  SessionSource = "mobile"
	SourceAPI     SessionSource = "api"
)

const DefaultTransferReason = "No reason provided"

type Transfer struct {
	FromAgent     *primitive.ObjectID `bson:"from_agent,omitempty" json:"fromAgent,omitempty"`
	ToAgent       primitive.ObjectID  `bson:"to_agent" json:"toAgent"`
	Reason        string              `bson:"reason" json:"reason"`
	TransferredAt time.Time           `bson:"transferred_at" json:"transferredAt"`
}

type SessionMetadata struct {
	Source    SessionSource `bson:"source" json:"source" validate:"omitempty,oneof=website mobile api"`
	Page      string        `bson:"page,omitempty" json:"page,omitempty"`
	Referrer  string        `bson:"referrer,omitempty" json:"referrer,omitempty"`
	UserAgent string        `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
}

type ChatSession struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	VisitorID       primitive.ObjectID  `bson:"visitor_id" json:"visitorId"`
	AgentID         *primitive.ObjectID `bson:"agent_id,omitempty" json:"agentId,omitempty"`
	SessionID       string              `bson:"session_id" json:"sessionId"`
	Status          SessionStatus       `bson:"status" json:"status"`
	StartedAt       time.Time           `bson:"started_at" json:"startedAt"`
	EndedAt         *time.Time          `bson:"ended_at,omitempty" json:"endedAt,omitempty"`
	LastActivity    time.Time           `bson:"last_activity" json:"lastActivity"`
	Tags            []string            `bson:"tags" json:"tags"`
	Rating          *int                `bson:"rating" json:"rating"`
	Feedback        *string             `bson:"feedback" json:"feedback"`
	MessageCount    int64               `bson:"message_count" json:"messageCount"`
	AvgResponseTime float64             `bson:"avg_response_time" json:"avgResponseTime"`
	ResponseCount   int64               `bson:"response_count" json:"-"`
	TransferHistory []Transfer          `bson:"transfer_history" json:"transferHistory"`
	Metadata        SessionMetadata     `bson:"metadata" json:"metadata"`
	CreatedAt       time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updatedAt"`

	Visitor *VisitorSummary `bson:"-" json:"visitor,omitempty"`
}

func (ChatSession) CollectionName() string {
	return "chat_sessions"
}

func (s *ChatSession) IsOpen() bool {
	return s.Status == SessionPending || s.Status == SessionActive || s.Status == SessionTransferred
}

type CreateSessionRequest struct {
	VisitorID primitive.ObjectID  `json:"visitorId" validate:"required"`
	AgentID   *primitive.ObjectID `json:"agentId"`
	Metadata  *SessionMetadata    `json:"metadata"`
}

type AssignSessionRequest struct {
	AgentID primitive.ObjectID `json:"agentId" validate:"required"`
}

type TransferSessionRequest struct {
	FromAgentID *primitive.ObjectID `json:"fromAgentId"`
	ToAgentID   primitive.ObjectID  `json:"toAgentId" validate:"required"`
	Reason      string              `json:"reason"`
}

type CloseSessionRequest struct {
	Rating   *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Feedback *string `json:"feedback"`
	// Reason is only echoed in the session-ended event.
	Reason string `json:"reason"`
}

// SessionPatch is the explicit set of fields a generic session update may touch.
type SessionPatch struct {
	Status   *SessionStatus      `json:"status"`
	AgentID  *primitive.ObjectID `json:"agentId"`
	Tags     []string            `json:"tags"`
	Rating   *int                `json:"rating" validate:"omitempty,min=1,max=5"`
	Feedback *string             `json:"feedback"`
}

func (p SessionPatch) Updates(now time.Time) bson.M {
	set := bson.M{
		"last_activity": now,
		"updated_at":    now,
	}
	if p.Status != nil {
		set["status"] = *p.Status
		if *p.Status == SessionClosed {
			set["ended_at"] = now
		}
	}
	if p.AgentID != nil {
		set["agent_id"] = *p.AgentID
	}
	if p.Tags != nil {
		set["tags"] = p.Tags
	}
	if p.Rating != nil {
		set["rating"] = *p.Rating
	}
	if p.Feedback != nil {
		set["feedback"] = *p.Feedback
	}
	return set
}

type SessionFilter struct {
	Status  SessionStatus
	AgentID *primitive.ObjectID
}

type SessionPage struct {
	Sessions []*ChatSession `json:"sessions"`
	Pagination
}

type SessionDetail struct {
	*ChatSession
	Messages []*Message `json:"messages"`
}

type SenderCount struct {
	SenderType SenderType `bson:"_id" json:"_id"`
	Count      int64      `bson:"count" json:"count"`
}

// SessionStats identifies the session by its route id; the uuid token is
// carried separately.
type SessionStats struct {
	SessionID           primitive.ObjectID `json:"sessionId"`
	SessionToken        string             `json:"sessionToken"`
	Duration            int64              `json:"duration"`
	MessageCount        int64              `json:"messageCount"`
	MessagesByType      []SenderCount      `json:"messagesByType"`
	AverageResponseTime float64            `json:"averageResponseTime"`
	Status              SessionStatus      `json:"status"`
	Rating              *int               `json:"rating"`
}
