// Package chatstore keeps the agent dashboard's view of visitors and their
// conversations. State changes only through Reduce; Store adds a single
// writer and change notifications on top.
package chatstore

import "time"

const (
	SenderVisitor = "visitor"
	SenderAgent   = "agent"
	SenderSystem  = "system"
)

type Visitor struct {
	ID               string    `json:"id"`
	VisitorID        string    `json:"visitorId"`
	Name             string    `json:"name"`
	DisplayName      string    `json:"displayName,omitempty"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Avatar           string    `json:"avatar,omitempty"`
	IsOnline         bool      `json:"isOnline"`
	LastSeen         time.Time `json:"lastSeen"`
	UnreadCount      int64     `json:"unreadCount"`
	CurrentSessionID string    `json:"currentSessionId,omitempty"`
}

type Attachment struct {
	FileName     string `json:"fileName"`
	FileURL      string `json:"fileUrl"`
	FileType     string `json:"fileType,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

type Message struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"sessionId"`
	VisitorID   string       `json:"visitorId"`
	AgentID     string       `json:"agentId,omitempty"`
	Content     string       `json:"content"`
	MessageType string       `json:"messageType"`
	SenderType  string       `json:"senderType"`
	IsRead      bool         `json:"isRead"`
	ReadAt      *time.Time   `json:"readAt,omitempty"`
	IsEdited    bool         `json:"isEdited"`
	EditedAt    *time.Time   `json:"editedAt,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Unread reports whether m counts towards a visitor's unread badge.
func (m Message) Unread() bool {
	return m.SenderType == SenderVisitor && !m.IsRead
}

// Thread is the conversation cache of one visitor. Loaded is false until
// SetMessages replaces the thread with the server history; until then it only
// holds messages received live. Pending counts unread messages the server
// reported that the thread does not hold, and is always zero once loaded.
type Thread struct {
	Messages    []Message
	UnreadCount int64
	Pending     int64
	LastMessage *Message
	IsTyping    bool
	Loaded      bool
}

type CurrentUser struct {
	ID     string
	Name   string
	Avatar string
	Status string
}

type UI struct {
	ActiveModal         string
	HighlightedMessages []string
	Loading             bool
	Error               string
}

// State is treated as immutable: Reduce never mutates the maps or slices of
// the state it receives.
type State struct {
	Visitors          []Visitor
	SelectedVisitorID string
	Messages          map[string]Thread
	UnreadCounts      map[string]int64
	CurrentUser       CurrentUser
	UI                UI
}

func InitialState() State {
	return State{
		Visitors:     []Visitor{},
		Messages:     map[string]Thread{},
		UnreadCounts: map[string]int64{},
		CurrentUser:  CurrentUser{Status: "online"},
	}
}
