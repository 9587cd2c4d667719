package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
	MessageEmoji  MessageType = "emoji"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageSystem, MessageEmoji:
		return true
	}
	return false
}

type SenderType string

const (
	SenderVisitor SenderType = "visitor"
	SenderAgent   SenderType = "agent"
	SenderSystem  SenderType = "system"
)

func (t SenderType) Valid() bool {
	switch t {
	case SenderVisitor, SenderAgent, SenderSystem:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliverySent, DeliveryDelivered, DeliveryFailed:
		return true
	}
	return false
}

type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
	ReactionLove    Reaction = "love"
	ReactionLaugh   Reaction = "laugh"
	ReactionAngry   Reaction = "angry"
	ReactionSad     Reaction = "sad"
)

func (r Reaction) Valid() bool {
	switch r {
	case ReactionLike, ReactionDislike, ReactionLove, ReactionLaugh, ReactionAngry, ReactionSad:
		return true
	}
	return false
}

type Attachment struct {
	FileName     string `bson:"file_name" json:"fileName"`
	FileURL      string `bson:"file_url" json:"fileUrl"`
	FileType     string `bson:"file_type,omitempty" json:"fileType,omitempty"`
	FileSize     int64  `bson:"file_size,omitempty" json:"fileSize,omitempty"`
	ThumbnailURL string `bson:"thumbnail_url,omitempty" json:"thumbnailUrl,omitempty"`
}

type ReadReceipt struct {
	UserID primitive.ObjectID `bson:"user_id" json:"userId"`
	ReadAt time.Time          `bson:"read_at" json:"readAt"`
}

type MessageMetadata struct {
	IPAddress      string         `bson:"ip_address,omitempty" json:"ipAddress,omitempty"`
	UserAgent      string         `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	Timestamp      time.Time      `bson:"timestamp" json:"timestamp"`
	DeliveryStatus DeliveryStatus `bson:"delivery_status" json:"deliveryStatus"`
	ReadReceipts   []ReadReceipt  `bson:"read_receipts" json:"readReceipts"`
}

type MessageReaction struct {
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	Reaction  Reaction           `bson:"reaction" json:"reaction"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

type Message struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	SessionID    primitive.ObjectID  `bson:"session_id" json:"sessionId"`
	VisitorID    primitive.ObjectID  `bson:"visitor_id" json:"visitorId"`
	AgentID      *primitive.ObjectID `bson:"agent_id,omitempty" json:"agentId,omitempty"`
	Content      string              `bson:"content" json:"content"`
	MessageType  MessageType         `bson:"message_type" json:"messageType"`
	SenderType   SenderType          `bson:"sender_type" json:"senderType"`
	IsRead       bool                `bson:"is_read" json:"isRead"`
	ReadAt       *time.Time          `bson:"read_at,omitempty" json:"readAt,omitempty"`
	IsEdited     bool                `bson:"is_edited" json:"isEdited"`
	EditedAt     *time.Time          `bson:"edited_at,omitempty" json:"editedAt,omitempty"`
	ReplyTo      *primitive.ObjectID `bson:"reply_to,omitempty" json:"replyTo,omitempty"`
	Attachments  []Attachment        `bson:"attachments" json:"attachments"`
	Metadata     MessageMetadata     `bson:"metadata" json:"metadata"`
	Reactions    []MessageReaction   `bson:"reactions" json:"reactions"`
	ResponseTime *float64            `bson:"response_time,omitempty" json:"responseTime,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updatedAt"`
}

func (Message) CollectionName() string {
	return "messages"
}

type PostMessageRequest struct {
	SessionID   primitive.ObjectID  `json:"-"`
	Content     string              `json:"content"`
	MessageType MessageType         `json:"messageType"`
	SenderType  SenderType          `json:"senderType"`
	AgentID     *primitive.ObjectID `json:"agentId"`
	Attachments []Attachment        `json:"attachments"`
	ReplyTo     *primitive.ObjectID `json:"replyTo"`
	IPAddress   string              `json:"-"`
	UserAgent   string              `json:"-"`
}

type MarkReadRequest struct {
	MessageIDs []primitive.ObjectID `json:"messageIds" validate:"required,min=1"`
	ReaderID   primitive.ObjectID   `json:"readerId"`
	VisitorID  *primitive.ObjectID  `json:"visitorId"`
}

type EditMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type ReactRequest struct {
	UserID   primitive.ObjectID `json:"userId" validate:"required"`
	Reaction Reaction           `json:"reaction" validate:"required"`
}

type DeliveryStatusRequest struct {
	Status DeliveryStatus `json:"status" validate:"required"`
}

type MessagePage struct {
	Messages []*Message `json:"messages"`
	Pagination
}

type UnreadCount struct {
	VisitorID   primitive.ObjectID `json:"visitorId"`
	UnreadCount int64              `json:"unreadCount"`
}
