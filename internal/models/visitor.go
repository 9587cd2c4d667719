package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultVisitorName = "Anonymous Visitor"

type Location struct {
	Country string `bson:"country,omitempty" json:"country,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	// Coordinates are [longitude, latitude].
	Coordinates []float64 `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

type Visitor struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VisitorID     string             `bson:"visitor_id" json:"visitorId"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone         string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Avatar        string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	IsOnline      bool               `bson:"is_online" json:"isOnline"`
	LastSeen      time.Time          `bson:"last_seen" json:"lastSeen"`
	IPAddress     string             `bson:"ip_address,omitempty" json:"ipAddress,omitempty"`
	UserAgent     string             `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	Location      *Location          `bson:"location,omitempty" json:"location,omitempty"`
	SessionCount  int64              `bson:"session_count" json:"sessionCount"`
	TotalMessages int64              `bson:"total_messages" json:"totalMessages"`
	FirstVisit    time.Time          `bson:"first_visit" json:"firstVisit"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`

	DisplayName      string `bson:"-" json:"displayName,omitempty"`
	CurrentSessionID string `bson:"-" json:"currentSessionId,omitempty"`
}

func (Visitor) CollectionName() string {
	return "visitors"
}

// VisitorSummary is embedded into session responses.
type VisitorSummary struct {
	ID          primitive.ObjectID `json:"id"`
	VisitorID   string             `json:"visitorId"`
	Name        string             `json:"name"`
	DisplayName string             `json:"displayName,omitempty"`
	Email       string             `json:"email,omitempty"`
	Avatar      string             `json:"avatar,omitempty"`
	IsOnline    bool               `json:"isOnline"`
}

func (v *Visitor) Summary() *VisitorSummary {
	return &VisitorSummary{
		ID:          v.ID,
		VisitorID:   v.VisitorID,
		Name:        v.Name,
		DisplayName: v.DisplayName,
		Email:       v.Email,
		Avatar:      v.Avatar,
		IsOnline:    v.IsOnline,
	}
}

type UpsertVisitorRequest struct {
	VisitorID string    `json:"visitorId" validate:"required"`
	Name      string    `json:"name"`
	Email     string    `json:"email" validate:"omitempty,email"`
	Phone     string    `json:"phone"`
	Avatar    string    `json:"avatar"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	Location  *Location `json:"location"`
}

// VisitorPatch lists the profile fields a PUT may change; nil means keep.
type VisitorPatch struct {
	Name   *string `json:"name"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Phone  *string `json:"phone"`
	Avatar *string `json:"avatar"`
}

func (p VisitorPatch) Updates(now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	if p.Avatar != nil {
		set["avatar"] = *p.Avatar
	}
	return set
}

type VisitorFilter struct {
	Online *bool
	Search string
}

type VisitorDetail struct {
	*Visitor
	RecentSessions []*ChatSession `json:"recentSessions"`
	UnreadCount    int64          `json:"unreadCount"`
}

type VisitorListItem struct {
	*Visitor
	UnreadCount int64 `json:"unreadCount"`
}

type VisitorPage struct {
	Visitors []*VisitorListItem `json:"visitors"`
	Pagination
}

type VisitorStats struct {
	TotalSessions          int64   `json:"totalSessions"`
	TotalMessages          int64   `json:"totalMessages"`
	AverageSessionDuration float64 `json:"averageSessionDuration"`
	AverageRating          float64 `json:"averageRating"`
}
