package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is both a Keeper account and a support agent.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email" validate:"required,email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Avatar       string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	IsActive     bool               `bson:"is_active" json:"isActive"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (User) CollectionName() string {
	return "users"
}

type AgentStatus string

const (
	AgentOnline  AgentStatus = "online"
	AgentAway    AgentStatus = "away"
	AgentBusy    AgentStatus = "busy"
	AgentOffline AgentStatus = "offline"
)

func (s AgentStatus) Valid() bool {
	switch s {
	case AgentOnline, AgentAway, AgentBusy, AgentOffline:
		return true
	}
	return false
}

type AgentPresence struct {
	AgentID   string      `json:"agentId"`
	Status    AgentStatus `json:"status"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
