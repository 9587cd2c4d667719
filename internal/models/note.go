package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultNoteTag = "general"

type Note struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user"`
	Title     string             `bson:"title" json:"title"`
	Content   string             `bson:"content" json:"content"`
	Tag       string             `bson:"tag" json:"tag"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (Note) CollectionName() string {
	return "notes"
}

type AddNoteRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
	Tag     string `json:"tag"`
}

type NotePatch struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Tag     *string `json:"tag"`
}

func (p NotePatch) Updates(now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Content != nil {
		set["content"] = *p.Content
	}
	if p.Tag != nil {
		set["tag"] = *p.Tag
	}
	return set
}

type NoteResponse struct {
	Note *Note `json:"note"`
}
