package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/internal/repo/mongodb"
)

type NoteUsecase interface {
	Add(ctx context.Context, owner primitive.ObjectID, req models.AddNoteRequest) (*models.Note, error)
	Fetch(ctx context.Context, owner primitive.ObjectID) ([]*models.Note, error)
	Update(ctx context.Context, owner, id primitive.ObjectID, patch models.NotePatch) (*models.Note, error)
	Delete(ctx context.Context, owner, id primitive.ObjectID) (*models.Note, error)
}

type noteUsecase struct {
	notes mongodb.NoteRepository
	now   func() time.Time
}

func NewNoteUsecase(notes mongodb.NoteRepository) NoteUsecase {
	return &noteUsecase{notes: notes, now: time.Now}
}

func (uc *noteUsecase) Add(ctx context.Context, owner primitive.ObjectID, req models.AddNoteRequest) (*models.Note, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, models.InvalidArgument("title is required")
	}
	tag := strings.TrimSpace(req.Tag)
	if tag == "" {
		tag = models.DefaultNoteTag
	}
	now := uc.now()
	note := &models.Note{
		UserID:    owner,
		Title:     title,
		Content:   req.Content,
		Tag:       tag,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.notes.Create(ctx, note); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, models.AlreadyExists("A note with this title already exists")
		}
		return nil, err
	}
	return note, nil
}

func (uc *noteUsecase) Fetch(ctx context.Context, owner primitive.ObjectID) ([]*models.Note, error) {
	return uc.notes.FindByOwner(ctx, owner)
}

// owned loads the note and checks that owner wrote it.
func (uc *noteUsecase) owned(ctx context.Context, owner, id primitive.ObjectID) (*models.Note, error) {
	note, err := uc.notes.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Note")
	}
	if note.UserID != owner {
		return nil, models.ErrForbidden
	}
	return note, nil
}

func (uc *noteUsecase) Update(ctx context.Context, owner, id primitive.ObjectID, patch models.NotePatch) (*models.Note, error) {
	if _, err := uc.owned(ctx, owner, id); err != nil {
		return nil, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, models.InvalidArgument("title must not be empty")
	}
	note, err := uc.notes.Update(ctx, id, patch, uc.now())
	if errors.Is(err, models.ErrDuplicate) {
		return nil, models.AlreadyExists("A note with this title already exists")
	}
	if err != nil {
		return nil, notFound(err, "Note")
	}
	return note, nil
}

func (uc *noteUsecase) Delete(ctx context.Context, owner, id primitive.ObjectID) (*models.Note, error) {
	note, err := uc.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := uc.notes.Delete(ctx, id); err != nil {
		return nil, notFound(err, "Note")
	}
	return note, nil
}
