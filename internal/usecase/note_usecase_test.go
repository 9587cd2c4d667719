package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"google.golang.org/grpc/codes"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/pkg/util"
)

func TestNotes(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	uc := NewNoteUsecase(fakeNoteRepo{store}).(*noteUsecase)
	uc.now = fixedClock(testStart, time.Minute)
	owner, stranger := primitive.NewObjectID(), primitive.NewObjectID()

	first, err := uc.Add(ctx, owner, models.AddNoteRequest{Title: "groceries", Content: "milk"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultNoteTag, first.Tag)
	second, err := uc.Add(ctx, owner, models.AddNoteRequest{Title: "work", Tag: "job"})
	require.NoError(t, err)

	_, err = uc.Add(ctx, owner, models.AddNoteRequest{Title: "groceries"})
	assert.Equal(t, codes.AlreadyExists, models.Code(err))
	_, err = uc.Add(ctx, stranger, models.AddNoteRequest{Title: "groceries"})
	assert.NoError(t, err, "titles are unique per owner only")
	_, err = uc.Add(ctx, owner, models.AddNoteRequest{Title: " "})
	assert.Equal(t, codes.InvalidArgument, models.Code(err))

	notes, err := uc.Fetch(ctx, owner)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID, "newest first")

	t.Run("update", func(t *testing.T) {
		_, err := uc.Update(ctx, stranger, first.ID, models.NotePatch{Content: util.Ptr("x")})
		assert.ErrorIs(t, err, models.ErrForbidden)
		_, err = uc.Update(ctx, owner, primitive.NewObjectID(), models.NotePatch{})
		assert.Equal(t, codes.NotFound, models.Code(err))

		updated, err := uc.Update(ctx, owner, first.ID, models.NotePatch{Content: util.Ptr("eggs")})
		require.NoError(t, err)
		assert.Equal(t, "eggs", updated.Content)
		assert.Equal(t, "groceries", updated.Title)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := uc.Delete(ctx, stranger, first.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)

		deleted, err := uc.Delete(ctx, owner, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, deleted.ID)
		_, err = uc.Delete(ctx, owner, first.ID)
		assert.Equal(t, codes.NotFound, models.Code(err))
	})
}
