package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"google.golang.org/grpc/codes"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/pkg/util"
)

func TestCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("pending without agent, active with agent", func(t *testing.T) {
		env := newTestEnv(t)
		v := env.visitor(t, "v-1")

		s, err := env.sessions.Create(ctx, models.CreateSessionRequest{VisitorID: v.ID})
		require.NoError(t, err)
		assert.Equal(t, models.SessionPending, s.Status)
		assert.Equal(t, models.SourceWebsite, s.Metadata.Source)
		assert.Len(t, s.SessionID, 36)
		require.NotNil(t, s.Visitor)
		assert.Equal(t, "Visitor v-1", s.Visitor.DisplayName)
		assert.Equal(t, int64(1), env.store.visitors[v.ID].SessionCount)
		assert.Equal(t, models.EventVisitorJoined, env.events.last().Name)

		other := env.visitor(t, "v-2")
		agent := primitive.NewObjectID()
		s2, err := env.sessions.Create(ctx, models.CreateSessionRequest{VisitorID: other.ID, AgentID: &agent})
		require.NoError(t, err)
		assert.Equal(t, models.SessionActive, s2.Status)
	})

	t.Run("unknown visitor", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sessions.Create(ctx, models.CreateSessionRequest{VisitorID: primitive.NewObjectID()})
		assert.Equal(t, codes.NotFound, models.Code(err))
		assert.Contains(t, err.Error(), "Visitor not found")
	})

	t.Run("duplicate active session conflicts with existing id", func(t *testing.T) {
		env := newTestEnv(t)
		v := env.visitor(t, "v-1")
		agent := primitive.NewObjectID()
		first, err := env.sessions.Create(ctx, models.CreateSessionRequest{VisitorID: v.ID, AgentID: &agent})
		require.NoError(t, err)

		_, err = env.sessions.Create(ctx, models.CreateSessionRequest{VisitorID: v.ID})
		var conflict *models.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, first.ID.Hex(), conflict.SessionID)
		assert.Equal(t, codes.AlreadyExists, models.Code(err))
		assert.Len(t, env.store.sessions, 1)
	})
}

func TestAssignAndTransfer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	v := env.visitor(t, "v-1")
	s, err := env.sessions.Create(ctx, models.CreateSessionRequest{VisitorID: v.ID})
	require.NoError(t, err)

	a1, a2 := primitive.NewObjectID(), primitive.NewObjectID()
	assigned, err := env.sessions.Assign(ctx, s.ID, a1)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, assigned.Status)
	assert.Equal(t, a1, *assigned.AgentID)
	ev := env.events.last()
	assert.Equal(t, models.EventAgentAssigned, ev.Name)
	assert.Contains(t, ev.Rooms, models.AgentRoom(a1.Hex()))

	transferred, err := env.sessions.Transfer(ctx, s.ID, models.TransferSessionRequest{FromAgentID: &a1, ToAgentID: a2})
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, transferred.Status)
	assert.Equal(t, a2, *transferred.AgentID)
	require.Len(t, transferred.TransferHistory, 1)
	assert.Equal(t, models.DefaultTransferReason, transferred.TransferHistory[0].Reason)
	payload := env.events.last().Payload.(models.AgentAssignedPayload)
	require.NotNil(t, payload.Transfer)
	assert.Equal(t, a2, payload.Transfer.ToAgent)

	t.Run("assign while another session is active", func(t *testing.T) {
		second := &models.ChatSession{VisitorID: v.ID, Status: models.SessionPending}
		require.NoError(t, fakeSessionRepo{env.store}.Create(ctx, second))
		_, err := env.sessions.Assign(ctx, second.ID, a1)
		var conflict *models.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, s.ID.Hex(), conflict.SessionID)
	})

	t.Run("closed sessions stay closed", func(t *testing.T) {
		_, err := env.sessions.Close(ctx, s.ID, models.CloseSessionRequest{})
		require.NoError(t, err)
		_, err = env.sessions.Assign(ctx, s.ID, a1)
		assert.Equal(t, codes.InvalidArgument, models.Code(err))
		_, err = env.sessions.Transfer(ctx, s.ID, models.TransferSessionRequest{ToAgentID: a2})
		assert.Equal(t, codes.InvalidArgument, models.Code(err))
		assert.Equal(t, models.SessionClosed, env.store.sessions[s.ID].Status)
	})

	t.Run("missing session", func(t *testing.T) {
		_, err := env.sessions.Assign(ctx, primitive.NewObjectID(), a1)
		assert.Equal(t, codes.NotFound, models.Code(err))
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	v := env.visitor(t, "v-1")
	s, err := env.sessions.Create(ctx, models.CreateSessionRequest{VisitorID: v.ID})
	require.NoError(t, err)

	first, err := env.sessions.Close(ctx, s.ID, models.CloseSessionRequest{Rating: util.Ptr(4)})
	require.NoError(t, err)
	second, err := env.sessions.Close(ctx, s.ID, models.CloseSessionRequest{})
	require.NoError(t, err)

	for _, c := range []*models.ChatSession{first, second} {
		assert.Equal(t, models.SessionClosed, c.Status)
		assert.NotNil(t, c.EndedAt)
	}
	assert.Nil(t, second.Rating)
	assert.Equal(t, models.EventSessionEnded, env.events.last().Name)

	_, err = env.sessions.Close(ctx, s.ID, models.CloseSessionRequest{Rating: util.Ptr(9)})
	assert.Equal(t, codes.InvalidArgument, models.Code(err))
}

func TestUpdateSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	v := env.visitor(t, "v-1")
	s, err := env.sessions.Create(ctx, models.CreateSessionRequest{VisitorID: v.ID})
	require.NoError(t, err)

	closed := models.SessionClosed
	updated, err := env.sessions.Update(ctx, s.ID, models.SessionPatch{Status: &closed, Tags: []string{"vip"}})
	require.NoError(t, err)
	assert.Equal(t, models.SessionClosed, updated.Status)
	assert.NotNil(t, updated.EndedAt)
	assert.Equal(t, []string{"vip"}, updated.Tags)

	bogus := models.SessionStatus("archived")
	_, err = env.sessions.Update(ctx, s.ID, models.SessionPatch{Status: &bogus})
	assert.Equal(t, codes.InvalidArgument, models.Code(err))
}

func TestDeleteSessionCascades(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	v := env.visitor(t, "v-1")
	keep, err := env.sessions.Create(ctx, models.CreateSessionRequest{VisitorID: v.ID})
	require.NoError(t, err)
	_, err = env.messages.Post(ctx, models.PostMessageRequest{SessionID: keep.ID, Content: "kept", SenderType: models.SenderVisitor})
	require.NoError(t, err)
	_, err = env.sessions.Close(ctx, keep.ID, models.CloseSessionRequest{})
	require.NoError(t, err)

	gone, err := env.sessions.Create(ctx, models.CreateSessionRequest{VisitorID: v.ID})
	require.NoError(t, err)
	for _, c := range []string{"a", "b"} {
		_, err := env.messages.Post(ctx, models.PostMessageRequest{SessionID: gone.ID, Content: c, SenderType: models.SenderVisitor})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), env.store.visitors[v.ID].TotalMessages)

	require.NoError(t, env.sessions.Delete(ctx, gone.ID))

	left, err := fakeMessageRepo{env.store}.AllBySession(ctx, gone.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Len(t, env.store.messages, 1)
	assert.Equal(t, int64(1), env.store.visitors[v.ID].SessionCount)
	assert.Equal(t, int64(1), env.store.visitors[v.ID].TotalMessages)

	assert.Equal(t, codes.NotFound, models.Code(env.sessions.Delete(ctx, gone.ID)))
}

// A visitor says hello, an agent picks the session up and answers, then the
// visitor rates the chat.
func TestSessionLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	v := env.visitor(t, "v-100")

	s, err := env.sessions.Create(ctx, models.CreateSessionRequest{VisitorID: v.ID})
	require.NoError(t, err)
	assert.Equal(t, models.SessionPending, s.Status)

	_, err = env.messages.Post(ctx, models.PostMessageRequest{SessionID: s.ID, Content: "Hello", SenderType: models.SenderVisitor})
	require.NoError(t, err)

	agent := primitive.NewObjectID()
	s, err = env.sessions.Assign(ctx, s.ID, agent)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, s.Status)

	reply, err := env.messages.Post(ctx, models.PostMessageRequest{
		SessionID: s.ID, Content: "Hi, how can I help?", SenderType: models.SenderAgent, AgentID: &agent,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ResponseTime)
	assert.Greater(t, *reply.ResponseTime, 0.0)
	assert.Equal(t, agent, *reply.AgentID)

	closed, err := env.sessions.Close(ctx, s.ID, models.CloseSessionRequest{Rating: util.Ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, *closed.Rating)
	assert.Equal(t, int64(2), closed.MessageCount)

	detail, err := env.sessions.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "Hello", detail.Messages[0].Content)
	assert.Equal(t, models.SenderAgent, detail.Messages[1].SenderType)
	assert.Equal(t, models.SessionClosed, detail.Status)

	stats, err := env.sessions.Stats(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, stats.SessionID)
	assert.Equal(t, s.SessionID, stats.SessionToken)
	assert.Equal(t, int64(2), stats.MessageCount)
	assert.Equal(t, []models.SenderCount{{SenderType: models.SenderAgent, Count: 1}, {SenderType: models.SenderVisitor, Count: 1}}, stats.MessagesByType)
	assert.Positive(t, stats.Duration)
	assert.Equal(t, *reply.ResponseTime, stats.AverageResponseTime)

	text, err := env.sessions.Transcript(ctx, s.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "VISITOR: Hello")
	assert.Contains(t, text, "AGENT: Hi, how can I help?")
	assert.Contains(t, text, "(closed)")
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for _, id := range []string{"v-1", "v-2", "v-3"} {
		v := env.visitor(t, id)
		_, err := env.sessions.Create(ctx, models.CreateSessionRequest{VisitorID: v.ID})
		require.NoError(t, err)
	}

	page, err := env.sessions.List(ctx, models.SessionFilter{Status: models.SessionPending}, models.NewPageRequest(1, 2, DefaultSessionPageSize))
	require.NoError(t, err)
	assert.Len(t, page.Sessions, 2)
	assert.Equal(t, models.Pagination{TotalPages: 2, CurrentPage: 1, Total: 3}, page.Pagination)
	for _, s := range page.Sessions {
		assert.NotNil(t, s.Visitor)
	}
}
