package chatstore

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func visitorMsg(id string, read bool) Message {
	return Message{ID: id, VisitorID: "v1", Content: "hi " + id, SenderType: SenderVisitor, IsRead: read}
}

func agentMsg(id string) Message {
	return Message{ID: id, VisitorID: "v1", Content: "re " + id, SenderType: SenderAgent}
}

func apply(s State, actions ...Action) State {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func assertUnreadInvariant(t *testing.T, s State) {
	t.Helper()
	for visitorID := range s.UnreadCounts {
		assert.Contains(t, s.Messages, visitorID, "badge without thread for %s", visitorID)
	}
	for visitorID, thread := range s.Messages {
		if thread.Loaded {
			assert.Zero(t, thread.Pending, "pending count of loaded %s", visitorID)
		}
		want := countUnread(thread.Messages) + thread.Pending
		assert.Equal(t, want, thread.UnreadCount, "thread count of %s", visitorID)
		assert.Equal(t, want, s.UnreadCounts[visitorID], "badge count of %s", visitorID)
	}
}

func TestReduceUnreadInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	// v1 starts loaded, v2 and v3 only ever see live traffic and server counts
	s := Reduce(InitialState(), SetMessages{VisitorID: "v1"})
	visitors := []string{"v1", "v2", "v3"}
	ids := map[string][]string{}

	for i := range 1000 {
		v := visitors[rng.IntN(len(visitors))]
		switch rng.IntN(7) {
		case 0, 1, 2:
			id := fmt.Sprintf("m%d", i)
			ids[v] = append(ids[v], id)
			m := visitorMsg(id, rng.IntN(5) == 0)
			if rng.IntN(3) == 0 {
				m = agentMsg(id)
			}
			s = Reduce(s, AddMessage{VisitorID: v, Message: m})
		case 3:
			var subset []string
			for _, id := range ids[v] {
				if rng.IntN(3) == 0 {
					subset = append(subset, id)
				}
			}
			s = Reduce(s, MarkMessagesRead{VisitorID: v, MessageIDs: subset, ReadAt: time.Now()})
		case 4:
			if len(ids[v]) > 0 {
				read := rng.IntN(2) == 0
				s = Reduce(s, UpdateMessage{VisitorID: v, MessageID: ids[v][rng.IntN(len(ids[v]))], Patch: MessagePatch{IsRead: &read}})
			}
		case 5:
			s = Reduce(s, UpdateUnreadCount{VisitorID: v, Count: rng.Int64N(10)})
		case 6:
			s = Reduce(s, SetTypingStatus{VisitorID: v, IsTyping: rng.IntN(2) == 0})
		}
		assertUnreadInvariant(t, s)
	}
}

func TestReduceMessages(t *testing.T) {
	s := apply(InitialState(),
		SetMessages{VisitorID: "v1", Messages: []Message{visitorMsg("a", false), agentMsg("b"), visitorMsg("c", true)}},
	)
	assert.EqualValues(t, 1, s.UnreadCounts["v1"])
	assert.Equal(t, "c", s.Messages["v1"].LastMessage.ID)

	t.Run("add counts unread visitor messages only", func(t *testing.T) {
		next := apply(s, AddMessage{VisitorID: "v1", Message: agentMsg("d")})
		assert.EqualValues(t, 1, next.UnreadCounts["v1"])
		next = apply(next, AddMessage{VisitorID: "v1", Message: visitorMsg("e", false)})
		assert.EqualValues(t, 2, next.UnreadCounts["v1"])
		assert.Equal(t, "e", next.Messages["v1"].LastMessage.ID)
	})

	t.Run("add with a known id replaces", func(t *testing.T) {
		edited := visitorMsg("a", false)
		edited.Content = "edited"
		next := apply(s, AddMessage{VisitorID: "v1", Message: edited})
		require.Len(t, next.Messages["v1"].Messages, 3)
		assert.Equal(t, "edited", next.Messages["v1"].Messages[0].Content)
		assert.EqualValues(t, 1, next.UnreadCounts["v1"])
	})

	t.Run("mark listed ids", func(t *testing.T) {
		next := apply(s,
			AddMessage{VisitorID: "v1", Message: visitorMsg("d", false)},
			MarkMessagesRead{VisitorID: "v1", MessageIDs: []string{"a"}, ReadAt: time.Now()},
		)
		assert.EqualValues(t, 1, next.UnreadCounts["v1"])
		assert.True(t, next.Messages["v1"].Messages[0].IsRead)
		assert.NotNil(t, next.Messages["v1"].Messages[0].ReadAt)
		assert.False(t, next.Messages["v1"].Messages[3].IsRead)
	})

	t.Run("mark all", func(t *testing.T) {
		next := apply(s,
			AddMessage{VisitorID: "v1", Message: visitorMsg("d", false)},
			MarkMessagesRead{VisitorID: "v1"},
		)
		assert.Zero(t, next.UnreadCounts["v1"])
		assert.Zero(t, next.Messages["v1"].UnreadCount)
	})

	t.Run("set messages keeps typing flag", func(t *testing.T) {
		next := apply(s,
			SetTypingStatus{VisitorID: "v1", IsTyping: true},
			SetMessages{VisitorID: "v1", Messages: nil},
		)
		assert.True(t, next.Messages["v1"].IsTyping)
		assert.Nil(t, next.Messages["v1"].LastMessage)
		assert.Zero(t, next.UnreadCounts["v1"])
	})

	t.Run("unknown message id is a no-op", func(t *testing.T) {
		read := true
		next := apply(s, UpdateMessage{VisitorID: "v1", MessageID: "zzz", Patch: MessagePatch{IsRead: &read}})
		assert.Equal(t, s.Messages["v1"], next.Messages["v1"])
	})
}

func TestReduceUnloadedThread(t *testing.T) {
	s := apply(InitialState(),
		UpdateUnreadCount{VisitorID: "v2", Count: 4},
		AddMessage{VisitorID: "v2", Message: Message{ID: "x", SenderType: SenderVisitor}},
		SetTypingStatus{VisitorID: "v2", IsTyping: true},
	)
	assert.EqualValues(t, 5, s.UnreadCounts["v2"])
	require.Len(t, MessagesFor(s, "v2"), 1)
	assert.False(t, s.Messages["v2"].Loaded)
	assert.True(t, s.Messages["v2"].IsTyping)
	assertUnreadInvariant(t, s)

	// once loaded, the thread wins over server counts
	s = apply(s,
		SetMessages{VisitorID: "v2", Messages: []Message{{ID: "x", SenderType: SenderVisitor}}},
		UpdateUnreadCount{VisitorID: "v2", Count: 9},
	)
	assert.EqualValues(t, 1, s.UnreadCounts["v2"])
	assertUnreadInvariant(t, s)
}

func TestReduceLiveMessageWithoutThread(t *testing.T) {
	s := Reduce(InitialState(), AddMessage{VisitorID: "v1", Message: Message{ID: "m1", SenderType: SenderVisitor}})
	require.Len(t, MessagesFor(s, "v1"), 1)
	assert.EqualValues(t, 1, s.UnreadCounts["v1"])
	assert.Equal(t, "m1", s.Messages["v1"].LastMessage.ID)
	assertUnreadInvariant(t, s)

	t.Run("server count includes held messages", func(t *testing.T) {
		next := Reduce(s, UpdateUnreadCount{VisitorID: "v1", Count: 3})
		assert.EqualValues(t, 3, next.UnreadCounts["v1"])
		assert.EqualValues(t, 2, next.Messages["v1"].Pending)
		assertUnreadInvariant(t, next)
	})

	t.Run("history replaces live messages", func(t *testing.T) {
		next := apply(s,
			UpdateUnreadCount{VisitorID: "v1", Count: 3},
			SetMessages{VisitorID: "v1", Messages: []Message{visitorMsg("m0", true), {ID: "m1", SenderType: SenderVisitor}}},
		)
		assert.EqualValues(t, 1, next.UnreadCounts["v1"])
		assert.Zero(t, next.Messages["v1"].Pending)
		assertUnreadInvariant(t, next)
	})
}

func TestReduceMarkReadClearsUnloadedBadge(t *testing.T) {
	s := apply(InitialState(),
		AddMessage{VisitorID: "v1", Message: Message{ID: "m1", SenderType: SenderVisitor}},
		MarkMessagesRead{VisitorID: "v1", MessageIDs: []string{"m1"}, ReadAt: time.Now()},
	)
	assert.Zero(t, s.UnreadCounts["v1"])
	assert.True(t, MessagesFor(s, "v1")[0].IsRead)
	assertUnreadInvariant(t, s)

	// ids the thread does not hold still clear the server count
	s = apply(s,
		UpdateUnreadCount{VisitorID: "v1", Count: 4},
		MarkMessagesRead{VisitorID: "v1", MessageIDs: []string{"older"}, ReadAt: time.Now()},
	)
	assert.Zero(t, s.UnreadCounts["v1"])
	assertUnreadInvariant(t, s)
}

func TestReduceVisitors(t *testing.T) {
	s := apply(InitialState(),
		SetVisitors{Visitors: []Visitor{{ID: "v1", Name: "Ann"}, {ID: "v2", Name: "Bob"}}},
		AddVisitor{Visitor: Visitor{ID: "v3"}},
		SelectVisitor{ID: "v2"},
		SetMessages{VisitorID: "v2", Messages: []Message{{ID: "m", SenderType: SenderVisitor}}},
	)
	require.Len(t, s.Visitors, 3)

	online := true
	name := "Robert"
	s = Reduce(s, UpdateVisitor{ID: "v2", Patch: VisitorPatch{Name: &name, IsOnline: &online}})
	v, ok := VisitorByID(s, "v2")
	require.True(t, ok)
	assert.Equal(t, "Robert", v.Name)
	assert.True(t, v.IsOnline)

	s = Reduce(s, RemoveVisitor{ID: "v2"})
	_, ok = VisitorByID(s, "v2")
	assert.False(t, ok)
	assert.Empty(t, s.SelectedVisitorID)
	assert.NotContains(t, s.Messages, "v2")
	assert.NotContains(t, s.UnreadCounts, "v2")

	s = apply(s, SelectVisitor{ID: "v1"}, RemoveVisitor{ID: "v3"})
	assert.Equal(t, "v1", s.SelectedVisitorID)
}

func TestReduceUserAndUI(t *testing.T) {
	id, status := "agent-1", "busy"
	s := apply(InitialState(),
		SetCurrentUser{Patch: CurrentUserPatch{ID: &id}},
		SetCurrentUser{Patch: CurrentUserPatch{Status: &status}},
		SetHighlightedMessages{IDs: []string{"m1"}},
		SetLoading{Loading: true},
		SetError{Error: "boom"},
		SetActiveModal{Modal: "transfer"},
	)
	assert.Equal(t, CurrentUser{ID: "agent-1", Status: "busy"}, s.CurrentUser)
	assert.Equal(t, UI{ActiveModal: "transfer", HighlightedMessages: []string{"m1"}, Loading: true, Error: "boom"}, s.UI)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	before := apply(InitialState(),
		SetVisitors{Visitors: []Visitor{{ID: "v1"}}},
		SetMessages{VisitorID: "v1", Messages: []Message{visitorMsg("a", false)}},
	)
	_ = apply(before,
		AddMessage{VisitorID: "v1", Message: visitorMsg("b", false)},
		MarkMessagesRead{VisitorID: "v1"},
		UpdateVisitor{ID: "v1", Patch: VisitorPatch{Name: new(string)}},
		RemoveVisitor{ID: "v1"},
		SetTypingStatus{VisitorID: "v1", IsTyping: true},
	)

	assert.Len(t, before.Visitors, 1)
	require.Len(t, before.Messages["v1"].Messages, 1)
	assert.False(t, before.Messages["v1"].Messages[0].IsRead)
	assert.EqualValues(t, 1, before.UnreadCounts["v1"])
	assert.False(t, before.Messages["v1"].IsTyping)
}

func TestReduceZeroState(t *testing.T) {
	s := apply(State{},
		SetTypingStatus{VisitorID: "v1", IsTyping: true},
		SetMessages{VisitorID: "v1", Messages: []Message{visitorMsg("a", false)}},
	)
	assert.EqualValues(t, 1, s.UnreadCounts["v1"])
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "MARK_MESSAGES_READ", MarkMessagesRead{}.Kind().String())
	assert.Equal(t, "UNKNOWN", Kind(0).String())
}
