package chatstore

import (
	"maps"
	"slices"
)

// Reduce returns the state after applying a. It has no side effects and never
// writes to the maps or slices shared with s. Unknown actions return s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetVisitors:
		s.Visitors = slices.Clone(a.Visitors)
	case AddVisitor:
		s.Visitors = append(slices.Clone(s.Visitors), a.Visitor)
	case UpdateVisitor:
		s.Visitors = updateVisitor(s.Visitors, a)
	case RemoveVisitor:
		s = removeVisitor(s, a.ID)
	case SelectVisitor:
		s.SelectedVisitorID = a.ID
	case SetMessages:
		thread := s.Messages[a.VisitorID]
		thread.Messages = slices.Clone(a.Messages)
		thread.Loaded = true
		thread.Pending = 0
		s = putThread(s, a.VisitorID, thread)
	case AddMessage:
		s = addMessage(s, a)
	case UpdateMessage:
		s = updateMessage(s, a)
	case MarkMessagesRead:
		s = markRead(s, a)
	case SetTypingStatus:
		thread := s.Messages[a.VisitorID]
		thread.IsTyping = a.IsTyping
		s.Messages = withThread(s.Messages, a.VisitorID, thread)
	case UpdateUnreadCount:
		if thread := s.Messages[a.VisitorID]; !thread.Loaded {
			thread.Pending = max(0, a.Count-countUnread(thread.Messages))
			s = putThread(s, a.VisitorID, thread)
		}
	case SetCurrentUser:
		s.CurrentUser = patchUser(s.CurrentUser, a.Patch)
	case SetHighlightedMessages:
		s.UI.HighlightedMessages = slices.Clone(a.IDs)
	case SetLoading:
		s.UI.Loading = a.Loading
	case SetError:
		s.UI.Error = a.Error
	case SetActiveModal:
		s.UI.ActiveModal = a.Modal
	}
	return s
}

// putThread stores thread with its derived fields recomputed and mirrors the
// unread count into UnreadCounts. Every path that changes the messages or
// the pending count of a thread goes through here.
func putThread(s State, visitorID string, thread Thread) State {
	thread.UnreadCount = countUnread(thread.Messages) + thread.Pending
	thread.LastMessage = nil
	if n := len(thread.Messages); n > 0 {
		last := thread.Messages[n-1]
		thread.LastMessage = &last
	}
	s.Messages = withThread(s.Messages, visitorID, thread)
	s.UnreadCounts = withCount(s.UnreadCounts, visitorID, thread.UnreadCount)
	return s
}

func countUnread(messages []Message) int64 {
	var n int64
	for _, m := range messages {
		if m.Unread() {
			n++
		}
	}
	return n
}

func withThread(threads map[string]Thread, visitorID string, thread Thread) map[string]Thread {
	threads = maps.Clone(threads)
	if threads == nil {
		threads = map[string]Thread{}
	}
	threads[visitorID] = thread
	return threads
}

func withCount(counts map[string]int64, visitorID string, n int64) map[string]int64 {
	counts = maps.Clone(counts)
	if counts == nil {
		counts = map[string]int64{}
	}
	counts[visitorID] = n
	return counts
}

// addMessage appends to the thread, creating it when missing, and replaces a
// message with the same id. Loaded is left alone so a later SetMessages still
// replaces what arrived live.
func addMessage(s State, a AddMessage) State {
	thread := s.Messages[a.VisitorID]
	idx := slices.IndexFunc(thread.Messages, func(m Message) bool {
		return a.Message.ID != "" && m.ID == a.Message.ID
	})
	messages := slices.Clone(thread.Messages)
	if idx >= 0 {
		messages[idx] = a.Message
	} else {
		messages = append(messages, a.Message)
	}
	thread.Messages = messages
	return putThread(s, a.VisitorID, thread)
}

func updateMessage(s State, a UpdateMessage) State {
	thread, ok := s.Messages[a.VisitorID]
	if !ok {
		return s
	}
	idx := slices.IndexFunc(thread.Messages, func(m Message) bool { return m.ID == a.MessageID })
	if idx < 0 {
		return s
	}
	messages := slices.Clone(thread.Messages)
	messages[idx] = patchMessage(messages[idx], a.Patch)
	thread.Messages = messages
	return putThread(s, a.VisitorID, thread)
}

// markRead marks the listed messages, all of them when none are listed. The
// pending count of a thread that is not loaded is dropped as well, since the
// read ids cannot be matched against messages that are not held.
func markRead(s State, a MarkMessagesRead) State {
	thread := s.Messages[a.VisitorID]
	thread.Pending = 0

	ids := make(map[string]struct{}, len(a.MessageIDs))
	for _, id := range a.MessageIDs {
		ids[id] = struct{}{}
	}
	messages := slices.Clone(thread.Messages)
	for i, m := range messages {
		if _, listed := ids[m.ID]; len(ids) > 0 && !listed {
			continue
		}
		if !m.IsRead {
			readAt := a.ReadAt
			m.IsRead = true
			m.ReadAt = &readAt
			messages[i] = m
		}
	}
	thread.Messages = messages
	return putThread(s, a.VisitorID, thread)
}

func updateVisitor(visitors []Visitor, a UpdateVisitor) []Visitor {
	out := slices.Clone(visitors)
	for i, v := range out {
		if v.ID == a.ID {
			out[i] = patchVisitor(v, a.Patch)
		}
	}
	return out
}

func removeVisitor(s State, id string) State {
	s.Visitors = slices.DeleteFunc(slices.Clone(s.Visitors), func(v Visitor) bool { return v.ID == id })
	if s.SelectedVisitorID == id {
		s.SelectedVisitorID = ""
	}
	if _, ok := s.Messages[id]; ok {
		s.Messages = maps.Clone(s.Messages)
		delete(s.Messages, id)
	}
	if _, ok := s.UnreadCounts[id]; ok {
		s.UnreadCounts = maps.Clone(s.UnreadCounts)
		delete(s.UnreadCounts, id)
	}
	return s
}

func patchVisitor(v Visitor, p VisitorPatch) Visitor {
	setIf(&v.Name, p.Name)
	setIf(&v.DisplayName, p.DisplayName)
	setIf(&v.Email, p.Email)
	setIf(&v.Phone, p.Phone)
	setIf(&v.Avatar, p.Avatar)
	setIf(&v.IsOnline, p.IsOnline)
	setIf(&v.LastSeen, p.LastSeen)
	return v
}

func patchMessage(m Message, p MessagePatch) Message {
	setIf(&m.Content, p.Content)
	setIf(&m.IsRead, p.IsRead)
	setIf(&m.IsEdited, p.IsEdited)
	if p.ReadAt != nil {
		m.ReadAt = p.ReadAt
	}
	if p.EditedAt != nil {
		m.EditedAt = p.EditedAt
	}
	return m
}

func patchUser(u CurrentUser, p CurrentUserPatch) CurrentUser {
	setIf(&u.ID, p.ID)
	setIf(&u.Name, p.Name)
	setIf(&u.Avatar, p.Avatar)
	setIf(&u.Status, p.Status)
	return u
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
