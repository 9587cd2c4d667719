package chatsocket

import (
	"time"

	"github.com/nguyentranbao-ct/livechat/pkg/chatstore"
)

// StoreHandlers feeds inbound events into store. Callbacks already set in
// extra run after the store is updated.
func StoreHandlers(store *chatstore.Store, extra Handlers) Handlers {
	h := extra
	h.OnNewMessage = func(e NewMessage) {
		visitorID := e.VisitorID
		if visitorID == "" {
			visitorID = e.Message.VisitorID
		}
		store.Dispatch(chatstore.AddMessage{VisitorID: visitorID, Message: e.Message})
		if extra.OnNewMessage != nil {
			extra.OnNewMessage(e)
		}
	}
	h.OnVisitorStatusChange = func(e VisitorStatus) {
		patch := chatstore.VisitorPatch{IsOnline: &e.IsOnline}
		if !e.LastSeen.IsZero() {
			patch.LastSeen = &e.LastSeen
		}
		store.Dispatch(chatstore.UpdateVisitor{ID: e.VisitorID, Patch: patch})
		if extra.OnVisitorStatusChange != nil {
			extra.OnVisitorStatusChange(e)
		}
	}
	h.OnVisitorJoined = func(e VisitorJoined) {
		if _, ok := chatstore.VisitorByID(store.State(), e.VisitorID); !ok {
			v := chatstore.Visitor{ID: e.VisitorID, IsOnline: true, LastSeen: time.Now()}
			if e.Session != nil {
				v.CurrentSessionID = e.Session.ID
			}
			store.Dispatch(chatstore.AddVisitor{Visitor: v})
		}
		if extra.OnVisitorJoined != nil {
			extra.OnVisitorJoined(e)
		}
	}
	h.OnVisitorLeft = func(e VisitorLeft) {
		offline := false
		store.Dispatch(chatstore.UpdateVisitor{ID: e.VisitorID, Patch: chatstore.VisitorPatch{IsOnline: &offline}})
		if extra.OnVisitorLeft != nil {
			extra.OnVisitorLeft(e)
		}
	}
	h.OnTypingIndicator = func(e Typing) {
		store.Dispatch(chatstore.SetTypingStatus{VisitorID: e.VisitorID, IsTyping: e.IsTyping})
		if extra.OnTypingIndicator != nil {
			extra.OnTypingIndicator(e)
		}
	}
	h.OnMessageRead = func(e MessageRead) {
		if e.VisitorID != "" && len(e.MessageIDs) > 0 {
			store.Dispatch(chatstore.MarkMessagesRead{VisitorID: e.VisitorID, MessageIDs: e.MessageIDs, ReadAt: e.ReadAt})
		}
		if extra.OnMessageRead != nil {
			extra.OnMessageRead(e)
		}
	}
	h.OnSessionEnded = func(e SessionEnded) {
		store.Dispatch(chatstore.SetTypingStatus{VisitorID: e.VisitorID, IsTyping: false})
		if extra.OnSessionEnded != nil {
			extra.OnSessionEnded(e)
		}
	}
	h.OnError = func(err error) {
		store.Dispatch(chatstore.SetError{Error: err.Error()})
		if extra.OnError != nil {
			extra.OnError(err)
		}
	}
	return h
}
