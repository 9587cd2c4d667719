package chatstore

import "time"

type Kind int

const (
	KindSetVisitors Kind = iota + 1
	KindAddVisitor
	KindUpdateVisitor
	KindRemoveVisitor
	KindSelectVisitor
	KindSetMessages
	KindAddMessage
	KindUpdateMessage
	KindMarkMessagesRead
	KindSetTypingStatus
	KindUpdateUnreadCount
	KindSetCurrentUser
	KindSetHighlightedMessages
	KindSetLoading
	KindSetError
	KindSetActiveModal
)

var kindNames = map[Kind]string{
	KindSetVisitors:            "SET_VISITORS",
	KindAddVisitor:             "ADD_VISITOR",
	KindUpdateVisitor:          "UPDATE_VISITOR",
	KindRemoveVisitor:          "REMOVE_VISITOR",
	KindSelectVisitor:          "SELECT_VISITOR",
	KindSetMessages:            "SET_MESSAGES",
	KindAddMessage:             "ADD_MESSAGE",
	KindUpdateMessage:          "UPDATE_MESSAGE",
	KindMarkMessagesRead:       "MARK_MESSAGES_READ",
	KindSetTypingStatus:        "SET_TYPING_STATUS",
	KindUpdateUnreadCount:      "UPDATE_UNREAD_COUNT",
	KindSetCurrentUser:         "SET_CURRENT_USER",
	KindSetHighlightedMessages: "SET_HIGHLIGHTED_MESSAGES",
	KindSetLoading:             "SET_LOADING",
	KindSetError:               "SET_ERROR",
	KindSetActiveModal:         "SET_ACTIVE_MODAL",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Action is one of the payload structs below.
type Action interface {
	Kind() Kind
}

type SetVisitors struct{ Visitors []Visitor }

type AddVisitor struct{ Visitor Visitor }

// VisitorPatch lists the fields UpdateVisitor may change; nil leaves a
// field as is.
type VisitorPatch struct {
	Name        *string
	DisplayName *string
	Email       *string
	Phone       *string
	Avatar      *string
	IsOnline    *bool
	LastSeen    *time.Time
}

type UpdateVisitor struct {
	ID    string
	Patch VisitorPatch
}

type RemoveVisitor struct{ ID string }

type SelectVisitor struct{ ID string }

type SetMessages struct {
	VisitorID string
	Messages  []Message
}

type AddMessage struct {
	VisitorID string
	Message   Message
}

type MessagePatch struct {
	Content  *string
	IsRead   *bool
	ReadAt   *time.Time
	IsEdited *bool
	EditedAt *time.Time
}

type UpdateMessage struct {
	VisitorID string
	MessageID string
	Patch     MessagePatch
}

// MarkMessagesRead marks MessageIDs of the visitor read, every message when
// MessageIDs is empty. On a thread that is not loaded it also drops the
// server reported count.
type MarkMessagesRead struct {
	VisitorID  string
	MessageIDs []string
	ReadAt     time.Time
}

type SetTypingStatus struct {
	VisitorID string
	IsTyping  bool
}

// UpdateUnreadCount carries a server side count, which covers the live
// messages already held. It is ignored for visitors whose thread is loaded,
// the thread is the source of truth there.
type UpdateUnreadCount struct {
	VisitorID string
	Count     int64
}

type CurrentUserPatch struct {
	ID     *string
	Name   *string
	Avatar *string
	Status *string
}

type SetCurrentUser struct{ Patch CurrentUserPatch }

type SetHighlightedMessages struct{ IDs []string }

type SetLoading struct{ Loading bool }

type SetError struct{ Error string }

type SetActiveModal struct{ Modal string }

func (SetVisitors) Kind() Kind            { return KindSetVisitors }
func (AddVisitor) Kind() Kind             { return KindAddVisitor }
func (UpdateVisitor) Kind() Kind          { return KindUpdateVisitor }
func (RemoveVisitor) Kind() Kind          { return KindRemoveVisitor }
func (SelectVisitor) Kind() Kind          { return KindSelectVisitor }
func (SetMessages) Kind() Kind            { return KindSetMessages }
func (AddMessage) Kind() Kind             { return KindAddMessage }
func (UpdateMessage) Kind() Kind          { return KindUpdateMessage }
func (MarkMessagesRead) Kind() Kind       { return KindMarkMessagesRead }
func (SetTypingStatus) Kind() Kind        { return KindSetTypingStatus }
func (UpdateUnreadCount) Kind() Kind      { return KindUpdateUnreadCount }
func (SetCurrentUser) Kind() Kind         { return KindSetCurrentUser }
func (SetHighlightedMessages) Kind() Kind { return KindSetHighlightedMessages }
func (SetLoading) Kind() Kind             { return KindSetLoading }
func (SetError) Kind() Kind               { return KindSetError }
func (SetActiveModal) Kind() Kind         { return KindSetActiveModal }
