package server

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"sync"

	socketio "github.com/googollee/go-socket.io"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/internal/usecase"
)

// Fakes embed the usecase interface so that only the methods a test needs
// have to be written; calling any other method panics.

type fakeAuth struct {
	usecase.AuthUsecase
	users map[string]*models.User
}

func (f *fakeAuth) ValidateToken(_ context.Context, token string) (*models.User, error) {
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, models.ErrUnauthorized
}

type fakeAgents struct {
	usecase.AgentUsecase
	mu           sync.Mutex
	statuses     map[string]models.AgentStatus
	disconnected []string
	online       []models.AgentPresence
}

func newFakeAgents() *fakeAgents {
	return &fakeAgents{statuses: map[string]models.AgentStatus{}}
}

func (f *fakeAgents) SetStatus(_ context.Context, agentID string, status models.AgentStatus) error {
	if agentID == "" {
		return models.InvalidArgument("agentId is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[agentID] = status
	return nil
}

func (f *fakeAgents) Disconnect(_ context.Context, agentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, agentID)
	return nil
}

func (f *fakeAgents) Online(context.Context) ([]models.AgentPresence, error) {
	return f.online, nil
}

type fakeSessions struct {
	usecase.SessionUsecase
	assigned    map[primitive.ObjectID]primitive.ObjectID
	closed      map[primitive.ObjectID]models.CloseSessionRequest
	transferred map[primitive.ObjectID]models.TransferSessionRequest
	err         error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		assigned:    map[primitive.ObjectID]primitive.ObjectID{},
		closed:      map[primitive.ObjectID]models.CloseSessionRequest{},
		transferred: map[primitive.ObjectID]models.TransferSessionRequest{},
	}
}

func (f *fakeSessions) Assign(_ context.Context, id, agentID primitive.ObjectID) (*models.ChatSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.assigned[id] = agentID
	return &models.ChatSession{ID: id, AgentID: &agentID}, nil
}

func (f *fakeSessions) Close(_ context.Context, id primitive.ObjectID, req models.CloseSessionRequest) (*models.ChatSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.closed[id] = req
	return &models.ChatSession{ID: id, Status: models.SessionClosed}, nil
}

func (f *fakeSessions) Transfer(_ context.Context, id primitive.ObjectID, req models.TransferSessionRequest) (*models.ChatSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.transferred[id] = req
	return &models.ChatSession{ID: id, AgentID: &req.ToAgentID}, nil
}

type fakeMessages struct {
	usecase.MessageUsecase
	posted []models.PostMessageRequest
	marked []models.MarkReadRequest
	err    error
}

func (f *fakeMessages) Post(_ context.Context, req models.PostMessageRequest) (*models.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.posted = append(f.posted, req)
	return &models.Message{ID: primitive.NewObjectID(), SessionID: req.SessionID, Content: req.Content}, nil
}

func (f *fakeMessages) MarkRead(_ context.Context, req models.MarkReadRequest) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.marked = append(f.marked, req)
	return int64(len(req.MessageIDs)), nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []models.Event
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, event models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

type emitted struct {
	Event string
	Args  []interface{}
}

// fakeConn stands in for a socket.io connection.
type fakeConn struct {
	socketio.Conn
	id      string
	url     url.URL
	header  http.Header
	ctx     interface{}
	rooms   map[string]bool
	emitted []emitted
}

func newFakeConn(rawURL string) *fakeConn {
	u, _ := url.Parse(rawURL)
	return &fakeConn{
		id:     "conn-1",
		url:    *u,
		header: http.Header{},
		rooms:  map[string]bool{},
	}
}

func (c *fakeConn) ID() string                 { return c.id }
func (c *fakeConn) URL() url.URL               { return c.url }
func (c *fakeConn) RemoteHeader() http.Header  { return c.header }
func (c *fakeConn) RemoteAddr() net.Addr       { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }
func (c *fakeConn) Context() interface{}       { return c.ctx }
func (c *fakeConn) SetContext(ctx interface{}) { c.ctx = ctx }
func (c *fakeConn) Join(room string)           { c.rooms[room] = true }
func (c *fakeConn) Leave(room string)          { delete(c.rooms, room) }
func (c *fakeConn) Emit(event string, v ...interface{}) {
	c.emitted = append(c.emitted, emitted{Event: event, Args: v})
}

type fakeNotes struct {
	usecase.NoteUsecase
	notes map[primitive.ObjectID][]*models.Note
}

func (f *fakeNotes) Fetch(_ context.Context, owner primitive.ObjectID) ([]*models.Note, error) {
	notes := f.notes[owner]
	if notes == nil {
		notes = []*models.Note{}
	}
	return notes, nil
}

func (f *fakeNotes) Add(_ context.Context, owner primitive.ObjectID, req models.AddNoteRequest) (*models.Note, error) {
	note := &models.Note{ID: primitive.NewObjectID(), UserID: owner, Title: req.Title, Content: req.Content, Tag: req.Tag}
	f.notes[owner] = append(f.notes[owner], note)
	return note, nil
}

func (f *fakeSessions) Create(_ context.Context, req models.CreateSessionRequest) (*models.ChatSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ChatSession{ID: primitive.NewObjectID(), VisitorID: req.VisitorID, Status: models.SessionPending}, nil
}

func (f *fakeSessions) List(_ context.Context, filter models.SessionFilter, page models.PageRequest) (*models.SessionPage, error) {
	return &models.SessionPage{Sessions: []*models.ChatSession{}, Pagination: page.Paginate(0)}, nil
}
