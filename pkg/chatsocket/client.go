// Package chatsocket is the agent side of the real-time channel: one
// socket.io (engine.io v3) connection over websocket, a fixed table of
// inbound callbacks and fire-and-forget outbound helpers.
package chatsocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/nguyentranbao-ct/livechat/pkg/logger"
)

const writeTimeout = 10 * time.Second

var (
	ErrNotConnected     = errors.New("chatsocket: not connected")
	ErrClosed           = errors.New("chatsocket: client closed")
	ErrAlreadyConnected = errors.New("chatsocket: already connected")

	errServerDisconnect = errors.New("chatsocket: disconnected by server")
)

type Config struct {
	// URL is the server base, e.g. https://chat.example.com.
	URL     string
	AgentID string
	Token   string
	// Status announced with join-agent-room, "online" when empty.
	Status string

	MaxReconnects  int
	ReconnectDelay time.Duration
	DialTimeout    time.Duration
	Dialer         *websocket.Dialer
}

func (c Config) withDefaults() Config {
	if c.Status == "" {
		c.Status = "online"
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 5
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 20 * time.Second
	}
	if c.Dialer == nil {
		c.Dialer = &websocket.Dialer{HandshakeTimeout: c.DialTimeout}
	}
	return c
}

// Handlers run on the read goroutine in arrival order. Nil handlers are
// skipped.
type Handlers struct {
	OnConnect             func()
	OnDisconnect          func(err error)
	OnNewMessage          func(NewMessage)
	OnVisitorStatusChange func(VisitorStatus)
	OnVisitorJoined       func(VisitorJoined)
	OnVisitorLeft         func(VisitorLeft)
	OnTypingIndicator     func(Typing)
	OnMessageRead         func(MessageRead)
	OnAgentAssigned       func(AgentAssigned)
	OnSessionEnded        func(SessionEnded)
	// OnError receives transport, decode and server errors.
	OnError func(error)
	// OnEvent receives events without a dedicated handler.
	OnEvent func(name string, payload []byte)
}

type Client struct {
	cfg Config
	h   Handlers
	log *zap.SugaredLogger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	// running is set from Connect until the run loop exits, reconnects
	// included.
	running bool
	done    chan struct{}

	writeMu sync.Mutex
	// ctx is cancelled by Close and aborts dials in flight.
	ctx       context.Context
	cancel    context.CancelFunc
	closed    chan struct{}
	closeOnce sync.Once
}

func New(cfg Config, h Handlers) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:    cfg.withDefaults(),
		h:      h,
		log:    logger.MustNamed("chatsocket"),
		ctx:    ctx,
		cancel: cancel,
		closed: make(chan struct{}),
	}
}

// Connect dials the server and returns once the socket.io handshake is
// done. Later drops are retried in the background without replaying events
// missed in between. A client holds one connection: calling Connect again
// while connected or reconnecting returns ErrAlreadyConnected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.isClosed():
		c.mu.Unlock()
		return ErrClosed
	case c.running:
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.running = true
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	conn, open, err := c.dial(ctx)
	if err != nil {
		c.stopped(done)
		if c.isClosed() {
			return ErrClosed
		}
		c.reportError(err)
		return err
	}
	if !c.attach(conn) {
		c.stopped(done)
		return ErrClosed
	}
	go c.run(conn, open, done)
	return nil
}

func (c *Client) stopped(done chan struct{}) {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	close(done)
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close stops reconnecting and closes the connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.cancel()
	})
	c.mu.Lock()
	conn := c.conn
	c.conn, c.connected = nil, false
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = c.write(conn, []byte{eioClose})
	return conn.Close()
}

// Emit sends an event. While disconnected the event is dropped and
// ErrNotConnected returned.
func (c *Client) Emit(event string, payload any) error {
	c.mu.Lock()
	conn, connected := c.conn, c.connected
	c.mu.Unlock()
	if !connected || conn == nil {
		c.log.Debugw("event dropped", "event", event)
		return ErrNotConnected
	}
	msg, err := encodeEvent(event, payload)
	if err != nil {
		return err
	}
	return c.write(conn, msg)
}

func (c *Client) write(conn *websocket.Conn, msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *Client) socketURL() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/socket.io/"
	q := u.Query()
	q.Set("EIO", "3")
	q.Set("transport", "websocket")
	if c.cfg.Token != "" {
		q.Set("token", c.cfg.Token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// dial opens the websocket and waits for the engine.io open packet and the
// socket.io connect of the default namespace.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, openPacket, error) {
	target, err := c.socketURL()
	if err != nil {
		return nil, openPacket{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	defer context.AfterFunc(c.ctx, cancel)()

	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("access-token", c.cfg.Token)
	}
	conn, resp, err := c.cfg.Dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, openPacket{}, fmt.Errorf("dial %s: %w", target, err)
	}

	// the handshake reads block outside ctx, so Close has to unblock them
	stopClose := context.AfterFunc(c.ctx, func() { _ = conn.Close() })
	defer stopClose()

	deadline, _ := ctx.Deadline()
	_ = conn.SetReadDeadline(deadline)
	open, err := handshake(conn)
	if err != nil {
		_ = conn.Close()
		return nil, openPacket{}, err
	}
	_ = conn.SetReadDeadline(time.Time{})
	return conn, open, nil
}

func handshake(conn *websocket.Conn) (openPacket, error) {
	var open openPacket
	gotOpen := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return open, fmt.Errorf("handshake: %w", err)
		}
		packet := string(data)
		if packet == "" {
			continue
		}
		switch packet[0] {
		case eioOpen:
			if open, err = parseOpen(packet[1:]); err != nil {
				return open, err
			}
			gotOpen = true
		case eioMessage:
			f, err := decodeMessage(packet[1:])
			if err != nil {
				return open, err
			}
			switch f.Type {
			case sioConnect:
				if !gotOpen {
					return open, errors.New("handshake: connect before open")
				}
				return open, nil
			case sioError:
				return open, serverError(f.Payload)
			}
		case eioClose:
			return open, errServerDisconnect
		}
	}
}

// attach makes conn the live connection and joins the agent room. It
// closes conn and returns false when the client was closed meanwhile; Close
// signals closed before taking mu, so one of the two always sees the other.
func (c *Client) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	if c.isClosed() {
		c.mu.Unlock()
		_ = conn.Close()
		return false
	}
	c.conn, c.connected = conn, true
	c.mu.Unlock()

	if err := c.UpdateAgentStatus(c.cfg.Status); err != nil {
		c.reportError(fmt.Errorf("join agent room: %w", err))
	}
	c.log.Infow("connected", "agent_id", c.cfg.AgentID)
	if c.h.OnConnect != nil {
		c.h.OnConnect()
	}
	return true
}

func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn, c.connected = nil, false
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// run serves conn and reconnects after it drops until Close or the retry
// budget is spent.
func (c *Client) run(conn *websocket.Conn, open openPacket, done chan struct{}) {
	defer c.stopped(done)
	for {
		err := c.serve(conn, open)
		c.detach(conn)
		if c.isClosed() {
			return
		}
		c.log.Warnw("disconnected", "error", err)
		if c.h.OnDisconnect != nil {
			c.h.OnDisconnect(err)
		}

		conn, open, err = c.reconnect()
		if err != nil {
			if !errors.Is(err, ErrClosed) {
				c.reportError(err)
			}
			return
		}
		if !c.attach(conn) {
			return
		}
	}
}

func (c *Client) reconnect() (*websocket.Conn, openPacket, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxReconnects; attempt++ {
		select {
		case <-c.closed:
			return nil, openPacket{}, ErrClosed
		case <-time.After(c.cfg.ReconnectDelay):
		}
		conn, open, err := c.dial(c.ctx)
		if err == nil {
			c.log.Infow("reconnected", "attempt", attempt)
			return conn, open, nil
		}
		if c.isClosed() {
			return nil, openPacket{}, ErrClosed
		}
		lastErr = err
		c.reportError(fmt.Errorf("reconnect attempt %d: %w", attempt, err))
	}
	return nil, openPacket{}, fmt.Errorf("chatsocket: gave up after %d reconnect attempts: %w", c.cfg.MaxReconnects, lastErr)
}

// serve pings at the server's interval and dispatches packets until the
// connection fails.
func (c *Client) serve(conn *websocket.Conn, open openPacket) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(open.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := c.write(conn, []byte{eioPing}); err != nil {
					return
				}
			}
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(open.PingInterval + open.PingTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		packet := string(data)
		if packet == "" {
			continue
		}
		switch packet[0] {
		case eioPing:
			_ = c.write(conn, []byte{eioPong})
		case eioClose:
			return errServerDisconnect
		case eioMessage:
			f, err := decodeMessage(packet[1:])
			if err != nil {
				c.reportError(err)
				continue
			}
			if f.Type == sioDisconnect {
				return errServerDisconnect
			}
			c.dispatch(f)
		case eioPong, eioNoop:
		}
	}
}

func (c *Client) dispatch(f frame) {
	if f.Type == sioError {
		c.reportError(serverError(f.Payload))
		return
	}
	if f.Type != sioEvent {
		return
	}

	raw := []byte(f.Payload.Raw)
	var err error
	switch f.Event {
	case EventNewMessage:
		err = invoke(raw, c.h.OnNewMessage)
	case EventVisitorOnline, EventVisitorOffline:
		if c.h.OnVisitorStatusChange != nil {
			var v VisitorStatus
			if err = json.Unmarshal(raw, &v); err == nil {
				v.IsOnline = f.Event == EventVisitorOnline
				c.h.OnVisitorStatusChange(v)
			}
		}
	case EventVisitorJoined:
		err = invoke(raw, c.h.OnVisitorJoined)
	case EventVisitorLeft:
		err = invoke(raw, c.h.OnVisitorLeft)
	case EventTypingIndicator:
		err = invoke(raw, c.h.OnTypingIndicator)
	case EventMessageRead:
		err = invoke(raw, c.h.OnMessageRead)
	case EventAgentAssigned:
		err = invoke(raw, c.h.OnAgentAssigned)
	case EventSessionEnded:
		err = invoke(raw, c.h.OnSessionEnded)
	case EventError, EventChatError:
		c.reportError(serverError(f.Payload))
	default:
		if c.h.OnEvent != nil {
			c.h.OnEvent(f.Event, raw)
		}
	}
	if err != nil {
		c.reportError(fmt.Errorf("decode %s: %w", f.Event, err))
	}
}

func invoke[T any](raw []byte, fn func(T)) error {
	if fn == nil {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	fn(v)
	return nil
}

func serverError(payload gjson.Result) *ServerError {
	switch {
	case payload.Type == gjson.String:
		return &ServerError{Message: payload.String()}
	case payload.IsObject():
		msg := payload.Get("error").String()
		if msg == "" {
			msg = payload.Get("message").String()
		}
		return &ServerError{Message: msg, Event: payload.Get("event").String()}
	}
	return &ServerError{Message: payload.Raw}
}

func (c *Client) reportError(err error) {
	c.log.Warnw("socket error", "error", err)
	if c.h.OnError != nil {
		c.h.OnError(err)
	}
}
