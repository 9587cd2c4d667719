package server

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/nguyentranbao-ct/livechat/internal/config"
	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/internal/repo/socket"
	mdw "github.com/nguyentranbao-ct/livechat/internal/server/middleware"
	"github.com/nguyentranbao-ct/livechat/internal/usecase"
	"github.com/nguyentranbao-ct/livechat/pkg/ctxval"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
	"github.com/nguyentranbao-ct/livechat/pkg/util"
)

const socketEventTimeout = 10 * time.Second

// NewSocketServer builds the socket.io server and ties Serve/Close to the
// fx lifecycle.
func NewSocketServer(lc fx.Lifecycle, conf *config.Config) (*socketio.Server, error) {
	pattern, err := regexp.Compile(conf.Server.CORSOriginPattern)
	if err != nil {
		return nil, err
	}
	checkOrigin := func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || pattern.MatchString(origin)
	}

	server := socketio.NewServer(&engineio.Options{
		PingInterval: conf.Socket.PingInterval,
		PingTimeout:  conf.Socket.PingTimeout,
		Transports: []transport.Transport{
			&polling.Transport{CheckOrigin: checkOrigin},
			&websocket.Transport{CheckOrigin: checkOrigin},
		},
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := server.Serve(); err != nil {
					log.Errorw(ctx, "socket.io server stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Close()
		},
	})
	return server, nil
}

// connState is stored on every connection with SetContext.
type connState struct {
	User    *models.User
	AgentID string
}

type SocketHandler struct {
	server      *socketio.Server
	auth        mdw.TokenValidator
	agents      usecase.AgentUsecase
	sessions    usecase.SessionUsecase
	messages    usecase.MessageUsecase
	broadcaster usecase.EventBroadcaster
	connections prometheus.Gauge
}

func NewSocketHandler(
	server *socketio.Server,
	auth usecase.AuthUsecase,
	agents usecase.AgentUsecase,
	sessions usecase.SessionUsecase,
	messages usecase.MessageUsecase,
	broadcaster usecase.EventBroadcaster,
) (*SocketHandler, error) {
	connections, err := util.GetGauge("socket_connections", "Open socket.io connections on this instance")
	if err != nil {
		return nil, err
	}
	h := &SocketHandler{
		server:      server,
		auth:        auth,
		agents:      agents,
		sessions:    sessions,
		messages:    messages,
		broadcaster: broadcaster,
		connections: connections,
	}
	h.setupEvents()
	return h, nil
}

func (h *SocketHandler) setupEvents() {
	ns := socket.Namespace
	h.server.OnConnect(ns, h.onConnect)
	h.server.OnDisconnect(ns, h.onDisconnect)
	h.server.OnError(ns, func(s socketio.Conn, err error) {
		if s == nil {
			log.Warnw(context.Background(), "socket error", "error", err)
			return
		}
		log.Warnw(context.Background(), "socket error", "socket_id", s.ID(), "error", err)
		s.Emit(models.EventError, models.ChatErrorPayload{Error: err.Error()})
	})

	h.server.OnEvent(ns, models.EventJoinAgentRoom, h.onJoinAgentRoom)
	h.server.OnEvent(ns, models.EventAgentStatus, h.onAgentStatus)
	h.server.OnEvent(ns, models.EventJoinVisitorRoom, h.onJoinVisitorRoom)
	h.server.OnEvent(ns, models.EventLeaveVisitorRoom, h.onLeaveVisitorRoom)
	h.server.OnEvent(ns, models.EventSendMessage, h.onSendMessage)
	h.server.OnEvent(ns, models.EventMarkRead, h.onMarkRead)
	h.server.OnEvent(ns, models.EventTypingStart, func(s socketio.Conn, p typingPayload) {
		h.onTyping(s, p, true)
	})
	h.server.OnEvent(ns, models.EventTypingStop, func(s socketio.Conn, p typingPayload) {
		h.onTyping(s, p, false)
	})
	h.server.OnEvent(ns, models.EventAssignSession, h.onAssignSession)
	h.server.OnEvent(ns, models.EventEndSession, h.onEndSession)
	h.server.OnEvent(ns, models.EventTransferSession, h.onTransferSession)
}

// Handler mounts the socket.io endpoint on echo.
func (h *SocketHandler) Handler() echo.HandlerFunc {
	return echo.WrapHandler(h.server)
}

func extractToken(s socketio.Conn) string {
	u := s.URL()
	if token := u.Query().Get("token"); token != "" {
		return token
	}
	header := s.RemoteHeader()
	if token := header.Get(mdw.HeaderAccessToken); token != "" {
		return token
	}
	if auth := header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// onConnect accepts anonymous connections; a supplied token must be valid.
func (h *SocketHandler) onConnect(s socketio.Conn) error {
	state := &connState{}
	if token := extractToken(s); token != "" {
		ctx, cancel := h.eventContext(s)
		defer cancel()
		user, err := h.auth.ValidateToken(ctx, token)
		if err != nil {
			log.Infow(ctx, "socket rejected", "error", err)
			return models.ErrUnauthorized
		}
		state.User = user
	}
	s.SetContext(state)
	h.connections.Inc()
	log.Debugw(context.Background(), "socket connected", "socket_id", s.ID(), "remote", s.RemoteAddr().String())
	return nil
}

func (h *SocketHandler) onDisconnect(s socketio.Conn, reason string) {
	h.connections.Dec()
	ctx, cancel := h.eventContext(s)
	defer cancel()
	log.Debugw(ctx, "socket disconnected", "reason", reason)

	if agentID := stateOf(s).AgentID; agentID != "" {
		if err := h.agents.Disconnect(ctx, agentID); err != nil {
			log.Warnw(ctx, "failed to clear agent presence", "agent_id", agentID, "error", err)
		}
	}
}

func stateOf(s socketio.Conn) *connState {
	if state, ok := s.Context().(*connState); ok {
		return state
	}
	return &connState{}
}

func (h *SocketHandler) eventContext(s socketio.Conn) (context.Context, context.CancelFunc) {
	ctx := ctxval.Wrap(context.Background())
	log.WithFields(ctx, "socket_id", s.ID())
	return util.NewTimeoutContext(ctx, socketEventTimeout)
}

// fail reports err to the sender only.
func (h *SocketHandler) fail(ctx context.Context, s socketio.Conn, event string, err error) {
	msg, known := mdw.PublicMessage(err)
	if known {
		log.Infow(ctx, "socket event rejected", "event", event, "error", err)
	} else {
		log.Errorw(ctx, "socket event failed", "event", event, "error", err)
	}
	s.Emit(models.EventChatError, models.ChatErrorPayload{Error: msg, Event: event})
}

func (h *SocketHandler) onJoinAgentRoom(s socketio.Conn, p joinAgentRoomPayload) {
	ctx, cancel := h.eventContext(s)
	defer cancel()
	if p.AgentID == "" {
		h.fail(ctx, s, models.EventJoinAgentRoom, models.InvalidArgument("agentId is required"))
		return
	}

	s.Join(models.RoomAgents)
	s.Join(models.AgentRoom(p.AgentID))
	state := stateOf(s)
	state.AgentID = p.AgentID
	s.SetContext(state)

	if err := h.agents.SetStatus(ctx, p.AgentID, p.Status); err != nil {
		h.fail(ctx, s, models.EventJoinAgentRoom, err)
		return
	}
	log.Infow(ctx, "agent joined", "agent_id", p.AgentID)
}

func (h *SocketHandler) onAgentStatus(s socketio.Conn, p joinAgentRoomPayload) {
	ctx, cancel := h.eventContext(s)
	defer cancel()
	agentID := p.AgentID
	if agentID == "" {
		agentID = stateOf(s).AgentID
	}
	if err := h.agents.SetStatus(ctx, agentID, p.Status); err != nil {
		h.fail(ctx, s, models.EventAgentStatus, err)
	}
}

func (h *SocketHandler) onJoinVisitorRoom(s socketio.Conn, p visitorRoomPayload) {
	ctx, cancel := h.eventContext(s)
	defer cancel()
	visitorID, err := parseID(p.VisitorID, "visitorId")
	if err != nil {
		h.fail(ctx, s, models.EventJoinVisitorRoom, err)
		return
	}
	s.Join(models.VisitorRoom(visitorID))
}

func (h *SocketHandler) onLeaveVisitorRoom(s socketio.Conn, p visitorRoomPayload) {
	ctx, cancel := h.eventContext(s)
	defer cancel()
	visitorID, err := parseID(p.VisitorID, "visitorId")
	if err != nil {
		h.fail(ctx, s, models.EventLeaveVisitorRoom, err)
		return
	}
	s.Leave(models.VisitorRoom(visitorID))
}

func (h *SocketHandler) onSendMessage(s socketio.Conn, p sendMessagePayload) {
	ctx, cancel := h.eventContext(s)
	defer cancel()
	err := func() error {
		sessionID, err := parseID(p.SessionID, "sessionId")
		if err != nil {
			return err
		}
		agentID, err := parseOptionalID(p.AgentID, "agentId")
		if err != nil {
			return err
		}
		_, err = h.messages.Post(ctx, models.PostMessageRequest{
			SessionID:   sessionID,
			Content:     p.Content,
			MessageType: p.MessageType,
			SenderType:  models.SenderAgent,
			AgentID:     agentID,
			Attachments: p.Attachments,
			UserAgent:   s.RemoteHeader().Get("User-Agent"),
		})
		return err
	}()
	if err != nil {
		h.fail(ctx, s, models.EventSendMessage, err)
	}
}

func (h *SocketHandler) onMarkRead(s socketio.Conn, p markReadPayload) {
	ctx, cancel := h.eventContext(s)
	defer cancel()
	err := func() error {
		req := models.MarkReadRequest{}
		for _, hex := range p.MessageIDs {
			id, err := parseID(hex, "messageId")
			if err != nil {
				return err
			}
			req.MessageIDs = append(req.MessageIDs, id)
		}
		if reader, err := parseOptionalID(p.AgentID, "agentId"); err != nil {
			return err
		} else if reader != nil {
			req.ReaderID = *reader
		}
		visitorID, err := parseOptionalID(p.VisitorID, "visitorId")
		if err != nil {
			return err
		}
		req.VisitorID = visitorID
		_, err = h.messages.MarkRead(ctx, req)
		return err
	}()
	if err != nil {
		h.fail(ctx, s, models.EventMarkRead, err)
	}
}

func (h *SocketHandler) onTyping(s socketio.Conn, p typingPayload, typing bool) {
	ctx, cancel := h.eventContext(s)
	defer cancel()
	event := models.EventTypingStop
	if typing {
		event = models.EventTypingStart
	}
	visitorID, err := parseID(p.VisitorID, "visitorId")
	if err != nil {
		h.fail(ctx, s, event, err)
		return
	}
	h.broadcaster.Broadcast(ctx, models.Event{
		Name:  models.EventTypingIndicator,
		Rooms: []string{models.VisitorRoom(visitorID)},
		Payload: models.TypingPayload{
			VisitorID: p.VisitorID,
			SessionID: p.SessionID,
			AgentID:   p.AgentID,
			IsTyping:  typing,
		},
	})
}

func (h *SocketHandler) onAssignSession(s socketio.Conn, p assignSessionPayload) {
	ctx, cancel := h.eventContext(s)
	defer cancel()
	err := func() error {
		sessionID, err := parseID(p.SessionID, "sessionId")
		if err != nil {
			return err
		}
		agentID, err := parseID(p.AgentID, "agentId")
		if err != nil {
			return err
		}
		_, err = h.sessions.Assign(ctx, sessionID, agentID)
		return err
	}()
	if err != nil {
		h.fail(ctx, s, models.EventAssignSession, err)
	}
}

func (h *SocketHandler) onEndSession(s socketio.Conn, p endSessionPayload) {
	ctx, cancel := h.eventContext(s)
	defer cancel()
	err := func() error {
		sessionID, err := parseID(p.SessionID, "sessionId")
		if err != nil {
			return err
		}
		_, err = h.sessions.Close(ctx, sessionID, models.CloseSessionRequest{Reason: p.Reason})
		return err
	}()
	if err != nil {
		h.fail(ctx, s, models.EventEndSession, err)
	}
}

func (h *SocketHandler) onTransferSession(s socketio.Conn, p transferSessionPayload) {
	ctx, cancel := h.eventContext(s)
	defer cancel()
	err := func() error {
		sessionID, err := parseID(p.SessionID, "sessionId")
		if err != nil {
			return err
		}
		from, err := parseOptionalID(p.FromAgentID, "fromAgentId")
		if err != nil {
			return err
		}
		to, err := parseID(p.ToAgentID, "toAgentId")
		if err != nil {
			return err
		}
		_, err = h.sessions.Transfer(ctx, sessionID, models.TransferSessionRequest{
			FromAgentID: from,
			ToAgentID:   to,
			Reason:      p.Reason,
		})
		return err
	}()
	if err != nil {
		h.fail(ctx, s, models.EventTransferSession, err)
	}
}
