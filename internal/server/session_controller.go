package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	mdw "github.com/nguyentranbao-ct/livechat/internal/server/middleware"
	"github.com/nguyentranbao-ct/livechat/internal/usecase"
)

type SessionController interface {
	List(c echo.Context, req listSessionsRequest) (*models.SessionPage, error)
	Create(c echo.Context, req createSessionRequest) (*mdw.Response, error)
	Get(c echo.Context, req IDParam) (*models.SessionDetail, error)
	Update(c echo.Context, req updateSessionRequest) (*models.ChatSession, error)
	Delete(c echo.Context, req IDParam) (*messageResponse, error)
	Assign(c echo.Context, req assignSessionRequest) (*models.ChatSession, error)
	Transfer(c echo.Context, req transferSessionRequest) (*models.ChatSession, error)
	Close(c echo.Context, req closeSessionRequest) (*models.ChatSession, error)
	Messages(c echo.Context, req sessionMessagesRequest) (*models.MessagePage, error)
	PostMessage(c echo.Context, req postMessageRequest) (*mdw.Response, error)
	Stats(c echo.Context, req IDParam) (*models.SessionStats, error)
	Transcript(c echo.Context, req IDParam) error
}

type sessionController struct {
	sessions usecase.SessionUsecase
	messages usecase.MessageUsecase
}

func NewSessionController(sessions usecase.SessionUsecase, messages usecase.MessageUsecase) SessionController {
	return &sessionController{sessions: sessions, messages: messages}
}

func (sc *sessionController) List(c echo.Context, req listSessionsRequest) (*models.SessionPage, error) {
	if req.Status != "" && !models.SessionStatus(req.Status).Valid() {
		return nil, models.InvalidArgument("invalid session status %q", req.Status)
	}
	return sc.sessions.List(c.Request().Context(), req.filter(), req.request(usecase.DefaultSessionPageSize))
}

func (sc *sessionController) Create(c echo.Context, req createSessionRequest) (*mdw.Response, error) {
	in := req.CreateSessionRequest
	if in.Metadata != nil && in.Metadata.UserAgent == "" {
		in.Metadata.UserAgent = c.Request().UserAgent()
	}
	session, err := sc.sessions.Create(c.Request().Context(), in)
	if err != nil {
		return nil, err
	}
	return mdw.Created(session), nil
}

func (sc *sessionController) Get(c echo.Context, req IDParam) (*models.SessionDetail, error) {
	return sc.sessions.Get(c.Request().Context(), req.oid())
}

func (sc *sessionController) Update(c echo.Context, req updateSessionRequest) (*models.ChatSession, error) {
	return sc.sessions.Update(c.Request().Context(), req.oid(), req.SessionPatch)
}

func (sc *sessionController) Delete(c echo.Context, req IDParam) (*messageResponse, error) {
	if err := sc.sessions.Delete(c.Request().Context(), req.oid()); err != nil {
		return nil, err
	}
	return &messageResponse{Message: "Session deleted successfully"}, nil
}

func (sc *sessionController) Assign(c echo.Context, req assignSessionRequest) (*models.ChatSession, error) {
	return sc.sessions.Assign(c.Request().Context(), req.oid(), req.AgentID)
}

func (sc *sessionController) Transfer(c echo.Context, req transferSessionRequest) (*models.ChatSession, error) {
	return sc.sessions.Transfer(c.Request().Context(), req.oid(), req.TransferSessionRequest)
}

func (sc *sessionController) Close(c echo.Context, req closeSessionRequest) (*models.ChatSession, error) {
	return sc.sessions.Close(c.Request().Context(), req.oid(), req.CloseSessionRequest)
}

func (sc *sessionController) Messages(c echo.Context, req sessionMessagesRequest) (*models.MessagePage, error) {
	return sc.messages.List(c.Request().Context(), req.oid(), req.request(usecase.DefaultMessagePageSize))
}

func (sc *sessionController) PostMessage(c echo.Context, req postMessageRequest) (*mdw.Response, error) {
	in := req.PostMessageRequest
	in.SessionID = req.oid()
	in.IPAddress = c.RealIP()
	in.UserAgent = req.ClientUA
	msg, err := sc.messages.Post(c.Request().Context(), in)
	if err != nil {
		return nil, err
	}
	return mdw.Created(msg), nil
}

func (sc *sessionController) Stats(c echo.Context, req IDParam) (*models.SessionStats, error) {
	return sc.sessions.Stats(c.Request().Context(), req.oid())
}

// Transcript renders the conversation as plain text.
func (sc *sessionController) Transcript(c echo.Context, req IDParam) error {
	text, err := sc.sessions.Transcript(c.Request().Context(), req.oid())
	if err != nil {
		return err
	}
	return c.String(http.StatusOK, text)
}
