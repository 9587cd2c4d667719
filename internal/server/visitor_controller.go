package server

import (
	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	mdw "github.com/nguyentranbao-ct/livechat/internal/server/middleware"
	"github.com/nguyentranbao-ct/livechat/internal/usecase"
)

type VisitorController interface {
	List(c echo.Context, req listVisitorsRequest) (*models.VisitorPage, error)
	Upsert(c echo.Context, req upsertVisitorRequest) (*mdw.Response, error)
	Get(c echo.Context, req IDParam) (*models.VisitorDetail, error)
	Update(c echo.Context, req updateVisitorRequest) (*models.Visitor, error)
	Delete(c echo.Context, req IDParam) (*messageResponse, error)
	Sessions(c echo.Context, req visitorSessionsRequest) (*models.SessionPage, error)
	SetStatus(c echo.Context, req visitorStatusRequest) (*models.Visitor, error)
	Stats(c echo.Context, req IDParam) (*models.VisitorStats, error)
	Unread(c echo.Context, req IDParam) (*models.UnreadCount, error)
}

type visitorController struct {
	visitors usecase.VisitorUsecase
	sessions usecase.SessionUsecase
	messages usecase.MessageUsecase
}

func NewVisitorController(visitors usecase.VisitorUsecase, sessions usecase.SessionUsecase, messages usecase.MessageUsecase) VisitorController {
	return &visitorController{visitors: visitors, sessions: sessions, messages: messages}
}

func (vc *visitorController) List(c echo.Context, req listVisitorsRequest) (*models.VisitorPage, error) {
	return vc.visitors.List(c.Request().Context(), req.filter(), req.request(usecase.DefaultVisitorPageSize))
}

func (vc *visitorController) Upsert(c echo.Context, req upsertVisitorRequest) (*mdw.Response, error) {
	in := req.UpsertVisitorRequest
	if in.IPAddress == "" {
		in.IPAddress = c.RealIP()
	}
	if in.UserAgent == "" {
		in.UserAgent = c.Request().UserAgent()
	}
	visitor, err := vc.visitors.Upsert(c.Request().Context(), in)
	if err != nil {
		return nil, err
	}
	return mdw.Created(visitor), nil
}

func (vc *visitorController) Get(c echo.Context, req IDParam) (*models.VisitorDetail, error) {
	return vc.visitors.Get(c.Request().Context(), req.oid())
}

func (vc *visitorController) Update(c echo.Context, req updateVisitorRequest) (*models.Visitor, error) {
	return vc.visitors.Update(c.Request().Context(), req.oid(), req.VisitorPatch)
}

func (vc *visitorController) Delete(c echo.Context, req IDParam) (*messageResponse, error) {
	if err := vc.visitors.Delete(c.Request().Context(), req.oid()); err != nil {
		return nil, err
	}
	return &messageResponse{Message: "Visitor deleted successfully"}, nil
}

func (vc *visitorController) Sessions(c echo.Context, req visitorSessionsRequest) (*models.SessionPage, error) {
	page := req.request(usecase.DefaultVisitorSessionPageSize)
	return vc.sessions.ListByVisitor(c.Request().Context(), req.oid(), models.SessionStatus(req.Status), page)
}

func (vc *visitorController) SetStatus(c echo.Context, req visitorStatusRequest) (*models.Visitor, error) {
	return vc.visitors.SetStatus(c.Request().Context(), req.oid(), req.IsOnline)
}

func (vc *visitorController) Stats(c echo.Context, req IDParam) (*models.VisitorStats, error) {
	return vc.visitors.Stats(c.Request().Context(), req.oid())
}

func (vc *visitorController) Unread(c echo.Context, req IDParam) (*models.UnreadCount, error) {
	return vc.messages.UnreadCount(c.Request().Context(), req.oid())
}
