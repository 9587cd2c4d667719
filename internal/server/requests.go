package server

import (
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

// IDParam binds the :id path segment. Body fields never overwrite it.
type IDParam struct {
	ID string `param:"id" json:"-" validate:"objectid"`
}

func (p IDParam) oid() primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(p.ID)
	return id
}

type PageQuery struct {
	Page  string `query:"page" json:"-"`
	Limit string `query:"limit" json:"-"`
}

func (q PageQuery) request(defaultLimit int64) models.PageRequest {
	return models.NewPageRequest(cast.ToInt64(q.Page), cast.ToInt64(q.Limit), defaultLimit)
}

type OwnerRequest struct {
	OwnerID string `user:"id" json:"-"`
}

func (r OwnerRequest) owner() primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(r.OwnerID)
	return id
}

type messageResponse struct {
	Message string `json:"message"`
}

type signupRequest struct {
	models.SignupRequest
}

type loginRequest struct {
	models.LoginRequest
	ClientUA string `header:"User-Agent" json:"-"`
}

type logoutRequest struct {
	Token string `header:"access-token" json:"-"`
}

type addNoteRequest struct {
	OwnerRequest
	models.AddNoteRequest
}

type fetchNotesRequest struct {
	OwnerRequest
}

type updateNoteRequest struct {
	IDParam
	OwnerRequest
	models.NotePatch
}

type deleteNoteRequest struct {
	IDParam
	OwnerRequest
}

type listVisitorsRequest struct {
	PageQuery
	Online string `query:"online"`
	Search string `query:"search"`
}

func (r listVisitorsRequest) filter() models.VisitorFilter {
	f := models.VisitorFilter{Search: r.Search}
	if r.Online != "" {
		online := cast.ToBool(r.Online)
		f.Online = &online
	}
	return f
}

type upsertVisitorRequest struct {
	models.UpsertVisitorRequest
}

type updateVisitorRequest struct {
	IDParam
	models.VisitorPatch
}

type visitorStatusRequest struct {
	IDParam
	IsOnline bool `json:"isOnline"`
}

type visitorSessionsRequest struct {
	IDParam
	PageQuery
	Status string `query:"status"`
}

type listSessionsRequest struct {
	PageQuery
	Status  string `query:"status"`
	AgentID string `query:"agentId" validate:"omitempty,objectid"`
}

func (r listSessionsRequest) filter() models.SessionFilter {
	f := models.SessionFilter{Status: models.SessionStatus(r.Status)}
	if id, err := primitive.ObjectIDFromHex(r.AgentID); err == nil {
		f.AgentID = &id
	}
	return f
}

type createSessionRequest struct {
	models.CreateSessionRequest
}

type updateSessionRequest struct {
	IDParam
	models.SessionPatch
}

type assignSessionRequest struct {
	IDParam
	models.AssignSessionRequest
}

type transferSessionRequest struct {
	IDParam
	models.TransferSessionRequest
}

type closeSessionRequest struct {
	IDParam
	models.CloseSessionRequest
}

type sessionMessagesRequest struct {
	IDParam
	PageQuery
}

type postMessageRequest struct {
	IDParam
	models.PostMessageRequest
	ClientUA string `header:"User-Agent" json:"-"`
}

type markReadRequest struct {
	models.MarkReadRequest
}

type editMessageRequest struct {
	IDParam
	models.EditMessageRequest
}

type reactRequest struct {
	IDParam
	models.ReactRequest
}

type deliveryRequest struct {
	IDParam
	models.DeliveryStatusRequest
}

type markReadResponse struct {
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modifiedCount"`
}
