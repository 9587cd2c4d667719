package server

import (
	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/internal/usecase"
)

type MessageController interface {
	MarkRead(c echo.Context, req markReadRequest) (*markReadResponse, error)
	Edit(c echo.Context, req editMessageRequest) (*models.Message, error)
	React(c echo.Context, req reactRequest) (*models.Message, error)
	SetDelivery(c echo.Context, req deliveryRequest) (*models.Message, error)
}

type messageController struct {
	messages usecase.MessageUsecase
}

func NewMessageController(messages usecase.MessageUsecase) MessageController {
	return &messageController{messages: messages}
}

func (mc *messageController) MarkRead(c echo.Context, req markReadRequest) (*markReadResponse, error) {
	n, err := mc.messages.MarkRead(c.Request().Context(), req.MarkReadRequest)
	if err != nil {
		return nil, err
	}
	return &markReadResponse{Message: "Messages marked as read", ModifiedCount: n}, nil
}

func (mc *messageController) Edit(c echo.Context, req editMessageRequest) (*models.Message, error) {
	return mc.messages.Edit(c.Request().Context(), req.oid(), req.Content)
}

func (mc *messageController) React(c echo.Context, req reactRequest) (*models.Message, error) {
	return mc.messages.React(c.Request().Context(), req.oid(), req.ReactRequest)
}

func (mc *messageController) SetDelivery(c echo.Context, req deliveryRequest) (*models.Message, error) {
	return mc.messages.SetDeliveryStatus(c.Request().Context(), req.oid(), req.Status)
}
