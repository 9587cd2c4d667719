package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/internal/usecase"
)

type Controller interface {
	Health(c echo.Context) error
	OnlineAgents(c echo.Context) error
}

type controller struct {
	agents usecase.AgentUsecase
}

func NewHandler(agents usecase.AgentUsecase) Controller {
	return &controller{agents: agents}
}

func (h *controller) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "livechat",
	})
}

func (h *controller) OnlineAgents(c echo.Context) error {
	agents, err := h.agents.Online(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]models.AgentPresence{"agents": agents})
}
