package server

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/nguyentranbao-ct/livechat/internal/config"
	mdw "github.com/nguyentranbao-ct/livechat/internal/server/middleware"
	"github.com/nguyentranbao-ct/livechat/internal/usecase"
	"github.com/nguyentranbao-ct/livechat/pkg/logger"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
)

const socketPath = "/socket.io/"

type Handlers struct {
	fx.In

	Auth     usecase.AuthUsecase
	Common   Controller
	Users    AuthController
	Notes    NoteController
	Visitors VisitorController
	Sessions SessionController
	Messages MessageController
	Socket   *SocketHandler
}

func StartServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	h Handlers,
) error {
	e, err := NewEcho(conf, h)
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow(ctx, "starting HTTP server", "addr", conf.Server.Addr)
				if err := e.Start(conf.Server.Addr); !errors.Is(err, http.ErrServerClosed) {
					log.Errorw(ctx, "HTTP server stopped", "error", err)
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
	return nil
}

// NewEcho builds the HTTP server with every route mounted.
func NewEcho(conf *config.Config, h Handlers) (*echo.Echo, error) {
	origins, err := regexp.Compile(conf.Server.CORSOriginPattern)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = mdw.NewValidator()
	e.HTTPErrorHandler = mdw.ErrorHandler(logger.MustNamed("http"))

	isSocket := func(c echo.Context) bool {
		return strings.HasPrefix(c.Request().URL.Path, socketPath)
	}
	accessLog := mdw.AccessLogConfig{
		Logger: logger.MustNamed("http"),
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/health" || path == "/metrics" || isSocket(c)
		},
		Fields: func(c echo.Context) []any {
			if id := mdw.GetUserID(c); id != "" {
				return []any{"user_id", id}
			}
			return nil
		},
		MaskFields: []string{"password", "token"},
		// visitor contact details and chat text stay out of access logs
		RouteMaskFields: map[string][]string{
			"/login":                 {"email"},
			"/signup":                {"email"},
			"/visitors":              {"email", "phone", "visitors.email", "visitors.phone"},
			"/visitors/:id":          {"email", "phone"},
			"/sessions/:id":          {"messages.content"},
			"/sessions/:id/messages": {"content", "messages.content"},
			"/messages/:id":          {"content"},
		},
	}

	metricsConfig := mdw.DefaultMetricsConfig
	metricsConfig.Skipper = isSocket
	metricsConfig.NormalizeHTTPStatus = true
	metricsConfig.MetricsPath = "/metrics"

	e.Use(mdw.MetricsWithConfig(metricsConfig))
	e.Use(mdw.RequestID())
	e.Use(mdw.AccessLog(accessLog))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw(c.Request().Context(), "PANIC RECOVER", "error", err, "stack", string(stack))
			return nil
		},
	}))
	e.Use(mdw.CORS(origins))

	if conf.Server.EnablePprof {
		mdw.PprofWrap(e)
	}

	registerRoutes(e, h)
	return e, nil
}

func registerRoutes(e *echo.Echo, h Handlers) {
	wrap := mdw.WrapHandler

	e.GET("/health", h.Common.Health)
	e.GET("/agents/online", h.Common.OnlineAgents)
	if h.Socket != nil {
		e.Any(socketPath+"*", h.Socket.Handler())
	}

	e.POST("/signup", wrap(h.Users.Signup))
	e.POST("/login", wrap(h.Users.Login))

	authed := e.Group("", mdw.Auth(h.Auth))
	authed.POST("/logout", wrap(h.Users.Logout))
	authed.POST("/addnote", wrap(h.Notes.AddNote))
	authed.GET("/fetchnotes", wrap(h.Notes.FetchNotes))
	authed.PUT("/update/:id", wrap(h.Notes.UpdateNote))
	authed.DELETE("/delete/:id", wrap(h.Notes.DeleteNote))

	visitors := e.Group("/visitors")
	visitors.GET("", wrap(h.Visitors.List))
	visitors.POST("", wrap(h.Visitors.Upsert))
	visitors.GET("/:id", wrap(h.Visitors.Get))
	visitors.PUT("/:id", wrap(h.Visitors.Update))
	visitors.DELETE("/:id", wrap(h.Visitors.Delete))
	visitors.GET("/:id/sessions", wrap(h.Visitors.Sessions))
	visitors.PATCH("/:id/status", wrap(h.Visitors.SetStatus))
	visitors.GET("/:id/stats", wrap(h.Visitors.Stats))
	visitors.GET("/:id/unread", wrap(h.Visitors.Unread))

	sessions := e.Group("/sessions")
	sessions.GET("", wrap(h.Sessions.List))
	sessions.POST("", wrap(h.Sessions.Create))
	sessions.GET("/:id", wrap(h.Sessions.Get))
	sessions.PUT("/:id", wrap(h.Sessions.Update))
	sessions.DELETE("/:id", wrap(h.Sessions.Delete))
	sessions.PATCH("/:id/assign", wrap(h.Sessions.Assign))
	sessions.PATCH("/:id/transfer", wrap(h.Sessions.Transfer))
	sessions.PATCH("/:id/close", wrap(h.Sessions.Close))
	sessions.GET("/:id/messages", wrap(h.Sessions.Messages))
	sessions.POST("/:id/messages", wrap(h.Sessions.PostMessage))
	sessions.GET("/:id/stats", wrap(h.Sessions.Stats))
	sessions.GET("/:id/transcript", wrap(h.Sessions.Transcript))

	messages := e.Group("/messages")
	messages.POST("/read", wrap(h.Messages.MarkRead))
	messages.PATCH("/:id", wrap(h.Messages.Edit))
	messages.POST("/:id/reactions", wrap(h.Messages.React))
	messages.PATCH("/:id/delivery", wrap(h.Messages.SetDelivery))
}
