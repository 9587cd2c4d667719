package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/livechat/pkg/ctxval"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
)

// XRequestID is read from the request and echoed on the response.
const XRequestID = echo.HeaderXRequestID

// maxRequestIDLen bounds client supplied ids before they reach the logs.
const maxRequestIDLen = 128

type requestIDKey struct{}

func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(XRequestID).(string); ok {
		return id
	}
	return RequestIDFromContext(c.Request().Context())
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID keeps a sane incoming X-Request-ID or mints a uuid, then
// publishes it on the echo context, the request context and the log fields
// of the request.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID := c.Request().Header.Get(XRequestID)
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = uuid.NewString()
			}

			ctx := ctxval.Wrap(c.Request().Context())
			ctx = context.WithValue(ctx, requestIDKey{}, reqID)
			log.WithFields(ctx, "request_id", reqID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(XRequestID, reqID)
			c.Response().Header().Set(XRequestID, reqID)
			return next(c)
		}
	}
}
