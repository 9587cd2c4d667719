// Package middleware holds the echo plumbing shared by every route: request
// binding, error rendering, auth, access logs and metrics.
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Skipper reports whether a middleware should let c through untouched.
type Skipper func(c echo.Context) bool

func DefaultSkipper(echo.Context) bool { return false }

// Logger is the subset of *zap.SugaredLogger the middlewares write to.
type Logger interface {
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
}

// Response lets a wrapped handler pick the status code of a successful reply.
// Data is written as the JSON body unchanged.
type Response struct {
	Status int
	Data   any
}

func Created(data any) *Response {
	return &Response{Status: http.StatusCreated, Data: data}
}

// ErrorBody is the JSON shape of every error reply. SessionID is only set
// for the active session conflict.
type ErrorBody struct {
	Error     string `json:"error"`
	SessionID string `json:"sessionId,omitempty"`
}
