package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nguyentranbao-ct/livechat/internal/models"
)

var httpStatusByCode = map[codes.Code]int{
	codes.InvalidArgument:   http.StatusBadRequest,
	codes.NotFound:          http.StatusNotFound,
	codes.AlreadyExists:     http.StatusConflict,
	codes.Unauthenticated:   http.StatusUnauthorized,
	codes.PermissionDenied:  http.StatusUnauthorized,
	codes.ResourceExhausted: http.StatusTooManyRequests,
}

// ErrorHandler renders domain errors as {"error": ...}. Errors without a
// known code become an opaque 500 and are logged with the request id.
func ErrorHandler(log Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if err == nil || c.Response().Committed {
			return
		}

		code, body := errorResponse(err, c)
		if code >= http.StatusInternalServerError {
			log.Errorw("unhandled error", "error", err, "uri", c.Request().RequestURI, "request_id", GetRequestID(c))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			log.Errorw("could not response", "code", code, "response_body", body)
		}
	}
}

func errorResponse(err error, c echo.Context) (int, ErrorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprint(he.Message)
		if he.Code == http.StatusNotFound && isNotFoundHandler(c.Handler()) {
			msg = "no route matched"
		}
		return he.Code, ErrorBody{Error: msg}
	}

	var conflict *models.ConflictError
	if errors.As(err, &conflict) {
		return http.StatusConflict, ErrorBody{Error: conflict.Message, SessionID: conflict.SessionID}
	}

	// canceled by the client
	if errors.Is(err, context.Canceled) && c.Request().Context().Err() == context.Canceled {
		return 499, ErrorBody{Error: "request canceled"}
	}

	if code, ok := httpStatusByCode[models.Code(err)]; ok {
		return code, ErrorBody{Error: message(err)}
	}
	return http.StatusInternalServerError, ErrorBody{Error: http.StatusText(http.StatusInternalServerError)}
}

// message strips the grpc "rpc error: code = ... desc = " prefix, also when
// the status error is wrapped with extra context.
func message(err error) string {
	var se interface{ GRPCStatus() *status.Status }
	if !errors.As(err, &se) {
		return err.Error()
	}
	prefix := fmt.Sprintf("rpc error: code = %s desc = ", se.GRPCStatus().Code())
	return strings.Replace(err.Error(), prefix, "", 1)
}

// PublicMessage returns the message safe to show a client. Errors without a
// known code report known=false and a generic text.
func PublicMessage(err error) (msg string, known bool) {
	var conflict *models.ConflictError
	if errors.As(err, &conflict) {
		return conflict.Message, true
	}
	if _, ok := httpStatusByCode[models.Code(err)]; ok {
		return message(err), true
	}
	return "Internal error", false
}
