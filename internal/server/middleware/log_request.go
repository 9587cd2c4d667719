package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
)

const (
	defaultMaxLoggedBody = 4 << 10
	// bodies above this are never buffered for masking, only their size is logged
	maxCapturedBody = 64 << 10
	maskedValue     = "***"
)

// AccessLogConfig configures AccessLog.
type AccessLogConfig struct {
	Logger  Logger
	Skipper Skipper
	// MaskFields are dotted JSON paths masked in every logged body. A path
	// crossing an array applies to each element, so "messages.content"
	// masks the content of every message.
	MaskFields []string
	// RouteMaskFields adds paths for one route template, e.g. "/login".
	RouteMaskFields map[string][]string
	// MaxBodyBytes caps each logged body after masking.
	MaxBodyBytes int
	// Fields appends request specific key/value pairs.
	Fields func(c echo.Context) []any
}

// AccessLog writes one line per request: info below 400, warn below 500,
// error above with the handler error attached. JSON bodies are logged with
// sensitive paths masked; other bodies are left out.
func AccessLog(config AccessLogConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		panic("middleware: AccessLog needs a Logger")
	}
	if config.Skipper == nil {
		config.Skipper = DefaultSkipper
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxLoggedBody
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}

			start := time.Now()
			req := c.Request()
			reqBody, reqTooLarge := captureRequestBody(req)
			capture := &captureWriter{ResponseWriter: c.Response().Writer}
			c.Response().Writer = capture

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			route := c.Path()
			fields := []any{
				"status", res.Status,
				"method", req.Method,
				"route", route,
				"uri", req.RequestURI,
				"latency_ms", time.Since(start).Milliseconds(),
				"real_ip", c.RealIP(),
				"user_agent", req.UserAgent(),
				"request_id", GetRequestID(c),
			}
			if params := routeParams(c); len(params) > 0 {
				fields = append(fields, "params", params)
			}
			if config.Fields != nil {
				fields = append(fields, config.Fields(c)...)
			}

			mask := slices.Concat(config.MaskFields, config.RouteMaskFields[route])
			switch {
			case reqTooLarge:
				fields = append(fields, "request_body", omitted(req.ContentLength))
			case len(reqBody) > 0:
				fields = append(fields, "request_body", loggedBody(reqBody, mask, config.MaxBodyBytes))
			}
			if isJSON(res.Header().Get(echo.HeaderContentType)) {
				switch {
				case capture.overflow:
					fields = append(fields, "response_body", omitted(res.Size))
				case capture.buf.Len() > 0:
					fields = append(fields, "response_body", loggedBody(capture.buf.Bytes(), mask, config.MaxBodyBytes))
				}
			}

			switch {
			case res.Status >= http.StatusInternalServerError:
				if err != nil {
					fields = append(fields, "error", err.Error())
				}
				config.Logger.Errorw("request failed", fields...)
			case res.Status >= http.StatusBadRequest:
				config.Logger.Warnw("request rejected", fields...)
			default:
				config.Logger.Infow("request served", fields...)
			}
			return err
		}
	}
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(contentType, echo.MIMEApplicationJSON)
}

// captureRequestBody reads a JSON body and puts it back for the handler.
func captureRequestBody(req *http.Request) (body []byte, tooLarge bool) {
	if req.Body == nil || !isJSON(req.Header.Get(echo.HeaderContentType)) {
		return nil, false
	}
	if req.ContentLength > maxCapturedBody {
		return nil, true
	}
	body, _ = io.ReadAll(req.Body)
	req.Body = io.NopCloser(bytes.NewReader(body))
	return body, false
}

func routeParams(c echo.Context) map[string]string {
	names := c.ParamNames()
	if len(names) == 0 {
		return nil
	}
	values := c.ParamValues()
	params := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(values) {
			params[name] = values[i]
		}
	}
	return params
}

func omitted(size int64) string {
	return fmt.Sprintf("<%d bytes omitted>", size)
}

// loggedBody masks body and cuts it to limit. Valid JSON under the limit is
// logged raw; anything cut is logged as a string.
func loggedBody(body []byte, mask []string, limit int) any {
	body = maskJSON(body, mask)
	if len(body) > limit {
		return string(body[:limit]) + "...(truncated)"
	}
	if !gojson.Valid(body) {
		return string(body)
	}
	return json.RawMessage(body)
}

// maskJSON replaces the values at the given paths. Bodies that do not parse
// are returned as is.
func maskJSON(body []byte, paths []string) []byte {
	if len(body) == 0 || len(paths) == 0 {
		return body
	}
	var doc any
	if err := gojson.Unmarshal(body, &doc); err != nil {
		return body
	}
	masked := false
	for _, p := range paths {
		masked = maskPath(doc, strings.Split(p, ".")) || masked
	}
	if !masked {
		return body
	}
	out, err := gojson.Marshal(doc)
	if err != nil {
		return body
	}
	return out
}

func maskPath(v any, keys []string) bool {
	switch node := v.(type) {
	case map[string]any:
		child, ok := node[keys[0]]
		if !ok {
			return false
		}
		if len(keys) == 1 {
			node[keys[0]] = maskedValue
			return true
		}
		return maskPath(child, keys[1:])
	case []any:
		masked := false
		for _, item := range node {
			masked = maskPath(item, keys) || masked
		}
		return masked
	}
	return false
}

// captureWriter copies what the handler writes, up to maxCapturedBody.
type captureWriter struct {
	http.ResponseWriter
	buf      bytes.Buffer
	overflow bool
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.buf.Len()+len(b) > maxCapturedBody {
			w.overflow = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *captureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer %T cannot hijack", w.ResponseWriter)
	}
	return h.Hijack()
}
