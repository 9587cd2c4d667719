// Package chatclient calls the livechat REST API on behalf of an agent
// console and seeds a chatstore.Store with the results.
package chatclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nguyentranbao-ct/livechat/pkg/chatstore"
	"github.com/nguyentranbao-ct/livechat/pkg/util"
)

// APIError is a non 2xx answer of the API.
type APIError struct {
	Status    int    `json:"-"`
	Message   string `json:"error"`
	SessionID string `json:"sessionId,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("livechat api: %d %s", e.Status, e.Message)
}

type Pagination struct {
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int64 `json:"currentPage"`
	Total       int64 `json:"total"`
}

type VisitorPage struct {
	Visitors []chatstore.Visitor `json:"visitors"`
	Pagination
}

type Session struct {
	ID           string             `json:"id"`
	SessionID    string             `json:"sessionId"`
	VisitorID    string             `json:"visitorId"`
	AgentID      string             `json:"agentId,omitempty"`
	Status       string             `json:"status"`
	StartedAt    time.Time          `json:"startedAt"`
	EndedAt      *time.Time         `json:"endedAt,omitempty"`
	LastActivity time.Time          `json:"lastActivity"`
	Tags         []string           `json:"tags"`
	Rating       *int               `json:"rating"`
	MessageCount int64              `json:"messageCount"`
	Visitor      *chatstore.Visitor `json:"visitor,omitempty"`
}

type SessionDetail struct {
	Session
	Messages []chatstore.Message `json:"messages"`
}

type MessagePage struct {
	Messages []chatstore.Message `json:"messages"`
	Pagination
}

type CreateSession struct {
	VisitorID string `json:"visitorId"`
	AgentID   string `json:"agentId,omitempty"`
}

type PostMessage struct {
	Content     string                 `json:"content"`
	MessageType string                 `json:"messageType,omitempty"`
	SenderType  string                 `json:"senderType,omitempty"`
	AgentID     string                 `json:"agentId,omitempty"`
	Attachments []chatstore.Attachment `json:"attachments,omitempty"`
}

type CloseSession struct {
	Rating   *int    `json:"rating,omitempty"`
	Feedback *string `json:"feedback,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

type Client struct {
	rest *resty.Client
}

// New returns a client for baseURL, e.g. http://localhost:3001. token
// may be empty, the visitor, session and message routes are public.
func New(baseURL, token string) *Client {
	rest := util.NewRestyClient().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetError(&APIError{})
	if token != "" {
		rest.SetAuthToken(token)
	}
	return &Client{rest: rest}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.call(ctx, method, path, nil, body, out)
}

func (c *Client) get(ctx context.Context, path string, q map[string]string, out any) error {
	return c.call(ctx, http.MethodGet, path, q, nil, out)
}

func (c *Client) call(ctx context.Context, method, path string, q map[string]string, body, out any) error {
	req := c.rest.R().SetContext(ctx).SetQueryParams(q)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr, ok := resp.Error().(*APIError)
		if !ok || apiErr.Message == "" {
			apiErr = &APIError{Message: http.StatusText(resp.StatusCode())}
		}
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}

type ListVisitorsOptions struct {
	Page   int
	Limit  int
	Online *bool
	Search string
}

func (c *Client) ListVisitors(ctx context.Context, opts ListVisitorsOptions) (*VisitorPage, error) {
	q := pageQuery(opts.Page, opts.Limit)
	if opts.Online != nil {
		q["online"] = strconv.FormatBool(*opts.Online)
	}
	if opts.Search != "" {
		q["search"] = opts.Search
	}
	var page VisitorPage
	if err := c.get(ctx, "/visitors", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*SessionDetail, error) {
	var detail SessionDetail
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) ListSessionMessages(ctx context.Context, sessionID string, page, limit int) (*MessagePage, error) {
	var out MessagePage
	if err := c.get(ctx, "/sessions/"+sessionID+"/messages", pageQuery(page, limit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSession returns an *APIError with status 409 and SessionID set when
// the visitor already has an active session.
func (c *Client) CreateSession(ctx context.Context, in CreateSession) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/sessions", in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) PostMessage(ctx context.Context, sessionID string, in PostMessage) (*chatstore.Message, error) {
	var m chatstore.Message
	if err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/messages", in, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkRead returns how many messages changed.
func (c *Client) MarkRead(ctx context.Context, readerID string, messageIDs []string) (int64, error) {
	body := map[string]any{"messageIds": messageIDs}
	if readerID != "" {
		body["readerId"] = readerID
	}
	var out struct {
		ModifiedCount int64 `json:"modifiedCount"`
	}
	if err := c.do(ctx, http.MethodPost, "/messages/read", body, &out); err != nil {
		return 0, err
	}
	return out.ModifiedCount, nil
}

func (c *Client) AssignSession(ctx context.Context, sessionID, agentID string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPatch, "/sessions/"+sessionID+"/assign", map[string]string{"agentId": agentID}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) CloseSession(ctx context.Context, sessionID string, in CloseSession) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPatch, "/sessions/"+sessionID+"/close", in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func pageQuery(page, limit int) map[string]string {
	q := map[string]string{}
	if page > 0 {
		q["page"] = strconv.Itoa(page)
	}
	if limit > 0 {
		q["limit"] = strconv.Itoa(limit)
	}
	return q
}
