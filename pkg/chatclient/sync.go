package chatclient

import (
	"context"
	"fmt"

	"github.com/nguyentranbao-ct/livechat/pkg/chatstore"
)

// Sync loads the first page of visitors into store together with their
// server side unread counts.
func (c *Client) Sync(ctx context.Context, store *chatstore.Store, limit int) error {
	store.Dispatch(chatstore.SetLoading{Loading: true})
	defer store.Dispatch(chatstore.SetLoading{Loading: false})

	page, err := c.ListVisitors(ctx, ListVisitorsOptions{Page: 1, Limit: limit})
	if err != nil {
		store.Dispatch(chatstore.SetError{Error: err.Error()})
		return fmt.Errorf("list visitors: %w", err)
	}
	store.Dispatch(chatstore.SetVisitors{Visitors: page.Visitors})
	for _, v := range page.Visitors {
		store.Dispatch(chatstore.UpdateUnreadCount{VisitorID: v.ID, Count: v.UnreadCount})
	}
	return nil
}

// LoadThread fetches a session with its messages and installs them as the
// visitor's thread.
func (c *Client) LoadThread(ctx context.Context, store *chatstore.Store, sessionID string) (*SessionDetail, error) {
	detail, err := c.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	store.Dispatch(chatstore.SetMessages{VisitorID: detail.VisitorID, Messages: detail.Messages})
	return detail, nil
}
