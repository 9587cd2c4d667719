package chatsocket

// UpdateAgentStatus also (re)joins the agent rooms.
func (c *Client) UpdateAgentStatus(status string) error {
	return c.Emit(EventJoinAgentRoom, agentStatus{AgentID: c.cfg.AgentID, Status: status})
}

// SetStatus changes presence without rejoining rooms.
func (c *Client) SetStatus(status string) error {
	return c.Emit(EventAgentStatus, agentStatus{AgentID: c.cfg.AgentID, Status: status})
}

func (c *Client) SendMessage(msg SendMessage) error {
	if msg.AgentID == "" {
		msg.AgentID = c.cfg.AgentID
	}
	return c.Emit(EventSendMessage, msg)
}

func (c *Client) MarkMessagesRead(visitorID string, messageIDs []string) error {
	return c.Emit(EventMarkRead, markRead{MessageIDs: messageIDs, VisitorID: visitorID, AgentID: c.cfg.AgentID})
}

func (c *Client) StartTyping(visitorID, sessionID string) error {
	return c.Emit(EventTypingStart, typing{VisitorID: visitorID, SessionID: sessionID, AgentID: c.cfg.AgentID})
}

func (c *Client) StopTyping(visitorID, sessionID string) error {
	return c.Emit(EventTypingStop, typing{VisitorID: visitorID, SessionID: sessionID, AgentID: c.cfg.AgentID})
}

func (c *Client) JoinVisitorRoom(visitorID string) error {
	return c.Emit(EventJoinVisitorRoom, visitorRoom{VisitorID: visitorID, AgentID: c.cfg.AgentID})
}

func (c *Client) LeaveVisitorRoom(visitorID string) error {
	return c.Emit(EventLeaveVisitorRoom, visitorRoom{VisitorID: visitorID, AgentID: c.cfg.AgentID})
}

func (c *Client) AssignSession(sessionID string) error {
	return c.Emit(EventAssignSession, assignSession{SessionID: sessionID, AgentID: c.cfg.AgentID})
}

func (c *Client) EndSession(sessionID, reason string) error {
	return c.Emit(EventEndSession, endSession{SessionID: sessionID, AgentID: c.cfg.AgentID, Reason: reason})
}

func (c *Client) TransferSession(sessionID, toAgentID, reason string) error {
	return c.Emit(EventTransferSession, transferSession{
		SessionID:   sessionID,
		FromAgentID: c.cfg.AgentID,
		ToAgentID:   toAgentID,
		Reason:      reason,
	})
}
