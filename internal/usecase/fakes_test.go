package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/internal/repo/mongodb"
)

// memStore backs every fake repository with the same maps so cascades can
// be observed across collections.
type memStore struct {
	mu       sync.Mutex
	visitors map[primitive.ObjectID]*models.Visitor
	sessions map[primitive.ObjectID]*models.ChatSession
	messages map[primitive.ObjectID]*models.Message
	notes    map[primitive.ObjectID]*models.Note
	users    map[primitive.ObjectID]*models.User
	tokens   map[string]*models.AuthToken
}

func newMemStore() *memStore {
	return &memStore{
		visitors: map[primitive.ObjectID]*models.Visitor{},
		sessions: map[primitive.ObjectID]*models.ChatSession{},
		messages: map[primitive.ObjectID]*models.Message{},
		notes:    map[primitive.ObjectID]*models.Note{},
		users:    map[primitive.ObjectID]*models.User{},
		tokens:   map[string]*models.AuthToken{},
	}
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func paginate[T any](all []*T, page models.PageRequest) *mongodb.PaginateWithTotal[T] {
	total := int64(len(all))
	start := page.Skip()
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return &mongodb.PaginateWithTotal[T]{Total: total, Data: all[start:end]}
}

type fakeVisitorRepo struct{ *memStore }

func (f fakeVisitorRepo) Upsert(_ context.Context, req models.UpsertVisitorRequest, now time.Time) (*models.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.visitors {
		if v.VisitorID == req.VisitorID {
			if req.Name != "" {
				v.Name = req.Name
			}
			if req.Email != "" {
				v.Email = req.Email
			}
			v.IsOnline, v.LastSeen = true, now
			return clone(v), nil
		}
	}
	v := &models.Visitor{
		ID: primitive.NewObjectID(), VisitorID: req.VisitorID, Name: req.Name, Email: req.Email,
		IsOnline: true, LastSeen: now, FirstVisit: now, CreatedAt: now,
	}
	if v.Name == "" {
		v.Name = models.DefaultVisitorName
	}
	f.visitors[v.ID] = v
	return clone(v), nil
}

func (f fakeVisitorRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visitors[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(v), nil
}

func (f fakeVisitorRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[primitive.ObjectID]*models.Visitor{}
	for _, id := range ids {
		if v, ok := f.visitors[id]; ok {
			out[id] = clone(v)
		}
	}
	return out, nil
}

func (f fakeVisitorRepo) List(_ context.Context, filter models.VisitorFilter, page models.PageRequest) (*mongodb.PaginateWithTotal[models.Visitor], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*models.Visitor
	for _, v := range f.visitors {
		if filter.Online != nil && v.IsOnline != *filter.Online {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(v.Name), strings.ToLower(filter.Search)) {
			continue
		}
		all = append(all, clone(v))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LastSeen.After(all[j].LastSeen) })
	return paginate(all, page), nil
}

func (f fakeVisitorRepo) Update(_ context.Context, id primitive.ObjectID, patch models.VisitorPatch, now time.Time) (*models.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visitors[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if patch.Name != nil {
		v.Name = *patch.Name
	}
	if patch.Email != nil {
		v.Email = *patch.Email
	}
	v.UpdatedAt = now
	return clone(v), nil
}

func (f fakeVisitorRepo) SetStatus(_ context.Context, id primitive.ObjectID, online bool, now time.Time) (*models.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visitors[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	v.IsOnline, v.LastSeen = online, now
	return clone(v), nil
}

func (f fakeVisitorRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.visitors[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.visitors, id)
	return nil
}

func (f fakeVisitorRepo) IncrementCounters(_ context.Context, id primitive.ObjectID, sessions, messages int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visitors[id]
	if !ok {
		return models.ErrNotFound
	}
	v.SessionCount += sessions
	v.TotalMessages += messages
	return nil
}

func (f fakeVisitorRepo) SetCounters(_ context.Context, id primitive.ObjectID, sessions, messages int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visitors[id]
	if !ok {
		return models.ErrNotFound
	}
	v.SessionCount, v.TotalMessages = sessions, messages
	return nil
}

type fakeSessionRepo struct{ *memStore }

// activeTaken mimics the partial unique index on active sessions.
func (f fakeSessionRepo) activeTaken(visitorID, except primitive.ObjectID) bool {
	for _, s := range f.sessions {
		if s.ID != except && s.VisitorID == visitorID && s.Status == models.SessionActive {
			return true
		}
	}
	return false
}

func (f fakeSessionRepo) Create(_ context.Context, s *models.ChatSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.Status == models.SessionActive && f.activeTaken(s.VisitorID, primitive.NilObjectID) {
		return models.ErrDuplicate
	}
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	f.sessions[s.ID] = clone(s)
	return nil
}

func (f fakeSessionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(s), nil
}

func (f fakeSessionRepo) FindActiveByVisitor(_ context.Context, visitorID primitive.ObjectID) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.VisitorID == visitorID && s.Status == models.SessionActive {
			return clone(s), nil
		}
	}
	return nil, models.ErrNotFound
}

func (f fakeSessionRepo) FindOpenByVisitors(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[primitive.ObjectID]*models.ChatSession{}
	for _, s := range f.sessions {
		for _, id := range ids {
			if s.VisitorID == id && s.IsOpen() {
				out[id] = clone(s)
			}
		}
	}
	return out, nil
}

func (f fakeSessionRepo) mutateOpen(id primitive.ObjectID, fn func(s *models.ChatSession)) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status == models.SessionClosed {
		return nil, models.ErrNotFound
	}
	if f.activeTaken(s.VisitorID, s.ID) {
		return nil, models.ErrDuplicate
	}
	fn(s)
	return clone(s), nil
}

func (f fakeSessionRepo) Assign(_ context.Context, id, agentID primitive.ObjectID, now time.Time) (*models.ChatSession, error) {
	return f.mutateOpen(id, func(s *models.ChatSession) {
		s.AgentID, s.Status, s.LastActivity = &agentID, models.SessionActive, now
	})
}

func (f fakeSessionRepo) Transfer(_ context.Context, id primitive.ObjectID, t models.Transfer, now time.Time) (*models.ChatSession, error) {
	return f.mutateOpen(id, func(s *models.ChatSession) {
		s.TransferHistory = append(s.TransferHistory, t)
		to := t.ToAgent
		s.AgentID, s.Status, s.LastActivity = &to, models.SessionActive, now
	})
}

func (f fakeSessionRepo) Close(_ context.Context, id primitive.ObjectID, rating *int, feedback *string, now time.Time) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	s.Status, s.EndedAt, s.Rating, s.Feedback, s.LastActivity = models.SessionClosed, &now, rating, feedback, now
	return clone(s), nil
}

func (f fakeSessionRepo) Update(_ context.Context, id primitive.ObjectID, patch models.SessionPatch, now time.Time) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if patch.Status != nil {
		if *patch.Status == models.SessionActive && f.activeTaken(s.VisitorID, s.ID) {
			return nil, models.ErrDuplicate
		}
		s.Status = *patch.Status
		if s.Status == models.SessionClosed {
			s.EndedAt = &now
		}
	}
	if patch.Tags != nil {
		s.Tags = patch.Tags
	}
	s.LastActivity = now
	return clone(s), nil
}

func (f fakeSessionRepo) RecordMessage(_ context.Context, id primitive.ObjectID, rt *float64, now time.Time) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	s.MessageCount++
	if rt != nil {
		s.AvgResponseTime = (s.AvgResponseTime*float64(s.ResponseCount) + *rt) / float64(s.ResponseCount+1)
		s.ResponseCount++
	}
	s.LastActivity = now
	return clone(s), nil
}

func (f fakeSessionRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f fakeSessionRepo) DeleteByVisitor(_ context.Context, visitorID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if s.VisitorID == visitorID {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func (f fakeSessionRepo) filtered(keep func(*models.ChatSession) bool) []*models.ChatSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*models.ChatSession
	for _, s := range f.sessions {
		if keep(s) {
			all = append(all, clone(s))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all
}

func (f fakeSessionRepo) List(_ context.Context, filter models.SessionFilter, page models.PageRequest) (*mongodb.PaginateWithTotal[models.ChatSession], error) {
	return paginate(f.filtered(func(s *models.ChatSession) bool {
		return filter.Status == "" || s.Status == filter.Status
	}), page), nil
}

func (f fakeSessionRepo) ListByVisitor(_ context.Context, visitorID primitive.ObjectID, status models.SessionStatus, page models.PageRequest) (*mongodb.PaginateWithTotal[models.ChatSession], error) {
	return paginate(f.filtered(func(s *models.ChatSession) bool {
		return s.VisitorID == visitorID && (status == "" || s.Status == status)
	}), page), nil
}

func (f fakeSessionRepo) Recent(_ context.Context, visitorID primitive.ObjectID, n int64) ([]*models.ChatSession, error) {
	all := f.filtered(func(s *models.ChatSession) bool { return s.VisitorID == visitorID })
	if int64(len(all)) > n {
		all = all[:n]
	}
	return all, nil
}

func (f fakeSessionRepo) CountByVisitor(_ context.Context, visitorID primitive.ObjectID) (int64, error) {
	return int64(len(f.filtered(func(s *models.ChatSession) bool { return s.VisitorID == visitorID }))), nil
}

func (f fakeSessionRepo) VisitorAggregate(_ context.Context, visitorID primitive.ObjectID) (*mongodb.SessionAggregate, error) {
	all := f.filtered(func(s *models.ChatSession) bool { return s.VisitorID == visitorID })
	agg := &mongodb.SessionAggregate{TotalSessions: int64(len(all))}
	var ratings, durations []float64
	for _, s := range all {
		if s.Rating != nil {
			ratings = append(ratings, float64(*s.Rating))
		}
		if s.EndedAt != nil {
			durations = append(durations, float64(s.EndedAt.Sub(s.StartedAt).Milliseconds()))
		}
	}
	agg.AvgRating = avg(ratings)
	agg.AvgDuration = avg(durations)
	return agg, nil
}

func avg(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	out := sum / float64(len(values))
	return &out
}

type fakeMessageRepo struct{ *memStore }

func (f fakeMessageRepo) Create(_ context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	f.messages[m.ID] = clone(m)
	return nil
}

func (f fakeMessageRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(m), nil
}

func (f fakeMessageRepo) filtered(keep func(*models.Message) bool) []*models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*models.Message
	for _, m := range f.messages {
		if keep(m) {
			all = append(all, clone(m))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all
}

func (f fakeMessageRepo) ListBySession(_ context.Context, sessionID primitive.ObjectID, page models.PageRequest) (*mongodb.PaginateWithTotal[models.Message], error) {
	return paginate(f.filtered(func(m *models.Message) bool { return m.SessionID == sessionID }), page), nil
}

func (f fakeMessageRepo) AllBySession(_ context.Context, sessionID primitive.ObjectID) ([]*models.Message, error) {
	return f.filtered(func(m *models.Message) bool { return m.SessionID == sessionID }), nil
}

func (f fakeMessageRepo) LatestVisitorMessage(_ context.Context, sessionID primitive.ObjectID) (*models.Message, error) {
	all := f.filtered(func(m *models.Message) bool {
		return m.SessionID == sessionID && m.SenderType == models.SenderVisitor
	})
	if len(all) == 0 {
		return nil, models.ErrNotFound
	}
	return all[len(all)-1], nil
}

func (f fakeMessageRepo) MarkRead(_ context.Context, ids []primitive.ObjectID, readerID primitive.ObjectID, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if m, ok := f.messages[id]; ok {
			m.IsRead, m.ReadAt = true, &now
			m.Metadata.ReadReceipts = append(m.Metadata.ReadReceipts, models.ReadReceipt{UserID: readerID, ReadAt: now})
			n++
		}
	}
	return n, nil
}

func (f fakeMessageRepo) GroupByVisitor(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID][]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[primitive.ObjectID][]primitive.ObjectID{}
	for _, id := range ids {
		if m, ok := f.messages[id]; ok {
			out[m.VisitorID] = append(out[m.VisitorID], id)
		}
	}
	return out, nil
}

func (f fakeMessageRepo) CountUnread(_ context.Context, visitorID primitive.ObjectID) (int64, error) {
	return int64(len(f.filtered(func(m *models.Message) bool {
		return m.VisitorID == visitorID && m.SenderType == models.SenderVisitor && !m.IsRead
	}))), nil
}

func (f fakeMessageRepo) UnreadByVisitors(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	out := map[primitive.ObjectID]int64{}
	for _, id := range ids {
		n, _ := f.CountUnread(ctx, id)
		if n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func (f fakeMessageRepo) mutate(id primitive.ObjectID, fn func(m *models.Message)) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	fn(m)
	return clone(m), nil
}

func (f fakeMessageRepo) Edit(_ context.Context, id primitive.ObjectID, content string, now time.Time) (*models.Message, error) {
	return f.mutate(id, func(m *models.Message) { m.Content, m.IsEdited, m.EditedAt = content, true, &now })
}

func (f fakeMessageRepo) SetReaction(_ context.Context, id, userID primitive.ObjectID, r models.Reaction, now time.Time) (*models.Message, error) {
	return f.mutate(id, func(m *models.Message) {
		kept := m.Reactions[:0]
		for _, existing := range m.Reactions {
			if existing.UserID != userID {
				kept = append(kept, existing)
			}
		}
		m.Reactions = append(kept, models.MessageReaction{UserID: userID, Reaction: r, CreatedAt: now})
	})
}

func (f fakeMessageRepo) SetDeliveryStatus(_ context.Context, id primitive.ObjectID, s models.DeliveryStatus, _ time.Time) (*models.Message, error) {
	return f.mutate(id, func(m *models.Message) { m.Metadata.DeliveryStatus = s })
}

func (f fakeMessageRepo) deleteWhere(keep func(*models.Message) bool) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, m := range f.messages {
		if keep(m) {
			delete(f.messages, id)
			n++
		}
	}
	return n
}

func (f fakeMessageRepo) DeleteBySession(_ context.Context, sessionID primitive.ObjectID) (int64, error) {
	return f.deleteWhere(func(m *models.Message) bool { return m.SessionID == sessionID }), nil
}

func (f fakeMessageRepo) DeleteByVisitor(_ context.Context, visitorID primitive.ObjectID) (int64, error) {
	return f.deleteWhere(func(m *models.Message) bool { return m.VisitorID == visitorID }), nil
}

func (f fakeMessageRepo) CountBySender(_ context.Context, sessionID primitive.ObjectID) ([]models.SenderCount, error) {
	counts := map[models.SenderType]int64{}
	for _, m := range f.filtered(func(m *models.Message) bool { return m.SessionID == sessionID }) {
		counts[m.SenderType]++
	}
	var out []models.SenderCount
	for sender, n := range counts {
		out = append(out, models.SenderCount{SenderType: sender, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SenderType < out[j].SenderType })
	return out, nil
}

func (f fakeMessageRepo) CountByVisitor(_ context.Context, visitorID primitive.ObjectID) (int64, error) {
	return int64(len(f.filtered(func(m *models.Message) bool { return m.VisitorID == visitorID }))), nil
}

type fakeNoteRepo struct{ *memStore }

func (f fakeNoteRepo) Create(_ context.Context, n *models.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.notes {
		if existing.UserID == n.UserID && existing.Title == n.Title {
			return models.ErrDuplicate
		}
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	f.notes[n.ID] = clone(n)
	return nil
}

func (f fakeNoteRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(n), nil
}

func (f fakeNoteRepo) FindByOwner(_ context.Context, userID primitive.ObjectID) ([]*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Note{}
	for _, n := range f.notes {
		if n.UserID == userID {
			out = append(out, clone(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeNoteRepo) Update(_ context.Context, id primitive.ObjectID, patch models.NotePatch, now time.Time) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Content != nil {
		n.Content = *patch.Content
	}
	if patch.Tag != nil {
		n.Tag = *patch.Tag
	}
	n.UpdatedAt = now
	return clone(n), nil
}

func (f fakeNoteRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.notes[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.notes, id)
	return nil
}

type fakeUserRepo struct{ *memStore }

func (f fakeUserRepo) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return models.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	f.users[u.ID] = clone(u)
	return nil
}

func (f fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(u), nil
}

func (f fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return clone(u), nil
		}
	}
	return nil, models.ErrNotFound
}

type fakeTokenRepo struct{ *memStore }

func (f fakeTokenRepo) Create(_ context.Context, t *models.AuthToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[t.TokenHash] = clone(t)
	return nil
}

func (f fakeTokenRepo) GetByTokenHash(_ context.Context, hash string) (*models.AuthToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[hash]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(t), nil
}

func (f fakeTokenRepo) RevokeToken(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[hash]
	if !ok {
		return models.ErrNotFound
	}
	t.IsRevoked = true
	return nil
}

func (f fakeTokenRepo) RevokeUserTokens(_ context.Context, userID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tokens {
		if t.UserID == userID && !t.IsRevoked {
			t.IsRevoked = true
			n++
		}
	}
	return n, nil
}

func (f fakeTokenRepo) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for hash, t := range f.tokens {
		if t.ExpiresAt.Before(now) {
			delete(f.tokens, hash)
			n++
		}
	}
	return n, nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordedEvents) Broadcast(_ context.Context, e models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordedEvents) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Name)
	}
	return out
}

func (r *recordedEvents) last() models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type allowAll struct{}

func (allowAll) Allow(context.Context, string) (bool, error) { return true, nil }

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

// fixedClock returns t and advances it by step on every call.
func fixedClock(t time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur := t
		t = t.Add(step)
		return cur
	}
}
