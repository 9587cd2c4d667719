package chatstore

import (
	"sync"
)

// Store serializes dispatches and notifies subscribers after each change.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int

	// pending holds states not yet delivered, in dispatch order. Only the
	// dispatcher that finds notifying unset drains it.
	pending   []State
	notifying bool
}

func NewStore() *Store {
	return NewStoreWithState(InitialState())
}

func NewStoreWithState(initial State) *Store {
	return &Store{
		state: initial,
		subs:  map[int]func(State){},
	}
}

// Dispatch applies a and returns the new state. Subscribers see every state
// once, in dispatch order, and run outside the lock so they may dispatch
// themselves. While another dispatch is delivering, the new state is queued
// for it and Dispatch returns without waiting for subscribers.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	state := s.state
	s.pending = append(s.pending, state)
	if s.notifying {
		s.mu.Unlock()
		return state
	}
	s.notifying = true

	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		subs := make([]func(State), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
		s.mu.Unlock()
		for _, fn := range subs {
			fn(next)
		}
		s.mu.Lock()
	}
	s.notifying = false
	s.mu.Unlock()
	return state
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn and returns the function removing it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func TotalUnread(s State) int64 {
	var total int64
	for _, n := range s.UnreadCounts {
		total += n
	}
	return total
}

func VisitorByID(s State, id string) (Visitor, bool) {
	for _, v := range s.Visitors {
		if v.ID == id {
			return v, true
		}
	}
	return Visitor{}, false
}

// MessagesFor returns the messages held for a visitor, nil when none are.
func MessagesFor(s State, visitorID string) []Message {
	return s.Messages[visitorID].Messages
}
