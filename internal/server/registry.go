// Package server tracks per-connection chat sessions in the connection
// registry.
package server

import "time"

// Session is the chat identity attached to a connection after a successful
// join. Exactly one Session exists per joined connection; a connection
// without a Session is pre-join and accepts no chat operation except join.
type Session struct {
	ConnID   string
	Username string
	Room     string
	JoinedAt time.Time
	IsTyping bool
}

// Registry maps connection identities to their sessions. It performs no
// locking of its own; ChatState serializes all access. Username uniqueness is
// a precondition checked by the join handler, not enforced here.
type Registry struct {
	sessions map[string]*Session
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Put stores the session for a connection, replacing any previous entry.
func (r *Registry) Put(connID string, s *Session) {
	r.sessions[connID] = s
}

// Get returns the session for a connection, if any.
func (r *Registry) Get(connID string) (*Session, bool) {
	s, ok := r.sessions[connID]
	return s, ok
}

// Remove deletes the session for a connection. Removing an unknown
// connection is a no-op.
func (r *Registry) Remove(connID string) {
	delete(r.sessions, connID)
}

// FindByUsernameInRoom returns the session holding the exact username within
// the given room, if one exists. Matching is case-sensitive.
func (r *Registry) FindByUsernameInRoom(username, room string) (*Session, bool) {
	for _, s := range r.sessions {
		if s.Username == username && s.Room == room {
			return s, true
		}
	}
	return nil, false
}

// FindByUsername returns the session holding the exact username in any room.
// When the same username is active in several rooms the earliest-joined
// session wins, keeping the result deterministic.
func (r *Registry) FindByUsername(username string) (*Session, bool) {
	var found *Session
	for _, s := range r.sessions {
		if s.Username != username {
			continue
		}
		if found == nil || s.JoinedAt.Before(found.JoinedAt) {
			found = s
		}
	}
	return found, found != nil
}

// All returns every registered session.
func (r *Registry) All() []*Session {
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}
