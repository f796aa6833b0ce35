package client

import "sync"

// Session holds the cached access token and profile. It is explicit and
// injectable rather than package-level state, so each test (or each widget
// instance) can run with an isolated session.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *User
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Clear drops all cached session state. Called on logout and on an
// unrecoverable authorization failure.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

func (s *Session) set(token string, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

func (s *Session) setUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}
