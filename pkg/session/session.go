// Package session holds the per-login context that every component needing
// identity or cache access receives explicitly. It replaces the ambient
// browser-style session storage with an object that is created on login and
// cleared on logout.
package session

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

// Store is the ephemeral string key/value contract backing the session and
// all cache namespaces. Entries live for the session only.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
	Clear()
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[key]
	return value, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]string)
}

const userKey = "user"

// User is the logged-in user record stored for the session.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// Session couples the user identity with the store the caches live in.
type Session struct {
	store Store
}

// New wraps a store in a session context. A nil store gets an in-memory one.
func New(store Store) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Session{store: store}
}

// Store exposes the backing store for cache layers.
func (s *Session) Store() Store {
	return s.store
}

// Login records the authenticated user. The username is required; anything
// else about authentication is a collaborator concern.
func (s *Session) Login(user User) error {
	if strings.TrimSpace(user.Username) == "" {
		return errors.New("session: username is required")
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		return err
	}
	s.store.Set(userKey, string(encoded))
	return nil
}

// User returns the logged-in user record, if any. A corrupted stored record
// behaves as logged out.
func (s *Session) User() (User, bool) {
	raw, ok := s.store.Get(userKey)
	if !ok {
		return User{}, false
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return User{}, false
	}
	if user.Username == "" {
		return User{}, false
	}
	return user, true
}

// Username returns the acting username, falling back to "Unknown" so audit
// columns are always populated.
func (s *Session) Username() string {
	user, ok := s.User()
	if !ok {
		return "Unknown"
	}
	return user.Username
}

// Logout clears the entire store: the user record and every cache namespace.
func (s *Session) Logout() {
	s.store.Clear()
}
