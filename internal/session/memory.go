package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kotsebot/kotsebot/internal/models"
)

// InMemoryStore is a simple map-backed session store. Sessions are copied
// on the way in and out so callers never share mutable state with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewInMemoryStore creates an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*models.Session)}
}

func (s *InMemoryStore) Get(ctx context.Context, userID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	return copySession(sess)
}

func (s *InMemoryStore) Set(ctx context.Context, sess *models.Session) error {
	cp, err := copySession(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = cp
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *InMemoryStore) List(ctx context.Context) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		cp, err := copySession(sess)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// copySession deep-copies a session through its JSON form, which is also
// the persisted wire shape.
func copySession(s *models.Session) (*models.Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session %s: %w", s.ID, err)
	}
	var cp models.Session
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", s.ID, err)
	}
	return &cp, nil
}
