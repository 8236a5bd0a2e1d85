package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
)

var (
	// ErrSessionNotFound is returned when an actor has no pending dialogue
	ErrSessionNotFound = errors.New("session not found")
)

type dialogueSession struct {
	state     string
	data      map[string]interface{}
	updatedAt time.Time
}

// DialogueStorage tracks the pending-dialogue marker of each actor: which
// flow owns the actor's next free-text message. At most one marker exists
// per actor; Set overwrites any stale one (last-write-wins). Markers are
// process-local and never persisted.
type DialogueStorage struct {
	mu       sync.Mutex
	sessions map[int64]*dialogueSession
	logger   domain.Logger
}

// NewDialogueStorage creates an empty dialogue storage
func NewDialogueStorage(log domain.Logger) *DialogueStorage {
	return &DialogueStorage{
		sessions: make(map[int64]*dialogueSession),
		logger:   log,
	}
}

// Get retrieves the dialogue state and context for an actor
func (s *DialogueStorage) Get(ctx context.Context, userID int64) (state string, data map[string]interface{}, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		s.logger.Debug("session not found", "user_id", userID)
		return "", nil, ErrSessionNotFound
	}
	return session.state, copyData(session.data), nil
}

// Set stores the dialogue state and context for an actor, replacing any
// existing marker
func (s *DialogueStorage) Set(ctx context.Context, userID int64, state string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.sessions[userID]; ok && prev.state != state {
		s.logger.Debug("overwriting stale session", "user_id", userID, "old_state", prev.state, "new_state", state)
	}

	s.sessions[userID] = &dialogueSession{
		state:     state,
		data:      copyData(data),
		updatedAt: time.Now(),
	}
	s.logger.Debug("session stored", "user_id", userID, "state", state)
	return nil
}

// Delete removes the dialogue marker for an actor
func (s *DialogueStorage) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; !ok {
		s.logger.Debug("session not found for deletion", "user_id", userID)
		return nil
	}

	delete(s.sessions, userID)
	s.logger.Debug("session deleted", "user_id", userID)
	return nil
}

// copyData shields stored contexts from caller-side mutation
func copyData(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	cp := make(map[string]interface{}, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return cp
}
