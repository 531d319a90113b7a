// Package confirm tracks pending confirm-suggestion rounds. When a query
// lands in the suggestion band the engine hands the client an opaque token;
// the follow-up request must present it together with the chosen QA id.
// Tokens are single use and expire after a short window.
package confirm

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionExpired covers every way a token can be unusable: unknown,
// already consumed, expired, or issued to a different application.
var ErrSessionExpired = errors.New("confirmation session expired or invalid")

// DefaultTTL bounds how long a suggestion round stays answerable.
const DefaultTTL = 10 * time.Minute

// Session is one pending suggestion round.
type Session struct {
	Token     string
	AppID     int64
	Question  string
	QAIDs     []int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Offered reports whether qaID was among the suggestions of this round.
func (s *Session) Offered(qaID int64) bool {
	for _, id := range s.QAIDs {
		if id == qaID {
			return true
		}
	}
	return false
}

// Store holds pending sessions in memory. Sessions are ephemeral by
// design; a restart simply forces clients back through the suggestion
// step.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
}

// Create registers a new session and returns its token.
func (s *Store) Create(appID int64, question string, qaIDs []int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		Token:     uuid.NewString(),
		AppID:     appID,
		Question:  question,
		QAIDs:     append([]int64(nil), qaIDs...),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.sessions[sess.Token] = sess
	return sess
}

// Consume atomically looks up and invalidates the session for token.
// Only the first caller ever gets the session back; concurrent duplicates
// and replays see ErrSessionExpired.
func (s *Store) Consume(token string, appID int64) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrSessionExpired
	}
	delete(s.sessions, token)

	if sess.AppID != appID || s.now().After(sess.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep periodically until stop is closed.
func (s *Store) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
