// Package session keeps conversation checkpoints in memory, keyed by thread
// id, for the lifetime of the process.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/sipeed/picosearch/pkg/providers"
)

type Session struct {
	Key      string              `json:"key"`
	Messages []providers.Message `json:"messages"`
	Created  time.Time           `json:"created"`
	Updated  time.Time           `json:"updated"`
}

type SessionMeta struct {
	Key        string    `json:"key"`
	UpdatedAt  time.Time `json:"updated_at"`
	MessageCnt int       `json:"message_cnt"`
}

// SessionManager is a mutex-guarded map of checkpoints. Histories are copied
// in and out so callers never share backing arrays with the store.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	now      func() time.Time
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// GetHistory returns a copy of the stored messages, or nil when key is unknown.
func (sm *SessionManager) GetHistory(key string) []providers.Message {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	s, ok := sm.sessions[key]
	if !ok {
		return nil
	}
	return cloneMessages(s.Messages)
}

// SetHistory replaces the checkpoint for key.
func (sm *SessionManager) SetHistory(key string, history []providers.Message) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	s, ok := sm.sessions[key]
	if !ok {
		s = &Session{Key: key, Created: now}
		sm.sessions[key] = s
	}
	s.Messages = cloneMessages(history)
	s.Updated = now
}

// List returns every session, most recently updated first.
func (sm *SessionManager) List() []SessionMeta {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	metas := make([]SessionMeta, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		metas = append(metas, SessionMeta{Key: s.Key, UpdatedAt: s.Updated, MessageCnt: len(s.Messages)})
	}
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].UpdatedAt.Equal(metas[j].UpdatedAt) {
			return metas[i].Key < metas[j].Key
		}
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas
}

func cloneMessages(msgs []providers.Message) []providers.Message {
	if msgs == nil {
		return nil
	}
	out := make([]providers.Message, len(msgs))
	for i, m := range msgs {
		out[i] = providers.CloneMessage(m)
	}
	return out
}
