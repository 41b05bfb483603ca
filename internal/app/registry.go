package app

import (
	"context"
	"sync"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Session *Session
	Cancel  context.CancelFunc
}

// Registry tracks live sessions so they can be counted and cancelled on shutdown.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.SessionID]*sessionEntry)}
}

func (r *Registry) Bind(sess *Session, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID()] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sess.ID())).Msg("bound session")
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CancelAll cancels every bound session's context. Sessions unbind themselves
// as their pumps exit.
func (r *Registry) CancelAll() int {
	r.mu.RLock()
	cancels := make([]context.CancelFunc, 0, len(r.sessions))
	for _, e := range r.sessions {
		if e.Cancel != nil {
			cancels = append(cancels, e.Cancel)
		}
	}
	r.mu.RUnlock()
	for _, cancel := range cancels {
		cancel()
	}
	log.Info().Str("module", "app.registry").Int("count", len(cancels)).Msg("canceled sessions")
	return len(cancels)
}
