package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Registry shares one Session per token so that page loads from the same browser
// within the debounce window reuse a single verification.
type Registry struct {
	newSession func(token string) *Session
	idleTTL    time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

type registryEntry struct {
	session  *Session
	lastUsed time.Time
}

// NewRegistry returns a registry whose sessions are built by newSession and evicted
// after idleTTL without use.
func NewRegistry(idleTTL time.Duration, newSession func(token string) *Session) *Registry {
	return &Registry{
		newSession: newSession,
		idleTTL:    idleTTL,
		now:        time.Now,
		sessions:   make(map[string]*registryEntry),
	}
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Get returns the session for token, creating it on first use.
func (r *Registry) Get(token string) *Session {
	key := tokenKey(token)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[key]; ok {
		e.lastUsed = now
		return e.session
	}
	s := r.newSession(token)
	r.sessions[key] = &registryEntry{session: s, lastUsed: now}
	return s
}

// SignIn exchanges idToken on a fresh session and registers it under the
// token the backend issued.
func (r *Registry) SignIn(ctx context.Context, idToken string) (*Session, error) {
	s := r.newSession("")
	if err := s.Dispatch(ctx, SignIn{IDToken: idToken}); err != nil {
		s.Close()
		return nil, err
	}
	token := s.Token()
	if token == "" {
		s.Close()
		return nil, fmt.Errorf("sign in: backend returned no token")
	}

	r.mu.Lock()
	if old, ok := r.sessions[tokenKey(token)]; ok {
		defer old.session.Close()
	}
	r.sessions[tokenKey(token)] = &registryEntry{session: s, lastUsed: r.now()}
	r.mu.Unlock()
	return s, nil
}

// Forget closes and removes the session for token.
func (r *Registry) Forget(token string) {
	key := tokenKey(token)
	r.mu.Lock()
	e, ok := r.sessions[key]
	delete(r.sessions, key)
	r.mu.Unlock()
	if ok {
		e.session.Close()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var stale []*Session
	for key, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.session)
			delete(r.sessions, key)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done, then closes every session.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-ctx.Done():
			r.closeAll()
			return
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*registryEntry)
	r.mu.Unlock()
	for _, e := range sessions {
		e.session.Close()
	}
}
