package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"rushweb/internal/debounce"
	"rushweb/internal/rushclient"
)

// Backend is the part of the RU:SH backend the session needs.
type Backend interface {
	GetUserAuth(ctx context.Context) (rushclient.UserAuth, error)
	SignIn(ctx context.Context, idToken string) (string, error)
}

// Action changes a Session. See Verify, SignIn, SignOut and ReplaceToken.
type Action interface {
	action()
}

// Verify re-checks the token with the backend. Verifications are debounced.
type Verify struct{}

// SignIn exchanges a Google ID token for a session token.
type SignIn struct {
	IDToken string
}

// SignOut forgets the token.
type SignOut struct{}

// ReplaceToken stores a token rotated by the backend.
type ReplaceToken struct {
	Token string
}

func (Verify) action()       {}
func (SignIn) action()       {}
func (SignOut) action()      {}
func (ReplaceToken) action() {}

// SessionOptions tunes a Session.
type SessionOptions struct {
	// Debounce is the verification window. Defaults to 100ms.
	Debounce time.Duration
	// VerifyTimeout bounds one verification. Defaults to 10s.
	VerifyTimeout time.Duration
	Logger        *zap.Logger
}

// Session tracks the authentication state of one browser.
type Session struct {
	backend Backend
	tokens  TokenStore
	logger  *zap.Logger
	timeout time.Duration
	verify  *debounce.Debouncer

	mu     sync.RWMutex
	state  State
	loaded chan struct{}
	subs   map[int]func(State)
	nextID int
}

// NewSession returns a session in the loading state.
func NewSession(backend Backend, tokens TokenStore, opts SessionOptions) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Session{
		backend: backend,
		tokens:  tokens,
		logger:  opts.Logger,
		timeout: opts.VerifyTimeout,
		state:   State{Role: RoleUnknown, Loading: true},
		loaded:  make(chan struct{}),
		subs:    make(map[int]func(State)),
	}
	s.verify = debounce.New(opts.Debounce, s.runVerify)
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the current backend token, empty after sign-out.
func (s *Session) Token() string {
	return s.tokens.Token()
}

// Subscribe calls fn on every state change until the returned func is called.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Dispatch applies action. Verify returns once a verification finished at least once.
func (s *Session) Dispatch(ctx context.Context, action Action) error {
	switch a := action.(type) {
	case Verify:
		s.verify.Trigger()
		return s.waitLoaded(ctx)
	case SignIn:
		return s.signIn(ctx, a.IDToken)
	case SignOut:
		s.signOut()
		return nil
	case ReplaceToken:
		if a.Token != "" {
			s.tokens.SetToken(a.Token)
		}
		return nil
	default:
		return fmt.Errorf("unknown auth action %T", action)
	}
}

// Close cancels a scheduled verification and drops subscribers.
func (s *Session) Close() {
	s.verify.Close()
	s.mu.Lock()
	s.subs = make(map[int]func(State))
	s.mu.Unlock()
}

func (s *Session) waitLoaded(ctx context.Context) error {
	select {
	case <-s.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BackendContext returns ctx carrying the session token. Tokens rotated by the
// backend during calls made with it replace the session token.
func (s *Session) BackendContext(ctx context.Context) context.Context {
	ctx = rushclient.WithToken(ctx, s.tokens.Token())
	return rushclient.WithTokenRotation(ctx, func(token string) {
		s.tokens.SetToken(token)
	})
}

func (s *Session) runVerify() {
	if s.tokens.Token() == "" {
		s.setState(Anonymous)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	userAuth, err := s.backend.GetUserAuth(s.BackendContext(ctx))
	if err != nil {
		s.logger.Warn("auth verification failed, signing out", zap.Error(err))
		s.signOut()
		return
	}
	s.setState(stateFrom(userAuth))
}

func (s *Session) signIn(ctx context.Context, idToken string) error {
	if idToken == "" {
		return nil
	}
	token, err := s.backend.SignIn(ctx, idToken)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	s.tokens.SetToken(token)

	userAuth, err := s.backend.GetUserAuth(s.BackendContext(ctx))
	if err != nil {
		return fmt.Errorf("sign in: load user: %w", err)
	}
	s.setState(stateFrom(userAuth))
	return nil
}

func (s *Session) signOut() {
	s.verify.Cancel()
	s.tokens.ClearToken()
	s.setState(Anonymous)
}

func stateFrom(userAuth rushclient.UserAuth) State {
	return State{
		Authenticated: userAuth.UserID != "",
		Role:          ConvertRole(userAuth.Role),
		UserID:        userAuth.UserID,
	}
}

func (s *Session) setState(next State) {
	next.Loading = false

	s.mu.Lock()
	changed := s.state != next
	s.state = next
	select {
	case <-s.loaded:
	default:
		close(s.loaded)
	}
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(next)
	}
}
