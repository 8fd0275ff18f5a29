package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rushweb/internal/rushclient"
)

type fakeBackend struct {
	mu        sync.Mutex
	auth      rushclient.UserAuth
	authErr   error
	signIn    string
	signInErr error
	calls     atomic.Int32
	gotTokens []string
}

func (f *fakeBackend) GetUserAuth(ctx context.Context) (rushclient.UserAuth, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.gotTokens = append(f.gotTokens, rushclient.TokenFrom(ctx))
	auth, err := f.auth, f.authErr
	f.mu.Unlock()
	if err != nil {
		return rushclient.UserAuth{}, err
	}
	return auth, nil
}

func (f *fakeBackend) SignIn(ctx context.Context, idToken string) (string, error) {
	if f.signInErr != nil {
		return "", f.signInErr
	}
	return f.signIn, nil
}

func newTestSession(backend Backend, token string) *Session {
	return NewSession(backend, NewMemoryTokenStore(token), SessionOptions{Debounce: 30 * time.Millisecond})
}

func TestConvertRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ConvertRole("super_admin"))
	assert.Equal(t, RoleAdmin, ConvertRole("admin"))
	assert.Equal(t, RoleMember, ConvertRole("member"))
	assert.Equal(t, RoleUnknown, ConvertRole("unknown"))
	assert.Equal(t, RoleUnknown, ConvertRole(""))
	assert.Equal(t, RoleUnknown, ConvertRole("owner"))
}

func TestSessionStartsLoading(t *testing.T) {
	s := newTestSession(&fakeBackend{}, "tok")
	defer s.Close()

	assert.True(t, s.State().Loading)
	assert.False(t, s.State().Authenticated)
}

func TestVerifyAuthenticates(t *testing.T) {
	backend := &fakeBackend{auth: rushclient.UserAuth{UserID: "u1", Role: "super_admin"}}
	s := newTestSession(backend, "tok")
	defer s.Close()

	require.NoError(t, s.Dispatch(context.Background(), Verify{}))

	state := s.State()
	assert.True(t, state.Authenticated)
	assert.True(t, state.IsAdmin())
	assert.Equal(t, "u1", state.UserID)
	assert.False(t, state.Loading)
	assert.Equal(t, []string{"tok"}, backend.gotTokens)
}

func TestVerifyWithEmptyUserIDIsNotAuthenticated(t *testing.T) {
	backend := &fakeBackend{auth: rushclient.UserAuth{UserID: "", Role: "member"}}
	s := newTestSession(backend, "tok")
	defer s.Close()

	require.NoError(t, s.Dispatch(context.Background(), Verify{}))
	assert.False(t, s.State().Authenticated)
	assert.Equal(t, RoleMember, s.State().Role)
}

func TestFailedVerifySignsOut(t *testing.T) {
	backend := &fakeBackend{authErr: &rushclient.StatusError{Op: "get user auth", StatusCode: 401}}
	s := newTestSession(backend, "tok")
	defer s.Close()

	require.NoError(t, s.Dispatch(context.Background(), Verify{}))

	assert.Equal(t, Anonymous, s.State())
	assert.Empty(t, s.Token())
}

func TestVerifyBurstIsDebounced(t *testing.T) {
	backend := &fakeBackend{auth: rushclient.UserAuth{UserID: "u1", Role: "member"}}
	s := newTestSession(backend, "tok")
	defer s.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Dispatch(context.Background(), Verify{}))
	}
	assert.Equal(t, int32(1), backend.calls.Load())

	assert.Eventually(t, func() bool { return backend.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(90 * time.Millisecond)
	assert.Equal(t, int32(2), backend.calls.Load())
}

func TestVerifyWithoutTokenSkipsBackend(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSession(backend, "")
	defer s.Close()

	require.NoError(t, s.Dispatch(context.Background(), Verify{}))
	assert.Equal(t, int32(0), backend.calls.Load())
	assert.Equal(t, Anonymous, s.State())
}

func TestSignInStoresTokenAndLoadsRole(t *testing.T) {
	backend := &fakeBackend{signIn: "rush-token", auth: rushclient.UserAuth{UserID: "u1", Role: "member"}}
	s := newTestSession(backend, "")
	defer s.Close()

	require.NoError(t, s.Dispatch(context.Background(), SignIn{IDToken: "google"}))

	assert.Equal(t, "rush-token", s.Token())
	assert.True(t, s.State().Authenticated)
	assert.Equal(t, RoleMember, s.State().Role)
	assert.Equal(t, []string{"rush-token"}, backend.gotTokens)
}

func TestSignInFailureKeepsState(t *testing.T) {
	backend := &fakeBackend{signInErr: errors.New("boom")}
	s := newTestSession(backend, "")
	defer s.Close()

	err := s.Dispatch(context.Background(), SignIn{IDToken: "google"})
	require.Error(t, err)
	assert.Empty(t, s.Token())
	assert.True(t, s.State().Loading)
}

func TestSignInWithoutIDTokenIsNoop(t *testing.T) {
	backend := &fakeBackend{signInErr: errors.New("must not be called")}
	s := newTestSession(backend, "")
	defer s.Close()

	assert.NoError(t, s.Dispatch(context.Background(), SignIn{}))
}

func TestSignOutAndReplaceToken(t *testing.T) {
	backend := &fakeBackend{auth: rushclient.UserAuth{UserID: "u1", Role: "admin"}}
	s := newTestSession(backend, "tok")
	defer s.Close()

	require.NoError(t, s.Dispatch(context.Background(), ReplaceToken{Token: "tok2"}))
	assert.Equal(t, "tok2", s.Token())

	require.NoError(t, s.Dispatch(context.Background(), Verify{}))
	require.NoError(t, s.Dispatch(context.Background(), SignOut{}))
	assert.Empty(t, s.Token())
	assert.Equal(t, Anonymous, s.State())
}

func TestSubscribeReceivesChanges(t *testing.T) {
	backend := &fakeBackend{auth: rushclient.UserAuth{UserID: "u1", Role: "admin"}}
	s := newTestSession(backend, "tok")
	defer s.Close()

	var seen []State
	unsubscribe := s.Subscribe(func(st State) { seen = append(seen, st) })

	require.NoError(t, s.Dispatch(context.Background(), Verify{}))
	require.Len(t, seen, 1)
	assert.True(t, seen[0].Authenticated)

	unsubscribe()
	require.NoError(t, s.Dispatch(context.Background(), SignOut{}))
	assert.Len(t, seen, 1)
}

func TestVerifyRespectsContext(t *testing.T) {
	block := make(chan struct{})
	backend := &blockingBackend{release: block}
	s := newTestSession(backend, "tok")
	defer func() {
		close(block)
		s.Close()
	}()

	// The leading verification of another caller is still in flight.
	go func() { _ = s.Dispatch(context.Background(), Verify{}) }()
	assert.Eventually(t, func() bool { return backend.started.Load() }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Dispatch(ctx, Verify{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingBackend struct {
	release chan struct{}
	started atomic.Bool
}

func (b *blockingBackend) GetUserAuth(ctx context.Context) (rushclient.UserAuth, error) {
	b.started.Store(true)
	<-b.release
	return rushclient.UserAuth{UserID: "u1", Role: "member"}, nil
}

func (b *blockingBackend) SignIn(ctx context.Context, idToken string) (string, error) {
	return "", nil
}
