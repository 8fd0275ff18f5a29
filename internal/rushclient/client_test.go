package rushclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second, zap.NewNop())
}

func TestClientSendsTokenAndPagination(t *testing.T) {
	var gotPath, gotQuery, gotAuth, gotCookie string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		if cookie, err := r.Cookie(AuthCookieName); err == nil {
			gotCookie = cookie.Value
		}
		_, _ = w.Write([]byte(`{"is_end":false,"total_count":30,"users":[]}`))
	})

	page, err := c.ListUsers(WithToken(context.Background(), "tok"), 10, 10)
	require.NoError(t, err)

	assert.Equal(t, "/api/users", gotPath)
	assert.Equal(t, "offset=10&pageSize=10", gotQuery)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "tok", gotCookie)
	assert.Equal(t, 30, page.TotalCount)
	assert.False(t, page.IsEnd)
}

func TestClientReportsRotatedToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ReplaceCookieHeader, "rotated")
		_, _ = w.Write([]byte(`{"user_id":"u1","user_role":"admin"}`))
	})

	var rotated string
	ctx := WithTokenRotation(WithToken(context.Background(), "old"), func(token string) { rotated = token })

	auth, err := c.GetUserAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", auth.UserID)
	assert.Equal(t, "rotated", rotated)
}

func TestClientStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	err := c.DeleteSession(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
	assert.True(t, IsAuthError(err))
	assert.False(t, IsNotFound(err))
}

func TestClientDecodeErrorIsNotAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":true}`))
	})

	_, err := c.GetSession(context.Background(), "s1")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, 0, StatusCode(err))
	assert.False(t, IsAuthError(err))
}

func TestCreateSessionBody(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sessions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"id":"new-session"}`))
	})

	kst := time.FixedZone("KST", 9*60*60)
	id, err := c.CreateSession(context.Background(), NewSession{
		Name:        "정기 세션",
		Description: "desc",
		StartsAt:    time.Date(2024, 1, 6, 19, 0, 0, 0, kst),
		Score:       10,
	})
	require.NoError(t, err)

	assert.Equal(t, "new-session", id)
	assert.Equal(t, "정기 세션", body["name"])
	assert.Equal(t, "2024-01-06T10:00:00Z", body["starts_at"])
	assert.Equal(t, float64(10), body["score"])
}

func TestManualAttendanceBody(t *testing.T) {
	var body map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sessions/s1/attendance/manual", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.MarkUsersAsPresent(context.Background(), "s1", []string{"u1", "u2"}))
	assert.Equal(t, []string{"u1", "u2"}, body["user_ids"])
}

func TestLateApplyEmptySelectionSendsEmptyList(t *testing.T) {
	var raw map[string]json.RawMessage
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sessions/s1/attendance/late", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
	})

	require.NoError(t, c.LateApplyAttendance(context.Background(), "s1", nil))
	assert.JSONEq(t, `[]`, string(raw["user_ids"]))
}

func TestAddUserBody(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
	})

	err := c.AddUser(context.Background(), NewUser{Name: "김건", Generation: 9.5, IsActive: true, Email: "k@rush.kr"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"name": "김건", "generation": 9.5, "is_active": true, "email": "k@rush.kr"}, body)
}

func TestSignInAndForm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sign-in":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "google-id-token", body["token"])
			_, _ = w.Write([]byte(`{"token":"rush-token"}`))
		case "/api/sessions/s1/attendance-form":
			_, _ = w.Write([]byte(`{"form_url":"https://forms.gle/x"}`))
		default:
			http.NotFound(w, r)
		}
	})

	token, err := c.SignIn(context.Background(), "google-id-token")
	require.NoError(t, err)
	assert.Equal(t, "rush-token", token)

	formURL, err := c.CreateAttendanceForm(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "https://forms.gle/x", formURL)

	_, err = c.GetUser(context.Background(), "nobody")
	assert.True(t, IsNotFound(err))
}

func TestPagerStopsAtLastPage(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, offset, pageSize int) (Page[int], error) {
		calls++
		if offset == 0 {
			return Page[int]{Items: []int{1, 2}, IsEnd: false, TotalCount: 3}, nil
		}
		assert.Equal(t, 2, offset)
		return Page[int]{Items: []int{3}, IsEnd: true, TotalCount: 3}, nil
	}

	p := NewPager[int](fetch, 2)
	all, err := CollectAll(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, all)

	_, err = p.Next(context.Background())
	assert.ErrorIs(t, err, ErrPastLastPage)
	assert.Equal(t, 2, calls)
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, PageOffset(-1, 10))
	assert.Equal(t, 20, PageOffset(2, 10))
}

func TestAdminCallsUseMethodAndPath(t *testing.T) {
	type call struct{ method, path, query string }
	var calls []call
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{r.Method, r.URL.Path, r.URL.RawQuery})
		if r.URL.Path == "/api/users" {
			_, _ = w.Write([]byte(`[{"id":"u1","name":"김건","generation":9.5,"is_active":true,"email":"k@rush.kr","external_name":"김건"}]`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := WithToken(context.Background(), "tok")

	users, err := c.ListAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 9.5, users[0].Generation)

	require.NoError(t, c.CheckAuth(ctx))
	require.NoError(t, c.DeleteSession(ctx, "s1"))
	require.NoError(t, c.ApplyAttendanceByForm(ctx, "s1"))

	assert.Equal(t, []call{
		{http.MethodGet, "/api/users", "all=1"},
		{http.MethodPost, "/api/auth", ""},
		{http.MethodDelete, "/api/sessions/s1", ""},
		{http.MethodPost, "/api/sessions/s1/attendance", ""},
	}, calls)
}
