package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionJSON = `{
	"id": "s1", "name": "정기 세션", "description": "", "created_by": "admin",
	"google_form_uri": "https://forms.gle/abc", "google_form_id": "abc",
	"created_at": "2023-12-20T01:00:00Z", "starts_at": "2024-01-01T10:00:00Z", "score": 2,
	"attendance_status": "not_applied_yet", "attendance_applied_by": "unspecified"
}`

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"is_end": false, "total_count": 11, "sessions": [` + sessionJSON + `]}`))
	})
	mux.HandleFunc("/api/sessions/s1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sessionJSON))
	})
	mux.HandleFunc("/api/auth", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"user_id": "u1", "user_role": "admin"}`))
	})
	mux.HandleFunc("/api/attendances/half-year", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"sessions": [{"id": "s1", "name": "456회", "started_at": "2024-01-06T10:00:00Z"}],
			"users": [{"id": "u1", "name": "Kim", "generation": 9}],
			"attendances": []
		}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("RUSH_TOKEN", "")
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestSessionsCommand(t *testing.T) {
	srv := newBackend(t)

	out, err := run(t, "sessions", "--backend", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "s1")
	assert.Contains(t, out, "2024/01/01(월) 19:00")
	assert.Contains(t, out, "정기 세션")
	assert.Contains(t, out, "more: --page 1")
}

func TestWhoamiRequiresToken(t *testing.T) {
	srv := newBackend(t)

	_, err := run(t, "whoami", "--backend", srv.URL)
	assert.ErrorIs(t, err, errNoToken)

	_, err = run(t, "whoami", "--backend", srv.URL, "--token", "wrong")
	assert.Error(t, err)

	out, err := run(t, "whoami", "--backend", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Equal(t, "user: u1\nrole: admin\n", out)
}

func TestExportAttendanceCommand(t *testing.T) {
	srv := newBackend(t)
	path := filepath.Join(t.TempDir(), "attendance.xlsx")

	out, err := run(t, "export-attendance", "--backend", srv.URL, "--token", "tok", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}

func TestSessionQRCommand(t *testing.T) {
	srv := newBackend(t)
	path := filepath.Join(t.TempDir(), "qr.png")

	_, err := run(t, "session-qr", "s1", "--backend", srv.URL, "--out", path, "--size", "128")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestInvalidTimezone(t *testing.T) {
	_, err := run(t, "sessions", "--timezone", "Nowhere/Else")
	assert.Error(t, err)
}
