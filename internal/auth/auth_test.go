package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/echoes/internal/domain"
	"github.com/pbaille/echoes/internal/logging"
	"github.com/pbaille/echoes/internal/store"
)

func TestHTTPExchanger_Exchange(t *testing.T) {
	var gotCode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/callback", r.URL.Path)
		gotCode = r.URL.Query().Get("code")
		_, _ = w.Write([]byte(`{"name":"ada","avatarUrl":"https://example.com/a.png"}`))
	}))
	defer srv.Close()

	user, err := NewHTTPExchanger(srv.URL, nil).Exchange(context.Background(), "a b&c")

	require.NoError(t, err)
	assert.Equal(t, "a b&c", gotCode)
	assert.Equal(t, domain.Identity{Name: "ada", AvatarURL: "https://example.com/a.png"}, user)
}

func TestHTTPExchanger_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"backend message", `{"error":"bad_verification_code"}`, "bad_verification_code"},
		{"unparseable body", `<html>oops</html>`, defaultExchangeError},
		{"empty error", `{}`, defaultExchangeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPExchanger(srv.URL, nil).Exchange(context.Background(), "code")

			require.EqualError(t, err, tt.want)
		})
	}
}

type fakeExchanger struct {
	user      domain.Identity
	err       error
	logoutErr error
	logouts   int
}

func (f *fakeExchanger) Exchange(context.Context, string) (domain.Identity, error) {
	return f.user, f.err
}

func (f *fakeExchanger) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

func TestSession_LoginPersistsIdentity(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	s := NewSession(kv, &fakeExchanger{user: domain.Identity{Name: "ada"}}, nil)
	s.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	user, err := s.Login(ctx, " code ")
	require.NoError(t, err)
	assert.NotEmpty(t, user.SessionID)

	current, ok, err := s.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user, current)
	assert.Equal(t, 2024, current.LoggedInAt.Year())
}

func TestSession_LoginRejectsEmptyCode(t *testing.T) {
	ex := &fakeExchanger{}
	_, err := NewSession(store.NewMemory(), ex, nil).Login(context.Background(), "  ")
	require.ErrorIs(t, err, ErrEmptyCode)
}

func TestSession_LoginFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	s := NewSession(store.NewMemory(), &fakeExchanger{err: errors.New("denied")}, nil)

	_, err := s.Login(ctx, "code")
	require.Error(t, err)

	_, ok, err := s.Current(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_LogoutClearsEvenWhenBackendFails(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	ex := &fakeExchanger{user: domain.Identity{Name: "ada"}, logoutErr: errors.New("unreachable")}
	s := NewSession(store.NewMemory(), ex, log)

	_, err := s.Login(ctx, "code")
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx))

	_, ok, err := s.Current(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, ex.logouts)
	assert.Contains(t, buf.String(), "level=WARN")
}
