package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/povault/povault/internal/shared"
	_ "github.com/povault/povault/testing"
)

func newSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	sess.SetUser("42")
	sess.Set("po_filter", "BOOK-A")

	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), res, req, sess))

	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, sm.CookieName(), cookies[0].Name)
	require.Equal(t, sess.ID, cookies[0].Value)

	// Next request carries the cookie back.
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})

	loaded, err := sm.Load(context.Background(), next)
	require.NoError(t, err)
	require.Equal(t, "42", loaded.User())
	require.Equal(t, "BOOK-A", loaded.Get("po_filter"))
}

func TestSessionDestroy(t *testing.T) {
	sm := newSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("42")

	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), res, req, sess))

	sm.Destroy(sess)
	res = httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), res, req, sess))

	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)

	// The stored payload is gone; a reload produces an empty session.
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(context.Background(), next)
	require.NoError(t, err)
	require.Empty(t, loaded.User())
}

func TestSessionUnknownCookieGetsFreshSession(t *testing.T) {
	sm := newSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "stale-id"})

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "stale-id", sess.ID)
	require.Empty(t, sess.User())
}
