package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testNow is the fixed clock every test server runs on.
var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	h      *Handler
	auth   *memAuthStore
	now    time.Time // what the server's clock returns; starts at testNow
}

// setupTestServer builds the full router over memory stores. Sessions:
// user_1-token and user_2-token are valid, expired-token expires exactly now.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{now: testNow}
	clock := func() time.Time { return s.now }
	auth := newMemAuthStore()
	for _, id := range []string{"user_1", "user_2"} {
		require.NoError(t, auth.createSession(context.Background(), session{
			Token: id + "-token", UserID: id, ExpiresAt: testNow.Add(time.Hour), CreatedAt: testNow,
		}))
	}
	require.NoError(t, auth.createSession(context.Background(), session{
		Token: "expired-token", UserID: "user_1", ExpiresAt: testNow, CreatedAt: testNow.Add(-time.Hour),
	}))

	h := &Handler{
		auth:       auth,
		stores:     newMemoryStores(clock),
		responder:  &cannedResponder{replies: []string{"canned reply"}, pick: func(int) int { return 0 }},
		log:        zap.NewNop(),
		now:        clock,
		sessionTTL: time.Hour,
	}
	s.router, s.h, s.auth = h.newRouter(), h, auth
	return s
}

// do sends a request as token (no Authorization header when token is empty).
func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// mustCreate POSTs body as user_1 and returns the decoded row.
func mustCreate[T any](t *testing.T, s *testServer, path, body string) T {
	t.Helper()
	w := s.do("POST", path, "user_1-token", body)
	require.Equalf(t, 201, w.Code, "create %s: %s", path, w.Body.String())
	return decode[T](t, w)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoErrorf(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

// errorBody is the {"error", "code"} failure shape.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
