package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupOpenAIMock starts a fake chat completions server. The returned setter
// controls the next response; *got receives the last decoded request.
func setupOpenAIMock(t *testing.T) (*openAIResponder, func(int, any), *openAIRequest) {
	t.Helper()
	var mockStatus int
	var mockBody any
	var got openAIRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(mockStatus)
		_ = json.NewEncoder(w).Encode(mockBody)
	}))
	t.Cleanup(server.Close)

	r := newOpenAIResponder(config{OpenAIBaseURL: server.URL, OpenAIAPIKey: "test-key", OpenAIModel: "gpt-4o-mini"})
	setMock := func(status int, body any) {
		mockStatus = status
		mockBody = body
	}
	return r, setMock, &got
}

// openAIChatResponse wraps a content string in the OpenAI chat completions
// response shape (choices[0].message.content).
func openAIChatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
}

func TestOpenAIResponder_Success(t *testing.T) {
	r, setMock, got := setupOpenAIMock(t)
	setMock(http.StatusOK, openAIChatResponse("Try a short walk."))

	history := []chatMessage{
		{Role: "user", Message: "I feel stuck"},
		{Role: "assistant", Message: "What's on your mind?"},
		{Role: "user", Message: "Work"},
	}
	reply, err := r.generate(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "Try a short walk.", reply)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, openAIMessage{Role: "user", Content: "Work"}, got.Messages[3])
}

func TestOpenAIResponder_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   any
	}{
		{"server error", http.StatusInternalServerError, map[string]string{"error": "server error"}},
		{"no choices", http.StatusOK, map[string]any{"choices": []any{}}},
		{"empty content", http.StatusOK, openAIChatResponse("")},
		{"not json", http.StatusOK, "plain string"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, setMock, _ := setupOpenAIMock(t)
			setMock(tc.status, tc.body)
			_, err := r.generate(context.Background(), []chatMessage{{Role: "user", Message: "hi"}})
			assert.Error(t, err)
		})
	}
}

func TestOpenAIResponder_MissingKey(t *testing.T) {
	r := newOpenAIResponder(config{OpenAIBaseURL: "http://127.0.0.1:0"})
	_, err := r.generate(context.Background(), nil)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestCannedResponder(t *testing.T) {
	r := newCannedResponder()
	for range 20 {
		reply, err := r.generate(context.Background(), nil)
		require.NoError(t, err)
		assert.Contains(t, cannedReplies, reply)
	}

	fixed := &cannedResponder{replies: []string{"a", "b", "c"}, pick: func(n int) int { return n - 1 }}
	reply, _ := fixed.generate(context.Background(), nil)
	assert.Equal(t, "c", reply)
}

/* ─── POST /api/chat ─────────────────────────────────────────────────── */

// recordingResponder remembers the history it was given.
type recordingResponder struct {
	history []chatMessage
	err     error
}

func (r *recordingResponder) generate(_ context.Context, history []chatMessage) (string, error) {
	r.history = history
	return "reply", r.err
}

func TestConverse(t *testing.T) {
	s := setupTestServer(t)

	w := s.do("POST", "/api/chat", "user_1-token", `{"message":"  I slept badly  "}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[struct {
		UserMessage      chatMessage `json:"userMessage"`
		AssistantMessage chatMessage `json:"assistantMessage"`
	}](t, w)
	assert.Equal(t, "I slept badly", resp.UserMessage.Message)
	assert.Equal(t, "user", resp.UserMessage.Role)
	assert.Equal(t, "canned reply", resp.AssistantMessage.Message)
	assert.Equal(t, "assistant", resp.AssistantMessage.Role)

	history := decode[[]chatMessage](t, s.do("GET", "/api/chat-history", "user_1-token", ""))
	require.Len(t, history, 2)
	assert.Equal(t, []string{"user", "assistant"}, []string{history[0].Role, history[1].Role})
}

func TestConverse_PassesRecentHistoryOldestFirst(t *testing.T) {
	s := setupTestServer(t)
	rec := &recordingResponder{}
	s.h.responder = rec

	for i := range 25 {
		mustCreate[chatMessage](t, s, "/api/chat-history", fmt.Sprintf(`{"message":"m%d"}`, i))
	}
	w := s.do("POST", "/api/chat", "user_1-token", `{"message":"latest"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, rec.history, historyWindow)
	assert.Equal(t, "m6", rec.history[0].Message)
	assert.Equal(t, "latest", rec.history[historyWindow-1].Message)
}

func TestConverse_Validation(t *testing.T) {
	s := setupTestServer(t)
	cases := []struct {
		body string
		code string
	}{
		{`{}`, "MISSING_MESSAGE"},
		{`{"message":"   "}`, "EMPTY_MESSAGE"},
		{`{"message":42}`, "INVALID_MESSAGE"},
		{`{"message":"hi","userId":"user_2"}`, "USER_ID_NOT_ALLOWED"},
	}
	for _, tc := range cases {
		w := s.do("POST", "/api/chat", "user_1-token", tc.body)
		require.Equal(t, http.StatusBadRequest, w.Code, tc.body)
		assert.Equal(t, tc.code, decode[errorBody](t, w).Code, tc.body)
	}
	assert.JSONEq(t, `[]`, s.do("GET", "/api/chat-history", "user_1-token", "").Body.String())
}

func TestConverse_ResponderFailure(t *testing.T) {
	s := setupTestServer(t)
	s.h.responder = &recordingResponder{err: errors.New("model unavailable")}

	w := s.do("POST", "/api/chat", "user_1-token", `{"message":"hello"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[errorBody](t, w)
	assert.Empty(t, body.Code)
	assert.Equal(t, "assistant request failed: model unavailable", body.Error)
}
