package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/app/apptest"
	"quiz-session-service/internal/infra/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	*httptest.Server
	service *app.QuizService
	clock   *apptest.Clock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := apptest.NewClock(time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC))
	loader := memory.NewStaticQuizLoader(nil)
	loader.Put(apptest.OneQuestionQuiz("quiz-1"))
	tokens := memory.NewTokenTable(map[string]string{apptest.HostToken: apptest.OwnerID})
	service := app.NewQuizService(memory.NewSessionStore(), memory.NewQuizRepository(loader, time.Minute), tokens,
		app.WithClock(clock))

	srv := httptest.NewServer(NewRouter(service, RouterConfig{EnableReset: true}))
	t.Cleanup(func() {
		srv.Close()
		service.Reset(context.Background())
	})
	return &testServer{Server: srv, service: service, clock: clock}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestSessionFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	host := apptest.HostToken

	code, body := srv.do(t, http.MethodPost, "/quizzes/quiz-1/sessions", host, map[string]any{"autoStartNum": 0})
	require.Equal(t, http.StatusOK, code, body)
	sid := body["sessionId"].(string)

	code, body = srv.do(t, http.MethodPost, "/sessions/"+sid+"/players", "", map[string]any{"name": "Ann"})
	require.Equal(t, http.StatusOK, code, body)
	pid := body["playerId"].(string)

	for _, action := range []string{"NEXT_QUESTION", "SKIP_COUNTDOWN"} {
		code, body = srv.do(t, http.MethodPut, "/quizzes/quiz-1/sessions/"+sid, host, map[string]any{"action": action})
		require.Equal(t, http.StatusOK, code, body)
	}

	code, body = srv.do(t, http.MethodGet, "/players/"+pid, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "QUESTION_OPEN", body["state"])
	assert.EqualValues(t, 1, body["atQuestion"])

	code, body = srv.do(t, http.MethodGet, "/players/"+pid+"/questions/1", "", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "q1", body["questionId"])
	for _, a := range body["answers"].([]any) {
		assert.NotContains(t, a.(map[string]any), "correct")
	}

	code, body = srv.do(t, http.MethodPut, "/players/"+pid+"/questions/1/answers", "", map[string]any{"answerIds": []string{"q1-paris"}})
	require.Equal(t, http.StatusOK, code, body)

	code, _ = srv.do(t, http.MethodPut, "/quizzes/quiz-1/sessions/"+sid, host, map[string]any{"action": "GO_TO_ANSWER"})
	require.Equal(t, http.StatusOK, code)

	code, body = srv.do(t, http.MethodGet, "/players/"+pid+"/questions/1/results", "", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 100, body["percentCorrect"])
	assert.Equal(t, []any{"Ann"}, body["playersCorrectList"])

	code, _ = srv.do(t, http.MethodPut, "/quizzes/quiz-1/sessions/"+sid, host, map[string]any{"action": "GO_TO_FINAL_RESULTS"})
	require.Equal(t, http.StatusOK, code)

	code, body = srv.do(t, http.MethodGet, "/quizzes/quiz-1/sessions/"+sid+"/results", host, nil)
	require.Equal(t, http.StatusOK, code, body)
	ranked := body["usersRankedByScore"].([]any)
	require.Len(t, ranked, 1)
	assert.Equal(t, "Ann", ranked[0].(map[string]any)["name"])

	code, body = srv.do(t, http.MethodGet, "/quizzes/quiz-1/sessions/"+sid+"/results/csv", host, nil)
	require.Equal(t, http.StatusOK, code, body)
	link := body["url"].(string)

	req, err := http.NewRequest(http.MethodGet, srv.URL+link, nil)
	require.NoError(t, err)
	req.Header.Set(tokenHeader, host)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	csv, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "player,q1_score,q1_rank,q1_correct\nAnn,10.00,1,true\n", string(csv))

	code, body = srv.do(t, http.MethodGet, "/quizzes/quiz-1/sessions", host, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{sid}, body["activeSessions"])
}

func TestErrorResponses(t *testing.T) {
	srv := newTestServer(t)
	sid, err := srv.service.StartSession(context.Background(), apptest.HostToken, "quiz-1", 0)
	require.NoError(t, err)

	tests := map[string]struct {
		method   string
		path     string
		token    string
		body     any
		wantCode int
		wantKind string
	}{
		"missing token": {
			method: http.MethodPost, path: "/quizzes/quiz-1/sessions", body: map[string]any{},
			wantCode: http.StatusUnauthorized, wantKind: "unauthorized",
		},
		"unknown action": {
			method: http.MethodPut, path: "/quizzes/quiz-1/sessions/" + sid, token: apptest.HostToken,
			body: map[string]any{"action": "JUMP"}, wantCode: http.StatusBadRequest, wantKind: "validation error",
		},
		"illegal action": {
			method: http.MethodPut, path: "/quizzes/quiz-1/sessions/" + sid, token: apptest.HostToken,
			body: map[string]any{"action": "GO_TO_ANSWER"}, wantCode: http.StatusBadRequest, wantKind: "invalid state",
		},
		"unknown session": {
			method: http.MethodGet, path: "/quizzes/quiz-1/sessions/nope", token: apptest.HostToken,
			wantCode: http.StatusNotFound, wantKind: "not found",
		},
		"unknown player": {
			method: http.MethodGet, path: "/players/nope", wantCode: http.StatusNotFound, wantKind: "not found",
		},
		"bad position": {
			method: http.MethodGet, path: "/players/nope/questions/abc", wantCode: http.StatusBadRequest, wantKind: "validation error",
		},
		"malformed body": {
			method: http.MethodPost, path: "/sessions/" + sid + "/players", body: "not an object",
			wantCode: http.StatusBadRequest, wantKind: "validation error",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			code, body := srv.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, code, body)
			assert.Equal(t, tt.wantKind, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestChatAndReset(t *testing.T) {
	srv := newTestServer(t)
	sid, err := srv.service.StartSession(context.Background(), apptest.HostToken, "quiz-1", 0)
	require.NoError(t, err)
	pid, err := srv.service.JoinSession(context.Background(), sid, "Ann")
	require.NoError(t, err)

	code, body := srv.do(t, http.MethodPost, "/players/"+pid+"/chat", "", map[string]any{
		"message": map[string]any{"messageBody": "hello"},
	})
	require.Equal(t, http.StatusOK, code, body)

	code, body = srv.do(t, http.MethodPost, "/players/"+pid+"/chat", "", map[string]any{
		"message": map[string]any{"messageBody": strings.Repeat("x", 101)},
	})
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, body = srv.do(t, http.MethodGet, "/players/"+pid+"/chat", "", nil)
	require.Equal(t, http.StatusOK, code)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].(map[string]any)["messageBody"])

	code, _ = srv.do(t, http.MethodDelete, "/clear", "", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = srv.do(t, http.MethodGet, "/players/"+pid, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOperationalEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "quiz_sessions_started_total")
}
