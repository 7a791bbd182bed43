package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/taskkit/internal/chat"
	"github.com/jonathan/taskkit/internal/config"
	"github.com/jonathan/taskkit/internal/db"
	"github.com/jonathan/taskkit/internal/llm"
	"github.com/jonathan/taskkit/internal/server/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeChatClient echoes messages, or fails with err when set.
type fakeChatClient struct {
	mu  sync.Mutex
	err error
}

func (f *fakeChatClient) Chat(_ context.Context, _ string, _ []llm.Turn, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "echo: " + message, nil
}

func (f *fakeChatClient) Close() error { return nil }

func (f *fakeChatClient) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type testEnv struct {
	server *Server
	http   *httptest.Server
	client *http.Client
	llm    *fakeChatClient
	store  *chat.HistoryStore
}

func newTestEnv(t *testing.T, limiter *ratelimit.Limiter) *testEnv {
	t.Helper()

	database, err := db.Open(&config.DatabaseSettings{Type: config.SqliteDBType, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	t.Cleanup(func() { _ = db.Close(database) })

	fake := &fakeChatClient{}
	store := chat.NewHistoryStore(time.Hour, 0)
	t.Cleanup(store.Stop)

	users := NewUserService(db.NewUserRepository(database), &config.PasswordConfig{BcryptCost: bcrypt.MinCost})
	jwtService := setupTestJWTService(t, 1)

	srv, err := New(Config{}, Deps{
		Chat:        chat.NewService(fake, store, nil),
		Users:       users,
		JWT:         jwtService,
		RateLimiter: limiter,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{server: srv, http: ts, client: client, llm: fake, store: store}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := e.client.PostForm(e.http.URL+path, form)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp
}

func (e *testEnv) chat(t *testing.T, body string) (int, ChatResponse) {
	t.Helper()
	resp, err := e.client.Post(e.http.URL+"/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (e *testEnv) signup(t *testing.T, username, email, password string) *http.Response {
	return e.postForm(t, "/signup", url.Values{"username": {username}, "email": {email}, "password": {password}})
}

func (e *testEnv) login(t *testing.T, username, password string) *http.Response {
	return e.postForm(t, "/login", url.Values{"username": {username}, "password": {password}})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="chat"`)
	assert.Contains(t, body, `href="/login"`)

	resp, _ = env.get(t, "/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, nil)

	status, out := env.chat(t, `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "echo: hello", out.Reply)
	assert.Equal(t, 1, out.HistoryLen)

	status, out = env.chat(t, `{"message":"again"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, out.HistoryLen, "chat_session cookie keeps history")
}

func TestChat_NoInput(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty message", `{"message":"   "}`},
		{"missing message", `{}`},
		{"invalid JSON", `not json`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := env.chat(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, ReplyNoInput, out.Reply)
		})
	}
}

func TestChat_UpstreamError(t *testing.T) {
	env := newTestEnv(t, nil)
	env.llm.fail(errors.New("quota exceeded"))

	status, out := env.chat(t, `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "API error: quota exceeded", out.Reply)
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.signup(t, "alice", "", "secret")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/signup", resp.Header.Get("Location"))
	_, body := env.get(t, "/signup")
	assert.Contains(t, body, MsgFieldsRequired)

	_, body = env.get(t, "/signup")
	assert.NotContains(t, body, MsgFieldsRequired, "flash is shown once")

	resp = env.signup(t, "alice", "alice@example.com", "secret")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	_, body = env.get(t, "/login")
	assert.Contains(t, body, MsgAccountCreated)

	resp = env.signup(t, "alice", "other@example.com", "secret")
	assert.Equal(t, "/signup", resp.Header.Get("Location"))
	_, body = env.get(t, "/signup")
	assert.Contains(t, body, MsgUserExists)

	env.signup(t, "bob", "not-an-email", "secret")
	_, body = env.get(t, "/signup")
	assert.Contains(t, body, "valid email")
}

func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	env.signup(t, "alice", "alice@example.com", "secret")

	resp := env.login(t, "alice", "wrong")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	_, body := env.get(t, "/login")
	assert.Contains(t, body, MsgInvalidCredentials)

	resp = env.login(t, "nobody", "secret")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	env.get(t, "/login")

	status, out := env.chat(t, `{"message":"before login"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, out.HistoryLen)

	resp = env.login(t, "alice", "secret")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body = env.get(t, "/")
	assert.Contains(t, body, MsgLoggedIn)
	assert.Contains(t, body, "Signed in as alice")

	_, out = env.chat(t, `{"message":"after login"}`)
	assert.Equal(t, 1, out.HistoryLen, "login resets chat history")

	resp = env.postForm(t, "/logout", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = env.get(t, "/logout")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Zero(t, env.store.Len())

	_, body = env.get(t, "/")
	assert.Contains(t, body, MsgLoggedOut)
	assert.NotContains(t, body, "Signed in as")
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.get(t, "/me")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	env.signup(t, "dana", "dana@example.com", "secret")
	env.login(t, "dana", "secret")

	resp, body := env.get(t, "/me")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me MeResponse
	require.NoError(t, json.Unmarshal([]byte(body), &me))
	assert.Equal(t, "dana", me.Username)
	assert.NotEmpty(t, me.UserID)

	env.get(t, "/logout")
	resp, _ = env.get(t, "/me")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRateLimit_Chat(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/chat", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
		},
	})
	t.Cleanup(limiter.Stop)
	env := newTestEnv(t, limiter)

	status, _ := env.chat(t, `{"message":"one"}`)
	require.Equal(t, http.StatusOK, status)

	resp, err := env.client.Post(env.http.URL+"/chat", "application/json", bytes.NewBufferString(`{"message":"two"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestServe_GracefulShutdown(t *testing.T) {
	env := newTestEnv(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{&ErrUserExists{Username: "a"}, http.StatusConflict},
		{&ErrInvalidCredentials{}, http.StatusUnauthorized},
		{&ErrValidation{Field: "email"}, http.StatusBadRequest},
		{chat.ErrEmptyMessage, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "%v", tt.err)
	}
}
