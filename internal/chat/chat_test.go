package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/taskkit/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClient struct {
	mu      sync.Mutex
	reply   string
	err     error
	system  string
	history [][]llm.Turn
}

func (f *fakeClient) Chat(_ context.Context, system string, history []llm.Turn, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.system = system
	f.history = append(f.history, history)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "echo: " + message, nil
}

func (f *fakeClient) Close() error { return nil }

func TestService_Reply(t *testing.T) {
	store := NewHistoryStore(time.Hour, 0)
	defer store.Stop()
	client := &fakeClient{}
	svc := NewService(client, store, nil)

	reply, n, err := svc.Reply(context.Background(), "s1", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", reply)
	assert.Equal(t, 1, n)
	assert.Equal(t, SystemPrompt, client.system)
	assert.Empty(t, client.history[0])

	_, n, err = svc.Reply(context.Background(), "s1", "again")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []llm.Turn{{User: "hello", Bot: "echo: hello"}}, client.history[1])

	_, n, err = svc.Reply(context.Background(), "s2", "other")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "sessions are independent")
}

func TestService_Reply_Empty(t *testing.T) {
	store := NewHistoryStore(time.Hour, 0)
	defer store.Stop()
	client := &fakeClient{}
	svc := NewService(client, store, nil)

	_, _, err := svc.Reply(context.Background(), "s1", " \n\t")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, client.history, "model not called")
}

func TestService_Reply_UpstreamError(t *testing.T) {
	store := NewHistoryStore(time.Hour, 0)
	defer store.Stop()
	cause := errors.New("quota exceeded")
	svc := NewService(&fakeClient{err: cause}, store, nil)

	_, _, err := svc.Reply(context.Background(), "s1", "hi")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "quota exceeded", upstream.Cause.Error())
	assert.Zero(t, store.Len(), "failed exchanges are not recorded")
}

func TestService_Reply_EmptyModelReply(t *testing.T) {
	store := NewHistoryStore(time.Hour, 0)
	defer store.Stop()
	svc := NewService(&fakeClient{reply: "   "}, store, nil)

	reply, n, err := svc.Reply(context.Background(), "s1", "hi")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, reply)
	assert.Equal(t, 1, n)
}

func TestHistoryStore_Trim(t *testing.T) {
	store := NewHistoryStore(time.Hour, 0)
	defer store.Stop()

	for i := 0; i < MaxTurns+5; i++ {
		n := store.Append("s", llm.Turn{User: fmt.Sprint(i), Bot: "ok"})
		assert.LessOrEqual(t, n, MaxTurns)
	}

	turns := store.Get("s")
	require.Len(t, turns, MaxTurns)
	assert.Equal(t, "5", turns[0].User, "oldest turns are dropped first")
	assert.Equal(t, fmt.Sprint(MaxTurns+4), turns[MaxTurns-1].User)
}

func TestHistoryStore_GetReturnsCopy(t *testing.T) {
	store := NewHistoryStore(time.Hour, 0)
	defer store.Stop()

	store.Append("s", llm.Turn{User: "a", Bot: "b"})
	turns := store.Get("s")
	turns[0].User = "changed"

	assert.Equal(t, "a", store.Get("s")[0].User)
	assert.Nil(t, store.Get("missing"))
}

func TestHistoryStore_Reset(t *testing.T) {
	store := NewHistoryStore(time.Hour, 0)
	defer store.Stop()

	store.Append("s", llm.Turn{User: "a", Bot: "b"})
	store.Reset("s")
	assert.Empty(t, store.Get("s"))
	assert.Zero(t, store.Len())
}

func TestHistoryStore_Sweep(t *testing.T) {
	store := NewHistoryStore(time.Minute, 0)
	defer store.Stop()

	now := time.Now()
	store.now = func() time.Time { return now }
	store.Append("old", llm.Turn{User: "a", Bot: "b"})

	now = now.Add(30 * time.Second)
	store.Append("fresh", llm.Turn{User: "a", Bot: "b"})

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, store.Sweep())
	assert.Nil(t, store.Get("old"))
	assert.Len(t, store.Get("fresh"), 1)
}

func TestHistoryStore_Janitor(t *testing.T) {
	store := NewHistoryStore(time.Millisecond, 5*time.Millisecond)
	store.Append("s", llm.Turn{User: "a", Bot: "b"})

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	store.Stop()
	store.Stop()
}
