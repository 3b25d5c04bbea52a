package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeseek/freeseek/internal/llm"
	"github.com/freeseek/freeseek/internal/store"
)

// fakeProvider replays a fixed list of deltas, optionally failing after
// emitting them.
type fakeProvider struct {
	deltas    []string
	streamErr error
	openErr   error
}

func (p *fakeProvider) StreamCompletion(ctx context.Context, history []llm.Message) (llm.Stream, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	return &fakeStream{deltas: p.deltas, err: p.streamErr}, nil
}

type fakeStream struct {
	deltas []string
	err    error
	pos    int
}

func (s *fakeStream) Next() bool {
	if s.pos >= len(s.deltas) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeStream) Content() string { return s.deltas[s.pos-1] }

func (s *fakeStream) Err() error {
	if s.pos >= len(s.deltas) {
		return s.err
	}
	return nil
}

func (s *fakeStream) Close() error { return nil }

func newTestService(t *testing.T, provider llm.Provider) (*ChatService, *store.SQLiteStore) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewChatService(db, provider), db
}

func seedChat(t *testing.T, svc *ChatService) (*store.Chat, int64) {
	t.Helper()
	user, err := svc.CreateUser("alice", "alice@example.com", "hash")
	require.NoError(t, err)
	chat, err := svc.CreateChatWithFirstMessage(user.ID, "hi there", store.ContentTypeText)
	require.NoError(t, err)
	return chat, user.ID
}

func TestStreamTurnPersistsConcatenatedDeltas(t *testing.T) {
	deltas := []string{"Hel", "lo", " wor", "ld"}
	svc, _ := newTestService(t, &fakeProvider{deltas: deltas})
	chat, userID := seedChat(t, svc)

	var forwarded []string
	msg, err := svc.StreamTurn(context.Background(), chat, func(delta string) error {
		forwarded = append(forwarded, delta)
		return nil
	})
	require.NoError(t, err)

	// Deltas arrive in order, no drops, no duplicates.
	assert.Equal(t, deltas, forwarded)
	assert.Equal(t, "Hello world", msg.Content)
	assert.Equal(t, store.RoleAssistant, msg.Role)

	persisted, err := svc.GetChatDetails(chat.ID, userID)
	require.NoError(t, err)
	require.Len(t, persisted.Messages, 2)
	assert.Equal(t, store.RoleUser, persisted.Messages[0].Role)
	assert.Equal(t, "hi there", persisted.Messages[0].Content)
	assert.Equal(t, store.RoleAssistant, persisted.Messages[1].Role)
	assert.Equal(t, strings.Join(deltas, ""), persisted.Messages[1].Content)
}

func TestStreamTurnMidStreamFailureKeepsUserMessageOnly(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{
		deltas:    []string{"partial "},
		streamErr: errors.New("upstream reset"),
	})
	chat, userID := seedChat(t, svc)

	_, err := svc.StreamTurn(context.Background(), chat, func(string) error { return nil })
	require.Error(t, err)

	persisted, err := svc.GetChatDetails(chat.ID, userID)
	require.NoError(t, err)
	require.Len(t, persisted.Messages, 1)
	assert.Equal(t, store.RoleUser, persisted.Messages[0].Role)
	assert.Equal(t, "hi there", persisted.Messages[0].Content)
}

func TestStreamTurnSinkFailureAbortsWithoutPersisting(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{deltas: []string{"a", "b", "c"}})
	chat, userID := seedChat(t, svc)

	calls := 0
	_, err := svc.StreamTurn(context.Background(), chat, func(string) error {
		calls++
		if calls == 2 {
			return errors.New("client went away")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)

	persisted, err := svc.GetChatDetails(chat.ID, userID)
	require.NoError(t, err)
	require.Len(t, persisted.Messages, 1)
}

func TestStreamTurnCanceledContextAbortsWithoutPersisting(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{deltas: []string{"a", "b"}})
	chat, userID := seedChat(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.StreamTurn(ctx, chat, func(string) error {
		cancel() // simulate client disconnect mid-stream
		return nil
	})
	require.Error(t, err)

	persisted, err := svc.GetChatDetails(chat.ID, userID)
	require.NoError(t, err)
	require.Len(t, persisted.Messages, 1)
}

func TestStreamTurnOpenFailure(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{openErr: errors.New("dial failed")})
	chat, userID := seedChat(t, svc)

	_, err := svc.StreamTurn(context.Background(), chat, func(string) error {
		t.Fatal("sink must not be called when the stream fails to open")
		return nil
	})
	require.Error(t, err)

	persisted, err := svc.GetChatDetails(chat.ID, userID)
	require.NoError(t, err)
	require.Len(t, persisted.Messages, 1)
}

func TestStreamTurnResubmitAfterFailureIsIndependent(t *testing.T) {
	provider := &fakeProvider{deltas: []string{"x"}, streamErr: errors.New("boom")}
	svc, _ := newTestService(t, provider)
	chat, userID := seedChat(t, svc)

	_, err := svc.StreamTurn(context.Background(), chat, func(string) error { return nil })
	require.Error(t, err)

	// Resubmit: the same content appended again starts a fresh turn.
	provider.streamErr = nil
	provider.deltas = []string{"recovered"}
	chat, err = svc.AppendUserMessage(chat.ID, userID, "hi there", store.ContentTypeText)
	require.NoError(t, err)

	msg, err := svc.StreamTurn(context.Background(), chat, func(string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "recovered", msg.Content)

	persisted, err := svc.GetChatDetails(chat.ID, userID)
	require.NoError(t, err)
	require.Len(t, persisted.Messages, 3) // user, user, assistant
}
