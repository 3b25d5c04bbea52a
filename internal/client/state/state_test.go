package state

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func committedState() State {
	return State{
		Chats: []Chat{{
			ID:    "chat-1",
			Title: "existing",
			Messages: []Message{
				{ID: "m1", Role: "user", Content: "hi", ContentType: "text"},
				{ID: "m2", Role: "assistant", Content: "hello", ContentType: "text"},
			},
		}},
		ActiveChatID: "chat-1",
	}
}

func TestOptimisticSendAppendsBothEntries(t *testing.T) {
	st := Reduce(committedState(), OptimisticSend{Content: "question", ContentType: "text"})

	require.True(t, st.InFlight)
	chat := st.ActiveChat()
	require.NotNil(t, chat)
	require.Len(t, chat.Messages, 4)

	userMsg := chat.Messages[2]
	assert.Equal(t, TempUserID, userMsg.ID)
	assert.Equal(t, "question", userMsg.Content)

	placeholder := chat.Messages[3]
	assert.Equal(t, TempAssistantID, placeholder.ID)
	assert.Empty(t, placeholder.Content)
	assert.True(t, placeholder.IsStreaming)
}

func TestOptimisticSendCreatesTempChat(t *testing.T) {
	st := Reduce(State{}, OptimisticSend{Content: "first question", ContentType: "text"})

	require.Len(t, st.Chats, 1)
	assert.Equal(t, TempChatID, st.Chats[0].ID)
	assert.True(t, st.Chats[0].Optimistic)
	assert.Equal(t, "first question", st.Chats[0].Title)
	assert.Equal(t, TempChatID, st.ActiveChatID)
	require.Len(t, st.Chats[0].Messages, 2)
}

func TestOptimisticSendTitleKeepsRunesWhole(t *testing.T) {
	// 60 multi-byte runes; a byte-boundary cut would leave invalid UTF-8.
	st := Reduce(State{}, OptimisticSend{Content: strings.Repeat("é", 60), ContentType: "text"})

	require.Len(t, st.Chats, 1)
	assert.True(t, utf8.ValidString(st.Chats[0].Title))
	assert.Equal(t, strings.Repeat("é", 50), st.Chats[0].Title)
}

func TestOptimisticSendRejectsEmptyAndInFlight(t *testing.T) {
	before := committedState()
	assert.Equal(t, before, Reduce(before, OptimisticSend{Content: "   "}))

	inFlight := Reduce(before, OptimisticSend{Content: "one", ContentType: "text"})
	again := Reduce(inFlight, OptimisticSend{Content: "two", ContentType: "text"})
	assert.Equal(t, inFlight, again)
}

func TestDeltaReceivedReplacesCumulativeContent(t *testing.T) {
	st := Reduce(committedState(), OptimisticSend{Content: "q", ContentType: "text"})

	st = Reduce(st, DeltaReceived{Cumulative: "He"})
	st = Reduce(st, DeltaReceived{Cumulative: "Hello"})

	chat := st.ActiveChat()
	placeholder := chat.Messages[len(chat.Messages)-1]
	assert.Equal(t, "Hello", placeholder.Content)
	assert.True(t, placeholder.IsStreaming)
}

func TestDeltaReceivedAdoptsServerChatID(t *testing.T) {
	st := Reduce(State{}, OptimisticSend{Content: "q", ContentType: "text"})
	st = Reduce(st, DeltaReceived{Cumulative: "x", ChatID: "server-chat-9"})

	assert.Equal(t, "server-chat-9", st.ActiveChatID)
	assert.Equal(t, "server-chat-9", st.Chats[0].ID)
}

func TestTurnCompletedClearsStreaming(t *testing.T) {
	st := Reduce(committedState(), OptimisticSend{Content: "q", ContentType: "text"})
	st = Reduce(st, DeltaReceived{Cumulative: "done"})
	st = Reduce(st, TurnCompleted{})

	assert.False(t, st.InFlight)
	chat := st.ActiveChat()
	placeholder := chat.Messages[len(chat.Messages)-1]
	assert.False(t, placeholder.IsStreaming)
	assert.Equal(t, "done", placeholder.Content)
}

func TestTurnFailedRollsBackToExactPriorState(t *testing.T) {
	before := committedState()

	st := Reduce(before, OptimisticSend{Content: "q", ContentType: "text"})
	st = Reduce(st, DeltaReceived{Cumulative: "par"})
	st = Reduce(st, TurnFailed{Reason: "upstream reset"})

	assert.False(t, st.InFlight)
	assert.Equal(t, "upstream reset", st.Err)

	// Ignoring the error field, the visible state matches the pre-turn
	// state exactly: both optimistic entries are gone.
	st.Err = ""
	assert.Equal(t, before, st)
}

func TestTurnFailedRemovesOptimisticChatEntirely(t *testing.T) {
	st := Reduce(State{}, OptimisticSend{Content: "q", ContentType: "text"})
	st = Reduce(st, TurnFailed{Reason: "boom"})

	assert.Empty(t, st.Chats)
	assert.Empty(t, st.ActiveChatID)
	assert.Equal(t, "boom", st.Err)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	before := committedState()
	snapshot := committedState()

	_ = Reduce(before, OptimisticSend{Content: "q", ContentType: "text"})
	assert.Equal(t, snapshot, before)
}

func TestChatsRefreshedReplacesTempIdentities(t *testing.T) {
	st := Reduce(State{}, OptimisticSend{Content: "q", ContentType: "text"})
	st = Reduce(st, DeltaReceived{Cumulative: "a", ChatID: "server-1"})
	st = Reduce(st, TurnCompleted{})

	st = Reduce(st, ChatsRefreshed{Chats: []Chat{{
		ID:    "server-1",
		Title: "q",
		Messages: []Message{
			{ID: "srv-m1", Role: "user", Content: "q"},
			{ID: "srv-m2", Role: "assistant", Content: "a"},
		},
	}}})

	require.Len(t, st.Chats, 1)
	assert.Equal(t, "server-1", st.ActiveChatID)
	for _, msg := range st.Chats[0].Messages {
		assert.NotContains(t, msg.ID, "tmp-")
	}
}

func TestChatsRefreshedFallsBackToNewestChat(t *testing.T) {
	st := committedState()
	st = Reduce(st, ChatsRefreshed{Chats: []Chat{{ID: "other"}}})
	assert.Equal(t, "other", st.ActiveChatID)
}
