// Package state models the client's view of chats as a reducer: a pure
// transition function from (state, event) to the next state. Optimistic
// entries carry temporary ids until the server round trip confirms them,
// and every failure path removes them together, so rollback restores the
// exact pre-turn state.
package state

import (
	"strings"
	"unicode/utf8"
)

// Temporary identities used for optimistic entries. Only one turn may be
// in flight, so fixed ids cannot collide.
const (
	TempChatID      = "tmp-chat"
	TempUserID      = "tmp-user"
	TempAssistantID = "tmp-assistant"
)

const maxTitleLength = 50

type Message struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	IsStreaming bool   `json:"-"` // transient, never persisted
}

type Chat struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Messages   []Message `json:"messages"`
	Optimistic bool      `json:"-"` // created locally, not yet confirmed
}

type State struct {
	Chats        []Chat
	ActiveChatID string
	InFlight     bool
	Err          string
}

type Event interface{ isEvent() }

// OptimisticSend appends an optimistic user message and an empty streaming
// assistant placeholder, creating a temporary chat first if none is active.
type OptimisticSend struct {
	Content     string
	ContentType string
}

// DeltaReceived carries the cumulative assistant text so far; a lost
// update is self-healing on the next delta. ChatID, when set, is the
// server identity for a chat created by this turn.
type DeltaReceived struct {
	Cumulative string
	ChatID     string
}

type TurnCompleted struct{}

type TurnFailed struct{ Reason string }

// ChatsRefreshed replaces the chat list with the server's view, swapping
// any remaining temporary identities for durable ones.
type ChatsRefreshed struct{ Chats []Chat }

func (OptimisticSend) isEvent() {}
func (DeltaReceived) isEvent()  {}
func (TurnCompleted) isEvent()  {}
func (TurnFailed) isEvent()     {}
func (ChatsRefreshed) isEvent() {}

// Reduce applies one event. The input state is never mutated.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case OptimisticSend:
		return reduceSend(s, ev)
	case DeltaReceived:
		return reduceDelta(s, ev)
	case TurnCompleted:
		return reduceCompleted(s)
	case TurnFailed:
		return reduceFailed(s, ev)
	case ChatsRefreshed:
		return reduceRefreshed(s, ev)
	}
	return s
}

func reduceSend(s State, ev OptimisticSend) State {
	if strings.TrimSpace(ev.Content) == "" || s.InFlight {
		return s
	}

	next := clone(s)
	next.Err = ""
	next.InFlight = true

	if next.ActiveChatID == "" || next.chatIndex(next.ActiveChatID) < 0 {
		// Truncate on rune boundaries so a multi-byte rune is never split.
		title := strings.TrimSpace(ev.Content)
		if utf8.RuneCountInString(title) > maxTitleLength {
			title = string([]rune(title)[:maxTitleLength])
		}
		next.Chats = append([]Chat{{ID: TempChatID, Title: title, Optimistic: true}}, next.Chats...)
		next.ActiveChatID = TempChatID
	}

	idx := next.chatIndex(next.ActiveChatID)
	next.Chats[idx].Messages = append(next.Chats[idx].Messages,
		Message{ID: TempUserID, Role: "user", Content: ev.Content, ContentType: ev.ContentType},
		Message{ID: TempAssistantID, Role: "assistant", ContentType: "text", IsStreaming: true},
	)
	return next
}

func reduceDelta(s State, ev DeltaReceived) State {
	if !s.InFlight {
		return s
	}

	next := clone(s)
	idx := next.chatIndex(next.ActiveChatID)
	if idx < 0 {
		return s
	}

	// A brand-new chat learns its server identity from the first frame.
	if ev.ChatID != "" && next.Chats[idx].ID == TempChatID {
		next.Chats[idx].ID = ev.ChatID
		next.ActiveChatID = ev.ChatID
	}

	msgs := next.Chats[idx].Messages
	for i := range msgs {
		if msgs[i].ID == TempAssistantID {
			msgs[i].Content = ev.Cumulative
			break
		}
	}
	return next
}

func reduceCompleted(s State) State {
	next := clone(s)
	next.InFlight = false

	idx := next.chatIndex(next.ActiveChatID)
	if idx < 0 {
		return next
	}
	msgs := next.Chats[idx].Messages
	for i := range msgs {
		if msgs[i].ID == TempAssistantID {
			msgs[i].IsStreaming = false
			break
		}
	}
	return next
}

func reduceFailed(s State, ev TurnFailed) State {
	next := clone(s)
	next.InFlight = false
	next.Err = ev.Reason

	idx := next.chatIndex(next.ActiveChatID)
	if idx < 0 {
		return next
	}

	// Both optimistic entries go together; an optimistic chat goes whole.
	if next.Chats[idx].Optimistic {
		next.Chats = append(next.Chats[:idx], next.Chats[idx+1:]...)
		next.ActiveChatID = ""
		return next
	}

	kept := next.Chats[idx].Messages[:0]
	for _, m := range next.Chats[idx].Messages {
		if m.ID == TempUserID || m.ID == TempAssistantID {
			continue
		}
		kept = append(kept, m)
	}
	next.Chats[idx].Messages = kept
	return next
}

func reduceRefreshed(s State, ev ChatsRefreshed) State {
	next := clone(s)
	next.Chats = make([]Chat, len(ev.Chats))
	copy(next.Chats, ev.Chats)

	if next.chatIndex(next.ActiveChatID) < 0 {
		next.ActiveChatID = ""
		if len(next.Chats) > 0 {
			next.ActiveChatID = next.Chats[0].ID
		}
	}
	return next
}

func (s *State) chatIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.Chats {
		if s.Chats[i].ID == id {
			return i
		}
	}
	return -1
}

// ActiveChat returns the active chat, or nil.
func (s *State) ActiveChat() *Chat {
	idx := s.chatIndex(s.ActiveChatID)
	if idx < 0 {
		return nil
	}
	return &s.Chats[idx]
}

func clone(s State) State {
	next := s
	next.Chats = make([]Chat, len(s.Chats))
	for i, c := range s.Chats {
		cc := c
		cc.Messages = make([]Message, len(c.Messages))
		copy(cc.Messages, c.Messages)
		next.Chats[i] = cc
	}
	return next
}
