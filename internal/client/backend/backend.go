// Package backend abstracts where the terminal client's chats live: the
// remote FreeSeek server (HTTP + SSE) or a local JSON cache for offline
// browsing. The conversation state layer is the same either way.
package backend

import (
	"context"
	"errors"

	"github.com/freeseek/freeseek/internal/store"
)

// ErrOffline is returned by backends that cannot run a streaming turn.
var ErrOffline = errors.New("streaming requires the remote backend")

// DeltaFunc receives one incremental fragment of assistant text. chatID is
// non-empty only on frames from a brand-new chat.
type DeltaFunc func(delta, chatID string)

type Store interface {
	Login(ctx context.Context, username, password string) error
	ListChats(ctx context.Context) ([]store.Chat, error)
	CreateChat(ctx context.Context, title string) (*store.Chat, error)

	// StreamMessage submits one user message and forwards each assistant
	// delta to onDelta in arrival order. An empty chatID starts a new chat.
	StreamMessage(ctx context.Context, chatID, content string, onDelta DeltaFunc) error
}
