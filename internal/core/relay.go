package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/freeseek/freeseek/internal/llm"
	"github.com/freeseek/freeseek/internal/store"
)

// StreamTurn runs one chat turn: it submits the chat's full history to the
// completion provider, forwards every delta to sink in arrival order, and
// persists exactly one assistant message once the stream ends naturally.
//
// Any provider error, sink error, or context cancellation aborts the turn
// without persisting a partial assistant message; the already-persisted
// user message stays in place. Resubmitting after a failure starts a fresh,
// independent turn.
func (s *ChatService) StreamTurn(ctx context.Context, chat *store.Chat, sink func(delta string) error) (*store.Message, error) {
	history := make([]llm.Message, 0, len(chat.Messages))
	for _, m := range chat.Messages {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	stream, err := s.provider.StreamCompletion(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("failed to open completion stream: %w", err)
	}
	defer stream.Close()

	var fullResponse strings.Builder
	for stream.Next() {
		delta := stream.Content()
		fullResponse.WriteString(delta)
		if err := sink(delta); err != nil {
			return nil, fmt.Errorf("failed to forward delta to client: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("turn canceled: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("completion stream failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("turn canceled: %w", err)
	}

	assistantMsg := store.Message{
		ChatID:      chat.ID,
		Role:        store.RoleAssistant,
		Content:     fullResponse.String(),
		ContentType: store.ContentTypeText,
	}
	if err := s.dbStore.CreateMessage(&assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}
	chat.Messages = append(chat.Messages, assistantMsg)

	return &assistantMsg, nil
}
