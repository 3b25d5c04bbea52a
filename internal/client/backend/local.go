package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/freeseek/freeseek/internal/store"
)

// LocalStore keeps a JSON snapshot of the chat list on disk. It supports
// offline browsing and note-taking; streaming turns need the remote
// backend.
type LocalStore struct {
	path  string
	chats []store.Chat
}

func NewLocalStore(path string) (*LocalStore, error) {
	s := &LocalStore{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local chat store: %w", err)
	}
	if err := json.Unmarshal(data, &s.chats); err != nil {
		return nil, fmt.Errorf("failed to parse local chat store: %w", err)
	}
	return s, nil
}

func (s *LocalStore) Login(ctx context.Context, username, password string) error {
	return nil // no authentication for a local cache
}

func (s *LocalStore) ListChats(ctx context.Context) ([]store.Chat, error) {
	out := make([]store.Chat, len(s.chats))
	copy(out, s.chats)
	return out, nil
}

func (s *LocalStore) CreateChat(ctx context.Context, title string) (*store.Chat, error) {
	if title == "" {
		title = "New Chat"
	}
	chat := store.Chat{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now(),
		Messages:  []store.Message{},
	}
	s.chats = append([]store.Chat{chat}, s.chats...)
	if err := s.save(); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *LocalStore) StreamMessage(ctx context.Context, chatID, content string, onDelta DeltaFunc) error {
	return ErrOffline
}

// Replace overwrites the snapshot with the server's chat list. The remote
// backend stays authoritative; this only refreshes the offline copy.
func (s *LocalStore) Replace(chats []store.Chat) error {
	s.chats = make([]store.Chat, len(chats))
	copy(s.chats, chats)
	return s.save()
}

func (s *LocalStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create local store directory: %w", err)
	}
	data, err := json.MarshalIndent(s.chats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal local chat store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write local chat store: %w", err)
	}
	return nil
}
