package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/freeseek/freeseek/internal/llm"
	"github.com/freeseek/freeseek/internal/store"
)

// ErrChatNotFound covers both a missing chat and a chat owned by another
// user, so existence never leaks across accounts.
var ErrChatNotFound = errors.New("chat not found")

const maxTitleLength = 50

type ChatService struct {
	dbStore  *store.SQLiteStore
	provider llm.Provider
}

func NewChatService(db *store.SQLiteStore, provider llm.Provider) *ChatService {
	return &ChatService{
		dbStore:  db,
		provider: provider,
	}
}

func (s *ChatService) CreateUser(username, email, passwordHash string) (*store.User, error) {
	return s.dbStore.CreateUser(username, email, passwordHash)
}

func (s *ChatService) GetUserByUsername(username string) (*store.User, error) {
	return s.dbStore.GetUserByUsername(username)
}

func (s *ChatService) GetUserByID(id int64) (*store.User, error) {
	return s.dbStore.GetUserByID(id)
}

// CreateChatWithFirstMessage creates a chat plus its first user message in
// one logical step. The title defaults from the message's leading text.
func (s *ChatService) CreateChatWithFirstMessage(userID int64, content, contentType string) (*store.Chat, error) {
	chat, err := s.dbStore.CreateChat(userID, deriveTitle(content, contentType))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat in DB: %w", err)
	}

	userMsg := store.Message{
		ChatID:      chat.ID,
		Role:        store.RoleUser,
		Content:     content,
		ContentType: contentType,
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, fmt.Errorf("failed to store first user message: %w", err)
	}
	chat.Messages = append(chat.Messages, userMsg)

	return chat, nil
}

func (s *ChatService) CreateChat(userID int64, title string) (*store.Chat, error) {
	if title == "" {
		title = "New Chat"
	}
	chat, err := s.dbStore.CreateChat(userID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat in DB: %w", err)
	}
	return chat, nil
}

// AppendUserMessage appends a user message to an existing chat after
// verifying ownership. The returned chat carries the full message history
// including the new message.
func (s *ChatService) AppendUserMessage(chatID string, userID int64, content, contentType string) (*store.Chat, error) {
	chat, err := s.dbStore.GetChatByID(chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify chat: %w", err)
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}

	userMsg := store.Message{
		ChatID:      chatID,
		Role:        store.RoleUser,
		Content:     content,
		ContentType: contentType,
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}
	chat.Messages = append(chat.Messages, userMsg)

	return chat, nil
}

// RenameChat updates a chat's title after verifying ownership.
func (s *ChatService) RenameChat(chatID string, userID int64, title string) error {
	chat, err := s.dbStore.GetChatByID(chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to verify chat: %w", err)
	}
	if chat == nil {
		return ErrChatNotFound
	}

	if err := s.dbStore.UpdateChatTitle(chatID, userID, truncateTitle(title)); err != nil {
		return fmt.Errorf("failed to update chat title: %w", err)
	}
	return nil
}

func (s *ChatService) GetChats(userID int64) ([]store.Chat, error) {
	return s.dbStore.GetChatsByUserID(userID)
}

func (s *ChatService) GetChatDetails(chatID string, userID int64) (*store.Chat, error) {
	chat, err := s.dbStore.GetChatByID(chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

func deriveTitle(content, contentType string) string {
	if contentType == store.ContentTypeImage {
		return "New Chat"
	}
	title := strings.TrimSpace(content)
	if title == "" {
		return "New Chat"
	}
	return truncateTitle(title)
}

// truncateTitle caps a title at maxTitleLength runes. Cutting on a byte
// boundary could split a multi-byte rune and store invalid UTF-8.
func truncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= maxTitleLength {
		return title
	}
	return string([]rune(title)[:maxTitleLength])
}
