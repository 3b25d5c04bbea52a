package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/freeseek/freeseek/internal/store"
)

// RemoteStore talks to the FreeSeek server. A zero-timeout http.Client is
// used so streaming turns can run as long as the server allows.
type RemoteStore struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewRemoteStore(baseURL string) *RemoteStore {
	return &RemoteStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 0, // streaming responses have no fixed deadline
		},
	}
}

func (s *RemoteStore) Login(ctx context.Context, username, password string) error {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := s.do(ctx, http.MethodPost, "/login", bytes.NewReader(body), false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	s.token = payload.Token
	return nil
}

func (s *RemoteStore) ListChats(ctx context.Context) ([]store.Chat, error) {
	resp, err := s.do(ctx, http.MethodGet, "/chats", nil, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var chats []store.Chat
	if err := json.NewDecoder(resp.Body).Decode(&chats); err != nil {
		return nil, fmt.Errorf("failed to decode chat list: %w", err)
	}
	return chats, nil
}

func (s *RemoteStore) CreateChat(ctx context.Context, title string) (*store.Chat, error) {
	body, _ := json.Marshal(map[string]string{"title": title})
	resp, err := s.do(ctx, http.MethodPost, "/chats", bytes.NewReader(body), true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var chat store.Chat
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode chat: %w", err)
	}
	return &chat, nil
}

func (s *RemoteStore) StreamMessage(ctx context.Context, chatID, content string, onDelta DeltaFunc) error {
	path := "/chats/stream"
	if chatID != "" {
		path = "/chats/" + chatID + "/messages"
	}

	body, _ := json.Marshal(map[string]string{"content": content})
	resp, err := s.do(ctx, http.MethodPost, path, bytes.NewReader(body), true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var frame struct {
			Content string `json:"content"`
			ChatID  string `json:"chatId"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			continue
		}
		onDelta(frame.Content, frame.ChatID)
	}
	if err := scanner.Err(); err != nil {
		// An early close is a failed turn; the server never signals
		// failure mid-stream any other way.
		return fmt.Errorf("stream interrupted: %w", err)
	}
	return nil
}

func (s *RemoteStore) do(ctx context.Context, method, path string, body io.Reader, authed bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}
