package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiClient adapts the Google GenAI SDK to the streaming Provider
// interface. Gemini names the assistant role "model" on the wire.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Close() {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

func (c *GeminiClient) StreamCompletion(ctx context.Context, history []Message) (Stream, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("prompt history is empty for chat completion")
	}
	last := history[len(history)-1]
	if last.Role != "user" {
		return nil, fmt.Errorf("last message in history is not from 'user', cannot proceed with chat completion")
	}

	model := c.client.GenerativeModel(c.model)
	session := model.StartChat()
	for _, m := range history[:len(history)-1] {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	iter := session.SendMessageStream(ctx, genai.Text(last.Content))
	return &geminiStream{iter: iter}, nil
}

type geminiStream struct {
	iter    *genai.GenerateContentResponseIterator
	content string
	err     error
}

func (s *geminiStream) Next() bool {
	if s.err != nil {
		return false
	}

	for {
		resp, err := s.iter.Next()
		if err == iterator.Done {
			return false
		}
		if err != nil {
			s.err = fmt.Errorf("gemini stream failed: %w", err)
			return false
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}

		var text strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text.WriteString(string(txt))
			}
		}
		if text.Len() == 0 {
			continue
		}
		s.content = text.String()
		return true
	}
}

func (s *geminiStream) Content() string {
	return s.content
}

func (s *geminiStream) Err() error {
	return s.err
}

func (s *geminiStream) Close() error {
	return nil
}
