// Package llm wraps external completion APIs behind a single streaming
// provider interface: submit a list of role/content turns, receive a
// sequence of incremental text deltas.
package llm

import "context"

type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Stream yields completion deltas one at a time. Next returns false when
// the stream ends, naturally or not; Err distinguishes the two.
type Stream interface {
	Next() bool
	Content() string
	Err() error
	Close() error
}

type Provider interface {
	StreamCompletion(ctx context.Context, history []Message) (Stream, error)
}
