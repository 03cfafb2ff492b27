package llm

import (
	"context"
	"fmt"
	"strings"
)

// Message roles used across all provider clients.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in the conversation handed to a model.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Client is the interface for interacting with a Large Language Model.
//
// ChatStream returns a lazy, finite, forward-only sequence of text
// fragments plus a 1-buffered error channel. The fragment channel is closed
// when the generation completes or fails; on failure exactly one error is
// delivered on the error channel after the fragment channel closes.
type Client interface {
	Chat(ctx context.Context, messages []Message) (*Message, error)
	ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

// singleFragmentStream adapts a non-streaming Chat call to the ChatStream
// contract by emitting the whole completion as one fragment.
func singleFragmentStream(ctx context.Context, c Client, messages []Message) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		resp, err := c.Chat(ctx, messages)
		if err != nil {
			errCh <- err
			return
		}
		if resp.Content != "" {
			out <- resp.Content
		}
	}()
	return out, errCh
}

// MockClient is a canned-response client for tests. It parrots the last
// user message unless Reply is set.
type MockClient struct {
	Reply string
	// Err, when set, is returned by Chat and delivered on the stream
	// error channel.
	Err error
}

func (m *MockClient) Chat(ctx context.Context, messages []Message) (*Message, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	reply := m.Reply
	if reply == "" {
		last := ""
		for _, msg := range messages {
			if msg.Role == RoleUser {
				last = msg.Content
			}
		}
		reply = fmt.Sprintf("You said: %q", last)
	}
	return &Message{Role: RoleAssistant, Content: reply}, nil
}

// ChatStream emits the mock reply word by word so consumers exercise
// multi-fragment rendering.
func (m *MockClient) ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	out := make(chan string, 8)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		resp, err := m.Chat(ctx, messages)
		if err != nil {
			errCh <- err
			return
		}
		words := strings.SplitAfter(resp.Content, " ")
		for _, w := range words {
			if w != "" {
				out <- w
			}
		}
	}()
	return out, errCh
}
