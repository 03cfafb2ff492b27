package agent

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/m4xw311/machat/config"
	"github.com/m4xw311/machat/history"
	"github.com/m4xw311/machat/llm"
	"github.com/m4xw311/machat/retrieval"
)

// Message roles as persisted by the conversation store.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

const maxTitleLen = 50

// Agent is a materialized, ready-to-invoke agent instance bound to one
// profile: a rendered system prompt, a bound model client, and the shared
// conversation store. Instances are created and owned by the Registry and
// live for the whole process.
type Agent struct {
	profile      config.AgentProfile
	systemPrompt string
	client       llm.Client
	store        *history.Store
	retriever    *retrieval.Retriever // nil when retrieval is disabled
	logger       *slog.Logger
}

// Profile returns the static configuration this agent was built from.
func (a *Agent) Profile() config.AgentProfile { return a.profile }

// SystemPrompt returns the rendered instruction block.
func (a *Agent) SystemPrompt() string { return a.systemPrompt }

// ChatStream runs one chat turn: it assembles the model context (system
// prompt, optional retrieval context, persisted conversation history, the
// new input), streams the model's reply fragment by fragment, and persists
// the user/agent exchange once the stream completes.
//
// A persistence failure after a successful generation is logged rather than
// surfaced — the reply has already been rendered.
func (a *Agent) ChatStream(ctx context.Context, userID, conversationID, input string) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)

		messages, err := a.buildMessages(ctx, userID, conversationID, input)
		if err != nil {
			errCh <- err
			return
		}

		fragments, streamErr := a.client.ChatStream(ctx, messages)
		var full strings.Builder
		for f := range fragments {
			full.WriteString(f)
			out <- f
		}
		if err := <-streamErr; err != nil {
			errCh <- err
			return
		}

		if err := a.persistExchange(ctx, userID, conversationID, input, full.String()); err != nil {
			a.logger.Warn("failed to persist exchange",
				"conversation", conversationID, "error", err)
		}
	}()
	return out, errCh
}

func (a *Agent) buildMessages(ctx context.Context, userID, conversationID, input string) ([]llm.Message, error) {
	system := a.systemPrompt
	if a.retriever != nil {
		if rctx := a.retriever.Context(ctx, input); rctx != "" {
			system += "\n\n## Relevant Prior Context\n\n" + rctx
		}
	}
	messages := []llm.Message{{Role: llm.RoleSystem, Content: system}}

	conv, stored, err := a.store.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		for _, m := range stored {
			role := llm.RoleUser
			if m.Role == RoleAgent {
				role = llm.RoleAssistant
			}
			messages = append(messages, llm.Message{
				Role:    role,
				Content: history.ParseMessageContent(m.Parts),
			})
		}
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: input}), nil
}

func (a *Agent) persistExchange(ctx context.Context, userID, conversationID, input, reply string) error {
	if err := a.store.EnsureConversation(ctx, conversationID, userID, deriveTitle(input)); err != nil {
		return err
	}
	if _, err := a.store.AppendMessage(ctx, conversationID, RoleUser, input); err != nil {
		return err
	}
	_, err := a.store.AppendMessage(ctx, conversationID, RoleAgent, reply)
	return err
}

// deriveTitle produces a conversation title from its first user input.
func deriveTitle(input string) string {
	title := strings.TrimSpace(input)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		runes := []rune(title)
		title = string(runes[:maxTitleLen]) + "..."
	}
	return title
}
