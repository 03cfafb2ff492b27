package llm

import (
	"context"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m4xw311/machat/errors"
)

const anthropicMaxTokens = 4096

// AnthropicClient is a client for the Anthropic API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a new AnthropicClient. It requires the
// ANTHROPIC_API_KEY environment variable to be set.
func NewAnthropicClient(ctx context.Context, modelName string) (*AnthropicClient, error) {
	apiKey := os.Getenv(EnvAnthropicAPIKey)
	if apiKey == "" {
		return nil, errors.New("%s environment variable not set", EnvAnthropicAPIKey)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicClient{client: &client, model: modelName}, nil
}

// Chat sends a chat request to the Anthropic API.
func (a *AnthropicClient) Chat(ctx context.Context, messages []Message) (*Message, error) {
	resp, err := a.client.Messages.New(ctx, a.params(messages))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to Anthropic")
	}

	var text string
	for _, content := range resp.Content {
		if block, ok := content.AsAny().(anthropic.TextBlock); ok {
			text += block.Text
		}
	}
	return &Message{Role: RoleAssistant, Content: text}, nil
}

// ChatStream streams a chat response from the Anthropic API.
func (a *AnthropicClient) ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		stream := a.client.Messages.NewStreaming(ctx, a.params(messages))
		for stream.Next() {
			event := stream.Current()
			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
					out <- text.Text
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- errors.Wrapf(err, "Anthropic stream failed")
		}
	}()
	return out, errCh
}

func (a *AnthropicClient) params(messages []Message) anthropic.MessageNewParams {
	var anthropicMessages []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			// Take the last system message as the system prompt.
			systemPrompt = msg.Content
		case RoleAssistant:
			if msg.Content != "" {
				anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
					Role: anthropic.MessageParamRoleAssistant,
					Content: []anthropic.ContentBlockParamUnion{{
						OfText: &anthropic.TextBlockParam{Text: msg.Content},
					}},
				})
			}
		default:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  anthropicMessages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	return params
}
