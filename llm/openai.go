package llm

import (
	"context"
	"os"

	"github.com/m4xw311/machat/errors"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient is a client for the OpenAI Chat Completion API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAIClient. It requires the OPENAI_API_KEY
// environment variable to be set. OPENAI_BASE_URL is honored for custom API
// endpoints.
func NewOpenAIClient(ctx context.Context, modelName string) (*OpenAIClient, error) {
	apiKey := os.Getenv(EnvOpenAIAPIKey)
	if apiKey == "" {
		return nil, errors.New("%s environment variable not set", EnvOpenAIAPIKey)
	}

	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	// The v2 SDK uses functional options for configuration.
	c := openai.NewClient(options...)
	return &OpenAIClient{client: &c, model: modelName}, nil
}

// Chat sends a chat request to OpenAI.
func (o *OpenAIClient) Chat(ctx context.Context, messages []Message) (*Message, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(messages))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to OpenAI")
	}
	if len(resp.Choices) == 0 {
		return &Message{Role: RoleAssistant, Content: ""}, nil
	}
	return &Message{Role: RoleAssistant, Content: resp.Choices[0].Message.Content}, nil
}

// ChatStream streams a chat completion from OpenAI delta by delta.
func (o *OpenAIClient) ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(messages))
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				out <- delta
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- errors.Wrapf(err, "OpenAI stream failed")
		}
	}()
	return out, errCh
}

func (o *OpenAIClient) params(messages []Message) openai.ChatCompletionNewParams {
	var chatMessages []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			chatMessages = append(chatMessages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			chatMessages = append(chatMessages, openai.AssistantMessage(msg.Content))
		default:
			chatMessages = append(chatMessages, openai.UserMessage(msg.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: chatMessages,
	}
}
