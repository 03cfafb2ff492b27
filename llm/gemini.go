package llm

import (
	"context"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/m4xw311/machat/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiClient is a client for the Google Gemini API.
type GeminiClient struct {
	model *genai.GenerativeModel
}

// NewGeminiClient creates a new GeminiClient. It requires the GEMINI_API_KEY
// environment variable to be set.
func NewGeminiClient(ctx context.Context, modelName string) (*GeminiClient, error) {
	apiKey := os.Getenv(EnvGeminiAPIKey)
	if apiKey == "" {
		return nil, errors.New("%s environment variable not set", EnvGeminiAPIKey)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}

	return &GeminiClient{model: client.GenerativeModel(modelName)}, nil
}

// Chat sends a chat request to the Gemini API.
func (g *GeminiClient) Chat(ctx context.Context, messages []Message) (*Message, error) {
	cs, last := g.prepare(messages)
	resp, err := cs.SendMessage(ctx, last...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to Gemini")
	}
	text, err := geminiResponseText(resp)
	if err != nil {
		return nil, err
	}
	return &Message{Role: RoleAssistant, Content: text}, nil
}

// ChatStream streams a chat response from the Gemini API fragment by
// fragment.
func (g *GeminiClient) ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		cs, last := g.prepare(messages)
		iter := cs.SendMessageStream(ctx, last...)
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				errCh <- errors.Wrapf(err, "Gemini stream failed")
				return
			}
			text, err := geminiResponseText(resp)
			if err != nil {
				errCh <- err
				return
			}
			if text != "" {
				out <- text
			}
		}
	}()
	return out, errCh
}

// prepare splits the message list into system instruction, chat history and
// the final user turn, configuring the model accordingly.
func (g *GeminiClient) prepare(messages []Message) (*genai.ChatSession, []genai.Part) {
	var history []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			g.model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
		case RoleAssistant:
			history = append(history, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		default:
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}

	cs := g.model.StartChat()
	var last []genai.Part
	if len(history) > 0 {
		last = history[len(history)-1].Parts
		cs.History = history[:len(history)-1]
	}
	return cs, last
}

func geminiResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("received an empty response from Gemini")
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return text, nil
}
