package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/voyagent/voyagent/voyagent"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiLLM is an adapter for Google's Gemini models.
//
// This is the advisor's default provider; gemini-2.5-flash is the model the
// travel advisor ships with. Supports both completion and streaming.
//
// Example:
//
//	model, err := NewGeminiLLM("", "gemini-2.5-flash")
//	response, err := model.Complete(ctx, messages, WithTemperature(0.7))
type GeminiLLM struct {
	client *genai.Client
	model  string
}

// NewGeminiLLM creates a new Gemini LLM adapter.
//
// Parameters:
//   - apiKey: Google API key. If empty, GEMINI_API_KEY then GOOGLE_API_KEY
//     environment variables are consulted
//   - model: Model identifier (default "gemini-2.5-flash")
func NewGeminiLLM(apiKey, model string) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini api key required: provide apiKey parameter or set GEMINI_API_KEY or GOOGLE_API_KEY environment variable")
		}
	}

	if model == "" {
		model = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiLLM{
		client: client,
		model:  model,
	}, nil
}

// Model returns the model identifier.
func (g *GeminiLLM) Model() string {
	return g.model
}

// Complete generates a completion from Gemini.
//
// The response metadata includes the model name, token usage when the API
// reports it, and the finish reason.
func (g *GeminiLLM) Complete(ctx context.Context, messages []*voyagent.Message, opts ...CallOption) (*voyagent.Message, error) {
	options := BuildCallOptions(opts...)

	model := g.client.GenerativeModel(g.model)
	g.configureModel(model, options)

	history, lastMessage := g.convertMessages(messages)

	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, lastMessage...)
	if err != nil {
		return nil, fmt.Errorf("gemini api error: %w", err)
	}

	response := voyagent.NewMessage("agent", g.extractContent(resp))
	response.Metadata["model"] = g.model

	if resp.UsageMetadata != nil {
		response.Metadata["usage"] = map[string]interface{}{
			"prompt_tokens":     resp.UsageMetadata.PromptTokenCount,
			"completion_tokens": resp.UsageMetadata.CandidatesTokenCount,
			"total_tokens":      resp.UsageMetadata.TotalTokenCount,
		}
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != 0 {
		response.Metadata["finish_reason"] = resp.Candidates[0].FinishReason.String()
	}

	return response, nil
}

// Stream generates completion chunks from Gemini.
func (g *GeminiLLM) Stream(ctx context.Context, messages []*voyagent.Message, opts ...CallOption) (<-chan *voyagent.Message, error) {
	options := BuildCallOptions(opts...)

	model := g.client.GenerativeModel(g.model)
	g.configureModel(model, options)

	history, lastMessage := g.convertMessages(messages)

	session := model.StartChat()
	session.History = history

	iter := session.SendMessageStream(ctx, lastMessage...)

	messageChan := make(chan *voyagent.Message)

	go func() {
		defer close(messageChan)

		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				errorMsg := voyagent.NewMessage("agent", "")
				errorMsg.Metadata["error"] = err.Error()
				errorMsg.Metadata["streaming"] = true
				messageChan <- errorMsg
				return
			}

			if content := g.extractContent(resp); content != "" {
				chunk := voyagent.NewMessage("agent", content)
				chunk.Metadata["streaming"] = true
				chunk.Metadata["model"] = g.model
				messageChan <- chunk
			}
		}
	}()

	return messageChan, nil
}

// Unwrap returns the underlying genai client.
func (g *GeminiLLM) Unwrap() interface{} {
	return g.client
}

// convertMessages converts messages to Gemini format.
//
// Gemini expects role "user" or "model"; system messages are folded into the
// user role. Returns the conversation history and the parts of the final
// message to send.
func (g *GeminiLLM) convertMessages(messages []*voyagent.Message) ([]*genai.Content, []genai.Part) {
	if len(messages) == 0 {
		return nil, nil
	}

	var history []*genai.Content

	for i := 0; i < len(messages)-1; i++ {
		msg := messages[i]
		history = append(history, &genai.Content{
			Role: g.mapRole(msg.Role),
			Parts: []genai.Part{
				genai.Text(msg.Content),
			},
		})
	}

	lastMsg := messages[len(messages)-1]
	return history, []genai.Part{genai.Text(lastMsg.Content)}
}

// mapRole maps a runtime role to a Gemini role.
func (g *GeminiLLM) mapRole(role string) string {
	switch role {
	case "user", "system":
		return "user"
	default:
		return "model"
	}
}

// configureModel applies call options to the model.
func (g *GeminiLLM) configureModel(model *genai.GenerativeModel, options *CallOptions) {
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		model.Temperature = &temp
	}
	if options.MaxTokens != nil {
		maxTokens := int32(*options.MaxTokens)
		model.MaxOutputTokens = &maxTokens
	}
	if options.TopP != nil {
		topP := float32(*options.TopP)
		model.TopP = &topP
	}
	if topK, ok := options.Extra["top_k"].(int); ok {
		topKInt := int32(topK)
		model.TopK = &topKInt
	}
}

// extractContent concatenates the text parts of the first candidate.
func (g *GeminiLLM) extractContent(resp *genai.GenerateContentResponse) string {
	var content string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				content += string(text)
			}
		}
		break
	}
	return content
}
