package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
	"github.com/voyagent/voyagent/voyagent"
)

// OpenAILLM is an adapter for OpenAI's GPT models.
//
// Wraps the go-openai SDK. Supports both completion and streaming.
//
// Example:
//
//	model := NewOpenAILLM("sk-...", "gpt-4o")
//	response, err := model.Complete(ctx, messages, WithTemperature(0.7))
type OpenAILLM struct {
	client *openai.Client
	model  string
}

// NewOpenAILLM creates a new OpenAI LLM adapter.
//
// Parameters:
//   - apiKey: OpenAI API key
//   - model: Model identifier (default "gpt-4o")
func NewOpenAILLM(apiKey, model string) *OpenAILLM {
	client := openai.NewClient(apiKey)
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAILLM{
		client: client,
		model:  model,
	}
}

// Model returns the model identifier.
func (o *OpenAILLM) Model() string {
	return o.model
}

// Complete generates a completion from GPT.
func (o *OpenAILLM) Complete(ctx context.Context, messages []*voyagent.Message, opts ...CallOption) (*voyagent.Message, error) {
	options := BuildCallOptions(opts...)

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: o.convertMessages(messages),
	}

	if options.Temperature != nil {
		req.Temperature = float32(*options.Temperature)
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = float32(*options.TopP)
	}
	if fp, ok := options.Extra["frequency_penalty"].(float64); ok {
		req.FrequencyPenalty = float32(fp)
	}
	if pp, ok := options.Extra["presence_penalty"].(float64); ok {
		req.PresencePenalty = float32(pp)
	}
	if stop, ok := options.Extra["stop"].([]string); ok {
		req.Stop = stop
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	response := voyagent.NewMessage("agent", resp.Choices[0].Message.Content)
	response.Metadata["model"] = resp.Model
	response.Metadata["usage"] = map[string]interface{}{
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	}
	response.Metadata["finish_reason"] = resp.Choices[0].FinishReason
	response.Metadata["id"] = resp.ID

	return response, nil
}

// Stream generates completion chunks from GPT.
func (o *OpenAILLM) Stream(ctx context.Context, messages []*voyagent.Message, opts ...CallOption) (<-chan *voyagent.Message, error) {
	options := BuildCallOptions(opts...)

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: o.convertMessages(messages),
		Stream:   true,
	}

	if options.Temperature != nil {
		req.Temperature = float32(*options.Temperature)
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = float32(*options.TopP)
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai stream error: %w", err)
	}

	messageChan := make(chan *voyagent.Message)

	go func() {
		defer close(messageChan)
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errorMsg := voyagent.NewMessage("agent", "")
				errorMsg.Metadata["error"] = err.Error()
				errorMsg.Metadata["streaming"] = true
				messageChan <- errorMsg
				return
			}

			if len(response.Choices) > 0 {
				delta := response.Choices[0].Delta
				if delta.Content != "" {
					chunk := voyagent.NewMessage("agent", delta.Content)
					chunk.Metadata["streaming"] = true
					chunk.Metadata["model"] = o.model
					messageChan <- chunk
				}
			}
		}
	}()

	return messageChan, nil
}

// Unwrap returns the underlying go-openai client.
func (o *OpenAILLM) Unwrap() interface{} {
	return o.client
}

// convertMessages converts runtime messages to OpenAI format.
func (o *OpenAILLM) convertMessages(messages []*voyagent.Message) []openai.ChatCompletionMessage {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		var role string
		switch msg.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "user":
			role = openai.ChatMessageRoleUser
		default:
			role = openai.ChatMessageRoleAssistant
		}

		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	return openaiMessages
}
