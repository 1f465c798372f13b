package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/voyagent/voyagent/voyagent"
)

// LiteLLMLLM is an adapter for a LiteLLM proxy.
//
// LiteLLM exposes an OpenAI-compatible API in front of 100+ providers. The
// travel advisor uses it to run open models, most commonly Groq-hosted Llama
// (e.g. "groq/llama3-8b-8192"), without a provider-specific SDK.
//
// Example:
//
//	model := NewLiteLLMLLM("http://localhost:4000", "groq/llama3-8b-8192")
//	response, err := model.Complete(ctx, messages)
type LiteLLMLLM struct {
	baseURL    string
	model      string
	httpClient *http.Client
	apiKey     string // Optional API key for proxy auth
}

// NewLiteLLMLLM creates a new LiteLLM adapter.
//
// Parameters:
//   - baseURL: LiteLLM proxy URL (default "http://localhost:4000")
//   - model: Model identifier in LiteLLM format (default "groq/llama3-8b-8192")
func NewLiteLLMLLM(baseURL, model string) *LiteLLMLLM {
	if baseURL == "" {
		baseURL = "http://localhost:4000"
	}
	if model == "" {
		model = "groq/llama3-8b-8192"
	}
	return &LiteLLMLLM{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{},
	}
}

// NewLiteLLMLLMWithAuth creates a LiteLLM adapter with API key authentication.
func NewLiteLLMLLMWithAuth(baseURL, model, apiKey string) *LiteLLMLLM {
	l := NewLiteLLMLLM(baseURL, model)
	l.apiKey = apiKey
	return l
}

// Model returns the model identifier.
func (l *LiteLLMLLM) Model() string {
	return l.model
}

// litellmRequest is the request body for LiteLLM's OpenAI-compatible API.
type litellmRequest struct {
	Model       string           `json:"model"`
	Messages    []litellmMessage `json:"messages"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
	TopP        *float64         `json:"top_p,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

// litellmMessage is a message in OpenAI/LiteLLM format.
type litellmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// litellmResponse is the completion response.
type litellmResponse struct {
	ID      string          `json:"id"`
	Object  string          `json:"object"`
	Created int64           `json:"created"`
	Model   string          `json:"model"`
	Choices []litellmChoice `json:"choices"`
	Usage   litellmUsage    `json:"usage"`
}

type litellmChoice struct {
	Index        int            `json:"index"`
	Message      litellmMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type litellmUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// litellmStreamChunk is a streaming SSE chunk.
type litellmStreamChunk struct {
	ID      string                `json:"id"`
	Object  string                `json:"object"`
	Created int64                 `json:"created"`
	Model   string                `json:"model"`
	Choices []litellmStreamChoice `json:"choices"`
}

type litellmStreamChoice struct {
	Index        int          `json:"index"`
	Delta        litellmDelta `json:"delta"`
	FinishReason *string      `json:"finish_reason"`
}

type litellmDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Complete generates a completion via the LiteLLM proxy.
//
// LiteLLM routes to the correct provider based on the model string, so the
// same adapter serves Groq, Anthropic, Azure, or local Ollama models.
func (l *LiteLLMLLM) Complete(ctx context.Context, messages []*voyagent.Message, opts ...CallOption) (*voyagent.Message, error) {
	options := BuildCallOptions(opts...)

	req := litellmRequest{
		Model:    l.model,
		Messages: l.convertMessages(messages),
	}
	if options.Temperature != nil {
		req.Temperature = options.Temperature
	}
	if options.MaxTokens != nil {
		req.MaxTokens = options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = options.TopP
	}

	resp, err := l.makeRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var litellmResp litellmResponse
	if err := json.NewDecoder(resp.Body).Decode(&litellmResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(litellmResp.Choices) == 0 {
		return nil, fmt.Errorf("litellm returned no choices")
	}

	response := voyagent.NewMessage("agent", litellmResp.Choices[0].Message.Content)
	response.Metadata["model"] = litellmResp.Model
	response.Metadata["usage"] = map[string]interface{}{
		"prompt_tokens":     litellmResp.Usage.PromptTokens,
		"completion_tokens": litellmResp.Usage.CompletionTokens,
		"total_tokens":      litellmResp.Usage.TotalTokens,
	}
	response.Metadata["finish_reason"] = litellmResp.Choices[0].FinishReason
	response.Metadata["id"] = litellmResp.ID

	return response, nil
}

// Stream generates completion chunks via the LiteLLM proxy.
func (l *LiteLLMLLM) Stream(ctx context.Context, messages []*voyagent.Message, opts ...CallOption) (<-chan *voyagent.Message, error) {
	options := BuildCallOptions(opts...)

	req := litellmRequest{
		Model:    l.model,
		Messages: l.convertMessages(messages),
		Stream:   true,
	}
	if options.Temperature != nil {
		req.Temperature = options.Temperature
	}
	if options.MaxTokens != nil {
		req.MaxTokens = options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = options.TopP
	}

	resp, err := l.makeRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	messageChan := make(chan *voyagent.Message)

	go func() {
		defer close(messageChan)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()

			// SSE format: "data: {...}"
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")

			if strings.TrimSpace(data) == "[DONE]" {
				return
			}

			var chunk litellmStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}

			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				msg := voyagent.NewMessage("agent", chunk.Choices[0].Delta.Content)
				msg.Metadata["streaming"] = true
				msg.Metadata["model"] = l.model
				messageChan <- msg
			}
		}

		if err := scanner.Err(); err != nil {
			errorMsg := voyagent.NewMessage("agent", "")
			errorMsg.Metadata["error"] = err.Error()
			errorMsg.Metadata["streaming"] = true
			messageChan <- errorMsg
		}
	}()

	return messageChan, nil
}

// Unwrap returns the underlying HTTP client.
func (l *LiteLLMLLM) Unwrap() interface{} {
	return l.httpClient
}

// makeRequest sends a chat completion request to the proxy.
func (l *LiteLLMLLM) makeRequest(ctx context.Context, reqBody litellmRequest) (*http.Response, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(l.baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("litellm request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("litellm returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return resp, nil
}

// convertMessages converts runtime messages to OpenAI-style format.
func (l *LiteLLMLLM) convertMessages(messages []*voyagent.Message) []litellmMessage {
	litellmMessages := make([]litellmMessage, 0, len(messages))

	for _, msg := range messages {
		var role string
		switch msg.Role {
		case "system", "user":
			role = msg.Role
		default:
			role = "assistant"
		}

		litellmMessages = append(litellmMessages, litellmMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	return litellmMessages
}
