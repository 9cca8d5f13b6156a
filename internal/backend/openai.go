package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultGrokModel   = "grok-2-latest"
	grokBaseURL        = "https://api.x.ai/v1"
)

// chatCompleter is the subset of openai.Client used here.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	name   string
	model  string
	apiKey string
	client chatCompleter
}

// NewOpenAI creates a client for api.openai.com, or baseURL when set.
func NewOpenAI(httpClient *http.Client, apiKey, baseURL, model string) *OpenAI {
	if model == "" {
		model = defaultOpenAIModel
	}
	return newOpenAICompatible("openai", httpClient, apiKey, baseURL, model)
}

// NewGrok creates a client for the xAI Grok API.
func NewGrok(httpClient *http.Client, apiKey, baseURL, model string) *OpenAI {
	if baseURL == "" {
		baseURL = grokBaseURL
	}
	if model == "" {
		model = defaultGrokModel
	}
	return newOpenAICompatible("grok", httpClient, apiKey, baseURL, model)
}

func newOpenAICompatible(name string, httpClient *http.Client, apiKey, baseURL, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAI{
		name:   name,
		model:  model,
		apiKey: apiKey,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (o *OpenAI) Name() string {
	return o.name
}

// Model returns the model identifier sent with each request.
func (o *OpenAI) Model() string {
	return o.model
}

// Complete sends prompt as a single user message.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("%s: %w: api key not set", o.name, ErrAuthentication)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", o.classify(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s: %w", o.name, ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return statusError(o.name, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return statusError(o.name, reqErr.HTTPStatusCode, "")
	}
	return fmt.Errorf("%s: %w: %v", o.name, ErrNetwork, err)
}
