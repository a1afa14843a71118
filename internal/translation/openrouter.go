package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/transproxy/internal/usage"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "anthropic/claude-haiku-4.5"
	appTitle       = "Translation Proxy"
)

// NewOpenAIClient returns a go-openai client for an OpenAI compatible
// endpoint. Requests are rewritten for OpenRouter: temperature pinned to 0,
// streaming off, throughput routing and reasoning disabled.
func NewOpenAIClient(apiKey, baseURL string, httpClient *http.Client) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	cfg.HTTPClient = &openRouterDoer{client: httpClient}
	return openai.NewClientWithConfig(cfg)
}

// OpenRouterCompleter implements Completer with one cached go-openai client
// per API key.
type OpenRouterCompleter struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*openai.Client
}

// NewOpenRouterCompleter creates a completer for baseURL, or DefaultBaseURL
// when empty.
func NewOpenRouterCompleter(baseURL string, httpClient *http.Client) *OpenRouterCompleter {
	return &OpenRouterCompleter{
		baseURL:    baseURL,
		httpClient: httpClient,
		clients:    make(map[string]*openai.Client),
	}
}

func (c *OpenRouterCompleter) client(apiKey string) *openai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.clients[apiKey]; ok {
		return cl
	}
	cl := NewOpenAIClient(apiKey, c.baseURL, c.httpClient)
	c.clients[apiKey] = cl
	return cl
}

// Complete issues one non-streaming chat completion.
func (c *OpenRouterCompleter) Complete(ctx context.Context, req Request) (Completion, error) {
	if req.APIKey == "" {
		return Completion{}, ErrMissingAPIKey
	}

	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	sink := &costSink{}
	ctx = context.WithValue(ctx, costSinkKey{}, sink)

	resp, err := c.client(req.APIKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("openrouter chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Completion{}, ErrNoChoices
	}

	return Completion{
		Content: resp.Choices[0].Message.Content,
		Usage: usage.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			Cost:             sink.cost,
		},
		CostReported: sink.reported,
	}, nil
}

type costSinkKey struct{}

// costSink receives usage.cost, which go-openai does not decode.
type costSink struct {
	cost     float64
	reported bool
}

// openRouterDoer patches outgoing chat completion bodies and captures the
// reported cost from the response.
type openRouterDoer struct {
	client *http.Client
}

func (d *openRouterDoer) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-Title", appTitle)

	if req.Method == http.MethodPost && strings.HasSuffix(req.URL.Path, "/chat/completions") && req.Body != nil {
		if err := patchChatBody(req); err != nil {
			return nil, err
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}

	sink, ok := req.Context().Value(costSinkKey{}).(*costSink)
	if !ok || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	var envelope struct {
		Usage *struct {
			Cost *float64 `json:"cost"`
		} `json:"usage"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Usage != nil && envelope.Usage.Cost != nil {
		sink.cost = *envelope.Usage.Cost
		sink.reported = true
	}

	return resp, nil
}

func patchChatBody(req *http.Request) error {
	raw, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return fmt.Errorf("read completion request: %w", err)
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("decode completion request: %w", err)
	}
	body["temperature"] = 0
	body["stream"] = false
	body["provider"] = map[string]any{"sort": "throughput"}
	body["reasoning"] = map[string]any{"enabled": false}

	patched, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode completion request: %w", err)
	}

	req.Body = io.NopCloser(bytes.NewReader(patched))
	req.ContentLength = int64(len(patched))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(patched)), nil
	}
	return nil
}
