package translation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"codeberg.org/snonux/transproxy/internal/usage"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiCompleter implements Completer on the Gemini API. Gemini does not
// report cost, so completions always have CostReported false.
type GeminiCompleter struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// NewGeminiCompleter creates a completer. An empty baseURL uses the SDK default.
func NewGeminiCompleter(baseURL string, httpClient *http.Client) *GeminiCompleter {
	return &GeminiCompleter{
		baseURL:    baseURL,
		httpClient: httpClient,
		clients:    make(map[string]*genai.Client),
	}
}

func (g *GeminiCompleter) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}

	c, err := NewGeminiClient(ctx, apiKey, g.baseURL, g.httpClient)
	if err != nil {
		return nil, err
	}
	g.clients[apiKey] = c
	return c, nil
}

// NewGeminiClient returns a genai client for the Gemini API. An empty baseURL
// uses the SDK default.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string, httpClient *http.Client) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return c, nil
}

// Complete issues one GenerateContent call.
func (g *GeminiCompleter) Complete(ctx context.Context, req Request) (Completion, error) {
	if req.APIKey == "" {
		return Completion{}, ErrMissingAPIKey
	}

	client, err := g.client(ctx, req.APIKey)
	if err != nil {
		return Completion{}, err
	}

	model := req.Model
	if model == "" || strings.Contains(model, "/") {
		model = DefaultGeminiModel
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(req.UserPrompt), buildGeminiConfig(req))
	if err != nil {
		return Completion{}, fmt.Errorf("gemini generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Completion{}, ErrNoChoices
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}

	c := Completion{Content: b.String()}
	if m := resp.UsageMetadata; m != nil {
		c.Usage = usage.Usage{
			PromptTokens:     int(m.PromptTokenCount),
			CompletionTokens: int(m.CandidatesTokenCount),
		}
	}
	return c, nil
}

func buildGeminiConfig(req Request) *genai.GenerateContentConfig {
	temp := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	return config
}
