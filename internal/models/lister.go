package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"codeberg.org/snonux/transproxy/internal/translation"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("API key not found. Set the provider's API key environment variable or configure translation.api_key in .transproxy.yaml")

const otherGroup = "other"

// fetchFunc returns the model IDs offered by a provider.
type fetchFunc func(ctx context.Context) ([]string, error)

// Lister handles listing available models
type Lister struct {
	apiKey       string
	fetch        fetchFunc
	defaultGroup string
	defaultModel string
}

// NewLister creates a model lister for the OpenRouter API, or another OpenAI
// compatible endpoint when baseURL is set.
func NewLister(apiKey, baseURL string) *Lister {
	return newLister(apiKey, baseURL, nil)
}

func newLister(apiKey, baseURL string, httpClient *http.Client) *Lister {
	client := translation.NewOpenAIClient(apiKey, baseURL, httpClient)
	return &Lister{
		apiKey:       apiKey,
		defaultGroup: otherGroup,
		defaultModel: translation.DefaultModel,
		fetch: func(ctx context.Context) ([]string, error) {
			models, err := client.ListModels(ctx)
			if err != nil {
				return nil, err
			}
			ids := make([]string, 0, len(models.Models))
			for _, m := range models.Models {
				ids = append(ids, m.ID)
			}
			return ids, nil
		},
	}
}

// NewGeminiLister creates a model lister for the Gemini API.
func NewGeminiLister(apiKey, baseURL string) *Lister {
	return newGeminiLister(apiKey, baseURL, nil)
}

func newGeminiLister(apiKey, baseURL string, httpClient *http.Client) *Lister {
	return &Lister{
		apiKey:       apiKey,
		defaultGroup: translation.ProviderGemini,
		defaultModel: translation.DefaultGeminiModel,
		fetch: func(ctx context.Context) ([]string, error) {
			client, err := translation.NewGeminiClient(ctx, apiKey, baseURL, httpClient)
			if err != nil {
				return nil, err
			}
			var ids []string
			for m, err := range client.Models.All(ctx) {
				if err != nil {
					return nil, err
				}
				ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
			}
			return ids, nil
		},
	}
}

// NewListerFor returns the lister matching a translation provider name.
func NewListerFor(provider, apiKey, baseURL string) (*Lister, error) {
	switch strings.ToLower(provider) {
	case "", translation.ProviderOpenRouter:
		return NewLister(apiKey, baseURL), nil
	case translation.ProviderGemini:
		return NewGeminiLister(apiKey, baseURL), nil
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
}

// ListAvailableModels writes all available models to w, grouped by provider
func (l *Lister) ListAvailableModels(ctx context.Context, w io.Writer) error {
	if l.apiKey == "" {
		return ErrMissingAPIKey
	}

	ids, err := l.fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	groups := GroupByProvider(ids, l.defaultGroup)

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "Available models (%d):\n", len(ids))
	if len(names) == 0 {
		fmt.Fprintln(w, "  No models found")
		return nil
	}

	for _, name := range names {
		fmt.Fprintf(w, "\n%s:\n", name)
		for _, id := range groups[name] {
			if id == l.defaultModel {
				fmt.Fprintf(w, "  %s (default)\n", id)
				continue
			}
			fmt.Fprintf(w, "  %s\n", id)
		}
	}

	return nil
}

// GroupByProvider maps provider prefixes to sorted model IDs. IDs without a
// prefix go to fallback.
func GroupByProvider(ids []string, fallback string) map[string][]string {
	groups := make(map[string][]string)
	for _, id := range ids {
		if id == "" {
			continue
		}
		group := fallback
		if provider, _, ok := strings.Cut(id, "/"); ok && provider != "" {
			group = provider
		}
		groups[group] = append(groups[group], id)
	}

	for _, ids := range groups {
		sort.Strings(ids)
	}
	return groups
}
