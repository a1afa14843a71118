package translation

import (
	"fmt"
	"net/http"
	"strings"
)

// Provider names accepted by NewCompleter.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// NewCompleter returns the Completer for a provider name.
func NewCompleter(provider, baseURL string, httpClient *http.Client) (Completer, error) {
	switch strings.ToLower(provider) {
	case "", ProviderOpenRouter:
		return NewOpenRouterCompleter(baseURL, httpClient), nil
	case ProviderGemini:
		return NewGeminiCompleter(baseURL, httpClient), nil
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
}
