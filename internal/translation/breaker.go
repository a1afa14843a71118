package translation

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"codeberg.org/snonux/transproxy/internal/segment"
)

// StatusCode returns the HTTP status carried by a provider error, or 0 when
// the error did not come from an HTTP response.
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code
	}
	var geminiPtr *genai.APIError
	if errors.As(err, &geminiPtr) && geminiPtr != nil {
		return geminiPtr.Code
	}
	return 0
}

// isBreakerFailure reports whether err says the provider is unhealthy.
// Transport errors, timeouts, 429 and 5xx count; client errors such as a bad
// key, malformed responses and caller cancellation do not.
func isBreakerFailure(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrNoChoices),
		errors.Is(err, ErrEmptyCompletion),
		errors.Is(err, ErrMissingAPIKey),
		errors.Is(err, context.Canceled):
		return false
	}

	if code := StatusCode(err); code != 0 {
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	return true
}

// keyFingerprint names a key in logs without revealing it.
func keyFingerprint(apiKey string) string {
	return segment.HashText(apiKey)[:8]
}
