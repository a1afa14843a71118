// Package translation sends segments and pathnames to an LLM chat-completion
// endpoint and translates them one call per item. Every per-item failure
// degrades to a nil result, and batches fall back to the original text.
//
// The default backend is OpenRouter through go-openai. Gemini is available
// through the genai SDK. A circuit breaker stops hammering a failing
// endpoint.
package translation
