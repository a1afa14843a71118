// Package models lists the chat models available through the configured
// OpenAI compatible endpoint. Model IDs are grouped by their provider
// prefix, so "anthropic/claude-haiku-4.5" is shown under "anthropic".
package models
