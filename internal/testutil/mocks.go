package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"codeberg.org/snonux/transproxy/internal/store"
	"codeberg.org/snonux/transproxy/internal/translation"
	"codeberg.org/snonux/transproxy/internal/usage"
)

// MockCompleter mocks the chat completion backend. Responses and errors are
// keyed by the text inside the prompt's <text> element, so results do not
// depend on the order concurrent calls arrive in.
type MockCompleter struct {
	Translations map[string]string
	Errors       map[string]error
	Panics       map[string]bool
	Usage        usage.Usage
	// NoCost makes completions report no cost.
	NoCost bool

	mu    sync.Mutex
	Calls []translation.Request
}

// PromptText extracts the text being translated from a user prompt.
func PromptText(userPrompt string) string {
	start := strings.Index(userPrompt, "<text>")
	end := strings.LastIndex(userPrompt, "</text>")
	if start < 0 || end < start {
		return userPrompt
	}
	return userPrompt[start+len("<text>") : end]
}

// Complete mocks a chat completion
func (m *MockCompleter) Complete(ctx context.Context, req translation.Request) (translation.Completion, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()

	text := PromptText(req.UserPrompt)

	if m.Panics[text] {
		panic(fmt.Sprintf("mock panic for %q", text))
	}
	if err, ok := m.Errors[text]; ok {
		return translation.Completion{}, err
	}
	if err := ctx.Err(); err != nil {
		return translation.Completion{}, err
	}

	content, ok := m.Translations[text]
	if !ok {
		content = "mock translation of " + text
	}

	return translation.Completion{
		Content:      content,
		Usage:        m.Usage,
		CostReported: !m.NoCost,
	}, nil
}

// CallCount returns the number of Complete calls so far
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// CalledTexts returns the prompt texts of all calls
func (m *MockCompleter) CalledTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		out[i] = PromptText(c.UserPrompt)
	}
	return out
}

// MemoryCache mocks the translation cache in memory
type MemoryCache struct {
	// Errors fails upserts whose first item has this original text.
	Errors map[string]error

	mu      sync.Mutex
	entries map[string]store.TranslationItem
	Upserts int
}

func cacheKey(siteID int64, lang, original string) string {
	return fmt.Sprintf("%d|%s|%s", siteID, lang, original)
}

// UpsertTranslations mocks caching translations
func (m *MemoryCache) UpsertTranslations(ctx context.Context, siteID int64, lang string, items []store.TranslationItem) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(items) > 0 {
		if err, ok := m.Errors[items[0].Original]; ok {
			return 0, err
		}
	}

	if m.entries == nil {
		m.entries = make(map[string]store.TranslationItem)
	}
	m.Upserts++

	n := 0
	for _, it := range items {
		key := cacheKey(siteID, lang, it.Original)
		if _, ok := m.entries[key]; ok {
			continue
		}
		m.entries[key] = it
		n++
	}
	return n, nil
}

// GetTranslations mocks a cache lookup
func (m *MemoryCache) GetTranslations(ctx context.Context, siteID int64, lang string, texts []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string)
	for _, t := range texts {
		if it, ok := m.entries[cacheKey(siteID, lang, t)]; ok {
			out[t] = it.Translated
		}
	}
	return out, nil
}

// Get returns one cached translation
func (m *MemoryCache) Get(siteID int64, lang, original string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.entries[cacheKey(siteID, lang, original)]
	return it.Translated, ok
}

// Len returns the number of cached translations
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// MemoryLedger mocks the usage ledger
type MemoryLedger struct {
	Err error

	mu      sync.Mutex
	Records []usage.Record
}

// RecordUsage mocks appending usage records
func (m *MemoryLedger) RecordUsage(ctx context.Context, records []usage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Records = append(m.Records, records...)
	return nil
}

// Snapshot returns a copy of the recorded entries
func (m *MemoryLedger) Snapshot() []usage.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]usage.Record(nil), m.Records...)
}
