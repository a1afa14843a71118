package translation

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/snonux/transproxy/internal/usage"
)

// ItemType selects the system prompt used for an item.
type ItemType string

const (
	Segment  ItemType = "segment"
	Pathname ItemType = "pathname"
)

// Style is the translation register requested for segments.
type Style string

const (
	Literal  Style = "literal"
	Balanced Style = "balanced"
	Natural  Style = "natural"
)

// ParseStyle validates a style name. An empty name means Balanced.
func ParseStyle(s string) (Style, error) {
	switch st := Style(s); st {
	case "":
		return Balanced, nil
	case Literal, Balanced, Natural:
		return st, nil
	default:
		return "", fmt.Errorf("unknown translation style %q", s)
	}
}

// Item is one unit of text submitted for translation.
type Item struct {
	Text string   `json:"text"`
	Type ItemType `json:"type"`
}

// Context identifies the page a batch belongs to. It only shows up in logs.
type Context struct {
	Host     string
	Pathname string
}

func (c *Context) logSuffix() string {
	if c == nil {
		return ""
	}
	return " for " + c.Host + c.Pathname
}

// SingleResult is a successful single-item translation.
type SingleResult struct {
	Translation string
	Usage       usage.Usage
}

// BatchResult holds one translation per input item, in input order.
// Succeeded[i] is false when item i fell back to its original text.
// APICallCount counts attempts, not successes.
type BatchResult struct {
	Translations []string
	Succeeded    []bool
	TotalUsage   usage.Usage
	APICallCount int
}

// Request is a single chat completion call.
type Request struct {
	APIKey       string
	Model        string
	SystemPrompt string
	UserPrompt   string
}

// Completion is the validated response of a chat completion call.
// CostReported is false when the provider did not send a cost.
type Completion struct {
	Content      string
	Usage        usage.Usage
	CostReported bool
}

// Completer performs chat completions against an external provider.
type Completer interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

var (
	ErrMissingAPIKey   = errors.New("missing API key")
	ErrNoChoices       = errors.New("response has no completion choices")
	ErrEmptyCompletion = errors.New("completion is empty")
)
