package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"github.com/sourcegraph/conc"

	"codeberg.org/snonux/transproxy/internal"
	"codeberg.org/snonux/transproxy/internal/logging"
)

const (
	DefaultTimeout          = 30 * time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second
	// DefaultBreakerProbes is the number of calls let through while a
	// breaker is half-open, sized for a page-sized batch.
	DefaultBreakerProbes = 64
)

// Config controls a Translator.
type Config struct {
	Model   string
	Timeout time.Duration
	// BreakerThreshold is the number of consecutive failed calls for one API
	// key that opens that key's breaker. Zero disables breaking.
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
	BreakerProbes    uint32
	Logger           *slog.Logger
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig() Config {
	return Config{
		Model:            DefaultModel,
		Timeout:          DefaultTimeout,
		BreakerThreshold: DefaultBreakerThreshold,
		BreakerCooldown:  DefaultBreakerCooldown,
		BreakerProbes:    DefaultBreakerProbes,
	}
}

// Translator handles single and batch translation through a Completer
type Translator struct {
	completer Completer
	config    Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewTranslator creates a new translator instance
func NewTranslator(completer Completer, config Config) *Translator {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.BreakerCooldown <= 0 {
		config.BreakerCooldown = DefaultBreakerCooldown
	}
	if config.BreakerProbes == 0 {
		config.BreakerProbes = DefaultBreakerProbes
	}

	return &Translator{
		completer: completer,
		config:    config,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breaker returns the breaker of an API key, or nil when breaking is off.
func (t *Translator) breaker(apiKey string) *gobreaker.CircuitBreaker {
	if t.config.BreakerThreshold == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if cb, ok := t.breakers[apiKey]; ok {
		return cb
	}

	threshold := t.config.BreakerThreshold
	logger := logging.Or(t.config.Logger)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "translation/" + keyFingerprint(apiKey),
		MaxRequests: t.config.BreakerProbes,
		Timeout:     t.config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !isBreakerFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	t.breakers[apiKey] = cb
	return cb
}

// TranslateSingle translates one item. It returns nil on any failure: a
// transport or HTTP error, a malformed or empty response, a timeout, or an
// open breaker.
func (t *Translator) TranslateSingle(ctx context.Context, text string, itemType ItemType, sourceLang, targetLang, apiKey string, style Style) *SingleResult {
	logger := logging.FromContext(ctx, t.config.Logger)

	req := Request{
		APIKey:       apiKey,
		Model:        t.config.Model,
		SystemPrompt: systemPrompt(itemType),
		UserPrompt:   userPrompt(text, itemType, sourceLang, targetLang, style),
	}

	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	completion, err := t.complete(ctx, req)
	if err != nil {
		kind := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			kind = "timeout"
		}
		logger.Warn("translation failed",
			"kind", kind, "type", itemType, "text", internal.Preview(text, 50), "error", err)
		return nil
	}

	if !completion.CostReported {
		logger.Warn("missing cost in completion usage", "model", req.Model)
	}

	return &SingleResult{
		Translation: completion.Content,
		Usage:       completion.Usage.Clamp(),
	}
}

func (t *Translator) complete(ctx context.Context, req Request) (Completion, error) {
	call := func() (interface{}, error) {
		c, err := t.completer.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		c.Content = strings.TrimSpace(c.Content)
		if c.Content == "" {
			return nil, ErrEmptyCompletion
		}
		return c, nil
	}

	cb := t.breaker(req.APIKey)
	if cb == nil {
		res, err := call()
		if err != nil {
			return Completion{}, err
		}
		return res.(Completion), nil
	}

	res, err := cb.Execute(call)
	if err != nil {
		return Completion{}, fmt.Errorf("%s breaker: %w", cb.Name(), err)
	}
	return res.(Completion), nil
}

// TranslateBatch translates all items concurrently, one call per item. The
// result always has one translation per item in input order; failed items
// keep their original text and add no usage.
func (t *Translator) TranslateBatch(ctx context.Context, items []Item, sourceLang, targetLang, apiKey string, style Style, tc *Context) BatchResult {
	if len(items) == 0 {
		return BatchResult{Translations: []string{}, Succeeded: []bool{}}
	}

	results := make([]*SingleResult, len(items))
	var wg conc.WaitGroup
	for i, item := range items {
		wg.Go(func() {
			results[i] = t.TranslateSingle(ctx, item.Text, item.Type, sourceLang, targetLang, apiKey, style)
		})
	}
	if r := wg.WaitAndRecover(); r != nil {
		logging.FromContext(ctx, t.config.Logger).Error("translation task panicked", "panic", r.String())
	}

	out := BatchResult{
		Translations: make([]string, len(items)),
		Succeeded:    make([]bool, len(items)),
		APICallCount: len(items),
	}
	failed := 0
	for i, res := range results {
		if res == nil {
			out.Translations[i] = items[i].Text
			failed++
			continue
		}
		out.Translations[i] = res.Translation
		out.Succeeded[i] = true
		out.TotalUsage = out.TotalUsage.Add(res.Usage)
	}

	if failed > 0 {
		logging.FromContext(ctx, t.config.Logger).Warn(
			fmt.Sprintf("%d/%d translations failed%s, using originals", failed, len(items), tc.logSuffix()),
			"failed", failed, "total", len(items))
	}

	return out
}
