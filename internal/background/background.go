package background

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"codeberg.org/snonux/transproxy/internal"
	"codeberg.org/snonux/transproxy/internal/inflight"
	"codeberg.org/snonux/transproxy/internal/logging"
	"codeberg.org/snonux/transproxy/internal/segment"
	"codeberg.org/snonux/transproxy/internal/skipword"
	"codeberg.org/snonux/transproxy/internal/store"
	"codeberg.org/snonux/transproxy/internal/translation"
	"codeberg.org/snonux/transproxy/internal/usage"
)

// SingleTranslator translates one item, returning nil on failure.
type SingleTranslator interface {
	TranslateSingle(ctx context.Context, text string, itemType translation.ItemType, sourceLang, targetLang, apiKey string, style translation.Style) *translation.SingleResult
}

// Cache receives completed translations.
type Cache interface {
	UpsertTranslations(ctx context.Context, siteID int64, lang string, items []store.TranslationItem) (int, error)
}

// InFlight releases coordination keys.
type InFlight interface {
	Delete(key string)
}

// Deps are the collaborators of a Translator.
type Deps struct {
	Translator SingleTranslator
	Cache      Cache
	Ledger     usage.Ledger
	InFlight   InFlight
	Logger     *slog.Logger
}

// Translator runs background segment translations.
type Translator struct {
	deps Deps
}

// New creates a Translator.
func New(deps Deps) *Translator {
	return &Translator{deps: deps}
}

// Params describe one run. Hashes[i] is the content hash of Segments[i].
type Params struct {
	SiteID     int64
	TargetLang string
	SourceLang string
	Segments   []segment.Segment
	Hashes     []string
	SkipWords  []string
	APIKey     string
	Context    *translation.Context
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Usage     usage.Usage
}

// Start translates every segment concurrently and returns once all of them
// have settled. Callers that do not want to wait run it in a goroutine.
// Cancelling ctx does not abort segments already dispatched; each call is
// bounded by the translator's own timeout.
func (t *Translator) Start(ctx context.Context, p Params) Summary {
	runID := uuid.NewString()
	ctx = logging.WithRunID(context.WithoutCancel(ctx), runID)
	logger := logging.FromContext(ctx, t.deps.Logger)

	n := min(len(p.Segments), len(p.Hashes))
	keys := make([]string, n)
	refs := newKeyRefs()
	for i := range keys {
		keys[i] = inflight.BuildKey(p.SiteID, p.TargetLang, p.Hashes[i])
		refs.hold(keys[i])
	}

	if len(p.Segments) != len(p.Hashes) {
		logger.Warn("segment and hash counts differ, processing common prefix",
			"segments", len(p.Segments), "hashes", len(p.Hashes))
		for _, h := range p.Hashes[n:] {
			if key := inflight.BuildKey(p.SiteID, p.TargetLang, h); refs.claimUnused(key) {
				t.release(key)
			}
		}
	}

	var (
		agg usage.Aggregator
		wg  conc.WaitGroup
	)
	for i := 0; i < n; i++ {
		seg, key := p.Segments[i], keys[i]
		wg.Go(func() {
			defer func() {
				if refs.done(key) {
					t.release(key)
				}
			}()
			defer func() {
				if r := recover(); r != nil {
					agg.AddFailure()
					logger.Error("segment translation panicked", "hash", p.Hashes[i], "panic", fmt.Sprint(r))
				}
			}()

			u, err := t.translateSegment(ctx, p, seg)
			if err != nil {
				agg.AddFailure()
				logger.Debug("segment translation failed", "hash", p.Hashes[i], "error", err)
				return
			}
			agg.AddSuccess(u)
		})
	}
	wg.Wait()

	total, succeeded, failed := agg.Snapshot()
	if failed > 0 {
		logger.Warn(fmt.Sprintf("%d/%d segment translations failed%s", failed, n, contextSuffix(p.Context)),
			"failed", failed, "total", n)
	}

	if rec, ok := agg.Record(p.SiteID, usage.SegmentTranslation); ok && t.deps.Ledger != nil {
		if err := t.deps.Ledger.RecordUsage(ctx, []usage.Record{rec}); err != nil {
			logger.Error("failed to record usage", "error", err)
		}
	}

	return Summary{RunID: runID, Total: n, Succeeded: succeeded, Failed: failed, Usage: total}
}

var errNoTranslation = errors.New("no translation returned")

func (t *Translator) translateSegment(ctx context.Context, p Params, seg segment.Segment) (usage.Usage, error) {
	masked, replacements := skipword.Replace(seg.Content, p.SkipWords)

	res := t.deps.Translator.TranslateSingle(ctx, masked, translation.Segment, p.SourceLang, p.TargetLang, p.APIKey, translation.Balanced)
	if res == nil {
		return usage.Usage{}, errNoTranslation
	}

	item := store.TranslationItem{
		Original:   seg.Content,
		Translated: skipword.Restore(res.Translation, replacements),
		Kind:       store.KindOf(seg.Kind),
	}
	if _, err := t.deps.Cache.UpsertTranslations(ctx, p.SiteID, p.TargetLang, []store.TranslationItem{item}); err != nil {
		return usage.Usage{}, fmt.Errorf("cache %q: %w", internal.Preview(seg.Content, 50), err)
	}
	return res.Usage, nil
}

// keyRefs counts the segments of a run sharing an in-flight key, so each key
// is released exactly once, after its last segment.
type keyRefs struct {
	mu   sync.Mutex
	refs map[string]int
	seen map[string]bool
}

func newKeyRefs() *keyRefs {
	return &keyRefs{refs: make(map[string]int), seen: make(map[string]bool)}
}

func (k *keyRefs) hold(key string) {
	k.refs[key]++
	k.seen[key] = true
}

// claimUnused reports whether key belongs to no segment of the run and was
// not claimed before.
func (k *keyRefs) claimUnused(key string) bool {
	if k.seen[key] {
		return false
	}
	k.seen[key] = true
	return true
}

// done drops one reference and reports whether it was the last.
func (k *keyRefs) done(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.refs[key]--
	return k.refs[key] == 0
}

func (t *Translator) release(key string) {
	if t.deps.InFlight != nil {
		t.deps.InFlight.Delete(key)
	}
}

func contextSuffix(c *translation.Context) string {
	if c == nil {
		return ""
	}
	return " for " + c.Host + c.Pathname
}
