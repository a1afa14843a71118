package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"codeberg.org/snonux/transproxy/internal/archive"
	"codeberg.org/snonux/transproxy/internal/background"
	"codeberg.org/snonux/transproxy/internal/batch"
	"codeberg.org/snonux/transproxy/internal/cli"
	"codeberg.org/snonux/transproxy/internal/inflight"
	"codeberg.org/snonux/transproxy/internal/logging"
	"codeberg.org/snonux/transproxy/internal/models"
	"codeberg.org/snonux/transproxy/internal/placeholder"
	"codeberg.org/snonux/transproxy/internal/segment"
	"codeberg.org/snonux/transproxy/internal/skipword"
	"codeberg.org/snonux/transproxy/internal/store"
	"codeberg.org/snonux/transproxy/internal/translation"
	"codeberg.org/snonux/transproxy/internal/usage"
)

var (
	errNoTargetLang       = errors.New("target language not set, use --to")
	errNothingToTranslate = errors.New("nothing to translate, pass texts or --batch")
)

// Processor runs the CLI commands
type Processor struct {
	flags     *cli.Flags
	completer translation.Completer
	out       io.Writer
	logger    *slog.Logger
	inflight  *inflight.Store

	cache *store.Store
}

// Option configures a Processor.
type Option func(*Processor)

// WithCompleter replaces the provider selected by the flags.
func WithCompleter(c translation.Completer) Option {
	return func(p *Processor) { p.completer = c }
}

// WithOutput redirects user-facing output, which defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Processor) { p.out = w }
}

// WithLogger sets the logger passed to the translators.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor creates a new processor. The cache database is opened on
// first use.
func NewProcessor(flags *cli.Flags, opts ...Option) (*Processor, error) {
	p := &Processor{
		flags:    flags,
		out:      os.Stdout,
		inflight: inflight.NewStore(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.Or(p.logger)

	if p.completer == nil {
		c, err := translation.NewCompleter(flags.Provider, flags.BaseURL, nil)
		if err != nil {
			return nil, err
		}
		p.completer = c
	}

	return p, nil
}

// Close closes the cache database if it was opened.
func (p *Processor) Close() error {
	if p.cache == nil {
		return nil
	}
	err := p.cache.Close()
	p.cache = nil
	return err
}

func (p *Processor) store() (*store.Store, error) {
	if p.cache != nil {
		return p.cache, nil
	}
	s, err := store.Open(p.flags.Database)
	if err != nil {
		return nil, err
	}
	p.cache = s
	return s, nil
}

func (p *Processor) newTranslator() *translation.Translator {
	config := translation.DefaultConfig()
	config.Model = p.flags.Model
	config.Timeout = p.flags.Timeout
	config.Logger = p.logger
	return translation.NewTranslator(p.completer, config)
}

func (p *Processor) apiKey() (string, error) {
	key := cli.GetAPIKey(p.flags.Provider)
	if key == "" {
		return "", fmt.Errorf("%w: set the provider's API key environment variable or translation.api_key in .transproxy.yaml", translation.ErrMissingAPIKey)
	}
	return key, nil
}

func (p *Processor) pageContext() *translation.Context {
	if p.flags.Host == "" && p.flags.Pathname == "" {
		return nil
	}
	return &translation.Context{Host: p.flags.Host, Pathname: p.flags.Pathname}
}

// Encode prints the placeholder form of an HTML fragment as JSON
func (p *Processor) Encode(fragment string) error {
	data, err := json.MarshalIndent(placeholder.HTMLToPlaceholders(fragment), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(p.out, string(data))
	return nil
}

// Decode rebuilds HTML from placeholder text using the replacements file
// written by Encode
func (p *Processor) Decode(text string) error {
	data, err := os.ReadFile(p.flags.ReplacementsFile)
	if err != nil {
		return fmt.Errorf("failed to read replacements file: %w", err)
	}

	var encoded placeholder.Result
	if err := json.Unmarshal(data, &encoded); err != nil {
		return fmt.Errorf("failed to parse replacements file: %w", err)
	}

	fmt.Fprintln(p.out, placeholder.PlaceholdersToHTML(text, encoded.Replacements))
	return nil
}

// Translate translates texts, or the items of the batch file, and caches the
// results. Items already in the cache are not sent to the provider.
func (p *Processor) Translate(ctx context.Context, texts []string) error {
	if p.flags.TargetLang == "" {
		return errNoTargetLang
	}
	style, err := translation.ParseStyle(p.flags.Style)
	if err != nil {
		return err
	}

	items, err := p.collectItems(texts)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errNothingToTranslate
	}

	cache, err := p.store()
	if err != nil {
		return err
	}

	originals := make([]string, len(items))
	for i, it := range items {
		originals[i] = it.Text
	}
	cached, err := cache.GetTranslations(ctx, p.flags.SiteID, p.flags.TargetLang, originals)
	if err != nil {
		return err
	}

	var (
		pending []translation.Item
		masks   [][]skipword.Replacement
		index   []int
	)
	for i, it := range items {
		if _, ok := cached[it.Text]; ok {
			continue
		}
		masked, reps := skipword.Replace(it.Text, p.flags.SkipWords)
		pending = append(pending, translation.Item{Text: masked, Type: it.Type})
		masks = append(masks, reps)
		index = append(index, i)
	}

	results := make([]string, len(items))
	for i, it := range items {
		results[i] = cached[it.Text]
	}

	var (
		res       translation.BatchResult
		toCache []store.TranslationItem
		failed  int
	)
	if len(pending) > 0 {
		apiKey, err := p.apiKey()
		if err != nil {
			return err
		}

		res = p.newTranslator().TranslateBatch(ctx, pending, p.flags.SourceLang, p.flags.TargetLang, apiKey, style, p.pageContext())

		for j, translated := range res.Translations {
			item := items[index[j]]
			restored := skipword.Restore(translated, masks[j])
			results[index[j]] = restored

			if !res.Succeeded[j] {
				failed++
				continue
			}
			kind := store.KindText
			if item.Type == translation.Pathname {
				kind = store.KindPath
			}
			toCache = append(toCache, store.TranslationItem{Original: item.Text, Translated: restored, Kind: kind})
		}

		if _, err := cache.UpsertTranslations(ctx, p.flags.SiteID, p.flags.TargetLang, toCache); err != nil {
			return err
		}

		if res.APICallCount > 0 {
			rec := usage.Record{
				SiteID:           p.flags.SiteID,
				Feature:          usage.BatchTranslation,
				PromptTokens:     res.TotalUsage.PromptTokens,
				CompletionTokens: res.TotalUsage.CompletionTokens,
				Cost:             res.TotalUsage.Cost,
				APICalls:         res.APICallCount,
			}
			if err := cache.RecordUsage(ctx, []usage.Record{rec}); err != nil {
				return err
			}
		}
	}

	for i, it := range items {
		fmt.Fprintf(p.out, "%s => %s\n", it.Text, results[i])
	}

	// Print summary
	fmt.Fprintf(p.out, "\n=== Translation Summary ===\n")
	fmt.Fprintf(p.out, "Total items: %d\n", len(items))
	fmt.Fprintf(p.out, "From cache: %d\n", len(items)-len(pending))
	fmt.Fprintf(p.out, "Translated: %d\n", len(toCache))
	if failed > 0 {
		fmt.Fprintf(p.out, "Failed (kept original, not cached): %d\n", failed)
	}
	if res.APICallCount > 0 {
		fmt.Fprintf(p.out, "API calls: %d\n", res.APICallCount)
		fmt.Fprintf(p.out, "Tokens: %d prompt, %d completion\n", res.TotalUsage.PromptTokens, res.TotalUsage.CompletionTokens)
		fmt.Fprintf(p.out, "Cost: $%.6f\n", res.TotalUsage.Cost)
	}
	fmt.Fprintf(p.out, "===========================\n")

	return nil
}

func (p *Processor) collectItems(texts []string) ([]translation.Item, error) {
	var items []translation.Item
	if p.flags.BatchFile != "" {
		fromFile, err := batch.ReadBatchFile(p.flags.BatchFile)
		if err != nil {
			return nil, err
		}
		items = append(items, fromFile...)
	}

	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		itemType := translation.Segment
		if strings.HasPrefix(text, "/") {
			itemType = translation.Pathname
		}
		items = append(items, translation.Item{Text: text, Type: itemType})
	}
	return items, nil
}

// Segments translates the pending segments of a JSON file in the background
// and waits for the run to finish. Cached segments and segments another run
// already holds are skipped.
func (p *Processor) Segments(ctx context.Context, filename string) error {
	if p.flags.TargetLang == "" {
		return errNoTargetLang
	}

	segments, err := batch.ReadSegmentsFile(filename)
	if err != nil {
		return err
	}

	for i := range segments {
		if segments[i].Hash == "" {
			segments[i].Hash = segment.HashText(segments[i].Content)
		}
	}
	unique := segment.DedupePending(segments)

	cache, err := p.store()
	if err != nil {
		return err
	}

	contents := make([]string, len(unique))
	for i, s := range unique {
		contents[i] = s.Content
	}
	cached, err := cache.GetTranslations(ctx, p.flags.SiteID, p.flags.TargetLang, contents)
	if err != nil {
		return err
	}

	var candidates []segment.Segment
	for _, s := range unique {
		if _, ok := cached[s.Content]; !ok {
			candidates = append(candidates, s)
		}
	}

	var apiKey string
	if len(candidates) > 0 {
		if apiKey, err = p.apiKey(); err != nil {
			return err
		}
	}

	var (
		pending []segment.Segment
		held    int
	)
	for _, s := range candidates {
		if !p.inflight.Insert(inflight.BuildKey(p.flags.SiteID, p.flags.TargetLang, s.Hash)) {
			held++
			continue
		}
		pending = append(pending, s)
	}

	fmt.Fprintf(p.out, "Segments: %d read, %d unique, %d cached", len(segments), len(unique), len(unique)-len(candidates))
	if held > 0 {
		fmt.Fprintf(p.out, ", %d in flight", held)
	}
	fmt.Fprintln(p.out)

	if len(pending) == 0 {
		fmt.Fprintln(p.out, "Nothing to translate")
		return nil
	}

	hashes := make([]string, len(pending))
	for i, s := range pending {
		hashes[i] = s.Hash
	}

	runner := background.New(background.Deps{
		Translator: p.newTranslator(),
		Cache:      cache,
		Ledger:     cache,
		InFlight:   p.inflight,
		Logger:     p.logger,
	})
	summary := runner.Start(ctx, background.Params{
		SiteID:     p.flags.SiteID,
		TargetLang: p.flags.TargetLang,
		SourceLang: p.flags.SourceLang,
		Segments:   pending,
		Hashes:     hashes,
		SkipWords:  p.flags.SkipWords,
		APIKey:     apiKey,
		Context:    p.pageContext(),
	})

	fmt.Fprintf(p.out, "\n=== Background Run %s ===\n", summary.RunID)
	fmt.Fprintf(p.out, "Translated: %d/%d\n", summary.Succeeded, summary.Total)
	if summary.Failed > 0 {
		fmt.Fprintf(p.out, "Failed: %d\n", summary.Failed)
	}
	fmt.Fprintf(p.out, "Tokens: %d prompt, %d completion\n", summary.Usage.PromptTokens, summary.Usage.CompletionTokens)
	fmt.Fprintf(p.out, "Cost: $%.6f\n", summary.Usage.Cost)

	return nil
}

// Lookup prints the cached translation of every text
func (p *Processor) Lookup(ctx context.Context, texts []string) error {
	if p.flags.TargetLang == "" {
		return errNoTargetLang
	}

	cache, err := p.store()
	if err != nil {
		return err
	}

	found, err := cache.GetTranslations(ctx, p.flags.SiteID, p.flags.TargetLang, texts)
	if err != nil {
		return err
	}

	for _, text := range texts {
		if translated, ok := found[text]; ok {
			fmt.Fprintf(p.out, "%s => %s\n", text, translated)
			continue
		}
		fmt.Fprintf(p.out, "%s (not cached)\n", text)
	}
	return nil
}

// Usage prints the usage ledger totals of the site
func (p *Processor) Usage(ctx context.Context) error {
	cache, err := p.store()
	if err != nil {
		return err
	}

	totals, err := cache.UsageTotals(ctx, p.flags.SiteID)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "LLM usage for site %d:\n", p.flags.SiteID)
	if len(totals) == 0 {
		fmt.Fprintln(p.out, "  No usage recorded")
		return nil
	}

	var sum usage.Usage
	calls := 0
	for _, rec := range totals {
		fmt.Fprintf(p.out, "  %-20s calls=%d prompt=%d completion=%d cost=$%.6f\n",
			rec.Feature, rec.APICalls, rec.PromptTokens, rec.CompletionTokens, rec.Cost)
		sum = sum.Add(rec.Usage())
		calls += rec.APICalls
	}
	fmt.Fprintf(p.out, "  %-20s calls=%d prompt=%d completion=%d cost=$%.6f\n",
		"total", calls, sum.PromptTokens, sum.CompletionTokens, sum.Cost)
	return nil
}

// Models lists the models the configured provider offers for its API key
func (p *Processor) Models(ctx context.Context) error {
	lister, err := models.NewListerFor(p.flags.Provider, cli.GetAPIKey(p.flags.Provider), p.flags.BaseURL)
	if err != nil {
		return err
	}
	return lister.ListAvailableModels(ctx, p.out)
}

// Archive moves the cache database into the archive directory
func (p *Processor) Archive() error {
	if err := p.Close(); err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}

	archived, err := archive.ArchiveDatabase(p.flags.Database)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "Cache database archived to: %s\n", archived)
	return nil
}
