package usage

import (
	"context"
	"sync"
)

// Feature tags a usage record with the pipeline stage that produced it.
type Feature string

const (
	SegmentTranslation Feature = "segment_translation"
	BatchTranslation   Feature = "batch_translation"
)

// Usage is the token and cost footprint of one or more API calls.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens" db:"completion_tokens"`
	Cost             float64 `json:"cost" db:"cost"`
}

// Clamp returns u with negative fields replaced by zero.
func (u Usage) Clamp() Usage {
	if u.PromptTokens < 0 {
		u.PromptTokens = 0
	}
	if u.CompletionTokens < 0 {
		u.CompletionTokens = 0
	}
	if u.Cost < 0 {
		u.Cost = 0
	}
	return u
}

// Add returns the sum of u and o, with o clamped first.
func (u Usage) Add(o Usage) Usage {
	o = o.Clamp()
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		Cost:             u.Cost + o.Cost,
	}
}

// IsZero reports whether u carries no tokens and no cost.
func (u Usage) IsZero() bool {
	return u == Usage{}
}

// Record is one entry in the usage ledger.
type Record struct {
	SiteID           int64   `json:"site_id" db:"site_id"`
	Feature          Feature `json:"feature" db:"feature"`
	PromptTokens     int     `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens" db:"completion_tokens"`
	Cost             float64 `json:"cost" db:"cost"`
	APICalls         int     `json:"api_calls" db:"api_calls"`
}

// Usage returns the token and cost part of the record.
func (r Record) Usage() Usage {
	return Usage{PromptTokens: r.PromptTokens, CompletionTokens: r.CompletionTokens, Cost: r.Cost}
}

// Ledger is the append-only sink for usage records.
type Ledger interface {
	RecordUsage(ctx context.Context, records []Record) error
}

// Aggregator collects usage from concurrent calls. Only successful calls
// contribute tokens and cost. The zero value is ready to use.
type Aggregator struct {
	mu        sync.Mutex
	total     Usage
	successes int
	failures  int
}

// AddSuccess adds the usage of one successful call.
func (a *Aggregator) AddSuccess(u Usage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = a.total.Add(u)
	a.successes++
}

// AddFailure counts one failed call.
func (a *Aggregator) AddFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures++
}

// Snapshot returns the summed usage and the success and failure counts.
func (a *Aggregator) Snapshot() (Usage, int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total, a.successes, a.failures
}

// Record builds the ledger entry for the collected usage. It reports false
// when no call succeeded, since there is nothing to record then.
func (a *Aggregator) Record(siteID int64, feature Feature) (Record, bool) {
	total, successes, _ := a.Snapshot()
	if successes == 0 {
		return Record{}, false
	}
	return Record{
		SiteID:           siteID,
		Feature:          feature,
		PromptTokens:     total.PromptTokens,
		CompletionTokens: total.CompletionTokens,
		Cost:             total.Cost,
		APICalls:         successes,
	}, true
}
