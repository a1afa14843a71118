package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"codeberg.org/snonux/transproxy/internal/usage"
)

// RecordUsage appends records to the usage ledger.
func (s *Store) RecordUsage(ctx context.Context, records []usage.Record) error {
	if len(records) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		created := now()
		q := s.SQ.Insert("llm_usage").
			Columns("site_id", "feature", "prompt_tokens", "completion_tokens", "cost", "api_calls", "created_at")
		for _, r := range records {
			q = q.Values(r.SiteID, string(r.Feature), r.PromptTokens, r.CompletionTokens, r.Cost, r.APICalls, created)
		}
		sqlStr, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build usage insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("insert usage: %w", err)
		}
		return nil
	})
}

// UsageTotals sums the ledger for a site, one record per feature.
func (s *Store) UsageTotals(ctx context.Context, siteID int64) ([]usage.Record, error) {
	sqlStr, args, err := s.SQ.Select(
		"site_id",
		"feature",
		"COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens",
		"COALESCE(SUM(completion_tokens), 0) AS completion_tokens",
		"COALESCE(SUM(cost), 0) AS cost",
		"COALESCE(SUM(api_calls), 0) AS api_calls",
	).
		From("llm_usage").
		Where(sq.Eq{"site_id": siteID}).
		GroupBy("site_id", "feature").
		OrderBy("feature").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build usage totals: %w", err)
	}

	var out []usage.Record
	if err := s.DB.SelectContext(ctx, &out, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("usage totals: %w", err)
	}
	return out, nil
}
