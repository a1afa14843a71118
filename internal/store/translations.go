package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"codeberg.org/snonux/transproxy/internal/segment"
)

// Kind values stored with a cached translation.
const (
	KindText = "text"
	KindAttr = "attr"
	KindPath = "path"
)

// insertChunk bounds the rows per INSERT so the bind count stays far below
// SQLite's variable limit.
const insertChunk = 500

// TranslationItem is one (original, translated) pair to cache.
type TranslationItem struct {
	Original   string `db:"original_text"`
	Translated string `db:"translated_text"`
	Kind       string `db:"kind"`
}

// KindOf maps a segment kind to the cache kind. HTML blocks are cached as text.
func KindOf(k segment.Kind) string {
	if k == segment.KindAttr {
		return KindAttr
	}
	return KindText
}

// UpsertTranslations caches items for a site and language. Items are
// deduplicated by original text with the last one winning, and rows that
// already exist are left untouched. It returns the number of new rows.
func (s *Store) UpsertTranslations(ctx context.Context, siteID int64, lang string, items []TranslationItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	index := make(map[string]int, len(items))
	unique := make([]TranslationItem, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.Original]; ok {
			unique[i] = it
			continue
		}
		index[it.Original] = len(unique)
		unique = append(unique, it)
	}

	inserted := 0
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		created := now()
		for start := 0; start < len(unique); start += insertChunk {
			end := min(start+insertChunk, len(unique))

			q := s.SQ.Insert("translation").
				Columns("site_id", "lang", "text_hash", "original_text", "translated_text", "kind", "created_at")
			for _, it := range unique[start:end] {
				kind := it.Kind
				if kind == "" {
					kind = KindText
				}
				q = q.Values(siteID, lang, segment.HashText(it.Original), it.Original, it.Translated, kind, created)
			}
			q = q.Suffix("ON CONFLICT(site_id, lang, text_hash) DO NOTHING")

			sqlStr, args, err := q.ToSql()
			if err != nil {
				return fmt.Errorf("build translation insert: %w", err)
			}
			res, err := tx.ExecContext(ctx, sqlStr, args...)
			if err != nil {
				return fmt.Errorf("insert translations: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("insert translations: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// GetTranslations looks up cached translations by original text. Only hits
// appear in the returned map.
func (s *Store) GetTranslations(ctx context.Context, siteID int64, lang string, texts []string) (map[string]string, error) {
	out := make(map[string]string, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	hashes := make([]string, len(texts))
	for i, t := range texts {
		hashes[i] = segment.HashText(t)
	}

	for start := 0; start < len(hashes); start += insertChunk {
		end := min(start+insertChunk, len(hashes))

		sqlStr, args, err := s.SQ.Select("original_text", "translated_text", "kind").
			From("translation").
			Where(sq.Eq{"site_id": siteID, "lang": lang, "text_hash": hashes[start:end]}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build translation lookup: %w", err)
		}

		var rows []TranslationItem
		if err := s.DB.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
			return nil, fmt.Errorf("lookup translations: %w", err)
		}
		for _, r := range rows {
			out[r.Original] = r.Translated
		}
	}
	return out, nil
}

// CountTranslations returns the number of cached rows for a site and language.
func (s *Store) CountTranslations(ctx context.Context, siteID int64, lang string) (int, error) {
	sqlStr, args, err := s.SQ.Select("COUNT(*)").
		From("translation").
		Where(sq.Eq{"site_id": siteID, "lang": lang}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build translation count: %w", err)
	}
	var n int
	if err := s.DB.GetContext(ctx, &n, sqlStr, args...); err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return n, nil
}
