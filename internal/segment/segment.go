package segment

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Kind tells where a segment's content lives in the page.
type Kind string

const (
	KindText Kind = "text"
	KindAttr Kind = "attr"
	KindHTML Kind = "html"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindText, KindAttr, KindHTML:
		return k, nil
	default:
		return "", fmt.Errorf("unknown segment kind %q", s)
	}
}

// Segment is a hashed unit of translatable content. Attr names the attribute
// for KindAttr segments.
type Segment struct {
	Hash         string `json:"hash"`
	Kind         Kind   `json:"kind"`
	Content      string `json:"content"`
	Attr         string `json:"attr,omitempty"`
	ShowSkeleton bool   `json:"showSkeleton,omitempty"`
}

type identity struct {
	hash string
	kind Kind
	attr string
}

func (s Segment) identity() identity {
	id := identity{hash: s.Hash, kind: s.Kind}
	if s.Kind == KindAttr {
		id.attr = s.Attr
	}
	return id
}

// DedupePending keeps the first segment of every (hash, kind, attr) identity
// in input order. Attr only counts for attribute segments; content and
// skeleton flags are ignored.
func DedupePending(pending []Segment) []Segment {
	out := make([]Segment, 0, len(pending))
	seen := make(map[identity]struct{}, len(pending))

	for _, s := range pending {
		id := s.identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, s)
	}

	return out
}

// HashText returns the content hash used for segment identity and cache keys:
// the first 16 bytes of the BLAKE3 digest, hex encoded.
func HashText(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}

// Hashes returns HashText of every segment's content, in order.
func Hashes(segments []Segment) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = HashText(s.Content)
	}
	return out
}
