package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"codeberg.org/snonux/transproxy/internal/segment"
	"codeberg.org/snonux/transproxy/internal/translation"
)

// ReadBatchFile reads translation items from a file, one per line.
// Supports formats:
// - Segment text: "Click here to continue"
// - Pathname: "/about-us/team" (translated with the pathname prompt)
// - Comment: "# anything" (ignored)
// Blank lines are ignored and surrounding whitespace is trimmed.
func ReadBatchFile(filename string) ([]translation.Item, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var items []translation.Item
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		itemType := translation.Segment
		if strings.HasPrefix(line, "/") {
			itemType = translation.Pathname
		}
		items = append(items, translation.Item{Text: line, Type: itemType})
	}

	return items, nil
}

// ReadSegmentsFile reads a JSON array of pending segments. Every segment must
// carry a known kind and non-empty content.
func ReadSegmentsFile(filename string) ([]segment.Segment, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read segments file: %w", err)
	}

	var segments []segment.Segment
	if err := json.Unmarshal(content, &segments); err != nil {
		return nil, fmt.Errorf("failed to parse segments file: %w", err)
	}

	for i, s := range segments {
		if _, err := segment.ParseKind(string(s.Kind)); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		if s.Content == "" {
			return nil, fmt.Errorf("segment %d: empty content", i)
		}
		if s.Kind == segment.KindAttr && s.Attr == "" {
			return nil, fmt.Errorf("segment %d: attr segment without attribute name", i)
		}
	}

	return segments, nil
}
