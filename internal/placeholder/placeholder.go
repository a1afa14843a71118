package placeholder

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Category identifies the marker family a replacement belongs to.
type Category string

const (
	// Void markers stand in for a whole tag with no translatable content.
	Void Category = "void"
	// Paired markers wrap the content of a generic inline element.
	Paired Category = "paired"
	// Anchor markers wrap the content of a link.
	Anchor Category = "anchor"
)

func (c Category) prefix() string {
	switch c {
	case Void:
		return "HV"
	case Anchor:
		return "HA"
	default:
		return "HE"
	}
}

// Replacement records the markup that a marker stands in for.
type Replacement struct {
	Category Category `json:"category"`
	Index    int      `json:"index"`
	Open     string   `json:"open"`
	Close    string   `json:"close,omitempty"`
}

// Marker returns the opening marker, e.g. "[HV1]" or "[HA2]".
func (r Replacement) Marker() string {
	return fmt.Sprintf("[%s%d]", r.Category.prefix(), r.Index)
}

// EndMarker returns the closing marker, or "" for void replacements.
func (r Replacement) EndMarker() string {
	if r.Category == Void {
		return ""
	}
	return fmt.Sprintf("[/%s%d]", r.Category.prefix(), r.Index)
}

// Result is the encoded form of an HTML fragment.
type Result struct {
	Text         string        `json:"text"`
	Replacements []Replacement `json:"replacements"`
}

// voidElements never have content or an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

type nodeKind int

const (
	textNode nodeKind = iota
	elementNode
	rawNode
)

type node struct {
	kind     nodeKind
	name     string
	raw      string
	end      string
	void     bool
	children []*node
}

// HTMLToPlaceholders encodes an HTML fragment. Markers are numbered per
// category in document order of their start tags, starting at 1.
func HTMLToPlaceholders(fragment string) Result {
	nodes := parse(fragment)

	type step struct {
		n      *node
		marker string
	}

	var (
		b            strings.Builder
		replacements []Replacement
		counters     = map[Category]int{}
	)

	stack := make([]step, 0, len(nodes))
	pushChildren := func(children []*node) {
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, step{n: children[i]})
		}
	}
	pushChildren(nodes)

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if s.n == nil {
			b.WriteString(s.marker)
			continue
		}

		switch s.n.kind {
		case textNode:
			b.WriteString(s.n.raw)
		case rawNode:
			counters[Void]++
			r := Replacement{Category: Void, Index: counters[Void], Open: s.n.raw}
			replacements = append(replacements, r)
			b.WriteString(r.Marker())
		case elementNode:
			category, space := classify(s.n)
			counters[category]++
			r := Replacement{
				Category: category,
				Index:    counters[category],
				Open:     s.n.raw,
				Close:    s.n.end,
			}
			replacements = append(replacements, r)
			b.WriteString(r.Marker())

			if category == Void {
				if space {
					b.WriteByte(' ')
				}
				continue
			}

			stack = append(stack, step{marker: r.EndMarker()})
			pushChildren(s.n.children)
		}
	}

	return Result{Text: b.String(), Replacements: replacements}
}

// PlaceholdersToHTML rebuilds markup from encoded text. Markers that have no
// matching replacement are left as they are.
func PlaceholdersToHTML(text string, replacements []Replacement) string {
	if len(replacements) == 0 {
		return text
	}

	pairs := make([]string, 0, len(replacements)*4)
	for _, r := range replacements {
		if r.Category == Void {
			pairs = append(pairs, r.Marker(), r.Open+r.Close)
			continue
		}
		pairs = append(pairs, r.Marker(), r.Open, r.EndMarker(), r.Close)
	}

	return strings.NewReplacer(pairs...).Replace(text)
}

// classify decides the marker category of an element and whether a single
// space has to follow its void marker.
func classify(n *node) (Category, bool) {
	if n.void || len(n.children) == 0 {
		return Void, false
	}
	if whitespaceOnly(n.children) {
		return Void, true
	}
	if n.name == "a" {
		return Anchor, false
	}
	return Paired, false
}

func whitespaceOnly(children []*node) bool {
	for _, c := range children {
		if c.kind != textNode || strings.Trim(c.raw, " \t\n\r\f") != "" {
			return false
		}
	}
	return true
}

// parse builds the fragment tree. Raw token bytes are kept so attributes,
// entities and tag case survive the round trip unchanged.
func parse(fragment string) []*node {
	root := &node{kind: elementNode}
	stack := []*node{root}

	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		// Raw must be copied before TagName, which lower-cases in place.
		raw := string(z.Raw())
		top := stack[len(stack)-1]

		switch tt {
		case html.TextToken:
			top.children = append(top.children, &node{kind: textNode, raw: raw})

		case html.StartTagToken:
			name, _ := z.TagName()
			n := &node{kind: elementNode, name: string(name), raw: raw}
			top.children = append(top.children, n)
			if voidElements[n.name] {
				n.void = true
				continue
			}
			stack = append(stack, n)

		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			top.children = append(top.children, &node{
				kind: elementNode,
				name: string(name),
				raw:  raw,
				void: true,
			})

		case html.EndTagToken:
			name, _ := z.TagName()
			i := openElement(stack, string(name))
			if i < 0 {
				top.children = append(top.children, &node{kind: rawNode, raw: raw})
				continue
			}
			stack[i].end = raw
			stack = stack[:i]

		default:
			top.children = append(top.children, &node{kind: rawNode, raw: raw})
		}
	}

	return root.children
}

// openElement returns the stack position of the innermost open element with
// the given name, or -1. The root sentinel at position 0 never matches.
func openElement(stack []*node, name string) int {
	for i := len(stack) - 1; i > 0; i-- {
		if stack[i].name == name {
			return i
		}
	}
	return -1
}
