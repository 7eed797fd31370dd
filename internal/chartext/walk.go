package chartext

import (
	"fmt"
	stdhtml "html"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Position locates one logical character inside the canonical
// serialization. Start/End delimit the character's raw encoding, which may
// be longer than the character itself when the source uses an entity
// reference. Block identifies the nearest enclosing block element; two
// characters with different block ids must never share a carrier.
type Position struct {
	Start int
	End   int
	Block int
}

// Stream is the logical-character view of a document. All byte offsets in
// Pos refer to Doc, the canonical serialization produced by Walk.
type Stream struct {
	Doc   string
	Runes []rune
	Pos   []Position
}

// Len returns the number of logical characters.
func (s *Stream) Len() int { return len(s.Runes) }

// Slice returns the logical text in [start, end).
func (s *Stream) Slice(start, end int) string { return string(s.Runes[start:end]) }

// blockElements insert an implicit boundary when entered or left, so
// inter-block whitespace is never counted.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"caption": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "tbody": true,
	"td": true, "tfoot": true, "th": true, "thead": true, "tr": true,
	"ul": true,
}

// strippedElements contribute no characters and are not descended into.
var strippedElements = map[string]bool{
	"head": true, "iframe": true, "noscript": true, "object": true,
	"script": true, "style": true, "template": true, "title": true,
}

// voidBoundaryElements are childless elements that still separate text the
// way a block does.
var voidBoundaryElements = map[string]bool{"hr": true}

// maxEntityRef bounds the lookahead for an entity's closing semicolon; the
// longest named reference is well under this.
const maxEntityRef = 48

// Walk parses htmlContent, serializes it canonically, and derives the
// logical character stream with its position map in one linear pass over
// the serialization. The input is never mutated; parse-and-render leaves
// the logical stream unchanged, so indices recorded against the original
// document stay valid.
func Walk(htmlContent string) (*Stream, error) {
	doc, fragment, err := parseDocument(htmlContent)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	serialized, err := renderDocument(doc, fragment)
	if err != nil {
		return nil, fmt.Errorf("serializing document: %w", err)
	}

	w := walker{stream: &Stream{Doc: serialized}, atBoundary: true}
	w.run(serialized)
	return w.stream, nil
}

// parseDocument parses HTML content, handling both full documents and
// fragments. Fragments are parsed with a body context to avoid the parser
// wrapping them in <html><body>.
func parseDocument(content string) (*html.Node, bool, error) {
	trimmed := strings.ToLower(strings.TrimSpace(content))
	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, true, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, true, nil
}

// renderDocument renders the parsed tree back to a string. For fragments,
// only the children are rendered to avoid adding a document wrapper.
func renderDocument(doc *html.Node, fragment bool) (string, error) {
	var buf strings.Builder
	if fragment {
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// walker accumulates the stream during one tokenizer pass.
type walker struct {
	stream     *Stream
	blockStack []int
	blockSeq   int
	stripDepth int

	// Whitespace collapse state. atBoundary suppresses whitespace outright
	// (block edges, after a line break); pendingSpace defers a collapsed
	// run until the next visible character.
	atBoundary   bool
	pendingSpace bool
	pendingPos   Position
}

func (w *walker) run(serialized string) {
	z := html.NewTokenizer(strings.NewReader(serialized))
	offset := 0
	for {
		tt := z.Next()
		raw := z.Raw()
		start := offset
		offset += len(raw)

		switch tt {
		case html.ErrorToken:
			// Tokenizing our own serialization only ends at EOF.
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			w.openTag(string(name), tt == html.SelfClosingTagToken, start, offset)
		case html.EndTagToken:
			name, _ := z.TagName()
			w.closeTag(string(name))
		case html.TextToken:
			if w.stripDepth == 0 {
				w.text(string(raw), start)
			}
		}
	}
}

func (w *walker) openTag(name string, selfClosing bool, start, end int) {
	switch {
	case name == "br":
		if w.stripDepth > 0 {
			return
		}
		// A line break swallows adjacent whitespace on both sides.
		w.boundary()
		w.emit('\n', Position{Start: start, End: end, Block: w.block()})
		w.boundary()
	case strippedElements[name]:
		if !selfClosing {
			w.stripDepth++
		}
	case voidBoundaryElements[name]:
		w.boundary()
	case blockElements[name]:
		w.blockSeq++
		w.blockStack = append(w.blockStack, w.blockSeq)
		w.boundary()
	}
}

func (w *walker) closeTag(name string) {
	switch {
	case strippedElements[name]:
		if w.stripDepth > 0 {
			w.stripDepth--
		}
	case blockElements[name]:
		if len(w.blockStack) > 0 {
			w.blockStack = w.blockStack[:len(w.blockStack)-1]
		}
		w.boundary()
	}
}

// text consumes one raw text token, decoding entity references so each
// logical character keeps the byte span of its variable-length encoding.
func (w *walker) text(raw string, base int) {
	i := 0
	for i < len(raw) {
		if raw[i] == '&' {
			if decoded, refLen, ok := decodeEntity(raw[i:]); ok {
				pos := Position{Start: base + i, End: base + i + refLen, Block: w.block()}
				for _, r := range decoded {
					w.character(r, pos)
				}
				i += refLen
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(raw[i:])
		w.character(r, Position{Start: base + i, End: base + i + size, Block: w.block()})
		i += size
	}
}

// character feeds one decoded rune through whitespace collapse.
func (w *walker) character(r rune, pos Position) {
	if isCollapsible(r) {
		if !w.atBoundary && !w.pendingSpace {
			w.pendingSpace = true
			w.pendingPos = pos
		}
		return
	}
	if w.pendingSpace {
		w.emit(' ', w.pendingPos)
		w.pendingSpace = false
	}
	w.emit(r, pos)
}

func (w *walker) emit(r rune, pos Position) {
	w.stream.Runes = append(w.stream.Runes, r)
	w.stream.Pos = append(w.stream.Pos, pos)
	w.atBoundary = false
}

func (w *walker) boundary() {
	w.atBoundary = true
	w.pendingSpace = false
}

func (w *walker) block() int {
	if len(w.blockStack) == 0 {
		return 0
	}
	return w.blockStack[len(w.blockStack)-1]
}

// decodeEntity decodes a single leading entity reference. It returns the
// decoded runes (almost always one; a few named references expand to
// more), the raw byte length of the reference, and whether the prefix was
// a reference at all.
func decodeEntity(s string) ([]rune, int, bool) {
	limit := len(s)
	if limit > maxEntityRef {
		limit = maxEntityRef
	}
	end := strings.IndexByte(s[:limit], ';')
	if end <= 0 {
		return nil, 0, false
	}
	candidate := s[:end+1]
	decoded := stdhtml.UnescapeString(candidate)
	if decoded == candidate {
		return nil, 0, false
	}
	return []rune(decoded), end + 1, true
}

// isCollapsible reports whether r belongs to a collapsible whitespace run.
// Non-breaking space collapses like any other whitespace.
func isCollapsible(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v', '\u00a0':
		return true
	}
	return false
}
