// Package ingest decodes the collaborative app's export blobs and renders
// Markdown transcripts into HTML so either form can enter the export
// pipeline. Blobs carry more than this pipeline needs, so field extraction
// is tolerant of extras but strict about the fields exports depend on.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/tidwall/gjson"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Sentinel errors for ingestion failures.
var (
	ErrBadExport    = errors.New("malformed export blob")
	ErrEmptyContent = errors.New("transcript content cannot be empty")
)

// Export is the decoded form of one export blob.
type Export struct {
	HTML       string
	Highlights []Highlight
	Citations  map[int]string // logical start index -> reference label
}

// Highlight mirrors one annotation record from the blob. Records keep
// their blob order; the exporter assigns stacking indices from it.
type Highlight struct {
	Start     int
	End       int
	Tag       string
	Author    string
	CreatedAt string
	Comments  []string
}

// Decode extracts the document and its annotation records from a JSON
// export blob.
func Decode(blob []byte) (*Export, error) {
	if !gjson.ValidBytes(blob) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrBadExport)
	}
	root := gjson.ParseBytes(blob)

	doc := root.Get("document.html")
	if !doc.Exists() {
		return nil, fmt.Errorf("%w: missing document.html", ErrBadExport)
	}

	ex := &Export{HTML: doc.String(), Citations: map[int]string{}}
	if err := decodeRecords(root, ex); err != nil {
		return nil, err
	}
	return ex, nil
}

// DecodeAnnotations reads a sidecar blob carrying only annotation records
// and citations, for documents supplied as standalone HTML or Markdown.
func DecodeAnnotations(blob []byte) (*Export, error) {
	if !gjson.ValidBytes(blob) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrBadExport)
	}
	ex := &Export{Citations: map[int]string{}}
	if err := decodeRecords(gjson.ParseBytes(blob), ex); err != nil {
		return nil, err
	}
	return ex, nil
}

func decodeRecords(root gjson.Result, ex *Export) error {
	var recErr error
	root.Get("annotations").ForEach(func(_, a gjson.Result) bool {
		start, end := a.Get("start"), a.Get("end")
		if !start.Exists() || !end.Exists() {
			recErr = fmt.Errorf("%w: annotation %d missing start/end", ErrBadExport, len(ex.Highlights))
			return false
		}
		hl := Highlight{
			Start:     int(start.Int()),
			End:       int(end.Int()),
			Tag:       a.Get("tag").String(),
			Author:    a.Get("author").String(),
			CreatedAt: a.Get("createdAt").String(),
		}
		a.Get("comments").ForEach(func(_, c gjson.Result) bool {
			hl.Comments = append(hl.Comments, c.String())
			return true
		})
		ex.Highlights = append(ex.Highlights, hl)
		return true
	})
	if recErr != nil {
		return recErr
	}

	root.Get("citations").ForEach(func(k, v gjson.Result) bool {
		if idx, err := strconv.Atoi(k.String()); err == nil {
			ex.Citations[idx] = v.String()
		}
		return true
	})

	return nil
}

// htmlTemplate wraps goldmark's fragment output in a complete HTML5
// document, matching what the collaborative editor stores.
const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Transcript</title>
</head>
<body>
%s
</body>
</html>`

// markdown is the shared transcript renderer: GFM for the tables and task
// lists common in chat transcripts, footnotes, and class-based syntax
// highlighting for code blocks.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Footnote,
		highlighting.NewHighlighting(
			highlighting.WithFormatOptions(
				chromahtml.WithClasses(true),
			),
		),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithXHTML(),
	),
)

// FromMarkdown renders a Markdown transcript to HTML so it can enter the
// export pipeline like any other document.
func FromMarkdown(content string) (string, error) {
	if content == "" {
		return "", ErrEmptyContent
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("rendering transcript: %w", err)
	}
	return fmt.Sprintf(htmlTemplate, buf.String()), nil
}
