package annotex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/MQFacultyOfArts/annotex/internal/carrier"
	"github.com/MQFacultyOfArts/annotex/internal/chartext"
	"github.com/MQFacultyOfArts/annotex/internal/pandoc"
	"github.com/MQFacultyOfArts/annotex/internal/region"
	"github.com/MQFacultyOfArts/annotex/internal/texc"
	"github.com/MQFacultyOfArts/annotex/internal/texdoc"
	"github.com/MQFacultyOfArts/annotex/internal/texfilter"
)

// latexConverter abstracts the external HTML-to-LaTeX converter.
type latexConverter interface {
	ToLaTeX(ctx context.Context, htmlContent, filterPath string) (string, error)
}

// texCompiler abstracts the external LaTeX engine.
type texCompiler interface {
	Compile(ctx context.Context, texSource string) (*texc.Result, error)
}

// Compile-time interface implementation checks.
var (
	_ latexConverter = (*pandoc.Converter)(nil)
	_ texCompiler    = (*texc.Compiler)(nil)
)

// Exporter runs the annotation-to-PDF export pipeline. Create with
// NewExporter; an Exporter is safe for concurrent use because each Export
// call derives, uses, and discards all intermediate state.
type Exporter struct {
	cfg       exporterConfig
	palette   Palette
	converter latexConverter
	compiler  texCompiler
}

// NewExporter creates an Exporter over a read-only tag palette.
// The embedded rendering filter is compile-checked here, once, so a
// packaging defect fails construction rather than the first export.
func NewExporter(palette Palette, opts ...Option) (*Exporter, error) {
	if len(palette) == 0 {
		return nil, ErrNoPalette
	}
	if err := texfilter.Check(); err != nil {
		return nil, err
	}

	e := &Exporter{
		cfg:     exporterConfig{timeout: defaultTimeout},
		palette: palette,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.converter == nil {
		e.converter = pandoc.New(e.cfg.pandocPath)
	}
	if e.compiler == nil {
		c := texc.New(e.cfg.latexPath)
		c.KeepScratch = e.cfg.keepScratch
		e.compiler = c
	}
	return e, nil
}

// Export runs one invocation: index the document, resolve regions, emit
// carriers, convert through pandoc with the rendering filter, assemble the
// document, compile, and verify. No failure is auto-retried; each is
// surfaced with the stage and any external-tool diagnostics attached.
func (e *Exporter) Export(ctx context.Context, input Input) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.timeout)
	defer cancel()

	stream, err := chartext.Walk(input.HTML)
	if err != nil {
		return nil, fmt.Errorf("indexing document: %w", err)
	}
	if stream.Len() == 0 && len(input.Highlights) > 0 {
		// A silent blank export would hide a caller bug.
		return nil, fmt.Errorf("%w: %d highlights over an empty document", ErrEmptyDocument, len(input.Highlights))
	}

	spans := make([]region.Span, len(input.Highlights))
	for i, hl := range input.Highlights {
		spans[i] = region.Span{Index: hl.Index, Start: hl.Start, End: hl.End}
	}
	regions, err := region.Resolve(stream.Len(), spans)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHighlight, err)
	}

	annotated, err := carrier.Emit(stream, regions, toCarrierHighlights(input.Highlights), carrier.Options{
		Colors:    e.tagColorNames(),
		Citations: citationLookup(input.Citations),
	})
	if err != nil {
		if errors.Is(err, carrier.ErrUnknownTag) {
			return nil, fmt.Errorf("%w: %v", ErrUnknownTag, err)
		}
		return nil, fmt.Errorf("emitting carriers: %w", err)
	}

	filterDir, err := os.MkdirTemp("", "annotex-filter-")
	if err != nil {
		return nil, fmt.Errorf("creating filter directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(filterDir) }()

	filterPath, err := texfilter.Install(filterDir)
	if err != nil {
		return nil, err
	}

	body, err := e.converter.ToLaTeX(ctx, annotated, filterPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConvertFailed, err)
	}

	texSource := texdoc.Assemble(body, e.colorDefinitions())
	res := &Result{TeX: []byte(texSource)}
	if input.TeXOnly {
		return res, nil
	}

	compiled, err := e.compiler.Compile(ctx, texSource)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	res.PDF = compiled.PDF
	res.Log = compiled.Log
	res.Scratch = compiled.Scratch
	return res, nil
}

// CompilerLog extracts the preserved engine log from an export error, or
// nil if the failure happened before or outside compilation.
func CompilerLog(err error) []byte {
	var cerr *texc.CompileError
	if errors.As(err, &cerr) {
		return cerr.Log
	}
	return nil
}

// tagColorNames maps each configured tag to its colour name.
func (e *Exporter) tagColorNames() map[string]string {
	out := make(map[string]string, len(e.palette))
	for tag, c := range e.palette {
		out[tag] = c.Name
	}
	return out
}

// colorDefinitions returns the palette's distinct colours ordered by name,
// so the preamble is byte-identical across runs.
func (e *Exporter) colorDefinitions() []texdoc.Color {
	byName := make(map[string]texdoc.Color, len(e.palette))
	for _, c := range e.palette {
		byName[c.Name] = texdoc.Color{Name: c.Name, Light: c.Light, Dark: c.Dark}
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]texdoc.Color, len(names))
	for i, name := range names {
		out[i] = byName[name]
	}
	return out
}

func toCarrierHighlights(hls []Highlight) []carrier.Highlight {
	out := make([]carrier.Highlight, len(hls))
	for i, hl := range hls {
		out[i] = carrier.Highlight{
			Index:    hl.Index,
			Start:    hl.Start,
			End:      hl.End,
			Tag:      hl.Tag,
			Author:   hl.Author,
			Comments: hl.Comments,
		}
	}
	return out
}

func citationLookup(citations map[int]string) func(int) (string, bool) {
	if len(citations) == 0 {
		return nil
	}
	return func(start int) (string, bool) {
		label, ok := citations[start]
		return label, ok
	}
}
