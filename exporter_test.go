package annotex

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MQFacultyOfArts/annotex/internal/texc"
)

// Mock implementations for testing.

type mockConverter struct {
	called     bool
	inputHTML  string
	filterPath string
	output     string
	err        error
}

func (m *mockConverter) ToLaTeX(_ context.Context, htmlContent, filterPath string) (string, error) {
	m.called = true
	m.inputHTML = htmlContent
	m.filterPath = filterPath
	if m.err != nil {
		return "", m.err
	}
	if m.output != "" {
		return m.output, nil
	}
	return "converted body", nil
}

type mockCompiler struct {
	called   bool
	inputTeX string
	result   *texc.Result
	err      error
}

func (m *mockCompiler) Compile(_ context.Context, texSource string) (*texc.Result, error) {
	m.called = true
	m.inputTeX = texSource
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &texc.Result{PDF: []byte("%PDF-1.5 mock"), Log: []byte("engine log")}, nil
}

// Test options for dependency injection (not exported).

func withConverter(c latexConverter) Option {
	return func(e *Exporter) {
		e.converter = c
	}
}

func withCompiler(c texCompiler) Option {
	return func(e *Exporter) {
		e.compiler = c
	}
}

var testPalette = Palette{
	"claim":    {Name: "amber", Light: "FDE68A", Dark: "B45309"},
	"evidence": {Name: "teal", Light: "99F6E4", Dark: "0F766E"},
}

func newTestExporter(t *testing.T, conv *mockConverter, comp *mockCompiler, opts ...Option) *Exporter {
	t.Helper()

	opts = append(opts, withConverter(conv), withCompiler(comp))
	e, err := NewExporter(testPalette, opts...)
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}
	return e
}

func TestNewExporter_EmptyPalette(t *testing.T) {
	t.Parallel()

	if _, err := NewExporter(nil); !errors.Is(err, ErrNoPalette) {
		t.Errorf("NewExporter(nil) error = %v, want ErrNoPalette", err)
	}
}

func TestExport_FullPipeline(t *testing.T) {
	t.Parallel()

	conv := &mockConverter{output: "BODY"}
	comp := &mockCompiler{}
	e := newTestExporter(t, conv, comp)

	res, err := e.Export(context.Background(), Input{
		HTML: "<p>Hello world</p>",
		Highlights: []Highlight{
			{Index: 0, Start: 0, End: 5, Tag: "claim", Author: "ana"},
		},
	})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if !conv.called {
		t.Fatalf("converter never invoked")
	}
	// The converter must receive carrier markup, not the bare document.
	if !strings.Contains(conv.inputHTML, `data-annot="0"`) {
		t.Errorf("converter input missing carrier:\n%s", conv.inputHTML)
	}
	if !strings.Contains(conv.inputHTML, `data-annot-colors="amber"`) {
		t.Errorf("converter input missing colour list:\n%s", conv.inputHTML)
	}
	if conv.filterPath == "" {
		t.Errorf("converter invoked without a rendering filter")
	}

	if !comp.called {
		t.Fatalf("compiler never invoked")
	}
	for _, want := range []string{
		`\definecolor{annotamberlight}{HTML}{FDE68A}`,
		`\definecolor{annotmanydark}{HTML}{5A5A5A}`,
		"BODY",
		`\end{document}`,
	} {
		if !strings.Contains(comp.inputTeX, want) {
			t.Errorf("assembled document missing %q:\n%s", want, comp.inputTeX)
		}
	}

	if string(res.PDF) != "%PDF-1.5 mock" {
		t.Errorf("PDF = %q", res.PDF)
	}
	if string(res.Log) != "engine log" {
		t.Errorf("Log = %q", res.Log)
	}
	if !strings.Contains(string(res.TeX), "BODY") {
		t.Errorf("TeX = %q", res.TeX)
	}
}

func TestExport_NoHighlights(t *testing.T) {
	t.Parallel()

	conv := &mockConverter{}
	comp := &mockCompiler{}
	e := newTestExporter(t, conv, comp)

	_, err := e.Export(context.Background(), Input{HTML: "<p>Hello</p>"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if strings.Contains(conv.inputHTML, "data-annot") {
		t.Errorf("carrier emitted without highlights:\n%s", conv.inputHTML)
	}
}

func TestExport_TeXOnly(t *testing.T) {
	t.Parallel()

	conv := &mockConverter{output: "BODY"}
	comp := &mockCompiler{}
	e := newTestExporter(t, conv, comp)

	res, err := e.Export(context.Background(), Input{HTML: "<p>Hello</p>", TeXOnly: true})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if comp.called {
		t.Errorf("compiler invoked in TeX-only mode")
	}
	if len(res.TeX) == 0 || res.PDF != nil {
		t.Errorf("TeX-only result = %+v", res)
	}
}

func TestExport_EmptyDocumentWithHighlights(t *testing.T) {
	t.Parallel()

	e := newTestExporter(t, &mockConverter{}, &mockCompiler{})

	_, err := e.Export(context.Background(), Input{
		HTML:       "<p>   </p>",
		Highlights: []Highlight{{Index: 0, Start: 0, End: 1, Tag: "claim"}},
	})
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Export() error = %v, want ErrEmptyDocument", err)
	}
}

func TestExport_InvalidHighlight(t *testing.T) {
	t.Parallel()

	e := newTestExporter(t, &mockConverter{}, &mockCompiler{})

	tests := []struct {
		name string
		hl   Highlight
	}{
		{"start equals end", Highlight{Index: 0, Start: 2, End: 2, Tag: "claim"}},
		{"start after end", Highlight{Index: 0, Start: 4, End: 1, Tag: "claim"}},
		{"end beyond stream", Highlight{Index: 0, Start: 0, End: 999, Tag: "claim"}},
		{"negative start", Highlight{Index: 0, Start: -1, End: 3, Tag: "claim"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := e.Export(context.Background(), Input{
				HTML:       "<p>Hello world</p>",
				Highlights: []Highlight{tt.hl},
			})
			if !errors.Is(err, ErrInvalidHighlight) {
				t.Errorf("Export() error = %v, want ErrInvalidHighlight", err)
			}
		})
	}
}

func TestExport_UnknownTag(t *testing.T) {
	t.Parallel()

	e := newTestExporter(t, &mockConverter{}, &mockCompiler{})

	_, err := e.Export(context.Background(), Input{
		HTML:       "<p>Hello</p>",
		Highlights: []Highlight{{Index: 0, Start: 0, End: 5, Tag: "nope"}},
	})
	if !errors.Is(err, ErrUnknownTag) {
		t.Errorf("Export() error = %v, want ErrUnknownTag", err)
	}
}

func TestExport_ConverterFailure(t *testing.T) {
	t.Parallel()

	conv := &mockConverter{err: errors.New("pandoc: exit status 83")}
	comp := &mockCompiler{}
	e := newTestExporter(t, conv, comp)

	_, err := e.Export(context.Background(), Input{HTML: "<p>Hello</p>"})
	if !errors.Is(err, ErrConvertFailed) {
		t.Errorf("Export() error = %v, want ErrConvertFailed", err)
	}
	if comp.called {
		t.Errorf("compiler invoked after conversion failure")
	}
}

func TestExport_CompilerFailurePreservesLog(t *testing.T) {
	t.Parallel()

	cause := &texc.CompileError{
		Err: errors.New("LaTeX compilation failed: exit status 1"),
		Log: []byte("! Undefined control sequence."),
	}
	comp := &mockCompiler{err: cause}
	e := newTestExporter(t, &mockConverter{}, comp)

	_, err := e.Export(context.Background(), Input{HTML: "<p>Hello</p>"})
	if !errors.Is(err, ErrCompileFailed) {
		t.Fatalf("Export() error = %v, want ErrCompileFailed", err)
	}
	if got := CompilerLog(err); !strings.Contains(string(got), "Undefined control sequence") {
		t.Errorf("CompilerLog() = %q", got)
	}
}

func TestCompilerLog_NonCompileError(t *testing.T) {
	t.Parallel()

	if got := CompilerLog(errors.New("something else")); got != nil {
		t.Errorf("CompilerLog() = %q, want nil", got)
	}
	if got := CompilerLog(nil); got != nil {
		t.Errorf("CompilerLog(nil) = %q, want nil", got)
	}
}

func TestExport_CitationsReachMarginNotes(t *testing.T) {
	t.Parallel()

	conv := &mockConverter{}
	e := newTestExporter(t, conv, &mockCompiler{})

	_, err := e.Export(context.Background(), Input{
		HTML:       "<p>Hello world</p>",
		Highlights: []Highlight{{Index: 0, Start: 0, End: 5, Tag: "claim"}},
		Citations:  map[int]string{0: "14"},
	})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(conv.inputHTML, `\S14`) {
		t.Errorf("citation label missing from carrier note:\n%s", conv.inputHTML)
	}
}

func TestExport_SharedColourDefinedOnce(t *testing.T) {
	t.Parallel()

	palette := Palette{
		"claim":  {Name: "amber", Light: "FDE68A", Dark: "B45309"},
		"method": {Name: "amber", Light: "FDE68A", Dark: "B45309"},
	}
	comp := &mockCompiler{}
	e, err := NewExporter(palette, withConverter(&mockConverter{}), withCompiler(comp))
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}

	if _, err := e.Export(context.Background(), Input{HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if got := strings.Count(comp.inputTeX, "annotamberlight"); got != 1 {
		t.Errorf("shared colour defined %d times, want 1:\n%s", got, comp.inputTeX)
	}
}

func TestExport_Deterministic(t *testing.T) {
	t.Parallel()

	input := Input{
		HTML: "<p>Hello world</p>",
		Highlights: []Highlight{
			{Index: 0, Start: 0, End: 7, Tag: "claim"},
			{Index: 1, Start: 4, End: 11, Tag: "evidence"},
		},
	}

	var first string
	for i := 0; i < 3; i++ {
		conv := &mockConverter{}
		e := newTestExporter(t, conv, &mockCompiler{})
		if _, err := e.Export(context.Background(), input); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if i == 0 {
			first = conv.inputHTML
		} else if conv.inputHTML != first {
			t.Fatalf("run %d produced different carrier markup", i)
		}
	}
}

func TestWithTimeout_PanicsOnNonPositive(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Errorf("WithTimeout(0) did not panic")
		}
	}()
	WithTimeout(0)
}
