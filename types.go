package annotex

import (
	"time"
)

// Highlight is one annotation record as captured by the editing UI.
// Start and End are logical-character coordinates over the document's
// canonical stream. Index is the record's input-order position and drives
// stacking order; it is never a database id.
type Highlight struct {
	Index     int
	Start     int // inclusive
	End       int // exclusive
	Tag       string
	Author    string
	CreatedAt time.Time
	Comments  []string
}

// TagColor is one palette entry: a colour name plus its light (highlight
// background) and dark (underline, margin note) variants as RRGGBB hex.
type TagColor struct {
	Name  string
	Light string
	Dark  string
}

// Palette maps highlight tags to colours. It is the only state shared
// between concurrent exports and is treated as read-only.
type Palette map[string]TagColor

// Input carries everything one export invocation consumes. The document
// arrives free of pre-existing position artifacts; highlight coordinates
// refer to its logical-character stream.
type Input struct {
	HTML       string
	Highlights []Highlight
	// Citations optionally resolves a highlight's start index to a
	// reference label (paragraph or citation number) for margin notes.
	Citations map[int]string
	// TeXOnly stops after assembly and skips compilation, for debugging
	// converter output.
	TeXOnly bool
}

// Result is the outcome of one export.
type Result struct {
	PDF []byte
	TeX []byte
	Log []byte // compiler log; on compile failure it travels in the error instead
	// Scratch is the retained compiler scratch directory, set only when the
	// Exporter was built with WithKeepScratch(true).
	Scratch string
}

// exporterConfig holds internal configuration for an Exporter.
type exporterConfig struct {
	timeout     time.Duration
	pandocPath  string
	latexPath   string
	keepScratch bool
}

// defaultTimeout bounds one export end to end. Compilation is the only
// genuinely slow step and scales with document size.
const defaultTimeout = 120 * time.Second

// Option configures an Exporter.
type Option func(*Exporter)

// WithTimeout sets the per-export time box.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("annotex: WithTimeout duration must be positive")
	}
	return func(e *Exporter) {
		e.cfg.timeout = d
	}
}

// WithPandocPath sets the pandoc binary. Empty means PATH lookup.
func WithPandocPath(path string) Option {
	return func(e *Exporter) {
		e.cfg.pandocPath = path
	}
}

// WithLatexPath sets the LaTeX engine binary. Empty means lualatex from
// PATH.
func WithLatexPath(path string) Option {
	return func(e *Exporter) {
		e.cfg.latexPath = path
	}
}

// WithKeepScratch retains the compiler scratch directory for inspection
// after the export finishes or fails.
func WithKeepScratch(keep bool) Option {
	return func(e *Exporter) {
		e.cfg.keepScratch = keep
	}
}
