// Package texdoc builds the compilable print document: the preamble with
// per-tag colour definitions, LaTeX escaping for user content, and final
// assembly of a converted body.
package texdoc

import (
	"fmt"
	"strings"
)

// ManyDark is the neutral underline colour applied once three or more
// highlights overlap and per-colour distinction is abandoned.
const ManyDark = "5A5A5A"

// Colour-name templates shared with the rendering filter. A carrier colour
// "amber" resolves to annotamberlight / annotamberdark.
const (
	lightColorFormat = "annot%slight"
	darkColorFormat  = "annot%sdark"
	manyColorName    = "annotmanydark"
)

// Color is one tag colour with its light (highlight background) and dark
// (underline, margin note) variants as RRGGBB hex.
type Color struct {
	Name  string
	Light string
	Dark  string
}

// texEscaper rewrites LaTeX special characters in a single pass, so the
// replacement text itself is never re-escaped.
var texEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`%`, `\%`,
	`_`, `\_`,
	`^`, `\textasciicircum{}`,
	`~`, `\textasciitilde{}`,
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// Escape escapes user content for safe inclusion in the document. All
// annotation text is escaped here, before the external converter ever sees
// it; the converter's own escaping is not trusted to be consistent.
func Escape(s string) string {
	return texEscaper.Replace(s)
}

// LightColor returns the defined colour name for a tag colour's background.
func LightColor(name string) string {
	return fmt.Sprintf(lightColorFormat, name)
}

// DarkColor returns the defined colour name for a tag colour's underline
// and margin-note variants.
func DarkColor(name string) string {
	return fmt.Sprintf(darkColorFormat, name)
}

// Preamble builds the document preamble: class and support packages, the
// annotmark macro library providing \annothl, \annotul and \annotnote, and
// one light/dark colour pair per tag colour plus the fixed neutral "many"
// colour. Colour order follows the given slice, so callers sort for
// deterministic output.
func Preamble(colors []Color) string {
	var b strings.Builder

	b.WriteString("\\documentclass[11pt]{article}\n")
	b.WriteString("\\usepackage[margin=2.5cm,marginparwidth=4.5cm,marginparsep=0.4cm]{geometry}\n")
	b.WriteString("\\usepackage{xcolor}\n")
	b.WriteString("\\usepackage{annotmark}\n")
	// Pandoc body output assumes this macro outside --standalone mode.
	b.WriteString("\\providecommand{\\tightlist}{\\setlength{\\itemsep}{0pt}\\setlength{\\parskip}{0pt}}\n")

	for _, c := range colors {
		fmt.Fprintf(&b, "\\definecolor{%s}{HTML}{%s}\n", LightColor(c.Name), c.Light)
		fmt.Fprintf(&b, "\\definecolor{%s}{HTML}{%s}\n", DarkColor(c.Name), c.Dark)
	}
	fmt.Fprintf(&b, "\\definecolor{%s}{HTML}{%s}\n", manyColorName, ManyDark)

	return b.String()
}

// Assemble wraps a converted body into a complete compilable document.
func Assemble(body string, colors []Color) string {
	var b strings.Builder
	b.WriteString(Preamble(colors))
	b.WriteString("\\begin{document}\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\\end{document}\n")
	return b.String()
}
