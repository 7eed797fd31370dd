// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"strings"
)

// ForConvertFailure returns hints for pandoc failures.
func ForConvertFailure(stderr string) string {
	var hints []string

	if strings.Contains(stderr, "executable file not found") ||
		strings.Contains(stderr, "no such file") {
		hints = append(hints, "install pandoc or set --pandoc to its location")
	}

	return formatHints(hints)
}

// ForCompileFailure returns hints for LaTeX engine failures, keyed on the
// preserved engine log.
func ForCompileFailure(log string) string {
	var hints []string

	if strings.Contains(log, "annotmark.sty' not found") {
		hints = append(hints, "install the annotmark macro package into your TeX tree")
	}
	if log == "" {
		hints = append(hints, "run with --keep-scratch to inspect main.tex and main.log")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeout for slow compilations.
func ForTimeout() string {
	return format("for large documents, use --timeout flag")
}

// ForConfigNotFound returns hints for config file not found errors.
func ForConfigNotFound() string {
	return format("use --config /path/to/file.yaml or create annotex.yaml in ~/.config/annotex/")
}

// format formats a single hint.
func format(hint string) string {
	return "\n  hint: " + hint
}

// formatHints formats multiple hints, one per line.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	var b strings.Builder
	for _, h := range hints {
		b.WriteString(format(h))
	}
	return b.String()
}
