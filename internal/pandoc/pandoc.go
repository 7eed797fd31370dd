// Package pandoc drives the external pandoc binary, converting annotated
// HTML to a LaTeX body with the rendering filter loaded. The converter is
// a black box: carriers must already be flat and block-safe when they
// reach it, because it silently discards inline elements that straddle a
// block boundary, with no diagnostic.
package pandoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/MQFacultyOfArts/annotex/internal/fileutil"
)

// ErrConvert reports a conversion failure. Conversions are deterministic
// for a given input, so failures are never retried; pandoc's raw stderr is
// attached for diagnosis.
var ErrConvert = errors.New("HTML to LaTeX conversion failed")

// DefaultBinary is used when no pandoc path is configured.
const DefaultBinary = "pandoc"

// waitDelay bounds how long a cancelled conversion may linger before the
// process is killed outright.
const waitDelay = 10 * time.Second

// Runner abstracts command execution to enable testing without real
// subprocesses.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Converter converts annotated HTML to LaTeX by invoking the pandoc CLI.
type Converter struct {
	Path   string
	Runner Runner
}

// New creates a Converter with a real command runner. An empty path means
// pandoc is resolved from PATH.
func New(path string) *Converter {
	if path == "" {
		path = DefaultBinary
	}
	return &Converter{Path: path, Runner: ExecRunner{}}
}

// ToLaTeX converts annotated HTML to a LaTeX body fragment, running the
// rendering filter inside pandoc. The output carries no preamble; assembly
// happens downstream.
func (c *Converter) ToLaTeX(ctx context.Context, htmlContent, filterPath string) (string, error) {
	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return "", err
	}
	defer cleanup()

	stdout, stderr, err := c.Runner.Run(ctx, c.Path,
		tmpPath, "-f", "html", "-t", "latex", "--lua-filter", filterPath)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s: %v", ErrConvert, strings.TrimSpace(stderr), err)
	}
	return stdout, nil
}
