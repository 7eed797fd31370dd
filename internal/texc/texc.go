// Package texc drives the external LaTeX engine. Each compilation runs
// non-interactively in an isolated scratch directory, time-boxed and
// cancellable, and the produced artifact is verified before it is
// returned. Compile failures are terminal for the invocation, and the full
// engine log is always preserved.
package texc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MQFacultyOfArts/annotex/internal/process"
)

// Sentinel errors for compilation failures.
var (
	ErrCompile  = errors.New("LaTeX compilation failed")
	ErrNoOutput = errors.New("compiler produced no usable PDF")
)

// DefaultBinary is used when no engine path is configured.
const DefaultBinary = "lualatex"

// minPDFSize rejects trivially small artifacts; a structurally empty PDF
// from a half-failed run is still a failure.
const minPDFSize = 1 << 10

// waitDelay bounds how long a cancelled compilation may linger before the
// process group is killed outright.
const waitDelay = 10 * time.Second

const (
	texFileName = "main.tex"
	pdfFileName = "main.pdf"
	logFileName = "main.log"
)

// CompileError carries the preserved engine log alongside the failure, so
// callers can distinguish bad input from a pipeline defect from a missing
// toolchain.
type CompileError struct {
	Err error
	Log []byte
}

func (e *CompileError) Error() string { return e.Err.Error() }
func (e *CompileError) Unwrap() error { return e.Err }

// Runner abstracts engine invocation to enable testing without a TeX
// installation.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs the engine in its own process group so cancellation
// kills the whole toolchain tree, not just the leader.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.SysProcAttr = sysProcAttr()
	cmd.WaitDelay = waitDelay
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			process.KillProcessGroup(cmd.Process.Pid)
		}
		return cmd.Process.Kill()
	}
	return cmd.Run()
}

// Verifier checks a produced artifact for structural soundness.
type Verifier interface {
	Verify(pdf []byte) error
}

// PDFCPUVerifier validates PDF structure with pdfcpu. Existence and size
// checks alone let a truncated artifact through.
type PDFCPUVerifier struct{}

func (PDFCPUVerifier) Verify(pdf []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(pdf), conf); err != nil {
		return fmt.Errorf("%w: %v", ErrNoOutput, err)
	}
	pages, err := api.PageCount(bytes.NewReader(pdf), conf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoOutput, err)
	}
	if pages == 0 {
		return fmt.Errorf("%w: zero pages", ErrNoOutput)
	}
	return nil
}

// Result carries the produced PDF plus the engine log and, when retained,
// the scratch directory path.
type Result struct {
	PDF     []byte
	Log     []byte
	Scratch string
}

// Compiler drives the engine. States per invocation: Idle -> Writing ->
// Compiling -> Verified or CompileFailed; CompileFailed is terminal and
// never auto-retried.
type Compiler struct {
	Path        string
	KeepScratch bool
	Runner      Runner
	Verifier    Verifier
}

// New creates a Compiler with a real runner and pdfcpu verification. An
// empty path means the engine is resolved from PATH.
func New(path string) *Compiler {
	if path == "" {
		path = DefaultBinary
	}
	return &Compiler{Path: path, Runner: ExecRunner{}, Verifier: PDFCPUVerifier{}}
}

// Compile writes texSource into a fresh scratch directory, runs the engine
// non-interactively, and verifies the expected artifact exists, is
// non-trivially sized, and is structurally valid. The scratch directory is
// released on every exit path, including cancellation, unless KeepScratch
// is set, in which case Result.Scratch (or the CompileError log) points the
// caller at the evidence.
func (c *Compiler) Compile(ctx context.Context, texSource string) (*Result, error) {
	scratch, err := os.MkdirTemp("", "annotex-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	keep := c.KeepScratch
	defer func() {
		if !keep {
			_ = os.RemoveAll(scratch)
		}
	}()

	if err := os.WriteFile(filepath.Join(scratch, texFileName), []byte(texSource), 0o600); err != nil {
		return nil, fmt.Errorf("writing %s: %w", texFileName, err)
	}

	runErr := c.Runner.Run(ctx, scratch, c.Path,
		"-interaction=nonstopmode", "-halt-on-error", texFileName)

	// The log outlives the run on every path; it is the primary evidence
	// for distinguishing pipeline defects from toolchain problems.
	log, _ := os.ReadFile(filepath.Join(scratch, logFileName))

	if runErr != nil {
		if ctx.Err() != nil {
			return nil, &CompileError{Err: fmt.Errorf("%w: %w", ErrCompile, ctx.Err()), Log: log}
		}
		return nil, &CompileError{Err: fmt.Errorf("%w: %v", ErrCompile, runErr), Log: log}
	}

	pdf, err := os.ReadFile(filepath.Join(scratch, pdfFileName))
	if err != nil {
		return nil, &CompileError{Err: fmt.Errorf("%w: %v", ErrNoOutput, err), Log: log}
	}
	if len(pdf) < minPDFSize {
		return nil, &CompileError{Err: fmt.Errorf("%w: %d bytes", ErrNoOutput, len(pdf)), Log: log}
	}
	if err := c.Verifier.Verify(pdf); err != nil {
		return nil, &CompileError{Err: err, Log: log}
	}

	res := &Result{PDF: pdf, Log: log}
	if keep {
		res.Scratch = scratch
	}
	return res, nil
}
