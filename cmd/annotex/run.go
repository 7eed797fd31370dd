package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	annotex "github.com/MQFacultyOfArts/annotex"
	"github.com/MQFacultyOfArts/annotex/internal/config"
	"github.com/MQFacultyOfArts/annotex/internal/hints"
	"github.com/MQFacultyOfArts/annotex/internal/ingest"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage       = errors.New("invalid usage")
	ErrNoInput     = errors.New("no input specified")
	ErrReadInput   = errors.New("failed to read input file")
	ErrWriteOutput = errors.New("failed to write output file")
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// defaultPalette covers the coding tags the collaborative app ships with,
// so the CLI works without a config file. A config palette replaces it
// entirely.
var defaultPalette = annotex.Palette{
	"claim":      {Name: "amber", Light: "FDE68A", Dark: "B45309"},
	"evidence":   {Name: "teal", Light: "99F6E4", Dark: "0F766E"},
	"question":   {Name: "rose", Light: "FECDD3", Dark: "BE123C"},
	"definition": {Name: "violet", Light: "DDD6FE", Dark: "6D28D9"},
	"method":     {Name: "sky", Light: "BAE6FD", Dark: "0369A1"},
}

// exportJob pairs one input file with its resolved output path.
type exportJob struct {
	inputPath  string
	outputPath string
	input      annotex.Input
}

// exportResult holds the outcome of a single export.
type exportResult struct {
	inputPath  string
	outputPath string
	scratch    string
	err        error
	duration   time.Duration
}

// run orchestrates the export process.
func run(ctx context.Context, flags *exportFlags, inputs []string, env *Environment) error {
	if flags.version {
		fmt.Fprintf(env.Stdout, "annotex %s\n", Version)
		return nil
	}
	if len(inputs) == 0 {
		return fmt.Errorf("%w: annotex [flags] <input>...", ErrNoInput)
	}

	palette, opts, err := buildExporterConfig(flags)
	if err != nil {
		return err
	}

	exporter, err := annotex.NewExporter(palette, opts...)
	if err != nil {
		return err
	}

	var sidecar *ingest.Export
	if flags.annotations != "" {
		sidecar, err = loadSidecar(flags.annotations)
		if err != nil {
			return err
		}
	}

	jobs, err := buildJobs(inputs, flags, sidecar)
	if err != nil {
		return err
	}

	results := exportBatch(ctx, exporter, jobs, resolveWorkers(flags.workers, len(jobs)), flags.texOnly)

	failed := printResults(results, flags, env)
	if failed > 0 {
		return fmt.Errorf("%d export(s) failed", failed)
	}
	return nil
}

// buildExporterConfig resolves the palette and exporter options from the
// config file (if any) and CLI flags. Flags win over config values.
func buildExporterConfig(flags *exportFlags) (annotex.Palette, []annotex.Option, error) {
	palette := defaultPalette
	var opts []annotex.Option

	if flags.config != "" {
		cfg, err := config.Load(flags.config)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound())
			}
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		palette = make(annotex.Palette, len(cfg.Palette))
		for tag, c := range cfg.Palette {
			palette[tag] = annotex.TagColor{Name: c.Name, Light: c.Light, Dark: c.Dark}
		}
		if cfg.Pandoc != "" && flags.pandoc == "" {
			flags.pandoc = cfg.Pandoc
		}
		if cfg.Latex != "" && flags.latex == "" {
			flags.latex = cfg.Latex
		}
		if cfg.TimeoutSeconds > 0 && flags.timeout == "" {
			opts = append(opts, annotex.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
		}
	}

	if flags.timeout != "" {
		d, err := time.ParseDuration(flags.timeout)
		if err != nil || d <= 0 {
			return nil, nil, fmt.Errorf("%w: invalid timeout %q", ErrUsage, flags.timeout)
		}
		opts = append(opts, annotex.WithTimeout(d))
	}
	if flags.pandoc != "" {
		opts = append(opts, annotex.WithPandocPath(flags.pandoc))
	}
	if flags.latex != "" {
		opts = append(opts, annotex.WithLatexPath(flags.latex))
	}
	if flags.keepScratch {
		opts = append(opts, annotex.WithKeepScratch(true))
	}

	return palette, opts, nil
}

// loadSidecar reads an annotation sidecar blob.
func loadSidecar(path string) (*ingest.Export, error) {
	blob, err := os.ReadFile(path) // #nosec G304 -- user-provided path
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadInput, err)
	}
	ex, err := ingest.DecodeAnnotations(blob)
	if err != nil {
		return nil, fmt.Errorf("reading sidecar %s: %w", path, err)
	}
	return ex, nil
}

// buildJobs loads every input file and resolves its output path. A load
// failure aborts the whole batch before any export starts.
func buildJobs(inputs []string, flags *exportFlags, sidecar *ingest.Export) ([]exportJob, error) {
	multi := len(inputs) > 1
	if multi && flags.output != "" {
		info, err := os.Stat(flags.output)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: --out must be an existing directory with multiple inputs", ErrUsage)
		}
	}

	jobs := make([]exportJob, 0, len(inputs))
	for _, path := range inputs {
		input, err := loadInput(path, sidecar, flags.texOnly)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		jobs = append(jobs, exportJob{
			inputPath:  path,
			outputPath: resolveOutputPath(path, flags.output, multi, flags.texOnly),
			input:      input,
		})
	}
	return jobs, nil
}

// loadInput reads one input file and converts it to an export Input based
// on its extension.
func loadInput(path string, sidecar *ingest.Export, texOnly bool) (annotex.Input, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- user-provided path
	if err != nil {
		return annotex.Input{}, fmt.Errorf("%w: %v", ErrReadInput, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		ex, err := ingest.Decode(content)
		if err != nil {
			return annotex.Input{}, err
		}
		return toInput(ex.HTML, ex, texOnly), nil
	case ".md", ".markdown":
		html, err := ingest.FromMarkdown(string(content))
		if err != nil {
			return annotex.Input{}, err
		}
		return toInput(html, sidecar, texOnly), nil
	case ".html", ".htm":
		return toInput(string(content), sidecar, texOnly), nil
	default:
		return annotex.Input{}, fmt.Errorf("%w: unsupported input extension %q", ErrUsage, filepath.Ext(path))
	}
}

// toInput converts decoded ingest records to the exporter's input form.
// Record order in the blob becomes the stacking index.
func toInput(html string, ex *ingest.Export, texOnly bool) annotex.Input {
	input := annotex.Input{HTML: html, TeXOnly: texOnly}
	if ex == nil {
		return input
	}
	input.Citations = ex.Citations
	input.Highlights = make([]annotex.Highlight, len(ex.Highlights))
	for i, hl := range ex.Highlights {
		createdAt, _ := time.Parse(time.RFC3339, hl.CreatedAt)
		input.Highlights[i] = annotex.Highlight{
			Index:     i,
			Start:     hl.Start,
			End:       hl.End,
			Tag:       hl.Tag,
			Author:    hl.Author,
			CreatedAt: createdAt,
			Comments:  hl.Comments,
		}
	}
	return input
}

// resolveOutputPath determines where one export lands.
func resolveOutputPath(inputPath, output string, multi, texOnly bool) string {
	ext := ".pdf"
	if texOnly {
		ext = ".tex"
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + ext

	if output == "" {
		return filepath.Join(filepath.Dir(inputPath), base)
	}
	if multi {
		return filepath.Join(output, base)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, base)
	}
	return output
}

// resolveWorkers picks the batch concurrency. Zero means one worker per
// CPU; the job count caps it either way.
func resolveWorkers(workers, jobCount int) int {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > jobCount {
		workers = jobCount
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// exportBatch runs the jobs with bounded concurrency. Every job reports a
// result; a failed export never stops its siblings.
func exportBatch(ctx context.Context, exporter *annotex.Exporter, jobs []exportJob, workers int, texOnly bool) []exportResult {
	results := make([]exportResult, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = exportOne(ctx, exporter, job, texOnly)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in results

	return results
}

// exportOne runs a single export and writes its artifact.
func exportOne(ctx context.Context, exporter *annotex.Exporter, job exportJob, texOnly bool) exportResult {
	start := time.Now()
	result := exportResult{inputPath: job.inputPath, outputPath: job.outputPath}

	res, err := exporter.Export(ctx, job.input)
	if err != nil {
		result.err = err
		result.duration = time.Since(start)
		return result
	}
	result.scratch = res.Scratch

	artifact := res.PDF
	if texOnly {
		artifact = res.TeX
	}

	if dir := filepath.Dir(job.outputPath); dir != "." {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			result.err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
			result.duration = time.Since(start)
			return result
		}
	}
	// #nosec G306 -- exported documents are meant to be readable
	if err := os.WriteFile(job.outputPath, artifact, filePermissions); err != nil {
		result.err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	result.duration = time.Since(start)
	return result
}

// hintFor maps an export failure to an actionable hint, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, annotex.ErrConvertFailed):
		return hints.ForConvertFailure(err.Error())
	case errors.Is(err, annotex.ErrCompileFailed):
		return hints.ForCompileFailure(string(annotex.CompilerLog(err)))
	default:
		return ""
	}
}

// printResults reports per-file outcomes and returns the failure count.
func printResults(results []exportResult, flags *exportFlags, env *Environment) int {
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.inputPath, r.err, hintFor(r.err))
			if log := annotex.CompilerLog(r.err); len(log) > 0 && flags.verbose {
				fmt.Fprintf(env.Stderr, "--- compiler log for %s ---\n%s\n", r.inputPath, log)
			}
			continue
		}

		if flags.keepScratch && r.scratch != "" {
			fmt.Fprintf(env.Stderr, "scratch kept: %s\n", r.scratch)
		}
		if flags.quiet {
			continue
		}
		if flags.verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.inputPath, r.outputPath, r.duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.outputPath)
		}
	}

	if !flags.quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", len(results)-failed, failed)
	}
	return failed
}
