package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// exportFlags holds all flags for the annotex command.
type exportFlags struct {
	config      string
	output      string
	annotations string
	workers     int
	timeout     string
	pandoc      string
	latex       string
	texOnly     bool
	keepScratch bool
	quiet       bool
	verbose     bool
	version     bool
}

// parseFlags parses command-line flags and returns positional args
// (input files).
func parseFlags(args []string) (*exportFlags, []string, error) {
	fs := flag.NewFlagSet("annotex", flag.ContinueOnError)
	f := &exportFlags{}

	fs.StringVarP(&f.config, "config", "c", "", "config file name or path (palette, tool paths)")
	fs.StringVarP(&f.output, "out", "o", "", "output file or directory")
	fs.StringVarP(&f.annotations, "annotations", "a", "", "annotation sidecar for HTML/Markdown inputs")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel exports (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-export timeout (e.g. 30s, 2m)")
	fs.StringVar(&f.pandoc, "pandoc", "", "pandoc binary path")
	fs.StringVar(&f.latex, "latex", "", "LaTeX engine binary path")
	fs.BoolVar(&f.texOnly, "tex-only", false, "write assembled LaTeX instead of PDF")
	fs.BoolVar(&f.keepScratch, "keep-scratch", false, "retain the compiler scratch directory")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show per-stage detail")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	fs.Usage = func() { printUsage(os.Stderr) }

	if err := fs.Parse(args[1:]); err != nil {
		return nil, nil, err
	}
	if f.quiet && f.verbose {
		return nil, nil, fmt.Errorf("%w: --quiet and --verbose are mutually exclusive", ErrUsage)
	}

	return f, fs.Args(), nil
}

func printUsage(w *os.File) {
	fmt.Fprintf(w, `Usage: annotex [flags] <input>...

Exports annotated documents to paginated PDF. Inputs:
  .json          export blob (document + annotations + citations)
  .html, .htm    document markup; annotations via --annotations sidecar
  .md, .markdown transcript rendered to HTML first; same sidecar rule

Flags:
  -c, --config string        config file name or path (palette, tool paths)
  -o, --out string           output file or directory
  -a, --annotations string   annotation sidecar for HTML/Markdown inputs
  -w, --workers int          parallel exports (0 = auto)
  -t, --timeout string       per-export timeout (e.g. 30s, 2m)
      --pandoc string        pandoc binary path
      --latex string         LaTeX engine binary path
      --tex-only             write assembled LaTeX instead of PDF
      --keep-scratch         retain the compiler scratch directory
  -q, --quiet                only show errors
  -v, --verbose              show per-stage detail
      --version              print version and exit
`)
}
