package main

import (
	"errors"
	"os"

	annotex "github.com/MQFacultyOfArts/annotex"
	"github.com/MQFacultyOfArts/annotex/internal/config"
	"github.com/MQFacultyOfArts/annotex/internal/ingest"
)

// Exit codes for the annotex CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess   = 0 // All exports succeeded
	ExitGeneral   = 1 // General/unexpected error
	ExitUsage     = 2 // Invalid flags, config, or input records
	ExitIO        = 3 // File not found, permission denied
	ExitToolchain = 4 // pandoc or LaTeX engine failure
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// External toolchain errors (exit 4)
	if errors.Is(err, annotex.ErrConvertFailed) ||
		errors.Is(err, annotex.ErrCompileFailed) {
		return ExitToolchain
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidPalette) ||
		errors.Is(err, ingest.ErrBadExport) ||
		errors.Is(err, ingest.ErrEmptyContent) ||
		errors.Is(err, annotex.ErrEmptyDocument) ||
		errors.Is(err, annotex.ErrInvalidHighlight) ||
		errors.Is(err, annotex.ErrUnknownTag) ||
		errors.Is(err, annotex.ErrNoPalette) {
		return ExitUsage
	}

	return ExitGeneral
}
