package annotex

import "errors"

// Sentinel errors for export operations. Wrapped causes carry the stage,
// the offending highlight index where applicable, and raw external-tool
// diagnostics, so callers can tell bad input from a pipeline defect from a
// missing toolchain.
var (
	ErrEmptyDocument    = errors.New("document has no visible text")
	ErrInvalidHighlight = errors.New("invalid highlight record")
	ErrUnknownTag       = errors.New("no colour configured for tag")
	ErrNoPalette        = errors.New("tag palette cannot be empty")
	ErrConvertFailed    = errors.New("markup conversion failed")
	ErrCompileFailed    = errors.New("document compilation failed")
)
