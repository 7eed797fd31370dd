// Package texfilter owns the rendering filter that expands annotation
// carriers into print markup. The filter is Lua executed inside pandoc:
// all stacking and formatting logic runs there, against one flat,
// pre-resolved element at a time, so no position-sensitive work ever
// depends on parsing the converter's output.
package texfilter

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
)

// ErrFilterInvalid reports a filter that does not compile. This is a
// build/packaging defect, not an input error.
var ErrFilterInvalid = errors.New("rendering filter does not compile")

// FileName is the filter's name inside a scratch directory.
const FileName = "annotex-filter.lua"

//go:embed filter.lua
var source string

// Source returns the embedded filter source.
func Source() string { return source }

// Check compiles the embedded filter in an in-process Lua state, catching
// syntax errors before pandoc is ever invoked. Pandoc reports Lua errors
// late and with poor context, so this runs once at exporter construction.
func Check() error {
	L := lua.NewState()
	defer L.Close()
	if _, err := L.LoadString(source); err != nil {
		return fmt.Errorf("%w: %v", ErrFilterInvalid, err)
	}
	return nil
}

// Install writes the filter into dir and returns its path for pandoc's
// --lua-filter flag.
func Install(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		return "", fmt.Errorf("installing rendering filter: %w", err)
	}
	return path, nil
}
