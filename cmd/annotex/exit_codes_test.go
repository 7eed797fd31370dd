package main

import (
	"errors"
	"fmt"
	"os"
	"testing"

	annotex "github.com/MQFacultyOfArts/annotex"
	"github.com/MQFacultyOfArts/annotex/internal/config"
	"github.com/MQFacultyOfArts/annotex/internal/ingest"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"conversion failure", annotex.ErrConvertFailed, ExitToolchain},
		{"compilation failure", annotex.ErrCompileFailed, ExitToolchain},
		{"wrapped compilation failure", fmt.Errorf("doc.json: %w", annotex.ErrCompileFailed), ExitToolchain},
		{"missing file", os.ErrNotExist, ExitIO},
		{"permission denied", os.ErrPermission, ExitIO},
		{"read failure", ErrReadInput, ExitIO},
		{"write failure", ErrWriteOutput, ExitIO},
		{"usage", ErrUsage, ExitUsage},
		{"no input", ErrNoInput, ExitUsage},
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"bad palette", config.ErrInvalidPalette, ExitUsage},
		{"bad blob", ingest.ErrBadExport, ExitUsage},
		{"empty document", annotex.ErrEmptyDocument, ExitUsage},
		{"invalid highlight", annotex.ErrInvalidHighlight, ExitUsage},
		{"unknown tag", annotex.ErrUnknownTag, ExitUsage},
		{"anything else", errors.New("boom"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
