// Package reporting renders fill reports for the command line.
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Reporter writes fill reports to an output.
type Reporter interface {
	Write(report *schemas.FillReport) error
	// Close flushes the report and closes the output if it owns one.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// New creates a reporter for format writing to outputPath, or to stdout
// when the path is empty or "stdout".
func New(format, outputPath string, stdout io.Writer) (Reporter, error) {
	switch format {
	case FormatText, FormatJSON:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var w io.WriteCloser = nopWriteCloser{stdout}
	if outputPath != "" && outputPath != "stdout" {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		w = f
	}
	return NewWithWriter(format, w)
}

// NewWithWriter creates a reporter that takes ownership of w.
func NewWithWriter(format string, w io.WriteCloser) (Reporter, error) {
	switch format {
	case FormatText:
		return NewTextReporter(w), nil
	case FormatJSON:
		return NewJSONReporter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
