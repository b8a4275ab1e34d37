package export

import (
	"fmt"
	"io"
	"strings"

	"mercator-hq/verdict/pkg/compliance"
)

// Exporter writes a report.
type Exporter interface {
	Export(rep *compliance.Report, w io.Writer) error
}

// Error describes a failed export.
type Error struct {
	Format      string
	RecordCount int
	Cause       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("export error [format=%s, record_count=%d]: %v", e.Format, e.RecordCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(format string, rep *compliance.Report, cause error) *Error {
	return &Error{Format: format, RecordCount: len(rep.Obligations), Cause: cause}
}

// Formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// New returns the exporter for format. JSON output is indented when pretty
// is set; pretty does not affect CSV.
func New(format string, pretty bool) (Exporter, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return NewJSONExporter(pretty), nil
	case FormatCSV:
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (expected json or csv)", format)
	}
}
