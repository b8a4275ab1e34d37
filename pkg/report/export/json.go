package export

import (
	"encoding/json"
	"io"

	"mercator-hq/verdict/pkg/compliance"
)

// JSONExporter writes the report as one JSON object.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes rep to w followed by a newline.
func (e *JSONExporter) Export(rep *compliance.Report, w io.Writer) error {
	out := *rep
	if out.Obligations == nil {
		out.Obligations = []compliance.ClassifiedRecord{}
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		return newError(FormatJSON, rep, err)
	}
	return nil
}
