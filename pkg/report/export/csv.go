package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"mercator-hq/verdict/pkg/compliance"
)

// CSVExporter writes the report obligations as CSV rows. The summary is not
// part of the output.
type CSVExporter struct {
	// IncludeHeader writes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes one row per obligation. Columns are the union of all
// obligations' columns in first-seen order; missing cells are empty.
func (e *CSVExporter) Export(rep *compliance.Report, w io.Writer) error {
	rows := make([]compliance.Fields, len(rep.Obligations))
	var header []string
	index := make(map[string]int)
	for i, ob := range rep.Obligations {
		rows[i] = ob.Fields()
		for _, f := range rows[i] {
			if _, ok := index[f.Name]; !ok {
				index[f.Name] = len(header)
				header = append(header, f.Name)
			}
		}
	}

	writer := csv.NewWriter(w)
	if e.IncludeHeader && len(header) > 0 {
		if err := writer.Write(header); err != nil {
			return newError(FormatCSV, rep, err)
		}
	}

	for _, fields := range rows {
		row := make([]string, len(header))
		for _, f := range fields {
			row[index[f.Name]] = cell(f.Value)
		}
		if err := writer.Write(row); err != nil {
			return newError(FormatCSV, rep, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return newError(FormatCSV, rep, err)
	}
	return nil
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
