// Package dataset reads record batches from CSV and JSON input.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mercator-hq/verdict/pkg/compliance"
)

// Error describes malformed input.
type Error struct {
	Source string
	Line   int
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("dataset %s: line %d: %v", e.Source, e.Line, e.Cause)
	}
	return fmt.Sprintf("dataset %s: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ReadFile reads records from path. Files ending in .json are read as JSON;
// everything else as CSV.
func ReadFile(path string) ([]compliance.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Source: path, Cause: err}
	}
	defer f.Close()

	var records []compliance.Record
	if strings.EqualFold(filepath.Ext(path), ".json") {
		records, err = ReadJSON(f)
	} else {
		records, err = ReadCSV(f)
	}
	if err != nil {
		var dsErr *Error
		if errors.As(err, &dsErr) {
			dsErr.Source = path
			return nil, dsErr
		}
		return nil, &Error{Source: path, Cause: err}
	}
	return records, nil
}

// ReadCSV reads a CSV table with a header row. Cells that parse as numbers
// become float64 and empty cells become nil; everything else is kept as a
// string. Short rows leave the trailing columns nil.
func ReadCSV(r io.Reader) ([]compliance.Record, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []compliance.Record{}, nil
	}
	if err != nil {
		return nil, &Error{Source: "csv", Cause: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records := []compliance.Record{}
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &Error{Source: "csv", Line: line, Cause: err}
		}
		if len(row) > len(header) {
			return nil, &Error{
				Source: "csv",
				Line:   line,
				Cause:  fmt.Errorf("row has %d cells, header has %d", len(row), len(header)),
			}
		}

		fields := make([]compliance.Field, len(header))
		for i, name := range header {
			var v any
			if i < len(row) {
				v = csvValue(row[i])
			}
			fields[i] = compliance.Field{Name: name, Value: v}
		}
		records = append(records, compliance.NewRecord(fields...))
	}
	return records, nil
}

func csvValue(cell string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	// NaN and Inf stay text: they have no JSON encoding.
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return cell
}

// skipBOM drops a leading UTF-8 byte order mark.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	return br
}

// ReadJSON reads an array of objects, or an object whose "records" member is
// such an array. Key order is preserved. Nested arrays and objects are kept
// as their JSON text.
func ReadJSON(r io.Reader) ([]compliance.Record, error) {
	dec := json.NewDecoder(skipBOM(r))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &Error{Source: "json", Cause: err}
	}

	switch tok {
	case json.Delim('['):
		return readArray(dec)
	case json.Delim('{'):
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, &Error{Source: "json", Cause: err}
			}
			if keyTok == "records" {
				open, err := dec.Token()
				if err != nil {
					return nil, &Error{Source: "json", Cause: err}
				}
				if open != json.Delim('[') {
					return nil, &Error{Source: "json", Cause: errors.New(`"records" must be an array`)}
				}
				return readArray(dec)
			}
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, &Error{Source: "json", Cause: err}
			}
		}
		return nil, &Error{Source: "json", Cause: errors.New(`object has no "records" array`)}
	default:
		return nil, &Error{Source: "json", Cause: errors.New("expected an array of records")}
	}
}

func readArray(dec *json.Decoder) ([]compliance.Record, error) {
	records := []compliance.Record{}
	for dec.More() {
		fields, err := readObject(dec)
		if err != nil {
			return nil, &Error{Source: "json", Cause: fmt.Errorf("record %d: %w", len(records), err)}
		}
		records = append(records, compliance.NewRecord(fields...))
	}
	if _, err := dec.Token(); err != nil {
		return nil, &Error{Source: "json", Cause: err}
	}
	return records, nil
}

func readObject(dec *json.Decoder) ([]compliance.Field, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, errors.New("expected an object")
	}

	var fields []compliance.Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		v, err := jsonValue(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, compliance.Field{Name: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

func jsonValue(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return string(trimmed), nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return n.String(), nil
		}
		return f, nil
	}
	return v, nil
}
