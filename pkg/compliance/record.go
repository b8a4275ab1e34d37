package compliance

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Column names of the fields consumed by rule matching.
const (
	FieldFinalConfidenceScore    = "final_confidence_score"
	FieldFalsePositiveLikelihood = "false_positive_likelihood"
	FieldCorrelationScore        = "correlation_score"
	FieldSeverity                = "severity"
)

// Field is a single named scalar value of a record.
// Value is one of float64, string, bool or nil.
type Field struct {
	Name  string
	Value any
}

// Fields is an ordered list of pass-through fields.
type Fields []Field

// Get returns the value of the named field.
func (f Fields) Get(name string) (any, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// Names returns the field names in order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, field := range f {
		names[i] = field.Name
	}
	return names
}

// Score is a numeric record field that may be missing or malformed.
type Score struct {
	// Value is the parsed value. Only meaningful when Valid is true.
	Value float64

	// Valid is false when the field was absent, null, empty or non-numeric.
	Valid bool
}

// NewScore returns a valid score.
func NewScore(v float64) Score {
	return Score{Value: v, Valid: true}
}

// Or returns the score value, or def when the score is invalid.
func (s Score) Or(def float64) float64 {
	if !s.Valid {
		return def
	}
	return s.Value
}

// MarshalJSON writes the value, or null when the score is invalid.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// ParseScore coerces a scalar into a Score.
// Numbers and numeric strings are valid; everything else, including NaN and
// infinities, is invalid.
func ParseScore(v any) Score {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return Score{}
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return Score{}
		}
		f = parsed
	default:
		return Score{}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Score{}
	}
	return NewScore(f)
}

// Record is one input security event.
type Record struct {
	FinalConfidenceScore    Score
	FalsePositiveLikelihood Score
	CorrelationScore        Score

	// Severity is the raw severity value. Empty when absent.
	Severity string

	// Extra holds every other input column in input order.
	Extra Fields

	// present tracks which core columns appeared in the input, so output can
	// reproduce them as null rather than dropping them.
	present uint8
}

const (
	presentConfidence uint8 = 1 << iota
	presentFalsePositive
	presentCorrelation
	presentSeverity
)

// NewRecord builds a Record from an ordered list of fields, splitting the
// rule-matching columns from the pass-through ones. Later duplicates of a
// column overwrite earlier ones.
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		switch f.Name {
		case FieldFinalConfidenceScore:
			r.FinalConfidenceScore = ParseScore(f.Value)
			r.present |= presentConfidence
		case FieldFalsePositiveLikelihood:
			r.FalsePositiveLikelihood = ParseScore(f.Value)
			r.present |= presentFalsePositive
		case FieldCorrelationScore:
			r.CorrelationScore = ParseScore(f.Value)
			r.present |= presentCorrelation
		case FieldSeverity:
			r.Severity = scalarString(f.Value)
			r.present |= presentSeverity
		default:
			r.Extra = setField(r.Extra, f)
		}
	}
	return r
}

// Fields returns the record as an ordered field list: core columns first,
// then the pass-through columns. Core columns are included when they were
// present in the input or hold a valid value.
func (r Record) Fields() Fields {
	out := make(Fields, 0, len(r.Extra)+4)
	if r.present&presentConfidence != 0 || r.FinalConfidenceScore.Valid {
		out = append(out, Field{Name: FieldFinalConfidenceScore, Value: scoreValue(r.FinalConfidenceScore)})
	}
	if r.present&presentFalsePositive != 0 || r.FalsePositiveLikelihood.Valid {
		out = append(out, Field{Name: FieldFalsePositiveLikelihood, Value: scoreValue(r.FalsePositiveLikelihood)})
	}
	if r.present&presentCorrelation != 0 || r.CorrelationScore.Valid {
		out = append(out, Field{Name: FieldCorrelationScore, Value: scoreValue(r.CorrelationScore)})
	}
	if r.present&presentSeverity != 0 || r.Severity != "" {
		out = append(out, Field{Name: FieldSeverity, Value: r.Severity})
	}
	return append(out, r.Extra...)
}

// MarshalJSON writes the record as a JSON object preserving field order.
func (r Record) MarshalJSON() ([]byte, error) {
	return marshalOrdered(r.Fields())
}

func scoreValue(s Score) any {
	if !s.Valid {
		return nil
	}
	return s.Value
}

func setField(fields Fields, f Field) Fields {
	for i := range fields {
		if fields[i].Name == f.Name {
			fields[i].Value = f.Value
			return fields
		}
	}
	return append(fields, f)
}

func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

// marshalOrdered encodes fields as a JSON object in slice order.
func marshalOrdered(fields Fields) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
