// Package dataset reads labeled training records from delimited files.
//
// The first row is a header. The target column holds one or more labels
// separated by the label delimiter. The sample is taken from the input
// column when one is configured; otherwise all other columns are joined with
// a space. A file whose only column is the target uses the label text itself
// as the sample, which turns the index into an alias lookup.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// DefaultLabelDelimiter separates labels inside the target column.
const DefaultLabelDelimiter = ";"

// Schema names the columns of a training file.
type Schema struct {
	// InputColumn is the sample column. Empty selects all non-target columns.
	InputColumn string
	// TargetColumn holds the labels.
	TargetColumn string
	// LabelDelimiter splits multi-label targets. Defaults to ";".
	LabelDelimiter string
	// Comma is the field separator. Defaults to ','.
	Comma rune
}

// Record is one training row.
type Record struct {
	// Line is the 1-based line the row starts on, 0 for programmatic records.
	Line   int
	Sample string
	Labels []string
}

// ColumnError reports a column missing from the header.
type ColumnError struct {
	Column string
	Role   string // "target" or "input"
	Header []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s column %q not found in header %q", e.Role, e.Column, e.Header)
}

// MalformedRecordError reports a row that was skipped.
type MalformedRecordError struct {
	Line   int
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Reader streams records from a delimited source.
type Reader struct {
	csv    *csv.Reader
	schema Schema
	header []string
	target int
	input  int // -1: all non-target fields
	need   int // minimum field count
}

// NewReader reads and resolves the header. A missing column yields a
// *ColumnError; an unreadable header is returned as is.
func NewReader(r io.Reader, s Schema) (*Reader, error) {
	if s.LabelDelimiter == "" {
		s.LabelDelimiter = DefaultLabelDelimiter
	}
	if s.Comma == 0 {
		s.Comma = ','
	}

	cr := csv.NewReader(r)
	cr.Comma = s.Comma
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	raw, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ColumnError{Column: s.TargetColumn, Role: "target"}
		}
		return nil, fmt.Errorf("dataset: header: %w", err)
	}

	header := make([]string, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}

	rd := &Reader{csv: cr, schema: s, header: header, input: -1}

	rd.target = slices.Index(header, s.TargetColumn)
	if rd.target < 0 {
		return nil, &ColumnError{Column: s.TargetColumn, Role: "target", Header: header}
	}
	rd.need = rd.target + 1

	if s.InputColumn != "" {
		rd.input = slices.Index(header, s.InputColumn)
		if rd.input < 0 {
			return nil, &ColumnError{Column: s.InputColumn, Role: "input", Header: header}
		}
		rd.need = max(rd.need, rd.input+1)
	}

	return rd, nil
}

// Header returns the trimmed header row.
func (r *Reader) Header() []string { return slices.Clone(r.header) }

// Next returns the next record. It returns io.EOF at the end of input and a
// *MalformedRecordError for a row that should be skipped; reading may
// continue after either a *MalformedRecordError or a record. Any other error
// is fatal.
func (r *Reader) Next() (Record, error) {
	fields, err := r.csv.Read()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return Record{}, &MalformedRecordError{Line: pe.StartLine, Reason: "unparsable row", Err: err}
		}
		return Record{}, err
	}

	line, _ := r.csv.FieldPos(0)

	if len(fields) < r.need {
		return Record{}, &MalformedRecordError{
			Line:   line,
			Reason: fmt.Sprintf("too few fields: got %d, need %d", len(fields), r.need),
		}
	}

	labels := SplitLabels(fields[r.target], r.schema.LabelDelimiter)
	if len(labels) == 0 {
		return Record{}, &MalformedRecordError{Line: line, Reason: "empty label list"}
	}

	return Record{Line: line, Sample: r.sample(fields), Labels: labels}, nil
}

func (r *Reader) sample(fields []string) string {
	if r.input >= 0 {
		return fields[r.input]
	}
	if len(fields) == 1 {
		return fields[0]
	}

	var sb strings.Builder
	for i, f := range fields {
		if i == r.target || f == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(f)
	}
	return sb.String()
}

// SplitLabels splits s on delim, trims every label, drops empties and keeps
// the first occurrence of duplicates.
func SplitLabels(s, delim string) []string {
	if delim == "" {
		delim = DefaultLabelDelimiter
	}
	parts := strings.Split(s, delim)
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}
