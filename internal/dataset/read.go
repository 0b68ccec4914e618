// Package dataset reads comment tables from CSV or JSON files and writes the
// cleaned result back out with the input columns intact.
package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"murmur/internal/comment"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var (
	ErrNoTextField        = errors.New("no text field found")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrMalformedJSONTable = errors.New("json input must be an array of objects")
)

// Columns the reader maps onto typed RawRecord fields when present.
const (
	ColumnAuthor      = "author"
	ColumnLikeCount   = "like_count"
	ColumnPublishedAt = "published_at"
)

// fallbackTextFields are tried in order when no text field is configured.
var fallbackTextFields = []string{"text", "comment"}

const utf8BOM = "\ufeff"

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// ReadFile loads every record of a CSV or JSON table. It returns the records and
// the input columns in order.
func ReadFile(path, textField string) ([]comment.RawRecord, []string, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path) // #nosec G304 -- input path is chosen by the operator
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	if format == FormatJSON {
		return ReadJSON(f, textField)
	}
	return ReadCSV(f, textField)
}

// ResolveTextField returns explicit when it names a column, otherwise the first of
// "text" and "comment" present, otherwise the first column.
func ResolveTextField(columns []string, explicit string) (string, error) {
	if explicit != "" {
		for _, c := range columns {
			if c == explicit {
				return c, nil
			}
		}
		return "", fmt.Errorf("%w: column %q not in input", ErrNoTextField, explicit)
	}
	for _, want := range fallbackTextFields {
		for _, c := range columns {
			if strings.EqualFold(c, want) {
				return c, nil
			}
		}
	}
	if len(columns) == 0 {
		return "", ErrNoTextField
	}
	return columns[0], nil
}

func ReadCSV(r io.Reader, textField string) ([]comment.RawRecord, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrNoTextField
		}
		return nil, nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	field, err := ResolveTextField(header, textField)
	if err != nil {
		return nil, nil, err
	}

	var records []comment.RawRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		fields := make([]comment.Field, len(header))
		for i, name := range header {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			fields[i] = comment.Field{Name: name, Value: v}
		}
		records = append(records, newRawRecord(fields, field))
	}

	slog.Info("csv table loaded", "records", len(records), "columns", len(header), "text_field", field)
	return records, header, nil
}

// ReadJSON reads an array of flat objects, keeping each key's first-seen position
// as its column order. Non-string values are rendered as their JSON text.
func ReadJSON(r io.Reader, textField string) ([]comment.RawRecord, []string, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, nil, err
	}

	var (
		columns []string
		seen    = map[string]bool{}
		rows    [][]comment.Field
	)
	for dec.More() {
		row, err := readObject(dec)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read json record %d: %w", len(rows), err)
		}
		for _, f := range row {
			if !seen[f.Name] {
				seen[f.Name] = true
				columns = append(columns, f.Name)
			}
		}
		rows = append(rows, row)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	field, err := ResolveTextField(columns, textField)
	if err != nil {
		return nil, nil, err
	}

	records := make([]comment.RawRecord, len(rows))
	for i, row := range rows {
		records[i] = newRawRecord(align(row, columns), field)
	}

	slog.Info("json table loaded", "records", len(records), "columns", len(columns), "text_field", field)
	return records, columns, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSONTable, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: unexpected %v", ErrMalformedJSONTable, tok)
	}
	return nil
}

func readObject(dec *json.Decoder) ([]comment.Field, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var fields []comment.Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string key %v", ErrMalformedJSONTable, tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields = append(fields, comment.Field{Name: key, Value: renderJSONValue(raw)})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return fields, nil
}

func renderJSONValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		return ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// align orders row by columns, filling absent keys with empty values.
func align(row []comment.Field, columns []string) []comment.Field {
	byName := make(map[string]string, len(row))
	for _, f := range row {
		byName[f.Name] = f.Value
	}
	out := make([]comment.Field, len(columns))
	for i, c := range columns {
		out[i] = comment.Field{Name: c, Value: byName[c]}
	}
	return out
}

func newRawRecord(fields []comment.Field, textField string) comment.RawRecord {
	r := comment.RawRecord{Fields: fields}
	r.Text, _ = r.Get(textField)
	r.Author, _ = r.Get(ColumnAuthor)

	if v, ok := r.Get(ColumnLikeCount); ok && v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			r.LikeCount = &n
		} else {
			slog.Warn("ignoring malformed like count", "value", v)
		}
	}
	if v, ok := r.Get(ColumnPublishedAt); ok && v != "" {
		if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
			r.PublishedAt = &ts
		} else {
			slog.Warn("ignoring malformed publish time", "value", v)
		}
	}
	return r
}
