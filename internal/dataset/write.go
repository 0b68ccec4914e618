package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"murmur/internal/comment"
)

const (
	ColumnCleanText  = "clean_text"
	ColumnSimilarity = "similarity"

	// collisionPrefix renames input columns that share a name with an output column.
	collisionPrefix = "input_"
)

type WriteOptions struct {
	// BOM prefixes CSV output with a UTF-8 byte order mark for spreadsheet tools.
	BOM bool
	// Similarity adds the similarity column.
	Similarity bool
}

// WriteFile writes cleaned records in the given format.
func WriteFile(path string, format Format, columns []string, records []comment.CleanedRecord, opts WriteOptions) error {
	switch format {
	case FormatCSV:
		return WriteCSV(path, columns, records, opts)
	case FormatJSON:
		return WriteJSON(path, columns, records, opts)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// WriteCSV writes the input columns followed by clean_text (and similarity).
func WriteCSV(path string, columns []string, records []comment.CleanedRecord, opts WriteOptions) error {
	header := outputHeader(columns, opts)
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = outputRow(r, columns, opts)
	}
	if err := writeCSV(path, header, rows, opts.BOM); err != nil {
		return err
	}
	slog.Info("cleaned table written", "path", path, "records", len(records), "format", FormatCSV)
	return nil
}

// WriteJSON writes an array of objects whose keys keep the column order.
func WriteJSON(path string, columns []string, records []comment.CleanedRecord, opts WriteOptions) error {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, columns, records, opts); err != nil {
		return err
	}
	if err := writeBytes(path, buf.Bytes()); err != nil {
		return err
	}
	slog.Info("cleaned table written", "path", path, "records", len(records), "format", FormatJSON)
	return nil
}

// EncodeJSON writes records as a JSON array to w. Object keys follow columns, then
// clean_text and similarity.
func EncodeJSON(w io.Writer, columns []string, records []comment.CleanedRecord, opts WriteOptions) error {
	header := outputHeader(columns, opts)
	objects := make([][]comment.Field, len(records))
	for i, r := range records {
		row := outputRow(r, columns, opts)
		obj := make([]comment.Field, len(header))
		for j, name := range header {
			obj[j] = comment.Field{Name: name, Value: row[j]}
		}
		objects[i] = obj
	}
	numeric := -1
	if opts.Similarity {
		numeric = len(header) - 1
	}
	return encodeObjects(w, objects, numeric)
}

// EncodeRawJSON writes each record's input columns, in order, as one object.
func EncodeRawJSON(w io.Writer, records []comment.RawRecord) error {
	objects := make([][]comment.Field, len(records))
	for i, r := range records {
		objects[i] = r.Fields
	}
	return encodeObjects(w, objects, -1)
}

// encodeObjects writes objects as a JSON array. The value at index numeric, when
// non-empty, is a formatted float and is written unquoted.
func encodeObjects(w io.Writer, objects [][]comment.Field, numeric int) error {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, obj := range objects {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, f := range obj {
			if j > 0 {
				buf.WriteString(", ")
			}
			k, _ := json.Marshal(f.Name)
			buf.Write(k)
			buf.WriteString(": ")
			if j == numeric && f.Value != "" {
				buf.WriteString(f.Value)
				continue
			}
			v, _ := json.Marshal(f.Value)
			buf.Write(v)
		}
		buf.WriteString("}")
	}
	if len(objects) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}

// RawColumns is the column layout of freshly fetched comments.
var RawColumns = []string{ColumnAuthor, "comment", ColumnLikeCount, ColumnPublishedAt}

// WriteRawCSV writes acquired comments before any cleaning.
func WriteRawCSV(path string, records []comment.RawRecord, bom bool) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(RawColumns))
		for j, c := range RawColumns {
			row[j], _ = r.Get(c)
		}
		rows[i] = row
	}
	return writeCSV(path, RawColumns, rows, bom)
}

// WriteRawJSON writes acquired comments with typed like counts and timestamps.
func WriteRawJSON(path string, records []comment.RawRecord) error {
	if records == nil {
		records = []comment.RawRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode comments: %w", err)
	}
	return writeBytes(path, append(data, '\n'))
}

// outputHeader lists the input columns, renaming any that collide with clean_text
// or similarity, followed by the output columns.
func outputHeader(columns []string, opts WriteOptions) []string {
	reserved := map[string]bool{ColumnCleanText: true}
	if opts.Similarity {
		reserved[ColumnSimilarity] = true
	}
	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		taken[c] = true
	}

	header := make([]string, 0, len(columns)+2)
	for _, c := range columns {
		if reserved[c] {
			renamed := collisionPrefix + c
			for taken[renamed] || reserved[renamed] {
				renamed = collisionPrefix + renamed
			}
			taken[renamed] = true
			c = renamed
		}
		header = append(header, c)
	}
	header = append(header, ColumnCleanText)
	if opts.Similarity {
		header = append(header, ColumnSimilarity)
	}
	return header
}

func outputRow(r comment.CleanedRecord, columns []string, opts WriteOptions) []string {
	row := make([]string, 0, len(columns)+2)
	for _, c := range columns {
		v, _ := r.Get(c)
		row = append(row, v)
	}
	row = append(row, r.CleanText)
	if opts.Similarity {
		sim := ""
		if r.Similarity != nil {
			sim = strconv.FormatFloat(*r.Similarity, 'f', 6, 64)
		}
		row = append(row, sim)
	}
	return row
}

func writeCSV(path string, header []string, rows [][]string, bom bool) error {
	var buf bytes.Buffer
	if bom {
		buf.WriteString(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return writeBytes(path, buf.Bytes())
}

func writeBytes(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
