package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// JSONFile reads rows from a JSON file.
type JSONFile struct {
	name       string
	path       string
	resultPath string
}

// NewJSONFile creates a JSON file dataset.
func NewJSONFile(name, path, resultPath string) (*JSONFile, error) {
	if path == "" {
		return nil, &ValidationError{Dataset: name, Field: "file", Reason: "file is required"}
	}
	return &JSONFile{name: name, path: path, resultPath: resultPath}, nil
}

// Name returns the dataset name
func (s *JSONFile) Name() string { return s.name }

// Path is the file read.
func (s *JSONFile) Path() string { return s.path }

// Fetch reads and decodes the file.
func (s *JSONFile) Fetch(ctx context.Context) ([]Row, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &SourceError{Dataset: s.name, Operation: "read", Err: err}
	}
	return decodeRows(s.name, data, s.resultPath)
}

// Close is a no-op for file datasets
func (s *JSONFile) Close() error { return nil }

// decodeRows accepts a JSON array of objects, an object holding such an
// array under resultPath (or under "data" / "results" when resultPath is
// empty), a single object, or newline-delimited objects.
func decodeRows(name string, data []byte, resultPath string) ([]Row, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Row{}, nil
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, &ValidationError{Dataset: name, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if dec.More() {
		return decodeLines(name, data)
	}

	if resultPath != "" {
		for _, part := range strings.Split(resultPath, ".") {
			obj, ok := doc.(map[string]interface{})
			if !ok {
				return nil, &ValidationError{Dataset: name, Field: "result_path", Reason: fmt.Sprintf("%q is not an object", part)}
			}
			if doc, ok = obj[part]; !ok {
				return nil, &ValidationError{Dataset: name, Field: "result_path", Reason: fmt.Sprintf("no field %q", part)}
			}
		}
		return toRows(name, doc)
	}

	if obj, ok := doc.(map[string]interface{}); ok {
		for _, k := range []string{"data", "results"} {
			if arr, ok := obj[k].([]interface{}); ok && len(arr) > 0 {
				return toRows(name, arr)
			}
		}
		return []Row{obj}, nil
	}
	return toRows(name, doc)
}

func toRows(name string, v interface{}) ([]Row, error) {
	arr, ok := v.([]interface{})
	if !ok {
		if obj, ok := v.(map[string]interface{}); ok {
			return []Row{obj}, nil
		}
		return nil, &ValidationError{Dataset: name, Reason: fmt.Sprintf("expected an array of objects, got %T", v)}
	}
	rows := make([]Row, 0, len(arr))
	for i, item := range arr {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, &ValidationError{Dataset: name, Reason: fmt.Sprintf("element %d is %T, not an object", i, item)}
		}
		rows = append(rows, obj)
	}
	return rows, nil
}

func decodeLines(name string, data []byte) ([]Row, error) {
	var rows []Row
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var obj Row
		if err := json.Unmarshal(line, &obj); err != nil {
			return nil, &ValidationError{Dataset: name, Reason: fmt.Sprintf("line %d: invalid JSON: %v", i+1, err)}
		}
		rows = append(rows, obj)
	}
	return rows, nil
}

// CSVFile reads rows from a CSV file with a header line.
type CSVFile struct {
	name  string
	path  string
	comma rune
}

// NewCSVFile creates a CSV file dataset. An empty delimiter means ",".
func NewCSVFile(name, path, delimiter string) (*CSVFile, error) {
	if path == "" {
		return nil, &ValidationError{Dataset: name, Field: "file", Reason: "file is required"}
	}
	comma := ','
	if delimiter != "" {
		if delimiter == `\t` {
			delimiter = "\t"
		}
		r, size := utf8.DecodeRuneInString(delimiter)
		if size != len(delimiter) {
			return nil, &ValidationError{Dataset: name, Field: "delimiter", Reason: "must be a single character"}
		}
		comma = r
	}
	return &CSVFile{name: name, path: path, comma: comma}, nil
}

// Name returns the dataset name
func (s *CSVFile) Name() string { return s.name }

// Path is the file read.
func (s *CSVFile) Path() string { return s.path }

// Fetch reads the file. Header names are trimmed and a UTF-8 byte order
// mark is dropped.
func (s *CSVFile) Fetch(ctx context.Context) ([]Row, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &SourceError{Dataset: s.name, Operation: "read", Err: err}
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = s.comma
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ValidationError{Dataset: s.name, Reason: fmt.Sprintf("invalid CSV: %v", err)}
	}
	if len(records) == 0 {
		return []Row{}, nil
	}

	headers := records[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(headers))
		for i, v := range rec {
			if i < len(headers) {
				row[headers[i]] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Close is a no-op for file datasets
func (s *CSVFile) Close() error { return nil }
