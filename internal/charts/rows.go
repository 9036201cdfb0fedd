package charts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/livetemplate/scrollytell/internal/viz"
)

// Str returns a field as a string. Numbers are formatted without exponent.
func Str(row viz.Row, key string) string {
	switch v := row[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Num returns a numeric field. CSV strings are parsed; a decimal comma is
// accepted.
func Num(row viz.Row, key string) (float64, error) {
	switch v := row[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		s := strings.TrimSpace(strings.Replace(v, ",", ".", 1))
		if s == "" {
			return 0, fmt.Errorf("field %q is empty", key)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("missing field %q", key)
	default:
		return 0, fmt.Errorf("field %q has unsupported type %T", key, v)
	}
}

// Nums extracts a numeric column.
func Nums(rows []viz.Row, key string) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		v, err := Num(r, key)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// Strs extracts a string column.
func Strs(rows []viz.Row, key string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = Str(r, key)
	}
	return out
}

// RequireColumns fails when a row lacks one of keys.
func RequireColumns(rows []viz.Row, keys ...string) error {
	if len(rows) == 0 {
		return fmt.Errorf("dataset is empty")
	}
	for _, k := range keys {
		if _, ok := rows[0][k]; !ok {
			return fmt.Errorf("dataset has no column %q", k)
		}
	}
	return nil
}
