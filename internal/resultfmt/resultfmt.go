// Package resultfmt renders executor.Result/Rows for a terminal or a
// scripted caller. It provides two formats, human and json: a Format enum,
// a Formatter interface, and a NewFormatter factory keyed on a lowercase
// name.
package resultfmt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/minifish-org/tegdb-sub001/internal/executor"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
)

// Format names an output rendering.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
)

// Formatter renders a single statement's executor.Result as text.
type Formatter interface {
	Format(res executor.Result) (string, error)
}

// NewFormatter returns the Formatter named by name, defaulting to human
// when name is empty.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatHuman:
		return humanFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	default:
		return nil, fmt.Errorf("resultfmt: unsupported format %q; use 'human' or 'json'", name)
	}
}

// --- human ---

type humanFormatter struct{}

func (humanFormatter) Format(res executor.Result) (string, error) {
	if res.Rows == nil {
		if res.Message != "" {
			return res.Message, nil
		}
		return fmt.Sprintf("%d row(s) affected", res.RowsAffected), nil
	}
	defer res.Rows.Close()

	var rows [][]string
	for {
		values, ok, err := res.Rows.Next()
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cellText(v)
		}
		rows = append(rows, row)
	}
	return renderTable(res.Rows.Columns, rows), nil
}

func cellText(v sqlast.Value) string {
	if v.IsNull() {
		return "NULL"
	}
	switch v.Kind {
	case sqlast.KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case sqlast.KindReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case sqlast.KindText:
		return v.Text
	case sqlast.KindBlob:
		return fmt.Sprintf("x'%x'", v.Blob)
	case sqlast.KindVector:
		parts := make([]string, len(v.Vector))
		for i, f := range v.Vector {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}

func renderTable(columns []string, rows [][]string) string {
	if len(columns) == 0 {
		return "(no columns)"
	}
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
		}
		b.WriteByte('\n')
	}
	writeRow(columns)
	for i, w := range widths {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", w))
	}
	b.WriteByte('\n')
	for _, row := range rows {
		writeRow(row)
	}
	if len(rows) == 0 {
		b.WriteString("(0 rows)\n")
	} else {
		b.WriteString(fmt.Sprintf("(%d row(s))\n", len(rows)))
	}
	return b.String()
}

// --- json ---

type jsonFormatter struct{}

type jsonResult struct {
	RowsAffected int64            `json:"rows_affected,omitempty"`
	Message      string           `json:"message,omitempty"`
	Columns      []string         `json:"columns,omitempty"`
	Rows         []map[string]any `json:"rows,omitempty"`
}

func (jsonFormatter) Format(res executor.Result) (string, error) {
	out := jsonResult{RowsAffected: res.RowsAffected, Message: res.Message}
	if res.Rows != nil {
		defer res.Rows.Close()
		out.Columns = res.Rows.Columns
		for {
			values, ok, err := res.Rows.Next()
			if err != nil {
				return "", err
			}
			if !ok {
				break
			}
			record := make(map[string]any, len(values))
			for i, v := range values {
				record[res.Rows.Columns[i]] = jsonValue(v)
			}
			out.Rows = append(out.Rows, record)
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func jsonValue(v sqlast.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind {
	case sqlast.KindInteger:
		return v.Int
	case sqlast.KindReal:
		return v.Real
	case sqlast.KindText:
		return v.Text
	case sqlast.KindBlob:
		return v.Blob
	case sqlast.KindVector:
		return v.Vector
	default:
		return nil
	}
}
