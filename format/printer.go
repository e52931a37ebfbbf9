package format

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Printer writes command results. List output is a set of rows under
// columns; One output is a single record of column/value pairs.
type Printer interface {
	List(w io.Writer, columns []string, rows [][]any) error
	One(w io.Writer, columns []string, values []any) error
}

var printers = map[string]func() Printer{
	"table": func() Printer { return tablePrinter{} },
	"json":  func() Printer { return jsonPrinter{} },
	"yaml":  func() Printer { return yamlPrinter{} },
	"value": func() Printer { return valuePrinter{} },
	"csv":   func() Printer { return csvPrinter{} },
}

// Formats lists the printer names NewPrinter accepts.
func Formats() []string {
	names := make([]string, 0, len(printers))
	for name := range printers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewPrinter returns the printer registered as name.
func NewPrinter(name string) (Printer, error) {
	p, ok := printers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (choose from %s)", name, strings.Join(Formats(), ", "))
	}
	return p(), nil
}

type tablePrinter struct{}

func (tablePrinter) List(w io.Writer, columns []string, rows [][]any) error {
	t := table.New().Border(lipgloss.NormalBorder()).Headers(columns...)
	for _, row := range rows {
		t.Row(humanRow(row)...)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func (tablePrinter) One(w io.Writer, columns []string, values []any) error {
	t := table.New().Border(lipgloss.NormalBorder()).Headers("Field", "Value")
	for i, col := range columns {
		t.Row(col, Stringify(valueAt(values, i)))
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

type valuePrinter struct{}

func (valuePrinter) List(w io.Writer, _ []string, rows [][]any) error {
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(humanRow(row), " ")); err != nil {
			return err
		}
	}
	return nil
}

func (valuePrinter) One(w io.Writer, _ []string, values []any) error {
	for _, v := range values {
		if _, err := fmt.Fprintln(w, Stringify(v)); err != nil {
			return err
		}
	}
	return nil
}

type csvPrinter struct{}

func (csvPrinter) List(w io.Writer, columns []string, rows [][]any) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(humanRow(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (p csvPrinter) One(w io.Writer, columns []string, values []any) error {
	return p.List(w, columns, [][]any{values})
}

type jsonPrinter struct{}

func (jsonPrinter) List(w io.Writer, columns []string, rows [][]any) error {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, row := range rows {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		if err := writeJSONObject(&buf, columns, row, "  "); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	_, err := w.Write(buf.Bytes())
	return err
}

func (jsonPrinter) One(w io.Writer, columns []string, values []any) error {
	var buf bytes.Buffer
	if err := writeJSONObject(&buf, columns, values, ""); err != nil {
		return err
	}
	buf.WriteString("\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// writeJSONObject keeps the column order, which encoding a map would not.
func writeJSONObject(buf *bytes.Buffer, columns []string, values []any, indent string) error {
	if len(columns) == 0 {
		buf.WriteString("{}")
		return nil
	}
	buf.WriteString("{")
	for i, col := range columns {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := json.Marshal(col)
		if err != nil {
			return err
		}
		val, err := json.MarshalIndent(Machine(valueAt(values, i)), indent+"  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(buf, "\n%s  %s: %s", indent, key, val)
	}
	fmt.Fprintf(buf, "\n%s}", indent)
	return nil
}

type yamlPrinter struct{}

func (yamlPrinter) List(w io.Writer, columns []string, rows [][]any) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range rows {
		node, err := yamlMapping(columns, row)
		if err != nil {
			return err
		}
		seq.Content = append(seq.Content, node)
	}
	return encodeYAML(w, seq)
}

func (yamlPrinter) One(w io.Writer, columns []string, values []any) error {
	node, err := yamlMapping(columns, values)
	if err != nil {
		return err
	}
	return encodeYAML(w, node)
}

func yamlMapping(columns []string, values []any) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for i, col := range columns {
		var val yaml.Node
		if err := val.Encode(Machine(valueAt(values, i))); err != nil {
			return nil, fmt.Errorf("encode %s: %w", col, err)
		}
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: col}, &val)
	}
	return m, nil
}

func encodeYAML(w io.Writer, node *yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return err
	}
	return enc.Close()
}

func humanRow(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = Stringify(v)
	}
	return out
}

func valueAt(values []any, i int) any {
	if i < len(values) {
		return values[i]
	}
	return nil
}
