package command

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	oscerrors "github.com/joona/osckit/errors"
	"github.com/joona/osckit/format"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "table",
			Usage:   "output format: " + strings.Join(format.Formats(), ", "),
		},
		&cli.StringSliceFlag{
			Name:    "column",
			Aliases: []string{"c"},
			Usage:   "column to include, can be repeated",
		},
	}
}

// Lister prints rows under a set of columns.
type Lister struct {
	Description string
	Arguments   string
	ExtraFlags  []cli.Flag
	Take        func(c *Context) (columns []string, rows [][]any, err error)
}

func (l *Lister) Usage() string     { return l.Description }
func (l *Lister) ArgsUsage() string { return l.Arguments }

func (l *Lister) Flags() []cli.Flag {
	flags := append(slices.Clone(l.ExtraFlags), outputFlags()...)
	return append(flags,
		&cli.StringSliceFlag{
			Name:  "sort-column",
			Usage: "column to sort by, can be repeated",
		},
		&cli.BoolFlag{
			Name:  "sort-descending",
			Usage: "sort in descending order",
		},
	)
}

func (l *Lister) Execute(c *Context) error {
	c.Log().Debug("take action", "command", l.Description)
	columns, rows, err := l.Take(c)
	if err != nil {
		return err
	}
	if err := sortRows(columns, rows, c.CLI.StringSlice("sort-column"), c.CLI.Bool("sort-descending")); err != nil {
		return err
	}
	columns, rows, err = selectColumns(columns, rows, c.CLI.StringSlice("column"))
	if err != nil {
		return err
	}
	p, err := format.NewPrinter(c.CLI.String("format"))
	if err != nil {
		return oscerrors.Commandf("%w", err)
	}
	return p.List(c.Stdout(), columns, rows)
}

// ShowOne prints a single record as column/value pairs.
type ShowOne struct {
	Description string
	Arguments   string
	ExtraFlags  []cli.Flag
	Take        func(c *Context) (columns []string, values []any, err error)
}

func (s *ShowOne) Usage() string     { return s.Description }
func (s *ShowOne) ArgsUsage() string { return s.Arguments }

func (s *ShowOne) Flags() []cli.Flag {
	return append(slices.Clone(s.ExtraFlags), outputFlags()...)
}

func (s *ShowOne) Execute(c *Context) error {
	c.Log().Debug("take action", "command", s.Description)
	columns, values, err := s.Take(c)
	if err != nil {
		return err
	}
	columns, rows, err := selectColumns(columns, [][]any{values}, c.CLI.StringSlice("column"))
	if err != nil {
		return err
	}
	p, err := format.NewPrinter(c.CLI.String("format"))
	if err != nil {
		return oscerrors.Commandf("%w", err)
	}
	return p.One(c.Stdout(), columns, rows[0])
}

// Creator creates a resource and shows the result.
type Creator struct {
	ShowOne
}

// Deleter deletes every resource named on the command line. Failures are
// logged individually and reported together once all were attempted.
type Deleter struct {
	Description string
	Kind        string
	ExtraFlags  []cli.Flag
	Delete      func(c *Context, nameOrID string) error
}

func (d *Deleter) Usage() string     { return d.Description }
func (d *Deleter) ArgsUsage() string { return "<" + d.Kind + "> [<" + d.Kind + "> ...]" }
func (d *Deleter) Flags() []cli.Flag { return d.ExtraFlags }

func (d *Deleter) Execute(c *Context) error {
	targets := c.Args()
	if len(targets) == 0 {
		return oscerrors.Commandf("at least one %s name or ID is required", d.Kind)
	}
	failed := 0
	for _, target := range targets {
		if err := d.Delete(c, target); err != nil {
			failed++
			c.Log().Error("failed to delete "+d.Kind, "name_or_id", target, "error", err)
		}
	}
	if failed > 0 {
		return oscerrors.Commandf("%d of %d %ss failed to delete.", failed, len(targets), d.Kind)
	}
	return nil
}

// Basic runs an arbitrary action.
type Basic struct {
	Description string
	Arguments   string
	ExtraFlags  []cli.Flag
	// SkipAuth marks commands that work without credentials.
	SkipAuth bool
	Run      func(c *Context) error
}

func (b *Basic) Usage() string      { return b.Description }
func (b *Basic) ArgsUsage() string  { return b.Arguments }
func (b *Basic) Flags() []cli.Flag  { return b.ExtraFlags }
func (b *Basic) AuthRequired() bool { return !b.SkipAuth }
func (b *Basic) Execute(c *Context) error {
	return b.Run(c)
}

func selectColumns(columns []string, rows [][]any, want []string) ([]string, [][]any, error) {
	if len(want) == 0 {
		return columns, rows, nil
	}
	idx := make([]int, 0, len(want))
	for _, name := range want {
		i := slices.Index(columns, name)
		if i < 0 {
			return nil, nil, oscerrors.Commandf("unknown column %q, choose from %s", name, strings.Join(columns, ", "))
		}
		idx = append(idx, i)
	}
	out := make([][]any, len(rows))
	for r, row := range rows {
		picked := make([]any, len(idx))
		for j, i := range idx {
			if i < len(row) {
				picked[j] = row[i]
			}
		}
		out[r] = picked
	}
	return want, out, nil
}

// sortRows orders rows by the given columns, first column most significant.
func sortRows(columns []string, rows [][]any, by []string, descending bool) error {
	if len(by) == 0 {
		return nil
	}
	idx := make([]int, 0, len(by))
	for _, name := range by {
		i := slices.Index(columns, name)
		if i < 0 {
			return oscerrors.Commandf("unknown sort column %q", name)
		}
		idx = append(idx, i)
	}
	sort.SliceStable(rows, func(a, b int) bool {
		for _, i := range idx {
			c := compareCells(cell(rows[a], i), cell(rows[b], i))
			if c == 0 {
				continue
			}
			if descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return nil
}

func cell(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}

func compareCells(a, b any) int {
	fa, aok := number(a)
	fb, bok := number(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(format.Stringify(a), format.Stringify(b))
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case format.SizeColumn:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}
