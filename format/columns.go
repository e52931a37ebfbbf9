package format

// Formattable is a cell that renders differently for table/value output and
// for json/yaml output.
type Formattable interface {
	HumanReadable() string
	MachineReadable() any
}

// DictColumn holds a map such as resource properties.
type DictColumn map[string]any

func (c DictColumn) HumanReadable() string { return FormatDict(c) }

func (c DictColumn) MachineReadable() any {
	out := make(map[string]any, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// DictListColumn holds a map of lists, for example addresses by network.
type DictListColumn map[string][]string

func (c DictListColumn) HumanReadable() string { return FormatDictOfList(c, "") }

func (c DictListColumn) MachineReadable() any {
	out := make(map[string][]string, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// ListColumn holds a list of strings.
type ListColumn []string

func (c ListColumn) HumanReadable() string { return FormatList(c, "") }

func (c ListColumn) MachineReadable() any {
	return append([]string{}, c...)
}

// ListDictColumn holds a list of maps.
type ListDictColumn []map[string]any

func (c ListDictColumn) HumanReadable() string { return FormatListOfDicts(c) }

func (c ListDictColumn) MachineReadable() any {
	out := make([]map[string]any, 0, len(c))
	for _, item := range c {
		out = append(out, DictColumn(item).MachineReadable().(map[string]any))
	}
	return out
}

// SizeColumn holds a byte count.
type SizeColumn float64

func (c SizeColumn) HumanReadable() string { return FormatSize(float64(c)) }

func (c SizeColumn) MachineReadable() any { return float64(c) }

// Machine is the json/yaml form of a single cell value.
func Machine(v any) any {
	if f, ok := v.(Formattable); ok {
		return f.MachineReadable()
	}
	return v
}
