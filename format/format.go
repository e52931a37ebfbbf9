// Package format renders resource fields for humans and machines: flat
// strings for dicts and lists, column wrappers and the output printers.
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FormatDict renders data as sorted key='value' pairs. Nested maps are
// flattened with dotted keys and nil values render as key=.
func FormatDict(data map[string]any) string {
	if data == nil {
		return ""
	}
	return strings.Join(dictPairs(data, ""), ", ")
}

func dictPairs(data map[string]any, prefix string) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := data[k].(type) {
		case map[string]any:
			out = append(out, dictPairs(v, key)...)
		case nil:
			out = append(out, key+"=")
		default:
			out = append(out, fmt.Sprintf("%s='%s'", key, Stringify(v)))
		}
	}
	return out
}

// FormatDictOfList renders {"public": ["b", "a"]} as "public=a, b". Entries
// are joined with sep, "; " when empty. Nil lists are skipped.
func FormatDictOfList(data map[string][]string, sep string) string {
	if sep == "" {
		sep = "; "
	}
	keys := make([]string, 0, len(data))
	for k, v := range data {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	groups := make([]string, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, k+"="+FormatList(data[k], ""))
	}
	return strings.Join(groups, sep)
}

// FormatList sorts data and joins it with sep, ", " when empty.
func FormatList(data []string, sep string) string {
	if sep == "" {
		sep = ", "
	}
	sorted := append([]string(nil), data...)
	sort.Strings(sorted)
	return strings.Join(sorted, sep)
}

// FormatListOfDicts renders one FormatDict line per item.
func FormatListOfDicts(data []map[string]any) string {
	lines := make([]string, 0, len(data))
	for _, item := range data {
		lines = append(lines, FormatDict(item))
	}
	return strings.Join(lines, "\n")
}

var sizeSuffixes = []string{"", "K", "M", "G", "T", "P", "E", "Z"}

// FormatSize renders a byte count in base 1000 with one decimal, trailing
// zeros trimmed: 1000 is "1K", 1234567 is "1.2M".
func FormatSize(size float64) string {
	i := 0
	for size >= 1000 && i < len(sizeSuffixes)-1 {
		size /= 1000
		i++
	}
	s := strconv.FormatFloat(size, 'f', 1, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + sizeSuffixes[i]
}

// Stringify is the human form of a single cell value.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case Formattable:
		return t.HumanReadable()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
